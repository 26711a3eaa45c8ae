package config

import "github.com/origins-network/sale-engine/internal/postgres"

type Config struct {
	Database string          `mapstructure:"database"` // Database to store locked-fund state e.g. `postgres` | `memory`
	Postgres postgres.Config `mapstructure:"postgres"`

	// AdminPubkey is the compressed public key (hex) granted fund
	// administration on startup.
	AdminPubkey string `mapstructure:"admin_pubkey"`
}
