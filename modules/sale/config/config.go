package config

import (
	"github.com/origins-network/sale-engine/internal/postgres"
	"github.com/origins-network/sale-engine/modules/sale/archive"
	"github.com/origins-network/sale-engine/modules/sale/stakingclient"
)

type Config struct {
	Database string          `mapstructure:"database"` // Database to store sale state e.g. `postgres` | `memory`
	Postgres postgres.Config `mapstructure:"postgres"`

	// OwnerPubkey is the compressed public key (hex) granted the owner role
	// on startup.
	OwnerPubkey string `mapstructure:"owner_pubkey"`

	Staking stakingclient.Config `mapstructure:"staking"`
	Archive archive.Config       `mapstructure:"archive"`
}
