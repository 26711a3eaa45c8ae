// Package protocol defines the signed operation envelope accepted by the
// locked fund. The envelope format matches the sale engine's: compressed
// public key, DER encoded ECDSA signature over the raw payload bytes, and the
// payload itself.
package protocol

import (
	"encoding/json"
	"time"

	"github.com/gaze-network/uint128"
)

type Envelope struct {
	Pubkey    string          `json:"pubkey"`
	Signature string          `json:"signature"`
	Payload   json.RawMessage `json:"payload"`
}

type AddAdminPayload struct {
	AdminPubkey string `json:"admin_pubkey"`
}

type RemoveAdminPayload struct {
	AdminPubkey string `json:"admin_pubkey"`
}

type ChangeVestingRegistryPayload struct {
	VestingRegistry string `json:"vesting_registry"`
}

type ChangeWaitedTimestampPayload struct {
	WaitedTimestamp time.Time `json:"waited_timestamp"`
}

type DepositWaitedUnlockedPayload struct {
	Beneficiary string          `json:"beneficiary"`
	Amount      uint128.Uint128 `json:"amount"`
	UnlockBP    uint16          `json:"unlock_bp"`
	SourceRef   string          `json:"source_ref"`
}

type DepositVestedPayload struct {
	Beneficiary string          `json:"beneficiary"`
	Amount      uint128.Uint128 `json:"amount"`
	UnlockBP    uint16          `json:"unlock_bp"`
	Cliff       time.Duration   `json:"cliff"`
	Duration    time.Duration   `json:"duration"`
	SourceRef   string          `json:"source_ref"`
}

type WithdrawPayload struct{}
