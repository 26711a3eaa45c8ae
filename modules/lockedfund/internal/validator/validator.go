package validator

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/uint128"
	"github.com/origins-network/sale-engine/modules/lockedfund/datagateway"
	"github.com/origins-network/sale-engine/modules/lockedfund/protocol"
)

// MaxLockDuration caps vesting schedules. Durations past it are assumed to be
// caller bugs rather than real schedules.
const MaxLockDuration = 50 * 365 * 24 * time.Hour

const (
	INVALID_PUBKEY_FORMAT    = "cannot parse public key"
	INVALID_SIGNATURE_FORMAT = "cannot parse signature"
	INVALID_SIGNATURE        = "invalid signature"
	NOT_ADMIN                = "public key is not an admin"
	ADMIN_NOT_FOUND          = "admin not found"
	CANNOT_REMOVE_LAST       = "cannot remove the last admin"
	REGISTRY_EMPTY           = "vesting registry cannot be empty"
	TIMESTAMP_ZERO           = "waited timestamp cannot be zero"
	AMOUNT_ZERO              = "amount cannot be zero"
	INVALID_UNLOCK_BP        = "unlock basis points must be below 10000"
	DURATION_ZERO            = "duration cannot be zero"
	DURATION_TOO_LONG        = "duration is too long"
	BENEFICIARY_EMPTY        = "beneficiary cannot be empty"
	NOTHING_TO_WITHDRAW      = "nothing to withdraw"
)

// Validator accumulates check results, keeping the first failure reason.
type Validator struct {
	Valid  bool
	Reason string
}

func New() *Validator {
	return &Validator{
		Valid: true,
	}
}

func (v *Validator) VerifySignature(env *protocol.Envelope) bool {
	if !v.Valid {
		return false
	}
	pubkeyBytes, err := hex.DecodeString(env.Pubkey)
	if err != nil {
		v.Valid = false
		v.Reason = INVALID_PUBKEY_FORMAT
		return v.Valid
	}
	pubKey, err := btcec.ParsePubKey(pubkeyBytes)
	if err != nil {
		v.Valid = false
		v.Reason = INVALID_PUBKEY_FORMAT
		return v.Valid
	}
	signatureBytes, err := hex.DecodeString(env.Signature)
	if err != nil {
		v.Valid = false
		v.Reason = INVALID_SIGNATURE_FORMAT
		return v.Valid
	}
	signature, err := ecdsa.ParseDERSignature(signatureBytes)
	if err != nil {
		v.Valid = false
		v.Reason = INVALID_SIGNATURE_FORMAT
		return v.Valid
	}
	hash := chainhash.DoubleHashB(env.Payload)
	if !signature.Verify(hash, pubKey) {
		v.Valid = false
		v.Reason = INVALID_SIGNATURE
		return v.Valid
	}
	v.Valid = true
	return v.Valid
}

func (v *Validator) IsAdmin(ctx context.Context, qtx datagateway.LockedFundDataGateway, pubkey string) (bool, error) {
	if !v.Valid {
		return false, nil
	}
	admin, err := qtx.IsAdmin(ctx, pubkey)
	if err != nil {
		v.Valid = false
		return v.Valid, errors.Wrap(err, "failed to check admin")
	}
	if !admin {
		v.Valid = false
		v.Reason = NOT_ADMIN
		return v.Valid, nil
	}
	v.Valid = true
	return v.Valid, nil
}

func (v *Validator) ValidPubkey(pubkey string) bool {
	if !v.Valid {
		return false
	}
	pubkeyBytes, err := hex.DecodeString(pubkey)
	if err != nil {
		v.Valid = false
		v.Reason = INVALID_PUBKEY_FORMAT
		return v.Valid
	}
	if _, err := btcec.ParsePubKey(pubkeyBytes); err != nil {
		v.Valid = false
		v.Reason = INVALID_PUBKEY_FORMAT
		return v.Valid
	}
	v.Valid = true
	return v.Valid
}

// DepositValid checks the shared deposit parameters. vested selects the
// additional schedule checks.
func (v *Validator) DepositValid(beneficiary string, amount uint128.Uint128, unlockBP uint16, vested bool, duration time.Duration) bool {
	if !v.Valid {
		return false
	}
	if beneficiary == "" {
		v.Valid = false
		v.Reason = BENEFICIARY_EMPTY
		return v.Valid
	}
	if amount.IsZero() {
		v.Valid = false
		v.Reason = AMOUNT_ZERO
		return v.Valid
	}
	if unlockBP >= 10000 {
		v.Valid = false
		v.Reason = INVALID_UNLOCK_BP
		return v.Valid
	}
	if vested {
		if duration == 0 {
			v.Valid = false
			v.Reason = DURATION_ZERO
			return v.Valid
		}
		if duration < 0 || duration > MaxLockDuration {
			v.Valid = false
			v.Reason = DURATION_TOO_LONG
			return v.Valid
		}
	}
	v.Valid = true
	return v.Valid
}
