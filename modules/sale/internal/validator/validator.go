package validator

import (
	"context"
	"encoding/hex"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/cockroachdb/errors"
	"github.com/origins-network/sale-engine/modules/sale/datagateway"
	"github.com/origins-network/sale-engine/modules/sale/internal/entity"
	"github.com/origins-network/sale-engine/modules/sale/protocol"
)

// Validator accumulates check results. Once Valid flips to false the first
// Reason is kept and further checks become no-ops.
type Validator struct {
	Valid  bool
	Reason string
}

func New() *Validator {
	return &Validator{
		Valid: true,
	}
}

const (
	INVALID_PUBKEY_FORMAT    = "Cannot parse public key."
	INVALID_SIGNATURE_FORMAT = "Cannot parse signature."
	INVALID_SIGNATURE        = "Invalid signature."
	UNAUTHORIZED             = "Public key is not authorized for this operation."
)

// VerifySignature checks the envelope signature against the double SHA256 of
// the raw payload bytes.
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

// HasRole checks that the pubkey holds one of the given roles.
func (v *Validator) HasRole(
	ctx context.Context,
	qtx datagateway.SaleDataGateway,
	pubkey string,
	roles ...entity.Role,
) (bool, error) {
	if !v.Valid {
		return false, nil
	}
	role, err := qtx.GetRole(ctx, pubkey)
	if err != nil {
		v.Valid = false
		return v.Valid, errors.Wrap(err, "failed to get role")
	}
	if role != nil {
		for _, r := range roles {
			if role.Role == r {
				v.Valid = true
				return v.Valid, nil
			}
		}
	}
	v.Valid = false
	v.Reason = UNAUTHORIZED
	return v.Valid, nil
}
