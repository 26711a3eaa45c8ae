package processor

import (
	"encoding/hex"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/cockroachdb/errors"
)

// pubkeyToAddress derives the participant wallet address from the envelope's
// compressed public key. The derived address is the participant identity
// everywhere in storage.
func (p *Processor) pubkeyToAddress(pubkey string) (string, error) {
	pubKeyBytes, err := hex.DecodeString(pubkey)
	if err != nil {
		return "", errors.Wrap(err, "cannot decode hexstring")
	}
	addr, err := btcutil.NewAddressPubKey(pubKeyBytes, p.network.ChainParams())
	if err != nil {
		return "", errors.Wrap(err, "cannot derive address from public key")
	}
	return addr.AddressPubKeyHash().EncodeAddress(), nil
}
