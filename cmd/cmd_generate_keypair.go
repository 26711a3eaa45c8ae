package cmd

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/cockroachdb/errors"
	"github.com/origins-network/sale-engine/common"
	"github.com/spf13/cobra"
)

type generateKeypairCmdOptions struct {
	Path    string
	Network string
}

func NewGenerateKeypairCommand() *cobra.Command {
	opts := &generateKeypairCmdOptions{}

	cmd := &cobra.Command{
		Use:   "generate-keypair",
		Short: "Generate a keypair for signing operation envelopes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return generateKeypairHandler(opts, cmd, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.Path, "path", "/data/keys", `Path to save the key pair files`)
	flags.StringVar(&opts.Network, "network", "mainnet", `Network to derive the wallet address on`)

	return cmd
}

func generateKeypairHandler(opts *generateKeypairCmdOptions, _ *cobra.Command, _ []string) error {
	network := common.Network(opts.Network)
	if !network.IsSupported() {
		return errors.Errorf("%q network is not supported", opts.Network)
	}

	fmt.Printf("Generating key pair\n")
	privKeyBytes := make([]byte, 32)
	if _, err := rand.Read(privKeyBytes); err != nil {
		return errors.Wrap(err, "failed to read random bytes")
	}
	_, pubKey := btcec.PrivKeyFromBytes(privKeyBytes)
	serializedPubKey := pubKey.SerializeCompressed()

	addressPubKey, err := btcutil.NewAddressPubKey(serializedPubKey, network.ChainParams())
	if err != nil {
		return errors.Wrap(err, "failed to derive wallet address")
	}

	fmt.Printf("Public key: %s\n", hex.EncodeToString(serializedPubKey))
	fmt.Printf("Wallet address: %s\n", addressPubKey.AddressPubKeyHash().EncodeAddress())

	if err := os.MkdirAll(opts.Path, 0o755); err != nil {
		return errors.Wrap(err, "failed to create directory")
	}

	privateKeyPath := path.Join(opts.Path, "priv.key")
	if _, err := os.Stat(privateKeyPath); err == nil {
		fmt.Printf("Existing private key found at %s\n[WARNING] THE EXISTING PRIVATE KEY WILL BE LOST\nType [replace] to replace existing private key: ", privateKeyPath)
		var ans string
		fmt.Scanln(&ans)
		if ans != "replace" {
			fmt.Printf("Keypair generation aborted\n")
			return nil
		}
	}

	if err := os.WriteFile(privateKeyPath, []byte(hex.EncodeToString(privKeyBytes)), 0o600); err != nil {
		return errors.Wrap(err, "failed to write private key file")
	}
	fmt.Printf("Private key saved at %s\n", privateKeyPath)

	publicKeyPath := path.Join(opts.Path, "pub.key")
	if err := os.WriteFile(publicKeyPath, []byte(hex.EncodeToString(serializedPubKey)), 0o644); err != nil {
		return errors.Wrap(err, "failed to write public key file")
	}
	fmt.Printf("Public key saved at %s\n", publicKeyPath)
	return nil
}
