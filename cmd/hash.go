package cmd

import (
	"github.com/mselser95/nft-orders/pkg/wyvern"
	"github.com/spf13/cobra"
)

type hashOutput struct {
	Hash           string `json:"hash"`
	Signed         bool   `json:"signed"`
	SignatureValid bool   `json:"signature_valid"`
	Signer         string `json:"signer,omitempty"`
}

func newHashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash <order.json|->",
		Short: "Hash an order and check its signature",
		Long: `Computes the exchange hash of a wire-format order. An order whose embedded
hash disagrees is rejected. When signed, the signer is recovered and checked
against the maker.`,
		Args: cobra.ExactArgs(1),
		RunE: runHash,
	}
}

func runHash(cmd *cobra.Command, args []string) error {
	o, err := readOrderFile(cmd, args[0])
	if err != nil {
		return err
	}

	out := hashOutput{
		Hash:   o.Hash.Hex(),
		Signed: o.Signature != nil,
	}
	if o.Signature != nil {
		out.SignatureValid = wyvern.VerifySignature(o)
		signer, err := wyvern.RecoverSigner(o.Hash, o.Signature)
		if err == nil {
			out.Signer = signer.Hex()
		}
	}
	return writeJSON(cmd, out)
}
