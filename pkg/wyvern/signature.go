package wyvern

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mselser95/nft-orders/pkg/types"
)

// Signer produces maker signatures over order hashes.
type Signer interface {
	Address() common.Address
	SignOrderHash(ctx context.Context, hash common.Hash) (*types.ECSignature, error)
}

// KeySigner signs with a local secp256k1 key using the personal-message prefix,
// which is what the exchange recovers against.
type KeySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewKeySigner parses a hex private key, with or without 0x prefix.
func NewKeySigner(privateKeyHex string) (*KeySigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return &KeySigner{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// Address returns the signing account.
func (s *KeySigner) Address() common.Address {
	return s.address
}

// SignOrderHash signs the personal-message digest of hash.
func (s *KeySigner) SignOrderHash(_ context.Context, hash common.Hash) (*types.ECSignature, error) {
	sig, err := crypto.Sign(accounts.TextHash(hash.Bytes()), s.key)
	if err != nil {
		return nil, fmt.Errorf("sign order hash: %w", err)
	}
	return &types.ECSignature{
		V: sig[64] + 27,
		R: common.BytesToHash(sig[:32]),
		S: common.BytesToHash(sig[32:64]),
	}, nil
}

// RecoverSigner returns the address that produced sig over hash.
func RecoverSigner(hash common.Hash, sig *types.ECSignature) (common.Address, error) {
	if sig == nil {
		return common.Address{}, fmt.Errorf("recover signer: %w", types.ErrMissingField)
	}
	v := sig.V
	if v >= 27 {
		v -= 27
	}
	if v > 1 {
		return common.Address{}, fmt.Errorf("recover signer: invalid recovery id %d", sig.V)
	}

	raw := make([]byte, 65)
	copy(raw[:32], sig.R.Bytes())
	copy(raw[32:64], sig.S.Bytes())
	raw[64] = v

	pub, err := crypto.SigToPub(accounts.TextHash(hash.Bytes()), raw)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover signer: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// VerifySignature reports whether the order is signed by its maker.
func VerifySignature(o *types.Order) bool {
	if o.Signature == nil {
		return false
	}
	addr, err := RecoverSigner(o.Hash, o.Signature)
	if err != nil {
		return false
	}
	return addr == o.Maker
}
