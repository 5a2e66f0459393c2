package engine

import (
	"github.com/gagliardetto/solana-go"
)

// mustSolanaPubkey parses a base58 Ext-chain address. Addresses reaching
// this point have already been validated by the token catalogue or the Ext
// verifier, so a parse failure here means the zero key rather than a panic
// path a caller could trigger with untrusted input.
func mustSolanaPubkey(addr string) solana.PublicKey {
	pk, err := solana.PublicKeyFromBase58(addr)
	if err != nil {
		return solana.PublicKey{}
	}
	return pk
}
