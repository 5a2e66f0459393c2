package extchain

import (
	"crypto/sha256"

	"cosmossdk.io/errors"
	"filippo.io/edwards25519"
)

var ErrNoPDAFound = errors.Register(ModuleName, 9, "no off-curve program-derived address found in bump search")

const pdaMarker = "ProgramDerivedAddress"

// DeriveAssociatedAccount derives the associated token account of
// (wallet, mint) under programID, following §4.9 point 1's bump-search
// rule literally: iterate bump from 255 down to 0, hash
// [wallet, tokenProgram, mint, bump, programID, "ProgramDerivedAddress"]
// with SHA-256, and accept the first candidate whose compressed point is
// off the Edwards curve (the defining property of a valid PDA — it must
// NOT be a valid public key).
func DeriveAssociatedAccount(wallet, tokenProgram, mint, programID [32]byte) ([32]byte, uint8, error) {
	for bump := 255; bump >= 0; bump-- {
		h := sha256.New()
		h.Write(wallet[:])
		h.Write(tokenProgram[:])
		h.Write(mint[:])
		h.Write([]byte{byte(bump)})
		h.Write(programID[:])
		h.Write([]byte(pdaMarker))
		sum := h.Sum(nil)

		var candidate [32]byte
		copy(candidate[:], sum)
		if !isOnCurve(candidate) {
			return candidate, uint8(bump), nil
		}
	}
	return [32]byte{}, 0, ErrNoPDAFound
}

// isOnCurve reports whether b decodes as a valid compressed Edwards25519
// point. A PDA is accepted only when this is false.
func isOnCurve(b [32]byte) bool {
	_, err := new(edwards25519.Point).SetBytes(b[:])
	return err == nil
}
