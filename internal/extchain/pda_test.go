package extchain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveAssociatedAccount_IsDeterministic(t *testing.T) {
	var wallet, tokenProgram, mint, programID [32]byte
	wallet[0], tokenProgram[0], mint[0], programID[0] = 1, 2, 3, 4

	pda1, bump1, err := DeriveAssociatedAccount(wallet, tokenProgram, mint, programID)
	require.NoError(t, err)
	pda2, bump2, err := DeriveAssociatedAccount(wallet, tokenProgram, mint, programID)
	require.NoError(t, err)

	require.Equal(t, pda1, pda2)
	require.Equal(t, bump1, bump2)
}

func TestDeriveAssociatedAccount_DifferentInputsProduceDifferentAddresses(t *testing.T) {
	var wallet1, wallet2, tokenProgram, mint, programID [32]byte
	wallet1[0], wallet2[0] = 1, 2
	tokenProgram[0], mint[0], programID[0] = 5, 6, 7

	pda1, _, err := DeriveAssociatedAccount(wallet1, tokenProgram, mint, programID)
	require.NoError(t, err)
	pda2, _, err := DeriveAssociatedAccount(wallet2, tokenProgram, mint, programID)
	require.NoError(t, err)

	require.NotEqual(t, pda1, pda2)
}

func TestDeriveAssociatedAccount_ResultIsOffCurve(t *testing.T) {
	var wallet, tokenProgram, mint, programID [32]byte
	wallet[0], tokenProgram[0], mint[0], programID[0] = 9, 10, 11, 12

	pda, _, err := DeriveAssociatedAccount(wallet, tokenProgram, mint, programID)
	require.NoError(t, err)
	require.False(t, isOnCurve(pda), "a valid PDA must not be a valid ed25519 point")
}
