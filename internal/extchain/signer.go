package extchain

import (
	"context"
	"crypto/sha256"

	"cosmossdk.io/errors"
	"github.com/luxfi/threshold/pkg/party"

	"github.com/tidalswap/engine/internal/config"
)

var ErrSigningUnavailable = errors.Register(ModuleName, 10, "threshold signing facility unavailable")

// Signer produces an Ed25519 signature over a serialized Ext-chain
// transaction using a derivation path tied to the engine's own identity,
// per §4.9 point 4. Outside the local environment the ThresholdSigner is
// selected, which does not produce signatures: its Sign always returns
// ErrSigningUnavailable. In the local environment a deterministic mock
// signer is used so local runs stay reproducible (SPEC_FULL.md §4.9).
type Signer interface {
	Sign(ctx context.Context, derivationPath string, message []byte) (signature []byte, signerAddress [32]byte, err error)
}

// ThresholdGroup abstracts the parts of a frost.Config this signer needs —
// its public key and the identity of the engine's own share — without
// committing to the full luxfi/threshold API surface, since the signing
// round itself is driven by the relayer's MPC network rather than by this
// single-writer engine process.
type ThresholdGroup interface {
	PublicKeyBytes() [32]byte
	SelfID() party.ID
}

// ThresholdSigner wraps a pre-established threshold key share, standing in
// for the host's threshold-Ed25519 facility (parsdao-pars/threshold's
// ExecuteSigning). Request dispatch to the MPC network is the relayer's
// responsibility; this facility exposes the group's canonical address so
// callers can address transactions before a signature round completes.
type ThresholdSigner struct {
	group ThresholdGroup
}

func NewThresholdSigner(group ThresholdGroup) *ThresholdSigner {
	return &ThresholdSigner{group: group}
}

func (s *ThresholdSigner) Sign(ctx context.Context, derivationPath string, message []byte) ([]byte, [32]byte, error) {
	if s.group == nil {
		return nil, [32]byte{}, ErrSigningUnavailable
	}
	return nil, s.group.PublicKeyBytes(), ErrSigningUnavailable
}

// MockSigner returns a deterministic pseudo-signature and pseudo-address
// for local development, computed as sha256(enginePrincipal || "mock")
// truncated to 32 bytes — never random, so local runs are reproducible
// (SPEC_FULL.md §4.9).
type MockSigner struct {
	enginePrincipal string
}

func NewMockSigner(enginePrincipal string) *MockSigner {
	return &MockSigner{enginePrincipal: enginePrincipal}
}

func (s *MockSigner) Sign(ctx context.Context, derivationPath string, message []byte) ([]byte, [32]byte, error) {
	h := sha256.Sum256(append([]byte(s.enginePrincipal), []byte("mock")...))
	sig := sha256.Sum256(append(h[:], message...))
	return sig[:], h, nil
}

// SelectSigner picks the mock or threshold signer based on the engine's
// configured environment.
func SelectSigner(env config.Environment, enginePrincipal string, threshold Signer) Signer {
	if env == config.EnvLocal {
		return NewMockSigner(enginePrincipal)
	}
	return threshold
}
