package extchain

import (
	"crypto/ed25519"
	"time"

	"cosmossdk.io/errors"
	"cosmossdk.io/math"
	"github.com/mr-tron/base58"
)

const ModuleName = "extchain"

var (
	ErrNotReady        = errors.Register(ModuleName, 1, "ext transaction not yet observed by the notification ingress")
	ErrBadStatus       = errors.Register(ModuleName, 2, "ext transaction is not confirmed or finalized")
	ErrStale           = errors.Register(ModuleName, 3, "ext transaction is older than the freshness window")
	ErrMissingSender   = errors.Register(ModuleName, 4, "notification metadata is missing a sender/authority field")
	ErrBadSignature    = errors.Register(ModuleName, 5, "canonical message signature does not verify against sender")
	ErrAmountMismatch  = errors.Register(ModuleName, 6, "observed amount does not match claimed amount")
	ErrBadPubkey       = errors.Register(ModuleName, 7, "sender is not a valid base58 ed25519 public key")
	ErrBadSignatureEnc = errors.Register(ModuleName, 8, "signature is not valid base58")
)

// Verified is what the Ext verifier returns on success, per spec.md §4.8
// point 7: the tx signature, the observed (and signature-authenticated)
// sender, and the claimed amount that was confirmed to match.
type Verified struct {
	TxSignature string
	Sender      string
	Amount      math.Int
}

// Verifier is the C8 keeper-equivalent. Per §9's trust-boundary note, it
// never derives the sender from the caller-supplied canonical message —
// only from the Notification store's observed metadata — so a forged
// canonical message cannot impersonate a sender the chain never saw.
type Verifier struct {
	store             *NotificationStore
	freshnessWindow   time.Duration
	now               func() time.Time
}

func NewVerifier(store *NotificationStore, freshnessWindow time.Duration) *Verifier {
	return &Verifier{store: store, freshnessWindow: freshnessWindow, now: time.Now}
}

// Verify implements §4.8's seven steps.
func (v *Verifier) Verify(txSignature, signatureOverCanonicalMessage, expectedAmountStr, canonicalMessage string, isFungibleAccountToken bool, expectedAmount math.Int) (Verified, error) {
	n, ok := v.store.Get(txSignature)
	if !ok {
		return Verified{}, ErrNotReady
	}
	if n.Status != StatusConfirmed && n.Status != StatusFinalized {
		return Verified{}, ErrBadStatus
	}
	if v.now().UnixMilli()-n.BlockTimeMs > v.freshnessWindow.Milliseconds() {
		return Verified{}, ErrStale
	}

	var sender string
	if isFungibleAccountToken {
		sender = n.Metadata["authority"]
		if sender == "" {
			sender = n.Metadata["sender_wallet"]
		}
	} else {
		sender = n.Metadata["sender"]
	}
	if sender == "" {
		return Verified{}, ErrMissingSender
	}

	pub, err := base58.Decode(sender)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return Verified{}, ErrBadPubkey
	}
	sig, err := base58.Decode(signatureOverCanonicalMessage)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return Verified{}, ErrBadSignatureEnc
	}
	if !ed25519.Verify(ed25519.PublicKey(pub), []byte(canonicalMessage), sig) {
		return Verified{}, ErrBadSignature
	}

	observedAmount, ok := math.NewIntFromString(n.Metadata["amount"])
	if !ok {
		return Verified{}, ErrAmountMismatch
	}
	if !observedAmount.Equal(expectedAmount) {
		return Verified{}, ErrAmountMismatch
	}

	return Verified{TxSignature: txSignature, Sender: sender, Amount: expectedAmount}, nil
}
