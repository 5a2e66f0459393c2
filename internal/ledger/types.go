// Package ledger implements the transfer ledger (C5): a dedup index of
// inbound/outbound value movements keyed by (token_id, tx_reference).
// Grounded on x/dex/keeper/keys.go's indexing idiom, generalized from a
// single store key to the three-variant TxRef of §3.
package ledger

import (
	"fmt"
	"time"

	"cosmossdk.io/errors"
	"cosmossdk.io/math"
)

const ModuleName = "ledger"

var ErrDuplicate = errors.Register(ModuleName, 1, "duplicate (token_id, tx_ref): transfer already recorded")

// TxRefKind tags which chain reference variant a Transfer carries.
type TxRefKind int

const (
	TxRefHostBlock TxRefKind = iota
	TxRefExtSig
	TxRefJob
)

// TxRef is the closed tagged union of §6's tx_id wire formats plus the
// internal JobRef variant used for settlement-queue outbound legs (§4.9).
type TxRef struct {
	Kind      TxRefKind
	HostBlock math.Int
	ExtSig    string
	JobID     uint64
}

func HostBlockRef(block math.Int) TxRef { return TxRef{Kind: TxRefHostBlock, HostBlock: block} }
func ExtSigRef(sig string) TxRef        { return TxRef{Kind: TxRefExtSig, ExtSig: sig} }
func JobRef(jobID uint64) TxRef         { return TxRef{Kind: TxRefJob, JobID: jobID} }

// key returns the string used to index this ref for dedup purposes.
func (r TxRef) key() string {
	switch r.Kind {
	case TxRefHostBlock:
		return "host:" + r.HostBlock.String()
	case TxRefExtSig:
		return "ext:" + r.ExtSig
	default:
		return fmt.Sprintf("job:%d", r.JobID)
	}
}

// Transfer is an engine-side record of an on-chain value movement (§3).
type Transfer struct {
	ID        uint64
	RequestID uint64
	IsInbound bool
	Amount    math.Int
	TokenID   uint32
	TxRef     TxRef
	Ts        time.Time
}
