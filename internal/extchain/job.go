package extchain

import (
	"context"
	"sync"
	"time"

	"cosmossdk.io/errors"
	"cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/computebudget"
	"github.com/gagliardetto/solana-go/programs/memo"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/mr-tron/base58"

	"github.com/tidalswap/engine/internal/obs"
	"github.com/tidalswap/engine/pkg/registry"
)

var (
	ErrJobNotFound  = errors.Register(ModuleName, 11, "swap job not found")
	ErrBuildFailed  = errors.Register(ModuleName, 12, "failed to build ext-chain payout transaction")
)

// JobStatus is the lifecycle of §4.9 point 5.
type JobStatus string

const (
	JobPending JobStatus = "Pending"
	JobSent    JobStatus = "Sent"
	JobFailed  JobStatus = "Failed"
)

// SwapJob is a durable outbound Ext-chain payment obligation the engine has
// committed to (§4.9): the corresponding Transfer references it via
// JobRef(job_id) so it is never confused with a host-block transfer.
type SwapJob struct {
	ID        uint64
	RequestID uint64
	ToWallet  string
	Mint      string
	Amount    math.Int
	SignedTx  []byte
	TxSig     string
	Status    JobStatus
	Ts        time.Time
}

// Fee tables of §4.9 point 2: fixed per transaction class, not derived from
// live network congestion (consistent with §1's no-fee-oracle non-goal).
const (
	computeUnitLimitPlain    = uint32(20_000)
	computeUnitLimitWithATA  = uint32(60_000)
	computeUnitPriceMicroLamports = uint64(1_000)
)

// TokenProgramID and the associated-token-account program id, pinned
// constants mirroring the chain's well-known program addresses.
var (
	TokenProgramID                  = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	AssociatedTokenAccountProgramID = solana.MustPublicKeyFromBase58("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
)

// Builder builds and signs outbound Ext-chain payout transactions (C9).
type Builder struct {
	signer          Signer
	derivationPath  string
	recentBlockhash func(ctx context.Context) (solana.Hash, error)
}

func NewBuilder(signer Signer, derivationPath string, recentBlockhash func(ctx context.Context) (solana.Hash, error)) *Builder {
	return &Builder{signer: signer, derivationPath: derivationPath, recentBlockhash: recentBlockhash}
}

// BuildAndSign implements §4.9 points 1-4: derive the destination account
// when needed, build the instruction list, compile the canonical message,
// and sign it via the threshold facility.
func (b *Builder) BuildAndSign(ctx context.Context, payer, toWallet, mint solana.PublicKey, amount uint64, needsATACreation bool, requestID uint64) ([]byte, string, error) {
	dest := toWallet
	if needsATACreation {
		var walletB, tokenProgB, mintB, programB [32]byte
		copy(walletB[:], toWallet[:])
		copy(tokenProgB[:], TokenProgramID[:])
		copy(mintB[:], mint[:])
		copy(programB[:], AssociatedTokenAccountProgramID[:])
		pda, _, err := DeriveAssociatedAccount(walletB, tokenProgB, mintB, programB)
		if err != nil {
			return nil, "", ErrBuildFailed.Wrap(err.Error())
		}
		dest = solana.PublicKeyFromBytes(pda[:])
	}

	limit := computeUnitLimitPlain
	if needsATACreation {
		limit = computeUnitLimitWithATA
	}

	instructions := []solana.Instruction{
		computebudget.NewSetComputeUnitLimitInstruction(limit).Build(),
		computebudget.NewSetComputeUnitPriceInstruction(computeUnitPriceMicroLamports).Build(),
	}
	if needsATACreation {
		instructions = append(instructions, system.NewCreateAccountInstruction(0, 0, TokenProgramID, payer, dest).Build())
	}
	instructions = append(instructions,
		token.NewTransferInstruction(amount, dest, dest, payer, nil).Build(),
		memo.NewMemoInstruction([]byte(memoFor(requestID)), payer).Build(),
	)

	blockhash, err := b.recentBlockhash(ctx)
	if err != nil {
		return nil, "", ErrBuildFailed.Wrap(err.Error())
	}

	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(payer))
	if err != nil {
		return nil, "", ErrBuildFailed.Wrap(err.Error())
	}

	msgBytes, err := tx.Message.MarshalBinary()
	if err != nil {
		return nil, "", ErrBuildFailed.Wrap(err.Error())
	}

	sig, _, err := b.signer.Sign(ctx, b.derivationPath, msgBytes)
	if err != nil {
		return nil, "", err
	}

	var solSig solana.Signature
	copy(solSig[:], sig)
	tx.Signatures = []solana.Signature{solSig}

	raw, err := tx.MarshalBinary()
	if err != nil {
		return nil, "", ErrBuildFailed.Wrap(err.Error())
	}

	return raw, base58.Encode(solSig[:]), nil
}

func memoFor(requestID uint64) string {
	return "req:" + itoa(requestID)
}

func itoa(n uint64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// Queue is the C9 durable job queue; an external relayer drains it.
type Queue struct {
	mu     sync.Mutex
	jobs   *registry.Registry[SwapJob]
	logger obs.Logger
	metrics *obs.Metrics
}

func NewQueue(logger obs.Logger, metrics *obs.Metrics) *Queue {
	return &Queue{jobs: registry.New[SwapJob](), logger: logger, metrics: metrics}
}

// Enqueue records a signed payout transaction as Pending.
func (q *Queue) Enqueue(requestID uint64, toWallet, mint string, amount math.Int, signedTx []byte, txSig string) uint64 {
	id := q.jobs.Insert(func(jobID uint64) SwapJob {
		return SwapJob{
			ID:        jobID,
			RequestID: requestID,
			ToWallet:  toWallet,
			Mint:      mint,
			Amount:    amount,
			SignedTx:  signedTx,
			TxSig:     txSig,
			Status:    JobPending,
			Ts:        time.Now(),
		}
	})
	if q.metrics != nil {
		q.metrics.SettlementQueue.Inc()
	}
	q.logger.Info("ext swap job enqueued", "job_id", id, "request_id", requestID, "tx_sig", txSig)
	return id
}

// Get returns a job by id.
func (q *Queue) Get(id uint64) (SwapJob, error) {
	j, err := q.jobs.Get(id)
	if err != nil {
		return SwapJob{}, ErrJobNotFound
	}
	return j, nil
}

// MarkSent transitions a job to Sent once the relayer has confirmed
// dispatch.
func (q *Queue) MarkSent(id uint64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	j, err := q.jobs.Get(id)
	if err != nil {
		return ErrJobNotFound
	}
	j.Status = JobSent
	if q.metrics != nil {
		q.metrics.SettlementQueue.Dec()
	}
	return q.jobs.Update(id, j)
}

// MarkFailed transitions a job to Failed, leaving it for the caller to
// raise a Claim.
func (q *Queue) MarkFailed(id uint64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	j, err := q.jobs.Get(id)
	if err != nil {
		return ErrJobNotFound
	}
	j.Status = JobFailed
	if q.metrics != nil {
		q.metrics.SettlementQueue.Dec()
	}
	return q.jobs.Update(id, j)
}

// Pending returns every job still awaiting relayer dispatch.
func (q *Queue) Pending() []SwapJob {
	var out []SwapJob
	q.jobs.Iter(func(_ uint64, j SwapJob) bool {
		if j.Status == JobPending {
			out = append(out, j)
		}
		return true
	})
	return out
}
