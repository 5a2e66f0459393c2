// Package extchain implements the Ext-chain side of the engine: the
// notification ingress store (C15), the Ext payment verifier (C8), and the
// settlement job queue (C9). Grounded on kong_backend/src/solana and
// other_examples manifests referencing github.com/gagliardetto/solana-go.
package extchain

import (
	"sync"
	"time"
)

// Status is the lifecycle an external relayer reports for an Ext-chain
// transaction signature.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusFinalized Status = "finalized"
	StatusFailed    Status = "failed"
)

// Notification is one relayer-reported observation of an Ext-chain
// transaction, keyed by its base58 signature (§3 GLOSSARY).
type Notification struct {
	TxSignature  string
	Status       Status
	Metadata     map[string]string
	BlockTimeMs  int64
	ReceivedTs   time.Time
}

// NotificationStore is the C15 keeper-equivalent: a map keyed by signature,
// last-write-wins, so a later "finalized" post overwrites an earlier
// "confirmed" one for the same signature.
type NotificationStore struct {
	mu    sync.Mutex
	bySig map[string]Notification
}

func NewNotificationStore() *NotificationStore {
	return &NotificationStore{bySig: make(map[string]Notification)}
}

// Ingest records a relayer observation, overwriting any prior entry for the
// same signature.
func (s *NotificationStore) Ingest(txSignature string, status Status, metadata map[string]string, blockTimeMs int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bySig[txSignature] = Notification{
		TxSignature: txSignature,
		Status:      status,
		Metadata:    metadata,
		BlockTimeMs: blockTimeMs,
		ReceivedTs:  time.Now(),
	}
}

// Get returns the notification for a signature, if any.
func (s *NotificationStore) Get(txSignature string) (Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.bySig[txSignature]
	return n, ok
}

// GCOlderThan deletes notifications whose ReceivedTs is older than ttl,
// relative to now, and returns how many were removed (§4.14's notification
// GC).
func (s *NotificationStore) GCOlderThan(now time.Time, ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for sig, n := range s.bySig {
		if now.Sub(n.ReceivedTs) > ttl {
			delete(s.bySig, sig)
			removed++
		}
	}
	return removed
}

// Len reports the current notification count, for metrics/tests.
func (s *NotificationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bySig)
}
