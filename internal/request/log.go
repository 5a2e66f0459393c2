package request

import (
	"sync"
	"time"

	"cosmossdk.io/errors"

	"github.com/tidalswap/engine/internal/obs"
	"github.com/tidalswap/engine/pkg/registry"
)

const ModuleName = "request"

var ErrNotFound = errors.Register(ModuleName, 1, "request not found")

// Log is the keeper-equivalent for C6.
type Log struct {
	mu       sync.Mutex
	requests *registry.Registry[Request]
	logger   obs.Logger
}

func New(logger obs.Logger) *Log {
	return &Log{requests: registry.New[Request](), logger: logger}
}

// Start creates a new Request with a Start status, returning its id.
func (l *Log) Start(userID uint32, op Op, args any) uint64 {
	now := time.Now()
	return l.requests.Insert(func(id uint64) Request {
		return Request{
			ID:     id,
			UserID: userID,
			Op:     op,
			Args:   args,
			Statuses: []StatusEntry{
				{Code: StatusStart, Ts: now},
			},
			Ts: now,
		}
	})
}

// AppendStatus appends a status code to requestID's trail in program order.
// Transitions are not gated by a formal state machine (§4.6): callers are
// responsible for ordering.
func (l *Log) AppendStatus(requestID uint64, code StatusCode, message string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	req, err := l.requests.Get(requestID)
	if err != nil {
		return ErrNotFound
	}
	req.Statuses = append(req.Statuses, StatusEntry{Code: code, Message: message, Ts: time.Now()})
	return l.requests.Update(requestID, req)
}

// SetReply attaches a typed reply exactly once; later attempts are ignored
// (§4.6).
func (l *Log) SetReply(requestID uint64, reply Reply) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	req, err := l.requests.Get(requestID)
	if err != nil {
		return ErrNotFound
	}
	if req.Reply != nil {
		return nil
	}
	req.Reply = &reply
	return l.requests.Update(requestID, req)
}

// Get returns a request by id.
func (l *Log) Get(requestID uint64) (Request, error) {
	req, err := l.requests.Get(requestID)
	if err != nil {
		return Request{}, ErrNotFound
	}
	return req, nil
}

// LastStatus returns the most recent status code, used by pollers of async
// operations.
func (l *Log) LastStatus(requestID uint64) (StatusCode, error) {
	req, err := l.Get(requestID)
	if err != nil {
		return "", err
	}
	if len(req.Statuses) == 0 {
		return "", nil
	}
	return req.Statuses[len(req.Statuses)-1].Code, nil
}

// ArchiveUpTo spills requests with id <= cursor into the archive map.
func (l *Log) ArchiveUpTo(cursor uint64) int {
	return l.requests.ArchiveUpTo(cursor)
}

// Counter returns the last assigned request id.
func (l *Log) Counter() uint64 { return l.requests.Counter() }

// ForUser returns all active requests belonging to userID, most-recent last.
func (l *Log) ForUser(userID uint32) []Request {
	var out []Request
	l.requests.Iter(func(_ uint64, r Request) bool {
		if r.UserID == userID {
			out = append(out, r)
		}
		return true
	})
	return out
}
