package reporting

import (
	"context"
	"sync"

	"callsync-platform/internal/callhistory"
)

// MemoryRepo is a simple in-memory reporting repository for tests and early
// development.
type MemoryRepo struct {
	mu sync.Mutex

	Records []callhistory.CallRecord
	Unseen  int
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) ListCallHistoryRange(_ context.Context, from, to int64) ([]callhistory.CallRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]callhistory.CallRecord, 0)
	for _, rec := range r.Records {
		if rec.Timestamp < from || rec.Timestamp >= to {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *MemoryRepo) CountUnseenMessages(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Unseen, nil
}
