package tkapi

import "sync/atomic"

// Budget caps the number of logical API calls a run may make. Retries of a
// single call do not consume extra budget. A nil *Budget means unlimited.
// Safe for concurrent use.
type Budget struct {
	limit int64
	used  atomic.Int64
}

// NewBudget returns a budget allowing limit calls. A limit <= 0 returns nil,
// which all methods treat as unlimited.
func NewBudget(limit int) *Budget {
	if limit <= 0 {
		return nil
	}
	return &Budget{limit: int64(limit)}
}

// TryAcquire consumes one call from the budget, reporting whether the call
// may proceed.
func (b *Budget) TryAcquire() bool {
	if b == nil {
		return true
	}
	if b.used.Add(1) > b.limit {
		b.used.Add(-1)
		return false
	}
	return true
}

// Used returns the number of calls consumed so far.
func (b *Budget) Used() int64 {
	if b == nil {
		return 0
	}
	return b.used.Load()
}

// Remaining returns the calls left, or -1 for an unlimited budget.
func (b *Budget) Remaining() int64 {
	if b == nil {
		return -1
	}
	left := b.limit - b.used.Load()
	if left < 0 {
		return 0
	}
	return left
}
