package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/ledgerhub/ledgerhub/internal/domain/expense"
	"github.com/ledgerhub/ledgerhub/internal/utils"
)

// ExpensesRepo mirrors the postgres repo semantics in memory: insertion
// sequence, owner-scoped mutation, stable date ordering, deterministic
// aggregate ordering. The ledger service tests run against it.
type ExpensesRepo struct {
	mu      sync.RWMutex
	items   map[string]expense.Expense
	order   []string // ids in insertion order
	nextSeq int64
}

func NewExpensesRepo() *ExpensesRepo {
	return &ExpensesRepo{
		items: make(map[string]expense.Expense),
	}
}

func (r *ExpensesRepo) Create(_ context.Context, e expense.Expense) (expense.Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextSeq++
	e.Seq = r.nextSeq
	r.items[e.ID] = e
	r.order = append(r.order, e.ID)

	return e, nil
}

func (r *ExpensesRepo) GetByID(_ context.Context, id string) (expense.Expense, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.items[id]
	if !ok {
		return expense.Expense{}, expense.ErrNotFound
	}

	return e, nil
}

// Update is owner-scoped like the SQL variant; an owner mismatch is
// indistinguishable from a missing row.
func (r *ExpensesRepo) Update(_ context.Context, e expense.Expense) (expense.Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.items[e.ID]
	if !ok || stored.OwnerID != e.OwnerID {
		return expense.Expense{}, expense.ErrNotFound
	}

	e.Seq = stored.Seq
	e.CreatedAt = stored.CreatedAt
	r.items[e.ID] = e

	return e, nil
}

func (r *ExpensesRepo) Delete(_ context.Context, id, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.items[id]
	if !ok || stored.OwnerID != ownerID {
		return expense.ErrNotFound
	}

	delete(r.items, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	return nil
}

func (r *ExpensesRepo) ListByOwner(_ context.Context, ownerID string) ([]expense.Expense, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]expense.Expense, 0, len(r.order))
	for _, id := range r.order {
		if e := r.items[id]; e.OwnerID == ownerID {
			out = append(out, e)
		}
	}

	// stable sort: same-date rows keep their insertion order
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})

	return out, nil
}

func (r *ExpensesRepo) ListAll(_ context.Context) ([]expense.Expense, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]expense.Expense, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.items[id])
	}

	return out, nil
}

func (r *ExpensesRepo) ListAllCursor(_ context.Context, limit int, afterSeq int64) (items []expense.Expense, nextCursor *string, hasMore bool, err error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]expense.Expense, 0, len(r.order))
	for _, id := range r.order {
		e := r.items[id]
		if afterSeq > 0 && e.Seq >= afterSeq {
			continue
		}
		all = append(all, e)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].Seq > all[j].Seq })

	if len(all) > limit {
		hasMore = true
		all = all[:limit]
		last := all[len(all)-1]

		cur, encErr := utils.EncodeExpenseCursor(last.Seq)
		if encErr != nil {
			return nil, nil, false, encErr
		}
		nextCursor = &cur
	}

	return all, nextCursor, hasMore, nil
}

func (r *ExpensesRepo) CategoryTotals(_ context.Context, ownerID string) ([]expense.CategoryTotal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sums := make(map[string]float64)
	for _, e := range r.items {
		if ownerID != "" && e.OwnerID != ownerID {
			continue
		}
		sums[e.Category] += e.Amount
	}

	out := make([]expense.CategoryTotal, 0, len(sums))
	for category, total := range sums {
		out = append(out, expense.CategoryTotal{Category: category, Total: total})
	}

	// largest first, label breaks ties so repeated calls never shuffle
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Category < out[j].Category
	})

	return out, nil
}

func (r *ExpensesRepo) Total(_ context.Context, ownerID string) (float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var total float64
	for _, e := range r.items {
		if ownerID != "" && e.OwnerID != ownerID {
			continue
		}
		total += e.Amount
	}

	return total, nil
}
