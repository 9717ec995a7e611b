package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/ledgerhub/ledgerhub/internal/authz"
	"github.com/ledgerhub/ledgerhub/internal/domain/expense"
	"github.com/ledgerhub/ledgerhub/internal/domain/user"
	"github.com/ledgerhub/ledgerhub/internal/export"
)

// ExpensesRepo is the storage surface the ledger needs. Both the postgres
// and the in-memory implementations satisfy it.
type ExpensesRepo interface {
	Create(ctx context.Context, e expense.Expense) (expense.Expense, error)
	GetByID(ctx context.Context, id string) (expense.Expense, error)
	Update(ctx context.Context, e expense.Expense) (expense.Expense, error)
	Delete(ctx context.Context, id, ownerID string) error
	ListByOwner(ctx context.Context, ownerID string) ([]expense.Expense, error)
	ListAll(ctx context.Context) ([]expense.Expense, error)
	ListAllCursor(ctx context.Context, limit int, afterSeq int64) (items []expense.Expense, nextCursor *string, hasMore bool, err error)
	CategoryTotals(ctx context.Context, ownerID string) ([]expense.CategoryTotal, error)
	Total(ctx context.Context, ownerID string) (float64, error)
}

type UsersLister interface {
	List(ctx context.Context) ([]user.User, error)
}

// Scope selects whose records an aggregation covers. Own scope always means
// the caller's records; there is no aggregating someone else's.
type Scope string

const (
	ScopeOwn Scope = "own"
	ScopeAll Scope = "all"
)

// Dashboard is the caller's own view: records newest first plus the derived
// numbers.
type Dashboard struct {
	Records        []expense.Expense
	Total          float64
	CategoryTotals []expense.CategoryTotal
}

// Summary is the admin cross-user aggregate.
type Summary struct {
	Total          float64
	CategoryTotals []expense.CategoryTotal
}

// Service is the guarded core. Every method takes the caller identity
// explicitly and consults authz.Authorize before touching storage, so the
// policy holds no matter which transport sits in front.
type Service struct {
	expenses ExpensesRepo
	users    UsersLister
	now      func() time.Time
}

func NewService(expenses ExpensesRepo, users UsersLister) *Service {
	return &Service{
		expenses: expenses,
		users:    users,
		now:      time.Now,
	}
}

// maskOwnership hides whether a record exists at all from callers who do not
// own it; both cases answer NotFound so ids cannot be probed.
func maskOwnership(err error) error {
	if errors.Is(err, authz.ErrNotOwner) {
		return expense.ErrNotFound
	}
	return err
}

func (s *Service) Create(ctx context.Context, caller authz.Identity, req expense.CreateExpenseRequest) (expense.Expense, error) {
	if err := authz.Authorize(caller, authz.OpCreateExpense, caller.UserID); err != nil {
		return expense.Expense{}, err
	}

	e, err := expense.NewFromCreateRequest(caller.UserID, req, s.now().UTC())
	if err != nil {
		return expense.Expense{}, err
	}

	return s.expenses.Create(ctx, e)
}

func (s *Service) Get(ctx context.Context, caller authz.Identity, id string) (expense.Expense, error) {
	if err := authz.Require(caller); err != nil {
		return expense.Expense{}, err
	}

	e, err := s.expenses.GetByID(ctx, id)
	if err != nil {
		return expense.Expense{}, err
	}

	if err := authz.Authorize(caller, authz.OpReadExpense, e.OwnerID); err != nil {
		return expense.Expense{}, maskOwnership(err)
	}

	return e, nil
}

// Update folds the partial request into the stored record. The final write
// is owner-scoped in storage as well, so a racing delete surfaces as
// NotFound rather than a resurrected row.
func (s *Service) Update(ctx context.Context, caller authz.Identity, id string, req expense.UpdateExpenseRequest) (expense.Expense, error) {
	if err := authz.Require(caller); err != nil {
		return expense.Expense{}, err
	}

	e, err := s.expenses.GetByID(ctx, id)
	if err != nil {
		return expense.Expense{}, err
	}

	if err := authz.Authorize(caller, authz.OpUpdateExpense, e.OwnerID); err != nil {
		return expense.Expense{}, maskOwnership(err)
	}

	if err := e.ApplyUpdate(req, s.now().UTC()); err != nil {
		return expense.Expense{}, err
	}

	return s.expenses.Update(ctx, e)
}

func (s *Service) Delete(ctx context.Context, caller authz.Identity, id string) error {
	if err := authz.Require(caller); err != nil {
		return err
	}

	e, err := s.expenses.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := authz.Authorize(caller, authz.OpDeleteExpense, e.OwnerID); err != nil {
		return maskOwnership(err)
	}

	return s.expenses.Delete(ctx, e.ID, e.OwnerID)
}

func (s *Service) ListOwn(ctx context.Context, caller authz.Identity) ([]expense.Expense, error) {
	if err := authz.Authorize(caller, authz.OpListOwnExpenses, caller.UserID); err != nil {
		return nil, err
	}

	return s.expenses.ListByOwner(ctx, caller.UserID)
}

func (s *Service) ListAll(ctx context.Context, caller authz.Identity) ([]expense.Expense, error) {
	if err := authz.Authorize(caller, authz.OpListAllExpenses, ""); err != nil {
		return nil, err
	}

	return s.expenses.ListAll(ctx)
}

func (s *Service) ListAllPage(ctx context.Context, caller authz.Identity, limit int, afterSeq int64) ([]expense.Expense, *string, bool, error) {
	if err := authz.Authorize(caller, authz.OpListAllExpenses, ""); err != nil {
		return nil, nil, false, err
	}

	return s.expenses.ListAllCursor(ctx, limit, afterSeq)
}

func (s *Service) CategoryTotals(ctx context.Context, caller authz.Identity, scope Scope) ([]expense.CategoryTotal, error) {
	if scope == ScopeAll {
		if err := authz.Authorize(caller, authz.OpAggregateAll, ""); err != nil {
			return nil, err
		}
		return s.expenses.CategoryTotals(ctx, "")
	}

	if err := authz.Authorize(caller, authz.OpListOwnExpenses, caller.UserID); err != nil {
		return nil, err
	}
	return s.expenses.CategoryTotals(ctx, caller.UserID)
}

func (s *Service) Total(ctx context.Context, caller authz.Identity, scope Scope) (float64, error) {
	if scope == ScopeAll {
		if err := authz.Authorize(caller, authz.OpAggregateAll, ""); err != nil {
			return 0, err
		}
		return s.expenses.Total(ctx, "")
	}

	if err := authz.Authorize(caller, authz.OpListOwnExpenses, caller.UserID); err != nil {
		return 0, err
	}
	return s.expenses.Total(ctx, caller.UserID)
}

func (s *Service) Dashboard(ctx context.Context, caller authz.Identity) (Dashboard, error) {
	if err := authz.Authorize(caller, authz.OpDashboard, caller.UserID); err != nil {
		return Dashboard{}, err
	}

	records, err := s.expenses.ListByOwner(ctx, caller.UserID)
	if err != nil {
		return Dashboard{}, err
	}

	totals, err := s.expenses.CategoryTotals(ctx, caller.UserID)
	if err != nil {
		return Dashboard{}, err
	}

	total, err := s.expenses.Total(ctx, caller.UserID)
	if err != nil {
		return Dashboard{}, err
	}

	return Dashboard{
		Records:        records,
		Total:          total,
		CategoryTotals: totals,
	}, nil
}

func (s *Service) AdminSummary(ctx context.Context, caller authz.Identity) (Summary, error) {
	if err := authz.Authorize(caller, authz.OpAggregateAll, ""); err != nil {
		return Summary{}, err
	}

	totals, err := s.expenses.CategoryTotals(ctx, "")
	if err != nil {
		return Summary{}, err
	}

	total, err := s.expenses.Total(ctx, "")
	if err != nil {
		return Summary{}, err
	}

	return Summary{
		Total:          total,
		CategoryTotals: totals,
	}, nil
}

func (s *Service) ListUsers(ctx context.Context, caller authz.Identity) ([]user.User, error) {
	if err := authz.Authorize(caller, authz.OpListUsers, ""); err != nil {
		return nil, err
	}

	return s.users.List(ctx)
}

// Export materializes an admin-authorized record set into an xlsx artifact.
// The serializer itself never checks permissions; this is the one place that
// feeds it rows.
func (s *Service) Export(ctx context.Context, caller authz.Identity, kind string) (data []byte, filename string, err error) {
	if err := authz.Authorize(caller, authz.OpExport, ""); err != nil {
		return nil, "", err
	}

	switch kind {
	case export.KindExpenses:
		items, err := s.expenses.ListAll(ctx)
		if err != nil {
			return nil, "", err
		}
		data, err = export.Expenses(items)
		if err != nil {
			return nil, "", err
		}

	case export.KindUsers:
		users, err := s.users.List(ctx)
		if err != nil {
			return nil, "", err
		}
		data, err = export.Users(users)
		if err != nil {
			return nil, "", err
		}

	default:
		return nil, "", export.ErrUnsupportedKind
	}

	return data, export.Filename(kind), nil
}
