package authz

import (
	"errors"
	"fmt"

	"github.com/ledgerhub/ledgerhub/internal/domain/user"
)

// Identity is the resolved authentication result. Every core call takes it as
// an explicit argument; nothing reads ambient session state. The zero value
// means no authenticated caller.
type Identity struct {
	UserID   string
	Username string
	Role     string
}

func (i Identity) IsZero() bool { return i.UserID == "" }

func (i Identity) IsAdmin() bool { return i.Role == user.RoleAdmin }

// Operation names one guarded class of core operation.
type Operation string

const (
	OpCreateExpense   Operation = "expense.create"
	OpReadExpense     Operation = "expense.read"
	OpUpdateExpense   Operation = "expense.update"
	OpDeleteExpense   Operation = "expense.delete"
	OpListOwnExpenses Operation = "expense.list_own"
	OpDashboard       Operation = "dashboard.read"
	OpListAllExpenses Operation = "expense.list_all"
	OpListUsers       Operation = "user.list_all"
	OpExport          Operation = "export.build"
	OpAggregateAll    Operation = "aggregate.all"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNotOwner         = errors.New("not the record owner")
	ErrAdminOnly        = errors.New("admin role required")
)

// Require gates operations whose target owner is only known after a lookup:
// callers must be authenticated before the lookup happens at all.
func Require(id Identity) error {
	if id.IsZero() {
		return ErrNotAuthenticated
	}
	return nil
}

// Authorize decides whether id may run op against a record owned by
// targetOwnerID. Pure function, no state read or written. Record mutations
// are owner-scoped even for admins; admin reach across ownership is
// read-only. Unknown operations are denied.
func Authorize(id Identity, op Operation, targetOwnerID string) error {
	if id.IsZero() {
		return ErrNotAuthenticated
	}

	switch op {
	case OpReadExpense:
		if id.IsAdmin() || id.UserID == targetOwnerID {
			return nil
		}
		return ErrNotOwner

	case OpCreateExpense, OpUpdateExpense, OpDeleteExpense:
		if id.UserID == targetOwnerID {
			return nil
		}
		return ErrNotOwner

	case OpListOwnExpenses, OpDashboard:
		// Scope is implicitly the caller's own records.
		return nil

	case OpListAllExpenses, OpListUsers, OpExport, OpAggregateAll:
		if id.IsAdmin() {
			return nil
		}
		return ErrAdminOnly

	default:
		return fmt.Errorf("authorize: unknown operation %q", op)
	}
}
