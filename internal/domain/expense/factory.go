package expense

import (
	"time"

	"github.com/google/uuid"
)

// NewFromCreateRequest normalizes raw input into a persistable expense. The
// owner comes from the authenticated caller, never the payload. An
// unparseable amount fails the whole create; an unparseable or absent date
// falls back to the current UTC calendar date.
func NewFromCreateRequest(ownerID string, req CreateExpenseRequest, now time.Time) (Expense, error) {
	amount, err := ParseAmount(req.Amount)
	if err != nil {
		return Expense{}, err
	}

	return Expense{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Category:  NormalizeCategory(req.Category),
		Amount:    amount,
		Date:      ParseDateOr(req.Date, DateOf(now)),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
