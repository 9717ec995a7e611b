package expense

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the only accepted wire form for expense dates; the domain has
// no time-of-day semantics.
const DateLayout = "2006-01-02"

// DefaultCategory is substituted when a submitted category is empty after
// trimming.
const DefaultCategory = "Uncategorized"

var (
	ErrNotFound      = errors.New("expense not found")
	ErrInvalidAmount = errors.New("invalid amount")
)

type Expense struct {
	ID        string    `json:"id"`
	Seq       int64     `json:"-"` // insertion order, assigned by storage
	OwnerID   string    `json:"ownerId"`
	Category  string    `json:"category"`
	Amount    float64   `json:"amount"`
	Date      time.Time `json:"date"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type CategoryTotal struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
}

// CreateExpenseRequest carries raw user input. Amount and date arrive as
// strings and are parsed by the domain, not the transport layer, so the
// fallback rules live in one place.
type CreateExpenseRequest struct {
	Category string `json:"category" binding:"omitempty,max=120"`
	Amount   string `json:"amount"`
	Date     string `json:"date" binding:"omitempty,max=32"`
}

// UpdateExpenseRequest is a partial update; nil fields keep their stored
// values.
type UpdateExpenseRequest struct {
	Category *string `json:"category" binding:"omitempty,max=120"`
	Amount   *string `json:"amount"`
	Date     *string `json:"date" binding:"omitempty,max=32"`
}

// NormalizeCategory trims the label and substitutes DefaultCategory when
// nothing is left.
func NormalizeCategory(raw string) string {
	c := strings.TrimSpace(raw)
	if c == "" {
		return DefaultCategory
	}
	return c
}

// ParseAmount accepts any finite decimal, negative included. Non-finite
// values are rejected because the JSON surface cannot carry them.
func ParseAmount(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

func ParseDate(raw string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(raw))
}

// ParseDateOr returns fallback when raw is absent or malformed; dates never
// fail an operation on their own.
func ParseDateOr(raw string, fallback time.Time) time.Time {
	d, err := ParseDate(raw)
	if err != nil {
		return fallback
	}
	return d
}

// DateOf strips the time-of-day, keeping the calendar date in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ApplyUpdate folds a partial update into the stored record. A malformed
// amount rejects the whole update before anything is touched. A malformed
// date keeps the previously stored date, which is deliberately different from
// create's current-date fallback.
func (e *Expense) ApplyUpdate(req UpdateExpenseRequest, now time.Time) error {
	if req.Amount != nil {
		amount, err := ParseAmount(*req.Amount)
		if err != nil {
			return err
		}
		e.Amount = amount
	}
	if req.Category != nil {
		e.Category = NormalizeCategory(*req.Category)
	}
	if req.Date != nil {
		e.Date = ParseDateOr(*req.Date, e.Date)
	}
	e.UpdatedAt = now
	return nil
}
