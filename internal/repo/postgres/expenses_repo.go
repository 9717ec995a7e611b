package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ledgerhub/ledgerhub/internal/domain/expense"
	"github.com/ledgerhub/ledgerhub/internal/observability"
	"github.com/ledgerhub/ledgerhub/internal/utils"
)

type ExpensesRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewExpensesRepo(pool *pgxpool.Pool, prom *observability.Prom) *ExpensesRepo {
	return &ExpensesRepo{pool: pool, prom: prom}
}

func (r *ExpensesRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

// Create persists an already-normalized expense. The insertion sequence is
// assigned by the database and read back for stable ordering.
func (r *ExpensesRepo) Create(ctx context.Context, e expense.Expense) (expense.Expense, error) {
	op := "expenses.create"

	err := r.observe(op, func() error {
		return r.pool.QueryRow(ctx,
			`INSERT INTO expenses (id, owner_id, category, amount, expense_date, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 RETURNING seq`,
			e.ID, e.OwnerID, e.Category, e.Amount, e.Date, e.CreatedAt, e.UpdatedAt,
		).Scan(&e.Seq)
	})

	if err != nil {
		return expense.Expense{}, err
	}

	return e, nil
}

func (r *ExpensesRepo) GetByID(ctx context.Context, id string) (expense.Expense, error) {
	var e expense.Expense
	op := "expenses.get_by_id"

	err := r.observe(op, func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, seq, owner_id, category, amount, expense_date, created_at, updated_at
			 FROM expenses
			 WHERE id = $1`, id,
		).Scan(&e.ID, &e.Seq, &e.OwnerID, &e.Category, &e.Amount, &e.Date, &e.CreatedAt, &e.UpdatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return expense.Expense{}, expense.ErrNotFound
		}
		return expense.Expense{}, err
	}

	return e, nil
}

// Update writes the full field set, scoped to the owner so a concurrent
// delete or a non-owner id guess both land on ErrNotFound.
func (r *ExpensesRepo) Update(ctx context.Context, e expense.Expense) (expense.Expense, error) {
	var out expense.Expense
	op := "expenses.update"

	err := r.observe(op, func() error {
		return r.pool.QueryRow(ctx,
			`UPDATE expenses
			 SET category = $3,
			     amount = $4,
			     expense_date = $5,
			     updated_at = NOW()
			 WHERE id = $1 AND owner_id = $2
			 RETURNING id, seq, owner_id, category, amount, expense_date, created_at, updated_at`,
			e.ID, e.OwnerID, e.Category, e.Amount, e.Date,
		).Scan(&out.ID, &out.Seq, &out.OwnerID, &out.Category, &out.Amount, &out.Date, &out.CreatedAt, &out.UpdatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return expense.Expense{}, expense.ErrNotFound
		}
		return expense.Expense{}, err
	}

	return out, nil
}

func (r *ExpensesRepo) Delete(ctx context.Context, id, ownerID string) error {
	var tag pgconn.CommandTag
	var err error
	op := "expenses.delete"

	err = r.observe(op, func() error {
		tag, err = r.pool.Exec(ctx,
			`DELETE FROM expenses WHERE id = $1 AND owner_id = $2`, id, ownerID)
		return err
	})

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return expense.ErrNotFound
	}
	return nil
}

// ListByOwner returns the owner's records newest date first; same-date rows
// keep their insertion order.
func (r *ExpensesRepo) ListByOwner(ctx context.Context, ownerID string) ([]expense.Expense, error) {
	var rows pgx.Rows
	op := "expenses.list_by_owner"

	err := r.observe(op, func() error {
		var qerr error
		rows, qerr = r.pool.Query(ctx,
			`SELECT id, seq, owner_id, category, amount, expense_date, created_at, updated_at
			 FROM expenses
			 WHERE owner_id = $1
			 ORDER BY expense_date DESC, seq ASC`, ownerID)
		return qerr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectExpenses(rows)
}

// ListAll returns every record in insertion order, so repeated calls are
// byte-for-byte identical absent writes. Exports read from here.
func (r *ExpensesRepo) ListAll(ctx context.Context) ([]expense.Expense, error) {
	var rows pgx.Rows
	op := "expenses.list_all"

	err := r.observe(op, func() error {
		var qerr error
		rows, qerr = r.pool.Query(ctx,
			`SELECT id, seq, owner_id, category, amount, expense_date, created_at, updated_at
			 FROM expenses
			 ORDER BY seq ASC`)
		return qerr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectExpenses(rows)
}

// ListAllCursor pages the admin listing newest-insert first with a seq
// keyset. afterSeq is the previous page's last seq; 0 means first page.
func (r *ExpensesRepo) ListAllCursor(ctx context.Context, limit int, afterSeq int64) (items []expense.Expense, nextCursor *string, hasMore bool, err error) {
	op := "expenses.admin.list_cursor"

	q := `SELECT id, seq, owner_id, category, amount, expense_date, created_at, updated_at
	      FROM expenses`

	var (
		conds   []string
		args    []any
		argsPos = 1
	)

	if afterSeq > 0 {
		conds = append(conds, fmt.Sprintf("seq < $%d", argsPos))
		args = append(args, afterSeq)
		argsPos++
	}

	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}

	// limit+1 row probe tells us whether another page exists
	q += fmt.Sprintf(" ORDER BY seq DESC LIMIT $%d", argsPos)
	args = append(args, limit+1)

	var rows pgx.Rows

	err = r.observe(op, func() error {
		var qerr error
		rows, qerr = r.pool.Query(ctx, q, args...)
		return qerr
	})
	if err != nil {
		return nil, nil, false, err
	}
	defer rows.Close()

	out, err := collectExpenses(rows)
	if err != nil {
		return nil, nil, false, err
	}

	if len(out) > limit {
		hasMore = true
		out = out[:limit]
		last := out[len(out)-1]

		cur, encErr := utils.EncodeExpenseCursor(last.Seq)
		if encErr != nil {
			return nil, nil, false, encErr
		}
		nextCursor = &cur
	}

	return out, nextCursor, hasMore, nil
}

// CategoryTotals groups the scoped set by exact category string. ownerID ""
// means all users (admin scope). Ordering is total descending with the label
// as tie-break so repeated calls never shuffle.
func (r *ExpensesRepo) CategoryTotals(ctx context.Context, ownerID string) ([]expense.CategoryTotal, error) {
	op := "expenses.category_totals"

	q := `SELECT category, SUM(amount) AS total
	      FROM expenses`

	var args []any

	if ownerID != "" {
		q += ` WHERE owner_id = $1`
		args = append(args, ownerID)
	}

	q += ` GROUP BY category
	       ORDER BY total DESC, category ASC`

	var rows pgx.Rows

	err := r.observe(op, func() error {
		var qerr error
		rows, qerr = r.pool.Query(ctx, q, args...)
		return qerr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]expense.CategoryTotal, 0, 8)

	for rows.Next() {
		var ct expense.CategoryTotal
		if err := rows.Scan(&ct.Category, &ct.Total); err != nil {
			return nil, err
		}
		out = append(out, ct)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

// Total sums the scoped set; an empty scope is 0, not an error.
func (r *ExpensesRepo) Total(ctx context.Context, ownerID string) (float64, error) {
	var total float64
	op := "expenses.total"

	q := `SELECT COALESCE(SUM(amount), 0) FROM expenses`

	var args []any

	if ownerID != "" {
		q += ` WHERE owner_id = $1`
		args = append(args, ownerID)
	}

	err := r.observe(op, func() error {
		return r.pool.QueryRow(ctx, q, args...).Scan(&total)
	})
	if err != nil {
		return 0, err
	}

	return total, nil
}

func collectExpenses(rows pgx.Rows) ([]expense.Expense, error) {
	out := make([]expense.Expense, 0, 16)

	for rows.Next() {
		var e expense.Expense
		if err := rows.Scan(&e.ID, &e.Seq, &e.OwnerID, &e.Category, &e.Amount, &e.Date, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}
