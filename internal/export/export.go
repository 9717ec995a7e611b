package export

import (
	"errors"
	"time"

	"github.com/ledgerhub/ledgerhub/internal/domain/expense"
	"github.com/ledgerhub/ledgerhub/internal/domain/user"
	"github.com/xuri/excelize/v2"
)

const (
	KindExpenses = "expenses"
	KindUsers    = "users"
)

var ErrUnsupportedKind = errors.New("unsupported export kind")

const sheet = "Sheet1"

// Filename names the artifact for a kind; "<kind>.xlsx" is the contract the
// download endpoint exposes.
func Filename(kind string) string { return kind + ".xlsx" }

// Table renders an ordered column set plus row maps into a workbook: one
// header row, then one row per record. Rows may omit fields; the matching
// cells stay empty. Dates must arrive as preformatted strings, never native
// date cells. No authorization happens here; callers own the scope.
func Table(columns []string, rows []map[string]any) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, col); err != nil {
			return nil, err
		}
	}

	for rowIdx, row := range rows {
		for colIdx, col := range columns {
			v, ok := row[col]
			if !ok {
				continue
			}

			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Expenses serializes a record set with dates as YYYY-MM-DD strings and
// amounts as numeric cells.
func Expenses(items []expense.Expense) ([]byte, error) {
	columns := []string{"id", "ownerId", "category", "amount", "date"}

	rows := make([]map[string]any, 0, len(items))
	for _, e := range items {
		rows = append(rows, map[string]any{
			"id":       e.ID,
			"ownerId":  e.OwnerID,
			"category": e.Category,
			"amount":   e.Amount,
			"date":     e.Date.Format(expense.DateLayout),
		})
	}

	return Table(columns, rows)
}

// Users serializes the roster; password hashes never leave storage.
func Users(items []user.User) ([]byte, error) {
	columns := []string{"id", "username", "role", "createdAt"}

	rows := make([]map[string]any, 0, len(items))
	for _, u := range items {
		rows = append(rows, map[string]any{
			"id":        u.ID,
			"username":  u.Username,
			"role":      u.Role,
			"createdAt": u.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	return Table(columns, rows)
}
