package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/ledgerhub/ledgerhub/internal/domain/expense"
	"github.com/ledgerhub/ledgerhub/internal/domain/user"
	"github.com/xuri/excelize/v2"
)

func openRows(t *testing.T, data []byte) [][]string {
	t.Helper()

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a readable workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Sheet1")
	if err != nil {
		t.Fatalf("failed to read rows: %v", err)
	}

	return rows
}

func TestTable_MissingFieldsStayEmpty(t *testing.T) {
	data, err := Table(
		[]string{"a", "b", "c"},
		[]map[string]any{
			{"a": "1", "c": "3"}, // no b
			{"b": "2"},
		},
	)
	if err != nil {
		t.Fatalf("Table failed: %v", err)
	}

	rows := openRows(t, data)
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header + 2", len(rows))
	}

	cell := func(row, col int) string {
		if col >= len(rows[row]) {
			return "" // trailing empty cells are trimmed by the reader
		}
		return rows[row][col]
	}

	if cell(1, 0) != "1" || cell(1, 1) != "" || cell(1, 2) != "3" {
		t.Fatalf("row 1 = %v, want [1, , 3]", rows[1])
	}
	if cell(2, 0) != "" || cell(2, 1) != "2" {
		t.Fatalf("row 2 = %v, want [ , 2]", rows[2])
	}
}

func TestTable_EmptyRowSet(t *testing.T) {
	data, err := Table([]string{"a", "b"}, nil)
	if err != nil {
		t.Fatalf("Table failed: %v", err)
	}

	rows := openRows(t, data)
	if len(rows) != 1 {
		t.Fatalf("empty set should still carry the header row, got %d rows", len(rows))
	}
	if rows[0][0] != "a" || rows[0][1] != "b" {
		t.Fatalf("header = %v, want [a b]", rows[0])
	}
}

func TestExpenses(t *testing.T) {
	items := []expense.Expense{
		{
			ID:       "e-1",
			OwnerID:  "u-1",
			Category: "Food",
			Amount:   12.5,
			Date:     time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			ID:       "e-2",
			OwnerID:  "u-2",
			Category: "Refund",
			Amount:   -3,
			Date:     time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	data, err := Expenses(items)
	if err != nil {
		t.Fatalf("Expenses failed: %v", err)
	}

	rows := openRows(t, data)
	wantHeader := []string{"id", "ownerId", "category", "amount", "date"}
	for i, col := range wantHeader {
		if rows[0][i] != col {
			t.Fatalf("header = %v, want %v", rows[0], wantHeader)
		}
	}

	// dates travel as plain strings, not excel date serials
	if rows[1][4] != "2024-01-10" || rows[2][4] != "2024-02-01" {
		t.Fatalf("date cells = %q/%q, want 2024-01-10/2024-02-01", rows[1][4], rows[2][4])
	}
	if rows[1][3] != "12.5" {
		t.Fatalf("amount cell = %q, want 12.5", rows[1][3])
	}
	if rows[2][3] != "-3" {
		t.Fatalf("negative amount cell = %q, want -3", rows[2][3])
	}
}

func TestUsers(t *testing.T) {
	items := []user.User{
		{
			ID:           "u-1",
			Username:     "sam",
			PasswordHash: "$2a$10$secret",
			Role:         "user",
			CreatedAt:    time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC),
		},
	}

	data, err := Users(items)
	if err != nil {
		t.Fatalf("Users failed: %v", err)
	}

	rows := openRows(t, data)
	wantHeader := []string{"id", "username", "role", "createdAt"}
	for i, col := range wantHeader {
		if rows[0][i] != col {
			t.Fatalf("header = %v, want %v", rows[0], wantHeader)
		}
	}
	if rows[1][1] != "sam" || rows[1][2] != "user" {
		t.Fatalf("row = %v, want sam/user", rows[1])
	}

	// hashes must never reach an exported artifact
	for _, cell := range rows[1] {
		if strings.Contains(cell, "secret") {
			t.Fatalf("workbook contains password material: %v", rows[1])
		}
	}
}

func TestFilename(t *testing.T) {
	if got := Filename(KindExpenses); got != "expenses.xlsx" {
		t.Fatalf("Filename(expenses) = %q", got)
	}
	if got := Filename(KindUsers); got != "users.xlsx" {
		t.Fatalf("Filename(users) = %q", got)
	}
}
