package ledger

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ledgerhub/ledgerhub/internal/authz"
	"github.com/ledgerhub/ledgerhub/internal/domain/expense"
	"github.com/ledgerhub/ledgerhub/internal/domain/user"
	"github.com/ledgerhub/ledgerhub/internal/export"
	"github.com/ledgerhub/ledgerhub/internal/repo/memory"
	"github.com/xuri/excelize/v2"
)

var (
	anonymous = authz.Identity{}
	sam       = authz.Identity{UserID: "u-sam", Username: "sam", Role: user.RoleUser}
	intruder  = authz.Identity{UserID: "u-intruder", Username: "intruder", Role: user.RoleUser}
	boss      = authz.Identity{UserID: "u-boss", Username: "boss", Role: user.RoleAdmin}
)

type staticUsers struct {
	users []user.User
}

func (s staticUsers) List(context.Context) ([]user.User, error) {
	return s.users, nil
}

var fixedNow = time.Date(2024, 5, 20, 14, 30, 0, 0, time.UTC)

func newTestService(users ...user.User) (*Service, *memory.ExpensesRepo) {
	repo := memory.NewExpensesRepo()
	svc := NewService(repo, staticUsers{users: users})
	svc.now = func() time.Time { return fixedNow }
	return svc, repo
}

func mustCreate(t *testing.T, svc *Service, caller authz.Identity, category, amount, date string) expense.Expense {
	t.Helper()
	e, err := svc.Create(context.Background(), caller, expense.CreateExpenseRequest{
		Category: category,
		Amount:   amount,
		Date:     date,
	})
	if err != nil {
		t.Fatalf("create(%s/%s/%s) failed: %v", category, amount, date, err)
	}
	return e
}

func TestServiceCreate(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	e := mustCreate(t, svc, sam, "Food", "12.50", "2024-01-10")
	if e.OwnerID != sam.UserID {
		t.Fatalf("owner = %q, want caller %q", e.OwnerID, sam.UserID)
	}
	if e.Amount != 12.5 || e.Category != "Food" {
		t.Fatalf("got %v/%q, want 12.5/Food", e.Amount, e.Category)
	}

	// missing category and date pick up the documented fallbacks
	e2 := mustCreate(t, svc, sam, "", "5", "")
	if e2.Category != expense.DefaultCategory {
		t.Fatalf("category = %q, want %q", e2.Category, expense.DefaultCategory)
	}
	if want := time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC); !e2.Date.Equal(want) {
		t.Fatalf("date = %v, want current calendar date %v", e2.Date, want)
	}

	// anonymous callers never reach storage
	if _, err := svc.Create(ctx, anonymous, expense.CreateExpenseRequest{Amount: "1"}); !errors.Is(err, authz.ErrNotAuthenticated) {
		t.Fatalf("anonymous create = %v, want ErrNotAuthenticated", err)
	}
}

func TestServiceCreate_InvalidAmountWritesNothing(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, sam, expense.CreateExpenseRequest{Category: "Food", Amount: "ten"})
	if !errors.Is(err, expense.ErrInvalidAmount) {
		t.Fatalf("create(bad amount) = %v, want ErrInvalidAmount", err)
	}

	all, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("failed create left %d rows behind", len(all))
	}
}

func TestServiceGet_OwnershipMasked(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	e := mustCreate(t, svc, sam, "Food", "10", "2024-01-10")

	if _, err := svc.Get(ctx, sam, e.ID); err != nil {
		t.Fatalf("owner get failed: %v", err)
	}

	// a non-owner cannot tell a foreign record from a missing one
	if _, err := svc.Get(ctx, intruder, e.ID); !errors.Is(err, expense.ErrNotFound) {
		t.Fatalf("foreign get = %v, want ErrNotFound", err)
	}
	if _, err := svc.Get(ctx, intruder, "no-such-id"); !errors.Is(err, expense.ErrNotFound) {
		t.Fatalf("missing get = %v, want ErrNotFound", err)
	}

	// admins read anything
	if _, err := svc.Get(ctx, boss, e.ID); err != nil {
		t.Fatalf("admin get failed: %v", err)
	}

	if _, err := svc.Get(ctx, anonymous, e.ID); !errors.Is(err, authz.ErrNotAuthenticated) {
		t.Fatalf("anonymous get = %v, want ErrNotAuthenticated", err)
	}
}

func TestServiceUpdate(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	e := mustCreate(t, svc, sam, "Food", "10", "2024-01-10")
	amount := "99.5"

	updated, err := svc.Update(ctx, sam, e.ID, expense.UpdateExpenseRequest{Amount: &amount})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Amount != 99.5 || updated.Category != "Food" {
		t.Fatalf("update = %v/%q, want 99.5/Food retained", updated.Amount, updated.Category)
	}
	if !updated.Date.Equal(e.Date) {
		t.Fatalf("unsupplied date changed: %v", updated.Date)
	}

	// a bad amount leaves the stored record untouched
	bad := "lots"
	if _, err := svc.Update(ctx, sam, e.ID, expense.UpdateExpenseRequest{Amount: &bad}); !errors.Is(err, expense.ErrInvalidAmount) {
		t.Fatalf("update(bad amount) = %v, want ErrInvalidAmount", err)
	}
	current, err := svc.Get(ctx, sam, e.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if current.Amount != 99.5 {
		t.Fatalf("rejected update mutated the record: %v", current.Amount)
	}

	// malformed date keeps the stored date
	badDate := "soon"
	kept, err := svc.Update(ctx, sam, e.ID, expense.UpdateExpenseRequest{Date: &badDate})
	if err != nil {
		t.Fatalf("update(bad date) failed: %v", err)
	}
	if !kept.Date.Equal(e.Date) {
		t.Fatalf("update(bad date) date = %v, want stored %v", kept.Date, e.Date)
	}

	// non-owners, admin included, get NotFound
	one := "1"
	if _, err := svc.Update(ctx, intruder, e.ID, expense.UpdateExpenseRequest{Amount: &one}); !errors.Is(err, expense.ErrNotFound) {
		t.Fatalf("foreign update = %v, want ErrNotFound", err)
	}
	if _, err := svc.Update(ctx, boss, e.ID, expense.UpdateExpenseRequest{Amount: &one}); !errors.Is(err, expense.ErrNotFound) {
		t.Fatalf("admin update of foreign record = %v, want ErrNotFound", err)
	}
}

func TestServiceDelete(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	e := mustCreate(t, svc, sam, "Food", "10", "2024-01-10")

	if err := svc.Delete(ctx, intruder, e.ID); !errors.Is(err, expense.ErrNotFound) {
		t.Fatalf("foreign delete = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(ctx, boss, e.ID); !errors.Is(err, expense.ErrNotFound) {
		t.Fatalf("admin delete of foreign record = %v, want ErrNotFound", err)
	}

	if err := svc.Delete(ctx, sam, e.ID); err != nil {
		t.Fatalf("owner delete failed: %v", err)
	}

	// deleting again reports the record gone rather than failing oddly
	if err := svc.Delete(ctx, sam, e.ID); !errors.Is(err, expense.ErrNotFound) {
		t.Fatalf("second delete = %v, want ErrNotFound", err)
	}
}

func TestServiceListOwn_Ordering(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	a := mustCreate(t, svc, sam, "A", "1", "2024-01-10")
	b := mustCreate(t, svc, sam, "B", "1", "2024-03-05")
	c := mustCreate(t, svc, sam, "C", "1", "2024-01-10")
	d := mustCreate(t, svc, sam, "D", "1", "2024-02-01")
	mustCreate(t, svc, intruder, "X", "1", "2024-12-31")

	items, err := svc.ListOwn(ctx, sam)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	// newest date first; a and c share a date and keep insertion order
	want := []string{b.ID, d.ID, a.ID, c.ID}
	if len(items) != len(want) {
		t.Fatalf("list returned %d items, want %d", len(items), len(want))
	}
	for i, id := range want {
		if items[i].ID != id {
			t.Fatalf("order[%d] = %s, want %s", i, items[i].ID, id)
		}
	}
}

func TestServiceListAll(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	first := mustCreate(t, svc, sam, "A", "1", "2024-03-05")
	second := mustCreate(t, svc, intruder, "B", "1", "2024-01-10")

	if _, err := svc.ListAll(ctx, sam); !errors.Is(err, authz.ErrAdminOnly) {
		t.Fatalf("non-admin list all = %v, want ErrAdminOnly", err)
	}

	items, err := svc.ListAll(ctx, boss)
	if err != nil {
		t.Fatalf("admin list all failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("list all returned %d items, want 2", len(items))
	}
	// deterministic insertion order regardless of dates
	if items[0].ID != first.ID || items[1].ID != second.ID {
		t.Fatalf("list all order = [%s %s], want insertion order", items[0].ID, items[1].ID)
	}
}

func TestServiceListAllPage(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	ids := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		e := mustCreate(t, svc, sam, "C", "1", "2024-01-10")
		ids = append(ids, e.ID)
	}

	if _, _, _, err := svc.ListAllPage(ctx, sam, 2, 0); !errors.Is(err, authz.ErrAdminOnly) {
		t.Fatalf("non-admin paging = %v, want ErrAdminOnly", err)
	}

	page1, cur1, more1, err := svc.ListAllPage(ctx, boss, 2, 0)
	if err != nil {
		t.Fatalf("page1 failed: %v", err)
	}
	if len(page1) != 2 || !more1 || cur1 == nil {
		t.Fatalf("page1 = %d items more=%v cursor=%v", len(page1), more1, cur1)
	}
	// newest insertions surface first
	if page1[0].ID != ids[4] || page1[1].ID != ids[3] {
		t.Fatalf("page1 order wrong")
	}

	page2, _, more2, err := svc.ListAllPage(ctx, boss, 2, page1[1].Seq)
	if err != nil {
		t.Fatalf("page2 failed: %v", err)
	}
	if len(page2) != 2 || !more2 {
		t.Fatalf("page2 = %d items more=%v", len(page2), more2)
	}

	page3, cur3, more3, err := svc.ListAllPage(ctx, boss, 2, page2[1].Seq)
	if err != nil {
		t.Fatalf("page3 failed: %v", err)
	}
	if len(page3) != 1 || more3 || cur3 != nil {
		t.Fatalf("page3 = %d items more=%v cursor=%v, want the final item", len(page3), more3, cur3)
	}
	if page3[0].ID != ids[0] {
		t.Fatalf("page3 item = %s, want %s", page3[0].ID, ids[0])
	}
}

func TestServiceAggregates(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	mustCreate(t, svc, sam, "Food", "10", "2024-01-10")
	mustCreate(t, svc, sam, "Food", "5", "2024-01-11")
	mustCreate(t, svc, sam, "Travel", "20", "2024-01-12")
	mustCreate(t, svc, sam, "Coffee", "20", "2024-01-13")
	mustCreate(t, svc, intruder, "Food", "1000", "2024-01-10")

	totals, err := svc.CategoryTotals(ctx, sam, ScopeOwn)
	if err != nil {
		t.Fatalf("category totals failed: %v", err)
	}

	// largest first; the 20/20 tie is broken alphabetically
	want := []expense.CategoryTotal{
		{Category: "Coffee", Total: 20},
		{Category: "Travel", Total: 20},
		{Category: "Food", Total: 15},
	}
	if len(totals) != len(want) {
		t.Fatalf("totals = %v, want %v", totals, want)
	}
	for i := range want {
		if totals[i] != want[i] {
			t.Fatalf("totals[%d] = %v, want %v", i, totals[i], want[i])
		}
	}

	total, err := svc.Total(ctx, sam, ScopeOwn)
	if err != nil {
		t.Fatalf("total failed: %v", err)
	}
	if total != 55 {
		t.Fatalf("total = %v, want 55", total)
	}

	// the category rows always add up to the grand total
	var sum float64
	for _, ct := range totals {
		sum += ct.Total
	}
	if sum != total {
		t.Fatalf("category sums %v != total %v", sum, total)
	}

	// all-records scope is admin territory
	if _, err := svc.Total(ctx, sam, ScopeAll); !errors.Is(err, authz.ErrAdminOnly) {
		t.Fatalf("non-admin ScopeAll total = %v, want ErrAdminOnly", err)
	}
	allTotal, err := svc.Total(ctx, boss, ScopeAll)
	if err != nil {
		t.Fatalf("admin total failed: %v", err)
	}
	if allTotal != 1055 {
		t.Fatalf("admin total = %v, want 1055", allTotal)
	}
}

func TestServiceAggregates_Empty(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	totals, err := svc.CategoryTotals(ctx, sam, ScopeOwn)
	if err != nil {
		t.Fatalf("category totals failed: %v", err)
	}
	if len(totals) != 0 {
		t.Fatalf("empty ledger totals = %v, want none", totals)
	}

	total, err := svc.Total(ctx, sam, ScopeOwn)
	if err != nil {
		t.Fatalf("total failed: %v", err)
	}
	if total != 0 {
		t.Fatalf("empty ledger total = %v, want 0", total)
	}
}

func TestServiceDashboard(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	mustCreate(t, svc, sam, "Food", "10", "2024-01-10")
	mustCreate(t, svc, sam, "Travel", "20", "2024-02-01")

	d, err := svc.Dashboard(ctx, sam)
	if err != nil {
		t.Fatalf("dashboard failed: %v", err)
	}
	if d.Total != 30 || len(d.Records) != 2 || len(d.CategoryTotals) != 2 {
		t.Fatalf("dashboard = %+v, want 2 records totalling 30", d)
	}
	if d.Records[0].Category != "Travel" {
		t.Fatalf("dashboard records must come newest first, got %s", d.Records[0].Category)
	}

	if _, err := svc.Dashboard(ctx, anonymous); !errors.Is(err, authz.ErrNotAuthenticated) {
		t.Fatalf("anonymous dashboard = %v, want ErrNotAuthenticated", err)
	}
}

func TestServiceAdminSummary(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	mustCreate(t, svc, sam, "Food", "10", "2024-01-10")
	mustCreate(t, svc, intruder, "Food", "5", "2024-01-11")
	mustCreate(t, svc, intruder, "Travel", "20", "2024-01-12")

	if _, err := svc.AdminSummary(ctx, sam); !errors.Is(err, authz.ErrAdminOnly) {
		t.Fatalf("non-admin summary = %v, want ErrAdminOnly", err)
	}

	s, err := svc.AdminSummary(ctx, boss)
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if s.Total != 35 {
		t.Fatalf("summary total = %v, want 35", s.Total)
	}
	want := []expense.CategoryTotal{
		{Category: "Travel", Total: 20},
		{Category: "Food", Total: 15},
	}
	for i := range want {
		if s.CategoryTotals[i] != want[i] {
			t.Fatalf("summary totals[%d] = %v, want %v", i, s.CategoryTotals[i], want[i])
		}
	}
}

func TestServiceListUsers(t *testing.T) {
	roster := []user.User{
		{ID: "u-sam", Username: "sam", Role: user.RoleUser},
		{ID: "u-boss", Username: "boss", Role: user.RoleAdmin},
	}
	svc, _ := newTestService(roster...)
	ctx := context.Background()

	if _, err := svc.ListUsers(ctx, sam); !errors.Is(err, authz.ErrAdminOnly) {
		t.Fatalf("non-admin list users = %v, want ErrAdminOnly", err)
	}

	users, err := svc.ListUsers(ctx, boss)
	if err != nil {
		t.Fatalf("list users failed: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("list users = %d, want 2", len(users))
	}
}

func TestServiceExport(t *testing.T) {
	roster := []user.User{
		{ID: "u-sam", Username: "sam", Role: user.RoleUser, CreatedAt: fixedNow},
	}
	svc, _ := newTestService(roster...)
	ctx := context.Background()

	created := mustCreate(t, svc, sam, "Food", "12.5", "2024-01-10")

	if _, _, err := svc.Export(ctx, sam, export.KindExpenses); !errors.Is(err, authz.ErrAdminOnly) {
		t.Fatalf("non-admin export = %v, want ErrAdminOnly", err)
	}

	data, filename, err := svc.Export(ctx, boss, export.KindExpenses)
	if err != nil {
		t.Fatalf("export expenses failed: %v", err)
	}
	if filename != "expenses.xlsx" {
		t.Fatalf("filename = %q, want expenses.xlsx", filename)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("export is not a readable workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Sheet1")
	if err != nil {
		t.Fatalf("failed to read workbook: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("workbook has %d rows, want header + 1 record", len(rows))
	}
	if rows[1][0] != created.ID || rows[1][4] != "2024-01-10" {
		t.Fatalf("workbook row = %v, want id %s and date 2024-01-10", rows[1], created.ID)
	}

	// users kind
	data2, filename2, err := svc.Export(ctx, boss, export.KindUsers)
	if err != nil {
		t.Fatalf("export users failed: %v", err)
	}
	if filename2 != "users.xlsx" {
		t.Fatalf("filename = %q, want users.xlsx", filename2)
	}
	if len(data2) == 0 {
		t.Fatalf("users export is empty")
	}

	// unknown kinds fail fast
	if _, _, err := svc.Export(ctx, boss, "csv"); !errors.Is(err, export.ErrUnsupportedKind) {
		t.Fatalf("export(csv) = %v, want ErrUnsupportedKind", err)
	}
}
