package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ledgerhub/ledgerhub/internal/authz"
	"github.com/ledgerhub/ledgerhub/internal/config"
	"github.com/ledgerhub/ledgerhub/internal/domain/expense"
	"github.com/ledgerhub/ledgerhub/internal/domain/user"
	"github.com/ledgerhub/ledgerhub/internal/export"
	"github.com/ledgerhub/ledgerhub/internal/ledger"
	"github.com/ledgerhub/ledgerhub/internal/observability"
	"github.com/ledgerhub/ledgerhub/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AdminService is the admin-facing slice of the ledger service.
type AdminService interface {
	ListAllPage(ctx context.Context, caller authz.Identity, limit int, afterSeq int64) (items []expense.Expense, nextCursor *string, hasMore bool, err error)
	ListUsers(ctx context.Context, caller authz.Identity) ([]user.User, error)
	AdminSummary(ctx context.Context, caller authz.Identity) (ledger.Summary, error)
	Export(ctx context.Context, caller authz.Identity, kind string) (data []byte, filename string, err error)
}

type AdminHandler struct {
	svc  AdminService
	prom *observability.Prom
}

func NewAdminHandler(svc AdminService, prom *observability.Prom) *AdminHandler {
	return &AdminHandler{svc: svc, prom: prom}
}

// GET /admin/expenses?limit=50&cursor=...

func (h *AdminHandler) ListExpenses(ctx *gin.Context) {
	identity, ok := callerIdentity(ctx)
	if !ok {
		return
	}

	limit := parseIntDefault(ctx.Query("limit"), 20)
	if limit < 1 || limit > 100 {
		RespondError(ctx, http.StatusBadRequest, "invalid_query", "limit must be between 1 and 100", nil)
		return
	}

	// afterSeq 0 asks the repo for the first page
	var afterSeq int64
	if cursor := ctx.Query("cursor"); cursor != "" {
		cur, err := utils.DecodeExpenseCursor(cursor)
		if err != nil {
			RespondError(ctx, http.StatusBadRequest, "invalid_query", "cursor is invalid", nil)
			return
		}
		afterSeq = cur.Seq
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	items, next, hasMore, err := h.svc.ListAllPage(cctx, identity, limit, afterSeq)
	if err != nil {
		respondExpenseError(ctx, err, "Could not list expenses")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{
		"limit":      limit,
		"count":      len(items),
		"items":      expensesPayload(items),
		"hasMore":    hasMore,
		"nextCursor": next,
	})
}

// GET /admin/users

func (h *AdminHandler) ListUsers(ctx *gin.Context) {
	identity, ok := callerIdentity(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	users, err := h.svc.ListUsers(cctx, identity)
	if err != nil {
		respondExpenseError(ctx, err, "Could not list users")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{
		"count": len(users),
		"items": usersPayload(users),
	})
}

// GET /admin/summary

func (h *AdminHandler) Summary(ctx *gin.Context) {
	identity, ok := callerIdentity(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	s, err := h.svc.AdminSummary(cctx, identity)
	if err != nil {
		respondExpenseError(ctx, err, "Could not build summary")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{
		"total":          s.Total,
		"categoryTotals": s.CategoryTotals,
	})
}

// GET /admin/export/:kind

func (h *AdminHandler) Export(ctx *gin.Context) {
	identity, ok := callerIdentity(ctx)
	if !ok {
		return
	}

	kind := ctx.Param("kind")

	cctx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	var (
		data     []byte
		filename string
	)

	build := func() (int, error) {
		var err error
		data, filename, err = h.svc.Export(cctx, identity, kind)
		return len(data), err
	}

	var err error
	if h.prom != nil {
		err = h.prom.ObserveExport(kind, build)
	} else {
		_, err = build()
	}

	if err != nil {
		if errors.Is(err, export.ErrUnsupportedKind) {
			RespondError(ctx, http.StatusBadRequest, "unsupported_export_kind", "Export kind must be one of expenses, users", nil)
			return
		}
		respondExpenseError(ctx, err, "Could not build export")
		return
	}

	ctx.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	ctx.Data(http.StatusOK, xlsxContentType, data)
}

func usersPayload(users []user.User) []gin.H {
	out := make([]gin.H, 0, len(users))
	for _, u := range users {
		out = append(out, gin.H{
			"id":        u.ID,
			"username":  u.Username,
			"role":      u.Role,
			"createdAt": u.CreatedAt,
		})
	}
	return out
}
