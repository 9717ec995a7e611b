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
	"github.com/ledgerhub/ledgerhub/internal/http/middlewares"
	"github.com/ledgerhub/ledgerhub/internal/ledger"
	"github.com/ledgerhub/ledgerhub/internal/utils"
)

// LedgerService is the slice of the ledger service the expense endpoints
// use. Keep it an interface so tests can fake it.
type LedgerService interface {
	Create(ctx context.Context, caller authz.Identity, req expense.CreateExpenseRequest) (expense.Expense, error)
	Get(ctx context.Context, caller authz.Identity, id string) (expense.Expense, error)
	Update(ctx context.Context, caller authz.Identity, id string, req expense.UpdateExpenseRequest) (expense.Expense, error)
	Delete(ctx context.Context, caller authz.Identity, id string) error
	ListOwn(ctx context.Context, caller authz.Identity) ([]expense.Expense, error)
	Dashboard(ctx context.Context, caller authz.Identity) (ledger.Dashboard, error)
}

type ExpensesHandler struct {
	svc LedgerService
}

func NewExpensesHandler(svc LedgerService) *ExpensesHandler {
	return &ExpensesHandler{svc: svc}
}

func callerIdentity(ctx *gin.Context) (authz.Identity, bool) {
	identity, ok := middlewares.IdentityFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return authz.Identity{}, false
	}
	return identity, true
}

func expensePayload(e expense.Expense) gin.H {
	return gin.H{
		"id":        e.ID,
		"ownerId":   e.OwnerID,
		"category":  e.Category,
		"amount":    e.Amount,
		"date":      e.Date.Format(expense.DateLayout),
		"createdAt": e.CreatedAt,
		"updatedAt": e.UpdatedAt,
	}
}

func expensesPayload(list []expense.Expense) []gin.H {
	out := make([]gin.H, 0, len(list))
	for _, e := range list {
		out = append(out, expensePayload(e))
	}
	return out
}

func respondExpenseError(ctx *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, expense.ErrInvalidAmount):
		RespondError(ctx, http.StatusBadRequest, "invalid_amount", "Amount must be a decimal number.", nil)
	case errors.Is(err, expense.ErrNotFound), errors.Is(err, authz.ErrNotOwner):
		RespondNotFound(ctx, "Expense not found")
	case errors.Is(err, authz.ErrNotAuthenticated):
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
	case errors.Is(err, authz.ErrAdminOnly):
		RespondForbidden(ctx, "Admin role required")
	default:
		RespondInternal(ctx, fallback)
	}
}

// POST /expenses

func (h *ExpensesHandler) Create(ctx *gin.Context) {
	identity, ok := callerIdentity(ctx)
	if !ok {
		return
	}

	var req expense.CreateExpenseRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	created, err := h.svc.Create(cctx, identity, req)
	if err != nil {
		respondExpenseError(ctx, err, "Could not create expense")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"expense": expensePayload(created)})
}

// GET /expenses

func (h *ExpensesHandler) List(ctx *gin.Context) {
	identity, ok := callerIdentity(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	items, err := h.svc.ListOwn(cctx, identity)
	if err != nil {
		respondExpenseError(ctx, err, "Could not list expenses")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{
		"count": len(items),
		"items": expensesPayload(items),
	})
}

// GET /expenses/:id

func (h *ExpensesHandler) GetByID(ctx *gin.Context) {
	identity, ok := callerIdentity(ctx)
	if !ok {
		return
	}

	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "Expense id must be a valid UUID", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	e, err := h.svc.Get(cctx, identity, id)
	if err != nil {
		respondExpenseError(ctx, err, "Could not fetch expense")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"expense": expensePayload(e)})
}

// PUT /expenses/:id

func (h *ExpensesHandler) Update(ctx *gin.Context) {
	identity, ok := callerIdentity(ctx)
	if !ok {
		return
	}

	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "Expense id must be a valid UUID", nil)
		return
	}

	var req expense.UpdateExpenseRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	updated, err := h.svc.Update(cctx, identity, id, req)
	if err != nil {
		respondExpenseError(ctx, err, "Could not update expense")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"expense": expensePayload(updated)})
}

// DELETE /expenses/:id

func (h *ExpensesHandler) Delete(ctx *gin.Context) {
	identity, ok := callerIdentity(ctx)
	if !ok {
		return
	}

	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "Expense id must be a valid UUID", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	if err := h.svc.Delete(cctx, identity, id); err != nil {
		respondExpenseError(ctx, err, "Could not delete expense")
		return
	}

	ctx.Status(http.StatusNoContent)
}

// GET /dashboard

func (h *ExpensesHandler) Dashboard(ctx *gin.Context) {
	identity, ok := callerIdentity(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	d, err := h.svc.Dashboard(cctx, identity)
	if err != nil {
		respondExpenseError(ctx, err, "Could not build dashboard")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{
		"total":          d.Total,
		"categoryTotals": d.CategoryTotals,
		"count":          len(d.Records),
		"records":        expensesPayload(d.Records),
	})
}
