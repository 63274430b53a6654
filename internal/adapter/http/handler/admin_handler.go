package handler

import (
	"payout-gateway/internal/adapter/http/dto"
	"payout-gateway/internal/core/ports"
	"payout-gateway/pkg/apperror"
	"payout-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AdminHandler handles account administration and operator management.
type AdminHandler struct {
	accountSvc ports.AccountService
	authSvc    ports.AuthService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(accountSvc ports.AccountService, authSvc ports.AuthService) *AdminHandler {
	return &AdminHandler{accountSvc: accountSvc, authSvc: authSvc}
}

// ListAccounts handles GET /api/v1/admin/accounts.
func (h *AdminHandler) ListAccounts(c *gin.Context) {
	accounts, err := h.accountSvc.ListAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.AccountResponse, 0, len(accounts))
	for i := range accounts {
		out = append(out, dto.FromAccount(&accounts[i]))
	}
	response.OK(c, out)
}

// GetAccount handles GET /api/v1/admin/accounts/:id.
func (h *AdminHandler) GetAccount(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid account id"))
		return
	}

	account, err := h.accountSvc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.FromAccount(account))
}

// SetBalances handles PUT /api/v1/admin/accounts/:id/balances.
func (h *AdminHandler) SetBalances(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid account id"))
		return
	}

	var req dto.SetBalancesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	account, err := h.accountSvc.SetBalances(c.Request.Context(), id, req.Available, req.Frozen)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.FromAccount(account))
}

// Credit handles POST /api/v1/admin/accounts/:id/credit (manual deposit).
func (h *AdminHandler) Credit(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid account id"))
		return
	}

	var req dto.CreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	account, err := h.accountSvc.CreditManual(c.Request.Context(), id, req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.FromAccount(account))
}

// CreateOperator handles POST /api/v1/admin/operators.
func (h *AdminHandler) CreateOperator(c *gin.Context) {
	var req dto.CreateOperatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	operator, err := h.authSvc.CreateOperator(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.FromOperator(operator))
}

// ListOperators handles GET /api/v1/admin/operators.
func (h *AdminHandler) ListOperators(c *gin.Context) {
	operators, err := h.authSvc.ListOperators(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.FromOperators(operators))
}

// SetOperatorActive handles PUT /api/v1/admin/operators/:id/active.
func (h *AdminHandler) SetOperatorActive(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid operator id"))
		return
	}

	var req dto.SetOperatorActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	if err := h.authSvc.SetOperatorActive(c.Request.Context(), id, *req.Active); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"active": *req.Active})
}

// DeleteOperator handles DELETE /api/v1/admin/operators/:id.
func (h *AdminHandler) DeleteOperator(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid operator id"))
		return
	}

	if err := h.authSvc.DeleteOperator(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"deleted": true})
}
