package handler

import (
	"payout-gateway/internal/adapter/http/dto"
	"payout-gateway/internal/adapter/http/middleware"
	"payout-gateway/internal/core/domain"
	"payout-gateway/internal/core/ports"
	"payout-gateway/pkg/apperror"
	"payout-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DepositHandler handles the staff deposit surface and the observer webhook.
type DepositHandler struct {
	depositSvc ports.DepositService
}

// NewDepositHandler creates a new DepositHandler.
func NewDepositHandler(depositSvc ports.DepositService) *DepositHandler {
	return &DepositHandler{depositSvc: depositSvc}
}

// ListPending handles GET /api/v1/staff/deposits/pending.
func (h *DepositHandler) ListPending(c *gin.Context) {
	deposits, err := h.depositSvc.ListPending(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.FromDeposits(deposits))
}

// Confirm handles POST /api/v1/staff/deposits/:id/confirm. The confirming
// principal is recorded on the deposit.
func (h *DepositHandler) Confirm(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid deposit id"))
		return
	}

	deposit, err := h.depositSvc.Confirm(c.Request.Context(), id, confirmedBy(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.FromDeposit(deposit))
}

// Reject handles POST /api/v1/staff/deposits/:id/reject.
func (h *DepositHandler) Reject(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid deposit id"))
		return
	}

	deposit, err := h.depositSvc.Reject(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.FromDeposit(deposit))
}

// ObserverConfirm handles POST /api/v1/observer/deposits: the blockchain
// observer reports an incoming transfer, which is matched to a pending
// deposit by exact payable amount and credited atomically.
func (h *DepositHandler) ObserverConfirm(c *gin.Context) {
	var req dto.ObserverDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	deposit, err := h.depositSvc.ConfirmObserved(c.Request.Context(), req.PayableAmount, req.ActualAmount, req.TxHash)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.FromDeposit(deposit))
}

// confirmedBy labels the confirming staff principal for the audit trail.
func confirmedBy(c *gin.Context) string {
	role, _ := c.Get(middleware.CtxRole)
	if role == domain.RoleAdmin {
		return "admin"
	}
	if sub, ok := c.Get(middleware.CtxSubjectID); ok {
		return "operator:" + sub.(uuid.UUID).String()
	}
	return "unknown"
}
