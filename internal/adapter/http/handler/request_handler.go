package handler

import (
	"payout-gateway/internal/adapter/http/dto"
	"payout-gateway/internal/core/domain"
	"payout-gateway/internal/core/ports"
	"payout-gateway/pkg/apperror"
	"payout-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestHandler handles the staff payment-request surface.
type RequestHandler struct {
	paymentSvc ports.PaymentRequestService
}

// NewRequestHandler creates a new RequestHandler.
func NewRequestHandler(paymentSvc ports.PaymentRequestService) *RequestHandler {
	return &RequestHandler{paymentSvc: paymentSvc}
}

// List handles GET /api/v1/staff/requests with optional status, urgency and
// account_id query filters.
func (h *RequestHandler) List(c *gin.Context) {
	var filter ports.RequestFilter

	if s := c.Query("status"); s != "" {
		status := domain.RequestStatus(s)
		filter.Status = &status
	}
	if u := c.Query("urgency"); u != "" {
		urgency := domain.Urgency(u)
		filter.Urgency = &urgency
	}
	if a := c.Query("account_id"); a != "" {
		accountID, err := uuid.Parse(a)
		if err != nil {
			response.Error(c, apperror.Validation("invalid account_id"))
			return
		}
		filter.AccountID = &accountID
	}

	requests, err := h.paymentSvc.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.FromRequests(requests))
}

// Get handles GET /api/v1/staff/requests/:id.
func (h *RequestHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid request id"))
		return
	}

	request, err := h.paymentSvc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.FromRequest(request))
}

// Process handles POST /api/v1/staff/requests/:id/process: an optional
// amount edit at the frozen rate, then a status decision with optional
// receipt.
func (h *RequestHandler) Process(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid request id"))
		return
	}

	var req dto.ProcessRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.paymentSvc.Process(c.Request.Context(), ports.ProcessRequestInput{
		RequestID:    id,
		Status:       domain.RequestStatus(req.Status),
		NewAmountRub: req.NewAmountRub,
		Receipt:      req.Receipt.ToReceipt(),
		AdminComment: req.AdminComment,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.FromRequest(result))
}

// Approve handles POST /api/v1/admin/requests/:id/approve.
func (h *RequestHandler) Approve(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid request id"))
		return
	}

	result, err := h.paymentSvc.Approve(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.FromRequest(result))
}

// Cancel handles POST /api/v1/admin/requests/:id/cancel.
func (h *RequestHandler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid request id"))
		return
	}

	result, err := h.paymentSvc.Cancel(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.FromRequest(result))
}
