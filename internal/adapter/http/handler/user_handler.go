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

// UserHandler handles the mini-app user surface.
type UserHandler struct {
	accountSvc ports.AccountService
	paymentSvc ports.PaymentRequestService
	depositSvc ports.DepositService
	notifSvc   ports.NotificationService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(
	accountSvc ports.AccountService,
	paymentSvc ports.PaymentRequestService,
	depositSvc ports.DepositService,
	notifSvc ports.NotificationService,
) *UserHandler {
	return &UserHandler{
		accountSvc: accountSvc,
		paymentSvc: paymentSvc,
		depositSvc: depositSvc,
		notifSvc:   notifSvc,
	}
}

// account resolves the calling user's account from the chat id set by
// ChatAuth. First contact creates the account with zero balances.
func (h *UserHandler) account(c *gin.Context, username string) (*domain.Account, bool) {
	chatID := c.GetString(middleware.CtxChatID)
	account, err := h.accountSvc.GetOrCreate(c.Request.Context(), chatID, username)
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	return account, true
}

// Auth handles POST /api/v1/users/auth.
func (h *UserHandler) Auth(c *gin.Context) {
	var req dto.AuthUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	account, ok := h.account(c, req.Username)
	if !ok {
		return
	}
	response.OK(c, dto.FromAccount(account))
}

// Me handles GET /api/v1/users/me.
func (h *UserHandler) Me(c *gin.Context) {
	account, ok := h.account(c, "")
	if !ok {
		return
	}
	response.OK(c, dto.FromAccount(account))
}

// CreateRequest handles POST /api/v1/users/me/requests.
func (h *UserHandler) CreateRequest(c *gin.Context) {
	account, ok := h.account(c, "")
	if !ok {
		return
	}

	var req dto.CreateRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	urgency := domain.Urgency(req.Urgency)
	if urgency == "" {
		urgency = domain.UrgencyStandard
	}

	result, err := h.paymentSvc.Create(c.Request.Context(), ports.CreateRequestInput{
		AccountID: account.ID,
		AmountRub: req.AmountRub,
		Urgency:   urgency,
		Comment:   req.Comment,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.FromRequest(result))
}

// ListRequests handles GET /api/v1/users/me/requests.
func (h *UserHandler) ListRequests(c *gin.Context) {
	account, ok := h.account(c, "")
	if !ok {
		return
	}

	requests, err := h.paymentSvc.ListByAccount(c.Request.Context(), account.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.FromRequests(requests))
}

// GetRequest handles GET /api/v1/users/me/requests/:id.
func (h *UserHandler) GetRequest(c *gin.Context) {
	account, ok := h.account(c, "")
	if !ok {
		return
	}

	request, ok := h.ownRequest(c, account)
	if !ok {
		return
	}
	response.OK(c, dto.FromRequest(request))
}

// CancelRequest handles POST /api/v1/users/me/requests/:id/cancel.
func (h *UserHandler) CancelRequest(c *gin.Context) {
	account, ok := h.account(c, "")
	if !ok {
		return
	}

	request, ok := h.ownRequest(c, account)
	if !ok {
		return
	}

	result, err := h.paymentSvc.Cancel(c.Request.Context(), request.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.FromRequest(result))
}

// ownRequest loads the :id request and hides it unless the caller owns it.
func (h *UserHandler) ownRequest(c *gin.Context, account *domain.Account) (*domain.PaymentRequest, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid request id"))
		return nil, false
	}

	request, err := h.paymentSvc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	if request.AccountID != account.ID {
		response.Error(c, apperror.ErrNotFound("payment request"))
		return nil, false
	}
	return request, true
}

// CreateDeposit handles POST /api/v1/users/me/deposits.
func (h *UserHandler) CreateDeposit(c *gin.Context) {
	account, ok := h.account(c, "")
	if !ok {
		return
	}

	var req dto.CreateDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	deposit, err := h.depositSvc.CreateAutomated(c.Request.Context(), account.ID, req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.FromDeposit(deposit))
}

// ListDeposits handles GET /api/v1/users/me/deposits.
func (h *UserHandler) ListDeposits(c *gin.Context) {
	account, ok := h.account(c, "")
	if !ok {
		return
	}

	deposits, err := h.depositSvc.ListByAccount(c.Request.Context(), account.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.FromDeposits(deposits))
}

// ListNotifications handles GET /api/v1/users/me/notifications.
func (h *UserHandler) ListNotifications(c *gin.Context) {
	account, ok := h.account(c, "")
	if !ok {
		return
	}

	notifications, err := h.notifSvc.ListByAccount(c.Request.Context(), account.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.FromNotifications(notifications))
}

// UnreadCount handles GET /api/v1/users/me/notifications/unread-count.
func (h *UserHandler) UnreadCount(c *gin.Context) {
	account, ok := h.account(c, "")
	if !ok {
		return
	}

	count, err := h.notifSvc.CountUnread(c.Request.Context(), account.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.UnreadCountResponse{Count: count})
}

// MarkNotificationRead handles POST /api/v1/users/me/notifications/:id/read.
func (h *UserHandler) MarkNotificationRead(c *gin.Context) {
	if _, ok := h.account(c, ""); !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid notification id"))
		return
	}

	if err := h.notifSvc.MarkRead(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"marked": true})
}
