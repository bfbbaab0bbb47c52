// Package ledgerdelivery manages delivery layer of deposits, withdrawals and transaction history.
package ledgerdelivery

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-petr/bank-ledger/internal/domain"
	"github.com/go-petr/bank-ledger/internal/middleware"
	"github.com/go-petr/bank-ledger/pkg/errorspkg"
	"github.com/go-petr/bank-ledger/pkg/tokenpkg"
	"github.com/go-petr/bank-ledger/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// Service provides service layer interface needed by ledger delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package ledgerdelivery
type Service interface {
	Deposit(ctx context.Context, owner string, arg domain.LedgerEntryParams) (domain.LedgerEntryResult, error)
	Withdraw(ctx context.Context, owner string, arg domain.LedgerEntryParams) (domain.LedgerEntryResult, error)
	ListTransactions(ctx context.Context, owner string, accountID, limit int32) ([]domain.Transaction, error)
}

// Handler facilitates ledger delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns ledger handler.
func NewHandler(ls Service) Handler {
	return Handler{service: ls}
}

type accountURI struct {
	ID int32 `uri:"id" binding:"required,min=1"`
}

type entryRequest struct {
	Amount      string `json:"amount" binding:"required,amount"`
	Description string `json:"description" binding:"max=255"`
}

func badRequest(gctx *gin.Context, err error) {
	zerolog.Ctx(gctx.Request.Context()).Info().Err(err).Send()

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		gctx.JSON(http.StatusBadRequest, web.Response{Error: web.GetErrorMsg(ve)})
		return
	}

	gctx.JSON(http.StatusBadRequest, web.Error(err))
}

// statusOf maps ledger errors to http status codes.
func statusOf(err error) int {
	switch err {
	case domain.ErrInvalidAmount, domain.ErrNonPositiveAmount:
		return http.StatusBadRequest
	case domain.ErrAccountOwnerMismatch:
		return http.StatusForbidden
	case domain.ErrAccountNotFound:
		return http.StatusNotFound
	case domain.ErrAccountInactive, domain.ErrInsufficientBalance:
		return http.StatusUnprocessableEntity
	case domain.ErrLockTimeout:
		return http.StatusServiceUnavailable
	}

	return http.StatusInternalServerError
}

func respondError(gctx *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		gctx.JSON(status, web.Error(errorspkg.ErrInternal))
		return
	}

	gctx.JSON(status, web.Error(err))
}

type post func(ctx context.Context, owner string, arg domain.LedgerEntryParams) (domain.LedgerEntryResult, error)

func (h *Handler) handleEntry(gctx *gin.Context, apply post) {
	ctx := gctx.Request.Context()

	var uri accountURI
	if err := gctx.ShouldBindUri(&uri); err != nil {
		badRequest(gctx, err)
		return
	}

	var req entryRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		badRequest(gctx, err)
		return
	}

	authPayload := gctx.MustGet(middleware.AuthPayloadKey).(*tokenpkg.Payload)

	arg := domain.LedgerEntryParams{
		AccountID:   uri.ID,
		Amount:      req.Amount,
		Description: req.Description,
	}

	result, err := apply(ctx, authPayload.Username, arg)
	if err != nil {
		respondError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: result})
}

// Deposit handles http request to credit account.
func (h *Handler) Deposit(gctx *gin.Context) {
	h.handleEntry(gctx, h.service.Deposit)
}

// Withdraw handles http request to debit account.
func (h *Handler) Withdraw(gctx *gin.Context) {
	h.handleEntry(gctx, h.service.Withdraw)
}

type listRequest struct {
	Limit int32 `form:"limit" binding:"omitempty,min=1,max=100"`
}

type dataTransactions struct {
	Transactions []domain.Transaction `json:"transactions"`
}

// ListTransactions handles http request to list the newest transactions of account.
func (h *Handler) ListTransactions(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	var uri accountURI
	if err := gctx.ShouldBindUri(&uri); err != nil {
		badRequest(gctx, err)
		return
	}

	var req listRequest
	if err := gctx.ShouldBindQuery(&req); err != nil {
		badRequest(gctx, err)
		return
	}

	authPayload := gctx.MustGet(middleware.AuthPayloadKey).(*tokenpkg.Payload)

	transactions, err := h.service.ListTransactions(ctx, authPayload.Username, uri.ID, req.Limit)
	if err != nil {
		respondError(gctx, err)
		return
	}

	if transactions == nil {
		transactions = []domain.Transaction{}
	}

	gctx.JSON(http.StatusOK, web.Response{Data: dataTransactions{transactions}})
}
