// Package accountdelivery manages delivery layer of accounts.
package accountdelivery

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/go-petr/bank-ledger/internal/domain"
	"github.com/go-petr/bank-ledger/internal/middleware"
	"github.com/go-petr/bank-ledger/pkg/errorspkg"
	"github.com/go-petr/bank-ledger/pkg/tokenpkg"
	"github.com/go-petr/bank-ledger/pkg/web"
)

// Service provides service layer interface needed by account delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package accountdelivery
type Service interface {
	Create(ctx context.Context, owner, currency string) (domain.Account, error)
	Get(ctx context.Context, id int32) (domain.Account, error)
	List(ctx context.Context, owner string, pageSize, pageID int32) ([]domain.Account, error)
	UpdateStatus(ctx context.Context, owner string, id int32, status domain.AccountStatus) (domain.Account, error)
}

// Handler facilitates account delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns account handler.
func NewHandler(as Service) Handler {
	return Handler{service: as}
}

type data struct {
	Account domain.Account `json:"account"`
}

type response struct {
	Data data `json:"data,omitempty"`
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

type createRequest struct {
	Currency string `json:"currency" binding:"required,currency"`
}

// Create handles http request to create account.
func (h *Handler) Create(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	var req createRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		badRequest(gctx, err)
		return
	}

	authPayload := gctx.MustGet(middleware.AuthPayloadKey).(*tokenpkg.Payload)

	createdAccount, err := h.service.Create(ctx, authPayload.Username, req.Currency)
	if err != nil {
		switch err {
		case domain.ErrInvalidCurrency, domain.ErrOwnerNotFound:
			gctx.JSON(http.StatusBadRequest, web.Error(err))
			return
		case domain.ErrAccountNumberExists:
			gctx.JSON(http.StatusConflict, web.Error(err))
			return
		}

		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusCreated, response{Data: data{createdAccount}})
}

type getRequest struct {
	ID int32 `uri:"id" binding:"required,min=1"`
}

// Get handles http request to get account.
func (h *Handler) Get(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req getRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		badRequest(gctx, err)
		return
	}

	acc, err := h.service.Get(ctx, req.ID)
	if err != nil {
		if err == domain.ErrAccountNotFound {
			gctx.JSON(http.StatusNotFound, web.Error(err))
			return
		}

		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	authPayload := gctx.MustGet(middleware.AuthPayloadKey).(*tokenpkg.Payload)
	if acc.Owner != authPayload.Username {
		l.Warn().Str("username", authPayload.Username).Int32("account_id", acc.ID).Msg("access to foreign account")
		gctx.JSON(http.StatusForbidden, web.Error(domain.ErrAccountOwnerMismatch))

		return
	}

	gctx.JSON(http.StatusOK, response{Data: data{acc}})
}

// Pagination of account listings.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type listRequest struct {
	PageID   int32 `form:"page_id" binding:"omitempty,min=1"`
	PageSize int32 `form:"page_size" binding:"omitempty,min=1,max=100"`
}

type dataAccounts struct {
	Accounts []domain.Account `json:"accounts"`
}

type responseAccounts struct {
	Data dataAccounts `json:"data,omitempty"`
}

// List handles http request to list accounts of the authenticated user.
func (h *Handler) List(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	var req listRequest
	if err := gctx.ShouldBindQuery(&req); err != nil {
		badRequest(gctx, err)
		return
	}

	if req.PageID == 0 {
		req.PageID = 1
	}

	if req.PageSize == 0 {
		req.PageSize = DefaultPageSize
	}

	authPayload := gctx.MustGet(middleware.AuthPayloadKey).(*tokenpkg.Payload)

	accounts, err := h.service.List(ctx, authPayload.Username, req.PageSize, req.PageID)
	if err != nil {
		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))
		return
	}

	if accounts == nil {
		accounts = []domain.Account{}
	}

	gctx.JSON(http.StatusOK, responseAccounts{Data: dataAccounts{accounts}})
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required,account_status"`
}

// UpdateStatus handles http request to freeze, reactivate or close account.
func (h *Handler) UpdateStatus(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	var uri getRequest
	if err := gctx.ShouldBindUri(&uri); err != nil {
		badRequest(gctx, err)
		return
	}

	var req updateStatusRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		badRequest(gctx, err)
		return
	}

	authPayload := gctx.MustGet(middleware.AuthPayloadKey).(*tokenpkg.Payload)

	acc, err := h.service.UpdateStatus(ctx, authPayload.Username, uri.ID, domain.AccountStatus(req.Status))
	if err != nil {
		switch err {
		case domain.ErrInvalidStatus:
			gctx.JSON(http.StatusBadRequest, web.Error(err))
			return
		case domain.ErrAccountNotFound:
			gctx.JSON(http.StatusNotFound, web.Error(err))
			return
		case domain.ErrAccountOwnerMismatch:
			gctx.JSON(http.StatusForbidden, web.Error(err))
			return
		}

		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusOK, response{Data: data{acc}})
}
