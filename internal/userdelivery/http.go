// Package userdelivery registers and logs in account owners over http.
package userdelivery

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-petr/bank-ledger/internal/domain"
	"github.com/go-petr/bank-ledger/pkg/errorspkg"
	"github.com/go-petr/bank-ledger/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// Service provides service layer interface needed by user delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package userdelivery
type Service interface {
	Register(ctx context.Context, username, password, email string) (domain.OwnerProfile, error)
	Authenticate(ctx context.Context, username, password string) (domain.OwnerProfile, error)
}

// SessionMaker facilitates session creation.
type SessionMaker interface {
	Create(ctx context.Context, arg domain.CreateSessionParams) (string, time.Time, domain.Session, error)
}

// Handler facilitates user delivery layer logic.
type Handler struct {
	service      Service
	sessionMaker SessionMaker
}

// NewHandler returns user handler.
func NewHandler(us Service, sm SessionMaker) *Handler {
	return &Handler{
		service:      us,
		sessionMaker: sm,
	}
}

type ownerData struct {
	Owner domain.OwnerProfile `json:"owner"`
}

type createRequest struct {
	Username string `json:"username" binding:"required,alphanum"`
	Password string `json:"password" binding:"required,min=6"`
	Email    string `json:"email" binding:"required,email"`
}

// Create handles http request to register an owner and opens a session for it.
func (h *Handler) Create(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req createRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()

		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			gctx.JSON(http.StatusBadRequest, web.Response{Error: web.GetErrorMsg(ve)})

			return
		}

		gctx.JSON(http.StatusBadRequest, web.Error(err))

		return
	}

	owner, err := h.service.Register(ctx, req.Username, req.Password, req.Email)
	if err != nil {
		switch err {
		case domain.ErrUsernameTaken, domain.ErrEmailTaken:
			gctx.JSON(http.StatusConflict, web.Error(err))
			return
		}

		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	h.respondWithSession(gctx, http.StatusCreated, owner)
}

type loginRequest struct {
	Username string `json:"username" binding:"required,alphanum"`
	Password string `json:"password" binding:"required,min=6"`
}

// Login handles http login request and returns the owner with a new session.
func (h *Handler) Login(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req loginRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()

		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			gctx.JSON(http.StatusBadRequest, web.Response{Error: web.GetErrorMsg(ve)})

			return
		}

		gctx.JSON(http.StatusBadRequest, web.Error(err))

		return
	}

	owner, err := h.service.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		if err == domain.ErrInvalidCredentials {
			gctx.JSON(http.StatusUnauthorized, web.Error(err))
			return
		}

		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	h.respondWithSession(gctx, http.StatusOK, owner)
}

func (h *Handler) respondWithSession(gctx *gin.Context, status int, owner domain.OwnerProfile) {
	ctx := gctx.Request.Context()

	arg := domain.CreateSessionParams{
		Username:  owner.Username,
		UserAgent: gctx.Request.UserAgent(),
		ClientIP:  gctx.ClientIP(),
	}

	accessToken, accessTokenExpiresAt, session, err := h.sessionMaker.Create(ctx, arg)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("username", owner.Username).Msg("creating session")
		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(status, web.Response{
		AccessToken:           accessToken,
		AccessTokenExpiresAt:  accessTokenExpiresAt,
		RefreshToken:          session.RefreshToken,
		RefreshTokenExpiresAt: session.ExpiresAt,
		Data:                  ownerData{Owner: owner},
	})
}
