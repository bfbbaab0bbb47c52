package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-petr/bank-ledger/pkg/tokenpkg"
	"github.com/go-petr/bank-ledger/pkg/web"
)

const (
	// AuthHeaderKey is the header the access token is sent in.
	AuthHeaderKey = "authorization"
	// AuthTypeBearer is the only supported authorization type.
	AuthTypeBearer = "bearer"
	// AuthPayloadKey is the gin context key of the verified *tokenpkg.Payload.
	AuthPayloadKey = "authorization_payload"
)

var (
	// ErrAuthHeaderNotFound indicates request without authorization header.
	ErrAuthHeaderNotFound = errors.New("authorization header is not provided")
	// ErrBadAuthHeaderFormat indicates authorization header without type or token.
	ErrBadAuthHeaderFormat = errors.New("invalid authorization header format")
	// ErrUnsupportedAuthType indicates authorization type other than bearer.
	ErrUnsupportedAuthType = errors.New("unsupported authorization type")
)

// AddAuthorization creates a token for username and sets it to the request authorization header.
func AddAuthorization(
	request *http.Request,
	tokenMaker tokenpkg.Maker,
	authorizationType string,
	username string,
	duration time.Duration,
) error {
	token, _, err := tokenMaker.CreateToken(username, duration)
	if err != nil {
		return err
	}

	authorizationHeader := fmt.Sprintf("%s %s", authorizationType, token)
	request.Header.Set(AuthHeaderKey, authorizationHeader)

	return nil
}

// AuthMiddleware verifies the bearer token and stores its payload under AuthPayloadKey.
func AuthMiddleware(tokenMaker tokenpkg.Maker) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authorizationHeader := ctx.GetHeader(AuthHeaderKey)
		if len(authorizationHeader) == 0 {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, web.Error(ErrAuthHeaderNotFound))
			return
		}

		fields := strings.Fields(authorizationHeader)
		if len(fields) < 2 {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, web.Error(ErrBadAuthHeaderFormat))
			return
		}

		authorizationType := strings.ToLower(fields[0])
		if authorizationType != AuthTypeBearer {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, web.Error(ErrUnsupportedAuthType))
			return
		}

		payload, err := tokenMaker.VerifyToken(fields[1])
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, web.Error(err))
			return
		}

		ctx.Set(AuthPayloadKey, payload)
		ctx.Next()
	}
}

// Username returns the authenticated username or an empty string for anonymous requests.
func Username(ctx *gin.Context) string {
	payload, ok := ctx.Get(AuthPayloadKey)
	if !ok {
		return ""
	}

	p, ok := payload.(*tokenpkg.Payload)
	if !ok {
		return ""
	}

	return p.Username
}
