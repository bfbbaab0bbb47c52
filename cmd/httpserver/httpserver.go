// Package httpserver manages server creation and api routing.
package httpserver

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/go-petr/bank-ledger/internal/accountdelivery"
	"github.com/go-petr/bank-ledger/internal/accountrepo"
	"github.com/go-petr/bank-ledger/internal/accountservice"
	"github.com/go-petr/bank-ledger/internal/cache"
	"github.com/go-petr/bank-ledger/internal/ledgerdelivery"
	"github.com/go-petr/bank-ledger/internal/ledgerrepo"
	"github.com/go-petr/bank-ledger/internal/ledgerservice"
	"github.com/go-petr/bank-ledger/internal/middleware"
	"github.com/go-petr/bank-ledger/internal/sessiondelivery"
	"github.com/go-petr/bank-ledger/internal/sessionrepo"
	"github.com/go-petr/bank-ledger/internal/sessionservice"
	"github.com/go-petr/bank-ledger/internal/transactionrepo"
	"github.com/go-petr/bank-ledger/internal/userdelivery"
	"github.com/go-petr/bank-ledger/internal/userrepo"
	"github.com/go-petr/bank-ledger/internal/userservice"
	"github.com/go-petr/bank-ledger/pkg/configpkg"
	"github.com/go-petr/bank-ledger/pkg/currencypkg"
	"github.com/go-petr/bank-ledger/pkg/tokenpkg"
	"github.com/go-petr/bank-ledger/pkg/web"
)

// Version is reported by the api info endpoint.
const Version = "1.0.0"

// Server holds db connection, cache, handlers router and configuration.
type Server struct {
	DB     *sql.DB
	Cache  *cache.Cache
	Engine *gin.Engine
	Config configpkg.Config

	apiInfo apiInfo
}

// ServeHTTP implements the http.Handler interface for the Server type.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Engine.ServeHTTP(w, r)
}

func registerValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}

	validators := map[string]validator.Func{
		"currency":       currencypkg.ValidCurrency,
		"amount":         ledgerdelivery.ValidAmount,
		"account_status": accountdelivery.ValidAccountStatus,
	}

	for tag, fn := range validators {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("cannot register %s validator: %w", tag, err)
		}
	}

	return nil
}

func corsConfig(config configpkg.Config) cors.Config {
	c := cors.DefaultConfig()
	c.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions}
	c.AddAllowHeaders(middleware.AuthHeaderKey, middleware.RequestIDHeader)
	c.ExposeHeaders = []string{middleware.RequestIDHeader, cache.HeaderCache}
	c.MaxAge = 12 * time.Hour

	origins := config.AllowedOrigins()
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}

	return c
}

// New creates Server type with instantiated domains and routes.
// rdb backs the read cache and the rate limiter, publisher receives committed ledger entries.
func New(
	conn *sql.DB,
	rdb *redis.Client,
	publisher ledgerservice.Publisher,
	logger zerolog.Logger,
	config configpkg.Config,
) (*Server, error) {
	tokenMaker, err := tokenpkg.New(config.TokenType, config.TokenSymmetricKey)
	if err != nil {
		return nil, fmt.Errorf("cannot create token maker: %w", err)
	}

	rateLimiter, err := middleware.NewLimiter(config.RateLimit, rdb, logger)
	if err != nil {
		return nil, fmt.Errorf("cannot create rate limiter: %w", err)
	}

	if err := registerValidators(); err != nil {
		return nil, err
	}

	readCache := cache.New(cache.NewRedisBackend(rdb), max(config.AccountCacheTTL, config.TransactionsCacheTTL))

	userRepo := userrepo.NewRepoPGS(conn)
	sessionRepo := sessionrepo.NewRepoPGS(conn)
	accountRepo := accountrepo.NewRepoPGS(conn)
	transactionRepo := transactionrepo.NewRepoPGS(conn)
	ledgerRepo := ledgerrepo.NewRepoPGS(conn, config.LockTimeout)

	ownerService := userservice.New(userRepo)

	sessionService, err := sessionservice.New(sessionRepo, config, tokenMaker)
	if err != nil {
		return nil, fmt.Errorf("cannot create session service: %w", err)
	}

	accountService := accountservice.New(accountRepo, ownerService, readCache)
	ledgerService := ledgerservice.New(ledgerRepo, transactionRepo, accountService, readCache, publisher)

	userHandler := userdelivery.NewHandler(ownerService, sessionService)
	sessionHandler := sessiondelivery.NewHandler(sessionService)
	accountHandler := accountdelivery.NewHandler(accountService)
	ledgerHandler := ledgerdelivery.NewHandler(ledgerService)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(middleware.RequestLogger(logger))
	engine.Use(gin.Recovery())
	engine.Use(cors.New(corsConfig(config)))
	engine.Use(middleware.RateLimit(rateLimiter))

	server := &Server{
		DB:     conn,
		Cache:  readCache,
		Engine: engine,
		Config: config,
	}

	engine.GET("/", server.info)
	engine.GET("/health", server.health)

	engine.POST("/users", userHandler.Create)
	engine.POST("/users/login", userHandler.Login)
	engine.POST("/tokens/renew_access", sessionHandler.RenewAccessToken)
	engine.POST("/tokens/revoke", sessionHandler.Revoke)

	accountCache := readCache.Middleware(config.AccountCacheTTL, middleware.Username)
	listCache := readCache.Middleware(config.TransactionsCacheTTL, middleware.Username)

	authRoutes := engine.Group("/").Use(middleware.AuthMiddleware(tokenMaker))

	authRoutes.POST("/accounts", accountHandler.Create)
	authRoutes.GET("/accounts", listCache, accountHandler.List)
	authRoutes.GET("/accounts/:id", accountCache, accountHandler.Get)
	authRoutes.PATCH("/accounts/:id/status", accountHandler.UpdateStatus)

	authRoutes.POST("/accounts/:id/deposit", ledgerHandler.Deposit)
	authRoutes.POST("/accounts/:id/withdraw", ledgerHandler.Withdraw)
	authRoutes.GET("/accounts/:id/transactions", listCache, ledgerHandler.ListTransactions)

	server.apiInfo = newAPIInfo(engine.Routes())

	return server, nil
}

type apiInfo struct {
	Name      string   `json:"name"`
	Version   string   `json:"version"`
	Endpoints []string `json:"endpoints"`
}

func newAPIInfo(routes gin.RoutesInfo) apiInfo {
	endpoints := make([]string, 0, len(routes))
	for _, r := range routes {
		endpoints = append(endpoints, r.Method+" "+r.Path)
	}

	sort.Strings(endpoints)

	return apiInfo{
		Name:      "bank-ledger",
		Version:   Version,
		Endpoints: endpoints,
	}
}

func (s *Server) info(gctx *gin.Context) {
	gctx.JSON(http.StatusOK, web.Response{Data: s.apiInfo})
}

type healthData struct {
	Database string `json:"database"`
	Cache    string `json:"cache"`
}

const healthTimeout = 2 * time.Second

func (s *Server) health(gctx *gin.Context) {
	ctx, cancel := context.WithTimeout(gctx.Request.Context(), healthTimeout)
	defer cancel()

	l := zerolog.Ctx(ctx)
	status := http.StatusOK
	data := healthData{Database: "ok", Cache: "ok"}

	if err := s.DB.PingContext(ctx); err != nil {
		l.Error().Err(err).Msg("database ping failed")

		status = http.StatusServiceUnavailable
		data.Database = "unavailable"
	}

	// Reads fall back to the database while the cache is down.
	if err := s.Cache.Ping(ctx); err != nil {
		l.Warn().Err(err).Msg("cache ping failed")

		data.Cache = "unavailable"
	}

	gctx.JSON(status, web.Response{Data: data})
}
