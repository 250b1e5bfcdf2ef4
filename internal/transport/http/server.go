package http

import (
	"context"
	"errors"
	nethttp "net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	appsvc "filingchat/internal/app"
	"filingchat/internal/auth"
	"filingchat/internal/bootstrap"
	"filingchat/internal/config"
	"filingchat/internal/logger"
	"filingchat/internal/metrics"
	redisClient "filingchat/internal/platform/redis"
	"filingchat/internal/transport/http/datastream"
	"filingchat/internal/transport/http/handler"
	"filingchat/internal/transport/http/middleware"
)

// Deps is everything the HTTP layer needs. Services are built by the caller.
type Deps struct {
	Config   *config.Config
	Log      *zap.Logger
	Sessions auth.SessionResolver
	Auth     *appsvc.AuthService
	Chat     *appsvc.ChatService
	Votes    *appsvc.VoteService
	View     *appsvc.ViewService
	Filings  handler.FilingSearcher
	Metrics  *metrics.Metrics
	Health   *handler.HealthHandler
	Exporter nethttp.Handler
}

func NewRouter(app *bootstrap.App) *gin.Engine {
	checks := []handler.HealthCheck{{
		Name: app.Config.Database.Driver,
		Probe: func(ctx context.Context) error {
			sqlDB, err := app.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}}
	if app.Redis != nil {
		checks = append(checks, handler.HealthCheck{
			Name:  "redis",
			Probe: func(ctx context.Context) error { return redisClient.Ping(ctx, app.Redis) },
		})
	}
	if app.MQConn != nil {
		checks = append(checks, handler.HealthCheck{
			Name: "rabbitmq",
			Probe: func(context.Context) error {
				if app.MQConn.IsClosed() {
					return errors.New("connection closed")
				}
				return nil
			},
		})
	}

	return NewEngine(Deps{
		Config:   app.Config,
		Log:      app.Log,
		Sessions: app.Sessions,
		Auth:     app.Auth,
		Chat:     app.Chat,
		Votes:    app.Votes,
		View:     app.View,
		Filings:  app.Filings,
		Metrics:  app.Metrics,
		Health:   handler.NewHealthHandler(app.Config.App.Name, app.Config.App.Env, app.StartedAt, checks...),
		Exporter: promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{}),
	})
}

func NewEngine(d Deps) *gin.Engine {
	gin.SetMode(d.Config.App.GinMode)
	router := gin.New()
	router.Use(logger.GinMiddleware(d.Log), gin.Recovery())
	if len(d.Config.App.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     d.Config.App.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
			ExposeHeaders:    []string{datastream.HeaderName},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	if d.Health != nil {
		router.GET("/healthz", d.Health.Check)
	}
	if d.Exporter != nil {
		router.GET("/metrics", gin.WrapH(d.Exporter))
	}

	authHandler := handler.NewAuthHandler(d.Auth, d.Config.Auth.CookieName, time.Duration(d.Config.Auth.JWTExpireMinute)*time.Minute)
	chatHandler := handler.NewChatHandler(d.Chat, d.Log)
	voteHandler := handler.NewVoteHandler(d.Votes, d.Log)
	viewHandler := handler.NewViewHandler(d.View, d.Log)
	filingHandler := handler.NewFilingHandler(d.Filings, d.Metrics, d.Log)
	modelHandler := handler.NewModelHandler(d.Config.LLM)

	api := router.Group("/api")
	api.Use(middleware.Session(d.Sessions))

	authGroup := api.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", middleware.RequireSession(), authHandler.Me)

	api.POST("/chat", chatHandler.Stream)
	api.DELETE("/chat", chatHandler.Delete)
	api.GET("/chat/:id", middleware.RequireSession(), chatHandler.Get)
	api.GET("/history", middleware.RequireSession(), chatHandler.History)

	api.GET("/vote", voteHandler.List)
	api.PATCH("/vote", voteHandler.Vote)

	api.POST("/view", viewHandler.Open)
	api.GET("/filings", middleware.RequireSession(), filingHandler.Search)
	api.GET("/models", modelHandler.List)

	return router
}
