package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"filingchat/internal/ai"
	"filingchat/internal/app"
	"filingchat/internal/auth"
	"filingchat/internal/cache"
	"filingchat/internal/config"
	"filingchat/internal/filing"
	"filingchat/internal/logger"
	"filingchat/internal/metrics"
	"filingchat/internal/platform/database"
	rabbitmqClient "filingchat/internal/platform/rabbitmq"
	redisClient "filingchat/internal/platform/redis"
	"filingchat/internal/repository"
	"filingchat/internal/worker"
)

// App owns every long lived resource of the process. Redis and RabbitMQ are
// optional; their features are skipped when the address is empty.
type App struct {
	Config *config.Config
	Log    *zap.Logger
	DB     *gorm.DB
	Redis  *redis.Client
	MQConn *amqp.Connection

	TelemetryWorker *worker.TelemetryWorker
	Registry        *prometheus.Registry
	Metrics         *metrics.Metrics

	Sessions auth.SessionResolver
	Auth     *app.AuthService
	Chat     *app.ChatService
	Votes    *app.VoteService
	View     *app.ViewService
	Filings  *filing.SearchClient

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	log, err := logger.New(cfg.App.Env, cfg.App.LogLevel)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Log: log, StartedAt: time.Now()}
	if err := a.init(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Config

	db, err := database.New(ctx, cfg.Database.Driver, cfg.DatabaseDSN(), a.Log)
	if err != nil {
		return err
	}
	a.DB = db
	if err := repository.Migrate(db); err != nil {
		return fmt.Errorf("auto migrate tables failed: %w", err)
	}

	if cfg.Redis.Addr != "" {
		a.Redis, err = redisClient.New(ctx, redisClient.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
	} else {
		a.Log.Warn("redis disabled, history cache is off and report text is cached in process")
	}

	if cfg.RabbitMQ.URL != "" {
		a.MQConn, err = rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.TelemetryQueue)
		if err != nil {
			return err
		}
	} else {
		a.Log.Warn("rabbitmq disabled, chat telemetry is off")
	}

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.Metrics = metrics.New(a.Registry)

	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.App.Name, time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute)
	if err != nil {
		return err
	}
	a.Sessions = auth.NewJWTResolver(tokens, cfg.Auth.CookieName)

	userRepo := repository.NewUserRepository(db)
	chatRepo := repository.NewChatRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	voteRepo := repository.NewVoteRepository(db)
	reportRepo := repository.NewReportRepository(db)
	telemetryRepo := repository.NewTelemetryRepository(db)

	a.Filings = filing.NewSearchClient(cfg.Filings.SearchURL, cfg.Filings.SearchAPIKey, nil)
	converter := filing.NewConverterClient(cfg.Filings.ConverterURL, &http.Client{})

	chatDeps := app.ChatDeps{
		Chats:    chatRepo,
		Messages: messageRepo,
		Gateway:  ai.NewOpenAIGateway(ai.OpenAIConfig{BaseURL: cfg.LLM.BaseURL, APIKey: cfg.LLM.APIKey}, a.Log),
		Tools:    ai.NewToolSet(filing.NewSearchTool(a.Filings)),
		Metrics:  a.Metrics,
		LLM:      cfg.LLM,
		Log:      a.Log,
	}

	var reportCache filing.ReportTextCache
	if a.Redis != nil {
		chatDeps.History = cache.NewHistoryCache(
			a.Redis,
			time.Duration(cfg.Redis.HistoryTTLSeconds)*time.Second,
			time.Duration(cfg.Redis.HistoryDirtyTTLSeconds)*time.Second,
		)
		reportCache = cache.NewReportTextCache(a.Redis, time.Duration(cfg.Redis.ReportTextTTLSeconds)*time.Second)
	} else {
		reportCache = cache.NewMemoryReportTextCache(32, time.Duration(cfg.Redis.ReportTextTTLSeconds)*time.Second)
	}
	chatDeps.Reports = filing.NewContextLoader(reportRepo, reportCache, nil, a.Log)

	if a.MQConn != nil {
		chatDeps.Telemetry = rabbitmqClient.NewTelemetryPublisher(a.MQConn, cfg.RabbitMQ.TelemetryQueue)
		a.TelemetryWorker = worker.NewTelemetryWorker(a.MQConn, telemetryRepo, cfg.RabbitMQ.TelemetryQueue, a.Log)
		if err := a.TelemetryWorker.Start(ctx); err != nil {
			return fmt.Errorf("start telemetry worker failed: %w", err)
		}
	}

	a.Auth = app.NewAuthService(userRepo, tokens)
	a.Chat = app.NewChatService(chatDeps)
	a.Votes = app.NewVoteService(chatRepo, voteRepo)
	a.View = app.NewViewService(converter, reportRepo, chatRepo, a.Metrics, a.Log)
	return nil
}

func (a *App) Close() error {
	var closeErr error
	if a.TelemetryWorker != nil {
		a.TelemetryWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.DB != nil {
		sqlDB, err := a.DB.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	if a.Log != nil {
		_ = a.Log.Sync()
	}
	return closeErr
}
