package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"blockiq/internal/cache"
	"blockiq/internal/catalog"
	"blockiq/internal/config"
	"blockiq/internal/host"
	"blockiq/internal/metrics"
	"blockiq/internal/payment"
	"blockiq/internal/repository"
	"blockiq/internal/service"
	"blockiq/internal/transport/rest"
	"blockiq/internal/transport/ws"
)

// App holds every long-lived dependency of the server. Stores fall back
// to in-process implementations when their backing service is not
// configured.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	SessionCache cache.SessionCache
	Leaderboard  cache.LeaderboardCache
	Stats        cache.StatsCache
	ResultRepo   repository.ResultRepo
	PaymentRepo  repository.PaymentRepo
	Catalog      *catalog.Cached

	AuthService        *service.AuthService
	QuizService        *service.QuizService
	PaymentService     *service.PaymentService
	LeaderboardService *service.LeaderboardService
	Hub                *ws.Hub
	Notifier           host.ReadyNotifier

	mongoClient *mongo.Client
	redisClient *redis.Client
}

// New connects to the configured backends and wires the services
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New(),
	}

	if err := a.connectMongo(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.connectRedis(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.loadCatalog(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.wireServices(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) connectMongo(ctx context.Context) error {
	if a.Config.Mongo.URI == "" {
		a.Logger.Warn("mongo.uri not set, results and receipts are kept in memory")
		a.ResultRepo = repository.NewMemoryResultRepo()
		a.PaymentRepo = repository.NewMemoryPaymentRepo()
		return nil
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(a.Config.Mongo.URI))
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	a.mongoClient = client
	a.Logger.Info("connected to MongoDB", "database", a.Config.Mongo.Database)

	db := client.Database(a.Config.Mongo.Database)
	a.ResultRepo = repository.NewResultRepo(db)
	a.PaymentRepo = repository.NewPaymentRepo(db)

	indexCtx, cancelIdx := context.WithTimeout(ctx, 10*time.Second)
	defer cancelIdx()
	if err := repository.EnsureIndexes(indexCtx, a.ResultRepo, a.PaymentRepo); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (a *App) connectRedis(ctx context.Context) error {
	if a.Config.Redis.URI == "" {
		a.Logger.Warn("redis.uri not set, sessions and leaderboards are kept in memory")
		a.SessionCache = cache.NewMemorySessionCache()
		a.Leaderboard = cache.NewMemoryLeaderboard()
		a.Stats = cache.NewMemoryStats()
		return nil
	}

	opts, err := a.Config.Redis.Options()
	if err != nil {
		return err
	}
	rdb := redis.NewClient(opts)
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		rdb.Close()
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	a.redisClient = rdb
	a.Logger.Info("connected to Redis", "addr", opts.Addr, "db", opts.DB)

	a.SessionCache = cache.NewSessionCache(rdb, a.Config.Redis.SessionTTL)
	a.Leaderboard = cache.NewLeaderboardCache(rdb)
	a.Stats = cache.NewStatsCache(rdb)
	return nil
}

func (a *App) loadCatalog(ctx context.Context) error {
	var src catalog.Source
	switch a.Config.Catalog.Source {
	case config.CatalogMongo:
		if a.mongoClient == nil {
			return fmt.Errorf("catalog source %q needs a MongoDB connection", config.CatalogMongo)
		}
		src = repository.NewQuestionRepo(a.mongoClient.Database(a.Config.Mongo.Database))
	default:
		questions, err := catalog.Embedded()
		if err != nil {
			return err
		}
		src = catalog.NewStatic(questions)
	}

	a.Catalog = catalog.NewCached(src)
	if err := a.Catalog.Load(ctx); err != nil {
		return fmt.Errorf("failed to load %s catalog: %w", a.Config.Catalog.Source, err)
	}
	a.Logger.Info("catalog loaded", "source", a.Config.Catalog.Source, "questions", catalog.Size)
	return nil
}

func (a *App) wireServices() error {
	cfg := a.Config

	minWei, err := cfg.Payment.AmountWei()
	if err != nil {
		return err
	}
	req := payment.Requirement{
		Receiver:    cfg.Payment.Receiver,
		MinValueWei: minWei,
		ChainID:     cfg.Payment.ChainID,
	}

	var confirmer payment.Confirmer = payment.StaticConfirmer{}
	if cfg.Payment.RPCURL != "" {
		retry := payment.DefaultRetryConfig()
		retry.MaxElapsed = cfg.Payment.ConfirmTimeout
		confirmer = payment.NewRPCConfirmer(cfg.Payment.RPCURL, retry, a.Logger.With("component", "payment"))
	} else {
		a.Logger.Warn("payment.rpc_url not set, every well-formed transaction hash unlocks results")
	}

	a.Notifier = host.NopNotifier{}
	if cfg.Host.ReadyURL != "" {
		a.Notifier = host.NewWebhookNotifier(cfg.Host.ReadyURL, cfg.Host.AppName,
			host.DefaultPolicy, a.Logger.With("component", "host"))
	}

	a.Hub = ws.NewHub(a.Logger.With("component", "ws"))
	a.AuthService = service.NewAuthService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	a.QuizService = service.NewQuizService(a.SessionCache, a.Catalog, a.AuthService, a.Metrics, a.Logger.With("component", "quiz"))
	a.LeaderboardService = service.NewLeaderboardService(a.Leaderboard, a.Stats, a.Catalog)
	a.PaymentService = service.NewPaymentService(a.QuizService, confirmer, a.PaymentRepo, a.ResultRepo,
		a.LeaderboardService, req, cfg.Payment.AmountETH, a.Metrics, a.Logger.With("component", "payment"))

	// Inject broadcaster (wsHub implements service.Broadcaster)
	a.QuizService.SetBroadcaster(a.Hub)
	a.PaymentService.SetBroadcaster(a.Hub)
	return nil
}

// Container builds the router's dependency set
func (a *App) Container() *rest.Container {
	return &rest.Container{
		AuthService:        a.AuthService,
		QuizService:        a.QuizService,
		PaymentService:     a.PaymentService,
		LeaderboardService: a.LeaderboardService,
		WSHub:              a.Hub,
		Metrics:            a.Metrics,
		CORS:               a.Config.Server,
		Logger:             a.Logger,
	}
}

// Close stops background work and releases connections
func (a *App) Close() {
	if a.QuizService != nil {
		a.QuizService.Shutdown()
	}
	if a.Hub != nil {
		a.Hub.Close()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if a.mongoClient != nil {
		a.mongoClient.Disconnect(ctx)
	}
	if a.redisClient != nil {
		a.redisClient.Close()
	}
}
