package app

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/MeDjb10/recruitment-platform-backend/internal/broker"
	"github.com/MeDjb10/recruitment-platform-backend/internal/config"
	"github.com/MeDjb10/recruitment-platform-backend/internal/delivery/httpd"
	"github.com/MeDjb10/recruitment-platform-backend/internal/repository"
	"github.com/MeDjb10/recruitment-platform-backend/internal/service/assignment"
	"github.com/MeDjb10/recruitment-platform-backend/internal/service/integration"
	"github.com/MeDjb10/recruitment-platform-backend/internal/worker"
)

// AssignmentApp hosts the assignment orchestration service: the HTTP
// API plus the approval and catalog-response consumers.
type AssignmentApp struct {
	server    *http.Server
	worker    *worker.AssignmentWorker
	transport broker.Transport
	redis     *redis.Client
	db        *sql.DB
	config    *config.Config
	logger    zerolog.Logger
}

func NewAssignmentApp(cfg *config.Config, log zerolog.Logger, db *sql.DB) (*AssignmentApp, error) {
	transport, err := broker.ConnectAMQP(cfg.RabbitMQ.URL, log)
	if err != nil {
		return nil, err
	}

	publisher, err := broker.NewPublisher(transport, log,
		broker.EventCandidateApproved,
		broker.EventCandidateRejected,
		broker.EventTestListRequest,
		broker.EventAssignmentCompleted,
	)
	if err != nil {
		return nil, err
	}

	correlation, err := broker.NewCorrelationClient(publisher, broker.EventTestListRequest, broker.EventTestListResponse, log)
	if err != nil {
		return nil, err
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	userClient := integration.NewUserClient(
		cfg.Services.User.URL,
		cfg.Auth.ServiceToken,
		cfg.Services.User.Timeout,
		cfg.Services.User.RetryCount,
		cfg.Services.User.RetryDelay,
		redisClient,
		cfg.Assignment.ProfileCacheTTL,
		log,
	)

	assignmentRepo := repository.NewAssignmentRepository(db, log)

	catalog := assignment.NewBrokerCatalog(correlation, cfg.Assignment.CatalogTimeout)
	orchestrator := assignment.NewOrchestrator(
		userClient,
		catalog,
		assignmentRepo,
		publisher,
		cfg.Assignment.BulkConcurrency,
		log,
	)

	checks := []httpd.DependencyCheck{
		{Name: "postgres", Check: func(ctx context.Context) bool { return assignmentRepo.Ping(ctx) == nil }},
		{Name: "rabbitmq", Check: func(ctx context.Context) bool { return transport.Ready() }},
		{Name: "redis", Check: func(ctx context.Context) bool { return redisClient.Ping(ctx).Err() == nil }},
		{Name: "user-service", Check: userClient.Healthy},
	}

	handler := httpd.NewAssignmentHandler(orchestrator, cfg.Auth.ServiceToken, checks, log)

	router := newRouter(cfg)
	handler.RegisterRoutes(router)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &AssignmentApp{
		server:    server,
		worker:    worker.NewAssignmentWorker(transport, orchestrator, correlation, log),
		transport: transport,
		redis:     redisClient,
		db:        db,
		config:    cfg,
		logger:    log,
	}, nil
}

func (a *AssignmentApp) Run() error {
	if err := a.worker.Start(context.Background()); err != nil {
		return err
	}

	a.logger.Info().Msgf("Starting assignment service on %s", a.config.Server.Address)
	return a.server.ListenAndServe()
}

func (a *AssignmentApp) Shutdown(ctx context.Context) error {
	a.logger.Info().Msg("Shutting down assignment service...")

	if err := a.transport.Close(); err != nil {
		a.logger.Error().Err(err).Msg("Failed to close broker connection")
	}

	if err := a.redis.Close(); err != nil {
		a.logger.Error().Err(err).Msg("Failed to close Redis connection")
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close database connection")
		}
	}

	return a.server.Shutdown(ctx)
}
