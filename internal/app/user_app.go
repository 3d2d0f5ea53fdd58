package app

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/MeDjb10/recruitment-platform-backend/internal/broker"
	"github.com/MeDjb10/recruitment-platform-backend/internal/config"
	"github.com/MeDjb10/recruitment-platform-backend/internal/delivery/httpd"
	"github.com/MeDjb10/recruitment-platform-backend/internal/repository"
	"github.com/MeDjb10/recruitment-platform-backend/internal/service/integration"
	"github.com/MeDjb10/recruitment-platform-backend/internal/service/user"
	"github.com/MeDjb10/recruitment-platform-backend/internal/worker"
)

// UserApp hosts the user service: candidate lookups, authorization
// decisions, and the consumers that write assignment results back onto
// candidate profiles.
type UserApp struct {
	server    *http.Server
	worker    *worker.UserWorker
	transport broker.Transport
	db        *sql.DB
	config    *config.Config
	logger    zerolog.Logger
}

func NewUserApp(cfg *config.Config, log zerolog.Logger, db *sql.DB) (*UserApp, error) {
	transport, err := broker.ConnectAMQP(cfg.RabbitMQ.URL, log)
	if err != nil {
		return nil, err
	}

	publisher, err := broker.NewPublisher(transport, log,
		broker.EventCandidateApproved,
		broker.EventCandidateRejected,
	)
	if err != nil {
		return nil, err
	}

	authClient := integration.NewAuthClient(cfg.Services.Auth.URL, cfg.Services.Auth.Timeout, log)

	candidateRepo := repository.NewCandidateRepository(db, log)
	ledgerRepo := repository.NewProcessedEventRepository(db, log)

	userService := user.NewService(candidateRepo, ledgerRepo, publisher, log)

	checks := []httpd.DependencyCheck{
		{Name: "postgres", Check: func(ctx context.Context) bool { return candidateRepo.Ping(ctx) == nil }},
		{Name: "rabbitmq", Check: func(ctx context.Context) bool { return transport.Ready() }},
		{Name: "auth-service", Check: authClient.Healthy},
	}

	handler := httpd.NewUserHandler(
		userService,
		authClient,
		cfg.Auth.ServiceToken,
		cfg.Auth.AdminRoles,
		checks,
		log,
	)

	router := newRouter(cfg)
	handler.RegisterRoutes(router)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &UserApp{
		server:    server,
		worker:    worker.NewUserWorker(transport, userService, log),
		transport: transport,
		db:        db,
		config:    cfg,
		logger:    log,
	}, nil
}

func (a *UserApp) Run() error {
	if err := a.worker.Start(context.Background()); err != nil {
		return err
	}

	a.logger.Info().Msgf("Starting user service on %s", a.config.Server.Address)
	return a.server.ListenAndServe()
}

func (a *UserApp) Shutdown(ctx context.Context) error {
	a.logger.Info().Msg("Shutting down user service...")

	if err := a.transport.Close(); err != nil {
		a.logger.Error().Err(err).Msg("Failed to close broker connection")
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close database connection")
		}
	}

	return a.server.Shutdown(ctx)
}
