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
	"github.com/MeDjb10/recruitment-platform-backend/internal/service/catalog"
	"github.com/MeDjb10/recruitment-platform-backend/internal/worker"
)

// CatalogApp hosts the test catalog service: the read-only HTTP API
// plus the broker responder for test list requests.
type CatalogApp struct {
	server    *http.Server
	worker    *worker.CatalogWorker
	transport broker.Transport
	db        *sql.DB
	config    *config.Config
	logger    zerolog.Logger
}

func NewCatalogApp(cfg *config.Config, log zerolog.Logger, db *sql.DB) (*CatalogApp, error) {
	transport, err := broker.ConnectAMQP(cfg.RabbitMQ.URL, log)
	if err != nil {
		return nil, err
	}

	publisher, err := broker.NewPublisher(transport, log, broker.EventTestListResponse)
	if err != nil {
		return nil, err
	}

	testRepo := repository.NewTestRepository(db, log)
	catalogService := catalog.NewService(testRepo, log)

	checks := []httpd.DependencyCheck{
		{Name: "postgres", Check: func(ctx context.Context) bool { return testRepo.Ping(ctx) == nil }},
		{Name: "rabbitmq", Check: func(ctx context.Context) bool { return transport.Ready() }},
	}

	handler := httpd.NewCatalogHandler(catalogService, checks, log)

	router := newRouter(cfg)
	handler.RegisterRoutes(router)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &CatalogApp{
		server:    server,
		worker:    worker.NewCatalogWorker(transport, publisher, catalogService, log),
		transport: transport,
		db:        db,
		config:    cfg,
		logger:    log,
	}, nil
}

func (a *CatalogApp) Run() error {
	if err := a.worker.Start(context.Background()); err != nil {
		return err
	}

	a.logger.Info().Msgf("Starting test service on %s", a.config.Server.Address)
	return a.server.ListenAndServe()
}

func (a *CatalogApp) Shutdown(ctx context.Context) error {
	a.logger.Info().Msg("Shutting down test service...")

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
