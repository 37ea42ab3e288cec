// Package web assembles the fiber application: middleware, the resource
// handlers and the server lifecycle.
package web

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/genovault/genovault/internal/auth"
	"github.com/genovault/genovault/internal/config"
	"github.com/genovault/genovault/internal/provision"
	"github.com/genovault/genovault/internal/store"
	"github.com/genovault/genovault/internal/web/handler"
	"github.com/genovault/genovault/internal/web/handler/admin/group"
	adminuser "github.com/genovault/genovault/internal/web/handler/admin/user"
	"github.com/genovault/genovault/internal/web/handler/analysis"
	"github.com/genovault/genovault/internal/web/handler/dataset"
	"github.com/genovault/genovault/internal/web/handler/family"
	"github.com/genovault/genovault/internal/web/handler/login"
	"github.com/genovault/genovault/internal/web/handler/oidc"
	"github.com/genovault/genovault/internal/web/handler/participant"
	"github.com/genovault/genovault/internal/web/handler/sample"
)

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
	db           *gorm.DB
	authService  *auth.Service
}

// Start starts the web service on the given address.
func (s *Service) Start(addr string) error {
	var doneFiber = make(chan bool)

	go func() {
		if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Msgf("fiber listen error: %v", err)
		}

		doneFiber <- true
	}()

	<-doneFiber // wait for fiber to stop

	return nil
}

// WaitShutdown waits for graceful shutdown of the service.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	// Graceful shutdown for reverse proxies: fail the liveness check first so
	// the load balancer drains this instance.
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: failing liveness for %d seconds before stopping",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	serverShutdown := make(chan struct{})

	go func() {
		log.Info().Msg("stopping http server ...")

		if err := s.App.Shutdown(); err != nil {
			log.Error().Err(err).Msg("")
		}

		serverShutdown <- struct{}{}
	}()

	<-serverShutdown
	log.Info().Msg("http server stopped")
}

// New creates the web service and registers every handler. The OIDC provider
// may be nil when the flow is disabled; the object store admin client is
// carried inside the provisioning service.
func New(cfg *config.Config, db *gorm.DB, provisionSvc *provision.Service, oidcProvider *auth.OIDCProvider) *Service {
	if cfg == nil {
		panic("config cannot be nil")
	}

	if db == nil {
		panic("db cannot be nil")
	}

	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192,
			AppName:        "GenoVault",
			CaseSensitive:  true,
			Prefork:        false,
			Immutable:      true,
		},
	)

	if !cfg.Webserver.DisableRecover {
		app.Use(recover.New())
	}

	handler.ErrorWebhookURL = cfg.ErrorWebhookURL

	authService := auth.NewService(db, oidcProvider)
	storeService := store.NewService(db)

	service := &Service{
		cfg:         cfg,
		App:         app,
		db:          db,
		authService: authService,
	}
	service.alive.Store(true)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		if !service.alive.Load() {
			return c.SendStatus(fiber.StatusServiceUnavailable)
		}

		return c.SendStatus(fiber.StatusOK)
	})

	// init handlers (they register their own routes and guards)
	login.Handler.Init(app, cfg, db)
	oidc.Handler.Init(app, cfg, oidcProvider)
	family.Handler.Init(app, cfg, authService, storeService)
	participant.Handler.Init(app, cfg, authService, storeService)
	sample.Handler.Init(app, cfg, authService, storeService)
	dataset.Handler.Init(app, cfg, authService, storeService)
	analysis.Handler.Init(app, cfg, authService, storeService)
	group.Handler.Init(app, cfg, db, authService, provisionSvc)
	adminuser.Handler.Init(app, cfg, db, authService, provisionSvc)

	return service
}
