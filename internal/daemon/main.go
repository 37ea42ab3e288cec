// Package daemon wires the process together: logging, database, seeding,
// the object store admin client, the session store and the web service.
package daemon

import (
	"context"
	"fmt"

	"github.com/gofiber/storage"
	"github.com/gofiber/storage/memory"
	sessionmysql "github.com/gofiber/storage/mysql/v2"
	sessionpostgres "github.com/gofiber/storage/postgres/v3"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/glebarez/sqlite"
	gormmysql "gorm.io/driver/mysql"
	gormpostgres "gorm.io/driver/postgres"

	"github.com/genovault/genovault/internal/auth"
	"github.com/genovault/genovault/internal/config"
	"github.com/genovault/genovault/internal/db/dsn"
	"github.com/genovault/genovault/internal/db/models"
	"github.com/genovault/genovault/internal/logger"
	"github.com/genovault/genovault/internal/objectstore"
	"github.com/genovault/genovault/internal/provision"
	"github.com/genovault/genovault/internal/web"
	"github.com/genovault/genovault/internal/web/session"
)

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	webService *web.Service
}

// Start runs the web service until a shutdown signal arrives.
func (d *Daemon) Start() error {
	addr := fmt.Sprintf(":%d", d.cfg.Webserver.Port)

	go func() {
		if err := d.webService.Start(addr); err != nil {
			log.Fatal().Err(err).Msg("web service failed")
		}
	}()

	d.webService.WaitShutdown()

	return nil
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if err := logger.Init(cfg.Log); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return nil, err
	}

	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	if err := seed(cfg, db); err != nil {
		return nil, fmt.Errorf("seed database: %w", err)
	}

	session.Init(sessionStorage(cfg))

	// without the object store the provisioning service runs in
	// database-only mode; useful for development
	var osa provision.ObjectStore

	if cfg.ObjectStore.Enabled {
		client, err := objectstore.New(cfg.ObjectStore)
		if err != nil {
			return nil, fmt.Errorf("object store client: %w", err)
		}

		if err := client.Test(); err != nil {
			return nil, fmt.Errorf("object store unreachable: %w", err)
		}

		osa = client
	} else {
		log.Warn().Msg("object store disabled: credentials and buckets will not be provisioned")
	}

	if cfg.Scheduler.Enabled {
		log.Info().Msg("scheduler flag set: the coordinator runs as a separate process")
	}

	provisionSvc := provision.NewService(db, osa)

	var oidcProvider *auth.OIDCProvider

	if cfg.OIDC.Enabled {
		oidcProvider, err = auth.NewOIDCProvider(context.Background(), cfg.OIDC, db)
		if err != nil {
			return nil, fmt.Errorf("oidc provider: %w", err)
		}
	}

	return &Daemon{
		cfg:        cfg,
		webService: web.New(cfg, db, provisionSvc, oidcProvider),
	}, nil
}

func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.DB.GormEngine {
	case "postgres":
		dialector = gormpostgres.Open(dsn.Create(cfg))
	case "sqlite":
		dialector = sqlite.Open(dsn.Create(cfg))
	default:
		dialector = gormmysql.Open(dsn.Create(cfg))
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	return db, nil
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.UserGroup{},
		&models.Family{},
		&models.Participant{},
		&models.TissueSample{},
		&models.Dataset{},
		&models.File{},
		&models.DatasetFile{},
		&models.Pipeline{},
		&models.PipelineDatasetType{},
		&models.Analysis{},
		&models.DatasetAnalysis{},
		&models.GroupDataset{},
		&models.Gene{},
		&models.GeneAlias{},
		&models.Variant{},
		&models.Genotype{},
	)
}

// sessionStorage backs fiber sessions with the configured database engine;
// sqlite deployments fall back to process memory.
func sessionStorage(cfg *config.Config) storage.Storage {
	switch cfg.DB.GormEngine {
	case "postgres":
		return sessionpostgres.New(sessionpostgres.Config{
			ConnectionURI: dsn.Create(cfg),
			Table:         "sessions",
		})
	case "sqlite":
		return memory.New()
	default:
		return sessionmysql.New(sessionmysql.Config{
			ConnectionURI: dsn.Create(cfg),
			Table:         "sessions",
		})
	}
}
