// Package app opens the stores and clients the portal binaries share.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"internship-hub/project-portal/project-portal-backend/internal/applications"
	"internship-hub/project-portal/project-portal-backend/internal/config"
	"internship-hub/project-portal/project-portal-backend/internal/directory"
	"internship-hub/project-portal/project-portal-backend/internal/events"
	"internship-hub/project-portal/project-portal-backend/internal/projects"
	"internship-hub/project-portal/project-portal-backend/internal/reports"
	"internship-hub/project-portal/project-portal-backend/internal/validation"
	"internship-hub/project-portal/project-portal-backend/pkg/storage"
)

// App holds the repositories and external clients selected by the configuration
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Projects  projects.Repository
	Directory directory.Repository
	Tracker   applications.Tracker
	Exports   reports.Repository
	Validator *validation.Validator
	// Publisher queues events for SNS and the webhook when configured; nil otherwise.
	Publisher events.Publisher
	// Storage archives exports when a bucket is configured; nil otherwise.
	Storage storage.S3Client

	closers []func() error
}

// NewLogger builds the process logger from the logging configuration
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}

// Open connects to PostgreSQL (or builds memory stores when no database is
// configured) and creates the AWS clients the configuration asks for.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	var err error
	if cfg.Database.UsesDatabase() {
		err = a.openDatabase(ctx)
	} else {
		err = a.openMemory()
	}
	if err != nil {
		a.Close()
		return nil, err
	}

	if err := a.openAWS(ctx); err != nil {
		a.Close()
		return nil, err
	}
	a.openWebhook()
	a.startQueue()

	a.Validator = validation.New(a.Directory, a.Projects)
	return a, nil
}

func (a *App) openDatabase(ctx context.Context) error {
	dbCfg := a.Config.Database
	url := dbCfg.GetDatabaseURL()

	a.Logger.Info("Connecting to database",
		zap.String("host", dbCfg.Host),
		zap.String("db_name", dbCfg.DBName))

	gormDB, err := gorm.Open(postgres.Open(url), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return fmt.Errorf("failed to open project store: %w", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return fmt.Errorf("failed to get project store pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(dbCfg.MaxConnections)
	sqlDB.SetMaxIdleConns(dbCfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(dbCfg.MaxLifetime)
	a.closers = append(a.closers, sqlDB.Close)

	db, err := sqlx.ConnectContext(ctx, "postgres", url)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	db.SetMaxOpenConns(dbCfg.MaxConnections)
	db.SetMaxIdleConns(dbCfg.MaxIdleConns)
	db.SetConnMaxLifetime(dbCfg.MaxLifetime)
	a.closers = append(a.closers, db.Close)

	projectRepo := projects.NewGormRepository(gormDB)
	exportRepo := reports.NewPostgresRepository(db)
	if dbCfg.AutoMigrate {
		if err := projectRepo.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate project store: %w", err)
		}
		if err := exportRepo.Migrate(ctx); err != nil {
			return err
		}
	}

	a.Projects = projectRepo
	a.Exports = exportRepo
	a.Directory = directory.NewPostgresRepository(db)
	a.Tracker = applications.NewPostgresTracker(db)
	return nil
}

func (a *App) openMemory() error {
	var seed *directory.Seed
	if path := a.Config.Directory.SeedPath; path != "" {
		s, err := directory.LoadSeedFile(path)
		if err != nil {
			return err
		}
		seed = s
	}

	a.Logger.Warn("No database configured, using in-memory stores",
		zap.String("directory_seed", a.Config.Directory.SeedPath))

	a.Projects = projects.NewMemoryRepository()
	a.Exports = reports.NewMemoryRepository()
	a.Directory = directory.NewMemoryRepository(seed)
	a.Tracker = applications.NewMemoryTracker()
	return nil
}

func (a *App) openAWS(ctx context.Context) error {
	topic := a.Config.Events.SNSTopicARN
	bucket := a.Config.Exports.Bucket
	if topic == "" && bucket == "" {
		return nil
	}

	var opts []func(*awsconfig.LoadOptions) error
	if region := a.Config.Events.AWSRegion; region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to load aws config: %w", err)
	}

	if topic != "" {
		a.Publisher = events.NewSNSPublisher(sns.NewFromConfig(awsCfg), topic)
		a.Logger.Info("Forwarding events to SNS", zap.String("topic_arn", topic))
	}
	if bucket != "" {
		a.Storage = storage.NewS3Client(s3.NewFromConfig(awsCfg, a.s3Options))
		a.Logger.Info("Archiving exports to S3",
			zap.String("bucket", bucket),
			zap.String("region", awsCfg.Region))
	}
	return nil
}

func (a *App) s3Options(o *s3.Options) {
	ex := a.Config.Exports
	if ex.Endpoint != "" {
		o.BaseEndpoint = aws.String(ex.Endpoint)
	}
	o.UsePathStyle = ex.UsePathStyle
	if ex.AccessKeyID != "" {
		o.Credentials = credentials.NewStaticCredentialsProvider(ex.AccessKeyID, ex.SecretAccessKey, "")
	}
}

func (a *App) openWebhook() {
	ev := a.Config.Events
	if ev.WebhookURL == "" {
		return
	}
	headers := map[string]string{}
	if ev.WebhookToken != "" {
		headers["Authorization"] = "Bearer " + ev.WebhookToken
	}
	webhook := events.NewWebhookPublisher(events.WebhookConfig{
		URL:     ev.WebhookURL,
		Headers: headers,
	}, a.Logger)

	if a.Publisher == nil {
		a.Publisher = webhook
	} else {
		a.Publisher = events.Fanout{a.Publisher, webhook}
	}
	a.Logger.Info("Forwarding events to webhook", zap.String("url", ev.WebhookURL))
}

// startQueue moves delivery to SNS and the webhook off the caller's goroutine
func (a *App) startQueue() {
	if a.Publisher == nil {
		return
	}
	queue := events.NewQueue(a.Publisher, a.Config.Events.QueueSize, a.Logger)
	a.Publisher = queue
	a.closers = append(a.closers, queue.Close)
}

// Close drains the event queue and releases every connection pool
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
