package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/sushihentaime/blogsphere/internal/blogservice"
	"github.com/sushihentaime/blogsphere/internal/common"
	"github.com/sushihentaime/blogsphere/internal/mailservice"
	"github.com/sushihentaime/blogsphere/internal/mediaservice"
	"github.com/sushihentaime/blogsphere/internal/userservice"
)

// mediaStore is the blob store together with its breaker state.
type mediaStore interface {
	mediaservice.Store
	State() string
}

type application struct {
	config      *Config
	logger      *slog.Logger
	userService *userservice.UserService
	blogService *blogservice.BlogService
	mailService *mailservice.MailService
	broker      *common.MessageBroker
	media       mediaStore
	limiter     *ipLimiter
}

func newLogger(env string) *slog.Logger {
	if env == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func main() {
	cfg, err := loadConfig(".env")
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := newLogger(cfg.Environment)

	// Apply the index migrations
	dsn, err := common.DatabaseURI(cfg.DBURI, cfg.DBName)
	if err != nil {
		logger.Error("invalid database uri", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := common.MigrateDB(cfg.MigrationsPath, dsn); err != nil {
		logger.Error("failed to migrate the database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	db, err := common.NewDB(cfg.DBURI, cfg.DBName, cfg.DBMaxPoolSize, cfg.DBMaxIdleTime)
	if err != nil {
		logger.Error("failed to connect to the database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer common.CloseDB(db)

	URI := fmt.Sprintf("amqp://%s:%s@%s:%s/", cfg.MQUser, cfg.MQPassword, cfg.MQHost, cfg.MQPort)
	broker, err := common.NewMessageBroker(URI)
	if err != nil {
		logger.Error("failed to connect to the message broker", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer broker.Close()

	err = common.DeclareTopology(broker)
	if err != nil {
		logger.Error("failed to declare the broker topology", slog.String("error", err.Error()))
		os.Exit(1)
	}

	media, err := mediaservice.New(context.Background(), cfg.media(), logger)
	if err != nil {
		logger.Error("failed to set up the media store", slog.String("error", err.Error()))
		os.Exit(1)
	}

	mailService, err := mailservice.NewMailService(broker, cfg.mail(), cfg.ClientURL, logger)
	if err != nil {
		logger.Error("failed to set up the mail service", slog.String("error", err.Error()))
		os.Exit(1)
	}

	cache := common.NewCache(5*time.Minute, 10*time.Minute)

	app := &application{
		config:      cfg,
		logger:      logger,
		userService: userservice.NewUserService(db, broker, cache, logger),
		blogService: blogservice.NewBlogService(db, media, logger),
		mailService: mailService,
		broker:      broker,
		media:       media,
		limiter:     newIPLimiter(cfg.LimiterRPS, cfg.LimiterBurst),
	}

	app.mailService.SendActivationEmail()
	defer app.mailService.Close()

	err = app.serve()
	if err != nil {
		logger.Error("failed to start the server", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
