package mediaservice

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	ProviderCloudinary = "cloudinary"
	ProviderS3         = "s3"
)

type Config struct {
	Provider string
	Folder   string

	CloudName string
	APIKey    string
	APISecret string

	Region    string
	Bucket    string
	Endpoint  string
	PublicURL string
}

// New builds the configured provider behind a circuit breaker.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Guarded, error) {
	var (
		store Store
		err   error
	)

	switch cfg.Provider {
	case ProviderCloudinary, "":
		store, err = NewCloudinary(cfg.CloudName, cfg.APIKey, cfg.APISecret, cfg.Folder)
	case ProviderS3:
		store, err = NewS3(ctx, cfg.Region, cfg.Bucket, cfg.Endpoint, cfg.Folder, cfg.PublicURL)
	default:
		return nil, fmt.Errorf("unknown media provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return NewGuarded(store, BreakerConfig{
		Name:             "media-" + cfg.Provider,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}, logger), nil
}
