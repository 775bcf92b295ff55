package main

import (
	"errors"
	"io/fs"
	"time"

	"github.com/spf13/viper"
	"github.com/sushihentaime/blogsphere/internal/mailservice"
	"github.com/sushihentaime/blogsphere/internal/mediaservice"
)

type Config struct {
	Port           string   `mapstructure:"PORT"`
	Environment    string   `mapstructure:"ENVIRONMENT"`
	Version        string   `mapstructure:"VERSION"`
	TrustedOrigins []string `mapstructure:"TRUSTED_ORIGINS"`
	TLSCertFile    string   `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile     string   `mapstructure:"TLS_KEY_FILE"`
	ClientURL      string   `mapstructure:"CLIENT_URL"`
	MaxUploadBytes int64    `mapstructure:"MAX_UPLOAD_BYTES"`

	DBURI          string        `mapstructure:"MONGO_URI"`
	DBName         string        `mapstructure:"MONGO_DB"`
	DBMaxPoolSize  uint64        `mapstructure:"MONGO_MAX_POOL_SIZE"`
	DBMaxIdleTime  time.Duration `mapstructure:"MONGO_MAX_IDLE_TIME"`
	MigrationsPath string        `mapstructure:"MIGRATIONS_PATH"`

	MailHost     string `mapstructure:"MAIL_HOST"`
	MailPort     int    `mapstructure:"MAIL_PORT"`
	MailUser     string `mapstructure:"MAIL_USER"`
	MailPassword string `mapstructure:"MAIL_PASSWORD"`
	MailSender   string `mapstructure:"MAIL_SENDER"`

	MQHost     string `mapstructure:"RABBITMQ_HOST"`
	MQPort     string `mapstructure:"RABBITMQ_PORT"`
	MQUser     string `mapstructure:"RABBITMQ_USER"`
	MQPassword string `mapstructure:"RABBITMQ_PASSWORD"`

	MediaProvider       string `mapstructure:"MEDIA_PROVIDER"`
	MediaFolder         string `mapstructure:"MEDIA_FOLDER"`
	CloudinaryCloudName string `mapstructure:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string `mapstructure:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `mapstructure:"CLOUDINARY_API_SECRET"`
	S3Region            string `mapstructure:"S3_REGION"`
	S3Bucket            string `mapstructure:"S3_BUCKET"`
	S3Endpoint          string `mapstructure:"S3_ENDPOINT"`
	S3PublicURL         string `mapstructure:"S3_PUBLIC_URL"`

	LimiterEnabled bool    `mapstructure:"LIMITER_ENABLED"`
	LimiterRPS     float64 `mapstructure:"LIMITER_RPS"`
	LimiterBurst   int     `mapstructure:"LIMITER_BURST"`
}

var defaults = map[string]any{
	"PORT":                  "4000",
	"ENVIRONMENT":           "development",
	"VERSION":               "1.0.0",
	"TRUSTED_ORIGINS":       []string{},
	"TLS_CERT_FILE":         "",
	"TLS_KEY_FILE":          "",
	"CLIENT_URL":            "http://localhost:3000",
	"MAX_UPLOAD_BYTES":      int64(64 << 20),
	"MONGO_URI":             "mongodb://localhost:27017",
	"MONGO_DB":              "blogsphere",
	"MONGO_MAX_POOL_SIZE":   uint64(25),
	"MONGO_MAX_IDLE_TIME":   15 * time.Minute,
	"MIGRATIONS_PATH":       "file://migrations",
	"MAIL_HOST":             "",
	"MAIL_PORT":             587,
	"MAIL_USER":             "",
	"MAIL_PASSWORD":         "",
	"MAIL_SENDER":           "Blogsphere <no-reply@blogsphere.dev>",
	"RABBITMQ_HOST":         "localhost",
	"RABBITMQ_PORT":         "5672",
	"RABBITMQ_USER":         "guest",
	"RABBITMQ_PASSWORD":     "guest",
	"MEDIA_PROVIDER":        mediaservice.ProviderCloudinary,
	"MEDIA_FOLDER":          "blogsphere",
	"CLOUDINARY_CLOUD_NAME": "",
	"CLOUDINARY_API_KEY":    "",
	"CLOUDINARY_API_SECRET": "",
	"S3_REGION":             "",
	"S3_BUCKET":             "",
	"S3_ENDPOINT":           "",
	"S3_PUBLIC_URL":         "",
	"LIMITER_ENABLED":       true,
	"LIMITER_RPS":           2.0,
	"LIMITER_BURST":         4,
}

// loadConfig reads path when it exists. Environment variables override the
// file and the defaults.
func loadConfig(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) mail() mailservice.Config {
	return mailservice.Config{
		Host:     c.MailHost,
		Port:     c.MailPort,
		Username: c.MailUser,
		Password: c.MailPassword,
		Sender:   c.MailSender,
	}
}

func (c *Config) media() mediaservice.Config {
	return mediaservice.Config{
		Provider:  c.MediaProvider,
		Folder:    c.MediaFolder,
		CloudName: c.CloudinaryCloudName,
		APIKey:    c.CloudinaryAPIKey,
		APISecret: c.CloudinaryAPISecret,
		Region:    c.S3Region,
		Bucket:    c.S3Bucket,
		Endpoint:  c.S3Endpoint,
		PublicURL: c.S3PublicURL,
	}
}
