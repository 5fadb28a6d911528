package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort  string `env:"SERVER_PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"`

	FirebaseProject         string `env:"FIREBASE_PROJECT_ID"`
	FirebaseCredentialsJSON string `env:"FIREBASE_SERVICE_ACCOUNT_JSON"`
	FirebaseCredentialsPath string `env:"FIREBASE_SERVICE_ACCOUNT_PATH"`

	// StoreBackend selects the conversation store: "firestore" or "memory".
	StoreBackend string `env:"STORE_BACKEND" env-default:"firestore"`

	// MediaBackend selects where chat images are uploaded: "gcs", "s3" or "none".
	MediaBackend  string `env:"MEDIA_BACKEND" env-default:"gcs"`
	StorageBucket string `env:"STORAGE_BUCKET"`
	S3            S3

	PushEnabled bool `env:"PUSH_ENABLED" env-default:"true"`

	// AllowedOrigins restricts CORS and websocket origins. Empty allows all.
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" env-separator:","`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"10s"`

	RateLimit RateLimit
}

// S3 holds S3/MinIO storage configuration
type S3 struct {
	Endpoint        string `env:"S3_ENDPOINT" env-default:"http://localhost:9000"`
	AccessKeyID     string `env:"S3_ACCESS_KEY_ID" env-default:"minioadmin"`
	SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY" env-default:"minioadmin"`
	Bucket          string `env:"S3_BUCKET" env-default:"chat-media"`
	Region          string `env:"S3_REGION" env-default:"us-east-1"`
	PublicURL       string `env:"S3_PUBLIC_URL" env-default:"http://localhost:9000/chat-media"`
}

type RateLimit struct {
	SendMessageBurst int           `env:"RATE_SEND_MESSAGE_BURST" env-default:"10"`
	SendMessageEvery time.Duration `env:"RATE_SEND_MESSAGE_EVERY" env-default:"6s"`
	CreateGroupBurst int           `env:"RATE_CREATE_GROUP_BURST" env-default:"5"`
	CreateGroupEvery time.Duration `env:"RATE_CREATE_GROUP_EVERY" env-default:"12m"`
	RequestBurst     int           `env:"RATE_REQUEST_BURST" env-default:"120"`
	RequestEvery     time.Duration `env:"RATE_REQUEST_EVERY" env-default:"500ms"`
}

func Load() (*Config, error) {
	// .env is optional outside local development
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if cfg.StoreBackend == "firestore" && cfg.FirebaseProject == "" {
		return nil, fmt.Errorf("FIREBASE_PROJECT_ID is required when STORE_BACKEND=firestore")
	}

	switch cfg.MediaBackend {
	case "gcs", "s3", "none":
	default:
		return nil, fmt.Errorf("unknown MEDIA_BACKEND %q", cfg.MediaBackend)
	}

	return &cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
