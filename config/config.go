package config

import (
	"context"
	"database/sql"
	"log"
	"os"
	"strings"
	"time"

	"menuboard/internal/domain"

	"github.com/joho/godotenv"
	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

type Config struct {
	HTTPAddr      string
	SourceMode    string
	PublicMenuURL string

	RedisHost string
	RedisPort string

	CloudEndpointURL string
	CloudAccessKey   string

	KafkaBroker  string
	KafkaTopic   string
	KafkaGroupID string

	RuntimeDBPath string
}

func Load() Config {
	godotenv.Load()

	return Config{
		HTTPAddr:         getenv("HTTP_ADDR", ":8080"),
		SourceMode:       getenv("SOURCE_MODE", string(domain.ModeCloudRemote)),
		PublicMenuURL:    getenv("PUBLIC_MENU_URL", "http://localhost:8080/menu"),
		RedisHost:        getenv("REDIS_HOST", "localhost"),
		RedisPort:        getenv("REDIS_PORT", "6379"),
		CloudEndpointURL: os.Getenv("CLOUD_ENDPOINT_URL"),
		CloudAccessKey:   os.Getenv("CLOUD_ACCESS_KEY"),
		KafkaBroker:      getenv("KAFKA_BROKER", "localhost:9092"),
		KafkaTopic:       getenv("KAFKA_TOPIC", "catalog-changes"),
		KafkaGroupID:     getenv("KAFKA_GROUP_ID", "menuboard"),
		RuntimeDBPath:    getenv("RUNTIME_DB_PATH", "runtime.db"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func MustInitRedis(cfg Config) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.RedisHost + ":" + cfg.RedisPort,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}

	return client
}

// InitCloudPostgres opens the cloud relational backend. Both opaque
// credentials must be present before any I/O is attempted.
func InitCloudPostgres(cfg Config) (*sql.DB, error) {
	if cfg.CloudEndpointURL == "" {
		return nil, &domain.ConfigurationError{Missing: "CLOUD_ENDPOINT_URL"}
	}
	if cfg.CloudAccessKey == "" {
		return nil, &domain.ConfigurationError{Missing: "CLOUD_ACCESS_KEY"}
	}

	connStr := cfg.CloudEndpointURL
	if strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://") {
		parsed, err := pq.ParseURL(connStr)
		if err != nil {
			return nil, &domain.ConfigurationError{Missing: "valid CLOUD_ENDPOINT_URL"}
		}
		connStr = parsed
	}
	connStr += " password=" + cfg.CloudAccessKey

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, &domain.TransportError{Op: "open cloud backend", Err: err}
	}

	if err = db.Ping(); err != nil {
		return nil, &domain.TransportError{Op: "ping cloud backend", Err: err}
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	return db, nil
}
