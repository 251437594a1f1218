package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type (
	Container struct {
		App   *App
		Token *Token
		DB    *DB
		HTTP  *HTTP
		Redis *Redis
		Kafka *Kafka
		S3    *S3
		OSRM  *OSRM
		Rides *Rides
	}

	App struct {
		Name     string
		Env      string
		LogLevel string
	}

	Token struct {
		Secret   string
		Duration time.Duration
	}

	// DB is optional; without a DSN or host the service keeps its state in memory.
	DB struct {
		DSN           string
		Host          string
		Port          string
		User          string
		Password      string
		Name          string
		MigrationsDir string
	}

	HTTP struct {
		Env             string
		Port            string
		AllowedOrigins  []string
		URL             string
		ShutdownTimeout time.Duration
	}

	Redis struct {
		Address  string
		Password string
	}

	Kafka struct {
		Brokers []string
		Topic   string
	}

	S3 struct {
		Region          string
		Bucket          string
		Endpoint        string
		AccessKeyID     string
		SecretAccessKey string
	}

	OSRM struct {
		Endpoint string
		Timeout  time.Duration
	}

	Rides struct {
		PageSize int
	}
)

func defaults() *Container {
	return &Container{
		App:   &App{Name: "safaride-ride-service", Env: "development"},
		Token: &Token{Duration: 24 * time.Hour},
		DB:    &DB{Port: "5432", MigrationsDir: "./internal/adapter/postgres/migrations"},
		HTTP: &HTTP{
			Port:            "8081",
			AllowedOrigins:  []string{"*"},
			ShutdownTimeout: 30 * time.Second,
		},
		Redis: &Redis{},
		Kafka: &Kafka{Topic: "safaride.ride-events"},
		S3:    &S3{Region: "eu-west-1"},
		OSRM:  &OSRM{Timeout: 5 * time.Second},
		Rides: &Rides{PageSize: 50},
	}
}

func New() (*Container, error) {
	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := defaults()
	var errs []error

	setString(&cfg.App.Name, "APP_NAME")
	setString(&cfg.App.Env, "APP_ENV")
	setString(&cfg.App.LogLevel, "LOG_LEVEL")
	cfg.App.LogLevel = strings.ToLower(cfg.App.LogLevel)

	cfg.Token.Secret = os.Getenv("TOKEN_SECRET")
	setDuration(&cfg.Token.Duration, "TOKEN_DURATION", &errs)

	cfg.DB.DSN = strings.TrimSpace(os.Getenv("DB_DSN"))
	cfg.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	setString(&cfg.DB.Port, "DB_PORT")
	cfg.DB.User = os.Getenv("DB_USER")
	cfg.DB.Password = os.Getenv("DB_PASSWORD")
	cfg.DB.Name = os.Getenv("DB_NAME")
	setString(&cfg.DB.MigrationsDir, "DB_MIGRATIONS_DIR")

	cfg.HTTP.Env = cfg.App.Env
	setString(&cfg.HTTP.Port, "HTTP_PORT")
	cfg.HTTP.URL = os.Getenv("HTTP_URL")
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitAndTrim(v)
	}
	setDuration(&cfg.HTTP.ShutdownTimeout, "HTTP_SHUTDOWN_TIMEOUT", &errs)

	cfg.Redis.Address = strings.TrimSpace(os.Getenv("REDIS_ADDRESS"))
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = splitAndTrim(v)
	}
	setString(&cfg.Kafka.Topic, "KAFKA_TOPIC")

	setString(&cfg.S3.Region, "S3_REGION")
	cfg.S3.Bucket = strings.TrimSpace(os.Getenv("S3_BUCKET"))
	cfg.S3.Endpoint = os.Getenv("S3_ENDPOINT")
	cfg.S3.AccessKeyID = os.Getenv("S3_ACCESS_KEY_ID")
	cfg.S3.SecretAccessKey = os.Getenv("S3_SECRET_ACCESS_KEY")

	cfg.OSRM.Endpoint = strings.TrimSpace(os.Getenv("OSRM_ENDPOINT"))
	setDuration(&cfg.OSRM.Timeout, "OSRM_TIMEOUT", &errs)

	setInt(&cfg.Rides.PageSize, "RIDES_PAGE_SIZE", &errs)

	if cfg.Token.Secret == "" {
		errs = append(errs, errors.New("TOKEN_SECRET is required"))
	}
	if cfg.Token.Duration <= 0 {
		errs = append(errs, errors.New("TOKEN_DURATION must be > 0"))
	}
	if cfg.Rides.PageSize <= 0 {
		errs = append(errs, errors.New("RIDES_PAGE_SIZE must be > 0"))
	}

	return cfg, errors.Join(errs...)
}

// PostgresDSN returns the configured DSN, building one from the host fields
// when needed. An empty result means no database is configured.
func (d *DB) PostgresDSN() string {
	if d.DSN != "" {
		return d.DSN
	}
	if d.Host == "" {
		return ""
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Password, d.Name)
}

func (h *HTTP) Addr() string {
	return fmt.Sprintf("%s:%s", h.URL, h.Port)
}

func setString(target *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*target = v
	}
}

func setDuration(target *time.Duration, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = d
	}
}

func setInt(target *int, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = i
	}
}

func splitAndTrim(v string) []string {
	raw := strings.Split(v, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
