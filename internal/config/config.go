package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	AMQP     AMQPConfig
	SMTP     SMTPConfig
	Auth     AuthConfig
	App      AppConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type PostgresConfig struct {
	User     string
	Password string
	Name     string
	Host     string
	Port     int
	SSLMode  string
}

type AMQPConfig struct {
	URL      string
	Exchange string
	Queue    string
}

type SMTPConfig struct {
	Addr     string
	Host     string
	From     string
	Password string
}

type AuthConfig struct {
	JWTSecret string
}

type AppConfig struct {
	// BaseURL prefixes the accept links embedded in invite emails.
	BaseURL       string
	RateLimit     int
	InviteTTLDays int
}

func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	serverHost := os.Getenv("SERVER_HOST")
	if serverHost == "" {
		serverHost = "localhost"
	}

	serverPortStr := os.Getenv("SERVER_PORT")
	if serverPortStr == "" {
		serverPortStr = "8080"
	}

	serverPort, err := strconv.Atoi(serverPortStr)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid SERVER_PORT: %w", op, err)
	}

	serverCfg := ServerConfig{
		Host: serverHost,
		Port: serverPort,
	}

	postgresHost := os.Getenv("POSTGRES_HOST")
	if postgresHost == "" {
		postgresHost = "localhost"
	}

	postgresPortStr := os.Getenv("POSTGRES_PORT")
	if postgresPortStr == "" {
		postgresPortStr = "5432"
	}

	postgresPort, err := strconv.Atoi(postgresPortStr)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid POSTGRES_PORT: %w", op, err)
	}

	postgresUser := os.Getenv("POSTGRES_USER")
	if postgresUser == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_USER", op)
	}

	postgresPassword := os.Getenv("POSTGRES_PASSWORD")
	if postgresPassword == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_PASSWORD", op)
	}

	postgresDB := os.Getenv("POSTGRES_DB")
	if postgresDB == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_DB", op)
	}

	postgresSSLMode := os.Getenv("POSTGRES_SSLMODE")
	if postgresSSLMode == "" {
		postgresSSLMode = "disable"
	}

	postgresCfg := PostgresConfig{
		User:     postgresUser,
		Password: postgresPassword,
		Name:     postgresDB,
		Host:     postgresHost,
		Port:     postgresPort,
		SSLMode:  postgresSSLMode,
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	redisCfg := RedisConfig{
		Addr:     redisAddr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	}

	amqpCfg := AMQPConfig{
		URL:      os.Getenv("AMQP_URL"),
		Exchange: os.Getenv("AMQP_EXCHANGE"),
		Queue:    os.Getenv("AMQP_QUEUE"),
	}
	if amqpCfg.Exchange == "" {
		amqpCfg.Exchange = "restobook.notifications"
	}
	if amqpCfg.Queue == "" {
		amqpCfg.Queue = "restobook.notifications.email"
	}

	smtpAddr := os.Getenv("SMTP_ADDR")
	if smtpAddr == "" {
		smtpAddr = "localhost:587"
	}

	smtpHost := os.Getenv("SMTP_HOST")
	if smtpHost == "" {
		smtpHost = "localhost"
	}

	smtpCfg := SMTPConfig{
		Addr:     smtpAddr,
		Host:     smtpHost,
		From:     os.Getenv("SMTP_FROM"),
		Password: os.Getenv("SMTP_PASSWORD"),
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("%s: missing JWT_SECRET", op)
	}

	baseURL := os.Getenv("APP_BASE_URL")
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://%s:%d", serverHost, serverPort)
	}

	rateLimitStr := os.Getenv("APP_RATE_LIMIT")
	if rateLimitStr == "" {
		rateLimitStr = "10"
	}

	rateLimit, err := strconv.Atoi(rateLimitStr)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid APP_RATE_LIMIT: %w", op, err)
	}

	inviteTTLStr := os.Getenv("APP_INVITE_TTL_DAYS")
	if inviteTTLStr == "" {
		inviteTTLStr = "14"
	}

	inviteTTL, err := strconv.Atoi(inviteTTLStr)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid APP_INVITE_TTL_DAYS: %w", op, err)
	}

	return &Config{
		Server:   serverCfg,
		Postgres: postgresCfg,
		Redis:    redisCfg,
		AMQP:     amqpCfg,
		SMTP:     smtpCfg,
		Auth:     AuthConfig{JWTSecret: jwtSecret},
		App: AppConfig{
			BaseURL:       baseURL,
			RateLimit:     rateLimit,
			InviteTTLDays: inviteTTL,
		},
	}, nil
}
