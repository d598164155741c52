package server

import (
	"time"

	"github.com/kumarketplace/marketplace/config"
	"github.com/kumarketplace/marketplace/pkg/database"
	"github.com/kumarketplace/marketplace/pkg/mail"
)

// Settings is the process configuration, read once from config and passed
// down to constructors.
type Settings struct {
	Port       string
	Production bool

	Database database.Options

	JWTSecret string
	JWTTTL    time.Duration

	QueueDriver   string // memory | redis
	QueueWorkers  int
	QueueMaxRetry int
	RedisAddr     string
	RedisPassword string

	Mail          mail.SMTP
	AdminEmail    string
	AdminPassword string // seed only

	CORSOrigins    []string
	TrustProxy     bool
	AuthRateLimit  int
	AuthRateWindow time.Duration
	MaxBodyBytes   int64

	LogMongoURI        string
	LogMongoDB         string
	LogMongoCollection string
}

// FromConfig loads config and snapshots it into Settings.
func FromConfig() (Settings, error) {
	if err := config.Load(); err != nil {
		return Settings{}, err
	}

	return Settings{
		Port:       config.AppPort(),
		Production: config.IsProduction(),
		Database: database.Options{
			Driver:       config.DatabaseDriver(),
			DSN:          config.DatabaseDSN(),
			MaxOpenConns: config.DatabaseMaxOpenConns(),
			MaxIdleConns: config.DatabaseMaxIdleConns(),
			SlowQuery:    config.DatabaseSlowQuery(),
			Metrics:      true,
		},
		JWTSecret:     config.JWTSecret(),
		JWTTTL:        config.JWTTTL(),
		QueueDriver:   config.QueueDriver(),
		QueueWorkers:  config.QueueWorkers(),
		QueueMaxRetry: config.QueueMaxRetry(),
		RedisAddr:     config.RedisAddr(),
		RedisPassword: config.RedisPassword(),
		Mail: mail.SMTP{
			Host:     config.MailHost(),
			Port:     config.MailPort(),
			Username: config.MailUsername(),
			Password: config.MailPassword(),
			From:     config.MailFrom(),
			FromName: config.MailFromName(),
		},
		AdminEmail:         config.AdminEmail(),
		AdminPassword:      config.AdminPassword(),
		CORSOrigins:        config.CORSOrigins(),
		TrustProxy:         config.TrustProxy(),
		AuthRateLimit:      config.AuthRateLimit(),
		AuthRateWindow:     config.AuthRateWindow(),
		MaxBodyBytes:       config.MaxBodyBytes(),
		LogMongoURI:        config.LogMongoURI(),
		LogMongoDB:         config.LogMongoDB(),
		LogMongoCollection: config.LogMongoCollection(),
	}, nil
}
