package configs

import (
	"fmt"
	"net"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func (c DBConfig) DSN() string {
	cfg := mysqldriver.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(c.Host, c.Port)
	cfg.DBName = c.Name
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

func OpenConnection(cfg DBConfig) (*gorm.DB, error) {
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		log.Info().Int("attempt", i+1).Int("max_attempts", maxRetries).Str("host", cfg.Host).Msg("configs: connecting to database")

		db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{
			TranslateError: true,
			Logger:         logger.Default.LogMode(logger.Warn),
		})
		if err == nil {
			sqlDB, pingErr := db.DB()
			if pingErr == nil {
				pingErr = sqlDB.Ping()
				if pingErr == nil {
					log.Info().Msg("configs: database connection successful")
					return db, nil
				}
			}
			lastErr = pingErr
			log.Warn().Err(pingErr).Dur("retry_in", cfg.RetryDelay).Msg("configs: failed to ping database")
		} else {
			lastErr = err
			log.Warn().Err(err).Dur("retry_in", cfg.RetryDelay).Msg("configs: failed to open gorm connection")
		}

		if i < maxRetries-1 {
			time.Sleep(cfg.RetryDelay)
		}
	}

	return nil, fmt.Errorf("failed to connect to the database after %d attempts: %w", maxRetries, lastErr)
}
