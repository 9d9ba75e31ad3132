package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime string
}

type AuthConfig struct {
	AccessSecret string
}

type LedgerConfig struct {
	// DepositCapDivisor caps a client deposit at pending/<divisor>.
	DepositCapDivisor int64
	// BestClientsLimit is the default limit for the best-clients report.
	BestClientsLimit int
}

type Config struct {
	Environment string
	HTTP        HTTPConfig
	DB          DBConfig
	Auth        AuthConfig
	Ledger      LedgerConfig
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AddConfigPath("./internal/config")
	v.AutomaticEnv()

	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host: v.GetString("HTTP_HOST"),
			Port: v.GetInt("HTTP_PORT"),
		},
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetString("DB_CONN_MAX_LIFETIME"),
		},
		Auth: AuthConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
		},
		Ledger: LedgerConfig{
			DepositCapDivisor: v.GetInt64("DEPOSIT_CAP_DIVISOR"),
			BestClientsLimit:  v.GetInt("BEST_CLIENTS_LIMIT"),
		},
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 7092
	}
	if cfg.Ledger.DepositCapDivisor == 0 {
		cfg.Ledger.DepositCapDivisor = 4
	}
	if cfg.Ledger.BestClientsLimit == 0 {
		cfg.Ledger.BestClientsLimit = 2
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if cfg.Auth.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.Ledger.DepositCapDivisor < 1 {
		return fmt.Errorf("DEPOSIT_CAP_DIVISOR must be positive")
	}
	if cfg.Ledger.BestClientsLimit < 1 {
		return fmt.Errorf("BEST_CLIENTS_LIMIT must be positive")
	}
	return nil
}
