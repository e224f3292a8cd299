package config

import (
	"fmt"
	"net/url"
	"time"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Firebase  FirebaseConfig  `yaml:"firebase"`
	Store     StoreConfig     `yaml:"store"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Policy    PolicyConfig    `yaml:"policy"`
}

type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
	MaxBodyBytes     int64         `yaml:"max_body_bytes"`
}

type FirebaseConfig struct {
	ProjectID             string `yaml:"project_id"`
	CredentialsFile       string `yaml:"credentials_file"`
	CheckRevoked          bool   `yaml:"check_revoked"`
	DatabaseID            string `yaml:"database_id"`
	FirestoreEmulatorHost string `yaml:"firestore_emulator_host"`
	AuthEmulatorHost      string `yaml:"auth_emulator_host"`
}

// Store drivers.
const (
	DriverFirestore = "firestore"
	DriverPostgres  = "postgres"
	DriverMemory    = "memory"
)

type StoreConfig struct {
	Driver string `yaml:"driver"`
}

type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Name            string        `yaml:"name"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslmode"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	AutoMigrate     bool          `yaml:"auto_migrate"`
}

func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   "/" + d.Name,
	}
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	u.RawQuery = "sslmode=" + url.QueryEscape(sslmode)
	return u.String()
}

type RedisConfig struct {
	Addresses        []string      `yaml:"addresses"`
	Password         string        `yaml:"password"`
	DB               int           `yaml:"db"`
	PoolSize         int           `yaml:"pool_size"`
	IdentityCacheTTL time.Duration `yaml:"identity_cache_ttl"`
}

type TelemetryConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	MetricsPort int    `yaml:"metrics_port"`
}

type PolicyConfig struct {
	Enabled           bool          `yaml:"enabled"`
	BundlePath        string        `yaml:"bundle_path"`
	EvaluationTimeout time.Duration `yaml:"evaluation_timeout"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8080,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     120 * time.Second,
			IdleTimeout:      120 * time.Second,
			GracefulShutdown: 30 * time.Second,
			MaxBodyBytes:     10 << 20,
		},
		Store: StoreConfig{
			Driver: DriverFirestore,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Name:            "taskmind",
			User:            "taskmind",
			SSLMode:         "disable",
			MaxConns:        10,
			MinConns:        1,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Redis: RedisConfig{
			DB:               0,
			PoolSize:         50,
			IdentityCacheTTL: 5 * time.Minute,
		},
		Telemetry: TelemetryConfig{
			LogLevel:    "info",
			LogFormat:   "json",
			MetricsPort: 9090,
		},
		Policy: PolicyConfig{
			Enabled:           true,
			EvaluationTimeout: 100 * time.Millisecond,
		},
	}
}
