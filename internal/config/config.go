package config

import (
	"net"
	"strconv"
)

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	API      APIConfig      `mapstructure:"api" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Log      LogConfig      `mapstructure:"log" validate:"required"`
}

// APIConfig contains all HTTP server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host" validate:"omitempty,ip|hostname"`
	Port        int      `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	CORSOrigins []string `mapstructure:"cors_origins" validate:"dive,url|eq=*"`
}

// Addr returns the host:port the server listens on.
func (c APIConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// LogConfig contains logging settings. Level accepts any severity name the
// logger understands, in any case.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"required,loglevel"`
	Format string `mapstructure:"format" validate:"required,logformat"`
}
