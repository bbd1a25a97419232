package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/phrazzld/activity-logger/internal/platform/logger"
)

// DefaultEnvFile is read when no other .env path is given.
const DefaultEnvFile = ".env"

// Default values, matching what the service used before it read any
// configuration.
const (
	DefaultHost        = "0.0.0.0"
	DefaultPort        = 8000
	DefaultDatabaseURL = "sqlite:///./data/app.db"
	DefaultLogLevel    = "INFO"
	DefaultLogFormat   = "json"
)

// DefaultCORSOrigins are the frontend origins allowed out of the box.
var DefaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://localhost:8000",
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"host":         "api.host",
	"port":         "api.port",
	"cors-origins": "api.cors_origins",
	"database-url": "database.url",
	"log-level":    "log.level",
	"log-format":   "log.format",
}

// LoadOption customizes Load.
type LoadOption func(*loadOptions)

type loadOptions struct {
	envFile string
	flags   *pflag.FlagSet
}

// WithEnvFile sets the .env file path. An empty path disables .env loading.
func WithEnvFile(path string) LoadOption {
	return func(o *loadOptions) {
		o.envFile = path
	}
}

// WithFlags binds flags registered by RegisterFlags. Flags that were set on
// the command line take precedence over the environment.
func WithFlags(flags *pflag.FlagSet) LoadOption {
	return func(o *loadOptions) {
		o.flags = flags
	}
}

// RegisterFlags adds configuration flags to the given flag set.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("host", DefaultHost, "address to listen on")
	flags.Int("port", DefaultPort, "port to listen on")
	flags.StringSlice("cors-origins", DefaultCORSOrigins, "allowed CORS origins")
	flags.String("database-url", DefaultDatabaseURL, "database connection URL")
	flags.String("log-level", DefaultLogLevel, "log level, one of: DEBUG, INFO, WARNING, ERROR, CRITICAL")
	flags.String("log-format", DefaultLogFormat, "log format, one of: json, logfmt")
}

// Load configuration from environment variables, an optional .env file and
// optionally bound flags. Precedence, highest first: flags set on the command
// line, environment variables, .env values, defaults.
// Returns a populated Config struct or an error if loading/validation fails.
func Load(opts ...LoadOption) (*Config, error) {
	o := loadOptions{envFile: DefaultEnvFile}
	for _, opt := range opts {
		opt(&o)
	}

	if err := loadDotEnv(o.envFile); err != nil {
		return nil, fmt.Errorf("failed to read env file %s: %w", o.envFile, err)
	}

	v := viper.New()

	v.SetDefault("api.host", DefaultHost)
	v.SetDefault("api.port", DefaultPort)
	v.SetDefault("api.cors_origins", DefaultCORSOrigins)
	v.SetDefault("database.url", DefaultDatabaseURL)
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)

	// api.port -> API_PORT, database.url -> DATABASE_URL, ...
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if o.flags != nil {
		for name, key := range flagKeys {
			if f := o.flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.API.CORSOrigins = trimAll(cfg.API.CORSOrigins)

	if err := newValidator().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv exports the variables of a .env file that are not already set
// in the process environment. A missing file is not an error.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	ev := viper.New()
	ev.SetConfigFile(path)
	ev.SetConfigType("env")
	if err := ev.ReadInConfig(); err != nil {
		return err
	}

	for _, key := range ev.AllKeys() {
		name := strings.ToUpper(key)
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if err := os.Setenv(name, ev.GetString(key)); err != nil {
			return err
		}
	}
	return nil
}

func newValidator() *validator.Validate {
	validate := validator.New()
	// Registration only fails for empty tags or nil functions.
	_ = validate.RegisterValidation("loglevel", func(fl validator.FieldLevel) bool {
		_, err := logger.ParseLevel(fl.Field().String())
		return err == nil
	})
	_ = validate.RegisterValidation("logformat", func(fl validator.FieldLevel) bool {
		_, err := logger.ParseFormat(fl.Field().String())
		return err == nil
	})
	return validate
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
