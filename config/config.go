package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/searchktools/pageserver/core/http"
)

// EnvPrefix is prepended to every environment variable name
const EnvPrefix = "PAGESERVER_"

// ErrInvalidConfig wraps every validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all application configuration.
type Config struct {
	Port     int    `env:"PORT" envDefault:"8080"`
	Root     string `env:"ROOT" envDefault:"./routes"`
	PageFile string `env:"PAGE_FILE" envDefault:"page.html"`

	// Capacity is the number of connection slots and the listen backlog
	Capacity int `env:"CAPACITY" envDefault:"24"`

	RequestBufferSize int `env:"REQUEST_BUFFER_SIZE" envDefault:"2048"`
	HeaderBufferSize  int `env:"HEADER_BUFFER_SIZE" envDefault:"2048"`
	ChunkSize         int `env:"CHUNK_SIZE" envDefault:"4096"`

	MaxMethodLen  int `env:"MAX_METHOD_LEN" envDefault:"15"`
	MaxURILen     int `env:"MAX_URI_LEN" envDefault:"255"`
	MaxVersionLen int `env:"MAX_VERSION_LEN" envDefault:"15"`
	MaxPathLen    int `env:"MAX_PATH_LEN" envDefault:"511"`

	// IdleTimeout releases connections that made no progress for this long.
	// Zero disables the sweep.
	IdleTimeout time.Duration `env:"IDLE_TIMEOUT" envDefault:"0s"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"auto"`
	Env       string `env:"ENV" envDefault:"development"`
}

// Default returns the built-in configuration taken from the envDefault tags
func Default() Config {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: map[string]string{}}); err != nil {
		panic(fmt.Sprintf("config: bad envDefault tag: %v", err))
	}
	return cfg
}

// Load builds the configuration from an optional dotenv file, PAGESERVER_*
// environment variables and command-line flags, in increasing precedence.
// args excludes the program name.
func Load(args []string) (Config, error) {
	def := Default()

	fset := flag.NewFlagSet("pageserver", flag.ContinueOnError)
	var (
		port        = fset.Int("port", def.Port, "HTTP server port")
		root        = fset.String("root", def.Root, "Document root holding <route>/page.html files")
		capacity    = fset.Int("capacity", def.Capacity, "Maximum concurrent connections")
		idleTimeout = fset.Duration("idle-timeout", def.IdleTimeout, "Release connections idle this long (0 disables)")
		logLevel    = fset.String("log-level", def.LogLevel, "Log level (debug/info/warn/error)")
		logFormat   = fset.String("log-format", def.LogFormat, "Log format (auto/text/json)")
		envName     = fset.String("env", def.Env, "Environment (development/production)")
		envFile     = fset.String("env-file", ".env", "Dotenv file loaded before reading the environment")
	)
	if err := fset.Parse(args); err != nil {
		return Config{}, err
	}

	if err := loadDotenv(*envFile); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	// Only flags given explicitly override the environment
	fset.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Port = *port
		case "root":
			cfg.Root = *root
		case "capacity":
			cfg.Capacity = *capacity
		case "idle-timeout":
			cfg.IdleTimeout = *idleTimeout
		case "log-level":
			cfg.LogLevel = *logLevel
		case "log-format":
			cfg.LogFormat = *logFormat
		case "env":
			cfg.Env = *envName
		}
	})

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadDotenv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Validate checks that the configuration can run a server
func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	}
	if c.Root == "" {
		return fmt.Errorf("%w: empty document root", ErrInvalidConfig)
	}
	if c.PageFile == "" || strings.Contains(c.PageFile, "/") {
		return fmt.Errorf("%w: page file %q must be a plain file name", ErrInvalidConfig, c.PageFile)
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("%w: negative idle timeout", ErrInvalidConfig)
	}

	positive := []struct {
		name string
		v    int
	}{
		{"capacity", c.Capacity},
		{"request buffer size", c.RequestBufferSize},
		{"header buffer size", c.HeaderBufferSize},
		{"chunk size", c.ChunkSize},
		{"max method length", c.MaxMethodLen},
		{"max URI length", c.MaxURILen},
		{"max version length", c.MaxVersionLen},
		{"max path length", c.MaxPathLen},
	}
	for _, p := range positive {
		if p.v <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidConfig, p.name, p.v)
		}
	}
	return nil
}

// Limits returns the request-line token limits
func (c Config) Limits() http.Limits {
	return http.Limits{
		MaxMethodLen:  c.MaxMethodLen,
		MaxURILen:     c.MaxURILen,
		MaxVersionLen: c.MaxVersionLen,
	}
}

// IsProduction reports whether the server runs in the production environment
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}
