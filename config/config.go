package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ardanlabs/conf"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tbd54566975/did-resolution-conformance/pkg/storage"
)

const (
	DefaultConfigPath = "config/config.toml"
	ConfigFileName    = "config.toml"
	ConfigExtension   = ".toml"
	DefaultEnvPath    = ".env"
)

type EnvironmentVariable string

const (
	ConfigPath EnvironmentVariable = "CONFIG_PATH"
	EnvPath    EnvironmentVariable = "ENV_PATH"
)

func (e EnvironmentVariable) String() string {
	return string(e)
}

type ConformanceConfig struct {
	conf.Version
	Harness HarnessConfig `toml:"harness"`
	Report  ReportConfig  `toml:"report"`
	Server  ServerConfig  `toml:"server"`

	Implementations Registry `toml:"implementations" conf:"-"`
}

// HarnessConfig represents configurable properties of a conformance run
type HarnessConfig struct {
	RequestTimeout   time.Duration `toml:"request_timeout" conf:"default:30s"`
	ReadinessTimeout time.Duration `toml:"readiness_timeout" conf:"default:0s"`
	Parallelism      int           `toml:"parallelism" conf:"default:4"`

	// StrictErrorMetadata requires didDocumentMetadata to be exactly {} on error.
	StrictErrorMetadata bool `toml:"strict_error_metadata" conf:"default:true"`
	// AllowRepresentationFallback accepts a 200 in place of a 406 for an unsupported representation.
	AllowRepresentationFallback bool `toml:"allow_representation_fallback" conf:"default:true"`
	SchemaValidation            bool `toml:"schema_validation" conf:"default:false"`
	// RequireTLS fails endpoints that are not https.
	RequireTLS bool `toml:"require_tls" conf:"default:false"`

	// Tags selects implementations; empty selects all of them.
	Tags []string `toml:"tags" conf:"-"`

	LogLocation   string `toml:"log_location" conf:"default:log"`
	LogLevel      string `toml:"log_level" conf:"default:info"`
	JaegerHost    string `toml:"jaeger_host" conf:"default:http://jaeger:14268/api/traces"`
	JaegerEnabled bool   `toml:"jaeger_enabled" conf:"default:false"`
}

// ReportConfig represents where and how run reports are written
type ReportConfig struct {
	Format string `toml:"format" conf:"default:text"`
	// Output is a file path; empty writes to stdout.
	Output string `toml:"output"`

	// Storage is one of bolt, redis, postgres or memory. Empty disables persistence.
	Storage       string `toml:"storage"`
	BoltFile      string `toml:"bolt_file" conf:"default:conformance.db"`
	RedisAddress  string `toml:"redis_address"`
	RedisPassword string `toml:"redis_password" conf:"noprint"`
	PostgresDSN   string `toml:"postgres_dsn" conf:"noprint"`
}

// StorageOptions returns the provider options for the configured storage.
func (r ReportConfig) StorageOptions() []storage.Option {
	switch storage.Type(r.Storage) {
	case storage.Bolt:
		return []storage.Option{{ID: storage.BoltDBFilePathOption, Option: r.BoltFile}}
	case storage.Redis:
		return []storage.Option{
			{ID: storage.RedisAddressOption, Option: r.RedisAddress},
			{ID: storage.PasswordOption, Option: r.RedisPassword},
		}
	case storage.Postgres:
		return []storage.Option{{ID: storage.SQLConnectionOption, Option: r.PostgresDSN}}
	default:
		return nil
	}
}

// ServerConfig represents configurable properties for the reference resolver's HTTP server
type ServerConfig struct {
	APIHost         string        `toml:"api_host" conf:"default:0.0.0.0:8080"`
	BasePath        string        `toml:"base_path" conf:"default:/1.0/identifiers"`
	ReadTimeout     time.Duration `toml:"read_timeout" conf:"default:5s"`
	WriteTimeout    time.Duration `toml:"write_timeout" conf:"default:5s"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout" conf:"default:5s"`
	LogLocation     string        `toml:"log_location" conf:"default:log"`
	LogLevel        string        `toml:"log_level" conf:"default:debug"`
	// RepresentationFallback answers unsupported Accept types with did+json instead of 406.
	RepresentationFallback bool `toml:"representation_fallback" conf:"default:false"`
}

// LoadConfig attempts to load a TOML config file from the given path, and coerce it into our object model.
// Before loading, defaults are applied on certain properties, which are overwritten if specified in the TOML file.
// Returns nil without error when help or version output was requested.
func LoadConfig(path string) (*ConformanceConfig, error) {
	// no path, load default config
	defaultConfig := false
	if path == "" {
		logrus.Info("no config path provided, loading default config...")
		defaultConfig = true
	} else if filepath.Ext(path) != ConfigExtension {
		return nil, fmt.Errorf("path<%s> did not match the expected TOML format", path)
	}

	if err := loadEnv(); err != nil {
		return nil, err
	}

	var config ConformanceConfig
	config.Version = conf.Version{SVN: Version(), Desc: Description()}

	// parse and apply defaults
	if err := conf.Parse(os.Args[1:], Name(), &config); err != nil {
		switch {
		case errors.Is(err, conf.ErrHelpWanted):
			usage, err := conf.Usage(Name(), &config)
			if err != nil {
				return nil, errors.Wrap(err, "parsing config")
			}
			fmt.Println(usage)
			return nil, nil

		case errors.Is(err, conf.ErrVersionWanted):
			version, err := conf.VersionString(Name(), &config)
			if err != nil {
				return nil, errors.Wrap(err, "generating config version")
			}
			fmt.Println(version)
			return nil, nil
		}

		return nil, errors.Wrap(err, "parsing config")
	}

	if !defaultConfig {
		// load from TOML file
		if _, err := toml.DecodeFile(path, &config); err != nil {
			return nil, errors.Wrapf(err, "could not load config: %s", path)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return &config, nil
}

// Validate checks the settings that defaults cannot fix.
func (c *ConformanceConfig) Validate() error {
	if c.Harness.Parallelism < 1 {
		return errors.Errorf("harness parallelism must be at least 1, got %d", c.Harness.Parallelism)
	}
	switch c.Report.Format {
	case "text", "json":
	default:
		return errors.Errorf("unknown report format<%s>", c.Report.Format)
	}
	if strings.Trim(c.Server.BasePath, "/") == "" {
		return errors.New("server base_path must not be empty")
	}
	if c.Report.Storage != "" {
		switch storage.Type(c.Report.Storage) {
		case storage.Bolt, storage.Redis, storage.Postgres, storage.Memory:
		default:
			return errors.Errorf("unsupported report storage<%s>", c.Report.Storage)
		}
	}
	return c.Implementations.Validate()
}

// loadEnv loads a .env file into the environment so that ardanlabs/conf can pick up its values. A missing file is
// not an error.
func loadEnv() error {
	envPath := DefaultEnvPath
	if p, ok := os.LookupEnv(EnvPath.String()); ok {
		envPath = p
	}
	if _, err := os.Stat(envPath); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(envPath); err != nil {
		return errors.Wrapf(err, "loading env file<%s>", envPath)
	}
	logrus.Infof("loaded environment from %s", envPath)
	return nil
}
