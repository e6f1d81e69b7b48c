// Package config assembles the service configuration from defaults, an
// optional JSON or YAML file, environment variables and command-line flags,
// in increasing order of priority.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrMissingJWTSecret is returned when no token signing secret is configured.
var ErrMissingJWTSecret = errors.New("JWT_SECRET is not set")

type Config struct {
	RunAddr             string        `env:"SERVER_ADDRESS" json:"server_address" yaml:"server_address" validate:"hostname_port"`
	GRPCAddr            string        `env:"GRPC_ADDRESS" json:"grpc_address" yaml:"grpc_address" validate:"omitempty,hostname_port"`
	LogLevel            string        `env:"LOG_LEVEL" json:"log_level" yaml:"log_level" validate:"loglevel"`
	DBFileName          string        `env:"FILE_STORAGE_PATH" json:"file_storage_path" yaml:"file_storage_path" validate:"filepath"`
	DatabaseDSN         string        `env:"DATABASE_DSN" json:"database_dsn" yaml:"database_dsn"`
	DBConnectionTimeout time.Duration `env:"DB_CONNECTION_TIMEOUT" json:"db_connection_timeout" yaml:"db_connection_timeout" validate:"gt=0"`
	MigrationsDir       string        `env:"MIGRATIONS_DIR" json:"migrations_dir" yaml:"migrations_dir"`
	JWTSecret           string        `env:"JWT_SECRET" json:"jwt_secret" yaml:"jwt_secret"`
	TrustedSubnet       string        `env:"TRUSTED_SUBNET" json:"trusted_subnet" yaml:"trusted_subnet" validate:"omitempty,cidr"`
	EnableGzip          bool          `env:"ENABLE_GZIP" json:"enable_gzip" yaml:"enable_gzip"`
}

var defaultConfig = Config{
	RunAddr:             ":8080",
	GRPCAddr:            ":3200",
	LogLevel:            "info",
	DBFileName:          "",
	DatabaseDSN:         "",
	DBConnectionTimeout: 10 * time.Second,
	MigrationsDir:       "migrations",
	JWTSecret:           "",
	TrustedSubnet:       "",
	EnableGzip:          true,
}

func validateFilePath(fieldLevel validator.FieldLevel) bool {
	path := fieldLevel.Field().String()
	_, err := os.Stat(path)

	return err == nil || os.IsNotExist(err)
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	value := fieldLevel.Field().String()

	allowedLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}

	return allowedLogLevels[value]
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return ErrMissingJWTSecret
	}

	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("filepath", validateFilePath)
	if err != nil {
		return err
	}

	return validate.Struct(c)
}

type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
	args                []string
}

func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// WithArgs replaces os.Args[1:] as the source of command-line flags.
func WithArgs(args []string) InitOption {
	return func(options *initOptions) {
		options.args = args
	}
}

type flagValues struct {
	configPath string
	values     Config
	set        map[string]bool
}

func parseFlags(args []string) (*flagValues, error) {
	result := &flagValues{set: map[string]bool{}}

	fs := flag.NewFlagSet("bookmarks", flag.ContinueOnError)
	fs.StringVar(&result.configPath, "c", "", "path to a JSON or YAML config file")
	fs.StringVar(&result.values.RunAddr, "a", defaultConfig.RunAddr, "address and port to run HTTP server")
	fs.StringVar(&result.values.GRPCAddr, "g", defaultConfig.GRPCAddr, "address and port to run gRPC server")
	fs.StringVar(&result.values.LogLevel, "l", defaultConfig.LogLevel, "logger level")
	fs.StringVar(&result.values.DBFileName, "f", defaultConfig.DBFileName, "JSON file name with database")
	fs.StringVar(&result.values.DatabaseDSN, "d", defaultConfig.DatabaseDSN, "A string with the database connection details")
	fs.StringVar(&result.values.MigrationsDir, "m", defaultConfig.MigrationsDir, "directory with goose migrations")
	fs.StringVar(&result.values.TrustedSubnet, "t", defaultConfig.TrustedSubnet, "CIDR allowed to read internal stats")
	fs.BoolVar(&result.values.EnableGzip, "z", defaultConfig.EnableGzip, "enable gzip compression")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) {
		result.set[f.Name] = true
	})

	return result, nil
}

func (f *flagValues) applyTo(c *Config) {
	if f.set["a"] {
		c.RunAddr = f.values.RunAddr
	}
	if f.set["g"] {
		c.GRPCAddr = f.values.GRPCAddr
	}
	if f.set["l"] {
		c.LogLevel = f.values.LogLevel
	}
	if f.set["f"] {
		c.DBFileName = f.values.DBFileName
	}
	if f.set["d"] {
		c.DatabaseDSN = f.values.DatabaseDSN
	}
	if f.set["m"] {
		c.MigrationsDir = f.values.MigrationsDir
	}
	if f.set["t"] {
		c.TrustedSubnet = f.values.TrustedSubnet
	}
	if f.set["z"] {
		c.EnableGzip = f.values.EnableGzip
	}
}

func loadFile(path string, c *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("in internal/config/config.go/loadFile(): error while `os.ReadFile()` calling: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	default:
		err = json.Unmarshal(data, c)
	}
	if err != nil {
		return fmt.Errorf("in internal/config/config.go/loadFile(): error while decoding %s: %w", path, err)
	}

	return nil
}

// New builds a validated Config. A missing JWT secret is reported as ErrMissingJWTSecret.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
		args:                nil,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}
	if options.args == nil && len(os.Args) > 1 {
		options.args = os.Args[1:]
	}

	err := godotenv.Load()
	if err != nil {
		log.Printf("Unable to load .env file: %v", err)
	}

	flags := &flagValues{set: map[string]bool{}}
	if !options.disableFlagsParsing {
		flags, err = parseFlags(options.args)
		if err != nil {
			return nil, fmt.Errorf("in internal/config/config.go/New(): error while `parseFlags()` calling: %w", err)
		}
	}

	values := defaultConfig

	configPath := flags.configPath
	if configPath == "" {
		configPath = os.Getenv("CONFIG")
	}
	if configPath != "" {
		if err := loadFile(configPath, &values); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(&values); err != nil {
		return nil, fmt.Errorf("in internal/config/config.go/New(): error while `env.Parse()` calling: %w", err)
	}

	flags.applyTo(&values)

	if err := values.validate(); err != nil {
		return nil, err
	}

	return &values, nil
}
