// Package config assembles the application settings from built-in defaults,
// a JSON settings file, environment variables (optionally from .env) and
// command line flags, in increasing order of priority.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/linkshrt/internal/models"
)

// DefaultSettingsFile is read when neither -c nor CONFIG name a settings file.
const DefaultSettingsFile = "settings.json"

// ErrUnsupportedDatabase is returned when database.type names an engine the store cannot serve.
var ErrUnsupportedDatabase = errors.New("unsupported database engine")

type Database struct {
	Type         string   `json:"type" env:"TYPE"`
	Host         string   `json:"host" env:"HOST" validate:"required"`
	Port         int      `json:"port" env:"PORT" validate:"gte=0,lte=65535"`
	User         string   `json:"user" env:"USER"`
	Password     string   `json:"password" env:"PASSWORD"`
	Name         string   `json:"name" env:"NAME" validate:"required"`
	QueryTimeout Duration `json:"query_timeout" env:"QUERY_TIMEOUT"`
	MaxOpenConns int      `json:"max_open_conns" env:"MAX_OPEN_CONNS" validate:"gte=0"`
}

type Server struct {
	Host string `json:"host" env:"HOST"`
	Port int    `json:"port" env:"PORT" validate:"gte=1,lte=65535"`
}

type Shortener struct {
	BaseURL             string `json:"base_url" env:"BASE_URL" validate:"url"`
	MaxGenerateAttempts int    `json:"max_generate_attempts" env:"MAX_GENERATE_ATTEMPTS" validate:"gte=1"`
}

type Discord struct {
	Enabled  bool      `json:"enabled" env:"ENABLED"`
	BotToken string    `json:"bot_token" env:"BOT_TOKEN" validate:"required_if=Enabled true"`
	GuildID  Snowflake `json:"guild_id" env:"GUILD_ID" validate:"required_if=Enabled true"`
	Workers  int       `json:"workers" env:"WORKERS" validate:"gte=1"`
}

type Config struct {
	Database  Database  `json:"database" envPrefix:"DATABASE_"`
	Server    Server    `json:"server" envPrefix:"SERVER_"`
	Shortener Shortener `json:"shortener" envPrefix:"SHORTENER_"`
	Discord   Discord   `json:"discord" envPrefix:"DISCORD_"`
	LogLevel  string    `json:"log_level" env:"LOG_LEVEL" validate:"loglevel"`
}

var defaultConfig = Config{
	Database: Database{
		Type:         models.DatabaseTypeMySQL,
		Host:         "localhost",
		Name:         "shortener",
		QueryTimeout: Duration(5 * time.Second),
		MaxOpenConns: 10,
	},
	Server: Server{
		Host: "0.0.0.0",
		Port: 5000,
	},
	Shortener: Shortener{
		BaseURL:             "http://localhost:5000",
		MaxGenerateAttempts: 10,
	},
	Discord: Discord{
		Enabled: false,
		Workers: 4,
	},
	LogLevel: "info",
}

// RunAddr is the address the HTTP server listens on.
func (c *Config) RunAddr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
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
	if !funk.ContainsString(models.SupportedDatabaseTypes, c.Database.Type) {
		return fmt.Errorf("%w: %q, expected one of %v", ErrUnsupportedDatabase, c.Database.Type, models.SupportedDatabaseTypes)
	}

	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
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

// WithArgs parses the given arguments instead of os.Args[1:].
func WithArgs(args []string) InitOption {
	return func(options *initOptions) {
		options.args = args
	}
}

type flagValues struct {
	settingsPath string
	serverHost   string
	serverPort   int
	baseURL      string
	logLevel     string
	databaseType string
	databaseHost string
	set          map[string]bool
}

func parseFlags(args []string) (*flagValues, error) {
	values := &flagValues{set: map[string]bool{}}

	fs := flag.NewFlagSet("shortener", flag.ContinueOnError)
	fs.StringVar(&values.settingsPath, "c", "", "path to the JSON settings file")
	fs.StringVar(&values.serverHost, "host", "", "host to run the HTTP server on")
	fs.IntVar(&values.serverPort, "port", 0, "port to run the HTTP server on")
	fs.StringVar(&values.baseURL, "b", "", "base address of the resulting shortened URL")
	fs.StringVar(&values.logLevel, "l", "", "logger level")
	fs.StringVar(&values.databaseType, "db-type", "", "database engine: mysql or postgres")
	fs.StringVar(&values.databaseHost, "db-host", "", "database host")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	fs.Visit(func(f *flag.Flag) {
		values.set[f.Name] = true
	})

	return values, nil
}

func (v *flagValues) apply(c *Config) {
	if v.set["host"] {
		c.Server.Host = v.serverHost
	}
	if v.set["port"] {
		c.Server.Port = v.serverPort
	}
	if v.set["b"] {
		c.Shortener.BaseURL = v.baseURL
	}
	if v.set["l"] {
		c.LogLevel = v.logLevel
	}
	if v.set["db-type"] {
		c.Database.Type = v.databaseType
	}
	if v.set["db-host"] {
		c.Database.Host = v.databaseHost
	}
}

func loadSettingsFile(c *Config, path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("in internal/config/config.go/loadSettingsFile(): error while `os.ReadFile()` calling: %w", err)
	}

	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("in internal/config/config.go/loadSettingsFile(): error while `json.Unmarshal()` calling: %w", err)
	}

	return nil
}

// New builds the configuration. Later sources override earlier ones field by field:
// defaults, the JSON settings file, the environment, the command line.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
		args:                os.Args[1:],
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	err := godotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Unable to load .env file: %v", err)
	}

	flags := &flagValues{set: map[string]bool{}}
	if !options.disableFlagsParsing {
		flags, err = parseFlags(options.args)
		if err != nil {
			return nil, err
		}
	}

	result := defaultConfig

	settingsPath, required := DefaultSettingsFile, false
	if path := os.Getenv("CONFIG"); path != "" {
		settingsPath, required = path, true
	}
	if flags.set["c"] {
		settingsPath, required = flags.settingsPath, true
	}
	if err := loadSettingsFile(&result, settingsPath, required); err != nil {
		return nil, err
	}

	if err := env.Parse(&result); err != nil {
		return nil, err
	}

	flags.apply(&result)

	if err := result.validate(); err != nil {
		return nil, err
	}

	return &result, nil
}
