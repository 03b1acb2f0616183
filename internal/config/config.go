// Package config loads the server settings. Sources are merged with the priority
// command line flags > environment (including .env) > JSON file > built-in defaults.
package config

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// MinSigningKeyLength is the minimal decoded length of the session signing key.
const MinSigningKeyLength = 32

// Config holds every setting of the server.
type Config struct {
	RunAddr                    string        `env:"SERVER_ADDRESS" validate:"hostname_port"`
	ShortURLBase               string        `env:"BASE_URL" validate:"url"`
	LogLevel                   string        `env:"LOG_LEVEL" validate:"loglevel"`
	AuthCookieName             string        `env:"AUTH_COOKIE_NAME" validate:"required"`
	AuthCookieSigningSecretKey string        `env:"AUTH_COOKIE_SIGNING_SECRET_KEY" validate:"omitempty,signingkey"`
	SessionTTL                 time.Duration `env:"SESSION_TTL" validate:"gt=0"`
	PasswordHashCost           int           `env:"PASSWORD_HASH_COST" validate:"min=4,max=31"`
	TrustedSubnet              string        `env:"TRUSTED_SUBNET" validate:"omitempty,cidr"`
	ShutdownTimeout            time.Duration `env:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
	ConfigFile                 string        `env:"CONFIG"`
}

// fileConfig is the layout of the JSON config file. Durations are written as "24h", "10s".
type fileConfig struct {
	RunAddr                    string `json:"server_address"`
	ShortURLBase               string `json:"base_url"`
	LogLevel                   string `json:"log_level"`
	AuthCookieName             string `json:"auth_cookie_name"`
	AuthCookieSigningSecretKey string `json:"auth_cookie_signing_secret_key"`
	SessionTTL                 string `json:"session_ttl"`
	PasswordHashCost           int    `json:"password_hash_cost"`
	TrustedSubnet              string `json:"trusted_subnet"`
	ShutdownTimeout            string `json:"shutdown_timeout"`
}

var defaultConfig = Config{
	RunAddr:          ":8080",
	ShortURLBase:     "http://localhost:8080",
	LogLevel:         "info",
	AuthCookieName:   "session",
	SessionTTL:       24 * time.Hour,
	PasswordHashCost: 10,
	TrustedSubnet:    "",
	ShutdownTimeout:  10 * time.Second,
}

var allowedLogLevels = map[string]bool{
	"debug":  true,
	"info":   true,
	"warn":   true,
	"error":  true,
	"dpanic": true,
	"panic":  true,
	"fatal":  true,
}

type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
}

// WithDisableFlagsParsing makes New ignore os.Args.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// New builds the configuration from all sources and validates it.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("in internal/config/config.go/New(): error while `godotenv.Load()` calling: %w", err)
	}

	var valuesFromFlags Config
	if !options.disableFlagsParsing {
		err = parseFlags(&valuesFromFlags, os.Args[1:])
		if err != nil {
			return nil, err
		}
	}

	var valuesFromEnv Config
	err = env.Parse(&valuesFromEnv)
	if err != nil {
		return nil, fmt.Errorf("in internal/config/config.go/New(): error while `env.Parse()` calling: %w", err)
	}

	configFile := valuesFromFlags.ConfigFile
	if configFile == "" {
		configFile = valuesFromEnv.ConfigFile
	}

	var valuesFromJSON Config
	if configFile != "" {
		valuesFromJSON, err = loadJSON(configFile)
		if err != nil {
			return nil, err
		}
	}

	result := &Config{}
	applyDefaults(result, valuesFromFlags)
	applyDefaults(result, valuesFromEnv)
	applyDefaults(result, valuesFromJSON)
	applyDefaults(result, defaultConfig)
	result.ConfigFile = configFile

	err = result.validate()
	if err != nil {
		return nil, err
	}

	return result, nil
}

// SigningKey returns the decoded session signing key. configured is false when
// AUTH_COOKIE_SIGNING_SECRET_KEY was not given by any source.
func (c *Config) SigningKey() (key []byte, configured bool, err error) {
	if c.AuthCookieSigningSecretKey == "" {
		return nil, false, nil
	}

	key, err = base64.URLEncoding.DecodeString(c.AuthCookieSigningSecretKey)
	if err != nil {
		return nil, true, fmt.Errorf("in internal/config/config.go/SigningKey(): error while `base64.URLEncoding.DecodeString()` calling: %w", err)
	}

	return key, true, nil
}

func parseFlags(dst *Config, args []string) error {
	flags := flag.NewFlagSet("tinyapp", flag.ContinueOnError)
	flags.StringVar(&dst.RunAddr, "a", "", "address and port to run server")
	flags.StringVar(&dst.ShortURLBase, "b", "", "base address of the resulting short links")
	flags.StringVar(&dst.LogLevel, "l", "", "logger level")
	flags.IntVar(&dst.PasswordHashCost, "p", 0, "bcrypt cost for password hashes")
	flags.StringVar(&dst.TrustedSubnet, "t", "", "CIDR allowed to read internal stats")
	flags.StringVar(&dst.ConfigFile, "c", "", "path to the JSON config file")

	err := flags.Parse(args)
	if err != nil {
		return fmt.Errorf("in internal/config/config.go/parseFlags(): error while `flags.Parse()` calling: %w", err)
	}

	return nil
}

func loadJSON(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("in internal/config/config.go/loadJSON(): error while `os.ReadFile()` calling: %w", err)
	}

	var raw fileConfig
	err = json.Unmarshal(data, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("in internal/config/config.go/loadJSON(): error while `json.Unmarshal()` calling: %w", err)
	}

	result := Config{
		RunAddr:                    raw.RunAddr,
		ShortURLBase:               raw.ShortURLBase,
		LogLevel:                   raw.LogLevel,
		AuthCookieName:             raw.AuthCookieName,
		AuthCookieSigningSecretKey: raw.AuthCookieSigningSecretKey,
		PasswordHashCost:           raw.PasswordHashCost,
		TrustedSubnet:              raw.TrustedSubnet,
	}

	if raw.SessionTTL != "" {
		result.SessionTTL, err = time.ParseDuration(raw.SessionTTL)
		if err != nil {
			return Config{}, fmt.Errorf("in internal/config/config.go/loadJSON(): session_ttl: %w", err)
		}
	}

	if raw.ShutdownTimeout != "" {
		result.ShutdownTimeout, err = time.ParseDuration(raw.ShutdownTimeout)
		if err != nil {
			return Config{}, fmt.Errorf("in internal/config/config.go/loadJSON(): shutdown_timeout: %w", err)
		}
	}

	return result, nil
}

// applyDefaults fills every zero field of dst from src.
func applyDefaults(dst *Config, src Config) {
	if dst.RunAddr == "" {
		dst.RunAddr = src.RunAddr
	}

	if dst.ShortURLBase == "" {
		dst.ShortURLBase = src.ShortURLBase
	}

	if dst.LogLevel == "" {
		dst.LogLevel = src.LogLevel
	}

	if dst.AuthCookieName == "" {
		dst.AuthCookieName = src.AuthCookieName
	}

	if dst.AuthCookieSigningSecretKey == "" {
		dst.AuthCookieSigningSecretKey = src.AuthCookieSigningSecretKey
	}

	if dst.SessionTTL == 0 {
		dst.SessionTTL = src.SessionTTL
	}

	if dst.PasswordHashCost == 0 {
		dst.PasswordHashCost = src.PasswordHashCost
	}

	if dst.TrustedSubnet == "" {
		dst.TrustedSubnet = src.TrustedSubnet
	}

	if dst.ShutdownTimeout == 0 {
		dst.ShutdownTimeout = src.ShutdownTimeout
	}
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	return allowedLogLevels[fieldLevel.Field().String()]
}

func validateSigningKey(fieldLevel validator.FieldLevel) bool {
	key, err := base64.URLEncoding.DecodeString(fieldLevel.Field().String())
	return err == nil && len(key) >= MinSigningKeyLength
}

func (c *Config) validate() error {
	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("signingkey", validateSigningKey)
	if err != nil {
		return err
	}

	return validate.Struct(c)
}
