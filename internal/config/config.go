// Package config loads server configuration from config.yaml, .env and
// environment variables.
package config

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type Config struct {
	// Port is the port number to listen on. The default is 8080.
	Port int `validate:"required,port"`
	// Hostname is the hostname to listen on. The default is 0.0.0.0.
	Hostname string `validate:"required"`
	Auth     struct {
		// Secret signs websocket session tokens. Base64 encoded.
		Secret Base64Encoded `validate:"required"`
		// AdminKeyHash is the bcrypt hash of the moderation API key.
		// Admin endpoints are disabled when empty.
		AdminKeyHash string
	}
	SQLite struct {
		// File is the path to the SQLite database file.
		File string `validate:"required"`
		// Migrations is the directory holding goose migration files.
		Migrations string `validate:"required"`
	}
	Relay struct {
		// RequestTTLSeconds is the acceptance window for a chat request.
		RequestTTLSeconds int `validate:"required,min=1"`
		// PingLimit caps daily chat requests for non-premium users.
		PingLimit int `validate:"min=0"`
		// ToggleLimit caps daily availability toggles for non-premium users.
		ToggleLimit int `validate:"min=0"`
		// EliteEnabled gates premium-only features client side.
		EliteEnabled bool
	}
	// AllowedOrigins is the list of origins allowed to call the API.
	AllowedOrigins []string

	valid bool
}

type Base64Encoded []byte

func (b *Base64Encoded) UnmarshalText(text []byte) error {
	dec, err := base64.StdEncoding.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("base64 decode: %w", err)
	}
	*b = dec
	return nil
}

// Load reads the configuration from config.yaml and environment variables.
// Invalid values are deferred to Validate.
func Load() (*Config, error) {
	// .env is optional
	godotenv.Load()

	config := &Config{}
	viper.SetConfigName("config")
	viper.AddConfigPath(".")
	viper.SetConfigType("yaml")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("port", 8080)
	viper.SetDefault("hostname", "0.0.0.0")

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}
	viper.SetDefault("auth.secret", base64.StdEncoding.EncodeToString(secret))

	viper.SetDefault("sqlite.file", "./vibelink.db")
	viper.SetDefault("sqlite.migrations", "./migrations")

	viper.SetDefault("relay.requestttlseconds", 15)
	viper.SetDefault("relay.pinglimit", 5)
	viper.SetDefault("relay.togglelimit", 3)
	viper.SetDefault("relay.eliteenabled", true)

	viper.SetDefault("allowedorigins", []string{"*"})

	if err := viper.ReadInConfig(); err != nil {
		// a missing config file is fine; env and defaults cover it
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := viper.Unmarshal(&config,
		viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
			mapstructure.TextUnmarshallerHookFunc(),
			mapstructure.StringToSliceHookFunc(",")),
		),
	); err != nil {
		// defer error to validation step
		return config, nil
	}
	return config, nil
}

func (c *Config) Validate() error {
	if c.valid {
		return nil
	}
	if err := validate.Struct(c); err != nil {
		return err
	}
	c.valid = true
	return nil
}
