package config

import (
	"fmt"
	"os"
	"time"
)

// DefaultSessionHours is the login cookie lifetime when JWT_EXPIRATION_HOURS is unset.
const DefaultSessionHours = 24

// JWTConfig signs the chat server's login cookie.
type JWTConfig struct {
	Secret          string
	ExpirationHours int
}

// NewJWTConfig reads JWT_SECRET (required) and JWT_EXPIRATION_HOURS.
func NewJWTConfig() (*JWTConfig, error) {
	hours, err := envInt("JWT_EXPIRATION_HOURS", DefaultSessionHours)
	if err != nil {
		return nil, err
	}

	cfg := &JWTConfig{Secret: os.Getenv("JWT_SECRET"), ExpirationHours: hours}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *JWTConfig) normalize() error {
	switch {
	case c.Secret == "":
		return fmt.Errorf("JWT_SECRET is required to sign login cookies")
	case c.ExpirationHours < 1:
		return fmt.Errorf("JWT_EXPIRATION_HOURS must be at least 1, got %d", c.ExpirationHours)
	}
	return nil
}

// TTL is how long a login stays valid.
func (c *JWTConfig) TTL() time.Duration {
	return time.Duration(c.ExpirationHours) * time.Hour
}
