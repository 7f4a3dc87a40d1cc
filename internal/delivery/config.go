package delivery

import (
	"fmt"
	"strings"
	"time"

	"codeberg.org/thomiel/adored/internal/errors"
)

const (
	utilizeImpPath = "/v1/util_imp"
	registerPath   = "/v1/register"

	defaultBaseURL = "https://restapitest.c3s.cc"
	defaultPort    = 443
	defaultTimeout = 30 * time.Second

	// Fixed client identification sent with the registration call.
	pluginVendor  = "C3S"
	pluginName    = "adored reporting client"
	pluginVersion = "0.5"
	playerName    = "adored"
)

type Config struct {
	ClientUUID string
	BaseURL    string
	Port       int
	Timeout    time.Duration
}

func DefaultConfig() Config {
	return Config{
		BaseURL: defaultBaseURL,
		Port:    defaultPort,
		Timeout: defaultTimeout,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.ClientUUID == "" {
		return errFactory.WithMessage(ErrInvalidConfig, "client UUID must be set")
	}
	if c.BaseURL == "" {
		return errFactory.WithMessage(ErrInvalidConfig, "base URL must be set")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return errFactory.WithMessage(ErrInvalidConfig, "port must be within 1-65535")
	}
	return nil
}

// endpoint builds the full URL for an API path. A base URL without a
// scheme gets a plain http prefix; test and debug setups point at bare
// hosts.
func (c Config) endpoint(path string) string {
	base := c.BaseURL
	if !strings.HasPrefix(base, "http") {
		base = "http://" + base
	}
	return fmt.Sprintf("%s:%d%s", base, c.Port, path)
}
