package config

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/viper"

	"codeberg.org/thomiel/adored/internal/errors"
	"codeberg.org/thomiel/adored/internal/logger"
)

const (
	defaultAPIHost      = "https://restapitest.c3s.cc"
	defaultAPIPort      = 443
	defaultWebHost      = "https://betatest.c3s.cc"
	defaultWebPort      = 443
	defaultAlgorithm    = "echoprint"
	defaultProbeSeconds = 40
	defaultChannels     = 2

	// ConfigPathEnv overrides the config file lookup when set.
	ConfigPathEnv = "ADORED_CONFIG"
)

type Config struct {
	ClientUUID   string `mapstructure:"client_uuid"`
	APIHost      string `mapstructure:"api_host"`
	APIPort      int    `mapstructure:"api_port"`
	WebHost      string `mapstructure:"web_host"`
	WebPort      int    `mapstructure:"web_port"`
	Database     string `mapstructure:"database"`
	Algorithm    string `mapstructure:"algorithm"`
	ProbeSeconds int    `mapstructure:"probe_seconds"`
	Channels     int    `mapstructure:"channels"`
	Debug        bool   `mapstructure:"debug"`
	Verbose      bool   `mapstructure:"verbose"`
}

// Load reads configuration from defaults, an optional TOML config file and
// ADORED_* environment variables, in increasing order of precedence.
// A missing config file is not an error; an unreadable one is.
func Load() (*Config, error) {
	errFactory := errors.New()

	v := viper.New()
	v.SetDefault("client_uuid", "")
	v.SetDefault("api_host", defaultAPIHost)
	v.SetDefault("api_port", defaultAPIPort)
	v.SetDefault("web_host", defaultWebHost)
	v.SetDefault("web_port", defaultWebPort)
	v.SetDefault("database", "")
	v.SetDefault("algorithm", defaultAlgorithm)
	v.SetDefault("probe_seconds", defaultProbeSeconds)
	v.SetDefault("channels", defaultChannels)
	v.SetDefault("debug", false)
	v.SetDefault("verbose", false)

	if path := os.Getenv(ConfigPathEnv); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	} else {
		v.SetConfigName("adored")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "adored"))
		}
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, errFactory.Wrap(errors.ErrReadConfig, err)
			}
		}
	}

	v.SetEnvPrefix("ADORED")
	v.AutomaticEnv()

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	// An unset client UUID means this installation has never been
	// identified to the backend. Generate one and keep using it for the
	// lifetime of the process; operators should persist it in the config
	// file to keep a stable identity across restarts.
	if config.ClientUUID == "" {
		config.ClientUUID = uuid.NewString()
		logger.Info().Msgf("Generated client uuid %s; set client_uuid in the config file to make it permanent", config.ClientUUID)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.APIHost == "" {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "api_host must not be empty")
	}
	if c.APIPort <= 0 || c.APIPort > 65535 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "api_port out of range")
	}
	if c.Algorithm != "echoprint" && c.Algorithm != "chromaprint" {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "algorithm must be echoprint or chromaprint")
	}
	if c.ProbeSeconds <= 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "probe_seconds must be positive")
	}
	if c.Channels <= 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "channels must be positive")
	}
	return nil
}
