package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

type Config struct {
	Bot      Bot      `mapstructure:"bot"`
	IRC      IRC      `mapstructure:"irc"`
	Slack    Slack    `mapstructure:"slack"`
	Telegram Telegram `mapstructure:"telegram"`
	Metrics  Metrics  `mapstructure:"metrics"`
}

type Bot struct {
	Nickname  string        `mapstructure:"nickname"`
	LogLevel  string        `mapstructure:"log_level"`
	Transport string        `mapstructure:"transport"`
	Channels  []string      `mapstructure:"channels"`
	Database  string        `mapstructure:"database"`
	Plugins   []string      `mapstructure:"plugins"`
	HelpDelay time.Duration `mapstructure:"help_delay"`
}

type IRC struct {
	Server       string  `mapstructure:"server"`
	Port         int     `mapstructure:"port"`
	TLS          bool    `mapstructure:"tls"`
	Password     string  `mapstructure:"password"`
	MessageRate  float64 `mapstructure:"message_rate"`
	MessageBurst int     `mapstructure:"message_burst"`
}

type Slack struct {
	Token string `mapstructure:"token"`
}

type Telegram struct {
	BotToken string `mapstructure:"bot_token"`
}

type Metrics struct {
	Listen string `mapstructure:"listen"`
}

// Level maps the configured log level to zerolog, defaulting to info.
func (b Bot) Level() zerolog.Level {
	switch b.LogLevel {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Load reads the config files in order, later files overriding earlier ones. Without paths it looks for
// config.toml in the working directory. Every key can be overridden from the environment as PMXBOT_<KEY>,
// e.g. PMXBOT_IRC_SERVER.
func Load(paths ...string) (*Config, *viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("pmxbot")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if len(paths) == 0 {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("toml")

		if err := v.ReadInConfig(); err != nil {
			return nil, nil, fmt.Errorf("could not read config file: %w", err)
		}
	}

	for i, path := range paths {
		v.SetConfigFile(path)

		read := v.MergeInConfig
		if i == 0 {
			read = v.ReadInConfig
		}
		if err := read(); err != nil {
			return nil, nil, fmt.Errorf("could not read config file %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, nil, fmt.Errorf("could not decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	return cfg, v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.nickname", "pmxbot")
	v.SetDefault("bot.log_level", "info")
	v.SetDefault("bot.transport", "irc")
	v.SetDefault("bot.database", "sqlite:pmxbot.sqlite")
	v.SetDefault("bot.help_delay", "500ms")
	v.SetDefault("bot.channels", []string{})
	v.SetDefault("bot.plugins", []string{})
	v.SetDefault("irc.server", "")
	v.SetDefault("irc.port", 6667)
	v.SetDefault("irc.tls", false)
	v.SetDefault("irc.password", "")
	v.SetDefault("irc.message_rate", 1.0)
	v.SetDefault("irc.message_burst", 4)
	// keys without a real default are still declared so that environment overrides reach Unmarshal
	v.SetDefault("slack.token", "")
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("metrics.listen", "")
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Bot.Transport {
	case "irc":
		if c.IRC.Server == "" {
			errs = append(errs, errors.New("irc.server is required for the irc transport"))
		}
	case "slack":
		if c.Slack.Token == "" {
			errs = append(errs, errors.New("slack.token is required for the slack transport"))
		}
	case "telegram":
		if c.Telegram.BotToken == "" {
			errs = append(errs, errors.New("telegram.bot_token is required for the telegram transport"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown transport %q", c.Bot.Transport))
	}

	if c.Bot.Nickname == "" {
		errs = append(errs, errors.New("bot.nickname must not be empty"))
	}

	return errors.Join(errs...)
}
