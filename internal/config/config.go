package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/sethvargo/go-envconfig"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/groupwarden/internal/i18n"
)

const EnvPrefix = "GW_"

type (
	Config struct {
		TelegramAPIToken string   `env:"TOKEN,required"`
		DefaultLanguage  string   `env:"LANG,default=en"`
		EnabledHandlers  []string `env:"HANDLERS,default=registrar,commands,moderator"`
		LogLevel         int      `env:"LOG_LEVEL,default=4"`
		LogFormat        string   `env:"LOG_FORMAT,default=text"`
		DotPath          string   `env:"DOT_PATH,default=~/.groupwarden"`
		DB               DB
		HTTP             HTTP
		Platform         Platform
		Sweep            Sweep
		Moderation       Moderation
	}

	DB struct {
		Driver       string `env:"DB_DRIVER,default=sqlite"`
		DSN          string `env:"DB_DSN"`
		File         string `env:"DB_FILE,default=groupwarden.db"`
		MaxOpenConns int    `env:"DB_MAX_OPEN_CONNS,default=10"`
	}

	HTTP struct {
		Addr             string `env:"HTTP_ADDR,default=:8080"`
		WebhookURL       string `env:"WEBHOOK_URL"`
		WebhookSecret    string `env:"WEBHOOK_SECRET"`
		MaintenanceToken string `env:"MAINTENANCE_TOKEN"`
	}

	Platform struct {
		Timeout       time.Duration `env:"PLATFORM_TIMEOUT,default=10s"`
		MaxRetryAfter time.Duration `env:"PLATFORM_MAX_RETRY_AFTER,default=30s"`
		Rate          float64       `env:"PLATFORM_RATE,default=25"`
		Burst         int           `env:"PLATFORM_BURST,default=5"`
	}

	Sweep struct {
		Interval  time.Duration `env:"SWEEP_INTERVAL,default=15s"`
		BatchSize int           `env:"SWEEP_BATCH_SIZE,default=100"`
	}

	Moderation struct {
		WarningTimer            time.Duration `env:"WARNING_TIMER,default=30s"`
		WelcomeTimer            time.Duration `env:"WELCOME_TIMER,default=60s"`
		DefaultBannedWords      []string      `env:"DEFAULT_BANNED_WORDS,default=scam,fuck"`
		AdminsExemptBannedWords bool          `env:"ADMINS_EXEMPT_BANNED_WORDS,default=true"`
		AutoBanWarnings         int           `env:"AUTO_BAN_WARNINGS,default=0"`
	}
)

var (
	once         sync.Once
	globalConfig = &Config{}
	globalErr    error
)

// Load reads the process environment once.
func Load() (Config, error) {
	once.Do(func() {
		cfg, err := LoadWith(context.Background(), envconfig.OsLookuper())
		if err != nil {
			globalErr = err
			return
		}
		log.Traceln("loaded config")
		globalConfig = cfg
	})
	return *globalConfig, globalErr
}

// LoadWith reads GW_ prefixed keys from lookuper.
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}
	envcfg := envconfig.Config{
		Lookuper: envconfig.PrefixLookuper(EnvPrefix, lookuper),
		Target:   cfg,
	}
	if err := envconfig.ProcessWith(ctx, &envcfg); err != nil {
		return nil, fmt.Errorf("process env config: %w", err)
	}
	dotPath, err := homedir.Expand(cfg.DotPath)
	if err != nil {
		return nil, fmt.Errorf("expand dot path: %w", err)
	}
	cfg.DotPath = dotPath
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DB.Driver {
	case "sqlite":
	case "postgres":
		if c.DB.DSN == "" {
			return fmt.Errorf("GW_DB_DSN is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported db driver %q", c.DB.Driver)
	}
	if !i18n.IsSupported(c.DefaultLanguage) {
		return fmt.Errorf("unsupported language %q", c.DefaultLanguage)
	}
	if c.Moderation.WarningTimer < 0 || c.Moderation.WelcomeTimer < 0 {
		return fmt.Errorf("timers must not be negative")
	}
	if c.Moderation.AutoBanWarnings < 0 {
		return fmt.Errorf("GW_AUTO_BAN_WARNINGS must not be negative")
	}
	return nil
}

func Get() Config {
	cfg, err := Load()
	if err != nil {
		log.WithField("error", err.Error()).Error("cant load config")
	}
	return cfg
}
