package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type StorageConfig struct {
	Driver string
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
	Migrate         bool
}

// RedisConfig is optional. An empty Addr disables the session event stream.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
}

type SecurityConfig struct {
	TokenSecret string
	// Zero keeps tokens valid until logout or password change.
	TokenTTL          time.Duration
	PasswordScheme    string
	BcryptCost        int
	PasswordMinLength int
}

type JobsConfig struct {
	PruneSchedule string
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Storage          StorageConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Security         SecurityConfig
	Jobs             JobsConfig
	AllowCORSOrigins []string
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	return load(v)
}

func load(v *viper.Viper) (*AppConfig, error) {
	v.SetEnvPrefix("ADVISOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := bindLegacyEnv(v); err != nil {
		return nil, err
	}
	setDefaults(v)

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// bindLegacyEnv keeps the variable names of earlier deployments working.
func bindLegacyEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"environment":          {"ADVISOR_ENVIRONMENT", "APP_ENV"},
		"http.port":            {"ADVISOR_HTTP_PORT", "PORT"},
		"postgres.dsn":         {"ADVISOR_POSTGRES_DSN", "DATABASE_URL"},
		"security.tokensecret": {"ADVISOR_SECURITY_TOKENSECRET", "JWT_SECRET"},
	}
	for key, names := range bindings {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 3000)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("storage.driver", StorageDriverPostgres)

	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 2)
	v.SetDefault("postgres.connmaxlifetime", "30m")
	v.SetDefault("postgres.migrate", true)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.stream", "advisor:sessions")

	v.SetDefault("security.tokenttl", "0s")
	v.SetDefault("security.passwordscheme", "bcrypt")
	v.SetDefault("security.bcryptcost", 10)
	v.SetDefault("security.passwordminlength", 6)

	v.SetDefault("jobs.pruneschedule", "0 0 * * * *") // hourly

	v.SetDefault("allowcorsorigins", "")
}

func (c *AppConfig) validate() error {
	var errs []error
	if c.Security.TokenSecret == "" {
		errs = append(errs, errors.New("security.tokensecret is required"))
	}
	if c.Security.TokenTTL < 0 {
		errs = append(errs, errors.New("security.tokenttl must not be negative"))
	}
	switch c.Storage.Driver {
	case StorageDriverPostgres:
		if c.Postgres.DSN == "" {
			errs = append(errs, errors.New("postgres.dsn is required for the postgres driver"))
		}
	case StorageDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port %d out of range", c.HTTP.Port))
	}
	return errors.Join(errs...)
}
