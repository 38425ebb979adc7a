package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable override,
// e.g. BARRIER_ROUTER_SOLVER_BASE_URL.
const EnvPrefix = "BARRIER_ROUTER"

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	Route       RouteConfig       `mapstructure:"route"`
	ServiceArea ServiceAreaConfig `mapstructure:"service_area"`
	Solver      SolverConfig      `mapstructure:"solver"`
	Cache       CacheConfig       `mapstructure:"cache"`
	History     HistoryConfig     `mapstructure:"history"`
	Sentry      SentryConfig      `mapstructure:"sentry"`
	Window      WindowConfig      `mapstructure:"window"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
}

type RouteConfig struct {
	BarrierRadiusMeters         float64 `mapstructure:"barrier_radius_meters" validate:"gt=0"`
	ExtendedBarrierRadiusMeters float64 `mapstructure:"extended_barrier_radius_meters" validate:"gt=0"`
	CircleRadius                float64 `mapstructure:"circle_radius" validate:"gt=0"`
	CircleViewportScale         float64 `mapstructure:"circle_viewport_scale" validate:"gt=0"`
}

type ServiceAreaConfig struct {
	DefaultCutoffs []float64 `mapstructure:"default_cutoffs" validate:"required,min=1,dive,gt=0"`
	AddedCutoffs   []float64 `mapstructure:"added_cutoffs" validate:"dive,gt=0"`
	PolygonDetail  string    `mapstructure:"polygon_detail" validate:"oneof=low standard high"`
}

type SolverConfig struct {
	BaseURL           string        `mapstructure:"base_url" validate:"required,url"`
	Profile           string        `mapstructure:"profile" validate:"required"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	SolveTimeout      time.Duration `mapstructure:"solve_timeout" validate:"gt=0"`
	IsochroneSpeedKmh float64       `mapstructure:"isochrone_speed_kmh" validate:"gt=0"`
	ProbeLat          float64       `mapstructure:"probe_lat" validate:"gte=-90,lte=90"`
	ProbeLng          float64       `mapstructure:"probe_lng" validate:"gte=-180,lte=180"`
}

type CacheConfig struct {
	RedisAddr string        `mapstructure:"redis_addr"`
	TTL       time.Duration `mapstructure:"ttl" validate:"gte=0"`
}

type HistoryConfig struct {
	DBPath string `mapstructure:"db_path" validate:"required"`
}

type SentryConfig struct {
	DSN string `mapstructure:"dsn"`
	Env string `mapstructure:"env"`
}

// WindowConfig sizes the desktop window
type WindowConfig struct {
	Title     string `mapstructure:"title" validate:"required"`
	Width     int    `mapstructure:"width" validate:"gtefield=MinWidth"`
	Height    int    `mapstructure:"height" validate:"gtefield=MinHeight"`
	MinWidth  int    `mapstructure:"min_width" validate:"gt=0"`
	MinHeight int    `mapstructure:"min_height" validate:"gt=0"`
}

// Load reads configuration from defaults, an optional config file and the
// environment, in increasing priority. An empty path looks for config.yaml
// in the working directory and the user config directory.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := appConfigDir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New()

// Validate checks every field constraint
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", "127.0.0.1:8080")
	v.SetDefault("log.level", "info")

	v.SetDefault("route.barrier_radius_meters", 100.0)
	v.SetDefault("route.extended_barrier_radius_meters", 500.0)
	v.SetDefault("route.circle_radius", 10.0)
	v.SetDefault("route.circle_viewport_scale", 2000.0)

	v.SetDefault("service_area.default_cutoffs", []float64{5})
	v.SetDefault("service_area.added_cutoffs", []float64{2})
	v.SetDefault("service_area.polygon_detail", "high")

	v.SetDefault("solver.base_url", "https://router.project-osrm.org")
	v.SetDefault("solver.profile", "driving")
	v.SetDefault("solver.request_timeout", 30*time.Second)
	v.SetDefault("solver.solve_timeout", 60*time.Second)
	v.SetDefault("solver.isochrone_speed_kmh", 50.0)
	v.SetDefault("solver.probe_lat", 32.7157)
	v.SetDefault("solver.probe_lng", -117.1611)

	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.ttl", 10*time.Minute)

	v.SetDefault("history.db_path", defaultHistoryPath())

	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.env", "development")

	v.SetDefault("window.title", "Barrier Router")
	v.SetDefault("window.width", 1280)
	v.SetDefault("window.height", 800)
	v.SetDefault("window.min_width", 800)
	v.SetDefault("window.min_height", 600)
}

func appConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "barrier-router"), nil
}

func defaultHistoryPath() string {
	dir, err := appConfigDir()
	if err != nil {
		return "history.db"
	}
	return filepath.Join(dir, "history.db")
}
