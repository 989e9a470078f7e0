package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env                   string        `mapstructure:"ENV"`
	Port                  string        `mapstructure:"PORT"`
	DatabaseURL           string        `mapstructure:"DATABASE_URL"`
	AdminKey              string        `mapstructure:"ADMIN_KEY"`
	MatrixURL             string        `mapstructure:"MATRIX_URL"`
	MatrixAPIKey          string        `mapstructure:"MATRIX_API_KEY"`
	PlacesURL             string        `mapstructure:"PLACES_URL"`
	CORSAllowed           string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout        time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	LogLevel              string        `mapstructure:"LOG_LEVEL"`
	DistanceRetryAttempts int           `mapstructure:"DISTANCE_RETRY_ATTEMPTS"`
	DistanceRetryDelay    time.Duration `mapstructure:"DISTANCE_RETRY_DELAY"`
	RegionRadiusKm        float64       `mapstructure:"REGION_RADIUS_KM"`
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("DISTANCE_RETRY_ATTEMPTS", 3)
	v.SetDefault("DISTANCE_RETRY_DELAY", "5s")
	v.SetDefault("REGION_RADIUS_KM", 50)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
