package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"controlling_roaster/internal/logger"
	"controlling_roaster/internal/port"
	"controlling_roaster/internal/service"

	"github.com/spf13/viper"
)

// appConfig is everything main needs, resolved from configs/config.yml,
// ROASTER_* environment variables and defaults.
type appConfig struct {
	Port       string
	LogLevel   string
	DBPath     string
	SigningKey string
	TokenTTL   time.Duration
	Autostart  bool
	Start      service.StartParams
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log.level", logger.InfoLevel)
	v.SetDefault("db.path", "app.db")
	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.token_ttl", time.Hour)
	v.SetDefault("roaster.autostart", false)
	v.SetDefault("roaster.interval", 500*time.Millisecond)
	v.SetDefault("roaster.serial.name", "/dev/ttyUSB0")
	v.SetDefault("roaster.serial.baud_rate", port.DefaultBaudRate)
	v.SetDefault("roaster.serial.byte_size", port.DefaultByteSize)
	v.SetDefault("roaster.serial.parity", port.DefaultParity)
	v.SetDefault("roaster.serial.stop_bits", port.DefaultStopBits)
	v.SetDefault("roaster.serial.timeout", port.DefaultTimeout)
}

// loadConfig reads config.yml from the given directories. A missing file is
// not an error; defaults and environment still apply.
func loadConfig(v *viper.Viper, paths ...string) (appConfig, error) {
	setDefaults(v)
	v.SetEnvPrefix("ROASTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return appConfig{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := appConfig{
		Port:       v.GetString("port"),
		LogLevel:   v.GetString("log.level"),
		DBPath:     v.GetString("db.path"),
		SigningKey: v.GetString("auth.signing_key"),
		TokenTTL:   v.GetDuration("auth.token_ttl"),
		Autostart:  v.GetBool("roaster.autostart"),
		Start: service.StartParams{
			Interval: v.GetDuration("roaster.interval"),
			Port: port.Config{
				Name:     v.GetString("roaster.serial.name"),
				BaudRate: v.GetInt("roaster.serial.baud_rate"),
				ByteSize: v.GetInt("roaster.serial.byte_size"),
				Parity:   strings.ToUpper(v.GetString("roaster.serial.parity")),
				StopBits: v.GetInt("roaster.serial.stop_bits"),
				Timeout:  v.GetDuration("roaster.serial.timeout"),
			},
		},
	}
	if cfg.Autostart {
		if err := cfg.Start.Validate(); err != nil {
			return appConfig{}, fmt.Errorf("roaster.autostart: %w", err)
		}
	}
	return cfg, nil
}
