package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port             string
	DBDriver         string // sqlite | pgx | postgres
	DBDSN            string
	DBMaxConns       int
	AssetsDir        string
	AcceptPNG        bool
	MaxUploadBytes   int
	UploadsPerMinute int // per client IP, asset upload route only
	LogFile          string
}

func defaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("db_driver", "sqlite")
	v.SetDefault("db_dsn", "shopfront.db") // sqlite file in project root
	v.SetDefault("db_max_conns", 10)
	v.SetDefault("assets_dir", "./assets")
	v.SetDefault("accept_png", true)
	v.SetDefault("max_upload_bytes", 10<<20)
	v.SetDefault("uploads_per_minute", 30)
	v.SetDefault("log_file", "")
}

// Load resolves configuration from defaults, an optional config file and the
// environment (PORT, DB_DRIVER, DB_DSN, ...). Environment wins over the file.
func Load(file string) (Config, error) {
	v := viper.New()
	defaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	cfg := Config{
		Port:             v.GetString("port"),
		DBDriver:         strings.ToLower(v.GetString("db_driver")),
		DBDSN:            v.GetString("db_dsn"),
		DBMaxConns:       v.GetInt("db_max_conns"),
		AssetsDir:        v.GetString("assets_dir"),
		AcceptPNG:        v.GetBool("accept_png"),
		MaxUploadBytes:   v.GetInt("max_upload_bytes"),
		UploadsPerMinute: v.GetInt("uploads_per_minute"),
		LogFile:          v.GetString("log_file"),
	}
	switch cfg.DBDriver {
	case "sqlite", "pgx", "postgres":
	default:
		return Config{}, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	if cfg.MaxUploadBytes <= 0 {
		return Config{}, fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	if cfg.UploadsPerMinute <= 0 {
		return Config{}, fmt.Errorf("UPLOADS_PER_MINUTE must be positive")
	}

	log.Printf("[config] PORT=%s DB_DRIVER=%s ASSETS_DIR=%s ACCEPT_PNG=%t MAX_UPLOAD_BYTES=%d LOG_FILE=%s",
		cfg.Port, cfg.DBDriver, cfg.AssetsDir, cfg.AcceptPNG, cfg.MaxUploadBytes, cfg.LogFile)
	return cfg, nil
}
