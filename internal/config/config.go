package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	// Table store
	DBDriver             string `mapstructure:"db_driver" yaml:"db_driver"`
	DBDSN                string `mapstructure:"db_dsn" yaml:"db_dsn"`
	DBMaxOpenConns       int    `mapstructure:"db_max_open_conns" yaml:"db_max_open_conns"`
	DBMaxIdleConns       int    `mapstructure:"db_max_idle_conns" yaml:"db_max_idle_conns"`
	DBConnMaxLifetimeSec int    `mapstructure:"db_conn_max_lifetime_sec" yaml:"db_conn_max_lifetime_sec"`

	// HTTP server
	ListenAddr        string   `mapstructure:"listen_addr" yaml:"listen_addr"`
	RequestTimeoutSec int      `mapstructure:"request_timeout_sec" yaml:"request_timeout_sec"`
	MaxUploadMB       int      `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
	AllowedOrigins    []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`

	// Profiling
	ProfileContamination float64 `mapstructure:"profile_contamination" yaml:"profile_contamination"`
	ProfileSeed          int64   `mapstructure:"profile_seed" yaml:"profile_seed"`
	ProfileTrees         int     `mapstructure:"profile_trees" yaml:"profile_trees"`
	ProfileMinYear       int     `mapstructure:"profile_min_year" yaml:"profile_min_year"`
	ProfileMaxYear       int     `mapstructure:"profile_max_year" yaml:"profile_max_year"`
}

// Dir returns ~/.tabinsight.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".tabinsight"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.tabinsight/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("db_driver", "sqlite")
	v.SetDefault("db_dsn", "~/.tabinsight/tables.db")
	v.SetDefault("db_max_open_conns", 10)
	v.SetDefault("db_max_idle_conns", 5)
	v.SetDefault("db_conn_max_lifetime_sec", 300)
	v.SetDefault("listen_addr", ":5000")
	v.SetDefault("request_timeout_sec", 60)
	v.SetDefault("max_upload_mb", 32)
	v.SetDefault("allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("profile_contamination", 0.05)
	v.SetDefault("profile_seed", 42)
	v.SetDefault("profile_trees", 100)
	v.SetDefault("profile_min_year", 1900)
	v.SetDefault("profile_max_year", 2100)
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("TABINSIGHT")
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// an explicit file that is missing surfaces as a path error
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// Keys lists the settable keys in display order.
func Keys() []string {
	return []string{
		"log_level", "log_format",
		"db_driver", "db_dsn", "db_max_open_conns", "db_max_idle_conns", "db_conn_max_lifetime_sec",
		"listen_addr", "request_timeout_sec", "max_upload_mb", "allowed_origins",
		"profile_contamination", "profile_seed", "profile_trees", "profile_min_year", "profile_max_year",
	}
}

// Get renders the value of key as text.
func (c *Global) Get(key string) (string, error) {
	switch key {
	case "log_level":
		return c.LogLevel, nil
	case "log_format":
		return c.LogFormat, nil
	case "db_driver":
		return c.DBDriver, nil
	case "db_dsn":
		return c.DBDSN, nil
	case "db_max_open_conns":
		return strconv.Itoa(c.DBMaxOpenConns), nil
	case "db_max_idle_conns":
		return strconv.Itoa(c.DBMaxIdleConns), nil
	case "db_conn_max_lifetime_sec":
		return strconv.Itoa(c.DBConnMaxLifetimeSec), nil
	case "listen_addr":
		return c.ListenAddr, nil
	case "request_timeout_sec":
		return strconv.Itoa(c.RequestTimeoutSec), nil
	case "max_upload_mb":
		return strconv.Itoa(c.MaxUploadMB), nil
	case "allowed_origins":
		return strings.Join(c.AllowedOrigins, ","), nil
	case "profile_contamination":
		return strconv.FormatFloat(c.ProfileContamination, 'f', -1, 64), nil
	case "profile_seed":
		return strconv.FormatInt(c.ProfileSeed, 10), nil
	case "profile_trees":
		return strconv.Itoa(c.ProfileTrees), nil
	case "profile_min_year":
		return strconv.Itoa(c.ProfileMinYear), nil
	case "profile_max_year":
		return strconv.Itoa(c.ProfileMaxYear), nil
	}
	return "", fmt.Errorf("unknown key: %s", key)
}

// Set parses val and assigns it to key.
func (c *Global) Set(key, val string) error {
	setInt := func(dst *int, lo int) error {
		i, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil || i < lo {
			return fmt.Errorf("invalid int for %s: %v", key, val)
		}
		*dst = i
		return nil
	}
	switch key {
	case "log_level":
		c.LogLevel = strings.ToLower(strings.TrimSpace(val))
	case "log_format":
		f := strings.ToLower(strings.TrimSpace(val))
		if f != "text" && f != "json" {
			return fmt.Errorf("invalid log_format: %s (use text or json)", val)
		}
		c.LogFormat = f
	case "db_driver":
		c.DBDriver = strings.TrimSpace(val)
	case "db_dsn":
		c.DBDSN = val
	case "db_max_open_conns":
		return setInt(&c.DBMaxOpenConns, 0)
	case "db_max_idle_conns":
		return setInt(&c.DBMaxIdleConns, 0)
	case "db_conn_max_lifetime_sec":
		return setInt(&c.DBConnMaxLifetimeSec, 0)
	case "listen_addr":
		c.ListenAddr = strings.TrimSpace(val)
	case "request_timeout_sec":
		return setInt(&c.RequestTimeoutSec, 1)
	case "max_upload_mb":
		return setInt(&c.MaxUploadMB, 1)
	case "allowed_origins":
		var origins []string
		for _, o := range strings.Split(val, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.AllowedOrigins = origins
	case "profile_contamination":
		f, perr := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if perr != nil || f <= 0 || f > 0.5 {
			return fmt.Errorf("invalid float for profile_contamination: %v (want 0 < x <= 0.5)", val)
		}
		c.ProfileContamination = f
	case "profile_seed":
		s, perr := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		if perr != nil {
			return fmt.Errorf("invalid int for profile_seed: %v", val)
		}
		c.ProfileSeed = s
	case "profile_trees":
		return setInt(&c.ProfileTrees, 1)
	case "profile_min_year":
		return setInt(&c.ProfileMinYear, 1)
	case "profile_max_year":
		return setInt(&c.ProfileMaxYear, 1)
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}
