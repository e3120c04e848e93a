// Package config resolves runtime settings from flags, STOREVEC_* environment
// variables and an optional storevec.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	configFileName = "storevec"
	configFileType = "yaml"
	envPrefix      = "STOREVEC"
)

// Keys understood in storevec.yaml and as STOREVEC_<KEY> env vars.
const (
	KeyAddr          = "addr"
	KeySource        = "source"
	KeySQLitePath    = "sqlite_path"
	KeyRemoteURL     = "remote_url"
	KeyBlocking      = "blocking"
	KeyStrictDeletes = "strict_deletes"
	KeyFetchDelay    = "fetch_delay"
	KeyLogLevel      = "log_level"
	KeyLogFormat     = "log_format"
	KeyViewTTL       = "view_ttl"
)

const (
	SourceSample = "sample"
	SourceSQLite = "sqlite"
	SourceHTTP   = "http"
)

var (
	ErrSourceUnknown      = errors.New("unknown source (expected sample|sqlite|http)")
	ErrSQLitePathEmpty    = errors.New("sqlite source requires sqlite_path")
	ErrRemoteURLEmpty     = errors.New("http source requires remote_url")
	ErrViewTTLNonPositive = errors.New("view_ttl must be positive")
)

type Config struct {
	Addr          string        `mapstructure:"addr"`
	Source        string        `mapstructure:"source"`
	SQLitePath    string        `mapstructure:"sqlite_path"`
	RemoteURL     string        `mapstructure:"remote_url"`
	Blocking      bool          `mapstructure:"blocking"`
	StrictDeletes bool          `mapstructure:"strict_deletes"`
	FetchDelay    time.Duration `mapstructure:"fetch_delay"`
	LogLevel      string        `mapstructure:"log_level"`
	LogFormat     string        `mapstructure:"log_format"`
	ViewTTL       time.Duration `mapstructure:"view_ttl"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyAddr, "127.0.0.1:3000")
	v.SetDefault(KeySource, SourceSample)
	v.SetDefault(KeySQLitePath, "")
	v.SetDefault(KeyRemoteURL, "")
	v.SetDefault(KeyBlocking, true)
	v.SetDefault(KeyStrictDeletes, false)
	v.SetDefault(KeyFetchDelay, time.Duration(0))
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyViewTTL, 2*time.Minute)
}

// NewViper returns a viper instance with defaults, env binding and (when
// found) the config file loaded. With an empty file it searches the working
// directory and $HOME/.storevec for storevec.yaml.
func NewViper(file string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if f := strings.TrimSpace(file); f != "" {
		v.SetConfigFile(f)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", f, err)
		}
		return v, nil
	}

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".storevec"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// Missing storevec.yaml is not an error.
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// Load decodes the resolved settings and validates them.
func Load(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	c.Source = strings.ToLower(strings.TrimSpace(c.Source))
	c.Addr = strings.TrimSpace(c.Addr)
	return c, c.Validate()
}

func (c Config) Validate() error {
	switch c.Source {
	case SourceSample:
	case SourceSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return ErrSQLitePathEmpty
		}
	case SourceHTTP:
		if strings.TrimSpace(c.RemoteURL) == "" {
			return ErrRemoteURLEmpty
		}
	default:
		return fmt.Errorf("%w: %q", ErrSourceUnknown, c.Source)
	}
	if c.ViewTTL <= 0 {
		return ErrViewTTLNonPositive
	}
	return nil
}
