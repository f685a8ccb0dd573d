// Package config loads the command-line tool's settings from baseorm.yaml,
// BASEORM_* environment variables and .env files.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/baseorm/baseorm/internal/adapters/database"
)

const (
	// FileName is the config file looked up without an explicit path.
	FileName = "baseorm"
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "BASEORM"
	// DefaultDSN is the database file of the default alias.
	DefaultDSN = "db.sqlite3"
)

// Config holds the tool configuration.
type Config struct {
	Databases     map[string]database.Config `mapstructure:"databases"`
	Schema        string                     `mapstructure:"schema"`
	MigrationsDir string                     `mapstructure:"migrations_dir"`
	Debug         bool                       `mapstructure:"debug"`
	MetricsFile   string                     `mapstructure:"metrics_file"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

// Database returns the settings of alias.
func (c *Config) Database(alias string) (database.Config, bool) {
	cfg, ok := c.Databases[alias]
	return cfg, ok
}

// Aliases lists the configured aliases in sorted order.
func (c *Config) Aliases() []string {
	out := make([]string, 0, len(c.Databases))
	for alias := range c.Databases {
		out = append(out, alias)
	}
	sort.Strings(out)
	return out
}

// Loader reads configuration. The zero value reads from the working
// directory of the real filesystem.
type Loader struct {
	// Fs is where config and .env files are read from.
	Fs afero.Fs
	// File is an explicit config file; it must exist when set.
	File string
	// Home overrides the home directory lookup.
	Home string
}

// Load reads configuration from the current directory and $HOME/.baseorm.
func Load(file string) (*Config, error) {
	return Loader{File: file}.Load()
}

// Load resolves the configuration. Precedence, highest first: .env.local,
// process environment, .env, config file, defaults.
func (l Loader) Load() (*Config, error) {
	fs := l.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	v := viper.New()
	v.SetFs(fs)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("databases.default.driver", database.DriverCGO)
	v.SetDefault("databases.default.dsn", DefaultDSN)
	v.SetDefault("databases.default.max_idle_time", "0s")
	v.SetDefault("databases.default.statement_cache_size", 64)
	v.SetDefault("schema", "schema.yaml")
	v.SetDefault("migrations_dir", "migrations")
	v.SetDefault("debug", false)
	v.SetDefault("metrics_file", "")

	if l.File != "" {
		v.SetConfigFile(l.File)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := l.home(); err == nil {
			v.AddConfigPath(filepath.Join(home, "."+FileName))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, err
			}
		}
	}

	if err := l.dotenv(fs, v, ".env", false); err != nil {
		return nil, err
	}
	if err := l.dotenv(fs, v, ".env.local", true); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	cfg.File = v.ConfigFileUsed()
	return cfg, nil
}

func (l Loader) home() (string, error) {
	if l.Home != "" {
		return l.Home, nil
	}
	return homedir.Dir()
}

// dotenv applies BASEORM_* entries of a .env file to known keys. Unless
// override is set, variables present in the process environment win.
func (l Loader) dotenv(fs afero.Fs, v *viper.Viper, name string, override bool) error {
	f, err := fs.Open(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	entries, err := godotenv.Parse(f)
	if err != nil {
		return err
	}
	for _, key := range v.AllKeys() {
		env := EnvName(key)
		val, ok := entries[env]
		if !ok {
			continue
		}
		if _, set := os.LookupEnv(env); set && !override {
			continue
		}
		v.Set(key, val)
	}
	return nil
}

// EnvName is the environment variable that overrides key.
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}
