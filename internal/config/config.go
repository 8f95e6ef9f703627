// Package config loads tplan settings. TPLAN_* environment variables
// override config.yaml, which overrides the defaults.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tgienger/tplan/internal/db"
	"github.com/tgienger/tplan/internal/models"
	"github.com/tgienger/tplan/internal/orm"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
	envPrefix      = "TPLAN"

	KeyDataDir      = "data_dir"
	KeyDBFile       = "db_file"
	KeyTable        = "table"
	KeyTickInterval = "tick_interval"
	KeyLogLevel     = "log.level"
	KeyLogFile      = "log.file"
)

// Defaults.
const (
	DefaultDBFile       = "timeplanner.db"
	DefaultTable        = "Task"
	DefaultTickInterval = models.DefaultTick
	DefaultLogLevel     = "info"
	DefaultLogFile      = "tplan.log"
)

// ErrInvalid reports a config value that cannot be used.
var ErrInvalid = errors.New("invalid config")

// Config is the resolved configuration.
type Config struct {
	DataDir      string        `mapstructure:"data_dir"`
	DBFile       string        `mapstructure:"db_file"`
	Table        string        `mapstructure:"table"`
	TickInterval time.Duration `mapstructure:"tick_interval"`
	Log          Log           `mapstructure:"log"`
}

// Log configures logging.
type Log struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// fileDefaults is what a fresh config.yaml contains.
type fileDefaults struct {
	DBFile       string `yaml:"db_file"`
	Table        string `yaml:"table"`
	TickInterval string `yaml:"tick_interval"`
	Log          struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"log"`
}

// DefaultConfigDir returns the user config directory for tplan.
func DefaultConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.WithStack(err)
	}
	return filepath.Join(dir, "tplan"), nil
}

// Load reads config.yaml from configDir, writing a default one on first
// run. A missing or unreadable directory is an error; a missing file after
// that is not.
func Load(configDir string) (*Config, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "ensure config dir")
	}
	if err := ensureDefaultFile(configDir); err != nil {
		return nil, errors.Wrap(err, "ensure default config")
	}

	dataDir, err := db.DefaultDataDir()
	if err != nil {
		return nil, errors.Wrap(err, "resolve data dir")
	}

	v := viper.New()
	v.SetDefault(KeyDataDir, dataDir)
	v.SetDefault(KeyDBFile, DefaultDBFile)
	v.SetDefault(KeyTable, DefaultTable)
	v.SetDefault(KeyTickInterval, DefaultTickInterval)
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyLogFile, DefaultLogFile)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "read config")
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the values the store and database depend on.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.Wrap(ErrInvalid, "data_dir is empty")
	}
	if c.DBFile == "" {
		return errors.Wrap(ErrInvalid, "db_file is empty")
	}
	if !orm.IsIdentifier(c.Table) {
		return errors.Wrapf(ErrInvalid, "table %q is not a plain identifier", c.Table)
	}
	if c.TickInterval < time.Second {
		return errors.Wrapf(ErrInvalid, "tick_interval %s is under a second", c.TickInterval)
	}
	return nil
}

// DBPath returns the database file, relative names resolved in DataDir.
func (c *Config) DBPath() string {
	return c.resolve(c.DBFile)
}

// LogPath returns the log file, or "" when logging goes to stderr.
func (c *Config) LogPath() string {
	if c.Log.File == "" {
		return ""
	}
	return c.resolve(c.Log.File)
}

func (c *Config) resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

// ensureDefaultFile writes config.yaml with the defaults unless it exists.
func ensureDefaultFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return errors.Wrap(err, "stat config file")
	}

	var d fileDefaults
	d.DBFile = DefaultDBFile
	d.Table = DefaultTable
	d.TickInterval = DefaultTickInterval.String()
	d.Log.Level = DefaultLogLevel
	d.Log.File = DefaultLogFile

	data, err := yaml.Marshal(&d)
	if err != nil {
		return errors.WithStack(err)
	}
	header := "# tplan configuration\n# data_dir defaults to $XDG_DATA_HOME/tplan.\n"
	return os.WriteFile(path, append([]byte(header), data...), 0o644)
}
