package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/KaramelBytes/tabloom-cli/internal/analysis"
	"github.com/KaramelBytes/tabloom-cli/internal/parser"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	Delimiter   string `mapstructure:"delimiter" yaml:"delimiter"`
	MaxRows     int    `mapstructure:"max_rows" yaml:"max_rows"`
	PreviewRows int    `mapstructure:"preview_rows" yaml:"preview_rows"`
	LogLevel    string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat   string `mapstructure:"log_format" yaml:"log_format"`

	Server Server          `mapstructure:"server" yaml:"server"`
	Policy analysis.Policy `mapstructure:"policy" yaml:"policy"`
}

// Server holds the HTTP host settings.
type Server struct {
	Addr              string `mapstructure:"addr" yaml:"addr"`
	MaxUploadBytes    int64  `mapstructure:"max_upload_bytes" yaml:"max_upload_bytes"`
	RequestTimeoutSec int    `mapstructure:"request_timeout_sec" yaml:"request_timeout_sec"`
	ReadTimeoutSec    int    `mapstructure:"read_timeout_sec" yaml:"read_timeout_sec"`
	IdleTimeoutSec    int    `mapstructure:"idle_timeout_sec" yaml:"idle_timeout_sec"`
	CacheSize         int    `mapstructure:"cache_size" yaml:"cache_size"`
	// MaxDatasets bounds the uploaded datasets kept in memory; the oldest is
	// dropped first.
	MaxDatasets int `mapstructure:"max_datasets" yaml:"max_datasets"`
}

// Dir returns ~/.tabloom.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".tabloom"), nil
}

// Path returns the config file used for cfgFile: cfgFile itself, or
// ~/.tabloom/config.yaml when empty.
func Path(cfgFile string) (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.tabloom/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path, err := Path(cfgFile)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
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

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v, err := newViper(cfgFile)
	if err != nil {
		return nil, err
	}
	return decode(v)
}

// Default returns the built-in configuration, ignoring files and env.
func Default() *Global {
	v := viper.New()
	setDefaults(v)
	c, err := decode(v)
	if err != nil {
		return &Global{Policy: analysis.DefaultPolicy()}
	}
	return c
}

// Set updates one dotted key (e.g. "server.addr", "policy.insights.measure")
// in the configuration read from cfgFile and saves the result. List values
// are comma-separated.
func Set(cfgFile, key, value string) (*Global, error) {
	v, err := newViper(cfgFile)
	if err != nil {
		return nil, err
	}
	key = strings.ToLower(strings.TrimSpace(key))
	if !slices.Contains(v.AllKeys(), key) {
		return nil, fmt.Errorf("unknown key: %s", key)
	}
	v.Set(key, value)
	c, err := decode(v)
	if err != nil {
		return nil, err
	}
	if err := Save(c, cfgFile); err != nil {
		return nil, err
	}
	return c, nil
}

// Keys lists every known configuration key in sorted order.
func Keys() []string {
	v := viper.New()
	setDefaults(v)
	keys := v.AllKeys()
	slices.Sort(keys)
	return keys
}

// Validate reports settings that cannot be used.
func (c *Global) Validate() error {
	if _, err := parser.ParseDelimiter(c.Delimiter); err != nil {
		return fmt.Errorf("delimiter: %w", err)
	}
	if c.MaxRows < 0 {
		return fmt.Errorf("max_rows must be >= 0, got %d", c.MaxRows)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid log_format: %s (use text or json)", c.LogFormat)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server.max_upload_bytes must be > 0")
	}
	if c.Server.MaxDatasets < 0 {
		return fmt.Errorf("server.max_datasets must be >= 0, got %d", c.Server.MaxDatasets)
	}
	if _, err := analysis.ParseAggFunc(string(c.Policy.Insights.BreakdownFunc)); err != nil {
		return fmt.Errorf("policy.insights.breakdown_func: %w", err)
	}
	return nil
}

// DelimiterRune returns the parsed delimiter; 0 means chosen per file.
func (c *Global) DelimiterRune() rune {
	r, _ := parser.ParseDelimiter(c.Delimiter)
	return r
}

func newViper(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("TABLOOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
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
	// optional read
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

func decode(v *viper.Viper) (*Global, error) {
	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("delimiter", "")
	v.SetDefault("max_rows", 0)
	v.SetDefault("preview_rows", analysis.DefaultPreviewRows)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	// Server defaults
	v.SetDefault("server.addr", "127.0.0.1:8080")
	v.SetDefault("server.max_upload_bytes", int64(32<<20))
	v.SetDefault("server.request_timeout_sec", 30)
	v.SetDefault("server.read_timeout_sec", 15)
	v.SetDefault("server.idle_timeout_sec", 60)
	v.SetDefault("server.cache_size", 16)
	v.SetDefault("server.max_datasets", 64)

	// Policy defaults are flattened from analysis.DefaultPolicy so each leaf
	// can be overridden on its own by file or env.
	b, err := yaml.Marshal(analysis.DefaultPolicy())
	if err != nil {
		return
	}
	var tree map[string]any
	if err := yaml.Unmarshal(b, &tree); err != nil {
		return
	}
	setTree(v, "policy", tree)
}

func setTree(v *viper.Viper, prefix string, tree map[string]any) {
	for k, val := range tree {
		key := prefix + "." + k
		if sub, ok := val.(map[string]any); ok {
			setTree(v, key, sub)
			continue
		}
		v.SetDefault(key, val)
	}
}
