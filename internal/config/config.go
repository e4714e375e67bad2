// internal/config/config.go
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"localesync/internal/locale"
	"localesync/internal/storage"
	"localesync/internal/translate"
	"localesync/internal/workspace"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the workspace root. Its
// presence also marks the root.
const FileName = ".localesync.yaml"

// EnvPrefix prefixes every environment override, e.g.
// LOCALESYNC_PROVIDER_NAME=claude
const EnvPrefix = "LOCALESYNC"

type Config struct {
	Root string `mapstructure:"root"`

	Locales struct {
		Dir           string        `mapstructure:"dir"`
		Style         locale.Style  `mapstructure:"style"`
		SourceLocales []string      `mapstructure:"source_locales"`
		Format        locale.Format `mapstructure:"format"`
	} `mapstructure:"locales"`

	Rules      []workspace.Rule `mapstructure:"rules"`
	Exclude    []string         `mapstructure:"exclude"`
	IgnoreDirs []string         `mapstructure:"ignore_dirs"`

	Provider struct {
		Name   string                 `mapstructure:"name"` // libre, claude
		Libre  translate.LibreConfig  `mapstructure:"libre"`
		Claude translate.ClaudeConfig `mapstructure:"claude"`
	} `mapstructure:"provider"`

	Cache struct {
		// Path of the badger directory; empty keeps the cache in memory
		Path         string                     `mapstructure:"path"`
		Size         int                        `mapstructure:"size"`
		StringTTL    time.Duration              `mapstructure:"string_ttl"`
		LanguagesTTL time.Duration              `mapstructure:"languages_ttl"`
		Compression  storage.CompressionOptions `mapstructure:"compression"`
	} `mapstructure:"cache"`

	Lock struct {
		GraceDelay time.Duration `mapstructure:"grace_delay"`
	} `mapstructure:"lock"`

	Server struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"server"`

	Log struct {
		Level      string `mapstructure:"level"` // debug, info, warn, error
		File       string `mapstructure:"file"`
		MaxSizeMB  int    `mapstructure:"max_size_mb"`
		MaxBackups int    `mapstructure:"max_backups"`
	} `mapstructure:"log"`

	Disabled           bool     `mapstructure:"disabled"`
	DisabledCategories []string `mapstructure:"disabled_categories"`
}

func setDefaults(v *viper.Viper) {
	format := locale.DefaultFormat()

	v.SetDefault("root", ".")
	v.SetDefault("locales.dir", "locales")
	v.SetDefault("locales.style", string(locale.StyleDirectory))
	v.SetDefault("locales.source_locales", []string{})
	v.SetDefault("locales.format.indent", format.Indent)
	v.SetDefault("locales.format.trailing_newline", format.TrailingNewline)
	v.SetDefault("exclude", []string{})
	v.SetDefault("ignore_dirs", workspace.DefaultIgnoreDirs)

	v.SetDefault("provider.name", "libre")
	v.SetDefault("provider.libre.base_url", "http://localhost:5000")
	v.SetDefault("provider.libre.timeout", 30*time.Second)
	v.SetDefault("provider.claude.max_tokens", 4096)

	v.SetDefault("cache.path", ".localesync/cache")
	v.SetDefault("cache.size", 4096)
	v.SetDefault("cache.string_ttl", 30*24*time.Hour)
	v.SetDefault("cache.languages_ttl", 24*time.Hour)
	v.SetDefault("cache.compression.min_size", storage.DefaultCompressionOptions().MinSize)
	v.SetDefault("cache.compression.level", storage.DefaultCompressionOptions().Level)

	v.SetDefault("lock.grace_delay", 500*time.Millisecond)
	v.SetDefault("server.addr", "127.0.0.1:7420")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("disabled", false)
	v.SetDefault("disabled_categories", []string{})
}

// flagKeys maps command line flags to config keys
var flagKeys = map[string]string{
	"root":      "root",
	"provider":  "provider.name",
	"log-level": "log.level",
	"log-file":  "log.file",
	"addr":      "server.addr",
	"cache-dir": "cache.path",
}

// Load reads defaults, then the config file, then LOCALESYNC_* variables,
// then flags. An empty path looks for FileName in the root.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("provider.claude.api_key", EnvPrefix+"_PROVIDER_CLAUDE_API_KEY", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("provider.libre.api_key", EnvPrefix+"_PROVIDER_LIBRE_API_KEY", "LIBRETRANSLATE_API_KEY")

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}
	}

	if path == "" {
		path = filepath.Join(v.GetString("root"), FileName)
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !workspace.IsNotExist(err) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// normalize makes paths absolute and fills derived settings
func (c *Config) normalize() error {
	root, err := filepath.Abs(c.Root)
	if err != nil {
		return fmt.Errorf("resolving root: %w", err)
	}
	c.Root = root

	if c.Cache.Path != "" && !filepath.IsAbs(c.Cache.Path) {
		c.Cache.Path = filepath.Join(root, c.Cache.Path)
	}
	if c.Log.File != "" && !filepath.IsAbs(c.Log.File) {
		c.Log.File = filepath.Join(root, c.Log.File)
	}
	if len(c.Rules) == 0 {
		c.Rules = []workspace.Rule{{
			Category: "locale",
			Pattern:  filepath.ToSlash(c.Locales.Dir) + "/**.json",
		}}
	}
	return c.Validate()
}

// Validate reports settings the pipeline cannot start with
func (c *Config) Validate() error {
	switch c.Locales.Style {
	case locale.StyleDirectory, locale.StyleFile:
	default:
		return fmt.Errorf("invalid locales.style %q: want %q or %q", c.Locales.Style, locale.StyleDirectory, locale.StyleFile)
	}
	switch c.Provider.Name {
	case "libre":
	case "claude":
		if c.Provider.Claude.APIKey == "" {
			return fmt.Errorf("provider.claude.api_key is required (or set ANTHROPIC_API_KEY)")
		}
	default:
		return fmt.Errorf("unknown provider %q", c.Provider.Name)
	}
	if c.Lock.GraceDelay <= 0 {
		return fmt.Errorf("lock.grace_delay must be positive")
	}
	if c.Locales.Format.Indent == "" {
		return fmt.Errorf("locales.format.indent cannot be empty")
	}
	return nil
}

// Layout is where locale files live under the root
func (c *Config) Layout() locale.Layout {
	return locale.Layout{
		Root:  filepath.Join(c.Root, filepath.FromSlash(c.Locales.Dir)),
		Style: c.Locales.Style,
	}
}

// Classifier builds the path classifier for the root. The cache directory
// is always left out.
func (c *Config) Classifier() (*workspace.Classifier, error) {
	exclude := append([]string(nil), c.Exclude...)
	if rel, err := filepath.Rel(c.Root, c.Cache.Path); err == nil && c.Cache.Path != "" && !strings.HasPrefix(rel, "..") {
		exclude = append(exclude, filepath.ToSlash(rel)+"/**")
	}
	return workspace.NewClassifier(c.Root, c.Rules, exclude, c.IgnoreDirs)
}
