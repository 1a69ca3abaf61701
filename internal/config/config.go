package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Output           string `yaml:"output"`
	UntilLastChapter bool   `yaml:"until_last_chapter"`
	KeepFiles        bool   `yaml:"keep_files"`
	Convert          bool   `yaml:"convert"`
	SkipDownload     bool   `yaml:"skip_download"`
	Debug            bool   `yaml:"debug"`
	Progress         bool   `yaml:"progress"`
	ArchiveExt       string `yaml:"archive_ext"`

	SiteURL      string   `yaml:"site_url"`
	AllowedHosts []string `yaml:"allowed_hosts,omitempty"`

	// Timeouts and the retry delay are in seconds.
	PageTimeout   int `yaml:"page_timeout"`
	ImageTimeout  int `yaml:"image_timeout"`
	ImageAttempts int `yaml:"image_attempts"`
	RetryDelay    int `yaml:"retry_delay"`

	Cookie           string `yaml:"cookie"`
	CookieFile       string `yaml:"cookie_file"`
	UserAgent        string `yaml:"user_agent"`
	CloudflareBypass bool   `yaml:"cloudflare_bypass"`
}

// Options carries command line values. Zero values leave the profile
// untouched.
type Options struct {
	IgnoreConfig     bool
	Debug            bool
	Output           string
	UntilLastChapter bool
	KeepFiles        bool
	NoConvert        bool
	SkipDownload     bool
	NoProgress       bool
	Cookie           string
	CookieFile       string
	UserAgent        string
}

const (
	DefaultSiteURL       = "https://bato.to"
	DefaultArchiveExt    = "cbz"
	DefaultPageTimeout   = 20
	DefaultImageTimeout  = 120
	DefaultImageAttempts = 5
	DefaultRetryDelay    = 5
)

func DefaultConfig() *Config {
	return &Config{
		Output:        ".",
		Convert:       true,
		Progress:      true,
		ArchiveExt:    DefaultArchiveExt,
		SiteURL:       DefaultSiteURL,
		PageTimeout:   DefaultPageTimeout,
		ImageTimeout:  DefaultImageTimeout,
		ImageAttempts: DefaultImageAttempts,
		RetryDelay:    DefaultRetryDelay,
	}
}

func SaveYAML(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// loadYAML decodes path over the defaults so keys missing from older
// profiles keep their default value.
func loadYAML(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	c := DefaultConfig()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}

	return c, nil
}

func LoadMerged(opts Options) (*Config, string, error) {
	if opts.IgnoreConfig {
		cfg := DefaultConfig()
		mergeConfig(cfg, opts)
		normalizeDefaults(cfg)
		return cfg, "(ignored config)", nil
	}

	activePath, err := ActiveConfigPath()
	if err == ErrNoConfig || activePath == "" {
		cfg := DefaultConfig()
		mergeConfig(cfg, opts)
		normalizeDefaults(cfg)
		return cfg, "(default config in memory)\nRun `batocbz config init` to create an actual config\n", nil
	}
	if err != nil {
		return nil, "", err
	}

	cfg, err := loadYAML(activePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config %s: %w", activePath, err)
	}

	mergeConfig(cfg, opts)
	normalizeDefaults(cfg)

	return cfg, activePath, nil
}

func mergeConfig(c *Config, o Options) {
	if o.Output != "" {
		c.Output = o.Output
	}
	if o.Debug {
		c.Debug = true
	}
	if o.UntilLastChapter {
		c.UntilLastChapter = true
	}
	if o.KeepFiles {
		c.KeepFiles = true
	}
	if o.NoConvert {
		c.Convert = false
	}
	if o.SkipDownload {
		c.SkipDownload = true
	}
	if o.NoProgress {
		c.Progress = false
	}
	if o.Cookie != "" {
		c.Cookie = o.Cookie
	}
	if o.CookieFile != "" {
		c.CookieFile = o.CookieFile
	}
	if o.UserAgent != "" {
		c.UserAgent = o.UserAgent
	}
}

func normalizeDefaults(c *Config) {
	if c.Output == "" {
		c.Output = "."
	}
	c.ArchiveExt = strings.TrimPrefix(strings.TrimSpace(c.ArchiveExt), ".")
	if c.ArchiveExt == "" {
		c.ArchiveExt = DefaultArchiveExt
	}
	if strings.TrimSpace(c.SiteURL) == "" {
		c.SiteURL = DefaultSiteURL
	}
	if c.PageTimeout <= 0 {
		c.PageTimeout = DefaultPageTimeout
	}
	if c.ImageTimeout <= 0 {
		c.ImageTimeout = DefaultImageTimeout
	}
	if c.ImageAttempts <= 0 {
		c.ImageAttempts = DefaultImageAttempts
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}
}

func (c *Config) Print(w io.Writer) {
	p := func(format string, args ...any) {
		_, _ = fmt.Fprintf(w, format, args...)
	}

	p(" -output: %s\n", c.Output)
	p(" -site_url: %s\n", c.SiteURL)
	if len(c.AllowedHosts) > 0 {
		p(" -allowed_hosts: %s\n", strings.Join(c.AllowedHosts, ", "))
	}
	if c.UntilLastChapter {
		p(" -until_last_chapter: %t\n", c.UntilLastChapter)
	}
	if c.KeepFiles {
		p(" -keep_files: %t\n", c.KeepFiles)
	}
	p(" -convert: %t\n", c.Convert)
	if c.SkipDownload {
		p(" -skip_download: %t\n", c.SkipDownload)
	}
	if c.Debug {
		p(" -debug: %t\n", c.Debug)
	}
	if !c.Progress {
		p(" -progress: %t\n", c.Progress)
	}
	p(" -archive_ext: %s\n", c.ArchiveExt)
	p(" -page_timeout: %ds\n", c.PageTimeout)
	p(" -image_timeout: %ds\n", c.ImageTimeout)
	p(" -image_attempts: %d\n", c.ImageAttempts)
	p(" -retry_delay: %ds\n", c.RetryDelay)
	if c.CookieFile != "" {
		p(" -cookie_file: %s\n", c.CookieFile)
	}
	if c.Cookie != "" {
		p(" -cookie: (set)\n")
	}
	if c.UserAgent != "" {
		p(" -user_agent: %s\n", c.UserAgent)
	}
	if c.CloudflareBypass {
		p(" -cloudflare_bypass: %t\n", c.CloudflareBypass)
	}
}
