// Package config resolves the CLI configuration from flags, SITEATLAS_
// environment variables and an optional config file, and validates it.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/jmylchreest/siteatlas/internal/crawler"
	"github.com/jmylchreest/siteatlas/internal/output"
	"github.com/jmylchreest/siteatlas/pkg/browser"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the resolved configuration of one CLI run. Keys are the
// mapstructure names; flags use the same names with dashes.
type Config struct {
	// Browser settings
	Browser    string `mapstructure:"browser" validate:"oneof=chrome rod static"`
	Headless   bool   `mapstructure:"headless"`
	ChromePath string `mapstructure:"chrome_path"`
	UserAgent  string `mapstructure:"user_agent" validate:"required"`
	Stealth    bool   `mapstructure:"stealth"`

	// Timing
	Timeout  time.Duration `mapstructure:"timeout" validate:"gte=0"`
	Deadline time.Duration `mapstructure:"deadline" validate:"gte=0"`
	Wait     time.Duration `mapstructure:"wait" validate:"gte=0"`
	Settle   time.Duration `mapstructure:"settle" validate:"gte=0"`

	// Crawl bounds
	MaxDepth    int    `mapstructure:"max_depth" validate:"gte=-1"`
	MaxPages    int    `mapstructure:"max_pages" validate:"gte=0"`
	MaxPageSize string `mapstructure:"max_page_size" validate:"omitempty,bytesize"`
	Interactive bool   `mapstructure:"interactive"`
	FailFast    bool   `mapstructure:"fail_fast"`

	// AllowedDomains are netlocs (host[:port]) allowed besides the seeds'.
	AllowedDomains []string `mapstructure:"allowed_domains" validate:"dive,netloc"`

	// Output
	Format string `mapstructure:"format" validate:"output_format"`
	Output string `mapstructure:"output"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	bc := browser.DefaultConfig()
	cc := crawler.DefaultConfig()
	return Config{
		Browser:     string(browser.ModeChrome),
		Headless:    bc.Headless,
		UserAgent:   bc.UserAgent,
		Timeout:     cc.NavigationTimeout,
		Wait:        cc.Wait,
		Settle:      cc.Settle,
		MaxDepth:    cc.MaxDepth,
		Interactive: cc.Interactive,
		Format:      string(output.FormatJSON),
	}
}

// SetDefaults registers Default() on v so that environment variables and
// config file keys resolve even when no flag is bound to them.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("browser", d.Browser)
	v.SetDefault("headless", d.Headless)
	v.SetDefault("chrome_path", d.ChromePath)
	v.SetDefault("user_agent", d.UserAgent)
	v.SetDefault("stealth", d.Stealth)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("deadline", d.Deadline)
	v.SetDefault("wait", d.Wait)
	v.SetDefault("settle", d.Settle)
	v.SetDefault("max_depth", d.MaxDepth)
	v.SetDefault("max_pages", d.MaxPages)
	v.SetDefault("max_page_size", d.MaxPageSize)
	v.SetDefault("interactive", d.Interactive)
	v.SetDefault("fail_fast", d.FailFast)
	v.SetDefault("allowed_domains", []string{})
	v.SetDefault("format", d.Format)
	v.SetDefault("output", d.Output)
}

// FromViper decodes and validates the configuration held by v.
func FromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	cfg.AllowedDomains = splitDomains(cfg.AllowedDomains)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every field.
func (c Config) Validate() error {
	if err := newValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = describe(fe)
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// PageSizeBytes returns MaxPageSize in bytes, 0 when unset.
func (c Config) PageSizeBytes() int {
	s := strings.TrimSpace(c.MaxPageSize)
	if s == "" || s == "0" {
		return 0
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0
	}
	return int(n)
}

// BrowserConfig returns the backend settings.
func (c Config) BrowserConfig() browser.Config {
	bc := browser.DefaultConfig()
	bc.UserAgent = c.UserAgent
	bc.ChromePath = c.ChromePath
	bc.Headless = c.Headless
	bc.Stealth = c.Stealth
	if c.Timeout > 0 {
		bc.Timeout = c.Timeout
	}
	bc.MaxBodySize = c.PageSizeBytes()
	return bc
}

// CrawlerConfig returns the walk settings.
func (c Config) CrawlerConfig() crawler.Config {
	cc := crawler.DefaultConfig()
	cc.MaxDepth = c.MaxDepth
	cc.MaxPages = c.MaxPages
	cc.NavigationTimeout = c.Timeout
	cc.Deadline = c.Deadline
	cc.Wait = c.Wait
	cc.Settle = c.Settle
	cc.Interactive = c.Interactive
	cc.FailFast = c.FailFast
	return cc
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("netloc", validateNetloc)
	_ = v.RegisterValidation("bytesize", validateByteSize)
	_ = v.RegisterValidation("output_format", validateFormat)
	return v
}

// validateNetloc accepts a bare host with an optional port. The empty
// string is the netloc of file URLs and is allowed.
func validateNetloc(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	if strings.ContainsAny(s, "/?#@ \t") {
		return false
	}
	u, err := url.Parse("//" + s)
	return err == nil && u.Host == s
}

func validateByteSize(fl validator.FieldLevel) bool {
	_, err := humanize.ParseBytes(fl.Field().String())
	return err == nil
}

func validateFormat(fl validator.FieldLevel) bool {
	_, err := output.ParseFormat(fl.Field().String())
	return err == nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "netloc":
		return fmt.Sprintf("%s: %q is not a host[:port]", fe.Namespace(), fe.Value())
	case "bytesize":
		return fmt.Sprintf("%s: %q is not a size (e.g. 5MB)", fe.Field(), fe.Value())
	case "output_format":
		return fmt.Sprintf("%s: unsupported format %q (use %s)", fe.Field(), fe.Value(), strings.Join(formatNames(), ", "))
	case "oneof":
		return fmt.Sprintf("%s: %v must be one of %s", fe.Field(), fe.Value(), fe.Param())
	default:
		return fmt.Sprintf("%s: failed %s=%s (got %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value())
	}
}

func formatNames() []string {
	names := make([]string, len(output.Formats))
	for i, f := range output.Formats {
		names[i] = string(f)
	}
	return names
}

// splitDomains accepts comma-separated entries so that a single
// environment variable can carry several domains. Entries keep their case:
// allow-list matching compares netlocs exactly as URLs spell them.
func splitDomains(in []string) []string {
	var out []string
	for _, d := range in {
		for _, part := range strings.Split(d, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
