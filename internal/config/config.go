// engine/internal/config/config.go
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Rule struct {
	Tag    string   `yaml:"tag" json:"tag"`
	Weight int      `yaml:"weight" json:"weight"`
	Any    []string `yaml:"any" json:"any"`
}

type Penalty struct {
	Reason string   `yaml:"reason" json:"reason"`
	Weight int      `yaml:"weight" json:"weight"`
	Any    []string `yaml:"any" json:"any"`
}

// Company is one employer board. Which fields matter depends on Vendor.
type Company struct {
	Slug     string            `yaml:"slug" json:"slug"`
	Name     string            `yaml:"name" json:"name"`
	Vendor   string            `yaml:"vendor" json:"vendor"`
	Domain   string            `yaml:"domain,omitempty" json:"domain,omitempty"`
	Host     string            `yaml:"host,omitempty" json:"host,omitempty"`
	Site     string            `yaml:"site,omitempty" json:"site,omitempty"`
	Boards   []string          `yaml:"boards,omitempty" json:"boards,omitempty"`
	BaseURL  string            `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	APIBase  string            `yaml:"api_base,omitempty" json:"api_base,omitempty"`
	Locale   string            `yaml:"locale,omitempty" json:"locale,omitempty"`
	Facets   map[string]string `yaml:"facets,omitempty" json:"facets,omitempty"`
	Params   map[string]string `yaml:"params,omitempty" json:"params,omitempty"`
	Options  map[string]string `yaml:"options,omitempty" json:"options,omitempty"`
	Disabled bool              `yaml:"disabled,omitempty" json:"disabled,omitempty"`
}

type Redis struct {
	Enabled        bool   `yaml:"enabled" json:"enabled"`
	Addr           string `yaml:"addr" json:"addr"`
	DB             int    `yaml:"db" json:"db"`
	KeyPrefix      string `yaml:"key_prefix" json:"key_prefix"`
	KeyringAccount string `yaml:"keyring_account" json:"keyring_account"`
}

type Config struct {
	App struct {
		Port    int    `yaml:"port" json:"port"`
		DataDir string `yaml:"data_dir" json:"data_dir"`
	} `yaml:"app" json:"app"`

	Cache struct {
		TTLSeconds int   `yaml:"ttl_seconds" json:"ttl_seconds"`
		Redis      Redis `yaml:"redis" json:"redis"`
	} `yaml:"cache" json:"cache"`

	Fetch struct {
		PageSize           int     `yaml:"page_size" json:"page_size"`
		TimeoutSeconds     int     `yaml:"timeout_seconds" json:"timeout_seconds"`
		DetailConcurrency  int     `yaml:"detail_concurrency" json:"detail_concurrency"`
		CompanyConcurrency int     `yaml:"company_concurrency" json:"company_concurrency"`
		RatePerSecond      float64 `yaml:"rate_per_second" json:"rate_per_second"`
		Burst              int     `yaml:"burst" json:"burst"`
		UserAgent          string  `yaml:"user_agent" json:"user_agent"`
	} `yaml:"fetch" json:"fetch"`

	Polling struct {
		WarmSeconds   int      `yaml:"warm_seconds" json:"warm_seconds"`
		WarmCompanies []string `yaml:"warm_companies" json:"warm_companies"`
	} `yaml:"polling" json:"polling"`

	Scoring struct {
		TitleRules   []Rule    `yaml:"title_rules" json:"title_rules"`
		KeywordRules []Rule    `yaml:"keyword_rules" json:"keyword_rules"`
		Penalties    []Penalty `yaml:"penalties" json:"penalties"`
	} `yaml:"scoring" json:"scoring"`

	Companies []Company `yaml:"companies" json:"companies"`
}

const (
	DefaultTTLSeconds        = 120
	DefaultPageSize          = 10
	DefaultTimeoutSeconds    = 20
	DefaultDetailConcurrency = 10
	DefaultCompanyFanout     = 4
	DefaultUserAgent         = "JobLawn/1.0 (+local)"
)

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	ApplyDefaults(&cfg)
	return cfg, nil
}

// ApplyDefaults fills zero values with the engine defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.App.Port == 0 {
		cfg.App.Port = 38471
	}
	if cfg.Cache.TTLSeconds == 0 {
		cfg.Cache.TTLSeconds = DefaultTTLSeconds
	}
	if cfg.Cache.Redis.KeyPrefix == "" {
		cfg.Cache.Redis.KeyPrefix = "joblawn:"
	}
	if cfg.Cache.Redis.KeyringAccount == "" {
		cfg.Cache.Redis.KeyringAccount = "joblawn:redis"
	}
	if cfg.Fetch.PageSize == 0 {
		cfg.Fetch.PageSize = DefaultPageSize
	}
	if cfg.Fetch.TimeoutSeconds == 0 {
		cfg.Fetch.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if cfg.Fetch.DetailConcurrency == 0 {
		cfg.Fetch.DetailConcurrency = DefaultDetailConcurrency
	}
	if cfg.Fetch.CompanyConcurrency == 0 {
		cfg.Fetch.CompanyConcurrency = DefaultCompanyFanout
	}
	if cfg.Fetch.RatePerSecond == 0 {
		cfg.Fetch.RatePerSecond = 2
	}
	if cfg.Fetch.Burst == 0 {
		cfg.Fetch.Burst = 4
	}
	if cfg.Fetch.UserAgent == "" {
		cfg.Fetch.UserAgent = DefaultUserAgent
	}
}

func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// CompanyBySlug returns the configured company, enabled or not.
func (c Config) CompanyBySlug(slug string) (Company, bool) {
	for _, co := range c.Companies {
		if co.Slug == slug {
			return co, true
		}
	}
	return Company{}, false
}
