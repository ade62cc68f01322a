// config/overlay.go
package config

import (
	"errors"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type CompaniesFile struct {
	Companies []Company `yaml:"companies"`
}

// OverlayCompanies merges companies.yml into cfg: entries replace companies with the same
// slug and new slugs are appended. A missing file is not an error.
func OverlayCompanies(cfg *Config, companiesPath string) error {
	b, err := os.ReadFile(companiesPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	var cf CompaniesFile
	if err := yaml.Unmarshal(b, &cf); err != nil {
		return err
	}

	index := make(map[string]int, len(cfg.Companies))
	for i, co := range cfg.Companies {
		index[strings.ToLower(co.Slug)] = i
	}
	for _, co := range cf.Companies {
		key := strings.ToLower(strings.TrimSpace(co.Slug))
		if key == "" {
			continue
		}
		if i, ok := index[key]; ok {
			cfg.Companies[i] = co
			continue
		}
		index[key] = len(cfg.Companies)
		cfg.Companies = append(cfg.Companies, co)
	}
	return nil
}
