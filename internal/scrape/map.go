package scrape

import (
	"fmt"
	"strings"

	"joblawn-engine/internal/config"
	"joblawn-engine/internal/scrape/amazon"
	"joblawn-engine/internal/scrape/atlassian"
	"joblawn-engine/internal/scrape/beesite"
	"joblawn-engine/internal/scrape/deshaw"
	"joblawn-engine/internal/scrape/eightfold"
	"joblawn-engine/internal/scrape/greenhouse"
	"joblawn-engine/internal/scrape/huawei"
	"joblawn-engine/internal/scrape/jibe"
	"joblawn-engine/internal/scrape/lever"
	"joblawn-engine/internal/scrape/mcloud"
	"joblawn-engine/internal/scrape/microsoft"
	"joblawn-engine/internal/scrape/oraclehcm"
	"joblawn-engine/internal/scrape/rippling"
	"joblawn-engine/internal/scrape/smartrecruiters"
	"joblawn-engine/internal/scrape/thoughtworks"
	"joblawn-engine/internal/scrape/turing"
	"joblawn-engine/internal/scrape/types"
	"joblawn-engine/internal/scrape/util"
	"joblawn-engine/internal/scrape/workday"
)

func mapSource(c config.Company, cfg config.Config) types.Source {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		name = c.Slug
	}
	return types.Source{
		Slug:        c.Slug,
		Name:        name,
		Facets:      c.Facets,
		Params:      c.Params,
		PageSize:    cfg.Fetch.PageSize,
		DetailLimit: cfg.Fetch.DetailConcurrency,
	}
}

// MapBoard builds the vendor adapter for one configured company.
func MapBoard(c config.Company, cfg config.Config, client *util.Client) (types.Board, error) {
	src := mapSource(c, cfg)
	ttl := cfg.CacheTTL()

	switch c.Vendor {
	case "amazon":
		return amazon.New(amazon.Company{Source: src, BaseURL: util.FirstNonEmpty(c.APIBase, c.BaseURL), Locale: c.Locale}, client), nil
	case "eightfold":
		return eightfold.New(eightfold.Company{Source: src, Host: c.Host, Domain: c.Domain, APIBase: c.APIBase}, client), nil
	case "greenhouse":
		return greenhouse.New(greenhouse.Company{Source: src, Boards: c.Boards, APIBase: c.APIBase}, client, ttl), nil
	case "lever":
		return lever.New(lever.Company{Source: src, Site: c.Site, Endpoint: c.Options["endpoint"], APIBase: c.APIBase}, client, ttl), nil
	case "workday":
		wd, err := workday.New(workday.Company{Source: src, SiteURL: c.Site, Tenant: c.Options["tenant"]}, client)
		if err != nil {
			return nil, err
		}
		return wd, nil
	case "oraclehcm":
		return oraclehcm.New(oraclehcm.Company{
			Source:     src,
			Host:       c.Host,
			SiteNumber: c.Site,
			JobURL:     c.Options["job_url"],
			APIBase:    c.APIBase,
		}, client), nil
	case "beesite":
		return beesite.New(beesite.Company{
			Source:   src,
			Host:     c.Host,
			Language: c.Options["language"],
			JobHTML:  strings.EqualFold(c.Options["details"], "jobhtml"),
			JobURL:   c.Options["job_url"],
			APIBase:  c.APIBase,
		}, client), nil
	case "jibe":
		return jibe.New(jibe.Company{Source: src, Host: c.Host, APIBase: c.APIBase}, client), nil
	case "microsoft":
		return microsoft.New(microsoft.Company{Source: src, APIBase: c.APIBase}, client), nil
	case "deshaw":
		return deshaw.New(deshaw.Company{Source: src, Pages: c.Boards, APIBase: c.APIBase}, client, ttl), nil
	case "mcloud":
		return mcloud.New(mcloud.Company{Source: src, Organization: c.Site, APIBase: c.APIBase}, client, ttl), nil
	case "rippling":
		return rippling.New(rippling.Company{Source: src, BaseURL: util.FirstNonEmpty(c.APIBase, c.BaseURL)}, client, ttl), nil
	case "atlassian":
		return atlassian.New(atlassian.Company{Source: src, APIBase: c.APIBase}, client, ttl), nil
	case "turing":
		return turing.New(turing.Company{Source: src, APIBase: c.APIBase}, client, ttl), nil
	case "huawei":
		return huawei.New(huawei.Company{Source: src, APIBase: c.APIBase}, client), nil
	case "thoughtworks":
		return thoughtworks.New(thoughtworks.Company{Source: src, APIBase: c.APIBase}, client, ttl), nil
	case "smartrecruiters":
		return smartrecruiters.New(smartrecruiters.Company{Source: src, Identifier: c.Site, APIBase: c.APIBase}, client), nil
	}
	return nil, fmt.Errorf("unknown vendor %q for company %q", c.Vendor, c.Slug)
}
