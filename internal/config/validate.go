package config

import (
	"fmt"
	"regexp"
	"strings"
)

// Vendors is every adapter family the registry can build.
var Vendors = []string{
	"amazon", "atlassian", "beesite", "deshaw", "eightfold", "greenhouse", "huawei", "jibe",
	"lever", "mcloud", "microsoft", "oraclehcm", "rippling", "smartrecruiters", "thoughtworks",
	"turing", "workday",
}

func KnownVendor(v string) bool {
	for _, k := range Vendors {
		if k == v {
			return true
		}
	}
	return false
}

var slugRe = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate returns a normalized copy plus a report.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	trimList := func(xs []string) []string {
		seen := map[string]bool{}
		var ys []string
		for _, x := range xs {
			x = strings.TrimSpace(x)
			if x == "" {
				continue
			}
			key := strings.ToLower(x)
			if seen[key] {
				continue
			}
			seen[key] = true
			ys = append(ys, x)
		}
		return ys
	}

	out.Polling.WarmCompanies = trimList(out.Polling.WarmCompanies)

	out.Companies = make([]Company, len(cfg.Companies))
	for i, co := range cfg.Companies {
		co.Slug = strings.ToLower(strings.TrimSpace(co.Slug))
		co.Vendor = strings.ToLower(strings.TrimSpace(co.Vendor))
		co.Name = strings.TrimSpace(co.Name)
		co.Domain = strings.ToLower(strings.TrimSpace(co.Domain))
		co.Host = strings.TrimSpace(co.Host)
		co.Boards = trimList(co.Boards)
		out.Companies[i] = co
	}

	// ---- Validation rules ----

	if out.Cache.TTLSeconds <= 0 {
		res.addErr("cache.ttl_seconds must be > 0")
	} else if out.Cache.TTLSeconds < 30 {
		res.addWarn("cache.ttl_seconds is very low (%d); employer APIs may rate limit you.", out.Cache.TTLSeconds)
	}
	if out.Cache.Redis.Enabled && strings.TrimSpace(out.Cache.Redis.Addr) == "" {
		res.addErr("cache.redis.addr is required when cache.redis.enabled=true")
	}

	if out.Fetch.PageSize <= 0 {
		res.addErr("fetch.page_size must be > 0")
	} else if out.Fetch.PageSize != DefaultPageSize {
		res.addWarn("fetch.page_size=%d; some employer APIs ignore sizes other than %d.", out.Fetch.PageSize, DefaultPageSize)
	}
	if out.Fetch.TimeoutSeconds <= 0 {
		res.addErr("fetch.timeout_seconds must be > 0")
	}
	if out.Fetch.DetailConcurrency <= 0 {
		res.addErr("fetch.detail_concurrency must be > 0")
	}
	if out.Fetch.CompanyConcurrency <= 0 {
		res.addErr("fetch.company_concurrency must be > 0")
	}
	if out.Fetch.RatePerSecond <= 0 {
		res.addErr("fetch.rate_per_second must be > 0")
	}

	if out.Polling.WarmSeconds < 0 {
		res.addErr("polling.warm_seconds must be >= 0 (0 disables warming)")
	} else if out.Polling.WarmSeconds > 0 && out.Polling.WarmSeconds < out.Cache.TTLSeconds {
		res.addWarn("polling.warm_seconds (%d) is shorter than the cache ttl (%d); warm runs will mostly hit the cache.",
			out.Polling.WarmSeconds, out.Cache.TTLSeconds)
	}

	if len(out.Companies) == 0 {
		res.addWarn("companies is empty; there is nothing to list.")
	}

	slugs := map[string]bool{}
	for i, co := range out.Companies {
		switch {
		case co.Slug == "":
			res.addErr("companies[%d].slug is required", i)
		case !slugRe.MatchString(co.Slug):
			res.addErr("companies[%d].slug %q must be lowercase letters, digits and dashes", i, co.Slug)
		case slugs[co.Slug]:
			res.addErr("companies[%d].slug %q is duplicated", i, co.Slug)
		}
		slugs[co.Slug] = true

		if co.Name == "" {
			res.addWarn("companies[%d] (%s) has no name; the slug will be shown.", i, co.Slug)
		}
		if !KnownVendor(co.Vendor) {
			res.addErr("companies[%d].vendor %q is not one of %s", i, co.Vendor, strings.Join(Vendors, ", "))
			continue
		}
		for _, msg := range vendorRequirements(co) {
			res.addErr("companies[%d] (%s): %s", i, co.Slug, msg)
		}
		if co.Domain == "" {
			res.addWarn("companies[%d] (%s) has no domain; its logo will be looked up by name.", i, co.Slug)
		}
	}

	for _, s := range out.Polling.WarmCompanies {
		if !slugs[strings.ToLower(s)] {
			res.addWarn("polling.warm_companies references unknown company %q", s)
		}
	}

	return out, res
}

func vendorRequirements(co Company) []string {
	var errs []string
	need := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, msg)
		}
	}
	switch co.Vendor {
	case "greenhouse", "deshaw":
		need(len(co.Boards) > 0, "boards must list at least one board")
	case "lever":
		need(co.Site != "" || co.Options["endpoint"] != "", "site (lever slug) or options.endpoint is required")
	case "smartrecruiters":
		need(co.Site != "", "site (company identifier) is required")
	case "eightfold":
		need(co.Host != "", "host is required")
		need(co.Domain != "", "domain is required (sent as ?domain=)")
	case "workday":
		need(co.Site != "", "site (career site URL) is required")
	case "oraclehcm":
		need(co.Host != "", "host is required")
		need(co.Site != "", "site (siteNumber) is required")
	case "beesite", "jibe":
		need(co.Host != "", "host is required")
	case "mcloud":
		need(co.Site != "", "site (organization id) is required")
	}
	return errs
}
