package scrape

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"

	"joblawn-engine/internal/config"
	"joblawn-engine/internal/scrape/util"
	"joblawn-engine/internal/store"
)

const defaultSearchBase = "https://duckduckgo.com/html/"

var domainBlocklist = []string{
	"linkedin.com",
	"indeed.com",
	"glassdoor.com",
	"ziprecruiter.com",
	"builtin.com",
	"levels.fyi",
	"crunchbase.com",
	"wikipedia.org",

	// career-site hosts that front many employers
	"greenhouse.io",
	"lever.co",
	"myworkdayjobs.com",
	"workday.com",
	"smartrecruiters.com",
	"eightfold.ai",
	"oraclecloud.com",
	"beesite.de",
	"m-cloud.io",
	"icims.com",
}

// Logos resolves company domains and keeps their favicons in the store.
type Logos struct {
	DB         *sql.DB
	Client     *util.Client
	SearchBase string
}

// Domain returns the configured domain, a previously found one, or searches for it.
func (l *Logos) Domain(ctx context.Context, co config.Company) (string, error) {
	if d := strings.TrimSpace(co.Domain); d != "" {
		return d, nil
	}
	name := util.FirstNonEmpty(co.Name, co.Slug)

	rec, err := store.FindCompanyDomain(ctx, l.DB, name)
	switch {
	case err == nil:
		return rec.Domain, nil
	case !errors.Is(err, store.ErrDomainNotFound):
		return "", err
	}

	found, err := l.search(ctx, name)
	if err != nil || found == "" || isBlockedDomain(found) {
		return "", err
	}
	if err := store.SaveCompanyDomain(ctx, l.DB, name, found); err != nil {
		return "", err
	}
	return found, nil
}

// URL is the /logo/{key} path of a company's cached favicon, or "" when none is stored yet.
func (l *Logos) URL(ctx context.Context, co config.Company) string {
	if l == nil || l.DB == nil {
		return ""
	}
	d := strings.TrimSpace(co.Domain)
	if d == "" {
		if rec, err := store.FindCompanyDomain(ctx, l.DB, util.FirstNonEmpty(co.Name, co.Slug)); err == nil {
			d = rec.Domain
		}
	}
	u := store.FaviconURLForDomain(d)
	if u == "" {
		return ""
	}
	key := store.LogoKeyFromURL(u)
	if !store.HasLogo(ctx, l.DB, key) {
		return ""
	}
	return "/logo/" + key
}

// Warm caches a favicon for every company and returns how many are available.
func (l *Logos) Warm(ctx context.Context, companies []config.Company) int {
	ok := 0
	for _, co := range companies {
		if ctx.Err() != nil {
			break
		}
		d, err := l.Domain(ctx, co)
		if err != nil {
			log.Printf("[logo] domain lookup err company=%q err=%v", co.Slug, err)
			continue
		}
		if d == "" {
			log.Printf("[logo] no domain company=%q", co.Slug)
			continue
		}
		key, err := store.CacheFaviconForDomain(ctx, l.DB, d)
		if err != nil {
			log.Printf("[logo] favicon err company=%q dom=%q err=%v", co.Slug, d, err)
			continue
		}
		if key != "" {
			ok++
		}
	}
	log.WithFields(log.Fields{"companies": len(companies), "logos": ok}).Info("logos warmed")
	return ok
}

func (l *Logos) search(ctx context.Context, company string) (string, error) {
	q := sanitizeCompanyForSearch(company)
	if q == "" {
		return "", nil
	}
	base := l.SearchBase
	if base == "" {
		base = defaultSearchBase
	}
	u := base + "?q=" + url.QueryEscape(fmt.Sprintf("%s official website", q))

	body, err := l.Client.GetBytes(ctx, u, http.Header{"Accept": {"text/html"}})
	if err != nil {
		return "", fmt.Errorf("domain search: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return "", nil
	}

	var best string
	// DDG HTML results: <a class="result__a" href="...">
	doc.Find("a.result__a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, ok := a.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return true
		}
		host := hostFromURL(decodeDDGRedirect(href))
		if host == "" {
			return true
		}
		host = strings.ToLower(strings.TrimPrefix(host, "www."))
		if isBlockedDomain(host) {
			return true
		}
		best = host
		return false
	})
	return best, nil
}

func decodeDDGRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	// DDG sometimes uses /l/?uddg=<urlencoded>
	if uddg := u.Query().Get("uddg"); uddg != "" {
		return uddg
	}
	return href
}

func hostFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}

func isBlockedDomain(host string) bool {
	for _, b := range domainBlocklist {
		if host == b || strings.HasSuffix(host, "."+b) {
			return true
		}
	}
	return false
}

func sanitizeCompanyForSearch(s string) string {
	r := strings.NewReplacer(
		", Inc.", "", " Inc.", "", " Inc", "",
		", LLC", "", " LLC", "",
		", Ltd.", "", " Ltd.", "", " Ltd", "",
	)
	return strings.Join(strings.Fields(r.Replace(strings.TrimSpace(s))), " ")
}
