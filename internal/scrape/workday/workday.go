package workday

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"joblawn-engine/internal/domain"
	"joblawn-engine/internal/scrape/types"
	"joblawn-engine/internal/scrape/util"
)

// Company is one Workday career site. Facets map query facets onto appliedFacets keys
// (locationCountry, jobFamilyGroup, timeType, ...).
type Company struct {
	types.Source
	SiteURL string
	Tenant  string // overrides the first host label
}

type Scraper struct {
	co Company
	b  board
	c  *util.Client

	mu    sync.Mutex
	token string
}

var ErrBlocked = errors.New("workday blocked by cloudflare")

const blockedFor = 10 * time.Minute

// Cloudflare blocks are per host, so every company on that host backs off together.
var blocked = struct {
	sync.Mutex
	until map[string]time.Time
}{until: map[string]time.Time{}}

func markBlocked(host string) {
	blocked.Lock()
	blocked.until[host] = time.Now().Add(blockedFor)
	blocked.Unlock()
}

func isBlocked(host string) bool {
	blocked.Lock()
	defer blocked.Unlock()
	return time.Now().Before(blocked.until[host])
}

func New(co Company, c *util.Client) (*Scraper, error) {
	b, err := parseBoardURL(co.SiteURL)
	if err != nil {
		return nil, fmt.Errorf("workday %s: %w", co.Slug, err)
	}
	if co.Tenant != "" {
		b.Tenant = co.Tenant
	}
	// A cookie jar per company keeps CALYPSO_CSRF_TOKEN and the session together.
	jar, _ := cookiejar.New(nil)
	hc := &http.Client{Jar: jar, Timeout: 30 * time.Second}
	if c.HC != nil && c.HC.Timeout > 0 {
		hc.Timeout = c.HC.Timeout
	}
	return &Scraper{co: co, b: b, c: c.WithHTTP(hc)}, nil
}

func (s *Scraper) Name() string { return "workday" }

type searchRequest struct {
	AppliedFacets map[string][]string `json:"appliedFacets"`
	Limit         int                 `json:"limit"`
	Offset        int                 `json:"offset"`
	SearchText    string              `json:"searchText"`
}

type searchResponse struct {
	Total       int       `json:"total"`
	JobPostings []posting `json:"jobPostings"`
}

type posting struct {
	Title         string   `json:"title"`
	ExternalPath  string   `json:"externalPath"`
	LocationsText string   `json:"locationsText"`
	PostedOn      string   `json:"postedOn"`
	BulletFields  []string `json:"bulletFields"`
}

type detailResponse struct {
	JobPostingInfo struct {
		JobDescription      string   `json:"jobDescription"`
		Location            string   `json:"location"`
		AdditionalLocations []string `json:"additionalLocations"`
		StartDate           string   `json:"startDate"`
		TimeType            string   `json:"timeType"`
		JobReqID            string   `json:"jobReqId"`
	} `json:"jobPostingInfo"`
}

func (s *Scraper) request(q domain.Query) searchRequest {
	size := s.co.Size()
	facets := map[string][]string{}
	for facet, key := range s.co.Facets {
		if vals := q.Values(facet); len(vals) > 0 {
			facets[key] = append(facets[key], vals...)
		}
	}
	return searchRequest{AppliedFacets: facets, Limit: size, Offset: q.Offset(size), SearchText: q.Keyword}
}

func (s *Scraper) Fetch(ctx context.Context, q domain.Query) (domain.Page, error) {
	if isBlocked(s.b.Host) {
		return domain.Page{}, ErrBlocked
	}

	body := s.request(q)
	var res searchResponse
	err := s.postJobs(ctx, body, &res, false)
	if err != nil {
		var se *util.StatusError
		if errors.Is(err, ErrBlocked) || !errors.As(err, &se) {
			return domain.Page{}, err
		}
		// Stale session: bootstrap again and retry once.
		log.Printf("[ats:workday] company=%q status=%d, re-bootstrapping", s.co.Slug, se.Status)
		if err := s.postJobs(ctx, body, &res, true); err != nil {
			return domain.Page{}, err
		}
	}

	jobs := make([]domain.Job, len(res.JobPostings))
	for i, p := range res.JobPostings {
		id := ""
		if len(p.BulletFields) > 0 {
			id = p.BulletFields[0]
		}
		jobs[i] = domain.Job{
			Company:    s.co.Name,
			ID:         id,
			Title:      util.CleanText(p.Title),
			PostedDate: p.PostedOn,
			Location:   util.NormalizeLocation(p.LocationsText),
			URL:        s.b.jobURL(p.ExternalPath),
		}
	}

	util.EachLimit(ctx, "ats:workday", len(jobs), s.co.Limit(), func(ctx context.Context, i int) error {
		return s.hydrate(ctx, res.JobPostings[i].ExternalPath, &jobs[i])
	})

	return util.RemotePage(s.co.Slug, jobs, q, s.co.Size(), res.Total), nil
}

func (s *Scraper) postJobs(ctx context.Context, body searchRequest, out *searchResponse, fresh bool) error {
	token, err := s.session(ctx, fresh)
	if err != nil {
		return err
	}

	endpoint := s.b.cxsBase() + "/jobs"
	hdr := s.headers()
	if token != "" {
		hdr.Set("X-Calypso-Csrf-Token", token)
		endpoint += "?" + url.Values{"X-CALYPSO-CSRF-TOKEN": {token}}.Encode()
	}
	if err := s.c.PostJSON(ctx, endpoint, body, out, hdr); err != nil {
		return fmt.Errorf("workday jobs: %w", err)
	}
	return nil
}

func (s *Scraper) headers() http.Header {
	return http.Header{
		"User-Agent":      {"Mozilla/5.0"},
		"Origin":          {s.b.origin()},
		"Referer":         {s.b.Raw},
		"Accept-Language": {util.FirstNonEmpty(s.b.Locale, "en-US")},
	}
}

func (s *Scraper) hydrate(ctx context.Context, externalPath string, j *domain.Job) error {
	if externalPath == "" {
		return nil
	}
	var d detailResponse
	if err := s.c.GetJSON(ctx, s.b.cxsBase()+externalPath, &d); err != nil {
		return fmt.Errorf("workday detail %s: %w", externalPath, err)
	}
	info := d.JobPostingInfo
	j.Description = info.JobDescription
	if info.Location != "" {
		j.Location = util.NormalizeLocation(info.Location)
	}
	j.SecondaryLocations = info.AdditionalLocations
	if j.ID == "" {
		j.ID = info.JobReqID
	}
	if t := util.ParsePosted(info.StartDate); t != nil {
		j.PostedAt = t
	}
	return nil
}

var tokenRe = regexp.MustCompile(`token\s*:\s*"([^"]+)"`)

// session returns the CSRF token, bootstrapping when there is none or fresh is set.
func (s *Scraper) session(ctx context.Context, fresh bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" && !fresh {
		return s.token, nil
	}
	tok, err := s.bootstrap(ctx)
	if err != nil {
		if errors.Is(err, ErrBlocked) {
			markBlocked(s.b.Host)
			return "", err
		}
		// Plenty of tenants answer without a token.
		log.Printf("[ats:workday] company=%q bootstrap: %v", s.co.Slug, err)
		return "", nil
	}
	s.token = tok
	return tok, nil
}

func (s *Scraper) bootstrap(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.b.Raw, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", util.FirstNonEmpty(s.b.Locale, "en-US"))

	if s.c.Limiter != nil {
		if err := s.c.Limiter.WaitURL(ctx, s.b.Raw); err != nil {
			return "", err
		}
	}
	resp, err := s.c.HC.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	page, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	preview := string(page)
	if len(preview) > 4096 {
		preview = preview[:4096]
	}
	if looksLikeCloudflareBlock(resp, preview) {
		return "", ErrBlocked
	}

	u, _ := url.Parse(s.b.Raw)
	for _, c := range s.c.HC.Jar.Cookies(u) {
		if c.Name == "CALYPSO_CSRF_TOKEN" && c.Value != "" {
			return c.Value, nil
		}
	}
	if tok := util.ScriptMatch(string(page), tokenRe); tok != "" {
		return tok, nil
	}
	return "", fmt.Errorf("missing CALYPSO_CSRF_TOKEN (status=%d)", resp.StatusCode)
}

func looksLikeCloudflareBlock(resp *http.Response, bodyPreview string) bool {
	server := strings.ToLower(resp.Header.Get("Server"))
	cfRay := resp.Header.Get("CF-RAY")

	if strings.Contains(server, "cloudflare") && cfRay != "" && resp.StatusCode >= 400 {
		return true
	}

	low := strings.ToLower(bodyPreview)
	if strings.Contains(low, "/cdn-cgi/challenge") ||
		(strings.Contains(low, "cloudflare") && strings.Contains(low, "checking your browser")) ||
		(strings.Contains(low, "attention required") && strings.Contains(low, "cloudflare")) {
		return true
	}

	return resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests
}
