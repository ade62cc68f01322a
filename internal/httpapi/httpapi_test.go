package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"joblawn-engine/internal/config"
	"joblawn-engine/internal/domain"
	"joblawn-engine/internal/events"
	"joblawn-engine/internal/scrape"
	"joblawn-engine/internal/scrape/types"
	"joblawn-engine/internal/store"
)

type fakeListings struct {
	mu       sync.Mutex
	queries  map[string]domain.Query
	reloaded int
}

func (f *fakeListings) Company(slug string) (domain.Company, bool) {
	switch slug {
	case "acme", "down":
		return domain.Company{Slug: slug, Name: strings.ToUpper(slug), Vendor: "greenhouse", Facets: []string{"department", "location"}}, true
	}
	return domain.Company{}, false
}

func (f *fakeListings) Search(_ context.Context, slug string, q domain.Query) (domain.Page, error) {
	f.mu.Lock()
	if f.queries == nil {
		f.queries = map[string]domain.Query{}
	}
	f.queries[slug] = q
	f.mu.Unlock()

	switch slug {
	case "acme":
		return domain.Page{
			Company:  "acme",
			Page:     q.PageOrFirst(),
			PageSize: 10,
			HasNext:  true,
			Jobs:     []domain.Job{{ID: "1", Title: "Backend Engineer", URL: "https://acme.test/1"}},
		}, nil
	case "down":
		return domain.Page{}, errors.New("acme upstream 503")
	}
	return domain.Page{}, scrape.ErrUnknownCompany
}

func (f *fakeListings) SearchMany(ctx context.Context, slugs []string, q domain.Query) scrape.MultiResult {
	res := scrape.MultiResult{Errors: map[string]string{}}
	for _, s := range slugs {
		p, err := f.Search(ctx, s, q)
		if err != nil {
			res.Errors[s] = err.Error()
			continue
		}
		res.Pages = append(res.Pages, p)
	}
	return res
}

func (f *fakeListings) Companies(context.Context) []domain.Company {
	a, _ := f.Company("acme")
	return []domain.Company{a}
}

func (f *fakeListings) Invalidate(_ context.Context, slug string) (int, error) {
	if slug != "acme" {
		return 0, scrape.ErrUnknownCompany
	}
	return 3, nil
}

func (f *fakeListings) Reload(config.Config) {
	f.mu.Lock()
	f.reloaded++
	f.mu.Unlock()
}

func (f *fakeListings) CacheLen() int { return 7 }

func (f *fakeListings) query(slug string) domain.Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[slug]
}

func (f *fakeListings) reloads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reloaded
}

type fakeWarmer struct {
	running atomic.Bool
	runs    atomic.Int32
}

func (f *fakeWarmer) RunNow(context.Context) error { f.runs.Add(1); return nil }
func (f *fakeWarmer) Status() types.WarmStatus {
	return types.WarmStatus{Running: f.running.Load(), LastPages: 2}
}

type testEnv struct {
	srv      *httptest.Server
	listings *fakeListings
	warm     *fakeWarmer
	cfgPath  string
	db       *store.DB
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	var cfg config.Config
	if err := yaml.Unmarshal(config.DefaultYAML(), &cfg); err != nil {
		t.Fatalf("default config: %v", err)
	}
	config.ApplyDefaults(&cfg)
	cfgPath := filepath.Join(dir, "config.yml")
	if err := config.SaveAtomic(cfgPath, cfg); err != nil {
		t.Fatalf("SaveAtomic: %v", err)
	}
	cfgVal := &atomic.Value{}
	cfgVal.Store(cfg)

	db, err := store.Open(filepath.Join(dir, "engine.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	env := &testEnv{listings: &fakeListings{}, warm: &fakeWarmer{}, cfgPath: cfgPath, db: db}
	mux := NewMux(Deps{
		DB:          db.Pool,
		Hub:         events.NewHub(),
		CfgVal:      cfgVal,
		Listings:    env.listings,
		Warm:        env.warm,
		UserCfgPath: cfgPath,
		LoadCfg:     func() (config.Config, error) { return config.Load(cfgPath) },
	})
	env.srv = httptest.NewServer(Handler(mux))
	t.Cleanup(env.srv.Close)
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string, hdr map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func TestCompanyJobs(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/companies/acme/jobs?department=eng,ops&page=2&keyword=%20go%20&ignored=x", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	page := decode[PageResponse](t, resp)
	if page.Page != 2 || !page.HasNext || len(page.Jobs) != 1 {
		t.Fatalf("page = %+v", page)
	}
	if c := page.Jobs[0]; c.Title != "Backend Engineer" || c.Location != "N/A" || c.Posted != "N/A" {
		t.Fatalf("card = %+v", c)
	}

	q := env.listings.query("acme")
	if q.Keyword != "go" || len(q.Filters["department"]) != 2 || q.Filters["ignored"] != nil {
		t.Fatalf("query = %+v", q)
	}
}

func TestCompanyJobsSlugIsCaseInsensitive(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/companies/ACME/jobs?page=4", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if page := decode[PageResponse](t, resp); page.Company != "acme" || len(page.Jobs) != 1 {
		t.Fatalf("page = %+v", page)
	}
	if q := env.listings.query("acme"); q.Page != 4 {
		t.Fatalf("search not routed to acme: %+v", q)
	}
}

func TestCompanyJobsDegradesUpstreamErrors(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/companies/down/jobs?page=3", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	page := decode[PageResponse](t, resp)
	if page.Error != "Error: acme upstream 503" || page.Page != 3 || page.Jobs == nil || len(page.Jobs) != 0 {
		t.Fatalf("degraded page = %+v", page)
	}
}

func TestUnknownCompanyEnvelope(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/companies/ghost/jobs", "", map[string]string{"X-Request-ID": "req-42"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("X-Request-ID"); got != "req-42" {
		t.Fatalf("X-Request-ID = %q", got)
	}
	e := decode[APIError](t, resp)
	if e.Error.Code != "unknown_company" || e.Error.RequestID != "req-42" {
		t.Fatalf("envelope = %+v", e)
	}
}

func TestMultiCompany(t *testing.T) {
	env := newTestEnv(t)

	if resp := env.do(t, http.MethodGet, "/jobs", "", nil); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing companies status = %d", resp.StatusCode)
	}

	resp := env.do(t, http.MethodGet, "/jobs?companies=acme,down&location=Remote", "", nil)
	out := decode[MultiResponse](t, resp)
	if len(out.Pages) != 1 || out.Pages[0].Company != "acme" || out.Errors["down"] == "" {
		t.Fatalf("multi = %+v", out)
	}
	if got := env.listings.query("acme").Filters["location"]; len(got) != 1 || got[0] != "Remote" {
		t.Fatalf("location filter = %v", got)
	}
}

func TestClearCacheAndMethodGuard(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodDelete, "/companies/acme/cache", "", nil)
	out := decode[map[string]any](t, resp)
	if resp.StatusCode != http.StatusOK || out["pages"] != float64(3) {
		t.Fatalf("clear = %d %+v", resp.StatusCode, out)
	}
	if resp := env.do(t, http.MethodDelete, "/companies/ghost/cache", "", nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("clear unknown status = %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodPost, "/companies/acme/cache", "", nil)
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("POST status = %d", resp.StatusCode)
	}
	if e := decode[APIError](t, resp); e.Error.Code != "method_not_allowed" {
		t.Fatalf("envelope = %+v", e)
	}
}

func TestPutConfig(t *testing.T) {
	env := newTestEnv(t)

	cur := decode[config.Config](t, env.do(t, http.MethodGet, "/config", "", nil))

	bad := cur
	bad.Fetch.PageSize = -1
	b, _ := json.Marshal(bad)
	resp := env.do(t, http.MethodPut, "/config", string(b), nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid config status = %d", resp.StatusCode)
	}
	if vr := decode[config.Validation](t, resp); len(vr.Errors) == 0 {
		t.Fatalf("no validation errors reported")
	}

	good := cur
	good.Cache.TTLSeconds = 300
	b, _ = json.Marshal(good)
	resp = env.do(t, http.MethodPut, "/config", string(b), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("valid config status = %d", resp.StatusCode)
	}
	if saved := decode[config.Config](t, resp); saved.Cache.TTLSeconds != 300 {
		t.Fatalf("saved ttl = %d", saved.Cache.TTLSeconds)
	}
	if n := env.listings.reloads(); n != 1 {
		t.Fatalf("service reloaded %d times", n)
	}
	onDisk, err := config.Load(env.cfgPath)
	if err != nil || onDisk.Cache.TTLSeconds != 300 {
		t.Fatalf("config on disk ttl=%d err=%v", onDisk.Cache.TTLSeconds, err)
	}

	if resp := env.do(t, http.MethodPut, "/config", `{"nope": 1}`, nil); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown field status = %d", resp.StatusCode)
	}
}

func TestWarmRun(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/warm/run", "", nil)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("run status = %d", resp.StatusCode)
	}
	deadline := time.Now().Add(2 * time.Second)
	for env.warm.runs.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if env.warm.runs.Load() != 1 {
		t.Fatalf("warm run not started")
	}

	env.warm.running.Store(true)
	if resp := env.do(t, http.MethodPost, "/warm/run", "", nil); resp.StatusCode != http.StatusConflict {
		t.Fatalf("overlapping run status = %d", resp.StatusCode)
	}
	st := decode[types.WarmStatus](t, env.do(t, http.MethodGet, "/warm/status", "", nil))
	if !st.Running || st.LastPages != 2 {
		t.Fatalf("status = %+v", st)
	}
}

func TestRunsAndLogos(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := store.InsertRun(ctx, env.db.Pool, store.FetchRun{Company: "acme", Jobs: 4}); err != nil {
		t.Fatalf("InsertRun: %v", err)
	}
	runs := decode[[]store.FetchRun](t, env.do(t, http.MethodGet, "/runs?company=acme&limit=5", "", nil))
	if len(runs) != 1 || runs[0].Jobs != 4 {
		t.Fatalf("runs = %+v", runs)
	}
	if runs := decode[[]store.FetchRun](t, env.do(t, http.MethodGet, "/runs?company=ghost", "", nil)); len(runs) != 0 {
		t.Fatalf("ghost runs = %+v", runs)
	}

	if resp := env.do(t, http.MethodGet, "/logo/missing", "", nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing logo status = %d", resp.StatusCode)
	}
	if err := store.SaveLogo(ctx, env.db.Pool, "k1", "image/png", []byte("png")); err != nil {
		t.Fatalf("SaveLogo: %v", err)
	}
	resp := env.do(t, http.MethodGet, "/logo/k1", "", nil)
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("logo status=%d ct=%q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	h := decode[map[string]any](t, env.do(t, http.MethodGet, "/health", "", nil))
	if h["ok"] != true || h["cache_entries"] != float64(7) {
		t.Fatalf("health = %+v", h)
	}
}

func TestRecoverWritesEnvelope(t *testing.T) {
	h := Handler(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rec.Code != http.StatusInternalServerError || !strings.Contains(rec.Body.String(), `"internal_error"`) {
		t.Fatalf("recover = %d %s", rec.Code, rec.Body.String())
	}
}
