package util

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"joblawn-engine/internal/domain"
)

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}
	if got := Paginate(items, 1, 3); len(got) != 3 || got[0] != 1 {
		t.Fatalf("page 1: %v", got)
	}
	if got := Paginate(items, 3, 3); len(got) != 1 || got[0] != 7 {
		t.Fatalf("page 3: %v", got)
	}
	if got := Paginate(items, 4, 3); got != nil {
		t.Fatalf("past end should be nil, got %v", got)
	}
}

func TestHasNext(t *testing.T) {
	cases := []struct {
		page, size, n, total int
		want                 bool
	}{
		{1, 10, 10, 25, true},
		{3, 10, 5, 25, false},
		{2, 10, 10, 20, false},
		{1, 10, 10, 0, true},
		{1, 10, 4, 0, false},
	}
	for _, c := range cases {
		if got := HasNext(c.page, c.size, c.n, c.total); got != c.want {
			t.Fatalf("HasNext(%d,%d,%d,%d)=%v want %v", c.page, c.size, c.n, c.total, got, c.want)
		}
	}
}

func TestMatchAnyAndContainsFold(t *testing.T) {
	if !MatchAny(nil, "anything") {
		t.Fatalf("empty selection should match")
	}
	if !MatchAny([]string{"engineering"}, "Sales", "Engineering ") {
		t.Fatalf("expected case-insensitive match")
	}
	if MatchAny([]string{"legal"}, "Sales") {
		t.Fatalf("unexpected match")
	}
	if !ContainsFold("GO", "Backend Go developer") || ContainsFold("rust", "Go") {
		t.Fatalf("ContainsFold mismatch")
	}
}

func TestFacetParams(t *testing.T) {
	q := domain.Query{Filters: map[string][]string{
		"jobCategory": {"software", "hardware"},
		"country":     {"US", "IN"},
	}}
	v := FacetParams(q, map[string]string{"jobCategory": "category[]", "country": "lc", "unused": "x"})
	if got := v["category[]"]; len(got) != 2 {
		t.Fatalf("multi param: %v", got)
	}
	if got := v["lc"]; len(got) != 1 || got[0] != "US" {
		t.Fatalf("single param takes first value: %v", got)
	}
	if _, ok := v["x"]; ok {
		t.Fatalf("unselected facet should be absent")
	}

	AddStatic(v, map[string]string{"lc": "DE", "sort": "relevance"})
	if v.Get("lc") != "US" || v.Get("sort") != "relevance" {
		t.Fatalf("AddStatic: %v", v)
	}
	if enc := EncodeQuery(url.Values{"q": {"a b"}}); enc != "q=a%20b" {
		t.Fatalf("EncodeQuery=%q", enc)
	}
}

func TestLocalPage(t *testing.T) {
	jobs := make([]domain.Job, 23)
	fs := FacetSet{}
	fs.Add("location", "Pune", "Austin", "Pune", "")
	listAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p := LocalPage("acme", jobs, domain.Query{Page: 3}, 10, fs, listAt)
	if len(p.Jobs) != 3 || p.Total != 23 || p.HasNext {
		t.Fatalf("page 3: n=%d total=%d next=%v", len(p.Jobs), p.Total, p.HasNext)
	}
	if !p.FetchedAt.Equal(listAt) {
		t.Fatalf("page should carry the list fetch time, got %v", p.FetchedAt)
	}
	if got := p.Facets["location"]; len(got) != 2 || got[0] != "Austin" {
		t.Fatalf("facets: %v", got)
	}
	empty := LocalPage("acme", jobs, domain.Query{Page: 9}, 10, nil, listAt)
	if empty.Jobs == nil || len(empty.Jobs) != 0 {
		t.Fatalf("past-end page should have empty non-nil jobs")
	}
}

func TestHTMLToText(t *testing.T) {
	got := HTMLToText("&lt;p&gt;Build &amp;amp; run&lt;/p&gt;&lt;ul&gt;&lt;li&gt;Go&lt;/li&gt;&lt;li&gt;K8s&lt;/li&gt;&lt;/ul&gt;")
	want := "Build & run\nGo\nK8s"
	if got != want {
		t.Fatalf("HTMLToText=%q want %q", got, want)
	}
	if HTMLToText("  ") != "" {
		t.Fatalf("blank input")
	}
}

func TestScriptHelpers(t *testing.T) {
	page := `<html><head><script>var x = 1;</script><script>window.__BUILD_ID__ = "abc123";</script>
<script id="__NEXT_DATA__" type="application/json">{"buildId":"b9"}</script></head></html>`
	if got := ScriptMatch(page, regexp.MustCompile(`__BUILD_ID__\s*=\s*"([^"]+)"`)); got != "abc123" {
		t.Fatalf("ScriptMatch=%q", got)
	}
	if got := ScriptByID(page, "__NEXT_DATA__"); got != `{"buildId":"b9"}` {
		t.Fatalf("ScriptByID=%q", got)
	}
}

func TestParsePosted(t *testing.T) {
	for _, s := range []string{"2024-05-07", "2024-05-07T10:00:00Z", "May 7, 2024", "1715076000", "1715076000000"} {
		got := ParsePosted(s)
		if got == nil || got.Year() != 2024 || got.Month() != time.May || got.Day() != 7 {
			t.Fatalf("ParsePosted(%q)=%v", s, got)
		}
	}
	if ParsePosted("Posted 3 Days Ago") != nil {
		t.Fatalf("free text should not parse")
	}
}

func TestEachLimitCountsFailures(t *testing.T) {
	var inFlight, peak atomic.Int64
	failed := EachLimit(context.Background(), "test", 20, 3, func(ctx context.Context, i int) error {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		inFlight.Add(-1)
		if i%5 == 0 {
			return errors.New("boom")
		}
		return nil
	})
	if failed != 4 {
		t.Fatalf("failed=%d want 4", failed)
	}
	if peak.Load() > 3 {
		t.Fatalf("peak concurrency %d exceeds limit", peak.Load())
	}
}

func TestListMemo(t *testing.T) {
	m := NewListMemo[string](time.Minute)
	var calls atomic.Int64
	load := func(context.Context) ([]string, error) {
		calls.Add(1)
		return []string{"a", "b"}, nil
	}
	var first time.Time
	for i := 0; i < 3; i++ {
		got, at, err := m.Get(context.Background(), "k", load)
		if err != nil || len(got) != 2 {
			t.Fatalf("Get: %v %v", got, err)
		}
		if i == 0 {
			first = at
		} else if !at.Equal(first) {
			t.Fatalf("memo hit reported fetch time %v, want %v", at, first)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("load called %d times", calls.Load())
	}

	m.Forget()
	if _, _, err := m.Get(context.Background(), "k", load); err != nil || calls.Load() != 2 {
		t.Fatalf("after Forget: calls=%d err=%v", calls.Load(), err)
	}

	_, _, err := m.Get(context.Background(), "bad", func(context.Context) ([]string, error) {
		return nil, errors.New("upstream down")
	})
	if err == nil {
		t.Fatalf("expected load error")
	}
}

func TestListMemoExpiresAndEvicts(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m := NewListMemo[string](2 * time.Minute)
	m.now = func() time.Time { return now }

	gen := 0
	load := func(context.Context) ([]string, error) {
		gen++
		return []string{fmt.Sprintf("gen%d", gen)}, nil
	}
	ctx := context.Background()
	for _, k := range []string{"a", "b", "c"} {
		if _, _, err := m.Get(ctx, k, load); err != nil {
			t.Fatalf("Get %s: %v", k, err)
		}
	}

	now = now.Add(119 * time.Second)
	got, at, _ := m.Get(ctx, "a", load)
	if got[0] != "gen1" || now.Sub(at) != 119*time.Second {
		t.Fatalf("fresh list: %v fetched %v ago", got, now.Sub(at))
	}

	now = now.Add(time.Second)
	got, at, _ = m.Get(ctx, "a", load)
	if got[0] != "gen4" || !at.Equal(now) {
		t.Fatalf("expired list served: %v at %v", got, at)
	}
	if m.Len() != 1 {
		t.Fatalf("expired lists kept, len=%d", m.Len())
	}
}

func TestClientStatusErrorAndUserAgent(t *testing.T) {
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		if r.URL.Path == "/missing" {
			http.Error(w, "nope", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"ok"}`))
	}))
	defer srv.Close()

	c := NewClient(5*time.Second, NewHostLimiter(100, 10), "JobLawnTest/1")
	var out struct{ Name string }
	if err := c.GetJSON(context.Background(), srv.URL+"/ok", &out); err != nil || out.Name != "ok" {
		t.Fatalf("GetJSON: %+v %v", out, err)
	}
	if ua != "JobLawnTest/1" {
		t.Fatalf("user agent=%q", ua)
	}

	err := c.GetJSON(context.Background(), srv.URL+"/missing", &out)
	var se *StatusError
	if !errors.As(err, &se) || se.Status != http.StatusNotFound || !strings.Contains(se.Body, "nope") {
		t.Fatalf("expected StatusError 404, got %v", err)
	}
}

func TestFlexDecoding(t *testing.T) {
	var v struct {
		A FlexString  `json:"a"`
		B FlexString  `json:"b"`
		C FlexStrings `json:"c"`
		D FlexStrings `json:"d"`
		E FlexStrings `json:"e"`
	}
	if err := json.Unmarshal([]byte(`{"a":123,"b":"x","c":"one","d":["p", 2, ""],"e":null}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.A != "123" || v.B != "x" {
		t.Fatalf("FlexString: %q %q", v.A, v.B)
	}
	if len(v.C) != 1 || v.C.First() != "one" || len(v.D) != 2 || v.D[1] != "2" || v.E != nil {
		t.Fatalf("FlexStrings: %v %v %v", v.C, v.D, v.E)
	}
}
