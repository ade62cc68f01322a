package scrape

import (
	"testing"
	"time"

	"joblawn-engine/internal/config"
	"joblawn-engine/internal/scrape/util"
)

func TestRegistrySkipsDisabledAndBroken(t *testing.T) {
	var cfg config.Config
	config.ApplyDefaults(&cfg)
	cfg.Companies = []config.Company{
		{Slug: "spacex", Name: "SpaceX", Vendor: "greenhouse", Boards: []string{"spacex"},
			Facets: map[string]string{"location": "location", "discipline": "meta:Discipline"}},
		{Slug: "meesho", Vendor: "lever", Site: "meesho"},
		{Slug: "old", Vendor: "lever", Site: "old", Disabled: true},
		{Slug: "broken", Vendor: "workday", Site: "::not a url"},
		{Slug: "mystery", Vendor: "nope"},
	}

	r := NewRegistry(cfg, util.NewClient(time.Second, nil, "test"))
	if r.Len() != 2 {
		t.Fatalf("Len = %d, want 2", r.Len())
	}

	b, co, ok := r.Board("spacex")
	if !ok || b.Name() != "greenhouse" || co.Name != "SpaceX" {
		t.Fatalf("Board(spacex) = %v %+v %v", b, co, ok)
	}
	for _, slug := range []string{"old", "broken", "mystery"} {
		if _, _, ok := r.Board(slug); ok {
			t.Fatalf("%s should not be registered", slug)
		}
	}

	list := r.Companies()
	if len(list) != 2 || list[0].Slug != "spacex" || list[1].Name != "meesho" {
		t.Fatalf("Companies = %+v", list)
	}
	if f := list[0].Facets; len(f) != 2 || f[0] != "discipline" || f[1] != "location" {
		t.Fatalf("facets not sorted: %v", f)
	}
}

func TestMapBoardCoversEveryVendor(t *testing.T) {
	var cfg config.Config
	config.ApplyDefaults(&cfg)
	client := util.NewClient(time.Second, nil, "test")

	for _, v := range config.Vendors {
		co := config.Company{
			Slug:   v + "-co",
			Vendor: v,
			Host:   "jobs.example.com",
			Site:   "https://acme.wd5.myworkdayjobs.com/External",
			Boards: []string{"acme"},
		}
		b, err := MapBoard(co, cfg, client)
		if err != nil || b == nil {
			t.Fatalf("MapBoard(%s): %v", v, err)
		}
	}
}
