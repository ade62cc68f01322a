package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "engine.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	if err := Migrate(db.Pool); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	var v int
	if err := db.Pool.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil || v != schemaVersion {
		t.Fatalf("user_version = %d, err=%v", v, err)
	}
}

func TestRunsRoundTripAndOrder(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	for i, co := range []string{"amazon", "spacex", "amazon"} {
		_, err := InsertRun(ctx, db.Pool, FetchRun{
			Company:    co,
			Query:      `{"company":"` + co + `"}`,
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
			DurationMS: 120,
			Jobs:       10,
			Total:      42,
		})
		if err != nil {
			t.Fatalf("InsertRun: %v", err)
		}
	}
	failed, err := InsertRun(ctx, db.Pool, FetchRun{Company: "nvidia", StartedAt: base, Error: "blocked"})
	if err != nil || failed.ID == "" {
		t.Fatalf("InsertRun with error: id=%q err=%v", failed.ID, err)
	}

	runs, err := ListRuns(ctx, db.Pool, "amazon", 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || !runs[0].StartedAt.After(runs[1].StartedAt) {
		t.Fatalf("want 2 amazon runs newest first, got %+v", runs)
	}
	if runs[0].Total != 42 || runs[0].ID == "" {
		t.Fatalf("run fields: %+v", runs[0])
	}

	all, err := ListRuns(ctx, db.Pool, "", 0)
	if err != nil || len(all) != 4 {
		t.Fatalf("ListRuns all: n=%d err=%v", len(all), err)
	}
}

func TestCleanupOldRuns(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	_, _ = InsertRun(ctx, db.Pool, FetchRun{Company: "old", StartedAt: time.Now().Add(-60 * 24 * time.Hour)})
	_, _ = InsertRun(ctx, db.Pool, FetchRun{Company: "new"})

	n, err := CleanupOldRuns(ctx, db.Pool, 30*24*time.Hour)
	if err != nil || n != 1 {
		t.Fatalf("CleanupOldRuns: n=%d err=%v", n, err)
	}
}

func TestLogos(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, _, err := GetLogo(ctx, db.Pool, "missing"); !errors.Is(err, ErrLogoNotFound) {
		t.Fatalf("want ErrLogoNotFound, got %v", err)
	}
	if err := SaveLogo(ctx, db.Pool, "k1", "image/png", []byte{0x89, 'P', 'N', 'G'}); err != nil {
		t.Fatalf("SaveLogo: %v", err)
	}
	ct, b, err := GetLogo(ctx, db.Pool, "k1")
	if err != nil || ct != "image/png" || len(b) != 4 {
		t.Fatalf("GetLogo: ct=%q len=%d err=%v", ct, len(b), err)
	}
	if !HasLogo(ctx, db.Pool, "k1") || HasLogo(ctx, db.Pool, "k2") {
		t.Fatalf("HasLogo")
	}

	// Hosts outside the allowlist are never fetched.
	key, err := CacheLogoFromURL(ctx, db.Pool, "https://example.com/logo.png")
	if key != "" || err != nil {
		t.Fatalf("disallowed host: key=%q err=%v", key, err)
	}
}

func TestFaviconURLForDomain(t *testing.T) {
	tests := map[string]string{
		"https://www.Amazon.com/": "https://www.google.com/s2/favicons?domain=amazon.com&sz=64",
		"spacex.com":              "https://www.google.com/s2/favicons?domain=spacex.com&sz=64",
		"  ":                      "",
	}
	for in, want := range tests {
		if got := FaviconURLForDomain(in); got != want {
			t.Errorf("FaviconURLForDomain(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCompanyDomains(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := FindCompanyDomain(ctx, db.Pool, "D. E. Shaw"); !errors.Is(err, ErrDomainNotFound) {
		t.Fatalf("empty lookup: want ErrDomainNotFound, got %v", err)
	}
	if err := SaveCompanyDomain(ctx, db.Pool, "D. E.  Shaw", "https://www.DEShaw.com/careers"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	rec, err := FindCompanyDomain(ctx, db.Pool, "d. e. shaw")
	if err != nil || rec.Domain != "deshaw.com" || rec.Company != "d. e. shaw" {
		t.Fatalf("normalized lookup = %+v err=%v", rec, err)
	}
	if rec.FoundAt.IsZero() {
		t.Fatalf("FoundAt not parsed")
	}
	if err := SaveCompanyDomain(ctx, db.Pool, "  ", "x.com"); err != nil {
		t.Fatalf("blank name should be ignored: %v", err)
	}
}
