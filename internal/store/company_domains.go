package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

var ErrDomainNotFound = errors.New("company domain not found")

// CompanyDomain is a domain found by a search for a company without a configured one.
type CompanyDomain struct {
	Company string
	Domain  string
	FoundAt time.Time
}

// FindCompanyDomain looks up a company by display name, ignoring case and spacing.
// It returns ErrDomainNotFound when no search has stored a domain yet.
func FindCompanyDomain(ctx context.Context, db *sql.DB, name string) (CompanyDomain, error) {
	key := companyKey(name)
	if key == "" {
		return CompanyDomain{}, ErrDomainNotFound
	}

	rec := CompanyDomain{Company: key}
	var found string
	err := db.QueryRowContext(ctx,
		`SELECT domain, fetched_at FROM company_domains WHERE company = ?;`, key,
	).Scan(&rec.Domain, &found)
	if errors.Is(err, sql.ErrNoRows) {
		return CompanyDomain{}, ErrDomainNotFound
	}
	if err != nil {
		return CompanyDomain{}, err
	}
	rec.Domain = strings.TrimSpace(rec.Domain)
	rec.FoundAt, _ = time.Parse(time.RFC3339, found)
	return rec, nil
}

// SaveCompanyDomain stores the bare host for name. Blank input is ignored.
func SaveCompanyDomain(ctx context.Context, db *sql.DB, name, domain string) error {
	key := companyKey(name)
	domain = bareHost(domain)
	if key == "" || domain == "" {
		return nil
	}
	_, err := db.ExecContext(ctx, `
INSERT INTO company_domains(company, domain, fetched_at) VALUES(?,?,?)
ON CONFLICT(company) DO UPDATE SET domain = excluded.domain, fetched_at = excluded.fetched_at;`,
		key, domain, time.Now().UTC().Format(time.RFC3339))
	return err
}

func companyKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

func bareHost(d string) string {
	d = strings.ToLower(strings.TrimSpace(d))
	d = strings.TrimPrefix(strings.TrimPrefix(d, "https://"), "http://")
	d = strings.TrimPrefix(d, "www.")
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	return d
}
