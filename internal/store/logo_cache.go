package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
)

var ErrLogoNotFound = errors.New("logo not found")

const maxLogoBytes = 512 * 1024

var logoHTTP = &http.Client{Timeout: 15 * time.Second}

func LogoKeyFromURL(u string) string {
	h := sha256.Sum256([]byte(u))
	return hex.EncodeToString(h[:])
}

// logoHostAllowed keeps the engine from fetching arbitrary URLs into the database.
func logoHostAllowed(host string) bool {
	host = strings.ToLower(host)
	return host == "www.google.com" || host == "google.com" || strings.HasSuffix(host, ".gstatic.com") ||
		strings.HasSuffix(host, "googleusercontent.com")
}

// CacheLogoFromURL downloads an image once and returns its key. Unreachable or non-image
// URLs return "" without an error so callers can move on.
func CacheLogoFromURL(ctx context.Context, db *sql.DB, raw string) (key string, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	pu, err := url.Parse(raw)
	if err != nil || pu.Scheme == "" || pu.Host == "" || !logoHostAllowed(pu.Host) {
		return "", nil
	}

	key = LogoKeyFromURL(raw)

	var exists int
	e := db.QueryRowContext(ctx, `SELECT 1 FROM logos WHERE key = ? LIMIT 1;`, key).Scan(&exists)
	if e == nil {
		return key, nil
	}
	if !errors.Is(e, sql.ErrNoRows) {
		return "", e
	}

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")

	resp, err := logoHTTP.Do(req)
	if err != nil {
		log.Printf("[logo-cache] fetch error url=%s err=%v", raw, err)
		return "", nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Printf("[logo-cache] non-2xx url=%s status=%s", raw, resp.Status)
		return "", nil
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxLogoBytes+1))
	if err != nil || len(b) == 0 || len(b) > maxLogoBytes {
		return "", nil
	}

	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "image/") {
		sn := http.DetectContentType(b)
		if !strings.HasPrefix(sn, "image/") {
			return "", errors.New("not an image")
		}
		ct = sn
	}

	if err := SaveLogo(ctx, db, key, ct, b); err != nil {
		return "", err
	}
	log.WithFields(log.Fields{"key": key[:12], "size": humanize.Bytes(uint64(len(b)))}).Debug("logo cached")
	return key, nil
}

func SaveLogo(ctx context.Context, db *sql.DB, key, contentType string, b []byte) error {
	_, err := db.ExecContext(ctx, `
INSERT OR REPLACE INTO logos(key, content_type, bytes, fetched_at)
VALUES(?,?,?,?);`,
		key, contentType, b, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetLogo returns the stored image for key, or ErrLogoNotFound.
func GetLogo(ctx context.Context, db *sql.DB, key string) (contentType string, b []byte, err error) {
	err = db.QueryRowContext(ctx,
		`SELECT content_type, bytes FROM logos WHERE key = ? LIMIT 1;`, key,
	).Scan(&contentType, &b)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil, ErrLogoNotFound
	}
	return contentType, b, err
}

// HasLogo reports whether key is stored, without loading the bytes.
func HasLogo(ctx context.Context, db *sql.DB, key string) bool {
	var one int
	return db.QueryRowContext(ctx, `SELECT 1 FROM logos WHERE key = ? LIMIT 1;`, key).Scan(&one) == nil
}

func FaviconURLForDomain(domain string) string {
	domain = strings.TrimSpace(strings.ToLower(domain))
	domain = strings.TrimPrefix(domain, "http://")
	domain = strings.TrimPrefix(domain, "https://")
	domain = strings.TrimPrefix(domain, "www.")
	domain = strings.Trim(domain, "/")
	if domain == "" {
		return ""
	}
	// sz can be 16/32/64/128
	return "https://www.google.com/s2/favicons?domain=" + url.QueryEscape(domain) + "&sz=64"
}

func CacheFaviconForDomain(ctx context.Context, db *sql.DB, domain string) (string, error) {
	u := FaviconURLForDomain(domain)
	if u == "" {
		return "", nil
	}
	return CacheLogoFromURL(ctx, db, u)
}
