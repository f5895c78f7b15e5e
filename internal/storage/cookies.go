// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/kkamji/weasel-tui/internal/logging"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrClosed        = errors.New("cookie jar closed")
	ErrDatabaseError = errors.New("database error")
)

// =============================================================================
// SCHEMA
// =============================================================================

const schema = `
CREATE TABLE IF NOT EXISTS cookies (
	origin     TEXT    NOT NULL,
	name       TEXT    NOT NULL,
	value      TEXT    NOT NULL,
	path       TEXT    NOT NULL DEFAULT '',
	domain     TEXT    NOT NULL DEFAULT '',
	expires    INTEGER NOT NULL DEFAULT 0,
	secure     INTEGER NOT NULL DEFAULT 0,
	http_only  INTEGER NOT NULL DEFAULT 0,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (origin, name, path, domain)
);
`

// =============================================================================
// COOKIE JAR
// =============================================================================

// CookieJar is an http.CookieJar whose contents survive restarts.
//
// Matching rules (domain, path, expiry) are delegated to net/http/cookiejar;
// the database only stores what the server set so it can be replayed.
type CookieJar struct {
	mu     sync.Mutex
	db     *sql.DB
	jar    *cookiejar.Jar
	now    func() time.Time
	logger *log.Logger
}

// OpenCookieJar opens (or creates) the cookie database at path and loads
// every unexpired cookie.
func OpenCookieJar(path string) (*CookieJar, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	// The file holds a live credential
	if err := os.Chmod(path, 0600); err != nil && !errors.Is(err, os.ErrNotExist) {
		db.Close()
		return nil, fmt.Errorf("failed to secure database: %w", err)
	}

	j := &CookieJar{db: db, now: time.Now, logger: logging.With("storage")}
	if err := j.reload(); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

// reload rebuilds the in-memory jar from the database.
func (j *CookieJar) reload() error {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return err
	}

	now := j.now().Unix()
	if _, err := j.db.Exec(`DELETE FROM cookies WHERE expires > 0 AND expires <= ?`, now); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	rows, err := j.db.Query(`SELECT origin, name, value, path, domain, expires, secure, http_only FROM cookies`)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	byOrigin := make(map[string][]*http.Cookie)
	for rows.Next() {
		var (
			origin           string
			c                http.Cookie
			expires          int64
			secure, httpOnly bool
		)
		if err := rows.Scan(&origin, &c.Name, &c.Value, &c.Path, &c.Domain, &expires, &secure, &httpOnly); err != nil {
			return fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		if expires > 0 {
			c.Expires = time.Unix(expires, 0)
		}
		c.Secure = secure
		c.HttpOnly = httpOnly
		byOrigin[origin] = append(byOrigin[origin], &c)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	for origin, cookies := range byOrigin {
		u, err := url.Parse(origin)
		if err != nil {
			continue
		}
		jar.SetCookies(u, cookies)
	}

	j.mu.Lock()
	j.jar = jar
	j.mu.Unlock()
	return nil
}

// WithLogger sets the logger.
func (j *CookieJar) WithLogger(logger *log.Logger) *CookieJar {
	j.logger = logger
	return j
}

// SetCookies implements http.CookieJar. The in-memory jar is always
// updated; a persistence failure is logged since the interface has no error
// return, and the session then lasts only until exit.
func (j *CookieJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.jar == nil {
		return
	}
	j.jar.SetCookies(u, cookies)
	if j.db != nil {
		if err := j.persistLocked(originOf(u), cookies); err != nil {
			j.logger.Warn("cookies not persisted", "origin", originOf(u), "count", len(cookies), "err", err)
		}
	}
}

// Cookies implements http.CookieJar.
func (j *CookieJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.jar == nil {
		return nil
	}
	return j.jar.Cookies(u)
}

// HasSession reports whether any cookie would be sent to u.
func (j *CookieJar) HasSession(u *url.URL) bool {
	return len(j.Cookies(u)) > 0
}

// persistLocked upserts or deletes cookies. Caller must hold mu.
func (j *CookieJar) persistLocked(origin string, cookies []*http.Cookie) error {
	tx, err := j.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	now := j.now()
	for _, c := range cookies {
		expires := int64(0)
		switch {
		case c.MaxAge > 0:
			expires = now.Add(time.Duration(c.MaxAge) * time.Second).Unix()
		case !c.Expires.IsZero():
			expires = c.Expires.Unix()
		}

		if c.MaxAge < 0 || (expires > 0 && expires <= now.Unix()) {
			if _, err := tx.Exec(`DELETE FROM cookies WHERE origin = ? AND name = ? AND path = ? AND domain = ?`,
				origin, c.Name, c.Path, c.Domain); err != nil {
				return fmt.Errorf("%w: %v", ErrDatabaseError, err)
			}
			continue
		}

		if _, err := tx.Exec(`INSERT INTO cookies (origin, name, value, path, domain, expires, secure, http_only, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(origin, name, path, domain) DO UPDATE SET
				value = excluded.value, expires = excluded.expires, secure = excluded.secure,
				http_only = excluded.http_only, updated_at = excluded.updated_at`,
			origin, c.Name, c.Value, c.Path, c.Domain, expires, c.Secure, c.HttpOnly, now.Unix()); err != nil {
			return fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
	}
	return tx.Commit()
}

// Clear forgets every cookie, in memory and on disk.
func (j *CookieJar) Clear() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.db == nil {
		return ErrClosed
	}
	if _, err := j.db.Exec(`DELETE FROM cookies`); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return err
	}
	j.jar = jar
	return nil
}

// Count returns the number of stored cookies.
func (j *CookieJar) Count() (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.db == nil {
		return 0, ErrClosed
	}
	var n int
	if err := j.db.QueryRow(`SELECT COUNT(*) FROM cookies`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return n, nil
}

// Close closes the database. The in-memory jar keeps working until the
// process exits but nothing more is persisted.
func (j *CookieJar) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.db == nil {
		return nil
	}
	err := j.db.Close()
	j.db = nil
	return err
}

// originOf reduces u to scheme://host.
func originOf(u *url.URL) string {
	return (&url.URL{Scheme: u.Scheme, Host: u.Host}).String()
}
