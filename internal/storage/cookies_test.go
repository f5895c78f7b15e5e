// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"bytes"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestCookieJar_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")
	api := mustURL(t, "http://localhost:8080/v1/login")

	jar, err := OpenCookieJar(path)
	require.NoError(t, err)
	jar.SetCookies(api, []*http.Cookie{
		{Name: "JSESSIONID", Value: "abc123", Path: "/", HttpOnly: true},
	})
	require.True(t, jar.HasSession(mustURL(t, "http://localhost:8080/v1/history/list")))
	require.NoError(t, jar.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	reopened, err := OpenCookieJar(path)
	require.NoError(t, err)
	defer reopened.Close()

	cookies := reopened.Cookies(mustURL(t, "http://localhost:8080/v1/prompt/add"))
	require.Len(t, cookies, 1)
	assert.Equal(t, "JSESSIONID", cookies[0].Name)
	assert.Equal(t, "abc123", cookies[0].Value)

	assert.Empty(t, reopened.Cookies(mustURL(t, "http://other.example.com/")))
}

func TestCookieJar_DeletionAndExpiry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")
	u := mustURL(t, "https://weasel-backend.kkamji.net/v1/login")

	jar, err := OpenCookieJar(path)
	require.NoError(t, err)
	defer jar.Close()

	jar.SetCookies(u, []*http.Cookie{
		{Name: "keep", Value: "1", Path: "/", MaxAge: 3600},
		{Name: "drop", Value: "2", Path: "/"},
	})
	n, err := jar.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	jar.SetCookies(u, []*http.Cookie{{Name: "drop", Value: "", Path: "/", MaxAge: -1}})
	n, _ = jar.Count()
	assert.Equal(t, 1, n)

	jar.SetCookies(u, []*http.Cookie{{Name: "old", Value: "3", Path: "/", Expires: time.Now().Add(-time.Hour)}})
	n, _ = jar.Count()
	assert.Equal(t, 1, n, "already-expired cookies are not stored")
}

func TestCookieJar_Clear(t *testing.T) {
	jar, err := OpenCookieJar(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	defer jar.Close()

	u := mustURL(t, "http://localhost:8080/v1")
	jar.SetCookies(u, []*http.Cookie{{Name: "JSESSIONID", Value: "x", Path: "/"}})
	require.NoError(t, jar.Clear())

	assert.False(t, jar.HasSession(u))
	n, err := jar.Count()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCookieJar_ClosedJar(t *testing.T) {
	jar, err := OpenCookieJar(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	require.NoError(t, jar.Close())
	require.NoError(t, jar.Close())

	assert.ErrorIs(t, jar.Clear(), ErrClosed)

	u := mustURL(t, "http://localhost:8080/v1")
	jar.SetCookies(u, []*http.Cookie{{Name: "a", Value: "b", Path: "/"}})
	assert.True(t, jar.HasSession(u), "in-memory jar keeps working after Close")
}

func TestCookieJar_PersistFailureIsLogged(t *testing.T) {
	var logs bytes.Buffer
	jar, err := OpenCookieJar(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	defer jar.Close()
	jar.WithLogger(log.New(&logs))

	_, err = jar.db.Exec(`DROP TABLE cookies`)
	require.NoError(t, err)

	u := mustURL(t, "http://localhost:8080/v1/login")
	jar.SetCookies(u, []*http.Cookie{{Name: "JSESSIONID", Value: "x", Path: "/"}})

	assert.True(t, jar.HasSession(u), "in-memory jar still updated")
	assert.Contains(t, logs.String(), "cookies not persisted")
	assert.Contains(t, logs.String(), "http://localhost:8080")
}
