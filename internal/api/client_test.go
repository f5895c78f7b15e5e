// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkamji/weasel-tui/internal/attach"
	"github.com/kkamji/weasel-tui/internal/logging"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	c := NewClient(server.URL + "/v1").
		WithImageBaseURL("https://img.example.com/").
		WithTimeout(5 * time.Second).
		WithLogger(logging.Discard())
	return c, server
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, body)
}

// =============================================================================
// HISTORY TESTS
// =============================================================================

func TestListThreads(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/history/list", r.URL.Path)
		writeJSON(w, http.StatusOK, `[{"historyId":7,"title":"first"},{"historyId":"t2","title":""}]`)
	})

	threads, err := c.ListThreads(context.Background())
	require.NoError(t, err)
	require.Len(t, threads, 2)
	assert.Equal(t, "7", threads[0].ID)
	assert.Equal(t, "first", threads[0].Title)
	assert.Equal(t, "t2", threads[1].ID)
}

func TestListPrompts_ResolvesPhotos(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/prompt/list/t1", r.URL.Path)
		writeJSON(w, http.StatusOK, `[
			{"promptId":1,"prompt":"hello","photo":"cat.png","answer":"hi"},
			{"promptId":"p2","prompt":"again","photo":null,"answer":"yes"}
		]`)
	})

	records, err := c.ListPrompts(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "1", records[0].PromptID)
	assert.Equal(t, "https://img.example.com/cat.png", records[0].Photo)
	assert.Equal(t, "", records[1].Photo)
	assert.Equal(t, "yes", records[1].Answer)
}

func TestListPrompts_EmptyID(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	_, err := c.ListPrompts(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyID)
	assert.Equal(t, int32(0), calls.Load())
}

func TestDeleteThread(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/v1/history/delete/t9", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, c.DeleteThread(context.Background(), "t9"))
}

// =============================================================================
// PROMPT TESTS
// =============================================================================

func TestAddPrompt_NewThread(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/prompt/add", r.URL.Path)
		assert.False(t, r.URL.Query().Has("historyId"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		var dto promptDTO
		require.NoError(t, json.Unmarshal([]byte(r.FormValue("promptDTO")), &dto))
		assert.Equal(t, "hello", dto.Prompt)
		assert.Empty(t, r.MultipartForm.File["file"])

		writeJSON(w, http.StatusOK, `{"promptId":"m1","answer":"hi there","historyDTO":{"historyId":"t1","title":"hello"}}`)
	})

	res, err := c.AddPrompt(context.Background(), "", "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, "m1", res.PromptID)
	assert.Equal(t, "hi there", res.Answer)
	require.NotNil(t, res.Thread)
	assert.Equal(t, "t1", res.Thread.ID)
	assert.Equal(t, "hello", res.Thread.Title)
}

func TestAddPrompt_ExistingThreadWithImage(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "t1", r.URL.Query().Get("historyId"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		files := r.MultipartForm.File["file"]
		require.Len(t, files, 1)
		assert.Equal(t, "cat.png", files[0].Filename)
		assert.Equal(t, "image/png", files[0].Header.Get("Content-Type"))

		writeJSON(w, http.StatusOK, `{"promptId":42,"answer":"a cat"}`)
	})

	img, err := attach.FromBytes("cat.png", pngHeader)
	require.NoError(t, err)

	res, err := c.AddPrompt(context.Background(), "t1", "", img)
	require.NoError(t, err)
	assert.Equal(t, "42", res.PromptID)
	assert.Nil(t, res.Thread)
}

func TestAddPrompt_NewThreadMissingDTO(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"promptId":"m1","answer":"x"}`)
	})

	_, err := c.AddPrompt(context.Background(), "", "hello", nil)
	assert.Error(t, err)
}

// =============================================================================
// ERROR MAPPING TESTS
// =============================================================================

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantAuth bool
		wantMsg  string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"msg":"login required"}`, true, "login required"},
		{"server error", http.StatusInternalServerError, `{"message":"boom"}`, false, "boom"},
		{"plain text", http.StatusBadGateway, "upstream down", false, "upstream down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})

			_, err := c.ListThreads(context.Background())
			require.Error(t, err)
			if got := IsAuthError(err); got != tt.wantAuth {
				t.Errorf("IsAuthError() = %v, want %v", got, tt.wantAuth)
			}
			if !IsNetworkError(err) {
				t.Errorf("IsNetworkError() = false for %v", err)
			}

			var apiErr *Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.wantMsg, apiErr.Message)
		})
	}
}

func TestErrorMessage_Truncates(t *testing.T) {
	tests := []struct {
		name string
		body string
		cut  bool
	}{
		{"short", "bad gateway", false},
		{"long ascii", strings.Repeat("x", 500), true},
		{"long multibyte", strings.Repeat("오류 ", 150), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errorMessage([]byte(tt.body))
			if !utf8.ValidString(got) {
				t.Errorf("errorMessage() returned invalid UTF-8: %q", got)
			}
			assert.LessOrEqual(t, runewidth.StringWidth(got), maxErrorWidth)
			if tt.cut {
				assert.True(t, strings.HasSuffix(got, "..."), "got %q", got)
			} else {
				assert.Equal(t, tt.body, got)
			}
		})
	}
}

func TestTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c := NewClient(url).WithLogger(logging.Discard()).WithTimeout(time.Second)
	_, err := c.ListThreads(context.Background())
	require.Error(t, err)

	var ne *NetworkError
	assert.True(t, errors.As(err, &ne))
	assert.False(t, IsAuthError(err))
}

// =============================================================================
// MEMBER TESTS
// =============================================================================

func TestValidateCredentials(t *testing.T) {
	tests := []struct {
		email, password string
		want            error
	}{
		{"a@b.co", "pw", nil},
		{"", "pw", ErrMissingCredentials},
		{"a@b.co", "", ErrMissingCredentials},
		{"not-an-email", "pw", ErrInvalidEmail},
		{"a @b.co", "pw", ErrInvalidEmail},
		{"a@b", "pw", ErrInvalidEmail},
	}

	for _, tt := range tests {
		if got := ValidateCredentials(tt.email, tt.password); !errors.Is(got, tt.want) {
			t.Errorf("ValidateCredentials(%q, %q) = %v, want %v", tt.email, tt.password, got, tt.want)
		}
	}
}

func TestLogin_ResultCodes(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
		result  bool
	}{
		{"success", http.StatusOK, `{"resultCode":1}`, nil, false},
		{"no code", http.StatusOK, `{}`, nil, false},
		{"bad credentials", http.StatusOK, `{"resultCode":-1}`, ErrBadCredentials, false},
		{"401", http.StatusUnauthorized, ``, ErrBadCredentials, false},
		{"other code", http.StatusOK, `{"resultCode":0,"msg":"locked"}`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/login", r.URL.Path)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				var creds Credentials
				require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
				assert.Equal(t, "a@b.co", creds.Email)
				writeJSON(w, tt.status, tt.body)
			})

			err := c.Login(context.Background(), " a@b.co ", "pw")
			switch {
			case tt.result:
				var re *ResultError
				require.True(t, errors.As(err, &re), "got %v", err)
				assert.Equal(t, "locked", re.Message)
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestLogin_InvalidEmailSendsNothing(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	err := c.Login(context.Background(), "nope", "pw")
	assert.ErrorIs(t, err, ErrInvalidEmail)
	assert.Equal(t, int32(0), calls.Load())
}

func TestLogin_StoresSessionCookie(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/login":
			http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "abc", Path: "/"})
			writeJSON(w, http.StatusOK, `{"resultCode":1}`)
		case "/v1/history/list":
			if _, err := r.Cookie("JSESSIONID"); err != nil {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			writeJSON(w, http.StatusOK, `[]`)
		}
	})

	assert.False(t, c.HasSession())
	require.NoError(t, c.Login(context.Background(), "a@b.co", "pw"))
	assert.True(t, c.HasSession())

	_, err := c.ListThreads(context.Background())
	assert.NoError(t, err)
}

func TestRegister_MultipartParts(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/member/join", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		var creds Credentials
		require.NoError(t, json.Unmarshal([]byte(r.FormValue("memberDTOstr")), &creds))
		assert.Equal(t, "new@b.co", creds.Email)
		assert.Equal(t, "secret", creds.Password)
		assert.Len(t, r.MultipartForm.File["file"], 1)

		writeJSON(w, http.StatusOK, `{"resultCode":1}`)
	})

	img, err := attach.FromBytes("me.png", pngHeader)
	require.NoError(t, err)
	require.NoError(t, c.Register(context.Background(), "new@b.co", "secret", img))
}

func TestViewProfile(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/member/view", r.URL.Path)
		writeJSON(w, http.StatusOK, `{"id":3,"email":"a@b.co","profilePhoto":"me.png"}`)
	})

	p, err := c.ViewProfile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "3", p.ID)
	assert.Equal(t, "a@b.co", p.Email)
	assert.Equal(t, "https://img.example.com/me.png", p.PhotoURL)
}

func TestUpdateProfile(t *testing.T) {
	t.Run("nothing to update", func(t *testing.T) {
		var calls atomic.Int32
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
		})
		_, err := c.UpdateProfile(context.Background(), ProfileUpdate{})
		assert.ErrorIs(t, err, ErrNothingToUpdate)
		assert.Equal(t, int32(0), calls.Load())
	})

	t.Run("password and photo", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPatch, r.Method)
			assert.Equal(t, "/v1/member/update", r.URL.Path)
			require.NoError(t, r.ParseMultipartForm(1<<20))

			var dto passwordDTO
			require.NoError(t, json.Unmarshal([]byte(r.FormValue("updatedMemberDTOstr")), &dto))
			assert.Equal(t, "new-pw", dto.Password)
			assert.Len(t, r.MultipartForm.File["profilePhoto"], 1)

			writeJSON(w, http.StatusOK, `{"photoUrl":"https://cdn.example.com/me2.png"}`)
		})

		img, err := attach.FromBytes("me2.png", pngHeader)
		require.NoError(t, err)
		photo, err := c.UpdateProfile(context.Background(), ProfileUpdate{Password: "new-pw", Photo: img})
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/me2.png", photo)
	})
}

func TestLogout(t *testing.T) {
	var hit atomic.Bool
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/logout", r.URL.Path)
		hit.Store(true)
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, c.Logout(context.Background()))
	assert.True(t, hit.Load())
}

// =============================================================================
// HELPER TESTS
// =============================================================================

func TestResolveImage(t *testing.T) {
	tests := []struct {
		base, ref, want string
	}{
		{"https://img/", "a.png", "https://img/a.png"},
		{"https://img", "/a.png", "https://img/a.png"},
		{"https://img/", "https://other/a.png", "https://other/a.png"},
		{"https://img/", "data:image/png;base64,AA", "data:image/png;base64,AA"},
		{"https://img/", "  ", ""},
		{"", "a.png", "a.png"},
	}

	for _, tt := range tests {
		if got := resolveImage(tt.base, tt.ref); got != tt.want {
			t.Errorf("resolveImage(%q, %q) = %q, want %q", tt.base, tt.ref, got, tt.want)
		}
	}
}

func TestRateLimit_CanceledContext(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `[]`)
	})
	c.WithRateLimit(0.001, 1)

	// First request consumes the only token.
	_, err := c.ListThreads(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.ListThreads(ctx)
	var ne *NetworkError
	assert.True(t, errors.As(err, &ne))
}
