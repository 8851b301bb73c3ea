package cookie_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gpportal/pkg/cookie"
)

const (
	secretA = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	secretB = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

// roundTrip copies the cookies written to rec into a fresh request.
func roundTrip(rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := cookie.New(nil)
	assert.ErrorIs(t, err, cookie.ErrNoSecret)

	_, err = cookie.New([]string{"", ""})
	assert.ErrorIs(t, err, cookie.ErrNoSecret)

	_, err = cookie.New([]string{"short"})
	assert.ErrorIs(t, err, cookie.ErrSecretTooShort)

	_, err = cookie.New([]string{secretA})
	assert.NoError(t, err)
}

func TestManager_Signed(t *testing.T) {
	t.Parallel()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()
		m, err := cookie.New([]string{secretA})
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		m.SetSigned(rec, "sid", "token-123", cookie.WithMaxAge(60))

		got, err := m.GetSigned(roundTrip(rec), "sid")
		require.NoError(t, err)
		assert.Equal(t, "token-123", got)

		c := rec.Result().Cookies()[0]
		assert.True(t, c.HttpOnly)
		assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
		assert.Equal(t, 60, c.MaxAge)
		assert.NotContains(t, c.Value, "token-123")
	})

	t.Run("tampered value is rejected", func(t *testing.T) {
		t.Parallel()
		m, err := cookie.New([]string{secretA})
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		m.SetSigned(rec, "sid", "token-123")
		c := rec.Result().Cookies()[0]

		_, sig, _ := strings.Cut(c.Value, ".")
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "sid", Value: "dG9rZW4tOTk5." + sig})

		_, err = m.GetSigned(req, "sid")
		assert.ErrorIs(t, err, cookie.ErrInvalidSignature)
	})

	t.Run("value cannot move to another cookie name", func(t *testing.T) {
		t.Parallel()
		m, err := cookie.New([]string{secretA})
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		m.SetSigned(rec, "sid", "token-123")
		c := rec.Result().Cookies()[0]

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "other", Value: c.Value})
		_, err = m.GetSigned(req, "other")
		assert.ErrorIs(t, err, cookie.ErrInvalidSignature)
	})

	t.Run("malformed values", func(t *testing.T) {
		t.Parallel()
		m, err := cookie.New([]string{secretA})
		require.NoError(t, err)

		for _, v := range []string{"no-separator", "!!!.abc", "YWJj.!!!"} {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.AddCookie(&http.Cookie{Name: "sid", Value: v})
			_, err := m.GetSigned(req, "sid")
			assert.ErrorIs(t, err, cookie.ErrInvalidFormat, v)
		}
	})

	t.Run("missing cookie", func(t *testing.T) {
		t.Parallel()
		m, err := cookie.New([]string{secretA})
		require.NoError(t, err)

		_, err = m.GetSigned(httptest.NewRequest(http.MethodGet, "/", nil), "sid")
		assert.ErrorIs(t, err, cookie.ErrCookieNotFound)
	})

	t.Run("secret rotation", func(t *testing.T) {
		t.Parallel()
		old, err := cookie.New([]string{secretA})
		require.NoError(t, err)
		rotated, err := cookie.New([]string{secretB, secretA})
		require.NoError(t, err)
		retired, err := cookie.New([]string{secretB})
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		old.SetSigned(rec, "sid", "v")
		req := roundTrip(rec)

		got, err := rotated.GetSigned(req, "sid")
		require.NoError(t, err)
		assert.Equal(t, "v", got)

		_, err = retired.GetSigned(req, "sid")
		assert.ErrorIs(t, err, cookie.ErrInvalidSignature)
	})
}

func TestManager_Delete(t *testing.T) {
	t.Parallel()
	m, err := cookie.New([]string{secretA}, cookie.WithSecure(true))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	m.Delete(rec, "sid")

	c := rec.Result().Cookies()[0]
	assert.Equal(t, "sid", c.Name)
	assert.Equal(t, -1, c.MaxAge)
	assert.True(t, c.Secure)
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	m, err := cookie.NewFromConfig(cookie.Config{
		Secrets:  " " + secretA + " , " + secretB,
		SameSite: "strict",
		Secure:   true,
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	m.Set(rec, "k", "v")
	c := rec.Result().Cookies()[0]
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
	assert.True(t, c.Secure)

	_, err = cookie.NewFromConfig(cookie.Config{Secrets: secretA, SameSite: "sometimes"})
	assert.ErrorIs(t, err, cookie.ErrInvalidSameSite)
}
