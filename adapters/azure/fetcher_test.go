package azure

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(srv *httptest.Server, retries int) *Client {
	return NewClient(ClientConfig{
		BaseURL:    srv.URL,
		Token:      "test-token",
		Retries:    retries,
		RetryDelay: time.Millisecond,
		HTTPClient: srv.Client(),
	})
}

func TestGetJSONSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Write([]byte(`{"value":[{"id":"a"}]}`))
	}))
	defer srv.Close()

	client := newTestClient(srv, 3)
	defer client.Close()

	doc, err := client.GetJSON(t.Context(), "/things", nil, nil)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Len(t, doc.Array("value"), 1)
}

func TestGetJSONAcceptableStatus(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Header().Set("Location", "https://elsewhere.example.com/")
		w.WriteHeader(http.StatusFound)
	}))
	defer srv.Close()

	client := newTestClient(srv, 3)
	defer client.Close()

	// 302 is declared acceptable: no data, no error, no retries, and the
	// redirect is not followed.
	doc, err := client.GetJSON(t.Context(), "/ratecard", []int{http.StatusFound}, nil)
	require.NoError(t, err)
	assert.Nil(t, doc)
	assert.Equal(t, 1, requests)
}

func TestGetJSONRetryCeiling(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	// Zero retries selects the default ceiling.
	client := NewClient(ClientConfig{
		BaseURL:    srv.URL,
		RetryDelay: time.Millisecond,
		HTTPClient: srv.Client(),
	})
	defer client.Close()

	_, err := client.GetJSON(t.Context(), "/broken", nil, nil)
	require.Error(t, err)
	assert.Equal(t, defaultRetries, requests)
}

func TestGetJSONRetriesOnMalformedBody(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			w.Write([]byte("<html>bad gateway</html>"))
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := newTestClient(srv, 3)
	defer client.Close()

	doc, err := client.GetJSON(t.Context(), "/flaky", nil, nil)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, 2, requests)
}

func TestGetJSONRecoverRewritesURL(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/original" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"code":"InvalidInput"}}`))
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := newTestClient(srv, 3)
	defer client.Close()

	var recovered string
	doc, err := client.GetJSON(t.Context(), "/original", nil, func(rawBody string) string {
		recovered = rawBody
		return "/rewritten"
	})
	require.NoError(t, err)
	require.NotNil(t, doc)

	assert.Equal(t, []string{"/original", "/rewritten"}, paths)
	assert.Equal(t, `{"error":{"code":"InvalidInput"}}`, recovered)
}

func TestPostForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		w.Write([]byte(`{"access_token":"tok"}`))
	}))
	defer srv.Close()

	client := newTestClient(srv, 3)
	defer client.Close()

	doc, err := client.PostForm(t.Context(), srv.URL+"/token", map[string][]string{
		"grant_type": {"client_credentials"},
	})
	require.NoError(t, err)

	token, ok := doc.GetString("access_token")
	require.True(t, ok)
	assert.Equal(t, "tok", token)
}

func TestAcquireToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tenant-1/oauth2/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client-1", r.PostForm.Get("client_id"))
		assert.Equal(t, "secret", r.PostForm.Get("client_secret"))
		assert.Equal(t, managementAuthURL, r.PostForm.Get("resource"))
		w.Write([]byte(`{"access_token":"tok"}`))
	}))
	defer srv.Close()

	old := loginURL
	loginURL = srv.URL
	defer func() { loginURL = old }()

	client := newTestClient(srv, 3)
	defer client.Close()

	token, err := AcquireToken(t.Context(), client, "tenant-1", "client-1", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok", token)
}
