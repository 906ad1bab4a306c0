package tkapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler, opts ...func(*Config)) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := Config{
		BaseURL:   srv.URL,
		UserAgent: "test-agent/1.0",
		RetryMax:  3,
		RetryBase: time.Millisecond,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	c, err := NewClient(cfg)
	require.NoError(t, err)
	return c, srv
}

func TestListBuildsODataQuery(t *testing.T) {
	var gotQuery map[string][]string
	var gotUA string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(`{"value":[{"Id":"a"}]}`))
	}))

	body, err := c.List(context.Background(), "Stemming", Query{
		Filter:  "Verwijderd eq false",
		OrderBy: "Besluit/GewijzigdOp asc",
		Expand:  "Besluit,Fractie",
		Top:     100,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"value":[{"Id":"a"}]}`, string(body))
	assert.Equal(t, "Verwijderd eq false", gotQuery["$filter"][0])
	assert.Equal(t, "Besluit/GewijzigdOp asc", gotQuery["$orderby"][0])
	assert.Equal(t, "Besluit,Fractie", gotQuery["$expand"][0])
	assert.Equal(t, "100", gotQuery["$top"][0])
	assert.Equal(t, "test-agent/1.0", gotUA)
}

func TestGetByID(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Zaak", r.URL.Path)
		assert.Equal(t, "Id eq z-1", r.URL.Query().Get("$filter"))
		assert.Equal(t, "1", r.URL.Query().Get("$top"))
		_, _ = w.Write([]byte(`{"value":[{"Id":"z-1","Soort":"Motie"}]}`))
	}))

	raw, err := c.GetByID(context.Background(), "Zaak", "z-1", "")
	require.NoError(t, err)
	assert.JSONEq(t, `{"Id":"z-1","Soort":"Motie"}`, string(raw))
}

func TestGetByIDNotFound(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"value":[]}`))
	}))

	_, err := c.GetByID(context.Background(), "Zaak", "missing", "")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"value":[]}`))
	}))

	_, err := c.List(context.Background(), "Stemming", Query{})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestNonRetryableStatusFailsFast(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("denied"))
	}))

	_, err := c.List(context.Background(), "Stemming", Query{})
	require.Error(t, err)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := c.List(context.Background(), "Stemming", Query{})
	require.Error(t, err)
	assert.True(t, IsRateLimited(err))
	assert.Equal(t, int32(3), calls.Load())
}

func TestBudgetLimitsCalls(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"value":[]}`))
	}), func(cfg *Config) {
		cfg.Budget = NewBudget(1)
	})

	_, err := c.List(context.Background(), "Stemming", Query{})
	require.NoError(t, err)

	_, err = c.List(context.Background(), "Stemming", Query{})
	require.ErrorIs(t, err, ErrBudgetExhausted)
	assert.Equal(t, int32(1), calls.Load(), "exhausted budget must not hit the network")
	assert.Equal(t, int64(1), c.Budget().Used())
}

func TestResourceReturnsContentType(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/DocumentPublicatie(pub-1)/Resource", r.URL.Path)
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte("<doc/>"))
	}))

	data, contentType, err := c.Resource(context.Background(), "pub-1")
	require.NoError(t, err)
	assert.Equal(t, "<doc/>", string(data))
	assert.Equal(t, "application/xml", contentType)
}

func TestBudgetSemantics(t *testing.T) {
	assert.True(t, (*Budget)(nil).TryAcquire(), "nil budget is unlimited")
	assert.Nil(t, NewBudget(0))

	b := NewBudget(2)
	assert.True(t, b.TryAcquire())
	assert.True(t, b.TryAcquire())
	assert.False(t, b.TryAcquire())
	assert.Equal(t, int64(2), b.Used())
	assert.Equal(t, int64(0), b.Remaining())
}
