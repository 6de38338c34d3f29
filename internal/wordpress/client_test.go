package wordpress

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epsomandewellharriers/spond_sync/internal/transport"
)

func newTestClient(t *testing.T, maxPages int, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Options{
		BaseURL:  srv.URL,
		Username: "sync",
		Password: "app-password",
		MaxPages: maxPages,
	})
}

func pagedHandler(t *testing.T, totalPages int, requests *int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(requests, 1)
		assert.Equal(t, "/wp-json/wp/v2/fixture/", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "sync", user)
		assert.Equal(t, "app-password", pass)
		assert.Equal(t, "SyncFromSpond", r.Header.Get("User-Agent"))
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))
		assert.Equal(t, "edit", r.URL.Query().Get("context"))

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		w.Header().Set("X-WP-TotalPages", strconv.Itoa(totalPages))
		_, _ = w.Write([]byte(`[{"id":` + strconv.Itoa(page) + `,"title":{"rendered":"Page ` + strconv.Itoa(page) + `"}}]`))
	}
}

// TestFetchAllFollowsPagination tests that every page is fetched in order
func TestFetchAllFollowsPagination(t *testing.T) {
	var requests int32
	client := newTestClient(t, 10, pagedHandler(t, 3, &requests))

	fixtures, err := client.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, fixtures, 3)
	for i, f := range fixtures {
		assert.Equal(t, i+1, f.ID)
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&requests))
}

// TestFetchAllPaginationLimit tests that exceeding the page cap fails instead of truncating
func TestFetchAllPaginationLimit(t *testing.T) {
	var requests int32
	client := newTestClient(t, 2, pagedHandler(t, 5, &requests))

	fixtures, err := client.FetchAll(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPaginationLimitExceeded)
	assert.Nil(t, fixtures)
	assert.Equal(t, int32(2), atomic.LoadInt32(&requests))
}

// TestFetchAllWithoutPageHeader tests that a missing page header ends pagination
func TestFetchAllWithoutPageHeader(t *testing.T) {
	client := newTestClient(t, 10, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	fixtures, err := client.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, fixtures)
}

// TestFetchAllRetriesServerErrors tests that transient failures on reads are retried
func TestFetchAllRetriesServerErrors(t *testing.T) {
	var requests int32
	client := newTestClient(t, 10, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requests, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("X-WP-TotalPages", "1")
		_, _ = w.Write([]byte(`[{"id":7}]`))
	})

	fixtures, err := client.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, fixtures, 1)
	assert.Equal(t, int32(2), atomic.LoadInt32(&requests))
}

// TestInsertUpdateDelete tests the mutating requests and their payloads
func TestInsertUpdateDelete(t *testing.T) {
	type call struct {
		method string
		path   string
		body   map[string]any
	}
	var calls []call
	client := newTestClient(t, 10, func(w http.ResponseWriter, r *http.Request) {
		c := call{method: r.Method, path: r.URL.Path}
		data, _ := io.ReadAll(r.Body)
		if len(data) > 0 {
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.NoError(t, json.Unmarshal(data, &c.body))
		}
		calls = append(calls, c)
		_, _ = w.Write([]byte(`{}`))
	})

	date := "20250301"
	payload := FixturePayload{
		Status: "publish",
		Title:  "Club night",
		Ages:   []int{41},
		ACF:    FixtureFields{StartDate: &date, ExternalLinkText: "Spond"},
	}

	ctx := context.Background()
	require.NoError(t, client.Insert(ctx, payload))
	payload.ID = 12
	require.NoError(t, client.Update(ctx, 12, payload))
	require.NoError(t, client.Delete(ctx, 12))

	require.Len(t, calls, 3)
	assert.Equal(t, http.MethodPost, calls[0].method)
	assert.Equal(t, "/wp-json/wp/v2/fixture/", calls[0].path)
	assert.NotContains(t, calls[0].body, "id")
	assert.Equal(t, "Club night", calls[0].body["title"])
	acf := calls[0].body["acf"].(map[string]any)
	assert.Equal(t, "20250301", acf["start_date"])
	assert.Nil(t, acf["start_time"])
	assert.Nil(t, acf["location"])

	assert.Equal(t, http.MethodPut, calls[1].method)
	assert.Equal(t, "/wp-json/wp/v2/fixture/12", calls[1].path)
	assert.Equal(t, float64(12), calls[1].body["id"])

	assert.Equal(t, http.MethodDelete, calls[2].method)
	assert.Equal(t, "/wp-json/wp/v2/fixture/12", calls[2].path)
	assert.Nil(t, calls[2].body)
}

// TestMutationsAreNotRetried tests that a failed write surfaces immediately
func TestMutationsAreNotRetried(t *testing.T) {
	var requests int32
	client := newTestClient(t, 10, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"code":"internal_error"}`))
	})

	err := client.Delete(context.Background(), 3)
	require.Error(t, err)

	var apiErr *transport.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, http.MethodDelete, apiErr.Method)
	assert.Equal(t, int32(1), atomic.LoadInt32(&requests))
}
