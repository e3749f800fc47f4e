package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MekdelawitGebre/customer-experience-fintech/domain/review"
)

// storeRequest is the decoded part of an f.req payload.
type storeRequest struct {
	appID string
	count int
	token string
}

func decodeRequest(t *testing.T, r *http.Request) storeRequest {
	t.Helper()
	require.NoError(t, r.ParseForm())

	var outer [][][]any
	require.NoError(t, json.Unmarshal([]byte(r.PostForm.Get("f.req")), &outer))
	require.Equal(t, "UsvDTd", outer[0][0][0])

	var inner []any
	require.NoError(t, json.Unmarshal([]byte(outer[0][0][1].(string)), &inner))

	paging := inner[2].([]any)[2].([]any)
	req := storeRequest{
		appID: inner[3].([]any)[0].(string),
		count: int(paging[0].(float64)),
	}
	if tok, ok := paging[2].(string); ok {
		req.token = tok
	}
	return req
}

func fakeReview(i int) []any {
	return []any{
		fmt.Sprintf("gp:%d", i),
		[]any{fmt.Sprintf("user %d", i), []any{nil, 2, nil, []any{nil, nil, "img"}}},
		float64(i%5 + 1),
		nil,
		fmt.Sprintf("review %d", i),
		[]any{float64(1748772000 + i), 0},
	}
}

func pageBody(t *testing.T, start, count int, token string) string {
	t.Helper()
	items := make([]any, count)
	for i := range items {
		items[i] = fakeReview(start + i)
	}
	var tok any
	if token != "" {
		tok = token
	}
	payload, err := json.Marshal([]any{items, []any{nil, tok}, nil})
	require.NoError(t, err)
	envelope, err := json.Marshal([]any{
		[]any{"wrb.fr", "UsvDTd", string(payload), nil, nil, nil, "generic"},
		[]any{"di", 42},
	})
	require.NoError(t, err)
	return ")]}'\n\n" + string(envelope)
}

func TestClient_ReviewsPaginates(t *testing.T) {
	var requests []storeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "en", r.URL.Query().Get("hl"))
		assert.Equal(t, "us", r.URL.Query().Get("gl"))

		req := decodeRequest(t, r)
		requests = append(requests, req)
		switch req.token {
		case "":
			_, _ = fmt.Fprint(w, pageBody(t, 0, req.count, "page-2"))
		case "page-2":
			_, _ = fmt.Fprint(w, pageBody(t, 200, req.count, "page-3"))
		default:
			t.Errorf("unexpected token %q", req.token)
		}
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL), WithDelay(0))
	rows, err := c.Reviews(context.Background(), "com.combanketh.mobilebanking", 250)
	require.NoError(t, err)

	require.Len(t, rows, 250)
	require.Len(t, requests, 2)
	assert.Equal(t, storeRequest{appID: "com.combanketh.mobilebanking", count: 200}, requests[0])
	assert.Equal(t, storeRequest{appID: "com.combanketh.mobilebanking", count: 50, token: "page-2"}, requests[1])

	assert.Equal(t, review.Raw{
		Text:     "review 0",
		Rating:   "1",
		Date:     "2025-06-01T10:00:00Z",
		UserName: "user 0",
		Source:   review.SourceGooglePlay,
	}, rows[0])
	assert.Equal(t, "review 249", rows[249].Text)
}

func TestClient_ReviewsStopsWithoutToken(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = fmt.Fprint(w, pageBody(t, 0, 3, ""))
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL), WithDelay(0))
	rows, err := c.Reviews(context.Background(), "com.boa.boaMobileBanking", 500)
	require.NoError(t, err)

	assert.Len(t, rows, 3)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_StatusErrorIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL), WithDelay(0))
	_, err := c.Reviews(context.Background(), "com.dashen.dashensuperapp", 10)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, ")]}'\n\n[[\"wrb.fr\",\"UsvDTd\",null]]")
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL), WithDelay(0))
	_, _, err := c.Page(context.Background(), "com.example", 10, "")
	assert.ErrorIs(t, err, ErrUnexpectedResponse)
}

func TestClient_CacheDirReplaysResponses(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = fmt.Fprint(w, pageBody(t, 0, 2, ""))
	}))
	defer srv.Close()

	dir := t.TempDir()
	c := New(WithBaseURL(srv.URL), WithDelay(0), WithCacheDir(dir))

	first, err := c.Reviews(context.Background(), "com.example", 2)
	require.NoError(t, err)
	second, err := c.Reviews(context.Background(), "com.example", 2)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRequestPayload(t *testing.T) {
	assert.Equal(t,
		`[[["UsvDTd","[null,null,[2,2,[200,null,null],null,[]],[\"com.example\",7]]",null,"generic"]]]`,
		requestPayload("com.example", 200, ""),
	)
	assert.Contains(t, requestPayload("com.example", 50, "tok"), `[50,null,\"tok\"]`)
}

func TestLoadAppIDs(t *testing.T) {
	apps, err := LoadAppIDs("")
	require.NoError(t, err)
	assert.Equal(t, review.DefaultAppIDs(), apps)

	path := filepath.Join(t.TempDir(), "apps.yaml")
	require.NoError(t, os.WriteFile(path, []byte("banks:\n  Awash: com.awash.mobile\n  CBE: com.example.cbe\n"), 0o644))

	apps, err = LoadAppIDs(path)
	require.NoError(t, err)
	assert.Equal(t, "com.awash.mobile", apps["Awash"])
	assert.Equal(t, "com.example.cbe", apps["CBE"])
	assert.Equal(t, "com.boa.boaMobileBanking", apps["BOA"])

	_, err = LoadAppIDs(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
