package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kovalyov-valentin/news-radar/internal/model"
)

func TestAPISource_RequestParams(t *testing.T) {
	var gotQuery map[string][]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		_, _ = w.Write([]byte(`{"articles":[]}`))
	}))
	defer srv.Close()

	src, err := New(model.Source{
		Name:    "newsapi",
		Kind:    KindNewsAPI,
		FeedURL: srv.URL,
		APIKey:  "secret",
		Query:   "oil",
	}, srv.Client())
	require.NoError(t, err)

	p, err := src.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, `{"articles":[]}`, string(p.Body))
	assert.Equal(t, "newsapi", p.Source.Name)
	assert.Equal(t, []string{"secret"}, gotQuery["apiKey"])
	assert.Equal(t, []string{"oil"}, gotQuery["q"])
	assert.Equal(t, []string{"20"}, gotQuery["pageSize"])
}

func TestAPISource_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	src := NewAPISource(model.Source{Name: "finnhub", Kind: KindFinnhub, FeedURL: srv.URL}, srv.Client())

	_, err := src.Fetch(context.Background())

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusTooManyRequests, statusErr.Code)
	assert.True(t, statusErr.Temporary())
}

func TestRSSSource_CancelAbortsRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	src := NewRSSSourceFromModel(model.Source{Name: "feed", Kind: KindRSS, FeedURL: srv.URL}, srv.Client())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := src.Fetch(ctx)

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "news.json")
	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o600))

	src, err := New(model.Source{Name: "local", Kind: KindFile, FeedURL: path}, nil)
	require.NoError(t, err)

	p, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "[]", string(p.Body))
}

func TestNew_UnknownKind(t *testing.T) {
	_, err := New(model.Source{Name: "x", Kind: "carrier-pigeon"}, nil)
	assert.Error(t, err)
}
