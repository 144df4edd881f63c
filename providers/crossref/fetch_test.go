package crossref

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"campus-erp/config"
)

func newTestFetcher(baseURL string) *Fetcher {
	return NewFetcher(&config.Config{CrossrefBaseURL: baseURL}, zap.NewNop())
}

func TestLookupExtractsMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message": {
			"title": ["Deep Learning for Crop Yield Prediction"],
			"container-title": ["Computers and Electronics in Agriculture"],
			"publisher": "Elsevier",
			"type": "journal-article",
			"issued": {"date-parts": [[2024, 3]]}
		}}`))
	}))
	defer srv.Close()

	meta, err := newTestFetcher(srv.URL).Lookup("10.1016/j.compag.2024.0001")
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, "Deep Learning for Crop Yield Prediction", meta.Title)
	assert.Equal(t, "Computers and Electronics in Agriculture", meta.JournalName)
	assert.Equal(t, "Elsevier", meta.Publisher)
	assert.Equal(t, 2024, meta.Year)
}

func TestLookupUnknownDOIReturnsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	meta, err := newTestFetcher(srv.URL).Lookup("10.9999/does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, meta)
}

func TestLookupServerErrorFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestFetcher(srv.URL).Lookup("10.1016/whatever")
	assert.Error(t, err)
}

func TestLookupEmptyTitleReturnsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message": {"publisher": "Elsevier"}}`))
	}))
	defer srv.Close()

	meta, err := newTestFetcher(srv.URL).Lookup("10.1016/no-title")
	require.NoError(t, err)
	assert.Nil(t, meta)
}
