package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPSourceCMDBPayload(t *testing.T) {
	var gotAuth, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(cmdbJSON))
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL+"/api/items", time.Second)
	src.SetHeader("Authorization", "Bearer token")

	records, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "orders", records[0].Source.Name)
	assert.Equal(t, "Server", records[1].Target.Category)

	assert.Equal(t, "Bearer token", gotAuth)
	assert.Contains(t, gotAccept, "application/json")
}

func TestHTTPSourceYAML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write([]byte(flatYAML))
	}))
	defer srv.Close()

	records, err := NewHTTPSource(srv.URL, time.Second).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "RUNS_ON", records[0].Kind)
}

func TestHTTPSourceStatus(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		notFound bool
	}{
		{"not found", http.StatusNotFound, true},
		{"server error", http.StatusInternalServerError, false},
		{"unauthorized", http.StatusUnauthorized, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := NewHTTPSource(srv.URL, time.Second).Load(context.Background())
			require.Error(t, err)
			assert.Equal(t, tt.notFound, errors.Is(err, ErrNotFound))
		})
	}
}

func TestHTTPSourceTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewHTTPSource(srv.URL, 20*time.Millisecond).Load(context.Background())
	assert.Error(t, err)
}

func TestHTTPSourceBadPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data": 42}`))
	}))
	defer srv.Close()

	_, err := NewHTTPSource(srv.URL, time.Second).Load(context.Background())
	var srcErr *Error
	require.True(t, errors.As(err, &srcErr))
	assert.Equal(t, "decode", srcErr.Op)
}

func TestFormatFromContentType(t *testing.T) {
	assert.Equal(t, FormatYAML, formatFromContentType("text/yaml", "/x"))
	assert.Equal(t, FormatJSON, formatFromContentType("application/json", "/x.yaml"))
	assert.Equal(t, FormatYAML, formatFromContentType("text/plain", "/export/relations.yml"))
	assert.Equal(t, FormatJSON, formatFromContentType("", "/api/items"))
}
