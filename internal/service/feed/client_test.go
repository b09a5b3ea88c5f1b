package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/app-updater/internal/service/common"
)

// TestClient_Fetch serves a feed over HTTP and checks the User-Agent and parsed records.
func TestClient_Fetch(t *testing.T) {
	t.Parallel()

	userAgents := make(chan string, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgents <- r.Header.Get("User-Agent")

		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer server.Close()

	httpClient, err := common.NewHTTPClient(common.WithUserAgent("app-updater/1.0.0.0"))
	require.NoError(t, err)

	client := NewClient(httpClient, WithTimeout(5*time.Second))

	records, err := client.Fetch(context.Background(), server.URL+"/release.xml")
	require.NoError(t, err)
	require.Len(t, records, 4)
	require.Equal(t, "app-updater/1.0.0.0", <-userAgents)
}

// TestClient_Fetch_TransportErrors covers bad status and unreachable servers.
func TestClient_Fetch_TransportErrors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	client := NewClient(nil)

	records, err := client.Fetch(context.Background(), server.URL)
	require.ErrorIs(t, err, ErrTransport)
	require.Nil(t, records)

	server.Close()

	records, err = client.Fetch(context.Background(), server.URL)
	require.ErrorIs(t, err, ErrTransport)
	require.Nil(t, records)
}
