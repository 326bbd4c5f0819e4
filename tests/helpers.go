package tests

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/lithammer/shortuuid/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseURL = "http://localhost:8080"

func waitForHttpServer(t *testing.T) {
	t.Helper()

	require.EventuallyWithT(
		t,
		func(t *assert.CollectT) {
			resp, err := http.Get(baseURL + "/health")
			if err != nil {
				t.Errorf("health check failed: %v", err)
				return
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				t.Errorf("health check returned %d", resp.StatusCode)
			}
		},
		10*time.Second,
		100*time.Millisecond,
	)
}

func postJSON(t *testing.T, path string, body any, wantStatus int) []byte {
	t.Helper()
	return doJSON(t, http.MethodPost, path, body, wantStatus)
}

func putJSON(t *testing.T, path string, body any, wantStatus int) []byte {
	t.Helper()
	return doJSON(t, http.MethodPut, path, body, wantStatus)
}

func doJSON(t *testing.T, method, path string, body any, wantStatus int) []byte {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(method, baseURL+path, bytes.NewBuffer(payload))
	require.NoError(t, err)

	req.Header.Set("Correlation-ID", shortuuid.New())
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equalf(t, wantStatus, resp.StatusCode, "%s %s: %s", method, path, raw)

	return raw
}
