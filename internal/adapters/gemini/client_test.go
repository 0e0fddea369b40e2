package gemini

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"paperQuantBot/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(Config{BaseURL: server.URL, Logger: &mockLogger{}})
	require.NoError(t, err)
	return client
}

func TestClient_GenerateSuccess(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-2.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"action\": \"CONTINUE\"}"}]}}]}`))
	})

	text, err := client.Generate(context.Background(), "test-key", "gemini-2.5-flash", "review these trades")
	require.NoError(t, err)
	assert.Equal(t, `{"action": "CONTINUE"}`, text)
}

func TestClient_GenerateErrorClassification(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{
			name:    "model not found",
			status:  http.StatusNotFound,
			body:    `{"error":{"code":404,"status":"NOT_FOUND","message":"model not found"}}`,
			wantErr: ports.ErrModelUnavailable,
		},
		{
			name:    "rate limited",
			status:  http.StatusTooManyRequests,
			body:    `{"error":{"code":429,"status":"RESOURCE_EXHAUSTED","message":"quota exceeded"}}`,
			wantErr: ports.ErrRateLimited,
		},
		{
			name:    "quota message without 429 status",
			status:  http.StatusForbidden,
			body:    `{"error":{"code":403,"status":"PERMISSION_DENIED","message":"Quota exhausted for this project"}}`,
			wantErr: ports.ErrRateLimited,
		},
		{
			name:    "server error",
			status:  http.StatusInternalServerError,
			body:    `{"error":{"code":500,"status":"INTERNAL","message":"internal error"}}`,
			wantErr: ports.ErrUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := client.Generate(context.Background(), "k", "gemini-2.5-flash", "prompt")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "expected %v, got %v", tt.wantErr, err)
		})
	}
}

func TestClient_GenerateEmptyCandidates(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[]}`))
	})

	_, err := client.Generate(context.Background(), "k", "gemini-2.5-flash", "prompt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrEmptyResponse))
}
