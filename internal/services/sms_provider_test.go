package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVonageServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *VonageVerifyClient {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(handler))
	t.Cleanup(server.Close)
	return NewVonageVerifyClient("key", "secret", server.URL, 5*time.Second, slog.Default())
}

func TestVonageVerifyClient_StartVerification(t *testing.T) {
	client := newVonageServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "/verify/json", r.URL.Path)
		assert.Equal(t, "key", r.PostForm.Get("api_key"))
		assert.Equal(t, "secret", r.PostForm.Get("api_secret"))
		assert.Equal(t, "+15555550100", r.PostForm.Get("number"))
		assert.Equal(t, "Carey Development", r.PostForm.Get("brand"))
		fmt.Fprint(w, `{"request_id":"abc123","status":"0"}`)
	})

	id, err := client.StartVerification(context.Background(), "+15555550100", "Carey Development")
	require.NoError(t, err)
	assert.Equal(t, "abc123", id)
}

func TestVonageVerifyClient_StartVerification_Rejected(t *testing.T) {
	client := newVonageServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"10","error_text":"Concurrent verifications to the same number are not allowed"}`)
	})

	id, err := client.StartVerification(context.Background(), "+15555550100", "Carey Development")
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestVonageVerifyClient_CheckVerification(t *testing.T) {
	tests := []struct {
		name   string
		status string
		want   bool
	}{
		{name: "accepted", status: "0", want: true},
		{name: "wrong code", status: "16", want: false},
		{name: "too many attempts", status: "17", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newVonageServer(t, func(w http.ResponseWriter, r *http.Request) {
				assert.NoError(t, r.ParseForm())
				assert.Equal(t, "/verify/check/json", r.URL.Path)
				assert.Equal(t, "abc123", r.PostForm.Get("request_id"))
				assert.Equal(t, "1234", r.PostForm.Get("code"))
				fmt.Fprintf(w, `{"request_id":"abc123","status":%q}`, tt.status)
			})

			ok, err := client.CheckVerification(context.Background(), "abc123", "1234")
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestVonageVerifyClient_CancelVerification(t *testing.T) {
	client := newVonageServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "/verify/control/json", r.URL.Path)
		assert.Equal(t, "cancel", r.PostForm.Get("cmd"))
		fmt.Fprint(w, `{"status":"19","error_text":"Verification request can't be cancelled now"}`)
	})

	assert.Error(t, client.CancelVerification(context.Background(), "abc123"))
}

func TestVonageVerifyClient_HTTPError(t *testing.T) {
	client := newVonageServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})

	_, err := client.CheckVerification(context.Background(), "abc123", "1234")
	assert.Error(t, err)
}
