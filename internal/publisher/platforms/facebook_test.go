package platforms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFacebookPublishTextPost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me/feed", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "tok", r.PostForm.Get("access_token"))
		assert.Equal(t, "hello", r.PostForm.Get("message"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"page_123"}`))
	}))
	defer server.Close()

	adapter := NewFacebookAdapter()
	adapter.BaseURL = server.URL
	adapter.Client = server.Client()

	result, err := adapter.Publish(context.Background(), "tok", "hello", "")
	require.NoError(t, err)
	assert.Equal(t, "facebook", result.Platform)
	assert.Equal(t, "page_123", result.RemoteID)
}

func TestFacebookPublishImageUsesPhotosEdge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me/photos", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "https://img.example/pic.png", r.PostForm.Get("url"))
		assert.Equal(t, "hello", r.PostForm.Get("caption"))
		assert.Empty(t, r.PostForm.Get("message"))

		w.Write([]byte(`{"id":"photo_9"}`))
	}))
	defer server.Close()

	adapter := NewFacebookAdapter()
	adapter.BaseURL = server.URL
	adapter.Client = server.Client()

	result, err := adapter.Publish(context.Background(), "tok", "hello", "https://img.example/pic.png")
	require.NoError(t, err)
	assert.Equal(t, "photo_9", result.RemoteID)
}

func TestFacebookPublishAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Invalid OAuth access token"}}`))
	}))
	defer server.Close()

	adapter := NewFacebookAdapter()
	adapter.BaseURL = server.URL
	adapter.Client = server.Client()

	_, err := adapter.Publish(context.Background(), "bad", "hello", "")
	require.Error(t, err)

	var pubErr *PublishError
	require.ErrorAs(t, err, &pubErr)
	assert.Equal(t, http.StatusBadRequest, pubErr.StatusCode)
	assert.Contains(t, pubErr.Message, "Invalid OAuth access token")
}
