package binding

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/h2non/gock.v1"
)

func TestClientGet(t *testing.T) {
	t.Run("snapshots a resolution response", func(tt *testing.T) {
		defer gock.Off()
		gock.New("https://resolver.example").
			Get("/1.0/identifiers/did:example:123").
			MatchHeader("Accept", MediaTypeDIDResolution).
			Reply(http.StatusOK).
			SetHeader("Content-Type", MediaTypeDIDResolution).
			BodyString(`{"didResolutionMetadata":{},"didDocument":null,"didDocumentMetadata":{}}`)

		client := NewClient(time.Second)
		resp, err := client.Get(context.Background(), Request{
			URL:    "https://resolver.example/1.0/identifiers/did:example:123",
			Accept: MediaTypeDIDResolution,
		})
		require.NoError(tt, err)
		assert.Equal(tt, http.StatusOK, resp.StatusCode)
		assert.True(tt, resp.OK())
		assert.Equal(tt, MediaTypeDIDResolution, resp.ContentType())

		body, err := resp.JSON()
		require.NoError(tt, err)
		obj, ok := body.(map[string]any)
		require.True(tt, ok)
		doc, present := obj["didDocument"]
		assert.True(tt, present)
		assert.Nil(tt, doc)
	})

	t.Run("unreachable resolver is a transport error", func(tt *testing.T) {
		defer gock.Off()
		gock.New("https://resolver.example").
			Get("/other").
			Reply(http.StatusOK)

		client := NewClient(time.Second)
		_, err := client.Get(context.Background(), Request{URL: "https://resolver.example/missing"})
		require.Error(tt, err)
		assert.True(tt, IsTransportError(err))
		assert.Contains(tt, err.Error(), "transport failure contacting")
	})

	t.Run("non json body fails to decode", func(tt *testing.T) {
		defer gock.Off()
		gock.New("https://resolver.example").
			Get("/x").
			Reply(http.StatusOK).
			BodyString("<html></html>")

		client := NewClient(time.Second)
		resp, err := client.Get(context.Background(), Request{URL: "https://resolver.example/x"})
		require.NoError(tt, err)
		_, err = resp.JSON()
		assert.Error(tt, err)
	})
}

func TestClientRedirects(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("service endpoint"))
	}))
	defer target.Close()

	resolver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", target.URL)
		w.WriteHeader(http.StatusSeeOther)
	}))
	defer resolver.Close()

	client := NewClient(time.Second)

	t.Run("manual redirect keeps the 303", func(tt *testing.T) {
		resp, err := client.Get(context.Background(), Request{URL: resolver.URL + "/did:example:123?service=files", ManualRedirect: true})
		require.NoError(tt, err)
		assert.Equal(tt, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(tt, target.URL, resp.Location())
		assert.Empty(tt, resp.Body)
	})

	t.Run("default follows the redirect", func(tt *testing.T) {
		resp, err := client.Get(context.Background(), Request{URL: resolver.URL + "/did:example:123?service=files"})
		require.NoError(tt, err)
		assert.Equal(tt, http.StatusOK, resp.StatusCode)
		assert.Equal(tt, "service endpoint", string(resp.Body))
	})
}

func TestClientBodyLimit(t *testing.T) {
	body := `{"didResolutionMetadata":{},"didDocument":null,"didDocumentMetadata":{}}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", MediaTypeDIDResolution)
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	t.Run("body at the limit is read whole", func(tt *testing.T) {
		client := NewClient(time.Second, WithMaxBodySize(int64(len(body))))
		resp, err := client.Get(context.Background(), Request{URL: server.URL})
		require.NoError(tt, err)
		assert.Equal(tt, body, string(resp.Body))
	})

	t.Run("oversized body is rejected, not truncated", func(tt *testing.T) {
		client := NewClient(time.Second, WithMaxBodySize(int64(len(body)-1)))
		resp, err := client.Get(context.Background(), Request{URL: server.URL})
		require.Error(tt, err)
		assert.Nil(tt, resp)
		assert.True(tt, IsTransportError(err))
		assert.ErrorIs(tt, err, ErrBodyTooLarge)
	})
}

func TestClientTimeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer slow.Close()

	client := NewClient(50 * time.Millisecond)
	_, err := client.Get(context.Background(), Request{URL: slow.URL})
	require.Error(t, err)
	assert.True(t, IsTransportError(err))
}

func TestWaitReady(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	client := NewClient(time.Second)
	assert.NoError(t, client.WaitReady(context.Background(), server.URL, time.Second))

	server.Close()
	err := client.WaitReady(context.Background(), server.URL, 200*time.Millisecond)
	assert.Error(t, err)
}
