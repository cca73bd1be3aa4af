package nowplaying

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHTTPProviderReturnsTrack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"artist": "Boards of Canada", "title": "Roygbiv"}`))
	}))
	defer server.Close()

	p := NewHTTPProvider(server.URL, time.Second, nil)

	track, ok := p.NowPlaying(context.Background())
	assert.True(t, ok)
	assert.Equal(t, "Boards of Canada", track.Artist)
	assert.Equal(t, "Roygbiv", track.Title)
	assert.Equal(t, "Boards of Canada - Roygbiv", track.Label())
}

func TestHTTPProviderDegradesOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	p := NewHTTPProvider(server.URL, time.Second, nil)

	_, ok := p.NowPlaying(context.Background())
	assert.False(t, ok)
}

func TestHTTPProviderDegradesWhenUnreachable(t *testing.T) {
	p := NewHTTPProvider("http://127.0.0.1:1/nowplaying", 200*time.Millisecond, nil)

	_, ok := p.NowPlaying(context.Background())
	assert.False(t, ok)
}

func TestHTTPProviderBlankFields(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantOK    bool
		wantTrack Track
	}{
		{"both blank", `{"artist": "", "title": ""}`, false, Track{}},
		{"blank artist", `{"artist": "", "title": "Roygbiv"}`, true, Track{Artist: "Unknown", Title: "Roygbiv"}},
		{"blank title", `{"artist": "Boards of Canada", "title": ""}`, true, Track{Artist: "Boards of Canada", Title: "Unknown"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			p := NewHTTPProvider(server.URL, time.Second, nil)

			track, ok := p.NowPlaying(context.Background())
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantTrack, track)
			}
		})
	}
}
