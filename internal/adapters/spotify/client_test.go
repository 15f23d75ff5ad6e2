package spotify_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ewilliams-labs/tastemap/internal/adapters/spotify"
	"github.com/ewilliams-labs/tastemap/internal/core/domain"
	"github.com/ewilliams-labs/tastemap/internal/core/ports"
)

// --- Helpers ---

func testOptions(baseURL string) spotify.Options {
	opts := spotify.DefaultOptions()
	opts.BaseURL = baseURL
	opts.MaxRetries = 1
	opts.RequestsPerSecond = 0
	opts.BreakerFailures = 0
	return opts
}

func trackJSON(id, name, artist string) string {
	return fmt.Sprintf(`{"id":%q,"name":%q,"type":"track","duration_ms":200000,"artists":[{"id":"a-%s","name":%q}],"album":{"name":"Album"},"external_ids":{"isrc":"ISRC-%s"}}`,
		id, name, id, artist, id)
}

func page(next bool, items ...string) string {
	nextField := "null"
	if next {
		nextField = `"more"`
	}
	return fmt.Sprintf(`{"items":[%s],"next":%s,"total":0}`, strings.Join(items, ","), nextField)
}

func item(track string) string {
	return `{"track":` + track + `}`
}

func compareIDs(t *testing.T, got, want []string) {
	t.Helper()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("ids: got %v, want %v", got, want)
	}
}

// --- Tests ---

func TestLibraryPaging(t *testing.T) {
	var offsets []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/me/tracks" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("limit"); got != "2" {
			t.Errorf("limit: got %s, want 2", got)
		}
		offset := r.URL.Query().Get("offset")
		offsets = append(offsets, offset)

		switch offset {
		case "0":
			fmt.Fprint(w, page(true, item(trackJSON("t1", "One", "A")), item(trackJSON("t2", "Two", "B"))))
		case "2":
			fmt.Fprint(w, page(false,
				item(trackJSON("t3", "Three", "C")),
				`{"track":{"id":"local","name":"Demo","is_local":true}}`,
			))
		default:
			t.Errorf("unexpected offset %s", offset)
		}
	}))
	defer ts.Close()

	opts := testOptions(ts.URL)
	opts.LibraryPageSize = 2
	client := spotify.NewClient(http.DefaultClient, opts)

	lib, err := client.Library(context.Background())
	if err != nil {
		t.Fatalf("Library: %v", err)
	}

	compareIDs(t, lib.IDs(), []string{"t1", "t2", "t3"})
	compareIDs(t, offsets, []string{"0", "2"})

	got, _ := lib.Get("t2")
	if got.Title != "Two" || got.ArtistNames() != "B" || got.ISRC != "ISRC-t2" || got.DurationMs != 200000 {
		t.Errorf("unexpected mapping: %+v", got)
	}
	if got.Features != nil {
		t.Errorf("features should not be resolved while paging")
	}
}

func TestPlaylistTracks(t *testing.T) {
	tests := []struct {
		name     string
		ref      domain.PlaylistRef
		wantBase string
	}{
		{
			name:     "bare id",
			ref:      domain.PlaylistRef{ID: "pl1"},
			wantBase: "/playlists/pl1",
		},
		{
			name:     "with owner",
			ref:      domain.PlaylistRef{Owner: "alice", ID: "pl1"},
			wantBase: "/users/alice/playlists/pl1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				switch r.URL.Path {
				case tt.wantBase:
					if r.URL.Query().Get("fields") == "" {
						t.Errorf("metadata request should restrict fields")
					}
					fmt.Fprint(w, `{"id":"pl1","name":"Road Trip","owner":{"id":"alice"}}`)
				case tt.wantBase + "/tracks":
					fmt.Fprint(w, page(false,
						item(trackJSON("t1", "One", "A")),
						`{"track":null}`,
						`{"track":{"id":"ep1","name":"Episode","type":"episode"}}`,
						item(trackJSON("t2", "Two", "B")),
					))
				default:
					t.Errorf("unexpected path %s", r.URL.Path)
					w.WriteHeader(http.StatusNotFound)
				}
			}))
			defer ts.Close()

			client := spotify.NewClient(http.DefaultClient, testOptions(ts.URL))
			pl, err := client.PlaylistTracks(context.Background(), tt.ref)
			if err != nil {
				t.Fatalf("PlaylistTracks: %v", err)
			}
			if pl.Name != "Road Trip" {
				t.Errorf("name: got %q", pl.Name)
			}
			if pl.Ref != tt.ref {
				t.Errorf("ref: got %v, want %v", pl.Ref, tt.ref)
			}
			compareIDs(t, pl.Tracks.IDs(), []string{"t1", "t2"})
		})
	}
}

func TestPlaylistTracksNotFound(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	client := spotify.NewClient(http.DefaultClient, testOptions(ts.URL))
	_, err := client.PlaylistTracks(context.Background(), domain.PlaylistRef{ID: "missing"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAudioFeatures(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio-features" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("ids"); got != "t1,t2,t3" {
			t.Errorf("ids: got %s", got)
		}
		fmt.Fprint(w, `{"audio_features":[
			{"id":"t1","uri":"spotify:track:t1","energy":0.8,"tempo":120.5,"valence":null},
			null,
			{"id":"t3","danceability":0.4}
		]}`)
	}))
	defer ts.Close()

	client := spotify.NewClient(http.DefaultClient, testOptions(ts.URL))
	got, err := client.AudioFeatures(context.Background(), []string{"t1", "t2", "t3"})
	if err != nil {
		t.Fatalf("AudioFeatures: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(got))
	}
	if _, ok := got["t2"]; ok {
		t.Errorf("null entry should be omitted")
	}

	t1 := got["t1"]
	if v, ok := t1.Value(domain.AttrEnergy); !ok || v != 0.8 {
		t.Errorf("energy: got %v %v", v, ok)
	}
	if v, ok := t1.Value(domain.AttrTempo); !ok || v != 120.5 {
		t.Errorf("tempo: got %v %v", v, ok)
	}
	if _, ok := t1.Value(domain.AttrValence); ok {
		t.Errorf("null valence should be missing")
	}
	if t1.Extra["uri"] != "spotify:track:t1" {
		t.Errorf("extra keys should be kept, got %v", t1.Extra)
	}
}

func TestAudioFeaturesBatchLimit(t *testing.T) {
	client := spotify.NewClientWithBaseURL(http.DefaultClient, "http://127.0.0.1:1")

	ids := make([]string, 101)
	for i := range ids {
		ids[i] = fmt.Sprintf("t%d", i)
	}
	if _, err := client.AudioFeatures(context.Background(), ids); err == nil {
		t.Fatal("expected an error for an oversized batch")
	}

	got, err := client.AudioFeatures(context.Background(), nil)
	if err != nil || len(got) != 0 {
		t.Fatalf("empty batch: got %v, %v", got, err)
	}
}

func TestGetTrackByMetadata(t *testing.T) {
	tests := []struct {
		name      string
		title     string
		artist    string
		search    string
		wantID    string
		wantMatch bool
	}{
		{
			name:      "confident match",
			title:     "Happy",
			artist:    "Pharrell Williams",
			search:    `{"tracks":{"items":[` + trackJSON("h1", "Happy", "Pharrell Williams") + `]}}`,
			wantID:    "h1",
			wantMatch: true,
		},
		{
			name:      "remastered title still matches",
			title:     "Blinding Lights",
			artist:    "The Weeknd",
			search:    `{"tracks":{"items":[` + trackJSON("bl", "Blinding Lights (Remastered 2020)", "The Weeknd") + `]}}`,
			wantID:    "bl",
			wantMatch: true,
		},
		{
			name:   "no results",
			title:  "Happy",
			artist: "Pharrell Williams",
			search: `{"tracks":{"items":[]}}`,
		},
		{
			name:   "only poor candidates",
			title:  "Happy",
			artist: "Pharrell Williams",
			search: `{"tracks":{"items":[` + trackJSON("x", "Sad Song", "Other Artist") + `]}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				switch r.URL.Path {
				case "/search":
					if r.URL.Query().Get("type") != "track" {
						t.Errorf("expected a track search")
					}
					fmt.Fprint(w, tt.search)
				case "/audio-features":
					fmt.Fprintf(w, `{"audio_features":[{"id":%q,"energy":0.5}]}`, r.URL.Query().Get("ids"))
				default:
					t.Errorf("unexpected path %s", r.URL.Path)
				}
			}))
			defer ts.Close()

			client := spotify.NewClient(http.DefaultClient, testOptions(ts.URL))
			track, err := client.GetTrackByMetadata(context.Background(), tt.title, tt.artist)

			if !tt.wantMatch {
				if !errors.Is(err, ports.ErrNoConfidentMatch) {
					t.Fatalf("expected ErrNoConfidentMatch, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("GetTrackByMetadata: %v", err)
			}
			if track.ID != tt.wantID {
				t.Errorf("id: got %s, want %s", track.ID, tt.wantID)
			}
			if v, ok := track.Features.Value(domain.AttrEnergy); !ok || v != 0.5 {
				t.Errorf("features should be attached, got %v %v", v, ok)
			}
		})
	}
}

func TestGetArtistTopTracks(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search":
			if r.URL.Query().Get("type") != "artist" {
				t.Errorf("expected an artist search")
			}
			fmt.Fprint(w, `{"artists":{"items":[{"id":"art1","name":"Daft Punk"}]}}`)
		case "/artists/art1/top-tracks":
			if r.URL.Query().Get("market") != "US" {
				t.Errorf("market: got %q", r.URL.Query().Get("market"))
			}
			fmt.Fprint(w, `{"tracks":[`+trackJSON("d1", "One More Time", "Daft Punk")+`,`+trackJSON("d2", "Aerodynamic", "Daft Punk")+`]}`)
		case "/audio-features":
			fmt.Fprint(w, `{"audio_features":[{"id":"d1","energy":0.7},null]}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer ts.Close()

	client := spotify.NewClient(http.DefaultClient, testOptions(ts.URL))
	tracks, err := client.GetArtistTopTracks(context.Background(), "Daft Punk")
	if err != nil {
		t.Fatalf("GetArtistTopTracks: %v", err)
	}
	if len(tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(tracks))
	}
	if tracks[0].Features == nil {
		t.Errorf("d1 should have features")
	}
	if tracks[1].Features != nil {
		t.Errorf("d2 has no analysis and should stay unresolved")
	}
}

func TestGetArtistTopTracksUnknownArtist(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"artists":{"items":[]}}`)
	}))
	defer ts.Close()

	client := spotify.NewClient(http.DefaultClient, testOptions(ts.URL))
	_, err := client.GetArtistTopTracks(context.Background(), "Nobody")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
