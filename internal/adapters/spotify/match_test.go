package spotify

import "testing"

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want int
	}{
		{
			name: "kitten sitting",
			a:    "kitten",
			b:    "sitting",
			want: 3,
		},
		{
			name: "empty to word",
			a:    "",
			b:    "sound",
			want: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := levenshteinDistance(tt.a, tt.b)
			if got != tt.want {
				t.Fatalf("distance: got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTrackMatchScore(t *testing.T) {
	tests := []struct {
		name   string
		title  string
		artist string
		track  spotifyTrack
		wantOK bool
	}{
		{
			name:   "matches remastered title",
			title:  "Happy",
			artist: "Pharrell Williams",
			track: spotifyTrack{
				Name: "Happy (Remastered 2014)",
				Artists: []spotifyArtist{{Name: "Pharrell Williams"}},
			},
			wantOK: true,
		},
		{
			name:   "rejects different track",
			title:  "Happy",
			artist: "Pharrell Williams",
			track: spotifyTrack{
				Name: "Sad Song",
				Artists: []spotifyArtist{{Name: "Other Artist"}},
			},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, got := trackMatchScore(tt.title, tt.artist, tt.track)
			if got != tt.wantOK {
				t.Fatalf("match: got %v, want %v", got, tt.wantOK)
			}
		})
	}
}

func TestScoreResult(t *testing.T) {
	tests := []struct {
		name         string
		targetArtist string
		targetTitle  string
		actualArtist string
		actualTitle  string
		wantAbove    float64
		wantBelow    float64
	}{
		{
			name:         "identical after normalization",
			targetArtist: "Queen",
			targetTitle:  "Bohemian Rhapsody",
			actualArtist: "Queen",
			actualTitle:  "Bohemian Rhapsody - Remastered 2011",
			wantAbove:    0.99,
			wantBelow:    1.01,
		},
		{
			name:         "unrelated",
			targetArtist: "Queen",
			targetTitle:  "Bohemian Rhapsody",
			actualArtist: "Miles Davis",
			actualTitle:  "So What",
			wantAbove:    -0.01,
			wantBelow:    searchMatchThreshold,
		},
		{
			name:         "empty target",
			actualArtist: "Queen",
			actualTitle:  "Bohemian Rhapsody",
			wantAbove:    -0.01,
			wantBelow:    0.01,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScoreResult(tt.targetArtist, tt.targetTitle, tt.actualArtist, tt.actualTitle)
			if got <= tt.wantAbove || got >= tt.wantBelow {
				t.Fatalf("score: got %v, want in (%v, %v)", got, tt.wantAbove, tt.wantBelow)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"  Hey Jude (Live) ":                  "hey jude",
		"Bohemian Rhapsody - Remastered 2011": "bohemian rhapsody",
		"Song [Deluxe Edition] (Live)":        "song",
		"":                                    "",
	}
	for input, want := range tests {
		if got := Normalize(input); got != want {
			t.Errorf("Normalize(%q): got %q, want %q", input, got, want)
		}
	}
}

func TestPrimaryArtist(t *testing.T) {
	tests := map[string]string{
		"Daft Punk":                       "Daft Punk",
		"Calvin Harris feat. Rihanna":     "Calvin Harris",
		"Simon & Garfunkel":               "Simon",
		"Tyler, The Creator":              "Tyler",
		"Pharrell Williams ft. Daft Punk": "Pharrell Williams",
	}
	for input, want := range tests {
		if got := primaryArtist(input); got != want {
			t.Errorf("primaryArtist(%q): got %q, want %q", input, got, want)
		}
	}
}
