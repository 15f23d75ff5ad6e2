package spotify

import "testing"

func TestCanonical(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bracketed remaster note", "Blinding Lights (Remastered 2020)", "blinding lights"},
		{"dash suffix", "Song Title - Live", "song title"},
		{"digits survive", "Symphony No. 5", "symphony no 5"},
		{"guest token", "Artist feat. Someone", "artist someone"},
		{"accented letters", "Déjà Vu [Deluxe Edition]", "déjà vu"},
		{"nested brackets", "Intro (Part (2)) Outro", "intro outro"},
		{"text after bracket", "Half(way)there", "half there"},
		{"only noise", "(Live)", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := canonical(tt.input); got != tt.want {
				t.Fatalf("canonical(%q): got %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSearchTerms(t *testing.T) {
	title, artist := searchTerms("Levitating (feat. DaBaby)", "Dua Lipa & DaBaby")
	if title != "levitating" || artist != "dua lipa" {
		t.Fatalf("searchTerms: got %q / %q", title, artist)
	}

	// Inputs made only of noise are searched verbatim.
	title, artist = searchTerms(" (Live) ", "Remastered")
	if title != "(Live)" || artist != "Remastered" {
		t.Fatalf("searchTerms fallback: got %q / %q", title, artist)
	}
}
