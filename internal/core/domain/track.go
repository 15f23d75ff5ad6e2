package domain

import "strings"

// Artist is a contributor credited on a track.
type Artist struct {
	ID   string
	Name string
}

// Track represents a musical track in the domain layer.
type Track struct {
	ID         string
	Title      string
	Artists    []Artist
	Album      string // optional
	DurationMs int
	ISRC       string // International Standard Recording Code for matching

	// Features is nil until the attribute vector has been resolved.
	Features *AudioFeatures
}

// ArtistNames joins the credited artists for display.
func (t Track) ArtistNames() string {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

// String renders the track as "Title by Artist, Artist".
func (t Track) String() string {
	return t.Title + " by " + t.ArtistNames()
}
