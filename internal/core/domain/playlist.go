package domain

import (
	"errors"
	"strings"
)

// ErrNotFound indicates the requested playlist or library is not stored.
var ErrNotFound = errors.New("domain: not found")

// PlaylistRef names a playlist by owner and id. Owner may be empty.
type PlaylistRef struct {
	Owner string
	ID    string
}

// ParsePlaylistRef accepts "owner/id", a bare id, or a spotify:playlist URI.
func ParsePlaylistRef(owner, id string) (PlaylistRef, error) {
	id = strings.TrimSpace(id)
	id = strings.TrimPrefix(id, "spotify:playlist:")
	id = strings.TrimPrefix(id, "https://open.spotify.com/playlist/")
	if i := strings.IndexByte(id, '?'); i >= 0 {
		id = id[:i]
	}
	if i := strings.LastIndex(id, "/"); i >= 0 && owner == "" {
		owner, id = id[:i], id[i+1:]
	}
	if id == "" {
		return PlaylistRef{}, errors.New("domain: playlist id is required")
	}
	return PlaylistRef{Owner: strings.TrimSpace(owner), ID: id}, nil
}

// String renders the ref as "owner/id" or "id".
func (r PlaylistRef) String() string {
	if r.Owner == "" {
		return r.ID
	}
	return r.Owner + "/" + r.ID
}

// Playlist is a named, ordered collection of tracks.
type Playlist struct {
	Ref    PlaylistRef
	Name   string
	Tracks *Library
}

// NewPlaylist validates its arguments and returns an empty playlist.
func NewPlaylist(ref PlaylistRef, name string) (*Playlist, error) {
	if ref.ID == "" {
		return nil, errors.New("domain: invalid argument")
	}
	return &Playlist{
		Ref:    ref,
		Name:   name,
		Tracks: NewLibrary(),
	}, nil
}
