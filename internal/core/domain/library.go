package domain

// Library is a collection of tracks keyed by id. Iteration follows first
// insertion; re-inserting an id replaces the track in place.
type Library struct {
	order  []string
	tracks map[string]Track
}

// NewLibrary returns an empty library.
func NewLibrary() *Library {
	return &Library{tracks: make(map[string]Track)}
}

// LibraryOf builds a library from tracks, applying last-write-wins.
func LibraryOf(tracks ...Track) *Library {
	l := NewLibrary()
	for _, t := range tracks {
		l.Put(t)
	}
	return l
}

// Put inserts or replaces a track. Tracks without an id are ignored.
func (l *Library) Put(t Track) {
	if t.ID == "" {
		return
	}
	if _, exists := l.tracks[t.ID]; !exists {
		l.order = append(l.order, t.ID)
	}
	l.tracks[t.ID] = t
}

// Get returns the track stored under id.
func (l *Library) Get(id string) (Track, bool) {
	t, ok := l.tracks[id]
	return t, ok
}

// SetFeatures attaches a resolved vector to a stored track.
func (l *Library) SetFeatures(id string, f *AudioFeatures) bool {
	t, ok := l.tracks[id]
	if !ok {
		return false
	}
	t.Features = f
	l.tracks[id] = t
	return true
}

// Len returns the number of tracks.
func (l *Library) Len() int {
	if l == nil {
		return 0
	}
	return len(l.order)
}

// IDs returns the track ids in iteration order.
func (l *Library) IDs() []string {
	if l == nil {
		return nil
	}
	ids := make([]string, len(l.order))
	copy(ids, l.order)
	return ids
}

// Tracks returns the tracks in iteration order.
func (l *Library) Tracks() []Track {
	if l == nil {
		return nil
	}
	out := make([]Track, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.tracks[id])
	}
	return out
}

// Unresolved returns the ids whose attribute vector is still nil.
func (l *Library) Unresolved() []string {
	if l == nil {
		return nil
	}
	var ids []string
	for _, id := range l.order {
		if l.tracks[id].Features == nil {
			ids = append(ids, id)
		}
	}
	return ids
}
