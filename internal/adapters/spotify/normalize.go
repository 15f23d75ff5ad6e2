package spotify

import (
	"strings"
	"unicode"
)

// releaseNoise are annotations a release adds to a title or credit. They never
// identify the recording, so search terms drop them.
var releaseNoise = map[string]bool{
	"clean": true, "deluxe": true, "edit": true, "edition": true,
	"explicit": true, "feat": true, "featuring": true, "ft": true,
	"live": true, "mix": true, "mono": true, "radio": true,
	"remaster": true, "remastered": true, "stereo": true, "version": true,
}

// guestSeparators split a credit into its primary artist and guests.
var guestSeparators = []string{" feat. ", " feat ", " ft. ", " ft ", " featuring ", " & ", " x ", ", "}

// searchTerms returns the title and primary artist to put in a search query.
// A term that canonicalizes to nothing falls back to the trimmed input.
func searchTerms(title, artist string) (string, string) {
	t := canonical(title)
	if t == "" {
		t = strings.TrimSpace(title)
	}
	a := canonical(primaryArtist(artist))
	if a == "" {
		a = strings.TrimSpace(artist)
	}
	return t, a
}

// primaryArtist keeps the credit up to the first guest separator. Guest
// credits are formatted inconsistently across catalogs.
func primaryArtist(artist string) string {
	lower := strings.ToLower(artist)
	cut := len(artist)
	for _, sep := range guestSeparators {
		if idx := strings.Index(lower, sep); idx > 0 && idx < cut {
			cut = idx
		}
	}
	return strings.TrimSpace(artist[:cut])
}

// canonical lower-cases s, drops bracketed segments and release noise, and
// joins the remaining words with single spaces.
func canonical(s string) string {
	words := strings.FieldsFunc(outsideBrackets(strings.ToLower(s)), isSeparator)
	kept := words[:0]
	for _, w := range words {
		if !releaseNoise[w] {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

// outsideBrackets blanks everything inside (...) and [...], nesting included.
func outsideBrackets(s string) string {
	depth := 0
	return strings.Map(func(r rune) rune {
		switch r {
		case '(', '[':
			depth++
			return ' '
		case ')', ']':
			if depth > 0 {
				depth--
			}
			return ' '
		}
		if depth > 0 {
			return -1
		}
		return r
	}, s)
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// foldSeparators replaces every non-alphanumeric rune with a space.
func foldSeparators(s string) string {
	return strings.Map(func(r rune) rune {
		if isSeparator(r) {
			return ' '
		}
		return r
	}, s)
}
