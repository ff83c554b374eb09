package textutil

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	titleToken      = `text="`
	artistSeparator = ` - text="`
)

// NormalizeStreamTitle cleans a raw inband stream title for display.
//
// Some broadcasters emit a structured record instead of a plain
// "Artist - Title" string, e.g.
//
//	Artist Name - text="Song Title" song_spot="M" MediaBaseId="0"
//
// When a text="..." token is present the quoted value is taken as the title;
// any non-empty prefix before ` - text="` is treated as the artist and the
// two are reassembled as "Artist - Title". Strings without the token pass
// through unchanged. The function never fails; malformed records fall back
// to the raw input.
func NormalizeStreamTitle(raw string) string {
	idx := strings.Index(raw, titleToken)
	if idx < 0 {
		return raw
	}

	rest := raw[idx+len(titleToken):]
	end := strings.Index(rest, `"`)
	if end < 0 {
		return raw
	}
	title := rest[:end]

	artist := ""
	if sep := strings.Index(raw, artistSeparator); sep > 0 {
		artist = strings.TrimSpace(raw[:sep])
	}
	if artist != "" {
		return clean(artist + " - " + title)
	}
	return clean(title)
}

func clean(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
