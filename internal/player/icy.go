package player

import (
	"bufio"
	"io"
	"strings"
)

// maxMetaBytes is the largest ICY metadata block the protocol allows
// (length byte * 16).
const maxMetaBytes = 255 * 16

// icyReader strips ICY metadata blocks out of a shoutcast stream, passing
// the audio bytes through and reporting title changes via onTitle. With a
// metadata interval of zero it is a plain pass-through.
type icyReader struct {
	src       *bufio.Reader
	metaint   int
	remaining int
	onTitle   func(string)
	lastTitle string
}

func newICYReader(src io.Reader, metaint int, onTitle func(string)) *icyReader {
	return &icyReader{
		src:       bufio.NewReader(src),
		metaint:   metaint,
		remaining: metaint,
		onTitle:   onTitle,
	}
}

func (r *icyReader) Read(p []byte) (int, error) {
	if r.metaint <= 0 {
		return r.src.Read(p)
	}
	if r.remaining == 0 {
		if err := r.readMetaBlock(); err != nil {
			return 0, err
		}
		r.remaining = r.metaint
	}
	if len(p) > r.remaining {
		p = p[:r.remaining]
	}
	n, err := r.src.Read(p)
	r.remaining -= n
	return n, err
}

func (r *icyReader) readMetaBlock() error {
	lengthByte, err := r.src.ReadByte()
	if err != nil {
		return err
	}
	metaLen := int(lengthByte) * 16
	if metaLen == 0 {
		return nil
	}
	if metaLen > maxMetaBytes {
		_, err := io.CopyN(io.Discard, r.src, int64(metaLen))
		return err
	}
	meta := make([]byte, metaLen)
	if _, err := io.ReadFull(r.src, meta); err != nil {
		return err
	}
	title := parseICYTitle(string(meta))
	if title != "" && title != r.lastTitle {
		r.lastTitle = title
		if r.onTitle != nil {
			r.onTitle(title)
		}
	}
	return nil
}

// parseICYTitle extracts the track title from an ICY metadata block.
// StreamTitle is the standard key; some AzuraCast mounts send SongTitle
// instead, so both are checked and the first non-empty value wins.
func parseICYTitle(meta string) string {
	for _, key := range []string{"StreamTitle", "SongTitle"} {
		if value := icyValue(meta, key); value != "" {
			return value
		}
	}
	return ""
}

func icyValue(meta, key string) string {
	marker := key + "='"
	start := strings.Index(meta, marker)
	if start < 0 {
		return ""
	}
	start += len(marker)
	end := strings.Index(meta[start:], "';")
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(meta[start : start+end])
}
