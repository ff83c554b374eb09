package ipc

// Control tokens accepted over the socket. Each connection carries exactly
// one token and receives no reply; the effect is observable through the
// daemon's output surfaces.
const (
	TokenPlayPause   = "play-pause"
	TokenNextStation = "next-station"
	TokenPrevStation = "prev-station"
	TokenIdentify    = "identify"
)

// KnownToken reports whether token is one of the control tokens.
func KnownToken(token string) bool {
	switch token {
	case TokenPlayPause, TokenNextStation, TokenPrevStation, TokenIdentify:
		return true
	}
	return false
}
