package stations

// Station is a saved radio station.
type Station struct {
	ID        int64
	Name      string
	StreamURL string
	ArtURL    string
	Homepage  string
	Country   string
	// RemoteID links the station to an entry in the out-of-band
	// now-playing feed. Zero means the station has no feed entry.
	RemoteID int64
	Position int
}

// defaultStations seeds a fresh database so the player is usable before the
// user adds anything.
var defaultStations = []Station{
	{
		Name:      "Nostalgia OST",
		StreamURL: "https://radio.zelixo.net/listen/nostalgia_ost/stream",
		ArtURL:    "https://radio.zelixo.net/static/uploads/nostalgia_ost/album_art.1737523202.png",
		Country:   "OST",
	},
	{
		Name:      "Night City Radio",
		StreamURL: "https://radio.zelixo.net/listen/night_city_radio/ncradio",
		ArtURL:    "https://radio.zelixo.net/static/uploads/night_city_radio/album_art.1759461316.png",
		Country:   "NC",
	},
	{
		Name:      "Japan EDM",
		StreamURL: "https://radio.zelixo.net/listen/japedm/radio.flac",
		ArtURL:    "https://radio.zelixo.net/static/uploads/japedm/album_art.1744086733.jpg",
		Country:   "JP",
	},
	{
		Name:      "DJ Zel Radio",
		StreamURL: "https://radio.zelixo.net/listen/dj_zel/radio.mp3",
		ArtURL:    "https://radio.zelixo.net/static/uploads/dj_zel/album_art.1737590207.png",
		Country:   "ZL",
	},
	{
		Name:      "ACNH Radio",
		StreamURL: "https://radio.zelixo.net/listen/acnh_radio/radio.mp3",
		ArtURL:    "https://radio.zelixo.net/static/uploads/acnh_radio/album_art.1757640781.jpg",
		Country:   "AC",
	},
}
