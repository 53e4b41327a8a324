package models

// SearchItemType tags search results.
type SearchItemType string

const (
	ItemTrack SearchItemType = "track"
	ItemAlbum SearchItemType = "album"
)

// SearchResult is a track or an album returned by catalog search.
type SearchResult struct {
	Type          SearchItemType `json:"type"`
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Artist        string         `json:"artist"`
	ArtistID      string         `json:"artistId"`
	Image         string         `json:"image"`
	Album         string         `json:"album,omitempty"`
	Duration      string         `json:"duration,omitempty"`
	PreviewURL    string         `json:"previewUrl,omitempty"`
	Year          string         `json:"year,omitempty"`
	URL           string         `json:"url,omitempty"`
	TotalTracks   int            `json:"totalTracks,omitempty"`
	IsIndependent bool           `json:"isIndependent"`
	Popularity    int            `json:"popularity,omitempty"`
}

// Artist is a catalog artist profile.
type Artist struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Image          string   `json:"image,omitempty"`
	Genres         []string `json:"genres"`
	Popularity     int      `json:"popularity"`
	FollowersCount int      `json:"followersCount"`
	SpotifyURL     string   `json:"spotifyUrl"`
}

// TopTrack is one of an artist's most played tracks.
type TopTrack struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Image      string `json:"image,omitempty"`
	PreviewURL string `json:"previewUrl,omitempty"`
	DurationMs int    `json:"durationMs"`
	Popularity int    `json:"popularity"`
	AlbumName  string `json:"albumName"`
}

// ArtistAlbum is an entry of an artist's discography.
type ArtistAlbum struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Image       string `json:"image,omitempty"`
	ReleaseDate string `json:"releaseDate"`
	TotalTracks int    `json:"totalTracks"`
	AlbumType   string `json:"albumType"`
	SpotifyURL  string `json:"spotifyUrl"`
	ArtistID    string `json:"artistId"`
}

// AlbumPage is one page of an artist's discography.
type AlbumPage struct {
	Albums  []ArtistAlbum `json:"albums"`
	Total   int           `json:"total"`
	HasMore bool          `json:"hasMore"`
}

// GenreCount is how many of a set of artists share a genre.
type GenreCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// TrendTrack is an entry of the trending playlist.
type TrendTrack struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Artist     string `json:"artist"`
	Image      string `json:"image,omitempty"`
	URL        string `json:"url"`
	PreviewURL string `json:"previewUrl,omitempty"`
}

// ExploreArtist is an artist card on the explore page.
type ExploreArtist struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Username   string `json:"username"`
	Listeners  string `json:"listeners"`
	Image      string `json:"image,omitempty"`
	Popularity int    `json:"popularity"`
}

// Recommendation is a suggested catalog track.
type Recommendation struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Artist     string `json:"artist"`
	ArtistID   string `json:"artistId"`
	Image      string `json:"image"`
	Album      string `json:"album"`
	Duration   string `json:"duration"`
	PreviewURL string `json:"previewUrl,omitempty"`
	URL        string `json:"url"`
	Reason     string `json:"reason"`
}

// LyricsResult is the answer of a lyrics provider.
//
// Lyrics is nil when the provider knows the song but has no lyrics for it.
type LyricsResult struct {
	Lyrics       *string `json:"lyrics"`
	Source       string  `json:"source"`
	SyncedLyrics string  `json:"syncedLyrics,omitempty"`
	Artist       string  `json:"artist,omitempty"`
	Track        string  `json:"track,omitempty"`
	URL          string  `json:"url,omitempty"`
	Translation  string  `json:"translation,omitempty"`
	GeniusURL    string  `json:"geniusUrl,omitempty"`
	Thumbnail    string  `json:"thumbnail,omitempty"`
	Message      string  `json:"message,omitempty"`
}
