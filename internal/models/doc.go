// Package models defines domain entities and persistence interfaces for the MusicBlah social music service.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs representing catalog and provider data
//   - [CatalogTrack], [CatalogAlbum] : Search results from the music catalog
//   - [Artist], [TopTrack], [ArtistAlbum] : Artist page data
//   - [TrendTrack], [ExploreArtist], [GenreCount] : Discovery data
//   - [Recommendation] : A suggested track with the reason it was suggested
//   - [LyricsResult] : Lyrics from one of the lyrics providers
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [User] : Accounts with profile data and a password hash
//   - [Post] : Tweets, reviews and lyric cards
//   - [Notification] : Activity addressed to a user
//   - [FollowedArtist] : An artist a user follows, with stats derived from their reviews
//   - [SpotifyConnection] : Per-user Spotify OAuth tokens
//   - [NowPlaying] : The last observed playback state of a user
//
// Entities embedding [Record] implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
