// Package repositories implements SQLite persistence for all domain entities.
//
// Each repository handles CRUD operations with atomic sequence generation for human-readable ordering.
// Entity repositories support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
//
// Key Implementations:
//   - [UserRepository] : Accounts, username/email lookups and the follow graph
//   - [PostRepository] : Tweets, reviews and lyric cards with likes, reposts and feeds
//   - [NotificationRepository] : Per-user notifications with read tracking
//   - [FollowedArtistRepository] : Followed artists with stats derived from reviews
//   - [ConnectionRepository] : Spotify OAuth tokens per user
//   - [NowPlayingRepository] : Last observed playback per user
//
// Sequence numbers provide stable, human-readable ordering (e.g., user #42, post #15) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
