// Package tasks keeps the now-playing state of MusicBlah users up to date.
//
// # Core Operations
//
// [NowPlayingEngine] implements three operations:
//
//  1. [NowPlayingEngine.Poll] : Fetch one user's playback
//     - Refreshes an expired access token before calling Spotify
//     - Refreshes once more and retries once when Spotify rejects the token
//     - Stores the playback, clearing the track when nothing plays
//
//  2. [NowPlayingEngine.FriendsListening] : Who among a user's follows is playing a track
//     - Polls followees in follow order until the limit is reached
//     - Skips users without a Spotify connection or failing polls
//
//  3. [NowPlayingEngine.Run] : Background poller
//     - Polls every connected account each interval, paced by a rate limiter
//     - Stops when the context is cancelled
//
// # Progress Reporting
//
// Polling rounds report [ProgressUpdate] values (phase, step counters, message and the polled state) over a
// channel. Updates use select with default so a slow reader never blocks polling.
package tasks
