// Package services implements the clients for the upstream APIs MusicBlah proxies.
//
// # Catalog and Player
//
// [SpotifyService] implements both [Catalog] and [Player].
// Catalog calls use an app token from the client credentials grant, cached and renewed by [oauth2.TokenSource].
// Player calls take a user's access token, obtained with [SpotifyService.Exchange] and renewed with [SpotifyService.Refresh].
//
// # Lyrics
//
// [LyricsService] queries lyrics.ovh, Vagalume, Genius and LRCLib over an [APIClient],
// which retries connection errors and 5xx answers.
// [LyricsService.Find] tries the providers in turn until one has the lyrics.
//
// # Recommendations
//
// [GeminiRecommender] asks Gemini for tracks based on a user's best reviews and resolves them through a [Catalog].
// When Gemini is unavailable it falls back to a shuffled list of popular tracks.
//
// # Errors
//
// Non-2xx upstream answers are returned as [StatusError], which unwraps to a sentinel from the shared package.
// [HTTPStatus] recovers the upstream status code.
package services
