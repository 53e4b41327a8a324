// Package web is the MusicBlah JSON API.
//
// [App] owns the repositories, upstream services and the now-playing engine, and registers every route on a
// [server.Router]. Handlers answer JSON only; errors are written as {"error": "..."} with the status picked by
// statusFor, plus the extra fields the client reads on some routes (isPlaying, needsRefresh, lyrics, genres).
//
// Authentication uses bearer session tokens from [session.Manager]. Routes that act on behalf of a user
// require one; read routes accept one optionally to fill viewer-specific fields.
package web
