// Package server provides HTTP routing, middleware, and the Spotify OAuth callback for the MusicBlah API.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation registers "METHOD /path" patterns on an [http.ServeMux], so path wildcards
// are available through [http.Request.PathValue].
//
// # Middleware
//
//   - [Logging] writes one line per request
//   - [Recover] turns panics into 500 responses
//   - [CORS] allows the configured browser origins
//   - [RateLimit] applies a token bucket per client address
//   - [RequireUser] and [OptionalUser] verify session tokens and store the user ID, see [UserID]
//
// # OAuth Callback Handler
//
// [OAuthHandler] completes the Spotify authorization code flow. The state parameter is a signed, short-lived
// token naming the user, so the handler knows whom the tokens belong to and stores them server-side before
// redirecting to /home?spotify_connected=true or /home?spotify_error=<reason>.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
