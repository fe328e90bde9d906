// Package spotify resolves Spotify catalog URLs into ordered track lists.
//
// # Authentication
//
// The Client uses the client-credentials flow. Tokens are kept in memory
// and, when a TokenStore is configured, persisted between runs. A token the
// API rejects is dropped and requested again once.
//
// # Resolving
//
//	client := spotify.NewClient(httpClient, clientID, clientSecret)
//	collection, err := client.Resolve(ctx, "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M")
//
// Track, album and playlist URLs (and spotify: URIs) are accepted. Playlists
// are followed across pages; albums are re-fetched in bulk to fill in ISRC
// codes, 50 ids per request.
//
// # Errors
//
// HTTP failures are mapped to ErrNotFound, ErrUnauthorized and ErrTransient
// so callers can decide what is worth retrying.
package spotify
