// Package credentials stores Spotify application keys, the cached Spotify
// access token and YouTube Music browser headers under the user config
// directory, and prompts for them on first use.
package credentials
