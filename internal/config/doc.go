// Package config provides configuration management for spotify-downloader.
//
// Settings are layered with viper, lowest precedence first:
//   - built-in defaults
//   - an optional YAML config file
//   - SPOTIFY_DL_* environment variables (SPOTIFY_DL_FETCH_POOL_SIZE=8)
//   - command line flags listed in FlagKeys
//
// # Loading
//
//	settings, err := config.Load("spotify-dl.yaml", cmd.Flags())
//	if err != nil {
//	    // invalid file, unknown format or failed validation
//	}
//
// # Conversion
//
// Settings converts to the option types of other packages:
//
//	settings.ToOutputConfig()   // *model.OutputConfig
//	settings.ToTagConfig()      // *audio.TagConfig
//	settings.ToPlaylistFormat() // audio.PlaylistFormat
package config
