// Package model defines the core data structures used throughout
// spotify-downloader.
//
// # Track
//
// Track carries catalog metadata for one song: title, artists (with genres
// once enriched), album, release date, numbering and ISRC.
//
//	track.SearchQuery() // "<name> <artist> <artist>..."
//
// # Collection
//
// Collection is the ordered list of tracks behind a source URL together with
// its display name. Match and Download describe a track after the resolve
// and fetch stages respectively.
//
// # Output Templates
//
// OutputConfig renders the fetch tool's output template using placeholders:
//
//	cfg := &model.OutputConfig{
//	    Dir:            "/music/{collection}",
//	    FileNameFormat: "{index} {artist} - {title}",
//	}
//
// Available placeholders: {index}, {title}, {artist}, {album}, {collection}, {year}
package model
