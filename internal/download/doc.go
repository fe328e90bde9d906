// Package download orchestrates a run: it resolves a Spotify collection,
// matches every track to a YouTube Music video and fetches the matches with
// yt-dlp.
//
// # Manager
//
// The Manager runs two bounded pipeline stages back to back:
//
//  1. Resolve the source URL to an ordered track list
//  2. Search YouTube Music for every track and pick a result
//  3. Load full artist details for the matched tracks
//  4. Download the matches concurrently
//  5. Tag mp3 files with ID3 metadata and cover art
//  6. Write the failure report and the playlist (optional)
//
// # Basic Usage
//
//	manager := download.NewManager(settings, services, func(event download.ProgressEvent) {
//	    fmt.Println(event.Message)
//	})
//
//	if err := manager.Initialize(ctx, "https://open.spotify.com/album/..."); err != nil {
//	    log.Fatal(err)
//	}
//
//	report, err := manager.StartDownloads(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Failures
//
// A failing item is requeued while its retry budget lasts and is then
// recorded as a Failure of its stage. Tracks that fail resolution never
// reach the fetch stage. Failures are written as YAML to
// failed-<collection>.txt in the output directory.
//
// A fatal outcome (rejected YouTube Music credentials, an interrupted
// yt-dlp, an aborted selection) or a cancelled context stops the run; the
// Report then has Aborted set and holds what completed so far.
package download
