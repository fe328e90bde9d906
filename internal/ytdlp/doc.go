// Package ytdlp wraps the yt-dlp command line tool.
package ytdlp
