// Package ioutils provides file system and image processing utilities.
//
// # File Operations
//
//	// Write data atomically, creating parent directories
//	err := ioutils.WriteFile("/music/Mix/failed-Mix.txt", report)
//
//	// Ensure directory exists
//	err := ioutils.EnsureDir("/music/Mix")
//
// # Cover Art
//
// CoverArt scales artwork down and converts it to JPEG for ID3 embedding:
//
//	cover := &ioutils.CoverArt{MaxSize: 500}
//	jpegData, err := cover.Prepare(imageData)
package ioutils
