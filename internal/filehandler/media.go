// Package filehandler validates media files attached to editing prompts and
// extracts the metadata that is passed to providers as context.
//
// Metadata extraction follows a split-provider model:
//   - Images (JPEG, PNG, HEIC, etc.): pure Go using evanoberholster/imagemeta
//   - Video and audio (MP4, MOV, WAV, etc.): external tool using ffprobe
package filehandler

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// SupportedImageExtensions maps image extensions to MIME types.
var SupportedImageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".heic": "image/heic",
	".heif": "image/heif",
}

// SupportedVideoExtensions maps video extensions to MIME types.
var SupportedVideoExtensions = map[string]string{
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
}

// SupportedAudioExtensions maps audio extensions to MIME types.
var SupportedAudioExtensions = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".aac":  "audio/aac",
	".m4a":  "audio/mp4",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
}

// MediaMetadata is the common interface for extracted metadata.
type MediaMetadata interface {
	// FormatMetadataContext returns a formatted string for inclusion in AI prompts.
	FormatMetadataContext() string

	// GetMediaType returns "image", "video" or "audio".
	GetMediaType() string
}

// MediaFile is a validated file on local disk. Data is never held in memory;
// providers stream from Path.
type MediaFile struct {
	Path     string
	MIMEType string
	Size     int64
	Metadata MediaMetadata
}

// Name returns the base file name.
func (m *MediaFile) Name() string {
	return filepath.Base(m.Path)
}

// SizeMB returns the size in megabytes.
func (m *MediaFile) SizeMB() float64 {
	return float64(m.Size) / (1024 * 1024)
}

// Load validates filePath against maxBytes (zero or less disables the size
// check) and attaches metadata. Metadata is best effort: a clip without
// ffprobe or an image without EXIF still loads.
func Load(ctx context.Context, filePath string, maxBytes int64) (*MediaFile, error) {
	mf, err := Validate(filePath, maxBytes)
	if err != nil {
		return nil, err
	}

	ext := filepath.Ext(filePath)
	var meta MediaMetadata
	switch {
	case IsImage(ext):
		meta, err = ExtractImageMetadata(filePath)
	case IsVideo(ext), IsAudio(ext):
		meta, err = ProbeClip(ctx, filePath)
	}
	if err != nil {
		log.Warn().Err(err).Str("path", filePath).Msg("No metadata for media file")
	} else {
		mf.Metadata = meta
	}

	log.Debug().
		Str("path", filePath).
		Str("mime_type", mf.MIMEType).
		Int64("size_bytes", mf.Size).
		Bool("has_metadata", mf.Metadata != nil).
		Msg("Media file loaded")
	return mf, nil
}

// GetMIMEType returns the MIME type for a given file extension.
func GetMIMEType(ext string) (string, error) {
	ext = strings.ToLower(ext)

	if mimeType, ok := SupportedImageExtensions[ext]; ok {
		return mimeType, nil
	}
	if mimeType, ok := SupportedVideoExtensions[ext]; ok {
		return mimeType, nil
	}
	if mimeType, ok := SupportedAudioExtensions[ext]; ok {
		return mimeType, nil
	}

	return "", fmt.Errorf("unsupported file extension: %q", ext)
}

// IsImage returns true if the file extension corresponds to an image.
func IsImage(ext string) bool {
	_, ok := SupportedImageExtensions[strings.ToLower(ext)]
	return ok
}

// IsVideo returns true if the file extension corresponds to a video.
func IsVideo(ext string) bool {
	_, ok := SupportedVideoExtensions[strings.ToLower(ext)]
	return ok
}

// IsAudio returns true if the file extension corresponds to an audio file.
func IsAudio(ext string) bool {
	_, ok := SupportedAudioExtensions[strings.ToLower(ext)]
	return ok
}

// IsSupported returns true if the extension is any supported media type.
func IsSupported(ext string) bool {
	return IsImage(ext) || IsVideo(ext) || IsAudio(ext)
}
