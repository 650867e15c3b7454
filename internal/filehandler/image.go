package filehandler

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/evanoberholster/imagemeta"
)

// ImageMetadata is the EXIF block of a still, such as a photo placed on the
// timeline as a title card or overlay.
type ImageMetadata struct {
	CapturedAt time.Time
	Camera     string

	Latitude  float64
	Longitude float64
	HasGPS    bool
}

var _ MediaMetadata = (*ImageMetadata)(nil)

func (m *ImageMetadata) GetMediaType() string { return "image" }

// ExtractImageMetadata decodes only the EXIF block of filePath.
func ExtractImageMetadata(filePath string) (*ImageMetadata, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filePath, err)
	}
	defer f.Close()

	exif, err := imagemeta.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode EXIF in %s: %w", filePath, err)
	}

	m := &ImageMetadata{
		Camera:     strings.TrimSpace(strings.TrimSpace(exif.Make) + " " + strings.TrimSpace(exif.Model)),
		CapturedAt: firstSet(exif.DateTimeOriginal(), exif.CreateDate(), exif.ModifyDate()),
	}
	if lat, lon := exif.GPS.Latitude(), exif.GPS.Longitude(); lat != 0 || lon != 0 {
		m.Latitude, m.Longitude, m.HasGPS = lat, lon, true
	}
	return m, nil
}

func firstSet(times ...time.Time) time.Time {
	for _, t := range times {
		if !t.IsZero() {
			return t
		}
	}
	return time.Time{}
}

// FormatMetadataContext lists what is known about the still.
func (m *ImageMetadata) FormatMetadataContext() string {
	var lines []string
	if !m.CapturedAt.IsZero() {
		lines = append(lines, "- Captured: "+m.CapturedAt.Format("2006-01-02 15:04"))
	}
	if m.Camera != "" {
		lines = append(lines, "- Camera: "+m.Camera)
	}
	if m.HasGPS {
		lines = append(lines, fmt.Sprintf("- Location: %.5f, %.5f", m.Latitude, m.Longitude))
	}
	if len(lines) == 0 {
		return "- Still image, no EXIF data\n"
	}
	return strings.Join(lines, "\n") + "\n"
}
