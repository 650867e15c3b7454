package filehandler

import (
	"strings"
	"testing"
	"time"
)

func TestIsSupported(t *testing.T) {
	tests := []struct {
		ext      string
		expected bool
	}{
		{".jpg", true},
		{".HEIC", true},
		{".mp4", true},
		{".MOV", true},
		{".wav", true},
		{".M4A", true},
		{".txt", false},
		{".pdf", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			result := IsSupported(tt.ext)
			if result != tt.expected {
				t.Errorf("IsSupported(%q) = %v, want %v", tt.ext, result, tt.expected)
			}
		})
	}
}

func TestGetMIMEType(t *testing.T) {
	tests := []struct {
		ext          string
		expectedMIME string
		expectError  bool
	}{
		{".jpg", "image/jpeg", false},
		{".png", "image/png", false},
		{".mp4", "video/mp4", false},
		{".mov", "video/quicktime", false},
		{".mp3", "audio/mpeg", false},
		{".wav", "audio/wav", false},
		{".txt", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			mime, err := GetMIMEType(tt.ext)
			if tt.expectError {
				if err == nil {
					t.Errorf("expected error for %q, got nil", tt.ext)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error for %q: %v", tt.ext, err)
			}
			if mime != tt.expectedMIME {
				t.Errorf("GetMIMEType(%q) = %q, want %q", tt.ext, mime, tt.expectedMIME)
			}
		})
	}
}

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"60/1", 60},
		{"30000/1001", 30000.0 / 1001.0},
		{"25", 25},
		{"0/0", 0},
		{"garbage", 0},
	}
	for _, tt := range tests {
		if got := ratio(tt.in); got != tt.want {
			t.Errorf("ratio(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseProbe(t *testing.T) {
	raw := `{
		"format": {"duration": "12.5", "tags": {"timecode": "01:00:00:00"}},
		"streams": [
			{"codec_type": "video", "codec_name": "h264", "width": 1920, "height": 1080,
			 "avg_frame_rate": "0/0", "r_frame_rate": "30/1"},
			{"codec_type": "audio", "codec_name": "aac", "sample_rate": "48000", "channels": 2}
		]
	}`

	m, err := parseProbe([]byte(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Seconds != 12.5 || m.FPS != 30 || m.Frames() != 375 {
		t.Errorf("timing = %vs %vfps %d frames", m.Seconds, m.FPS, m.Frames())
	}
	if m.Width != 1920 || m.Height != 1080 || m.VideoCodec != "h264" {
		t.Errorf("video stream = %dx%d %s", m.Width, m.Height, m.VideoCodec)
	}
	if m.AudioCodec != "aac" || m.SampleRate != 48000 || m.Channels != 2 {
		t.Errorf("audio stream = %s %d %d", m.AudioCodec, m.SampleRate, m.Channels)
	}
	if m.GetMediaType() != "video" {
		t.Errorf("media type = %q", m.GetMediaType())
	}

	ctx := m.FormatMetadataContext()
	for _, want := range []string{"Length: 12.50 s", "Frame: 1920x1080, 16:9 landscape", "Rate: 30.00 fps, about 375 frames", "Start timecode: 01:00:00:00", "Audio: aac 48000 Hz stereo"} {
		if !strings.Contains(ctx, want) {
			t.Errorf("context missing %q:\n%s", want, ctx)
		}
	}
}

func TestParseProbeRotatedPhoneClip(t *testing.T) {
	raw := `{"format": {"duration": "4"}, "streams": [
		{"codec_type": "video", "codec_name": "hevc", "width": 1920, "height": 1080,
		 "avg_frame_rate": "30000/1001", "side_data_list": [{"rotation": -90}]}
	]}`
	m, err := parseProbe([]byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	if m.Rotation != 270 {
		t.Errorf("rotation = %d", m.Rotation)
	}
	if w, h := m.DisplaySize(); w != 1080 || h != 1920 {
		t.Errorf("display size = %dx%d", w, h)
	}
	ctx := m.FormatMetadataContext()
	if !strings.Contains(ctx, "9:16 vertical") || !strings.Contains(ctx, "Audio: none") {
		t.Errorf("context = %s", ctx)
	}
}

func TestParseProbeAudioOnly(t *testing.T) {
	m, err := parseProbe([]byte(`{"format": {"duration": "3"}, "streams": [{"codec_type": "audio", "codec_name": "mp3", "channels": 1}]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.GetMediaType() != "audio" {
		t.Errorf("media type = %q, want audio", m.GetMediaType())
	}
	if ctx := m.FormatMetadataContext(); strings.Contains(ctx, "Frame:") || !strings.Contains(ctx, "mp3 mono") {
		t.Errorf("context = %s", ctx)
	}
}

func TestParseProbeInvalid(t *testing.T) {
	if _, err := parseProbe([]byte("not json")); err == nil {
		t.Error("expected error")
	}
}

func TestRatio(t *testing.T) {
	for in, want := range map[string]float64{"25": 25, "30/1": 30, "0/0": 0, "": 0, "x/1": 0} {
		if got := ratio(in); got != want {
			t.Errorf("ratio(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestImageMetadataFormatContext(t *testing.T) {
	empty := &ImageMetadata{}
	if got := empty.FormatMetadataContext(); got != "- Still image, no EXIF data\n" {
		t.Errorf("empty context = %q", got)
	}

	m := &ImageMetadata{
		Camera:     "Apple iPhone 15",
		CapturedAt: time.Date(2025, 6, 1, 18, 30, 0, 0, time.UTC),
		HasGPS:     true,
		Latitude:   1.5,
		Longitude:  -2.25,
	}
	want := "- Captured: 2025-06-01 18:30\n- Camera: Apple iPhone 15\n- Location: 1.50000, -2.25000\n"
	if got := m.FormatMetadataContext(); got != want {
		t.Errorf("context = %q, want %q", got, want)
	}
	if m.GetMediaType() != "image" {
		t.Errorf("media type = %q", m.GetMediaType())
	}
}
