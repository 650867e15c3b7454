package filehandler

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// probeTimeout bounds one ffprobe run.
const probeTimeout = 15 * time.Second

// ClipMetadata describes a video or audio file in the units the timeline
// uses. Audio-only files leave the picture fields at zero.
type ClipMetadata struct {
	// Seconds is the container duration.
	Seconds    float64
	Width      int
	Height     int
	FPS        float64
	VideoCodec string
	// Rotation in degrees from the display matrix or rotate tag.
	Rotation int
	Timecode string

	AudioCodec string
	SampleRate int
	Channels   int
}

var _ MediaMetadata = (*ClipMetadata)(nil)

// GetMediaType returns "video", or "audio" when no picture stream was found.
func (m *ClipMetadata) GetMediaType() string {
	if m.VideoCodec == "" {
		return "audio"
	}
	return "video"
}

// DisplaySize returns the frame size after rotation.
func (m *ClipMetadata) DisplaySize() (w, h int) {
	if m.Rotation%180 != 0 {
		return m.Height, m.Width
	}
	return m.Width, m.Height
}

// Frames estimates the frame count.
func (m *ClipMetadata) Frames() int {
	return int(math.Round(m.Seconds * m.FPS))
}

// HasFFprobe reports whether ffprobe is on PATH.
func HasFFprobe() bool {
	_, err := exec.LookPath("ffprobe")
	return err == nil
}

// ProbeClip runs ffprobe on filePath.
func ProbeClip(ctx context.Context, filePath string) (*ClipMetadata, error) {
	bin, err := exec.LookPath("ffprobe")
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found in PATH (install FFmpeg for clip metadata): %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, bin,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath,
	).Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", filePath, err)
	}
	m, err := parseProbe(out)
	if err != nil {
		return nil, err
	}
	log.Debug().
		Str("path", filePath).
		Float64("seconds", m.Seconds).
		Int("width", m.Width).
		Int("height", m.Height).
		Float64("fps", m.FPS).
		Str("audio", m.AudioCodec).
		Msg("Clip probed")
	return m, nil
}

type probeOutput struct {
	Format struct {
		Duration string            `json:"duration"`
		Tags     map[string]string `json:"tags"`
	} `json:"format"`
	Streams []struct {
		CodecType    string            `json:"codec_type"`
		CodecName    string            `json:"codec_name"`
		Width        int               `json:"width"`
		Height       int               `json:"height"`
		AvgFrameRate string            `json:"avg_frame_rate"`
		RFrameRate   string            `json:"r_frame_rate"`
		SampleRate   string            `json:"sample_rate"`
		Channels     int               `json:"channels"`
		Tags         map[string]string `json:"tags"`
		SideData     []struct {
			Rotation float64 `json:"rotation"`
		} `json:"side_data_list"`
	} `json:"streams"`
}

func parseProbe(raw []byte) (*ClipMetadata, error) {
	var p probeOutput
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}
	m := &ClipMetadata{Timecode: p.Format.Tags["timecode"]}
	m.Seconds, _ = strconv.ParseFloat(p.Format.Duration, 64)

	for _, s := range p.Streams {
		switch s.CodecType {
		case "video":
			if m.VideoCodec != "" {
				continue
			}
			m.VideoCodec = s.CodecName
			m.Width, m.Height = s.Width, s.Height
			// avg_frame_rate is 0/0 for some containers.
			if m.FPS = ratio(s.AvgFrameRate); m.FPS == 0 {
				m.FPS = ratio(s.RFrameRate)
			}
			if r, err := strconv.Atoi(s.Tags["rotate"]); err == nil {
				m.Rotation = r
			}
			for _, sd := range s.SideData {
				if sd.Rotation != 0 {
					m.Rotation = int(sd.Rotation)
				}
			}
			m.Rotation = ((m.Rotation % 360) + 360) % 360
			if m.Timecode == "" {
				m.Timecode = s.Tags["timecode"]
			}
		case "audio":
			if m.AudioCodec != "" {
				continue
			}
			m.AudioCodec = s.CodecName
			m.Channels = s.Channels
			m.SampleRate, _ = strconv.Atoi(s.SampleRate)
		}
	}
	return m, nil
}

// ratio parses "30000/1001" or "25".
func ratio(v string) float64 {
	num, den, found := strings.Cut(v, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !found {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

func aspectLabel(w, h int) string {
	if w == 0 || h == 0 {
		return ""
	}
	r := float64(w) / float64(h)
	switch {
	case math.Abs(r-16.0/9) < 0.02:
		return "16:9 landscape"
	case math.Abs(r-9.0/16) < 0.02:
		return "9:16 vertical"
	case math.Abs(r-1) < 0.02:
		return "1:1 square"
	case math.Abs(r-4.0/3) < 0.02:
		return "4:3"
	case r > 1:
		return "landscape"
	default:
		return "portrait"
	}
}

// FormatMetadataContext lists the clip properties an editing request can
// refer to.
func (m *ClipMetadata) FormatMetadataContext() string {
	var sb strings.Builder
	if m.Seconds > 0 {
		d := time.Duration(m.Seconds * float64(time.Second)).Round(time.Second)
		fmt.Fprintf(&sb, "- Length: %.2f s (%s)\n", m.Seconds, d)
	}
	if w, h := m.DisplaySize(); w > 0 {
		fmt.Fprintf(&sb, "- Frame: %dx%d, %s\n", w, h, aspectLabel(w, h))
	}
	if m.FPS > 0 {
		fmt.Fprintf(&sb, "- Rate: %.2f fps, about %d frames\n", m.FPS, m.Frames())
	}
	if m.VideoCodec != "" {
		fmt.Fprintf(&sb, "- Video codec: %s\n", m.VideoCodec)
	}
	if m.Timecode != "" {
		fmt.Fprintf(&sb, "- Start timecode: %s\n", m.Timecode)
	}
	if m.AudioCodec != "" {
		fmt.Fprintf(&sb, "- Audio: %s", m.AudioCodec)
		if m.SampleRate > 0 {
			fmt.Fprintf(&sb, " %d Hz", m.SampleRate)
		}
		switch m.Channels {
		case 0:
		case 1:
			sb.WriteString(" mono")
		case 2:
			sb.WriteString(" stereo")
		default:
			fmt.Fprintf(&sb, " %d ch", m.Channels)
		}
		sb.WriteString("\n")
	} else if m.VideoCodec != "" {
		sb.WriteString("- Audio: none\n")
	}
	return sb.String()
}
