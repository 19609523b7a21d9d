package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"clearmark/internal/domain"
	"clearmark/internal/infra"

	_ "image/png" // frame decode fallback when ffmpeg emits png
)

// seekOffset is a small positive capture position. Frame 0 is skipped on
// purpose: many codecs lead with black or not fully decoded frames.
const seekOffset = 0.1

const jpegQuality = 90

// Extractor derives one representative still frame from a video file by
// driving ffmpeg/ffprobe.
type Extractor struct {
	ffmpegPath  string
	ffprobePath string
	logger      *infra.Logger
}

// NewExtractor locates the ffmpeg and ffprobe binaries once. A missing
// binary is a construction-time error so workflows fail before any upload
// work happens.
func NewExtractor(logger *infra.Logger) (*Extractor, error) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}
	ffprobePath, err := exec.LookPath("ffprobe")
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found in PATH: %w", err)
	}

	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}

	return &Extractor{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		logger:      logger,
	}, nil
}

// FirstFrame captures one frame at a small positive offset from the asset's
// video stream, encoded as JPEG, together with the video's native pixel
// dimensions. Exactly one frame is produced per call and every temp artifact
// is removed before returning, on success and on every failure path.
func (e *Extractor) FirstFrame(ctx context.Context, asset *domain.MediaAsset) (domain.EncodedImage, domain.FrameDimensions, error) {
	var none domain.EncodedImage
	var noDims domain.FrameDimensions

	if asset == nil || asset.Kind != domain.MediaKindVideo {
		return none, noDims, fmt.Errorf("%w: frame extraction needs a video asset", domain.ErrUnsupportedMedia)
	}

	dims, duration, err := e.probe(ctx, asset.Path)
	if err != nil {
		return none, noDims, err
	}

	offset := seekOffset
	if duration > 0 && duration < 2*seekOffset {
		// Very short clip; stay inside it but never at exactly 0.
		offset = duration / 2
	}

	framePath := filepath.Join(asset.WorkDir(), fmt.Sprintf("frame-%s.jpg", uuid.NewString()))
	defer os.Remove(framePath)

	args := []string{
		"-ss", strconv.FormatFloat(offset, 'f', 3, 64),
		"-i", asset.Path,
		"-frames:v", "1",
		"-q:v", "2",
		"-y",
		framePath,
	}
	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return none, noDims, fmt.Errorf("%w: ffmpeg: %v: %s", domain.ErrMediaDecode, err, firstLine(stderr.String()))
	}

	raw, err := os.ReadFile(framePath)
	if err != nil || len(raw) == 0 {
		return none, noDims, fmt.Errorf("%w: captured frame is empty", domain.ErrFrameEncode)
	}

	frame, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return none, noDims, fmt.Errorf("%w: decode captured frame: %v", domain.ErrFrameEncode, err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return none, noDims, fmt.Errorf("%w: encode frame: %v", domain.ErrFrameEncode, err)
	}

	e.logger.Debug().
		Str("video", asset.Name).
		Int("width", dims.Width).
		Int("height", dims.Height).
		Float64("offset_seconds", offset).
		Msg("media: extracted first frame")

	return domain.EncodedImage{Data: buf.Bytes(), MIMEType: "image/jpeg"}, dims, nil
}

type probeOutput struct {
	Streams []struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// probe reads the native dimensions of the first video stream and the
// container duration.
func (e *Extractor) probe(ctx context.Context, videoPath string) (domain.FrameDimensions, float64, error) {
	cmd := exec.CommandContext(ctx, e.ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-show_entries", "format=duration",
		"-of", "json",
		videoPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return domain.FrameDimensions{}, 0, fmt.Errorf("%w: ffprobe: %v: %s", domain.ErrMediaDecode, err, firstLine(stderr.String()))
	}

	var probed probeOutput
	if err := json.Unmarshal(output, &probed); err != nil {
		return domain.FrameDimensions{}, 0, fmt.Errorf("%w: parse ffprobe output: %v", domain.ErrMediaDecode, err)
	}
	if len(probed.Streams) == 0 || probed.Streams[0].Width <= 0 || probed.Streams[0].Height <= 0 {
		return domain.FrameDimensions{}, 0, fmt.Errorf("%w: no decodable video stream", domain.ErrMediaDecode)
	}

	duration, _ := strconv.ParseFloat(strings.TrimSpace(probed.Format.Duration), 64)

	return domain.FrameDimensions{
		Width:  probed.Streams[0].Width,
		Height: probed.Streams[0].Height,
	}, duration, nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
