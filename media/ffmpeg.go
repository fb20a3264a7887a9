package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// AudioExtractor shells out to ffmpeg to pull an mp3 track from a remote
// video stream.
type AudioExtractor struct {
	binary  string
	referer string
	logger  *zap.Logger
}

func NewAudioExtractor(logger *zap.Logger) *AudioExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AudioExtractor{
		binary:  "ffmpeg",
		referer: "https://www.tiktok.com/",
		logger:  logger,
	}
}

// Available reports whether the ffmpeg binary can be found on PATH.
func (e *AudioExtractor) Available() bool {
	_, err := exec.LookPath(e.binary)
	return err == nil
}

// Extract downloads the audio track of videoURL into outPath as mp3. The
// upstream CDN rejects requests without browser-shaped headers, so they are
// passed through ffmpeg's -headers flag.
func (e *AudioExtractor) Extract(ctx context.Context, videoURL, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create audio dir: %w", err)
	}

	headers := "User-Agent: " + userAgent + "\r\nReferer: " + e.referer + "\r\n"
	args := []string{
		"-y",
		"-headers", headers,
		"-i", videoURL,
		"-vn",
		"-af", "aformat=sample_fmts=s16p",
		"-acodec", "libmp3lame",
		"-q:a", "2",
		outPath,
	}

	cmd := exec.CommandContext(ctx, e.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	e.logger.Debug("extracting audio", zap.String("out", outPath))
	if err := cmd.Run(); err != nil {
		os.Remove(outPath)
		return fmt.Errorf("ffmpeg failed: %w: %s", err, lastLine(stderr.String()))
	}
	return nil
}

// lastLine keeps error messages short; ffmpeg prints its banner and progress
// before the actual failure reason.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
