package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/HxprLee/manpaper/pkg/wallpaper"
)

// Transcoder shells out to the ffmpeg tool family for video work. It
// implements wallpaper.VideoThumbnailer.
type Transcoder struct {
	runner Runner
}

// NewTranscoder wires a Transcoder. A nil runner gets the real one.
func NewTranscoder(runner Runner) *Transcoder {
	if runner == nil {
		runner = NewRunner()
	}
	return &Transcoder{runner: runner}
}

// Dimensions returns a video's width and height via ffprobe.
func (t *Transcoder) Dimensions(ctx context.Context, path string) (int, int, error) {
	if _, err := t.runner.LookPath("ffprobe"); err != nil {
		return 0, 0, fmt.Errorf("ffprobe: %w", wallpaper.ErrBackendNotFound)
	}

	out, err := t.runner.Run(ctx, "ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=s=x:p=0",
		path)
	if err != nil {
		return 0, 0, err
	}

	parts := strings.SplitN(strings.TrimSpace(string(out)), "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("unexpected ffprobe output %q", strings.TrimSpace(string(out)))
	}
	w, werr := strconv.Atoi(parts[0])
	h, herr := strconv.Atoi(parts[1])
	if werr != nil || herr != nil || w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("unexpected ffprobe output %q", strings.TrimSpace(string(out)))
	}
	return w, h, nil
}

// Recode re-encodes a video to fit the given display resolution, scaling
// down and letterboxing to preserve aspect ratio. The output lands in a
// recoded/ directory beside the source; the source is left untouched.
func (t *Transcoder) Recode(ctx context.Context, src string, width, height int) (string, error) {
	if _, err := t.runner.LookPath("ffmpeg"); err != nil {
		return "", fmt.Errorf("ffmpeg: %w", wallpaper.ErrBackendNotFound)
	}

	dst := wallpaper.RecodedPath(src)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", wallpaper.WrapIO("create recoded directory", err)
	}

	filter := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2",
		width, height, width, height)

	if _, err := t.runner.Run(ctx, "ffmpeg",
		"-i", src,
		"-vf", filter,
		"-c:a", "copy",
		"-y", dst); err != nil {
		// Don't leave a truncated output behind.
		os.Remove(dst)
		if ctx.Err() != nil {
			return "", fmt.Errorf("recode %s: %w", src, wallpaper.ErrCancelled)
		}
		return "", err
	}
	return dst, nil
}

// Thumbnail extracts a still frame via ffmpegthumbnailer.
func (t *Transcoder) Thumbnail(ctx context.Context, src, dst string, size int) error {
	if _, err := t.runner.LookPath("ffmpegthumbnailer"); err != nil {
		return fmt.Errorf("ffmpegthumbnailer: %w", wallpaper.ErrBackendNotFound)
	}

	_, err := t.runner.Run(ctx, "ffmpegthumbnailer",
		"-i", src,
		"-o", dst,
		"-s", strconv.Itoa(size),
		"-q", "5")
	return err
}
