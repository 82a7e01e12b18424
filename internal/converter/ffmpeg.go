package converter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"podcastrelay/internal/worker"
)

var ErrConversionFailed = errors.New("audio conversion failed")

// Converter re-encodes src into a sibling file with targetExt and returns
// its path. The source file is left in place.
type Converter interface {
	Convert(ctx context.Context, src, targetExt string) (string, error)
}

type Options struct {
	FFmpegPath      string
	SampleRateHertz int32
	Channels        int
}

// FFmpeg shells out to the ffmpeg binary.
type FFmpeg struct {
	bin        string
	sampleRate int32
	channels   int
}

func NewFFmpeg(opts Options) (*FFmpeg, error) {
	name := opts.FFmpegPath
	if name == "" {
		name = "ffmpeg"
	}
	bin, err := exec.LookPath(name)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}
	if opts.SampleRateHertz <= 0 {
		opts.SampleRateHertz = 16000
	}
	if opts.Channels <= 0 {
		opts.Channels = 1
	}
	return &FFmpeg{bin: bin, sampleRate: opts.SampleRateHertz, channels: opts.Channels}, nil
}

// TargetPath swaps the extension of src for targetExt.
func TargetPath(src, targetExt string) string {
	return strings.TrimSuffix(src, filepath.Ext(src)) + targetExt
}

// Convert encodes into a temp file next to dst and renames it into place.
// dst is never observed partially written.
func (f *FFmpeg) Convert(ctx context.Context, src, targetExt string) (string, error) {
	dst := TargetPath(src, targetExt)
	if dst == src {
		return "", fmt.Errorf("%w: %s already has extension %s", ErrConversionFailed, src, targetExt)
	}

	base := strings.TrimSuffix(filepath.Base(dst), targetExt)
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+base+"-*"+targetExt)
	if err != nil {
		return "", fmt.Errorf("%w: create temp output for %s: %v", ErrConversionFailed, src, err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	cmd := exec.CommandContext(ctx, f.bin, f.args(src, tmpPath, targetExt)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("%w: %s -> %s: %v (output: %s)", ErrConversionFailed, src, dst, err, strings.TrimSpace(string(out)))
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("%w: move %s into place: %v", ErrConversionFailed, dst, err)
	}
	return dst, nil
}

func (f *FFmpeg) args(src, dst, targetExt string) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-y", "-i", src, "-vn"}
	if strings.EqualFold(targetExt, ".wav") {
		// LINEAR16
		args = append(args, "-acodec", "pcm_s16le", "-f", "wav")
	}
	args = append(args,
		"-ar", strconv.Itoa(int(f.sampleRate)),
		"-ac", strconv.Itoa(f.channels),
		dst,
	)
	return args
}

// Pooled runs conversions on a dispatcher so only a bounded number of
// transcoding processes exist at once.
type Pooled struct {
	inner      Converter
	dispatcher *worker.Dispatcher
}

func NewPooled(inner Converter, dispatcher *worker.Dispatcher) *Pooled {
	return &Pooled{inner: inner, dispatcher: dispatcher}
}

func (p *Pooled) Convert(ctx context.Context, src, targetExt string) (string, error) {
	var dst string
	err := p.dispatcher.Do(ctx, func(ctx context.Context) error {
		var err error
		dst, err = p.inner.Convert(ctx, src, targetExt)
		return err
	})
	if err != nil {
		return "", err
	}
	return dst, nil
}
