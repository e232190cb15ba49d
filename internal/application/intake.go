package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"telegram-gather/internal/domain"
)

// Scratch hands out temporary files for downloaded media.
type Scratch interface {
	Create(format domain.AudioFormat) (*os.File, error)
}

// ByteSource is a downloaded attachment on local disk. The file is removed
// by Release, which is safe to call more than once.
type ByteSource struct {
	path    string
	format  domain.AudioFormat
	size    int64
	once    sync.Once
	release func()
}

func (b *ByteSource) Name() string               { return filepath.Base(b.path) }
func (b *ByteSource) Path() string               { return b.path }
func (b *ByteSource) Format() domain.AudioFormat { return b.format }
func (b *ByteSource) Size() int64                { return b.size }

func (b *ByteSource) Open() (io.ReadCloser, error) {
	return os.Open(b.path)
}

func (b *ByteSource) Release() error {
	var err error
	b.once.Do(func() {
		if rmErr := os.Remove(b.path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			err = fmt.Errorf("removing temp audio: %w", rmErr)
		}
		if b.release != nil {
			b.release()
		}
	})
	return err
}

type MediaIntake struct {
	downloader MediaDownloader
	scratch    Scratch
	metrics    Recorder
	logger     *slog.Logger
}

func NewMediaIntake(downloader MediaDownloader, scratch Scratch, metrics Recorder, logger *slog.Logger) *MediaIntake {
	if metrics == nil {
		metrics = NoopRecorder{}
	}
	return &MediaIntake{
		downloader: downloader,
		scratch:    scratch,
		metrics:    metrics,
		logger:     logger,
	}
}

// Qualifies reports whether msg is a private, inbound message carrying audio
// in one of the supported formats.
func (in *MediaIntake) Qualifies(msg *domain.IncomingAudioMessage) bool {
	if msg == nil || !msg.IsPrivate() || msg.Outgoing {
		return false
	}
	if !msg.Media.IsAudio() {
		return false
	}
	return domain.ResolveFormat(msg.Media).Supported()
}

// Materialize downloads the attachment of a qualifying message into a
// temporary file. On error nothing is left on disk.
func (in *MediaIntake) Materialize(ctx context.Context, msg *domain.IncomingAudioMessage) (*ByteSource, error) {
	format := domain.ResolveFormat(msg.Media)
	if !format.Supported() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, format)
	}

	f, err := in.scratch.Create(format)
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	in.metrics.TempFileCreated()

	src := &ByteSource{
		path:    f.Name(),
		format:  format,
		release: in.metrics.TempFileReleased,
	}

	in.logger.Debug("downloading media", "path", src.path, "format", format, "declared_size", msg.Media.Size)

	counter := &countingWriter{w: f}
	dlErr := in.downloader.Download(ctx, msg, counter)
	closeErr := f.Close()

	if err := errors.Join(dlErr, closeErr); err != nil {
		if relErr := src.Release(); relErr != nil {
			in.logger.Warn("cleaning up partial download", "path", src.path, "error", relErr)
		}
		return nil, fmt.Errorf("downloading media: %w", err)
	}

	if counter.n == 0 {
		if relErr := src.Release(); relErr != nil {
			in.logger.Warn("cleaning up empty download", "path", src.path, "error", relErr)
		}
		return nil, errors.New("downloading media: empty file")
	}

	src.size = counter.n
	return src, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
