package qrcode

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/qrscan/internal/qrscan/service"
	"github.com/BrandonDHaskell/qrscan/internal/qrscan/types"
)

// ErrFramesExhausted ends a still-image stream once every frame was shown.
var ErrFramesExhausted = errors.New("camera: no more frames")

// FrameSource loads the i-th frame.  It is called lazily, once per frame.
type FrameSource func(i int) (image.Image, error)

// StillCamera plays a fixed list of images as a camera feed, one every
// Interval.  It stands in for a device camera on the CLI and in tests; the
// facing is recorded but does not change the frames.
type StillCamera struct {
	count    int
	source   FrameSource
	interval time.Duration
	logger   *zap.Logger
}

// NewFileCamera reads each path as a PNG or JPEG frame.
func NewFileCamera(paths []string, interval time.Duration, logger *zap.Logger) *StillCamera {
	return newStillCamera(len(paths), func(i int) (image.Image, error) {
		f, err := os.Open(paths[i])
		if err != nil {
			return nil, err
		}
		defer f.Close()

		img, _, err := image.Decode(f)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", paths[i], err)
		}
		return img, nil
	}, interval, logger)
}

// NewImageCamera plays frames that are already in memory.
func NewImageCamera(frames []image.Image, interval time.Duration, logger *zap.Logger) *StillCamera {
	return newStillCamera(len(frames), func(i int) (image.Image, error) {
		return frames[i], nil
	}, interval, logger)
}

func newStillCamera(n int, src FrameSource, interval time.Duration, logger *zap.Logger) *StillCamera {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StillCamera{count: n, source: src, interval: interval, logger: logger}
}

func (c *StillCamera) Open(ctx context.Context, facing types.Facing) (service.FrameStream, error) {
	if c.count == 0 {
		return nil, fmt.Errorf("camera %s: no frames configured", facing)
	}
	c.logger.Debug("camera opened", zap.String("facing", string(facing)), zap.Int("frames", c.count))

	s := &stillStream{
		frames: make(chan image.Image),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go s.run(ctx, c)
	return s, nil
}

type stillStream struct {
	frames chan image.Image
	stop   chan struct{}
	done   chan struct{}
	once   sync.Once

	mu  sync.Mutex
	err error
}

func (s *stillStream) Frames() <-chan image.Image { return s.frames }

func (s *stillStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close stops the feed and waits for its goroutine.  Safe to call more than
// once.
func (s *stillStream) Close() error {
	s.once.Do(func() { close(s.stop) })
	<-s.done
	return nil
}

func (s *stillStream) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *stillStream) run(ctx context.Context, c *StillCamera) {
	defer close(s.done)
	defer close(s.frames)

	for i := 0; i < c.count; i++ {
		if i > 0 && c.interval > 0 {
			t := time.NewTimer(c.interval)
			select {
			case <-t.C:
			case <-s.stop:
				t.Stop()
				return
			case <-ctx.Done():
				t.Stop()
				s.fail(ctx.Err())
				return
			}
		}

		img, err := c.source(i)
		if err != nil {
			s.fail(err)
			return
		}

		select {
		case s.frames <- img:
		case <-s.stop:
			return
		case <-ctx.Done():
			s.fail(ctx.Err())
			return
		}
	}
	s.fail(ErrFramesExhausted)
}
