package service

import (
	"context"
	"errors"
	"image"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BrandonDHaskell/qrscan/internal/qrscan/classify"
	"github.com/BrandonDHaskell/qrscan/internal/qrscan/types"
)

var (
	ErrAlreadyScanning = errors.New("a scan session is already running")
	ErrNotScanning     = errors.New("no scan session is running")
	ErrCameraStopped   = errors.New("camera stream ended")
)

// FrameStream is an open camera.  Frames is closed when the camera stops on
// its own; Err then explains why.
type FrameStream interface {
	Frames() <-chan image.Image
	Err() error
	Close() error
}

type Camera interface {
	Open(ctx context.Context, facing types.Facing) (FrameStream, error)
}

// Decoder extracts a QR payload from one frame.  ("", nil) means the frame
// holds no code; errors are per-frame and never end a session.
type Decoder interface {
	Decode(frame image.Image) (string, error)
}

// Recorder stores decoded payloads; HistoryService implements it.
type Recorder interface {
	Append(ctx context.Context, data string) (types.ScanRecord, error)
}

type ScanState int

const (
	StateIdle ScanState = iota
	StateScanning
)

func (s ScanState) String() string {
	if s == StateScanning {
		return "scanning"
	}
	return "idle"
}

// EndReason says why a session returned to idle.
type EndReason string

const (
	EndDecoded     EndReason = "decoded"
	EndCancelled   EndReason = "cancelled"
	EndCameraError EndReason = "camera_error"
)

// ScanOutcome is the single completion event of a session.
type ScanOutcome struct {
	SessionID string
	Reason    EndReason
	Facing    types.Facing

	// Set when Reason is EndDecoded.
	Record *types.ScanRecord
	Result classify.Result

	// Set when Reason is EndCameraError.
	Err error
}

type ScanControllerOptions struct {
	// Facing is the camera used by the first session.  Defaults to
	// environment.
	Facing types.Facing
	Logger *zap.Logger
}

// ScanController drives the Idle → Scanning → Idle cycle.  It owns the
// camera facing and the current result so the presentation layer reads them
// from here rather than from globals.
type ScanController struct {
	camera  Camera
	decoder Decoder
	history Recorder
	logger  *zap.Logger

	mu      sync.Mutex
	state   ScanState
	facing  types.Facing
	current *classify.Result
	session *scanSession
}

type scanSession struct {
	id     string
	cancel context.CancelFunc
	toggle chan types.Facing
}

func NewScanController(cam Camera, dec Decoder, history Recorder, opts ScanControllerOptions) *ScanController {
	facing := opts.Facing
	if !facing.Valid() {
		facing = types.FacingEnvironment
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScanController{
		camera:  cam,
		decoder: dec,
		history: history,
		logger:  logger,
		facing:  facing,
	}
}

// Start enters Scanning and acquires the camera in the background.  The
// returned channel yields exactly one ScanOutcome and is then closed; the
// camera has been released by the time the outcome is delivered.
func (c *ScanController) Start(ctx context.Context) (<-chan ScanOutcome, error) {
	c.mu.Lock()
	if c.state == StateScanning {
		c.mu.Unlock()
		return nil, ErrAlreadyScanning
	}

	sctx, cancel := context.WithCancel(ctx)
	sess := &scanSession{
		id:     uuid.NewString(),
		cancel: cancel,
		toggle: make(chan types.Facing, 1),
	}
	c.session = sess
	c.state = StateScanning
	facing := c.facing
	c.mu.Unlock()

	c.logger.Info("scan session started", zap.String("session", sess.id), zap.String("facing", string(facing)))

	out := make(chan ScanOutcome, 1)
	go c.run(sctx, sess, facing, out)
	return out, nil
}

// Cancel ends the running session, if any.  The outcome arrives on the
// channel returned by Start.
func (c *ScanController) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		c.session.cancel()
	}
}

// ToggleFacing switches between the environment and user cameras.  Only
// valid while scanning; the camera is reopened with the new facing.
func (c *ScanController) ToggleFacing() (types.Facing, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateScanning || c.session == nil {
		return c.facing, ErrNotScanning
	}
	c.facing = c.facing.Flip()

	// Only the latest request matters; replace one the loop has not read.
	select {
	case <-c.session.toggle:
	default:
	}
	c.session.toggle <- c.facing
	return c.facing, nil
}

func (c *ScanController) State() ScanState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *ScanController) Facing() types.Facing {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.facing
}

// Current returns the last decoded payload with its category and action.
func (c *ScanController) Current() (classify.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return classify.Result{}, false
	}
	return *c.current, true
}

func (c *ScanController) run(ctx context.Context, sess *scanSession, facing types.Facing, out chan<- ScanOutcome) {
	defer close(out)

	outcome := c.capture(ctx, sess, facing)
	sess.cancel()

	c.mu.Lock()
	c.state = StateIdle
	c.session = nil
	if outcome.Reason == EndDecoded {
		res := outcome.Result
		c.current = &res
	}
	c.mu.Unlock()

	fields := []zap.Field{
		zap.String("session", sess.id),
		zap.String("reason", string(outcome.Reason)),
	}
	if outcome.Err != nil {
		c.logger.Warn("scan session ended", append(fields, zap.Error(outcome.Err))...)
	} else {
		c.logger.Info("scan session ended", fields...)
	}

	out <- outcome
}

// capture holds the camera for the life of the session and releases it on
// every return path.
func (c *ScanController) capture(ctx context.Context, sess *scanSession, facing types.Facing) ScanOutcome {
	outcome := ScanOutcome{SessionID: sess.id, Facing: facing}

	stream, err := c.camera.Open(ctx, facing)
	if err != nil {
		return c.endOnError(ctx, outcome, err)
	}
	defer func() {
		if stream != nil {
			_ = stream.Close()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			outcome.Reason = EndCancelled
			return outcome

		case next := <-sess.toggle:
			_ = stream.Close()
			stream = nil
			outcome.Facing = next
			c.logger.Debug("switching camera", zap.String("session", sess.id), zap.String("facing", string(next)))

			stream, err = c.camera.Open(ctx, next)
			if err != nil {
				stream = nil
				return c.endOnError(ctx, outcome, err)
			}

		case frame, ok := <-stream.Frames():
			if !ok {
				err := stream.Err()
				if err == nil {
					err = ErrCameraStopped
				}
				return c.endOnError(ctx, outcome, err)
			}

			payload, err := c.decoder.Decode(frame)
			if err != nil {
				c.logger.Debug("frame not decodable", zap.String("session", sess.id), zap.Error(err))
				continue
			}
			if strings.TrimSpace(payload) == "" {
				continue
			}

			// A cancel racing with a good frame must not abort the write.
			rec, err := c.history.Append(context.WithoutCancel(ctx), payload)
			if err != nil {
				c.logger.Debug("decoded payload not recorded", zap.String("session", sess.id), zap.Error(err))
				continue
			}
			outcome.Reason = EndDecoded
			outcome.Record = &rec
			outcome.Result = classify.Describe(payload)
			return outcome
		}
	}
}

func (c *ScanController) endOnError(ctx context.Context, outcome ScanOutcome, err error) ScanOutcome {
	if ctx.Err() != nil {
		outcome.Reason = EndCancelled
		return outcome
	}
	outcome.Reason = EndCameraError
	outcome.Err = err
	return outcome
}
