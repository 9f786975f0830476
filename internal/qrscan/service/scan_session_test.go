package service_test

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/qrscan/internal/qrscan/service"
	"github.com/BrandonDHaskell/qrscan/internal/qrscan/types"
)

// labelFrame carries the decoder's answer inside the frame itself.
type labelFrame struct {
	image.Image
	payload string
	err     error
}

func frame(payload string) image.Image {
	return labelFrame{Image: image.NewGray(image.Rect(0, 0, 1, 1)), payload: payload}
}

func badFrame(err error) image.Image {
	return labelFrame{Image: image.NewGray(image.Rect(0, 0, 1, 1)), err: err}
}

type labelDecoder struct{}

func (labelDecoder) Decode(f image.Image) (string, error) {
	lf, ok := f.(labelFrame)
	if !ok {
		return "", nil
	}
	return lf.payload, lf.err
}

type fakeStream struct {
	frames chan image.Image
	err    error
	closed atomic.Bool
}

func (s *fakeStream) Frames() <-chan image.Image { return s.frames }
func (s *fakeStream) Err() error                 { return s.err }
func (s *fakeStream) Close() error {
	s.closed.Store(true)
	return nil
}

type fakeCamera struct {
	mu      sync.Mutex
	failErr error
	facings []types.Facing
	streams []*fakeStream
}

func (c *fakeCamera) Open(_ context.Context, f types.Facing) (service.FrameStream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failErr != nil {
		return nil, c.failErr
	}
	st := &fakeStream{frames: make(chan image.Image, 8)}
	c.facings = append(c.facings, f)
	c.streams = append(c.streams, st)
	return st, nil
}

// waitStream blocks until the n-th (1-based) stream has been opened.
func (c *fakeCamera) waitStream(t *testing.T, n int) *fakeStream {
	t.Helper()
	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return len(c.streams) >= n
	}, time.Second, time.Millisecond)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streams[n-1]
}

func (c *fakeCamera) openedFacings() []types.Facing {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]types.Facing(nil), c.facings...)
}

func awaitOutcome(t *testing.T, ch <-chan service.ScanOutcome) service.ScanOutcome {
	t.Helper()
	select {
	case o, ok := <-ch:
		require.True(t, ok, "outcome channel closed without an outcome")
		_, more := <-ch
		require.False(t, more, "outcome channel must close after one outcome")
		return o
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for scan outcome")
		return service.ScanOutcome{}
	}
}

func newTestController(t *testing.T, cam *fakeCamera) (*service.ScanController, *service.HistoryService) {
	t.Helper()
	history, _, _ := newTestHistory(t)
	ctrl := service.NewScanController(cam, labelDecoder{}, history, service.ScanControllerOptions{})
	return ctrl, history
}

// ── Decode path ──────────────────────────────────────────────────────────────

func TestScan_DecodeRecordsAndReturnsToIdle(t *testing.T) {
	cam := &fakeCamera{}
	ctrl, history := newTestController(t, cam)

	ch, err := ctrl.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, service.StateScanning, ctrl.State())

	st := cam.waitStream(t, 1)
	st.frames <- frame("https://example.com/path")

	out := awaitOutcome(t, ch)
	assert.Equal(t, service.EndDecoded, out.Reason)
	require.NotNil(t, out.Record)
	assert.Equal(t, types.CategoryURL, out.Record.Type)
	require.NotNil(t, out.Result.Action)
	assert.Equal(t, "Open URL", out.Result.Action.Label)
	assert.NotEmpty(t, out.SessionID)

	assert.Equal(t, service.StateIdle, ctrl.State())
	assert.True(t, st.closed.Load(), "camera must be released")
	assert.Equal(t, 1, history.Len())

	cur, ok := ctrl.Current()
	require.True(t, ok)
	assert.Equal(t, "https://example.com/path", cur.Data)
	assert.Equal(t, types.CategoryURL, cur.Category)
}

func TestScan_DecodeErrorsAndEmptyFramesAreIgnored(t *testing.T) {
	cam := &fakeCamera{}
	ctrl, history := newTestController(t, cam)

	ch, err := ctrl.Start(context.Background())
	require.NoError(t, err)

	st := cam.waitStream(t, 1)
	st.frames <- badFrame(errors.New("checksum"))
	st.frames <- frame("")
	st.frames <- frame("   ")
	st.frames <- frame("+1-555-123-4567")

	out := awaitOutcome(t, ch)
	assert.Equal(t, service.EndDecoded, out.Reason)
	assert.Equal(t, types.CategoryPhone, out.Record.Type)
	assert.Equal(t, 1, history.Len())
}

// ── Cancellation and errors ──────────────────────────────────────────────────

func TestScan_CancelReleasesCamera(t *testing.T) {
	cam := &fakeCamera{}
	ctrl, history := newTestController(t, cam)

	ch, err := ctrl.Start(context.Background())
	require.NoError(t, err)
	st := cam.waitStream(t, 1)

	ctrl.Cancel()
	out := awaitOutcome(t, ch)
	assert.Equal(t, service.EndCancelled, out.Reason)
	assert.Nil(t, out.Record)
	assert.True(t, st.closed.Load())
	assert.Equal(t, service.StateIdle, ctrl.State())
	assert.Equal(t, 0, history.Len())

	_, ok := ctrl.Current()
	assert.False(t, ok)
}

func TestScan_ParentContextCancel(t *testing.T) {
	cam := &fakeCamera{}
	ctrl, _ := newTestController(t, cam)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := ctrl.Start(ctx)
	require.NoError(t, err)
	cam.waitStream(t, 1)

	cancel()
	assert.Equal(t, service.EndCancelled, awaitOutcome(t, ch).Reason)
}

func TestScan_CameraOpenError(t *testing.T) {
	boom := errors.New("permission denied")
	cam := &fakeCamera{failErr: boom}
	ctrl, _ := newTestController(t, cam)

	ch, err := ctrl.Start(context.Background())
	require.NoError(t, err)

	out := awaitOutcome(t, ch)
	assert.Equal(t, service.EndCameraError, out.Reason)
	assert.ErrorIs(t, out.Err, boom)
	assert.Equal(t, service.StateIdle, ctrl.State())
}

func TestScan_StreamEndsIsCameraError(t *testing.T) {
	cam := &fakeCamera{}
	ctrl, _ := newTestController(t, cam)

	ch, err := ctrl.Start(context.Background())
	require.NoError(t, err)
	st := cam.waitStream(t, 1)
	close(st.frames)

	out := awaitOutcome(t, ch)
	assert.Equal(t, service.EndCameraError, out.Reason)
	assert.ErrorIs(t, out.Err, service.ErrCameraStopped)
	assert.True(t, st.closed.Load())
}

func TestScan_StartWhileScanning(t *testing.T) {
	cam := &fakeCamera{}
	ctrl, _ := newTestController(t, cam)

	ch, err := ctrl.Start(context.Background())
	require.NoError(t, err)

	_, err = ctrl.Start(context.Background())
	assert.ErrorIs(t, err, service.ErrAlreadyScanning)

	ctrl.Cancel()
	awaitOutcome(t, ch)

	// A new session is allowed once idle.
	ch, err = ctrl.Start(context.Background())
	require.NoError(t, err)
	ctrl.Cancel()
	awaitOutcome(t, ch)
}

// ── Facing ───────────────────────────────────────────────────────────────────

func TestScan_ToggleFacingOnlyWhileScanning(t *testing.T) {
	cam := &fakeCamera{}
	ctrl, _ := newTestController(t, cam)

	_, err := ctrl.ToggleFacing()
	assert.ErrorIs(t, err, service.ErrNotScanning)
	assert.Equal(t, types.FacingEnvironment, ctrl.Facing())
}

func TestScan_ToggleFacingReopensCamera(t *testing.T) {
	cam := &fakeCamera{}
	ctrl, _ := newTestController(t, cam)

	ch, err := ctrl.Start(context.Background())
	require.NoError(t, err)
	first := cam.waitStream(t, 1)

	f, err := ctrl.ToggleFacing()
	require.NoError(t, err)
	assert.Equal(t, types.FacingUser, f)

	second := cam.waitStream(t, 2)
	assert.True(t, first.closed.Load(), "old camera released before switching")

	second.frames <- frame("test@example.com")
	out := awaitOutcome(t, ch)
	assert.Equal(t, service.EndDecoded, out.Reason)
	assert.Equal(t, types.FacingUser, out.Facing)
	assert.True(t, second.closed.Load())

	assert.Equal(t, []types.Facing{types.FacingEnvironment, types.FacingUser}, cam.openedFacings())
	assert.Equal(t, types.FacingUser, ctrl.Facing(), "facing carries over to the next session")
}
