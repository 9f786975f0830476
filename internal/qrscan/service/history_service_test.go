package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/qrscan/internal/qrscan/service"
	"github.com/BrandonDHaskell/qrscan/internal/qrscan/store"
	"github.com/BrandonDHaskell/qrscan/internal/qrscan/store/memory"
	"github.com/BrandonDHaskell/qrscan/internal/qrscan/types"
)

// fakeClock returns a fixed instant that tests advance by hand.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 10, 19, 8, 30, 0, 123_000_000, time.UTC)}
}

// newTestHistory builds a HistoryService over an in-memory store.
func newTestHistory(t *testing.T) (*service.HistoryService, *memory.Store, *fakeClock) {
	t.Helper()
	kv := memory.New()
	clock := newClock()
	svc := service.NewHistoryService(context.Background(), kv, service.HistoryOptions{Now: clock.Now})
	return svc, kv, clock
}

func persisted(t *testing.T, kv *memory.Store) []types.ScanRecord {
	t.Helper()
	blob, err := kv.Get(context.Background(), store.KeyHistory)
	require.NoError(t, err)
	var out []types.ScanRecord
	require.NoError(t, json.Unmarshal(blob, &out))
	return out
}

// ── Append ───────────────────────────────────────────────────────────────────

func TestAppend_PrependsAndPersists(t *testing.T) {
	svc, kv, clock := newTestHistory(t)
	ctx := context.Background()

	first, err := svc.Append(ctx, "https://example.com")
	require.NoError(t, err)
	clock.Advance(time.Second)
	second, err := svc.Append(ctx, "hello world")
	require.NoError(t, err)

	recs := svc.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, second.ID, recs[0].ID, "newest record must be first")
	assert.Equal(t, first.ID, recs[1].ID)

	assert.Equal(t, types.CategoryURL, first.Type)
	assert.Equal(t, types.CategoryText, second.Type)
	assert.Equal(t, clock.Now().UnixMilli(), second.ID)
	assert.True(t, second.Timestamp.Equal(clock.Now()))

	if diff := cmp.Diff(recs, persisted(t, kv)); diff != "" {
		t.Errorf("persisted history differs (-mem +kv):\n%s", diff)
	}
}

func TestAppend_IncreasesLengthByOne(t *testing.T) {
	svc, _, _ := newTestHistory(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		before := svc.Len()
		rec, err := svc.Append(ctx, "payload")
		require.NoError(t, err)
		assert.Equal(t, before+1, svc.Len())
		assert.Equal(t, rec.ID, svc.Records()[0].ID)
	}
}

func TestAppend_SameMillisecondGetsUniqueIDs(t *testing.T) {
	svc, _, _ := newTestHistory(t)
	ctx := context.Background()

	seen := map[int64]bool{}
	for i := 0; i < 10; i++ {
		rec, err := svc.Append(ctx, "same instant")
		require.NoError(t, err)
		require.False(t, seen[rec.ID], "duplicate id %d", rec.ID)
		seen[rec.ID] = true
	}
}

func TestAppend_EmptyDataRejected(t *testing.T) {
	svc, kv, _ := newTestHistory(t)

	_, err := svc.Append(context.Background(), "   ")
	require.ErrorIs(t, err, service.ErrEmptyData)
	assert.Equal(t, 0, svc.Len())
	assert.Equal(t, 0, kv.Writes())
}

func TestAppend_DegradedModeKeepsRecordInMemory(t *testing.T) {
	svc, kv, _ := newTestHistory(t)
	ctx := context.Background()

	kv.FailWrites(errors.New("disk full"))
	rec, err := svc.Append(ctx, "example.com")
	require.NoError(t, err, "append must not fail when persistence is down")
	assert.Equal(t, 1, svc.Len())
	assert.Equal(t, rec.ID, svc.Records()[0].ID)
	require.ErrorIs(t, svc.PersistErr(), service.ErrPersistenceUnavailable)

	kv.FailWrites(nil)
	_, err = svc.Append(ctx, "second")
	require.NoError(t, err)
	assert.NoError(t, svc.PersistErr())
	assert.Len(t, persisted(t, kv), 2, "recovery write carries the in-memory history")
}

// cancelAwareKV fails writes on a done context, like a queued worker write.
type cancelAwareKV struct {
	*memory.Store
}

func (c cancelAwareKV) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.Store.Put(ctx, key, value)
}

func TestAppend_CancelledCallerStillPersists(t *testing.T) {
	kv := memory.New()
	svc := service.NewHistoryService(context.Background(), cancelAwareKV{kv}, service.HistoryOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Append(ctx, "https://example.com")
	require.NoError(t, err)
	assert.NoError(t, svc.PersistErr(), "caller cancellation is not a storage failure")
	assert.Len(t, persisted(t, kv), 1)

	svc.Clear(ctx)
	assert.NoError(t, svc.PersistErr())
	assert.Empty(t, persisted(t, kv))
}

func TestPersistChangeCallback(t *testing.T) {
	kv := memory.New()
	var events []error
	svc := service.NewHistoryService(context.Background(), kv, service.HistoryOptions{
		OnPersistChange: func(err error) { events = append(events, err) },
	})
	ctx := context.Background()

	kv.FailWrites(errors.New("locked"))
	_, _ = svc.Append(ctx, "a")
	_, _ = svc.Append(ctx, "b")
	kv.FailWrites(nil)
	_, _ = svc.Append(ctx, "c")

	require.Len(t, events, 2, "one event per transition")
	assert.ErrorIs(t, events[0], service.ErrPersistenceUnavailable)
	assert.NoError(t, events[1])
}

// ── Load ─────────────────────────────────────────────────────────────────────

func TestLoad_RestoresPersistedHistory(t *testing.T) {
	svc, kv, clock := newTestHistory(t)
	ctx := context.Background()

	_, err := svc.Append(ctx, "a@b.co")
	require.NoError(t, err)

	reloaded := service.NewHistoryService(ctx, kv, service.HistoryOptions{Now: clock.Now})
	if diff := cmp.Diff(svc.Records(), reloaded.Records()); diff != "" {
		t.Errorf("reloaded history differs:\n%s", diff)
	}

	// Same clock instant: the reloaded service must still issue a fresh id.
	rec, err := reloaded.Append(ctx, "again")
	require.NoError(t, err)
	assert.Greater(t, rec.ID, svc.Records()[0].ID)
}

func TestLoad_CorruptBlobStartsEmptyDegraded(t *testing.T) {
	kv := memory.New()
	ctx := context.Background()
	require.NoError(t, kv.Put(ctx, store.KeyHistory, []byte(`{not json`)))

	svc := service.NewHistoryService(ctx, kv, service.HistoryOptions{})
	assert.Equal(t, 0, svc.Len())
	assert.ErrorIs(t, svc.PersistErr(), service.ErrPersistenceUnavailable)

	blob, _ := kv.Get(ctx, store.KeyHistory)
	assert.Equal(t, `{not json`, string(blob), "load must not overwrite the blob")
}

// ── DeleteByID / Clear ───────────────────────────────────────────────────────

func TestDeleteByID(t *testing.T) {
	svc, kv, clock := newTestHistory(t)
	ctx := context.Background()

	a, _ := svc.Append(ctx, "a")
	clock.Advance(time.Millisecond)
	b, _ := svc.Append(ctx, "b")

	assert.True(t, svc.DeleteByID(ctx, a.ID))
	recs := svc.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, b.ID, recs[0].ID)
	assert.Len(t, persisted(t, kv), 1)
}

func TestDeleteByID_MissingIsNoop(t *testing.T) {
	svc, kv, _ := newTestHistory(t)
	ctx := context.Background()

	_, _ = svc.Append(ctx, "a")
	_, _ = svc.Append(ctx, "b")
	before := svc.Records()
	writes := kv.Writes()

	assert.False(t, svc.DeleteByID(ctx, 42))
	if diff := cmp.Diff(before, svc.Records()); diff != "" {
		t.Errorf("history changed on missing id:\n%s", diff)
	}
	assert.Equal(t, writes, kv.Writes(), "no-op must not write")
}

func TestClear_ThenExportIsEmptyArray(t *testing.T) {
	svc, kv, clock := newTestHistory(t)
	ctx := context.Background()

	_, _ = svc.Append(ctx, "a")
	_, _ = svc.Append(ctx, "b")
	svc.Clear(ctx)

	assert.Equal(t, 0, svc.Len())
	blob, err := kv.Get(ctx, store.KeyHistory)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(blob))

	f, err := svc.Export(clock.Now())
	require.NoError(t, err)
	assert.Equal(t, "[]", string(f.Data))
}

// ── Export / Import ──────────────────────────────────────────────────────────

func TestExport_NameAndFormat(t *testing.T) {
	svc, _, clock := newTestHistory(t)
	ctx := context.Background()

	_, _ = svc.Append(ctx, "test@example.com")
	f, err := svc.Export(clock.Now())
	require.NoError(t, err)

	assert.Equal(t, "qr-scan-history-2026-10-19.json", f.Name)
	assert.Contains(t, string(f.Data), "\n  {\n    \"id\": ")
	assert.Contains(t, string(f.Data), `"timestamp": "2026-10-19T08:30:00.123Z"`)
	assert.Contains(t, string(f.Data), `"type": "email"`)
}

func TestExportImport_RoundTrip(t *testing.T) {
	src, _, clock := newTestHistory(t)
	ctx := context.Background()

	for _, d := range []string{"example.com", "a@b.co", "+1-555-123-4567", "WIFI:S:x;;", "plain"} {
		_, err := src.Append(ctx, d)
		require.NoError(t, err)
		clock.Advance(1500 * time.Millisecond)
	}
	f, err := src.Export(clock.Now())
	require.NoError(t, err)

	dst, _, _ := newTestHistory(t)
	n, err := dst.Import(ctx, f.Data)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	if diff := cmp.Diff(src.Records(), dst.Records()); diff != "" {
		t.Errorf("round trip differs (-src +dst):\n%s", diff)
	}
}

func TestImport_PrependsAheadOfExisting(t *testing.T) {
	svc, kv, clock := newTestHistory(t)
	ctx := context.Background()

	existing, _ := svc.Append(ctx, "existing")
	clock.Advance(time.Second)

	file := []byte(`[
  {"id": 1, "data": "first", "timestamp": "2025-01-01T00:00:00.000Z", "type": "text"},
  {"id": 2, "data": "example.com", "timestamp": "2025-01-02T00:00:00Z"}
]`)
	n, err := svc.Import(ctx, file)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	recs := svc.Records()
	require.Len(t, recs, 3)
	assert.Equal(t, int64(1), recs[0].ID)
	assert.Equal(t, int64(2), recs[1].ID)
	assert.Equal(t, types.CategoryURL, recs[1].Type, "missing type is classified")
	assert.Equal(t, existing.ID, recs[2].ID)
	assert.Len(t, persisted(t, kv), 3)
}

func TestImport_DuplicateIDsAreKept(t *testing.T) {
	svc, _, clock := newTestHistory(t)
	ctx := context.Background()

	_, _ = svc.Append(ctx, "x")
	f, err := svc.Export(clock.Now())
	require.NoError(t, err)

	_, err = svc.Import(ctx, f.Data)
	require.NoError(t, err)
	recs := svc.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, recs[0].ID, recs[1].ID)
}

func TestImport_ObjectIsMalformed(t *testing.T) {
	svc, kv, _ := newTestHistory(t)
	ctx := context.Background()
	_, _ = svc.Append(ctx, "keep me")
	before := svc.Records()
	writes := kv.Writes()

	_, err := svc.Import(ctx, []byte("{}"))
	require.ErrorIs(t, err, types.ErrMalformedFormat)

	var ie *types.ImportError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, types.ImportMalformedFormat, ie.Kind)

	if diff := cmp.Diff(before, svc.Records()); diff != "" {
		t.Errorf("history changed on failed import:\n%s", diff)
	}
	assert.Equal(t, writes, kv.Writes())
}

func TestImport_Errors(t *testing.T) {
	tests := []struct {
		name  string
		file  string
		want  error
		index int
	}{
		{"not json", `not json at all`, types.ErrParseFailure, -1},
		{"empty file", ``, types.ErrParseFailure, -1},
		{"null", `null`, types.ErrMalformedFormat, -1},
		{"string", `"[]"`, types.ErrMalformedFormat, -1},
		{"missing data", `[{"id": 1, "timestamp": "2025-01-01T00:00:00Z"}]`, types.ErrMalformedFormat, 0},
		{"bad id", `[{"id": "x", "data": "d", "timestamp": "2025-01-01T00:00:00Z"}]`, types.ErrMalformedFormat, 0},
		{"zero id", `[{"id": 0, "data": "d", "timestamp": "2025-01-01T00:00:00Z"}]`, types.ErrMalformedFormat, 0},
		{"bad timestamp", `[{"id": 1, "data": "d", "timestamp": "yesterday"}]`, types.ErrMalformedFormat, 0},
		{"unknown type", `[{"id": 1, "data": "d", "timestamp": "2025-01-01T00:00:00Z", "type": "fax"}]`, types.ErrMalformedFormat, 0},
		{"second bad", `[{"id": 1, "data": "d", "timestamp": "2025-01-01T00:00:00Z"}, 7]`, types.ErrMalformedFormat, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTestHistory(t)
			_, err := svc.Import(context.Background(), []byte(tt.file))
			require.ErrorIs(t, err, tt.want)

			var ie *types.ImportError
			require.True(t, errors.As(err, &ie))
			assert.Equal(t, tt.index, ie.Index)
			assert.Equal(t, 0, svc.Len())
		})
	}
}

func TestImport_EmptyArray(t *testing.T) {
	svc, _, _ := newTestHistory(t)
	n, err := svc.Import(context.Background(), []byte(" [] "))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestImport_AppendAfterImportUsesFreshID(t *testing.T) {
	svc, _, clock := newTestHistory(t)
	ctx := context.Background()

	future := clock.Now().Add(time.Hour).UnixMilli()
	file := []byte(`[{"id": ` + itoa(future) + `, "data": "d", "timestamp": "2026-10-19T09:30:00Z"}]`)
	_, err := svc.Import(ctx, file)
	require.NoError(t, err)

	rec, err := svc.Append(ctx, "next")
	require.NoError(t, err)
	assert.Greater(t, rec.ID, future)
}

// ── Prune ────────────────────────────────────────────────────────────────────

func TestPruneOlderThan(t *testing.T) {
	svc, kv, clock := newTestHistory(t)
	ctx := context.Background()

	_, _ = svc.Append(ctx, "old")
	clock.Advance(48 * time.Hour)
	recent, _ := svc.Append(ctx, "recent")

	n, err := svc.PruneOlderThan(ctx, clock.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	recs := svc.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, recent.ID, recs[0].ID)
	assert.Len(t, persisted(t, kv), 1)

	n, err = svc.PruneOlderThan(ctx, clock.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestGet(t *testing.T) {
	svc, _, _ := newTestHistory(t)
	rec, _ := svc.Append(context.Background(), "find me")

	got, ok := svc.Get(rec.ID)
	require.True(t, ok)
	assert.Equal(t, "find me", got.Data)

	_, ok = svc.Get(rec.ID + 1)
	assert.False(t, ok)
}

func itoa(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
