package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/qrscan/internal/qrscan/classify"
	"github.com/BrandonDHaskell/qrscan/internal/qrscan/store"
	"github.com/BrandonDHaskell/qrscan/internal/qrscan/types"
)

var (
	ErrEmptyData = errors.New("scan data is required")

	// ErrPersistenceUnavailable marks degraded mode: the last write to the
	// key-value store failed and the in-memory history is authoritative.
	ErrPersistenceUnavailable = errors.New("history persistence unavailable")
)

// ExportFile is a download artifact produced by HistoryService.Export.
type ExportFile struct {
	Name string
	Data []byte
}

type HistoryOptions struct {
	// Now defaults to time.Now.
	Now    func() time.Time
	Logger *zap.Logger

	// OnPersistChange is called whenever the store enters or leaves
	// degraded mode, with the new PersistErr value.  It runs under the
	// service lock and must not call back into the service.
	OnPersistChange func(err error)
}

// HistoryService owns the ordered scan history (newest first) and writes it
// through to the key-value store after every mutation.
type HistoryService struct {
	kv     store.KVStore
	now    func() time.Time
	logger *zap.Logger
	notify func(error)

	mu         sync.RWMutex
	records    []types.ScanRecord
	lastID     int64
	persistErr error
}

// NewHistoryService loads the persisted history once.  Load problems never
// fail construction: the service starts empty in degraded mode instead.
func NewHistoryService(ctx context.Context, kv store.KVStore, opts HistoryOptions) *HistoryService {
	s := &HistoryService{
		kv:     kv,
		now:    opts.Now,
		logger: opts.Logger,
		notify: opts.OnPersistChange,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.load(ctx)
	return s
}

func (s *HistoryService) load(ctx context.Context) {
	blob, err := s.kv.Get(ctx, store.KeyHistory)
	if errors.Is(err, store.ErrNotFound) {
		return
	}
	if err != nil {
		s.setPersistErr(fmt.Errorf("%w: load: %v", ErrPersistenceUnavailable, err))
		return
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(blob, &raw); err != nil {
		// Keep the bad blob on disk until the next mutation replaces it.
		s.setPersistErr(fmt.Errorf("%w: corrupt history blob: %v", ErrPersistenceUnavailable, err))
		return
	}

	recs := make([]types.ScanRecord, 0, len(raw))
	for i, r := range raw {
		rec, err := types.DecodeRecord(r, classify.Classify)
		if err != nil {
			s.logger.Warn("skipping invalid persisted scan record", zap.Int("index", i), zap.Error(err))
			continue
		}
		recs = append(recs, rec)
		if rec.ID > s.lastID {
			s.lastID = rec.ID
		}
	}
	s.records = recs
	s.logger.Debug("history loaded", zap.Int("records", len(recs)))
}

// Append records a new scan at the front of the history.  It only fails for
// empty data; a failed write leaves the record in memory (degraded mode).
func (s *HistoryService) Append(ctx context.Context, data string) (types.ScanRecord, error) {
	if strings.TrimSpace(data) == "" {
		return types.ScanRecord{}, ErrEmptyData
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rec, err := types.NewScanRecord(s.nextID(now), data, now, classify.Classify(data))
	if err != nil {
		return types.ScanRecord{}, err
	}

	recs := make([]types.ScanRecord, 0, len(s.records)+1)
	recs = append(recs, rec)
	s.records = append(recs, s.records...)
	s.persist(ctx)

	s.logger.Debug("scan recorded", zap.Int64("id", rec.ID), zap.String("type", string(rec.Type)))
	return rec, nil
}

// nextID derives ids from the clock in milliseconds, bumped past every id
// already issued or loaded so two scans in one millisecond stay distinct.
func (s *HistoryService) nextID(now time.Time) int64 {
	id := now.UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

// DeleteByID removes the first record with id.  Absent ids are a no-op and
// report false.
func (s *HistoryService) DeleteByID(ctx context.Context, id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, r := range s.records {
		if r.ID != id {
			continue
		}
		recs := make([]types.ScanRecord, 0, len(s.records)-1)
		recs = append(recs, s.records[:i]...)
		s.records = append(recs, s.records[i+1:]...)
		s.persist(ctx)
		return true
	}
	return false
}

// Clear empties the history.  Callers must have confirmed with the user.
func (s *HistoryService) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
	s.persist(ctx)
	s.logger.Info("history cleared")
}

// Export renders the full history as indented JSON.  It reads the in-memory
// state only.
func (s *HistoryService) Export(now time.Time) (ExportFile, error) {
	recs := s.Records()

	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return ExportFile{}, fmt.Errorf("export marshal: %w", err)
	}
	return ExportFile{
		Name: ExportFileName(now),
		Data: data,
	}, nil
}

// ExportFileName is qr-scan-history-<YYYY-MM-DD>.json for the UTC date.
func ExportFileName(now time.Time) string {
	return "qr-scan-history-" + now.UTC().Format("2006-01-02") + ".json"
}

// Import prepends the records in contents ahead of the existing history, in
// file order.  Ids are not checked against existing records, so importing
// the same file twice yields duplicates.  History is unchanged on error.
func (s *HistoryService) Import(ctx context.Context, contents []byte) (int, error) {
	var top json.RawMessage
	if err := json.Unmarshal(contents, &top); err != nil {
		return 0, &types.ImportError{Kind: types.ImportParseFailure, Index: -1, Err: err}
	}
	if !bytes.HasPrefix(bytes.TrimSpace(top), []byte("[")) {
		return 0, &types.ImportError{Kind: types.ImportMalformedFormat, Index: -1}
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(top, &raw); err != nil {
		return 0, &types.ImportError{Kind: types.ImportMalformedFormat, Index: -1, Err: err}
	}

	imported := make([]types.ScanRecord, 0, len(raw))
	for i, r := range raw {
		rec, err := types.DecodeRecord(r, classify.Classify)
		if err != nil {
			return 0, &types.ImportError{Kind: types.ImportMalformedFormat, Index: i, Err: err}
		}
		imported = append(imported, rec)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range imported {
		if r.ID > s.lastID {
			s.lastID = r.ID
		}
	}
	s.records = append(imported, s.records...)
	s.persist(ctx)

	s.logger.Info("history imported", zap.Int("records", len(imported)), zap.Int("total", len(s.records)))
	return len(imported), nil
}

// PruneOlderThan drops records created before cutoff.  Unlike the other
// mutations it reports a failed write, so the pruner can log it.
func (s *HistoryService) PruneOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]types.ScanRecord, 0, len(s.records))
	for _, r := range s.records {
		if !r.Timestamp.Before(cutoff) {
			kept = append(kept, r)
		}
	}
	removed := len(s.records) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	s.records = kept
	s.persist(ctx)
	return removed, s.persistErr
}

// Records returns a copy of the history, newest first.
func (s *HistoryService) Records() []types.ScanRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.ScanRecord, len(s.records))
	copy(out, s.records)
	return out
}

func (s *HistoryService) Get(id int64) (types.ScanRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.records {
		if r.ID == id {
			return r, true
		}
	}
	return types.ScanRecord{}, false
}

func (s *HistoryService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// PersistErr is nil unless the service is in degraded mode.
func (s *HistoryService) PersistErr() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.persistErr
}

// persist writes the whole history blob.  Callers hold s.mu.  The write is
// detached from ctx cancellation: a queued upsert can still commit after the
// caller goes away, and reporting that as degraded would be wrong.
func (s *HistoryService) persist(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)

	recs := s.records
	if recs == nil {
		recs = []types.ScanRecord{}
	}

	blob, err := json.Marshal(recs)
	if err == nil {
		err = s.kv.Put(ctx, store.KeyHistory, blob)
	}
	if err != nil {
		s.setPersistErr(fmt.Errorf("%w: %v", ErrPersistenceUnavailable, err))
		return
	}
	s.setPersistErr(nil)
}

func (s *HistoryService) setPersistErr(err error) {
	was := s.persistErr
	s.persistErr = err

	switch {
	case err != nil && was == nil:
		s.logger.Warn("history persistence degraded; keeping scans in memory", zap.Error(err))
	case err == nil && was != nil:
		s.logger.Info("history persistence restored")
	default:
		return
	}
	if s.notify != nil {
		s.notify(err)
	}
}
