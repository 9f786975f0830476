package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the ISO-8601 form used for ScanRecord timestamps in
// persisted blobs and export files (UTC, millisecond precision).
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

var (
	ErrEmptyData        = errors.New("data is required")
	ErrInvalidID        = errors.New("id must be a positive integer")
	ErrMissingTimestamp = errors.New("timestamp is required")
	ErrInvalidCategory  = errors.New("unknown category")
)

// ScanRecord is one scan or manual entry event.  Records are immutable once
// created; the history only ever adds or removes whole records.
type ScanRecord struct {
	ID        int64
	Data      string
	Timestamp time.Time
	Type      Category
}

// NewScanRecord validates the fields and returns a record whose timestamp is
// normalised to UTC milliseconds.
func NewScanRecord(id int64, data string, ts time.Time, cat Category) (ScanRecord, error) {
	if id <= 0 {
		return ScanRecord{}, ErrInvalidID
	}
	if strings.TrimSpace(data) == "" {
		return ScanRecord{}, ErrEmptyData
	}
	if ts.IsZero() {
		return ScanRecord{}, ErrMissingTimestamp
	}
	if !cat.Valid() {
		return ScanRecord{}, fmt.Errorf("%w: %q", ErrInvalidCategory, cat)
	}
	return ScanRecord{
		ID:        id,
		Data:      data,
		Timestamp: ts.UTC().Truncate(time.Millisecond),
		Type:      cat,
	}, nil
}

// wireRecord is the JSON shape shared by the persisted blob and export files.
type wireRecord struct {
	ID        int64    `json:"id"`
	Data      string   `json:"data"`
	Timestamp string   `json:"timestamp"`
	Type      Category `json:"type,omitempty"`
}

func (r ScanRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireRecord{
		ID:        r.ID,
		Data:      r.Data,
		Timestamp: r.Timestamp.UTC().Format(TimestampLayout),
		Type:      r.Type,
	})
}

// UnmarshalJSON decodes the wire shape without validating it; use
// DecodeRecord when the input is untrusted.
func (r *ScanRecord) UnmarshalJSON(b []byte) error {
	var w wireRecord
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	ts, err := ParseTimestamp(w.Timestamp)
	if err != nil {
		return err
	}
	*r = ScanRecord{ID: w.ID, Data: w.Data, Timestamp: ts, Type: w.Type}
	return nil
}

// DecodeRecord parses and validates one untrusted record.  A missing type is
// filled in by classify; a present but unknown type is rejected.
func DecodeRecord(raw json.RawMessage, classify func(string) Category) (ScanRecord, error) {
	var w wireRecord
	if err := json.Unmarshal(raw, &w); err != nil {
		return ScanRecord{}, err
	}
	if strings.TrimSpace(w.Timestamp) == "" {
		return ScanRecord{}, ErrMissingTimestamp
	}
	ts, err := ParseTimestamp(w.Timestamp)
	if err != nil {
		return ScanRecord{}, err
	}
	cat := w.Type
	if cat == "" && classify != nil {
		cat = classify(w.Data)
	}
	return NewScanRecord(w.ID, w.Data, ts, cat)
}

// ParseTimestamp accepts RFC3339 with or without fractional seconds.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}
