package httpapi

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/BrandonDHaskell/qrscan/internal/qrscan/types"
)

// ── History ──────────────────────────────────────────────────────────────────

// historyToProto carries records as a google.protobuf.ListValue of Structs
// with the same keys as the JSON export.
func historyToProto(recs []types.ScanRecord) (*structpb.ListValue, error) {
	blob, err := json.Marshal(recs)
	if err != nil {
		return nil, fmt.Errorf("marshal history: %w", err)
	}
	var list structpb.ListValue
	if err := protojson.Unmarshal(blob, &list); err != nil {
		return nil, fmt.Errorf("history to proto: %w", err)
	}
	return &list, nil
}

// importFromProto turns a protobuf ListValue back into export-format JSON so
// both encodings go through the same import validation.
func importFromProto(list *structpb.ListValue) ([]byte, error) {
	return protojson.Marshal(list)
}
