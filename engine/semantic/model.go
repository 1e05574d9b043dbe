package semantic

import "github.com/google/uuid"

// SearchResult is a single similarity search hit.
type SearchResult struct {
	ID      string         `json:"id"`
	Score   float32        `json:"score"`
	Payload map[string]any `json:"payload"`
}

// VectorRecord is one vector to store. ID is the sanitized record id; the
// Qdrant point id is derived from it with PointID.
type VectorRecord struct {
	ID        string
	Embedding []float32
	Payload   map[string]any
}

// CollectionInfo describes the target collection.
type CollectionInfo struct {
	Name       string
	Exists     bool
	VectorSize int
}

// PayloadRecordID is the payload key holding the readable record id.
const PayloadRecordID = "record_id"

// PointID maps a record id onto a deterministic UUIDv5, so upserting the
// same record twice overwrites the point.
func PointID(recordID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(recordID)).String()
}
