// Package journal persists a determinism audit trail. Every served
// chart or timeline appends a (query hash, result hash) record; if the
// same query ever produces a different result hash, the engine's
// determinism contract is broken and the journal flags the drift.
package journal

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"
)

const (
	DefaultDir   = "./wal/journal"
	segmentLimit = 1000
	maxSegments  = 10

	recordKeyPrefix = "audit_"
)

// Record is one journal entry.
type Record struct {
	Kind       string    `json:"kind"` // chart | transit | timeline
	QueryHash  string    `json:"query_hash"`
	ResultHash string    `json:"result_hash"`
	Timestamp  time.Time `json:"timestamp_utc"`
}

// WALStore keeps audit records in a WAL and an in-memory index of the
// last result hash seen per query.
type WALStore struct {
	wal  *gowal.Wal
	mu   sync.Mutex
	seen map[string]string
}

// NewWALStore opens the journal and rebuilds the query index from the
// retained segments.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = DefaultDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "journal_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: false,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init journal WAL")
	}

	s := &WALStore{wal: wal, seen: make(map[string]string)}
	for idx := uint64(1); idx <= wal.CurrentIndex(); idx++ {
		_, payload, err := wal.Get(idx)
		if err != nil {
			continue
		}
		var rec Record
		if err := json.Unmarshal(payload, &rec); err != nil {
			continue
		}
		s.seen[rec.QueryHash] = rec.ResultHash
	}
	return s, nil
}

// Hash returns the canonical hex digest of a serialized query or
// result payload.
func Hash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Append writes a record and reports whether the query was seen before
// with a different result hash.
func (s *WALStore) Append(rec Record) (drift bool, err error) {
	if s == nil || s.wal == nil {
		return false, errors.New("journal is not initialized")
	}
	if rec.QueryHash == "" || rec.ResultHash == "" {
		return false, errors.New("journal record needs both hashes")
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return false, errors.Wrap(err, "marshal journal record")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.seen[rec.QueryHash]; ok && prev != rec.ResultHash {
		drift = true
	}
	s.seen[rec.QueryHash] = rec.ResultHash

	nextIndex := s.wal.CurrentIndex() + 1
	if err := s.wal.Write(nextIndex, recordKeyPrefix+rec.QueryHash, payload); err != nil {
		return drift, errors.Wrap(err, "write journal record")
	}
	return drift, nil
}

// RecordsAfter returns every record written after the given WAL index.
func (s *WALStore) RecordsAfter(index uint64) ([]Record, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("journal is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	records := make([]Record, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		_, payload, err := s.wal.Get(idx)
		if err != nil {
			continue
		}
		var rec Record
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, errors.Wrap(err, "decode journal record")
		}
		records = append(records, rec)
	}
	return records, nil
}

// Close flushes and closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return nil
	}
	return s.wal.Close()
}
