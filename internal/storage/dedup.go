package storage

import (
	"crypto/md5"
	"encoding/hex"
	"sync"
	"time"
)

// DuplicateIndex tracks content digests per calendar day so identical
// payloads arriving again on the same day are stored only once. The index
// lives for one run; it is safe for concurrent use.
type DuplicateIndex struct {
	mu   sync.Mutex
	seen map[string]map[string]bool // day -> digest set
}

func NewDuplicateIndex() *DuplicateIndex {
	return &DuplicateIndex{
		seen: make(map[string]map[string]bool),
	}
}

// ContentDigest returns the hex digest used for duplicate detection.
func ContentDigest(content []byte) string {
	sum := md5.Sum(content)
	return hex.EncodeToString(sum[:])
}

// Register records a digest under the given day and reports whether it was
// new. Check and insert happen under one lock so concurrent callers cannot
// both see the digest as new.
func (di *DuplicateIndex) Register(day time.Time, digest string) bool {
	key := day.Format("2006-01-02")

	di.mu.Lock()
	defer di.mu.Unlock()

	digests, ok := di.seen[key]
	if !ok {
		digests = make(map[string]bool)
		di.seen[key] = digests
	}

	if digests[digest] {
		return false
	}
	digests[digest] = true
	return true
}
