package pipeline

import (
	"sync"
	"time"

	"github.com/dgallion1/sumzero/internal/arc"
)

// ArcEntry is an uploaded, parsed arc.
type ArcEntry struct {
	ID        string
	Filename  string
	Doc       *arc.Document
	CreatedAt time.Time
}

// ArcID derives a stable id from the processed text of an arc.
func ArcID(doc *arc.Document) string {
	return ContentHashHex([]byte(doc.Text()))[:16]
}

// ArcStore holds parsed arcs in memory with TTL eviction.
type ArcStore struct {
	mu   sync.Mutex
	arcs map[string]*ArcEntry
	ttl  time.Duration
}

func NewArcStore(ttl time.Duration) *ArcStore {
	return &ArcStore{arcs: make(map[string]*ArcEntry), ttl: ttl}
}

// Put stores a document and returns its entry. Uploading the same text
// again refreshes the existing entry.
func (s *ArcStore) Put(filename string, doc *arc.Document) *ArcEntry {
	e := &ArcEntry{ID: ArcID(doc), Filename: filename, Doc: doc, CreatedAt: time.Now()}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.arcs[e.ID] = e
	return e
}

func (s *ArcStore) Get(id string) *ArcEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.arcs[id]
}

// Cleanup removes expired arcs.
func (s *ArcStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, e := range s.arcs {
		if now.Sub(e.CreatedAt) > s.ttl {
			delete(s.arcs, id)
		}
	}
}
