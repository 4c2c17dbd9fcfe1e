package psd

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/gopsd/psd/format"
	"github.com/gopsd/psd/imageio"
)

// LinkType says whether a linked source travels inside the document or
// is referenced externally.
type LinkType int

const (
	// LinkData embeds the source bytes in the document.
	LinkData LinkType = iota
	// LinkExternal references the source on disk by name only.
	LinkExternal
)

// LinkedLayerData is one shared smart-object source asset: its filename,
// the original bytes when embedded, and a decoded-pixel cache. Entries
// are keyed by the content hash of the source bytes; any number of
// smart-object layers may reference one entry.
type LinkedLayerData struct {
	Filename string
	Hash     string
	Type     LinkType
	Data     []byte

	decodeOnce sync.Once
	decoded    *imageio.Image
	decodeErr  error
}

// Image decodes the embedded source bytes through the given codec,
// caching the result for subsequent callers.
func (d *LinkedLayerData) Image(codec imageio.Codec) (*imageio.Image, error) {
	d.decodeOnce.Do(func() {
		if len(d.Data) == 0 {
			d.decodeErr = fmt.Errorf("%w: linked layer %q has no embedded data", ErrInvalidArgument, d.Filename)
			return
		}
		d.decoded, d.decodeErr = codec.ReadBytes(d.Data)
	})
	return d.decoded, d.decodeErr
}

// ContentHash computes the store key for a source file's bytes.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// LinkedLayerStore is the document-level map from content hash to linked
// source data. Registration takes the write lock; smart-object reads
// share the read lock.
type LinkedLayerStore struct {
	mu      sync.RWMutex
	entries map[string]*LinkedLayerData
}

// NewLinkedLayerStore creates an empty store.
func NewLinkedLayerStore() *LinkedLayerStore {
	return &LinkedLayerStore{entries: make(map[string]*LinkedLayerData)}
}

// Insert registers source bytes under their content hash and returns the
// hash. Inserting the same bytes twice shares the existing entry.
func (s *LinkedLayerStore) Insert(filename string, data []byte, linkType LinkType) string {
	hash := ContentHash(data)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[hash]; !ok {
		s.entries[hash] = &LinkedLayerData{
			Filename: filename,
			Hash:     hash,
			Type:     linkType,
			Data:     data,
		}
	}
	return hash
}

// Get returns the entry for a content hash.
func (s *LinkedLayerStore) Get(hash string) (*LinkedLayerData, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[hash]
	return entry, ok
}

// Hashes returns the registered content hashes.
func (s *LinkedLayerStore) Hashes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.entries))
	for hash := range s.entries {
		out = append(out, hash)
	}
	return out
}

// GarbageCollect drops every entry whose hash is not in referenced.
// Called at write time; entry lifetime belongs to the document, not to
// any individual layer.
func (s *LinkedLayerStore) GarbageCollect(referenced map[string]bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for hash := range s.entries {
		if !referenced[hash] {
			delete(s.entries, hash)
		}
	}
}

// entryFromFormat converts a parsed linked-layer block entry.
func entryFromFormat(e format.LinkedLayerEntry) *LinkedLayerData {
	linkType := LinkData
	if e.Type == format.LinkedExternal {
		linkType = LinkExternal
	}
	return &LinkedLayerData{
		Filename: e.Filename,
		Hash:     ContentHash(e.Data),
		Type:     linkType,
		Data:     e.Data,
	}
}

// toFormat converts an entry for serialization.
func (d *LinkedLayerData) toFormat() format.LinkedLayerEntry {
	linkType := format.LinkedData
	if d.Type == LinkExternal {
		linkType = format.LinkedExternal
	}
	return format.LinkedLayerEntry{
		Type:     linkType,
		Version:  7,
		UniqueID: d.Hash[:min(len(d.Hash), 36)],
		Filename: d.Filename,
		FileType: "    ",
		Creator:  "8BIM",
		Data:     d.Data,
	}
}
