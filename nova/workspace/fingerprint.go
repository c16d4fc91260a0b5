package workspace

import (
	"os"

	"github.com/sasha-s/go-deadlock"
)

// Fingerprint identifies a build file's content cheaply, without hashing
// the whole file: length plus a three-region content sample (spec §4.4).
// Two files with the same Fingerprint are treated as unchanged; an
// in-place same-length mutation that touches prefix, middle, or suffix
// still changes one of the three samples.
type Fingerprint struct {
	Len      int64
	Prefix   string
	Middle   string
	Suffix   string
	ModTime  int64 // used only when content sampling wasn't available
	ByMtime  bool
}

const sampleSize = 64

// FingerprintFile reads path's length and a prefix/middle/suffix content
// sample. If the file can't be read (permissions, vanished between stat and
// read), it falls back to (len, mtime) from the stat alone.
func FingerprintFile(path string) (Fingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Fingerprint{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Fingerprint{Len: info.Size(), ModTime: info.ModTime().UnixNano(), ByMtime: true}, nil
	}
	return Fingerprint{
		Len:    int64(len(data)),
		Prefix: sample(data, 0),
		Middle: sample(data, len(data)/2),
		Suffix: sample(data, len(data)-sampleSize),
	}, nil
}

func sample(data []byte, start int) string {
	if start < 0 {
		start = 0
	}
	end := start + sampleSize
	if end > len(data) {
		end = len(data)
	}
	if start > end {
		start = end
	}
	return string(data[start:end])
}

// Equal reports whether two fingerprints describe the same file content.
func (f Fingerprint) Equal(other Fingerprint) bool {
	if f.Len != other.Len {
		return false
	}
	if f.ByMtime || other.ByMtime {
		return f.ModTime == other.ModTime
	}
	return f.Prefix == other.Prefix && f.Middle == other.Middle && f.Suffix == other.Suffix
}

// Cache is the mutex-guarded per-project cache spec §5 describes: lookups
// never hold the lock while doing I/O (fingerprinting, parsing) — the lock
// is released during filesystem reads and re-acquired only to install the
// freshly computed entry. go-deadlock is the teacher's own indirect
// dependency (pulled in transitively via glsp's terminal handling),
// promoted here to a direct one guarding exactly the state spec §5 calls
// out as concurrently accessed.
type Cache struct {
	mu      deadlock.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	fingerprints map[string]Fingerprint
	model        *WorkspaceModel
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

// Get returns the cached model for root if every one of buildFiles still
// matches the fingerprint recorded when it was cached.
func (c *Cache) Get(root string, buildFiles []string) (*WorkspaceModel, bool) {
	c.mu.RLock()
	entry, ok := c.entries[root]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	// Fingerprinting does I/O; done without holding the lock.
	fresh := make(map[string]Fingerprint, len(buildFiles))
	for _, f := range buildFiles {
		fp, err := FingerprintFile(f)
		if err != nil {
			return nil, false
		}
		fresh[f] = fp
	}
	if len(fresh) != len(entry.fingerprints) {
		return nil, false
	}
	for f, fp := range fresh {
		old, ok := entry.fingerprints[f]
		if !ok || !old.Equal(fp) {
			return nil, false
		}
	}
	return entry.model, true
}

// Put installs model into the cache under root, fingerprinting buildFiles
// without holding the lock and re-acquiring it only to store the result.
func (c *Cache) Put(root string, buildFiles []string, model *WorkspaceModel) {
	fingerprints := make(map[string]Fingerprint, len(buildFiles))
	for _, f := range buildFiles {
		fp, err := FingerprintFile(f)
		if err == nil {
			fingerprints[f] = fp
		}
	}
	c.mu.Lock()
	c.entries[root] = cacheEntry{fingerprints: fingerprints, model: model}
	c.mu.Unlock()
}

// Invalidate drops the cached entry for root unconditionally.
func (c *Cache) Invalidate(root string) {
	c.mu.Lock()
	delete(c.entries, root)
	c.mu.Unlock()
}
