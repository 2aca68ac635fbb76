// Package datastore is a small JSON-file-backed key/value store with
// periodic autosave and atomic writes. It backs the per-guild records; the
// scheduled-message file has its own store with a different on-disk shape.
package datastore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const autoSaveInterval = 10 * time.Second

// DataStore keeps the whole data set in memory and flushes it to one JSON
// file. Lifecycle is explicit: New loads (or creates) the file and starts the
// autosave loop; Close stops it and performs a final save.
type DataStore struct {
	file string

	mu   sync.RWMutex
	data map[string]any

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	lastChecksum string

	closeMu sync.Mutex
	closed  bool
}

// New opens the store at filePath, creating an empty file if none exists.
func New(filePath string) (*DataStore, error) {
	if filePath == "" {
		return nil, fmt.Errorf("file path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	ds := &DataStore{
		file:   filePath,
		data:   make(map[string]any),
		ctx:    ctx,
		cancel: cancel,
	}

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		if err := ds.writeFileAtomic([]byte("{}")); err != nil {
			cancel()
			return nil, fmt.Errorf("failed to create empty data file: %w", err)
		}
	} else if err == nil {
		if err := ds.loadFromFile(); err != nil {
			cancel()
			return nil, fmt.Errorf("failed to load data file: %w", err)
		}
	} else {
		cancel()
		return nil, fmt.Errorf("failed to stat data file: %w", err)
	}

	ds.wg.Add(1)
	go ds.autoSave()

	return ds, nil
}

// Add stores a key-value pair.
func (ds *DataStore) Add(key string, value any) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.data[key] = value
}

// Get retrieves a value by key.
func (ds *DataStore) Get(key string) (any, bool) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	value, exists := ds.data[key]
	return value, exists
}

// Delete removes a key-value pair.
func (ds *DataStore) Delete(key string) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	delete(ds.data, key)
}

// Keys returns every stored key.
func (ds *DataStore) Keys() []string {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	keys := make([]string, 0, len(ds.data))
	for k := range ds.data {
		keys = append(keys, k)
	}
	return keys
}

// SaveToFile forces an immediate flush to disk.
func (ds *DataStore) SaveToFile() error {
	return ds.saveToFile()
}

// Close stops the autosave loop and performs a final save. Safe to call more
// than once.
func (ds *DataStore) Close() error {
	ds.closeMu.Lock()
	if ds.closed {
		ds.closeMu.Unlock()
		return nil
	}
	ds.closed = true
	ds.closeMu.Unlock()

	ds.cancel()
	ds.wg.Wait()
	return ds.saveToFile()
}

func (ds *DataStore) saveToFile() error {
	ds.mu.RLock()
	data, err := json.MarshalIndent(ds.data, "", "  ")
	ds.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	checksum := checksum(data)
	if checksum == ds.lastChecksum {
		return nil
	}

	if err := ds.writeFileAtomic(data); err != nil {
		return err
	}
	ds.lastChecksum = checksum
	return nil
}

func (ds *DataStore) loadFromFile() error {
	data, err := os.ReadFile(ds.file)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var loaded map[string]any
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("invalid JSON in %s: %w", ds.file, err)
	}

	ds.mu.Lock()
	ds.data = loaded
	ds.mu.Unlock()
	ds.lastChecksum = checksum(data)
	return nil
}

// writeFileAtomic writes via temp file and rename so a crash never leaves a
// truncated data file.
func (ds *DataStore) writeFileAtomic(data []byte) error {
	tmp := ds.file + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmp, ds.file); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func (ds *DataStore) autoSave() {
	defer ds.wg.Done()

	ticker := time.NewTicker(autoSaveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ds.ctx.Done():
			return
		case <-ticker.C:
			if err := ds.saveToFile(); err != nil {
				log.Printf("[ERR] Datastore auto-save error: %v", err)
			}
		}
	}
}

func checksum(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
