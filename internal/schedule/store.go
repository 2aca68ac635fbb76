// Package schedule persists deferred direct messages in a flat JSON file and
// drives their periodic delivery.
package schedule

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a scheduled message. A message only ever
// moves pending → sent or pending → failed.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// Message is one deferred direct message. The JSON field names are the wire
// format of the schedule file and must not change.
type Message struct {
	ID           string    `json:"id"`
	TargetUserID string    `json:"targetUserId"`
	Content      string    `json:"content"`
	SendAt       time.Time `json:"sendAt"`
	CreatorID    *string   `json:"creatorId"`
	Status       Status    `json:"status"`
	Retries      int       `json:"retries"`
	LastError    *string   `json:"lastError"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Store owns the schedule file. All mutation goes through Store methods;
// every read-modify-write cycle is serialized by an in-process mutex so two
// callers scheduling at once cannot lose an update.
type Store struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewStore creates a store backed by the JSON file at path. The file is
// lazily created with an empty collection on first access.
func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// Schedule creates a pending message and persists the collection. The caller
// is responsible for validating that sendAt is a real timestamp; the store
// only records it. An empty creatorID is stored as null.
func (s *Store) Schedule(targetUserID, content string, sendAt time.Time, creatorID string) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := Message{
		ID:           uuid.NewString(),
		TargetUserID: targetUserID,
		Content:      content,
		SendAt:       sendAt.UTC(),
		Status:       StatusPending,
		CreatedAt:    s.now().UTC(),
	}
	if creatorID != "" {
		msg.CreatorID = &creatorID
	}

	msgs := append(s.load(), msg)
	if err := s.save(msgs); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// Pending returns every message that is still pending and due at asOf, in
// insertion order. A zero asOf means "now".
func (s *Store) Pending(asOf time.Time) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	if asOf.IsZero() {
		asOf = s.now()
	}

	var due []Message
	for _, msg := range s.load() {
		if msg.Status == StatusPending && !msg.SendAt.After(asOf) {
			due = append(due, msg)
		}
	}
	return due
}

// All returns the full collection, for introspection and the stats endpoint.
func (s *Store) All() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// MarkSent transitions a message to sent. An unknown id is silently ignored.
func (s *Store) MarkSent(id string) error {
	return s.update(id, func(msg *Message) {
		msg.Status = StatusSent
	})
}

// MarkFailed transitions a message to failed, bumps its retry counter and
// records the failure reason. An unknown id is silently ignored.
func (s *Store) MarkFailed(id, reason string) error {
	return s.update(id, func(msg *Message) {
		msg.Status = StatusFailed
		msg.Retries++
		msg.LastError = &reason
	})
}

// update applies fn to the message with the given id and persists the
// collection. Unknown ids leave the file untouched.
func (s *Store) update(id string, fn func(*Message)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.load()
	for i := range msgs {
		if msgs[i].ID == id {
			fn(&msgs[i])
			return s.save(msgs)
		}
	}
	return nil
}

// load reads the whole collection from disk. A missing file is an empty
// collection (and is created so the file exists from first access on); a
// corrupt file is logged and treated as empty rather than aborting the bot.
func (s *Store) load() []Message {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			if wErr := s.writeFileAtomic([]byte("[]")); wErr != nil {
				log.Printf("[WARN] Failed to create schedule file %s: %v", s.path, wErr)
			}
		} else {
			log.Printf("[WARN] Failed to read schedule file %s: %v", s.path, err)
		}
		return nil
	}

	var msgs []Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		log.Printf("[WARN] Schedule file %s is corrupt, starting over with an empty collection: %v", s.path, err)
		return nil
	}
	return msgs
}

// save writes the whole collection back to disk.
func (s *Store) save(msgs []Message) error {
	if msgs == nil {
		msgs = []Message{}
	}
	data, err := json.MarshalIndent(msgs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schedule: %w", err)
	}
	return s.writeFileAtomic(data)
}

// writeFileAtomic writes via a temp file and rename so a crash mid-write
// never leaves a truncated schedule behind.
func (s *Store) writeFileAtomic(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create schedule directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write schedule temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace schedule file: %w", err)
	}
	return nil
}
