// Package storage keeps per-guild bot records (command history, reply
// locale) in the shared datastore file.
package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/BaptisteLeDev/Moodioos/datastore"
)

const commandHistoryLimit = 20

// CommandHistoryRecord is one executed command, kept for the stats endpoint.
type CommandHistoryRecord struct {
	ChannelID string    `json:"channel_id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Command   string    `json:"command"`
	Datetime  time.Time `json:"datetime"`
}

// Record is everything stored for one guild.
type Record struct {
	CommandsHistoryList []CommandHistoryRecord `json:"cmd_history"`
	CommandsServed      int                    `json:"cmds_served"`
	Locale              string                 `json:"locale"`
}

type Storage struct {
	ds *datastore.DataStore
}

func New(filePath string) (*Storage, error) {
	ds, err := datastore.New(filePath)
	if err != nil {
		return nil, err
	}
	return &Storage{ds: ds}, nil
}

func (s *Storage) Close() error {
	return s.ds.Close()
}

// getOrCreateGuildRecord fetches a guild's record, creating an empty one the
// first time the guild is seen. The datastore hands back generic maps, so the
// record round-trips through JSON.
func (s *Storage) getOrCreateGuildRecord(guildID string) (*Record, error) {
	data, exists := s.ds.Get(guildID)
	if !exists {
		newRecord := &Record{
			CommandsHistoryList: []CommandHistoryRecord{},
			Locale:              "en",
		}
		s.ds.Add(guildID, newRecord)
		return newRecord, nil
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("error marshalling guild record: %w", err)
	}

	var record Record
	if err := json.Unmarshal(jsonData, &record); err != nil {
		return nil, fmt.Errorf("error unmarshalling guild record: %w", err)
	}

	if record.Locale == "" {
		record.Locale = "en"
	}
	if len(record.CommandsHistoryList) > commandHistoryLimit {
		record.CommandsHistoryList = record.CommandsHistoryList[len(record.CommandsHistoryList)-commandHistoryLimit:]
	}

	return &record, nil
}

// AppendCommandToHistory records a command execution for a guild, keeping
// only the most recent entries.
func (s *Storage) AppendCommandToHistory(guildID string, cmd CommandHistoryRecord) error {
	record, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return err
	}

	record.CommandsHistoryList = append(record.CommandsHistoryList, cmd)
	if len(record.CommandsHistoryList) > commandHistoryLimit {
		record.CommandsHistoryList = record.CommandsHistoryList[len(record.CommandsHistoryList)-commandHistoryLimit:]
	}
	record.CommandsServed++
	s.ds.Add(guildID, record)
	return nil
}

// FetchCommandHistory returns the recent command history for a guild.
func (s *Storage) FetchCommandHistory(guildID string) ([]CommandHistoryRecord, error) {
	record, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return nil, err
	}
	return record.CommandsHistoryList, nil
}

// SetLocale sets the guild's reply locale.
func (s *Storage) SetLocale(guildID, locale string) error {
	record, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return err
	}
	record.Locale = locale
	s.ds.Add(guildID, record)
	return nil
}

// GetLocale returns the guild's reply locale, defaulting to English.
func (s *Storage) GetLocale(guildID string) string {
	record, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return "en"
	}
	return record.Locale
}

// TotalCommandsServed sums the command counters of every known guild, for
// the stats endpoint.
func (s *Storage) TotalCommandsServed() int {
	total := 0
	for _, guildID := range s.ds.Keys() {
		record, err := s.getOrCreateGuildRecord(guildID)
		if err != nil {
			continue
		}
		total += record.CommandsServed
	}
	return total
}
