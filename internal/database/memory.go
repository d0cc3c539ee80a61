package database

import (
	"context"
	"sync"
)

// memoryStore keeps workflow state for the lifetime of the process.
type memoryStore struct {
	mu             sync.Mutex
	samples        []string
	sampleMessages map[int]int64
	labels         map[int64]string
	responses      map[string]int
	adminGroup     int64
}

// NewMemoryStore returns a Store that keeps everything in memory. Sample ids
// are ordinals starting at 0.
func NewMemoryStore(defaultAdminGroup int64) Store {
	return &memoryStore{
		sampleMessages: make(map[int]int64),
		labels:         make(map[int64]string),
		responses:      make(map[string]int),
		adminGroup:     defaultAdminGroup,
	}
}

func (s *memoryStore) AddSample(_ context.Context, text string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = append(s.samples, text)
	return int64(len(s.samples) - 1), nil
}

func (s *memoryStore) LinkSampleToMessage(_ context.Context, messageID int, sampleID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sampleMessages[messageID] = sampleID
	return nil
}

func (s *memoryStore) SampleForMessage(_ context.Context, messageID int) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.sampleMessages[messageID]
	return id, ok, nil
}

func (s *memoryStore) SetLabel(_ context.Context, sampleID int64, intent string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.labels[sampleID] = intent
	return nil
}

func (s *memoryStore) Label(_ context.Context, sampleID int64) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	intent, ok := s.labels[sampleID]
	return intent, ok, nil
}

func (s *memoryStore) SetResponse(_ context.Context, intent string, messageID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[intent] = messageID
	return nil
}

func (s *memoryStore) Response(_ context.Context, intent string) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.responses[intent]
	return id, ok, nil
}

func (s *memoryStore) AdminGroup(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adminGroup, nil
}

func (s *memoryStore) SetAdminGroup(_ context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adminGroup = chatID
	return nil
}

func (s *memoryStore) Stats(context.Context) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Samples:      len(s.samples),
		Labels:       len(s.labels),
		Responses:    len(s.responses),
		AdminGroupID: s.adminGroup,
	}, nil
}

func (s *memoryStore) RunSQLMaintenance(context.Context) error { return nil }

func (s *memoryStore) Close() error { return nil }
