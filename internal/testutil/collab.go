package testutil

import (
	"context"
	"sync"

	"github.com/fiscalmesh/fiscalmesh/core"
)

// StaticBlacklist is a BlacklistChecker backed by a fixed map; unknown tax
// IDs are clear.
type StaticBlacklist struct {
	Entries map[string]core.BlacklistStatus
	Err     error
}

var _ core.BlacklistChecker = (*StaticBlacklist)(nil)

func (s *StaticBlacklist) CheckBlacklist(_ context.Context, taxID string) (core.BlacklistStatus, error) {
	if s.Err != nil {
		return "", s.Err
	}
	if st, ok := s.Entries[taxID]; ok {
		return st, nil
	}
	return core.BlacklistClear, nil
}

// StaticEvidence is an EvidenceRepository answering the same for every
// transaction, switchable mid-test to exercise resolvable locks.
type StaticEvidence struct {
	mu      sync.Mutex
	present bool
	Err     error
}

var _ core.EvidenceRepository = (*StaticEvidence)(nil)

func NewStaticEvidence(present bool) *StaticEvidence {
	return &StaticEvidence{present: present}
}

func (s *StaticEvidence) SetPresent(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.present = v
}

func (s *StaticEvidence) HasArtifacts(context.Context, string, []core.ArtifactType) (bool, error) {
	if s.Err != nil {
		return false, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.present, nil
}

// CapturingNotifier records every notification for assertions.
type CapturingNotifier struct {
	mu     sync.Mutex
	events []core.Notification
}

var _ core.Notifier = (*CapturingNotifier)(nil)

func (c *CapturingNotifier) Notify(n core.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, n)
}

func (c *CapturingNotifier) Events() []core.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]core.Notification, len(c.events))
	copy(out, c.events)
	return out
}
