// Package txn is the Go stand-in for the ambient, process-wide two-phase
// transaction coordinator the original design binds into: here it is an
// explicit, session-scoped Manager that a gitfs.Session drives from its
// Commit and Abort methods.
package txn

import "sort"

// Participant is a two-phase commit collaborator. Vote performs
// read-only gating checks (may fail and abort the whole transaction);
// Finish performs irrevocable writes and must not fail for reasons a
// caller could have avoided by calling Vote first.
type Participant interface {
	Begin() error
	Vote() error
	Finish() error
	Abort()
	SortKey() string
}

// Manager coordinates zero or more participants through one
// transaction's lifecycle.
type Manager struct {
	participants []Participant
}

// NewManager returns an empty, ready-to-use Manager.
func NewManager() *Manager {
	return &Manager{}
}

// Register adds a participant to the current transaction. Safe to call
// multiple times with the same participant only if the participant
// itself is idempotent about repeated Begin calls; gitfs.Session never
// registers the same Coordinator twice per transaction.
func (m *Manager) Register(p Participant) error {
	if err := p.Begin(); err != nil {
		return err
	}
	m.participants = append(m.participants, p)
	return nil
}

// sorted returns participants ordered by SortKey, ascending.
func (m *Manager) sorted() []Participant {
	out := make([]Participant, len(m.participants))
	copy(out, m.participants)
	sort.Slice(out, func(i, j int) bool { return out[i].SortKey() < out[j].SortKey() })
	return out
}

// Commit runs the two-phase protocol: Vote on every participant (in
// SortKey order) before Finish on any of them. If any Vote fails, every
// registered participant is aborted and the first Vote error is
// returned. Finish failures propagate immediately without aborting
// participants that already finished.
func (m *Manager) Commit() error {
	ordered := m.sorted()

	for _, p := range ordered {
		if err := p.Vote(); err != nil {
			for _, ap := range ordered {
				ap.Abort()
			}
			m.participants = nil
			return err
		}
	}

	for _, p := range ordered {
		if err := p.Finish(); err != nil {
			m.participants = nil
			return err
		}
	}

	m.participants = nil
	return nil
}

// Abort aborts every registered participant and clears the transaction.
func (m *Manager) Abort() {
	for _, p := range m.participants {
		p.Abort()
	}
	m.participants = nil
}
