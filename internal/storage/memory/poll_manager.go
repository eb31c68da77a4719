package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/JakeFAU/lockss-laaws/internal/store"
)

// Poller statuses used by PollManager.
const (
	PollRunning  = "Running"
	PollComplete = "Complete"
	PollAborted  = "Aborted"
)

// KeyGenerator creates poll keys.
type KeyGenerator interface {
	NewID() (string, error)
}

// Clock supplies timestamps for poll state changes.
type Clock interface {
	Now() time.Time
}

// PollManager keeps polls in memory. Reads hand out deep copies so callers
// never observe later votes or repairs landing on a value they hold.
type PollManager struct {
	catalog store.AuCatalog
	keys    KeyGenerator
	clock   Clock

	mu      sync.RWMutex
	pollers map[string]store.PollerPoll
	voters  map[string]store.VoterPoll
	// active maps an AU to the key of its running poll.
	active map[string]string
}

// NewPollManager constructs a PollManager that checks AUs against catalog.
func NewPollManager(catalog store.AuCatalog, keys KeyGenerator, clock Clock) *PollManager {
	return &PollManager{
		catalog: catalog,
		keys:    keys,
		clock:   clock,
		pollers: make(map[string]store.PollerPoll),
		voters:  make(map[string]store.VoterPoll),
		active:  make(map[string]string),
	}
}

// PollerPolls returns every poll this node called.
func (m *PollManager) PollerPolls(_ context.Context) ([]store.PollerPoll, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return lo.Map(slices.Collect(maps.Values(m.pollers)), func(p store.PollerPoll, _ int) store.PollerPoll {
		return clonePoller(p)
	}), nil
}

// VoterPolls returns every poll this node votes in.
func (m *PollManager) VoterPolls(_ context.Context) ([]store.VoterPoll, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Collect(maps.Values(m.voters)), nil
}

// PollerPoll returns one called poll.
func (m *PollManager) PollerPoll(_ context.Context, key string) (store.PollerPoll, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pollers[key]
	if !ok {
		return store.PollerPoll{}, fmt.Errorf("poll %q: %w", key, store.ErrNotFound)
	}
	return clonePoller(p), nil
}

// VoterPoll returns one poll this node votes in.
func (m *PollManager) VoterPoll(_ context.Context, key string) (store.VoterPoll, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.voters[key]
	if !ok {
		return store.VoterPoll{}, fmt.Errorf("voter poll %q: %w", key, store.ErrNotFound)
	}
	return v, nil
}

// PollForAu returns the running poll on auID.
func (m *PollManager) PollForAu(_ context.Context, auID string) (store.PollerPoll, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	key, ok := m.active[auID]
	if !ok {
		return store.PollerPoll{}, fmt.Errorf("poll for au %q: %w", auID, store.ErrNotFound)
	}
	return clonePoller(m.pollers[key]), nil
}

// RequestPoll starts a poll on spec.AuID. Only one poll per AU runs at a time.
func (m *PollManager) RequestPoll(ctx context.Context, spec store.PollSpec) (store.PollerPoll, error) {
	ok, err := m.catalog.AuExists(ctx, spec.AuID)
	if err != nil {
		return store.PollerPoll{}, fmt.Errorf("lookup au %q: %w", spec.AuID, err)
	}
	if !ok {
		return store.PollerPoll{}, fmt.Errorf("au %q: %w", spec.AuID, store.ErrNotFound)
	}
	key, err := m.keys.NewID()
	if err != nil {
		return store.PollerPoll{}, fmt.Errorf("poll key: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if running, busy := m.active[spec.AuID]; busy {
		return store.PollerPoll{}, fmt.Errorf("au %q already polled by %s: %w", spec.AuID, running, store.ErrNotEligible)
	}
	p := store.PollerPoll{
		Key:     key,
		Spec:    spec,
		Status:  PollRunning,
		Created: m.clock.Now(),
	}
	m.pollers[key] = p
	m.active[spec.AuID] = key
	return clonePoller(p), nil
}

// StopPoll aborts the running poll on auID.
func (m *PollManager) StopPoll(_ context.Context, auID string) (store.PollerPoll, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key, ok := m.active[auID]
	if !ok {
		return store.PollerPoll{}, fmt.Errorf("poll for au %q: %w", auID, store.ErrNotFound)
	}
	p := m.pollers[key]
	p.Status = PollAborted
	end := m.clock.Now()
	p.End = &end
	m.pollers[key] = p
	delete(m.active, auID)
	return clonePoller(p), nil
}

// PutPollerPoll stores p, replacing any poll with the same key. A poll that
// is not Running is not considered active for its AU.
func (m *PollManager) PutPollerPoll(p store.PollerPoll) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pollers[p.Key] = clonePoller(p)
	if p.Status == PollRunning {
		m.active[p.Spec.AuID] = p.Key
	} else if m.active[p.Spec.AuID] == p.Key {
		delete(m.active, p.Spec.AuID)
	}
}

// PutVoterPoll stores v, replacing any voter poll with the same key.
func (m *PollManager) PutVoterPoll(v store.VoterPoll) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.voters[v.Key] = v
}

// UpdatePoller applies fn to the stored poll under the write lock.
func (m *PollManager) UpdatePoller(key string, fn func(*store.PollerPoll)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pollers[key]
	if !ok {
		return fmt.Errorf("poll %q: %w", key, store.ErrNotFound)
	}
	p = clonePoller(p)
	fn(&p)
	m.pollers[key] = p
	return nil
}

func clonePoller(p store.PollerPoll) store.PollerPoll {
	out := p
	if p.End != nil {
		end := *p.End
		out.End = &end
	}
	out.NoAuPeers = slices.Clone(p.NoAuPeers)
	out.Participants = lo.Map(p.Participants, func(pt store.Participant, _ int) store.Participant {
		pt.Votes.Agreed = slices.Clone(pt.Votes.Agreed)
		pt.Votes.Disagreed = slices.Clone(pt.Votes.Disagreed)
		pt.Votes.PollerOnly = slices.Clone(pt.Votes.PollerOnly)
		pt.Votes.VoterOnly = slices.Clone(pt.Votes.VoterOnly)
		return pt
	})
	out.Tally = store.TallyStatus{
		Agreed:    slices.Clone(p.Tally.Agreed),
		Disagreed: slices.Clone(p.Tally.Disagreed),
		NoQuorum:  slices.Clone(p.Tally.NoQuorum),
		TooClose:  slices.Clone(p.Tally.TooClose),
		Errors:    maps.Clone(p.Tally.Errors),
	}
	out.Repairs = store.RepairQueue{
		Active:    slices.Clone(p.Repairs.Active),
		Pending:   slices.Clone(p.Repairs.Pending),
		Completed: slices.Clone(p.Repairs.Completed),
	}
	return out
}
