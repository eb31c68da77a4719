package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/lockss-laaws/internal/store"
)

type seqKeys struct{ n int }

func (k *seqKeys) NewID() (string, error) {
	k.n++
	return fmt.Sprintf("poll-%d", k.n), nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func newTestPollManager() (*PollManager, *MetadataStore) {
	catalog := NewMetadataStore()
	catalog.AddAu("au1", "au2")
	clock := fixedClock{t: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
	return NewPollManager(catalog, &seqKeys{}, clock), catalog
}

func TestPollManagerRequestAndStop(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m, _ := newTestPollManager()

	_, err := m.RequestPoll(ctx, store.PollSpec{AuID: "unknown"})
	require.ErrorIs(t, err, store.ErrNotFound)

	p, err := m.RequestPoll(ctx, store.PollSpec{AuID: "au1"})
	require.NoError(t, err)
	require.Equal(t, "poll-1", p.Key)
	require.Equal(t, PollRunning, p.Status)

	_, err = m.RequestPoll(ctx, store.PollSpec{AuID: "au1"})
	require.ErrorIs(t, err, store.ErrNotEligible)

	active, err := m.PollForAu(ctx, "au1")
	require.NoError(t, err)
	require.Equal(t, p.Key, active.Key)

	stopped, err := m.StopPoll(ctx, "au1")
	require.NoError(t, err)
	require.Equal(t, PollAborted, stopped.Status)
	require.NotNil(t, stopped.End)

	_, err = m.PollForAu(ctx, "au1")
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = m.StopPoll(ctx, "au1")
	require.ErrorIs(t, err, store.ErrNotFound)

	again, err := m.RequestPoll(ctx, store.PollSpec{AuID: "au1"})
	require.NoError(t, err)
	require.Equal(t, "poll-2", again.Key)

	all, err := m.PollerPolls(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestPollManagerReadsAreCopies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m, _ := newTestPollManager()
	m.PutPollerPoll(store.PollerPoll{
		Key:    "k",
		Spec:   store.PollSpec{AuID: "au2"},
		Status: PollComplete,
		Tally:  store.TallyStatus{Agreed: []string{"u1"}, Errors: map[string]string{"u2": "io"}},
		Participants: []store.Participant{
			{PeerID: "peer", Voted: true, Votes: store.VoteCounts{HasURLLists: true, Agreed: []string{"u1"}}},
		},
	})

	got, err := m.PollerPoll(ctx, "k")
	require.NoError(t, err)
	got.Tally.Agreed[0] = "mutated"
	got.Tally.Errors["u3"] = "x"
	got.Participants[0].Votes.Agreed[0] = "mutated"

	err = m.UpdatePoller("k", func(p *store.PollerPoll) {
		p.Tally.Agreed = append(p.Tally.Agreed, "u4")
	})
	require.NoError(t, err)

	fresh, err := m.PollerPoll(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []string{"u1", "u4"}, fresh.Tally.Agreed)
	require.Len(t, fresh.Tally.Errors, 1)
	require.Equal(t, "u1", fresh.Participants[0].Votes.Agreed[0])

	_, err = m.PollForAu(ctx, "au2")
	require.ErrorIs(t, err, store.ErrNotFound)
	require.ErrorIs(t, m.UpdatePoller("missing", func(*store.PollerPoll) {}), store.ErrNotFound)
}

func TestPollManagerVoterPolls(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m, _ := newTestPollManager()
	m.PutVoterPoll(store.VoterPoll{Key: "v1", CallerID: "peerA"})

	v, err := m.VoterPoll(ctx, "v1")
	require.NoError(t, err)
	require.Equal(t, "peerA", v.CallerID)

	_, err = m.VoterPoll(ctx, "v2")
	require.ErrorIs(t, err, store.ErrNotFound)

	all, err := m.VoterPolls(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
}
