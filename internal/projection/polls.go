package projection

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/samber/lo"

	"github.com/JakeFAU/lockss-laaws/internal/store"
)

// Polls is a read-only view of a PollManager shaped for offset paging.
// Every list it returns is freshly copied and in a deterministic order.
type Polls struct {
	mgr store.PollManager
}

// NewPolls wraps mgr.
func NewPolls(mgr store.PollManager) *Polls {
	return &Polls{mgr: mgr}
}

// Pollers returns the polls this node called, oldest first.
func (p *Polls) Pollers(ctx context.Context) ([]store.PollerPoll, error) {
	polls, err := p.mgr.PollerPolls(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(polls, func(a, b store.PollerPoll) int {
		return cmp.Or(a.Created.Compare(b.Created), cmp.Compare(a.Key, b.Key))
	})
	return polls, nil
}

// Voters returns the polls this node votes in, oldest first.
func (p *Polls) Voters(ctx context.Context) ([]store.VoterPoll, error) {
	polls, err := p.mgr.VoterPolls(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(polls, func(a, b store.VoterPoll) int {
		return cmp.Or(a.Created.Compare(b.Created), cmp.Compare(a.Key, b.Key))
	})
	return polls, nil
}

// TallyURLs returns the sorted URLs in one tally bucket of a called poll.
func (p *Polls) TallyURLs(ctx context.Context, pollKey string, bucket TallyBucket) ([]string, error) {
	poll, err := p.mgr.PollerPoll(ctx, pollKey)
	if err != nil {
		return nil, err
	}
	var urls []string
	switch bucket {
	case TallyAgree:
		urls = poll.Tally.Agreed
	case TallyDisagree:
		urls = poll.Tally.Disagreed
	case TallyError:
		urls = lo.Keys(poll.Tally.Errors)
	case TallyNoQuorum:
		urls = poll.Tally.NoQuorum
	case TallyTooClose:
		urls = poll.Tally.TooClose
	default:
		return nil, fmt.Errorf("tally bucket %q: %w", bucket, errUnknownSelector)
	}
	return sortedCopy(urls), nil
}

// Repairs returns one section of a called poll's repair queue in queue order.
func (p *Polls) Repairs(ctx context.Context, pollKey string, state RepairState) ([]store.Repair, error) {
	poll, err := p.mgr.PollerPoll(ctx, pollKey)
	if err != nil {
		return nil, err
	}
	var repairs []store.Repair
	switch state {
	case RepairActive:
		repairs = poll.Repairs.Active
	case RepairPending:
		repairs = poll.Repairs.Pending
	case RepairCompleted:
		repairs = poll.Repairs.Completed
	default:
		return nil, fmt.Errorf("repair state %q: %w", state, errUnknownSelector)
	}
	return append([]store.Repair{}, repairs...), nil
}

// PeerURLs returns the sorted URLs of one peer's vote. Peers that are not
// participants, have not voted, or whose URL lists were not kept are
// reported as store.ErrNotFound.
func (p *Polls) PeerURLs(ctx context.Context, pollKey, peerID string, list PeerURLList) ([]string, error) {
	poll, err := p.mgr.PollerPoll(ctx, pollKey)
	if err != nil {
		return nil, err
	}
	peer, ok := lo.Find(poll.Participants, func(pt store.Participant) bool {
		return pt.PeerID == peerID
	})
	if !ok || !peer.Voted || !peer.Votes.HasURLLists {
		return nil, fmt.Errorf("peer %q in poll %q: %w", peerID, pollKey, store.ErrNotFound)
	}
	var urls []string
	switch list {
	case PeerAgreed:
		urls = peer.Votes.Agreed
	case PeerDisagreed:
		urls = peer.Votes.Disagreed
	case PeerPollerOnly:
		urls = peer.Votes.PollerOnly
	case PeerVoterOnly:
		urls = peer.Votes.VoterOnly
	default:
		return nil, fmt.Errorf("peer url list %q: %w", list, errUnknownSelector)
	}
	return sortedCopy(urls), nil
}

// Poller returns one called poll.
func (p *Polls) Poller(ctx context.Context, pollKey string) (store.PollerPoll, error) {
	return p.mgr.PollerPoll(ctx, pollKey)
}

// Voter returns one poll this node votes in.
func (p *Polls) Voter(ctx context.Context, pollKey string) (store.VoterPoll, error) {
	return p.mgr.VoterPoll(ctx, pollKey)
}

func sortedCopy(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	slices.Sort(out)
	return out
}
