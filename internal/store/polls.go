package store

import (
	"context"
	"time"
)

// PollSpec describes the content a poll covers.
type PollSpec struct {
	AuID       string
	URLPrefix  string
	LowerBound string
	UpperBound string
	PollType   int
	Protocol   int
	Variant    string
	Modulus    int
}

// TallyStatus holds the URLs of a poll grouped by tally outcome.
type TallyStatus struct {
	Agreed    []string
	Disagreed []string
	NoQuorum  []string
	TooClose  []string
	// Errors maps a URL to the hashing error it hit.
	Errors map[string]string
}

// VoteCounts holds the URLs a peer voted on, grouped by outcome.
type VoteCounts struct {
	// HasURLLists is false when the poller only kept counts for the peer.
	HasURLLists bool
	Agreed      []string
	Disagreed   []string
	PollerOnly  []string
	VoterOnly   []string
}

// Participant is a peer invited to a poll.
type Participant struct {
	PeerID    string
	Status    string
	Voted     bool
	Agreement float64
	Votes     VoteCounts
}

// Repair is one repair of a URL from a peer.
type Repair struct {
	URL    string
	From   string
	Result string
}

// RepairQueue groups a poll's repairs by state.
type RepairQueue struct {
	Active    []Repair
	Pending   []Repair
	Completed []Repair
}

// PollerPoll is a poll this node called.
type PollerPoll struct {
	Key         string
	Spec        PollSpec
	PollerID    string
	Status      string
	Created     time.Time
	Deadline    time.Time
	End         *time.Time
	Quorum      int
	VoteMargin  int
	ErrorDetail string

	Participants []Participant
	NoAuPeers    []string
	Tally        TallyStatus
	Repairs      RepairQueue
}

// VoterPoll is a poll this node was invited into by another peer.
type VoterPoll struct {
	Key         string
	Spec        PollSpec
	PollerID    string
	CallerID    string
	Status      string
	Created     time.Time
	Deadline    time.Time
	ErrorDetail string

	Agreement     float64
	NumAgree      int
	NumDisagree   int
	NumPollerOnly int
	NumVoterOnly  int
}

// PollManager exposes the polls of this node. Returned values are copies.
type PollManager interface {
	PollerPolls(ctx context.Context) ([]PollerPoll, error)
	VoterPolls(ctx context.Context) ([]VoterPoll, error)
	// PollerPoll and VoterPoll return ErrNotFound for unknown keys.
	PollerPoll(ctx context.Context, key string) (PollerPoll, error)
	VoterPoll(ctx context.Context, key string) (VoterPoll, error)
	// PollForAu returns the active poll called on auID, or ErrNotFound.
	PollForAu(ctx context.Context, auID string) (PollerPoll, error)
	// RequestPoll calls a poll. ErrNotFound for unknown AUs, ErrNotEligible
	// when the AU cannot be polled now.
	RequestPoll(ctx context.Context, spec PollSpec) (PollerPoll, error)
	// StopPoll cancels the poll on auID, or returns ErrNotFound.
	StopPoll(ctx context.Context, auID string) (PollerPoll, error)
}
