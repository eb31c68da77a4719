package projection

import (
	"errors"
	"strings"

	"github.com/JakeFAU/lockss-laaws/internal/paging"
	"github.com/JakeFAU/lockss-laaws/internal/store"
)

var errUnknownSelector = errors.New("unknown selector")

// TallyBucket selects one outcome group of a poll tally.
type TallyBucket string

// Tally buckets.
const (
	TallyAgree    TallyBucket = "agree"
	TallyDisagree TallyBucket = "disagree"
	TallyError    TallyBucket = "error"
	TallyNoQuorum TallyBucket = "noQuorum"
	TallyTooClose TallyBucket = "tooClose"
)

// TallyBuckets lists every tally bucket in display order.
var TallyBuckets = []TallyBucket{TallyAgree, TallyDisagree, TallyError, TallyNoQuorum, TallyTooClose}

// ParseTallyBucket validates the tally query parameter.
func ParseTallyBucket(s string) (TallyBucket, error) {
	switch b := TallyBucket(s); b {
	case TallyAgree, TallyDisagree, TallyError, TallyNoQuorum, TallyTooClose:
		return b, nil
	}
	return "", paging.NewValidationError("tally", s, errUnknownSelector)
}

// RepairState selects one section of a repair queue.
type RepairState string

// Repair queue sections.
const (
	RepairActive    RepairState = "active"
	RepairPending   RepairState = "pending"
	RepairCompleted RepairState = "completed"
)

// RepairStates lists every repair queue section.
var RepairStates = []RepairState{RepairActive, RepairPending, RepairCompleted}

// ParseRepairState validates the repair query parameter.
func ParseRepairState(s string) (RepairState, error) {
	switch r := RepairState(s); r {
	case RepairActive, RepairPending, RepairCompleted:
		return r, nil
	}
	return "", paging.NewValidationError("repair", s, errUnknownSelector)
}

// PeerURLList selects which URLs of a peer's vote to list.
type PeerURLList string

// Peer vote URL lists.
const (
	PeerAgreed     PeerURLList = "agreed"
	PeerDisagreed  PeerURLList = "disagreed"
	PeerPollerOnly PeerURLList = "pollerOnly"
	PeerVoterOnly  PeerURLList = "voterOnly"
)

// PeerURLLists lists every peer vote URL list.
var PeerURLLists = []PeerURLList{PeerAgreed, PeerDisagreed, PeerPollerOnly, PeerVoterOnly}

// ParsePeerURLList validates the urls query parameter. The spellings used
// by older peer links, agree and disagree, are accepted too.
func ParsePeerURLList(s string) (PeerURLList, error) {
	switch l := PeerURLList(s); l {
	case PeerAgreed, PeerDisagreed, PeerPollerOnly, PeerVoterOnly:
		return l, nil
	case "agree":
		return PeerAgreed, nil
	case "disagree":
		return PeerDisagreed, nil
	}
	return "", paging.NewValidationError("urls", s, errUnknownSelector)
}

// ParseJobType maps an update type onto a job type, ignoring case.
func ParseJobType(s string) (store.JobType, error) {
	switch t := store.JobType(strings.ToLower(strings.TrimSpace(s))); t {
	case store.JobFullExtraction, store.JobIncrementalExtraction, store.JobDelete:
		return t, nil
	}
	return "", paging.NewValidationError("updateType", s, errUnknownSelector)
}
