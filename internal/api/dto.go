package api

import (
	"time"

	"github.com/JakeFAU/lockss-laaws/internal/paging"
	"github.com/JakeFAU/lockss-laaws/internal/projection"
	"github.com/JakeFAU/lockss-laaws/internal/store"
)

type itemMetadataDTO struct {
	Seq       int64                        `json:"mdItemSeq"`
	ID        string                       `json:"id"`
	AuID      string                       `json:"auId"`
	ScalarMap map[string]string            `json:"scalarMap,omitempty"`
	SetMap    map[string][]string          `json:"setMap,omitempty"`
	ListMap   map[string][]string          `json:"listMap,omitempty"`
	MapMap    map[string]map[string]string `json:"mapMap,omitempty"`
}

func toItemMetadataDTO(it projection.MetadataItem) itemMetadataDTO {
	return itemMetadataDTO{
		Seq:       it.Seq,
		ID:        it.ID,
		AuID:      it.AuID,
		ScalarMap: it.Scalar,
		SetMap:    it.Set,
		ListMap:   it.List,
		MapMap:    it.Map,
	}
}

type jobStatusDTO struct {
	Code string `json:"code"`
	Msg  string `json:"msg,omitempty"`
}

type jobDTO struct {
	ID           string       `json:"id"`
	AuID         string       `json:"auId"`
	Type         string       `json:"type"`
	Status       jobStatusDTO `json:"status"`
	CreationDate time.Time    `json:"creationDate"`
	StartDate    *time.Time   `json:"startDate,omitempty"`
	EndDate      *time.Time   `json:"endDate,omitempty"`
}

func toJobDTO(j store.Job) jobDTO {
	return jobDTO{
		ID:           j.ID,
		AuID:         j.AuID,
		Type:         string(j.Type),
		Status:       jobStatusDTO{Code: string(j.Status), Msg: j.StatusMessage},
		CreationDate: j.Created,
		StartDate:    j.Started,
		EndDate:      j.Finished,
	}
}

type scheduleJobRequest struct {
	AuID       string `json:"auid"`
	UpdateType string `json:"updateType"`
}

type cuSetSpecDTO struct {
	URLPrefix  string `json:"urlPrefix,omitempty"`
	LowerBound string `json:"lowerBound,omitempty"`
	UpperBound string `json:"upperBound,omitempty"`
}

type pollDescDTO struct {
	AuID      string        `json:"auId"`
	CuSetSpec *cuSetSpecDTO `json:"cuSetSpec,omitempty"`
	PollType  int           `json:"pollType,omitempty"`
	Protocol  int           `json:"protocol,omitempty"`
	Variant   string        `json:"variant,omitempty"`
	Modulus   int           `json:"modulus,omitempty"`
}

func (d pollDescDTO) spec() store.PollSpec {
	spec := store.PollSpec{
		AuID:     d.AuID,
		PollType: d.PollType,
		Protocol: d.Protocol,
		Variant:  d.Variant,
		Modulus:  d.Modulus,
	}
	if d.CuSetSpec != nil {
		spec.URLPrefix = d.CuSetSpec.URLPrefix
		spec.LowerBound = d.CuSetSpec.LowerBound
		spec.UpperBound = d.CuSetSpec.UpperBound
	}
	return spec
}

func toPollDescDTO(s store.PollSpec) pollDescDTO {
	d := pollDescDTO{
		AuID:     s.AuID,
		PollType: s.PollType,
		Protocol: s.Protocol,
		Variant:  s.Variant,
		Modulus:  s.Modulus,
	}
	if s.URLPrefix != "" || s.LowerBound != "" || s.UpperBound != "" {
		d.CuSetSpec = &cuSetSpecDTO{URLPrefix: s.URLPrefix, LowerBound: s.LowerBound, UpperBound: s.UpperBound}
	}
	return d
}

type pollStatusDTO struct {
	AuID     string     `json:"auId"`
	PollKey  string     `json:"pollKey"`
	Status   string     `json:"status"`
	Start    time.Time  `json:"start"`
	PollEnd  *time.Time `json:"pollEnd,omitempty"`
	Deadline *time.Time `json:"deadline,omitempty"`
}

func toPollStatusDTO(p store.PollerPoll) pollStatusDTO {
	return pollStatusDTO{
		AuID:     p.Spec.AuID,
		PollKey:  p.Key,
		Status:   p.Status,
		Start:    p.Created,
		PollEnd:  p.End,
		Deadline: optionalTime(p.Deadline),
	}
}

type pollerSummaryDTO struct {
	PollKey             string     `json:"pollKey"`
	AuID                string     `json:"auId"`
	Status              string     `json:"status"`
	Start               time.Time  `json:"start"`
	Variant             string     `json:"variant,omitempty"`
	Deadline            *time.Time `json:"deadline,omitempty"`
	PollEnd             *time.Time `json:"pollEnd,omitempty"`
	Participants        int        `json:"participants"`
	NumTalliedUrls      int        `json:"numTalliedUrls"`
	NumAgreeUrls        int        `json:"numAgreeUrls"`
	NumHashErrors       int        `json:"numHashErrors"`
	NumCompletedRepairs int        `json:"numCompletedRepairs"`
	DetailLink          string     `json:"detailLink,omitempty"`
}

func toPollerSummaryDTO(p store.PollerPoll, root paging.LinkBuilder) pollerSummaryDTO {
	t := p.Tally
	out := pollerSummaryDTO{
		PollKey:             p.Key,
		AuID:                p.Spec.AuID,
		Status:              p.Status,
		Start:               p.Created,
		Variant:             p.Spec.Variant,
		Deadline:            optionalTime(p.Deadline),
		PollEnd:             p.End,
		Participants:        len(p.Participants),
		NumTalliedUrls:      len(t.Agreed) + len(t.Disagreed) + len(t.NoQuorum) + len(t.TooClose),
		NumAgreeUrls:        len(t.Agreed),
		NumHashErrors:       len(t.Errors),
		NumCompletedRepairs: len(p.Repairs.Completed),
	}
	out.DetailLink, _ = root.Path("poller", p.Key).Link()
	return out
}

type voterSummaryDTO struct {
	PollKey    string     `json:"pollKey"`
	AuID       string     `json:"auId"`
	Caller     string     `json:"caller"`
	Status     string     `json:"status"`
	Start      time.Time  `json:"start"`
	Deadline   *time.Time `json:"deadline,omitempty"`
	DetailLink string     `json:"detailLink,omitempty"`
}

func toVoterSummaryDTO(v store.VoterPoll, root paging.LinkBuilder) voterSummaryDTO {
	out := voterSummaryDTO{
		PollKey:  v.Key,
		AuID:     v.Spec.AuID,
		Caller:   v.CallerID,
		Status:   v.Status,
		Start:    v.Created,
		Deadline: optionalTime(v.Deadline),
	}
	out.DetailLink, _ = root.Path("voter", v.Key).Link()
	return out
}

type tallyDTO struct {
	NumAgree     int    `json:"numAgree"`
	NumDisagree  int    `json:"numDisagree"`
	NumError     int    `json:"numError"`
	NumNoQuorum  int    `json:"numNoQuorum"`
	NumTooClose  int    `json:"numTooClose"`
	AgreeLink    string `json:"agreeLink,omitempty"`
	DisagreeLink string `json:"disagreeLink,omitempty"`
	ErrorLink    string `json:"errorLink,omitempty"`
	NoQuorumLink string `json:"noQuorumLink,omitempty"`
	TooCloseLink string `json:"tooCloseLink,omitempty"`
}

func toTallyDTO(key string, t store.TallyStatus, root paging.LinkBuilder) tallyDTO {
	b := root.Path(key, "tally")
	link := func(bucket projection.TallyBucket) string {
		l, _ := b.Link(paging.Param{Name: "tally", Value: string(bucket)})
		return l
	}
	return tallyDTO{
		NumAgree:     len(t.Agreed),
		NumDisagree:  len(t.Disagreed),
		NumError:     len(t.Errors),
		NumNoQuorum:  len(t.NoQuorum),
		NumTooClose:  len(t.TooClose),
		AgreeLink:    link(projection.TallyAgree),
		DisagreeLink: link(projection.TallyDisagree),
		ErrorLink:    link(projection.TallyError),
		NoQuorumLink: link(projection.TallyNoQuorum),
		TooCloseLink: link(projection.TallyTooClose),
	}
}

type repairQueueDTO struct {
	NumActive     int    `json:"numActive"`
	NumPending    int    `json:"numPending"`
	NumCompleted  int    `json:"numCompleted"`
	ActiveLink    string `json:"activeLink,omitempty"`
	PendingLink   string `json:"pendingLink,omitempty"`
	CompletedLink string `json:"completedLink,omitempty"`
}

func toRepairQueueDTO(key string, q store.RepairQueue, root paging.LinkBuilder) repairQueueDTO {
	b := root.Path(key, "repairs")
	link := func(state projection.RepairState) string {
		l, _ := b.Link(paging.Param{Name: "repair", Value: string(state)})
		return l
	}
	return repairQueueDTO{
		NumActive:     len(q.Active),
		NumPending:    len(q.Pending),
		NumCompleted:  len(q.Completed),
		ActiveLink:    link(projection.RepairActive),
		PendingLink:   link(projection.RepairPending),
		CompletedLink: link(projection.RepairCompleted),
	}
}

type repairDTO struct {
	RepairURL  string `json:"repairUrl"`
	RepairFrom string `json:"repairFrom"`
	Result     string `json:"result,omitempty"`
}

func toRepairDTO(r store.Repair) repairDTO {
	return repairDTO{RepairURL: r.URL, RepairFrom: r.From, Result: r.Result}
}

type peerDataDTO struct {
	PeerID         string  `json:"peerId"`
	Status         string  `json:"status"`
	Voted          bool    `json:"voted"`
	Agreement      float64 `json:"agreement"`
	NumAgree       int     `json:"numAgree"`
	NumDisagree    int     `json:"numDisagree"`
	NumPollerOnly  int     `json:"numPollerOnly"`
	NumVoterOnly   int     `json:"numVoterOnly"`
	AgreeLink      string  `json:"agreeLink,omitempty"`
	DisagreeLink   string  `json:"disagreeLink,omitempty"`
	PollerOnlyLink string  `json:"pollerOnlyLink,omitempty"`
	VoterOnlyLink  string  `json:"voterOnlyLink,omitempty"`
}

func toPeerDataDTO(key string, p store.Participant, root paging.LinkBuilder) peerDataDTO {
	out := peerDataDTO{
		PeerID:        p.PeerID,
		Status:        p.Status,
		Voted:         p.Voted,
		Agreement:     p.Agreement,
		NumAgree:      len(p.Votes.Agreed),
		NumDisagree:   len(p.Votes.Disagreed),
		NumPollerOnly: len(p.Votes.PollerOnly),
		NumVoterOnly:  len(p.Votes.VoterOnly),
	}
	if !p.Voted || !p.Votes.HasURLLists {
		return out
	}
	b := root.Path(key, "peer", p.PeerID)
	link := func(list projection.PeerURLList) string {
		l, _ := b.Link(paging.Param{Name: "urls", Value: string(list)})
		return l
	}
	out.AgreeLink = link(projection.PeerAgreed)
	out.DisagreeLink = link(projection.PeerDisagreed)
	out.PollerOnlyLink = link(projection.PeerPollerOnly)
	out.VoterOnlyLink = link(projection.PeerVoterOnly)
	return out
}

type pollerDetailDTO struct {
	PollKey      string         `json:"pollKey"`
	PollDesc     pollDescDTO    `json:"pollDesc"`
	PollerID     string         `json:"pollerId"`
	Status       string         `json:"status"`
	CreateTime   time.Time      `json:"createTime"`
	Deadline     *time.Time     `json:"deadline,omitempty"`
	PollEnd      *time.Time     `json:"pollEnd,omitempty"`
	Quorum       int            `json:"quorum"`
	VoteMargin   int            `json:"voteMargin"`
	ErrorDetails string         `json:"errorDetails,omitempty"`
	NoAuPeers    int            `json:"numNoAuPeers"`
	Tally        tallyDTO       `json:"tally"`
	RepairQueue  repairQueueDTO `json:"repairQueue"`
	VotedPeers   []peerDataDTO  `json:"votedPeers"`
}

func toPollerDetailDTO(p store.PollerPoll, root paging.LinkBuilder) pollerDetailDTO {
	peers := make([]peerDataDTO, 0, len(p.Participants))
	for _, pt := range p.Participants {
		peers = append(peers, toPeerDataDTO(p.Key, pt, root))
	}
	return pollerDetailDTO{
		PollKey:      p.Key,
		PollDesc:     toPollDescDTO(p.Spec),
		PollerID:     p.PollerID,
		Status:       p.Status,
		CreateTime:   p.Created,
		Deadline:     optionalTime(p.Deadline),
		PollEnd:      p.End,
		Quorum:       p.Quorum,
		VoteMargin:   p.VoteMargin,
		ErrorDetails: p.ErrorDetail,
		NoAuPeers:    len(p.NoAuPeers),
		Tally:        toTallyDTO(p.Key, p.Tally, root),
		RepairQueue:  toRepairQueueDTO(p.Key, p.Repairs, root),
		VotedPeers:   peers,
	}
}

type voterDetailDTO struct {
	PollKey       string      `json:"pollKey"`
	PollDesc      pollDescDTO `json:"pollDesc"`
	PollerID      string      `json:"pollerId"`
	CallerID      string      `json:"callerId"`
	Status        string      `json:"status"`
	CreateTime    time.Time   `json:"createTime"`
	Deadline      *time.Time  `json:"deadline,omitempty"`
	ErrorDetails  string      `json:"errorDetails,omitempty"`
	Agreement     float64     `json:"agreement"`
	NumAgree      int         `json:"numAgree"`
	NumDisagree   int         `json:"numDisagree"`
	NumPollerOnly int         `json:"numPollerOnly"`
	NumVoterOnly  int         `json:"numVoterOnly"`
}

func toVoterDetailDTO(v store.VoterPoll) voterDetailDTO {
	return voterDetailDTO{
		PollKey:       v.Key,
		PollDesc:      toPollDescDTO(v.Spec),
		PollerID:      v.PollerID,
		CallerID:      v.CallerID,
		Status:        v.Status,
		CreateTime:    v.Created,
		Deadline:      optionalTime(v.Deadline),
		ErrorDetails:  v.ErrorDetail,
		Agreement:     v.Agreement,
		NumAgree:      v.NumAgree,
		NumDisagree:   v.NumDisagree,
		NumPollerOnly: v.NumPollerOnly,
		NumVoterOnly:  v.NumVoterOnly,
	}
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
