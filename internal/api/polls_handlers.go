package api

import (
	"net/http"

	"github.com/samber/lo"

	"github.com/JakeFAU/lockss-laaws/internal/paging"
	"github.com/JakeFAU/lockss-laaws/internal/projection"
	"github.com/JakeFAU/lockss-laaws/internal/store"
)

const pollsCollection = "polls"

// pollsRoot builds links under /v1/polls of the requesting host.
func pollsRoot(r *http.Request) paging.LinkBuilder {
	return paging.NewLinkBuilder(origin(r)).Path("v1", "polls")
}

// requestPoll handles POST /v1/polls with a poll description.
func (s *Server) requestPoll(w http.ResponseWriter, r *http.Request) {
	var req pollDescDTO
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, pollsCollection, err)
		return
	}
	if req.AuID == "" {
		s.fail(w, r, pollsCollection, paging.NewValidationError("auId", "", errRequired))
		return
	}
	p, err := s.deps.Polls.RequestPoll(r.Context(), req.spec())
	if err != nil {
		s.fail(w, r, pollsCollection, err)
		return
	}
	writeJSON(w, http.StatusAccepted, toPollStatusDTO(p))
}

func (s *Server) getPollStatus(w http.ResponseWriter, r *http.Request) {
	auID, err := pathParam(r, "auid")
	if err != nil {
		s.fail(w, r, pollsCollection, err)
		return
	}
	p, err := s.deps.Polls.PollForAu(r.Context(), auID)
	if err != nil {
		s.fail(w, r, pollsCollection, err)
		return
	}
	writeJSON(w, http.StatusOK, toPollStatusDTO(p))
}

func (s *Server) cancelPoll(w http.ResponseWriter, r *http.Request) {
	auID, err := pathParam(r, "auid")
	if err != nil {
		s.fail(w, r, pollsCollection, err)
		return
	}
	p, err := s.deps.Polls.StopPoll(r.Context(), auID)
	if err != nil {
		s.fail(w, r, pollsCollection, err)
		return
	}
	writeJSON(w, http.StatusOK, toPollStatusDTO(p))
}

func (s *Server) listPollerPolls(w http.ResponseWriter, r *http.Request) {
	polls, err := s.polls.Pollers(r.Context())
	if err != nil {
		s.fail(w, r, pollsCollection, err)
		return
	}
	root := pollsRoot(r)
	serveOffsetPage(s, w, r, pollsCollection, "polls", polls, func(p store.PollerPoll) pollerSummaryDTO {
		return toPollerSummaryDTO(p, root)
	})
}

func (s *Server) listVoterPolls(w http.ResponseWriter, r *http.Request) {
	polls, err := s.polls.Voters(r.Context())
	if err != nil {
		s.fail(w, r, pollsCollection, err)
		return
	}
	root := pollsRoot(r)
	serveOffsetPage(s, w, r, pollsCollection, "polls", polls, func(v store.VoterPoll) voterSummaryDTO {
		return toVoterSummaryDTO(v, root)
	})
}

func (s *Server) getPollerDetail(w http.ResponseWriter, r *http.Request) {
	key, err := pathParam(r, "pollKey")
	if err != nil {
		s.fail(w, r, pollsCollection, err)
		return
	}
	p, err := s.polls.Poller(r.Context(), key)
	if err != nil {
		s.fail(w, r, pollsCollection, err)
		return
	}
	writeJSON(w, http.StatusOK, toPollerDetailDTO(p, pollsRoot(r)))
}

func (s *Server) getVoterDetail(w http.ResponseWriter, r *http.Request) {
	key, err := pathParam(r, "pollKey")
	if err != nil {
		s.fail(w, r, pollsCollection, err)
		return
	}
	v, err := s.polls.Voter(r.Context(), key)
	if err != nil {
		s.fail(w, r, pollsCollection, err)
		return
	}
	writeJSON(w, http.StatusOK, toVoterDetailDTO(v))
}

// listTallyURLs handles GET /v1/polls/{pollKey}/tally?tally=bucket.
func (s *Server) listTallyURLs(w http.ResponseWriter, r *http.Request) {
	key, err := pathParam(r, "pollKey")
	if err != nil {
		s.fail(w, r, "tally", err)
		return
	}
	raw := r.URL.Query().Get("tally")
	bucket, err := projection.ParseTallyBucket(raw)
	if err != nil {
		s.fail(w, r, "tally", err)
		return
	}
	urls, err := s.polls.TallyURLs(r.Context(), key, bucket)
	if err != nil {
		s.fail(w, r, "tally", err)
		return
	}
	serveOffsetPage(s, w, r, "tally", "urls", urls, identity[string],
		paging.Param{Name: "tally", Value: string(bucket)})
}

// listRepairs handles GET /v1/polls/{pollKey}/repairs?repair=state.
func (s *Server) listRepairs(w http.ResponseWriter, r *http.Request) {
	key, err := pathParam(r, "pollKey")
	if err != nil {
		s.fail(w, r, "repairs", err)
		return
	}
	state, err := projection.ParseRepairState(r.URL.Query().Get("repair"))
	if err != nil {
		s.fail(w, r, "repairs", err)
		return
	}
	repairs, err := s.polls.Repairs(r.Context(), key, state)
	if err != nil {
		s.fail(w, r, "repairs", err)
		return
	}
	serveOffsetPage(s, w, r, "repairs", "repairs", repairs, toRepairDTO,
		paging.Param{Name: "repair", Value: string(state)})
}

// listPeerURLs handles GET /v1/polls/{pollKey}/peer/{peerId}?urls=list. Older
// links name the selector tally.
func (s *Server) listPeerURLs(w http.ResponseWriter, r *http.Request) {
	key, err := pathParam(r, "pollKey")
	if err != nil {
		s.fail(w, r, "peer", err)
		return
	}
	peerID, err := pathParam(r, "peerId")
	if err != nil {
		s.fail(w, r, "peer", err)
		return
	}
	q := r.URL.Query()
	list, err := projection.ParsePeerURLList(lo.CoalesceOrEmpty(q.Get("urls"), q.Get("tally")))
	if err != nil {
		s.fail(w, r, "peer", err)
		return
	}
	urls, err := s.polls.PeerURLs(r.Context(), key, peerID, list)
	if err != nil {
		s.fail(w, r, "peer", err)
		return
	}
	serveOffsetPage(s, w, r, "peer", "urls", urls, identity[string],
		paging.Param{Name: "urls", Value: string(list)})
}
