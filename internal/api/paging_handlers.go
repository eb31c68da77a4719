package api

import (
	"net/http"

	"github.com/samber/lo"

	"github.com/JakeFAU/lockss-laaws/internal/metrics"
	"github.com/JakeFAU/lockss-laaws/internal/paging"
)

// serveCursorPage writes one cursor page of src under field, with items
// converted by dto.
func serveCursorPage[T paging.Keyed, D any](
	s *Server,
	w http.ResponseWriter,
	r *http.Request,
	collection, field string,
	src paging.Source[T],
	dto func(T) D,
) {
	limit, tok, err := s.cursorRequest(r)
	if err != nil {
		s.fail(w, r, collection, err)
		return
	}
	page, err := paging.FetchPage(r.Context(), src, limit, tok)
	if err != nil {
		s.fail(w, r, collection, err)
		return
	}
	metrics.ObservePage(metrics.ModeCursor)
	writeJSON(w, http.StatusOK, map[string]any{
		field:      lo.Map(page.Items, func(it T, _ int) D { return dto(it) }),
		"pageInfo": paging.CursorInfo(page, paging.NewLinkBuilder(requestBase(r))),
	})
}

// serveOffsetPage writes one numbered page of items under field. fixed
// params are repeated in navigation links.
func serveOffsetPage[T, D any](
	s *Server,
	w http.ResponseWriter,
	r *http.Request,
	collection, field string,
	items []T,
	dto func(T) D,
	fixed ...paging.Param,
) {
	pageNumber, size, err := s.offsetRequest(r)
	if err != nil {
		s.fail(w, r, collection, err)
		return
	}
	page := paging.Paginate(items, pageNumber, size, requestBase(r))
	desc := paging.OffsetDesc(page, s.linkStyle, fixed...)
	if link := paging.LinkHeader(desc); link != "" {
		w.Header().Set("Link", link)
	}
	metrics.ObservePage(metrics.ModeOffset)
	writeJSON(w, http.StatusOK, map[string]any{
		field:      lo.Map(page.Items, func(it T, _ int) D { return dto(it) }),
		"pageDesc": desc,
	})
}

func identity[T any](v T) T { return v }
