package api

import (
	"net/http"

	"github.com/JakeFAU/lockss-laaws/internal/projection"
)

// getAuMetadata handles GET /v1/metadata/aus/{auid}?limit&continuationToken.
func (s *Server) getAuMetadata(w http.ResponseWriter, r *http.Request) {
	auID, err := pathParam(r, "auid")
	if err != nil {
		s.fail(w, r, "metadata", err)
		return
	}
	serveCursorPage(s, w, r, "metadata", "items",
		projection.AuMetadata(s.deps.Metadata, auID), toItemMetadataDTO)
}
