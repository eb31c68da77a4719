package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/lockss-laaws/internal/config"
	"github.com/JakeFAU/lockss-laaws/internal/id/uuid"
	"github.com/JakeFAU/lockss-laaws/internal/jobs"
	"github.com/JakeFAU/lockss-laaws/internal/paging"
	queuememory "github.com/JakeFAU/lockss-laaws/internal/queue/memory"
	"github.com/JakeFAU/lockss-laaws/internal/ratelimit"
	"github.com/JakeFAU/lockss-laaws/internal/storage/memory"
	"github.com/JakeFAU/lockss-laaws/internal/store"
)

type fakeClock struct{ now time.Time }

func (c fakeClock) Now() time.Time { return c.now }

type fixture struct {
	server *Server
	md     *memory.MetadataStore
	jobs   *jobs.Manager
	polls  *memory.PollManager
}

func baseConfig() config.Config {
	return config.Config{
		Server: config.ServerConfig{Port: 8080},
		Paging: config.PagingConfig{
			MaxLimit:        5,
			DefaultPageSize: 2,
			MaxPageSize:     10,
			LinkStyle:       "numbers",
		},
		Jobs: config.JobsConfig{Workers: 1, QueueDepth: 16},
	}
}

func newFixture(t *testing.T, mutate func(*config.Config, *Deps)) fixture {
	t.Helper()

	clock := fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	md := memory.NewMetadataStore()
	md.AddAu("au1", "au2")
	mgr := jobs.NewManager(memory.NewJobStore(), queuememory.NewQueue(16), md, uuid.New(), clock,
		nil, jobs.ManagerConfig{}, zap.NewNop())
	polls := memory.NewPollManager(md, uuid.New(), clock)

	cfg := baseConfig()
	deps := Deps{Metadata: md, Jobs: mgr, Polls: polls}
	if mutate != nil {
		mutate(&cfg, &deps)
	}
	return fixture{
		server: NewServer(deps, cfg, zap.NewNop()),
		md:     md,
		jobs:   mgr,
		polls:  polls,
	}
}

func (f fixture) do(t *testing.T, method, target, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (f fixture) addItems(t *testing.T, auID string, n int) {
	t.Helper()
	for i := range n {
		_, err := f.md.AddItem(context.Background(), store.ItemMetadata{
			AuID:   auID,
			ID:     fmt.Sprintf("%s-item-%d", auID, i),
			Scalar: map[string]string{"title": fmt.Sprintf("Article %d", i)},
		})
		require.NoError(t, err)
	}
}

type metadataResponse struct {
	Items []struct {
		ID        string            `json:"id"`
		ScalarMap map[string]string `json:"scalarMap"`
	} `json:"items"`
	PageInfo paging.PageInfo `json:"pageInfo"`
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestServer_Healthz(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	rec := f.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = f.do(t, http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_ReadyzReportsDependencyFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, func(_ *config.Config, d *Deps) {
		d.Ready = func(context.Context) error { return errors.New("db down") }
	})
	rec := f.do(t, http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServer_MetadataCursorChain(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.addItems(t, "au1", 5)
	f.addItems(t, "au2", 1)

	var ids []string
	target := "/v1/metadata/aus/au1?limit=2"
	for pages := 0; target != ""; pages++ {
		require.Less(t, pages, 5, "paging did not terminate")
		rec := f.do(t, http.MethodGet, target, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		resp := decode[metadataResponse](t, rec)

		require.Equal(t, len(resp.Items), resp.PageInfo.ResultsPerPage)
		for _, it := range resp.Items {
			ids = append(ids, it.ID)
		}
		require.Contains(t, resp.PageInfo.CurLink, "http://example.com/v1/metadata/aus/au1?limit=2")
		if resp.PageInfo.ContinuationToken == "" {
			require.Empty(t, resp.PageInfo.NextLink)
		} else {
			require.Equal(t,
				"http://example.com/v1/metadata/aus/au1?limit=2&continuationToken="+resp.PageInfo.ContinuationToken,
				resp.PageInfo.NextLink)
		}
		target = resp.PageInfo.NextLink
	}
	require.Equal(t, []string{"au1-item-0", "au1-item-1", "au1-item-2", "au1-item-3", "au1-item-4"}, ids)
}

func TestServer_CursorLimitRequired(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.addItems(t, "au1", 3)

	for _, target := range []string{
		"/v1/metadata/aus/au1",
		"/v1/metadata/aus/au1?limit=",
		"/v1/metadata/aus/nope",
		"/v1/mdupdates",
		"/v1/mdupdates?continuationToken=",
	} {
		t.Run(target, func(t *testing.T) {
			t.Parallel()
			rec := f.do(t, http.MethodGet, target, "")
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			body := decode[errorResponse](t, rec)
			require.Equal(t, paging.ParamLimit, body.Field)
			require.Contains(t, body.Error, "required")
		})
	}
}

func TestServer_MetadataMaxLimit(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.addItems(t, "au1", 8)

	resp := decode[metadataResponse](t, f.do(t, http.MethodGet, "/v1/metadata/aus/au1?limit=50", ""))
	require.Len(t, resp.Items, 5)
	require.Contains(t, resp.PageInfo.CurLink, "limit=5")

	resp = decode[metadataResponse](t, f.do(t, http.MethodGet, "/v1/metadata/aus/au1?limit=0", ""))
	require.Empty(t, resp.Items)
	require.NotNil(t, resp.Items)
	require.Empty(t, resp.PageInfo.ContinuationToken, "a zero limit from the start echoes the empty token")
}

func TestServer_MetadataToleratesGrowth(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.addItems(t, "au1", 3)

	first := decode[metadataResponse](t, f.do(t, http.MethodGet, "/v1/metadata/aus/au1?limit=2", ""))
	require.NotEmpty(t, first.PageInfo.NextLink)

	_, err := f.md.AddItem(context.Background(), store.ItemMetadata{AuID: "au1", ID: "late"})
	require.NoError(t, err)

	rec := f.do(t, http.MethodGet, first.PageInfo.NextLink, "")
	require.Equal(t, http.StatusOK, rec.Code)
	second := decode[metadataResponse](t, rec)
	require.Equal(t, "au1-item-2", second.Items[0].ID)
	require.Equal(t, "late", second.Items[1].ID)
}

func TestServer_MetadataConflictAfterRemoval(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.addItems(t, "au1", 4)

	first := decode[metadataResponse](t, f.do(t, http.MethodGet, "/v1/metadata/aus/au1?limit=2", ""))
	require.NotEmpty(t, first.PageInfo.NextLink)

	_, err := f.md.DeleteAuMetadata(context.Background(), "au1")
	require.NoError(t, err)
	f.addItems(t, "au1", 4)

	rec := f.do(t, http.MethodGet, first.PageInfo.NextLink, "")
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, decode[errorResponse](t, rec).Error, "pagination conflict")

	rec = f.do(t, http.MethodGet, "/v1/metadata/aus/au1?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code, "restarting without a token succeeds")
}

func TestServer_MetadataErrors(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.addItems(t, "au1", 1)

	tests := []struct {
		name   string
		target string
		status int
		field  string
	}{
		{name: "negative limit", target: "/v1/metadata/aus/au1?limit=-1", status: http.StatusBadRequest, field: "limit"},
		{name: "non numeric limit", target: "/v1/metadata/aus/au1?limit=ten", status: http.StatusBadRequest, field: "limit"},
		{
			name:   "garbage token",
			target: "/v1/metadata/aus/au1?limit=1&continuationToken=bogus",
			status: http.StatusBadRequest,
			field:  "continuationToken",
		},
		{name: "unknown au", target: "/v1/metadata/aus/nope?limit=1", status: http.StatusNotFound},
		{
			name:   "escaped au id",
			target: "/v1/metadata/aus/" + url.PathEscape("org|lockss|plugin&base_url~http%3A%2F%2Fx") + "?limit=1",
			status: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := f.do(t, http.MethodGet, tt.target, "")
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			require.Equal(t, tt.field, decode[errorResponse](t, rec).Field)
		})
	}
}

func TestServer_EscapedAuID(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	auID := "org|lockss|plugin&base_url~http%3A%2F%2Fx"
	f.addItems(t, auID, 1)

	rec := f.do(t, http.MethodGet, "/v1/metadata/aus/"+url.PathEscape(auID)+"?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, decode[metadataResponse](t, rec).Items, 1)
}

type panicReader struct{}

func (panicReader) AuMetadata(context.Context, string) ([]store.ItemMetadata, error) {
	panic("boom")
}

type failingReader struct{}

func (failingReader) AuMetadata(context.Context, string) ([]store.ItemMetadata, error) {
	return nil, errors.New("disk on fire")
}

func TestServer_InternalErrors(t *testing.T) {
	t.Parallel()

	f := newFixture(t, func(_ *config.Config, d *Deps) { d.Metadata = panicReader{} })
	rec := f.do(t, http.MethodGet, "/v1/metadata/aus/au1?limit=1", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	f = newFixture(t, func(_ *config.Config, d *Deps) { d.Metadata = failingReader{} })
	rec = f.do(t, http.MethodGet, "/v1/metadata/aus/au1?limit=1", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "internal server error", decode[errorResponse](t, rec).Error)
}

type jobResponse struct {
	ID     string `json:"id"`
	AuID   string `json:"auId"`
	Type   string `json:"type"`
	Status struct {
		Code string `json:"code"`
	} `json:"status"`
}

func TestServer_Mdupdates(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/v1/mdupdates", `{"auid":"au1","updateType":"FULL_EXTRACTION"}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	job := decode[jobResponse](t, rec)
	require.Equal(t, "au1", job.AuID)
	require.Equal(t, "full_extraction", job.Type)
	require.Equal(t, "queued", job.Status.Code)

	rec = f.do(t, http.MethodPost, "/v1/mdupdates", `{"auid":"au2","updateType":"delete"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/mdupdates?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[struct {
		Jobs     []jobResponse   `json:"jobs"`
		PageInfo paging.PageInfo `json:"pageInfo"`
	}](t, rec)
	require.Len(t, page.Jobs, 1)
	require.Equal(t, job.ID, page.Jobs[0].ID)
	require.NotEmpty(t, page.PageInfo.ContinuationToken)

	rec = f.do(t, http.MethodGet, "/v1/mdupdates/"+job.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[map[string]string](t, rec)
	require.Equal(t, "queued", status["code"])
	require.NotContains(t, status, "id")

	rec = f.do(t, http.MethodDelete, "/v1/mdupdates/"+job.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, job.ID, decode[jobResponse](t, rec).ID)
	rec = f.do(t, http.MethodGet, "/v1/mdupdates/"+job.ID, "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, page.PageInfo.NextLink, "")
	require.Equal(t, http.StatusConflict, rec.Code, "the anchor job was removed")

	rec = f.do(t, http.MethodDelete, "/v1/mdupdates", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, decode[int](t, rec))
}

func TestServer_MdupdatesQueueFull(t *testing.T) {
	t.Parallel()

	f := newFixture(t, func(_ *config.Config, d *Deps) {
		md := d.Metadata.(*memory.MetadataStore)
		d.Jobs = jobs.NewManager(memory.NewJobStore(), queuememory.NewQueue(1), md, uuid.New(),
			fakeClock{now: time.Unix(0, 0)}, nil, jobs.ManagerConfig{}, zap.NewNop())
	})
	body := `{"auid":"au1","updateType":"delete"}`

	rec := f.do(t, http.MethodPost, "/v1/mdupdates", body)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/v1/mdupdates", body)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code, rec.Body.String())
	require.Equal(t, "1", rec.Header().Get("Retry-After"))
	require.Contains(t, decode[errorResponse](t, rec).Error, "queue full")
}

func TestServer_MdupdatesErrors(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	tests := []struct {
		name   string
		body   string
		status int
		field  string
	}{
		{name: "bad json", body: `{`, status: http.StatusBadRequest, field: "body"},
		{name: "unknown field", body: `{"auid":"au1","kind":"x"}`, status: http.StatusBadRequest, field: "body"},
		{name: "missing au", body: `{"updateType":"delete"}`, status: http.StatusBadRequest, field: "auid"},
		{name: "bad type", body: `{"auid":"au1","updateType":"reindex"}`, status: http.StatusBadRequest, field: "updateType"},
		{name: "unknown au", body: `{"auid":"nope","updateType":"delete"}`, status: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := f.do(t, http.MethodPost, "/v1/mdupdates", tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			require.Equal(t, tt.field, decode[errorResponse](t, rec).Field)
		})
	}

	rec := f.do(t, http.MethodGet, "/v1/mdupdates/missing", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	rec = f.do(t, http.MethodDelete, "/v1/mdupdates/missing", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_AuthRoles(t *testing.T) {
	t.Parallel()

	f := newFixture(t, func(c *config.Config, _ *Deps) {
		c.Auth = config.AuthConfig{
			Enabled: true,
			Keys: []config.APIKey{
				{Key: "admin-key", Roles: []string{RoleContentAdmin}},
				{Key: "reader-key", Roles: []string{"user"}},
			},
		}
	})
	body := `{"auid":"au1","updateType":"delete"}`

	tests := []struct {
		name   string
		method string
		target string
		body   string
		key    string
		status int
	}{
		{name: "no key", method: http.MethodGet, target: "/v1/mdupdates?limit=1", status: http.StatusForbidden},
		{name: "wrong key", method: http.MethodGet, target: "/v1/mdupdates?limit=1", key: "nope", status: http.StatusForbidden},
		{name: "reader lists", method: http.MethodGet, target: "/v1/mdupdates?limit=1", key: "reader-key", status: http.StatusOK},
		{
			name: "reader cannot schedule", method: http.MethodPost, target: "/v1/mdupdates",
			body: body, key: "reader-key", status: http.StatusForbidden,
		},
		{
			name: "admin schedules", method: http.MethodPost, target: "/v1/mdupdates",
			body: body, key: "admin-key", status: http.StatusAccepted,
		},
		{name: "probes stay open", method: http.MethodGet, target: "/healthz", status: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var rec *httptest.ResponseRecorder
			if tt.key == "" {
				rec = f.do(t, tt.method, tt.target, tt.body)
			} else {
				rec = f.do(t, tt.method, tt.target, tt.body, HeaderAPIKey, tt.key)
			}
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestServer_RateLimit(t *testing.T) {
	t.Parallel()

	f := newFixture(t, func(_ *config.Config, d *Deps) {
		d.Limiter = ratelimit.New(ratelimit.Config{RPS: 0.001, Burst: 1})
	})

	rec := f.do(t, http.MethodGet, "/v1/mdupdates?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodGet, "/v1/mdupdates?limit=1", "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "1", rec.Header().Get("Retry-After"))

	rec = f.do(t, http.MethodGet, "/v1/mdupdates?limit=1", "", HeaderAPIKey, "other-client")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestStatusFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want int
	}{
		{err: paging.NewValidationError("limit", "-1", nil), want: http.StatusBadRequest},
		{err: fmt.Errorf("page: %w", paging.ErrPaginationConflict), want: http.StatusConflict},
		{err: fmt.Errorf("au: %w", store.ErrNotFound), want: http.StatusNotFound},
		{err: store.ErrForbidden, want: http.StatusForbidden},
		{err: fmt.Errorf("au busy: %w", store.ErrNotEligible), want: http.StatusForbidden},
		{err: fmt.Errorf("enqueue: %w", store.ErrQueueFull), want: http.StatusServiceUnavailable},
		{err: paging.ErrDuplicateKey, want: http.StatusInternalServerError},
		{err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
