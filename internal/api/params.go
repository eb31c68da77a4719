package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JakeFAU/lockss-laaws/internal/paging"
)

const maxBodyBytes = 1 << 20

var (
	errNotInteger = errors.New("must be an integer")
	errRequired   = errors.New("required")
)

// intParam returns the named query parameter, or nil when it is absent.
func intParam(r *http.Request, name string) (*int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, paging.NewValidationError(name, raw, errNotInteger)
	}
	return &n, nil
}

// cursorRequest reads limit and continuationToken. The limit is mandatory.
func (s *Server) cursorRequest(r *http.Request) (int, paging.Token, error) {
	limit, err := intParam(r, paging.ParamLimit)
	if err != nil {
		return 0, paging.Token{}, err
	}
	if limit == nil {
		return 0, paging.Token{}, paging.NewValidationError(paging.ParamLimit, "", errRequired)
	}
	if *limit < 0 {
		return 0, paging.Token{}, paging.NewValidationError(paging.ParamLimit, strconv.Itoa(*limit),
			errors.New("must not be negative"))
	}
	tok, err := paging.DecodeToken(r.URL.Query().Get(paging.ParamContinuationToken))
	if err != nil {
		return 0, paging.Token{}, err
	}
	return s.cursorLimits.Cap(*limit), tok, nil
}

// offsetRequest reads page and size. Values below 1 are clamped by the paginator.
func (s *Server) offsetRequest(r *http.Request) (int, int, error) {
	page, err := intParam(r, paging.ParamPage)
	if err != nil {
		return 0, 0, err
	}
	size, err := intParam(r, paging.ParamSize)
	if err != nil {
		return 0, 0, err
	}
	pageNumber := 1
	if page != nil {
		pageNumber = *page
	}
	return pageNumber, s.pageSizes.Normalize(size), nil
}

// origin returns scheme://host of the request as the client addressed it.
func origin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if fwd := r.Header.Get("X-Forwarded-Proto"); fwd != "" {
		scheme, _, _ = strings.Cut(fwd, ",")
		scheme = strings.TrimSpace(scheme)
	}
	host := r.Host
	if fwd := r.Header.Get("X-Forwarded-Host"); fwd != "" {
		host, _, _ = strings.Cut(fwd, ",")
		host = strings.TrimSpace(host)
	}
	return scheme + "://" + host
}

// requestBase returns the absolute request URI without its query.
func requestBase(r *http.Request) string {
	path := r.URL.EscapedPath()
	return origin(r) + path
}

// pathParam returns the chi URL parameter name. chi matches on the raw path
// when the request has one, leaving parameters escaped.
func pathParam(r *http.Request, name string) (string, error) {
	v := chi.URLParam(r, name)
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(v)
		if err != nil {
			return "", paging.NewValidationError(name, v, err)
		}
		v = unescaped
	}
	if v == "" {
		return "", paging.NewValidationError(name, v, errors.New("must not be empty"))
	}
	return v, nil
}

// decodeBody reads a JSON request body into dst.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return paging.NewValidationError("body", "", err)
	}
	return nil
}
