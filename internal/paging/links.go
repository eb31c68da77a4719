package paging

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// LinkStyle selects how offset pages point at their neighbours.
type LinkStyle string

const (
	// LinkStyleNumbers reports nextPage/prevPage as page numbers.
	LinkStyleNumbers LinkStyle = "numbers"
	// LinkStyleLinks reports nextLink/prevLink as absolute URIs.
	LinkStyleLinks LinkStyle = "links"
)

// ParseLinkStyle maps a configuration value onto a LinkStyle.
func ParseLinkStyle(s string) (LinkStyle, error) {
	switch LinkStyle(strings.ToLower(strings.TrimSpace(s))) {
	case LinkStyleNumbers, "":
		return LinkStyleNumbers, nil
	case LinkStyleLinks:
		return LinkStyleLinks, nil
	default:
		return "", fmt.Errorf("unknown link style %q", s)
	}
}

// Param is a single query parameter. Order is preserved in built links.
type Param struct {
	Name  string
	Value string
}

// LinkBuilder builds absolute links relative to a base URI.
type LinkBuilder struct {
	base *url.URL
	err  error
}

var errRelativeBase = errors.New("base link must be absolute")

// NewLinkBuilder parses base once. Parse failures are kept and surface as
// absent links from Link.
func NewLinkBuilder(base string) LinkBuilder {
	u, err := url.Parse(base)
	if err != nil {
		return LinkBuilder{err: err}
	}
	if !u.IsAbs() || u.Host == "" {
		return LinkBuilder{err: errRelativeBase}
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.RawFragment = ""
	return LinkBuilder{base: u}
}

// Err reports why the builder cannot produce links, if it cannot.
func (b LinkBuilder) Err() error {
	return b.err
}

// Link returns base with params appended as a query string. ok is false when
// the base link was unusable.
func (b LinkBuilder) Link(params ...Param) (string, bool) {
	if b.base == nil {
		return "", false
	}
	u := *b.base
	var sb strings.Builder
	for i, p := range params {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(p.Name))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(p.Value))
	}
	u.RawQuery = sb.String()
	return u.String(), true
}

// Path returns a builder rooted at base with elems appended to its path.
func (b LinkBuilder) Path(elems ...string) LinkBuilder {
	if b.base == nil {
		return b
	}
	return LinkBuilder{base: b.base.JoinPath(elems...)}
}
