package paging

import "strconv"

// Query parameter names shared by builders and request parsing.
const (
	ParamLimit             = "limit"
	ParamContinuationToken = "continuationToken"
	ParamPage              = "page"
	ParamSize              = "size"
)

// PageInfo describes a cursor page to the client.
type PageInfo struct {
	ResultsPerPage    int    `json:"resultsPerPage"`
	CurLink           string `json:"curLink,omitempty"`
	ContinuationToken string `json:"continuationToken,omitempty"`
	NextLink          string `json:"nextLink,omitempty"`
}

// PageDesc describes an offset page to the client. Depending on the link
// style either the page numbers or the links of the neighbours are set.
type PageDesc struct {
	Total    int    `json:"total"`
	Size     int    `json:"size"`
	Page     int    `json:"page"`
	NextPage *int   `json:"nextPage,omitempty"`
	PrevPage *int   `json:"prevPage,omitempty"`
	NextLink string `json:"nextLink,omitempty"`
	PrevLink string `json:"prevLink,omitempty"`
}

// CursorInfo assembles the pageInfo block for p. Links are omitted when
// links cannot be built from b.
func CursorInfo[T any](p CursorPage[T], b LinkBuilder) PageInfo {
	info := PageInfo{ResultsPerPage: len(p.Items)}

	if cur, ok := b.Link(cursorParams(p.Limit, EncodeToken(p.Token))...); ok {
		info.CurLink = cur
	}
	if p.HasMore {
		next := EncodeToken(p.Next)
		info.ContinuationToken = next
		if link, ok := b.Link(cursorParams(p.Limit, next)...); ok {
			info.NextLink = link
		}
	}
	return info
}

func cursorParams(limit int, token string) []Param {
	params := []Param{{Name: ParamLimit, Value: strconv.Itoa(limit)}}
	if token != "" {
		params = append(params, Param{Name: ParamContinuationToken, Value: token})
	}
	return params
}

// OffsetDesc assembles the pageDesc block for p in the given style. The
// builder is rooted at p.BaseLink; fixed params such as a sub-collection
// selector precede page and size in built links.
func OffsetDesc[T any](p OffsetPage[T], style LinkStyle, fixed ...Param) PageDesc {
	desc := PageDesc{Total: p.Total, Size: p.PageSize, Page: p.Page}

	switch style {
	case LinkStyleLinks:
		b := NewLinkBuilder(p.BaseLink)
		if p.HasNext {
			desc.NextLink, _ = b.Link(offsetParams(fixed, p.Page+1, p.PageSize)...)
		}
		if p.HasPrev {
			desc.PrevLink, _ = b.Link(offsetParams(fixed, p.Page-1, p.PageSize)...)
		}
	default:
		if p.HasNext {
			next := p.Page + 1
			desc.NextPage = &next
		}
		if p.HasPrev {
			prev := p.Page - 1
			desc.PrevPage = &prev
		}
	}
	return desc
}

func offsetParams(fixed []Param, page, size int) []Param {
	params := make([]Param, 0, len(fixed)+2)
	params = append(params, fixed...)
	return append(params,
		Param{Name: ParamPage, Value: strconv.Itoa(page)},
		Param{Name: ParamSize, Value: strconv.Itoa(size)},
	)
}

// LinkHeader renders an RFC 8288 Link header value for d, or "" when it has
// no links.
func LinkHeader(d PageDesc) string {
	var out string
	add := func(link, rel string) {
		if link == "" {
			return
		}
		if out != "" {
			out += ", "
		}
		out += "<" + link + `>; rel="` + rel + `"`
	}
	add(d.NextLink, "next")
	add(d.PrevLink, "prev")
	return out
}
