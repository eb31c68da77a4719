// Package paging windows live collections into bounded, resumable pages.
//
// Two strategies are provided:
//   - Cursor pagination (FetchPage) for collections that grow or shrink
//     between requests. The returned Token anchors on the last item handed
//     out and carries a Generation fingerprint of the ordered prefix ending
//     at that item, so a later request can tell whether "resume after X" is
//     still meaningful. Appends after the anchor are tolerated; removal or
//     reordering at or before it yields ErrPaginationConflict.
//   - Offset pagination (Paginate) over a point-in-time snapshot, with a
//     total count and previous/next page numbers. No conflict detection is
//     attempted in this mode.
//
// LinkBuilder and the envelope helpers (CursorInfo, OffsetDesc) turn either
// kind of page into the pageInfo/pageDesc blocks returned to clients. A base
// link that cannot be parsed yields absent links rather than an error.
//
// Nothing in this package keeps state between calls; everything needed to
// resume travels inside the encoded token.
package paging
