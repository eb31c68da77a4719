package paging

import (
	"cmp"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Key is the stable sort key of an item in a cursor-paged collection.
// Seq must be monotonic with insertion; ID breaks ties and must be unique
// and non-empty.
type Key struct {
	Seq int64
	ID  string
}

// Compare orders keys by Seq, then ID.
func (k Key) Compare(other Key) int {
	if c := cmp.Compare(k.Seq, other.Seq); c != 0 {
		return c
	}
	return strings.Compare(k.ID, other.ID)
}

func (k Key) String() string {
	return fmt.Sprintf("%d/%s", k.Seq, k.ID)
}

// Keyed is implemented by items that can be cursor paged.
type Keyed interface {
	PageKey() Key
}

// Generation stamps the ordering-relevant state of a collection as seen
// through a token: the number of items up to and including the anchor and a
// fingerprint over their keys, in order.
type Generation struct {
	Count       int
	Fingerprint uint64
}

// generationOf fingerprints an ordered prefix.
func generationOf[T Keyed](prefix []T) Generation {
	d := xxhash.New()
	var buf [8]byte
	for _, item := range prefix {
		k := item.PageKey()
		binary.BigEndian.PutUint64(buf[:], uint64(k.Seq))
		_, _ = d.Write(buf[:])
		_, _ = d.WriteString(k.ID)
		_, _ = d.Write([]byte{0})
	}
	return Generation{Count: len(prefix), Fingerprint: d.Sum64()}
}
