package paging

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const (
	tokenVersion   = 1
	tokenSeparator = "."
)

// Token is a resumption point in a cursor-paged collection. The zero Token
// means "start from the beginning".
type Token struct {
	Position   Key
	Generation Generation
}

// IsStart reports whether t resumes from the beginning of the collection.
func (t Token) IsStart() bool {
	return t == Token{}
}

// tokenPayload is the JSON wire form of a Token. Field names are kept short
// since the encoded token travels in query strings.
type tokenPayload struct {
	Version     int    `json:"v"`
	Seq         int64  `json:"s"`
	ID          string `json:"i"`
	Count       int    `json:"n"`
	Fingerprint uint64 `json:"f"`
}

var encoding = base64.RawURLEncoding

// EncodeToken renders t as a URL-query safe string. The zero Token encodes
// to "".
func EncodeToken(t Token) string {
	if t.IsStart() {
		return ""
	}
	raw, err := json.Marshal(tokenPayload{
		Version:     tokenVersion,
		Seq:         t.Position.Seq,
		ID:          t.Position.ID,
		Count:       t.Generation.Count,
		Fingerprint: t.Generation.Fingerprint,
	})
	if err != nil {
		// Only plain scalars are marshaled.
		panic(fmt.Sprintf("paging: encode token: %v", err))
	}
	body := encoding.EncodeToString(raw)
	return body + tokenSeparator + checksum(body)
}

// DecodeToken parses a token produced by EncodeToken. The empty string
// decodes to the zero Token. Any other malformed input yields a
// ValidationError wrapping ErrInvalidToken.
func DecodeToken(s string) (Token, error) {
	if s == "" {
		return Token{}, nil
	}
	invalid := func(reason string) (Token, error) {
		return Token{}, NewValidationError("continuationToken", s,
			fmt.Errorf("%w: %s", ErrInvalidToken, reason))
	}

	body, sum, ok := strings.Cut(s, tokenSeparator)
	if !ok || body == "" || sum == "" {
		return invalid("malformed")
	}
	if checksum(body) != sum {
		return invalid("checksum mismatch")
	}
	raw, err := encoding.DecodeString(body)
	if err != nil {
		return invalid("bad encoding")
	}

	var p tokenPayload
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return invalid("bad payload")
	}
	if dec.More() {
		return invalid("trailing data")
	}
	if p.Version != tokenVersion {
		return invalid(fmt.Sprintf("unsupported version %d", p.Version))
	}
	if p.ID == "" || p.Count < 1 {
		return invalid("missing position")
	}

	return Token{
		Position:   Key{Seq: p.Seq, ID: p.ID},
		Generation: Generation{Count: p.Count, Fingerprint: p.Fingerprint},
	}, nil
}

// IsInvalidToken reports whether err was caused by an undecodable token.
func IsInvalidToken(err error) bool {
	return errors.Is(err, ErrInvalidToken)
}

func checksum(body string) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], xxhash.Sum64String(body))
	return encoding.EncodeToString(buf[:])
}
