// Package fingerprint derives the canonical key of an archived book.
//
// The rule is public so that callers can compute a fingerprint themselves and
// query the archive by title and author:
//
//  1. lower-case title and author byte-wise (ASCII only; other bytes pass through),
//  2. render each as a bracketed list of decimal byte values, e.g. "ab" -> "[97, 98]",
//  3. concatenate the two renderings,
//  4. hash the result with BLAKE2b-256.
package fingerprint

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/starford/archiver/internal/apperr"
)

// Size is the width of a fingerprint in bytes.
const Size = blake2b.Size256

// Fingerprint identifies a (title, author) pair after normalization.
type Fingerprint [Size]byte

// Derive computes the fingerprint of title and author.
func Derive(title, author []byte) Fingerprint {
	return blake2b.Sum256(preImage(Normalize(title), Normalize(author)))
}

// Normalize returns a lower-cased copy of b. Only ASCII letters are folded.
func Normalize(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return out
}

// preImage renders both sequences as bracketed byte lists so the boundary
// between them stays visible: ("ab","c") -> "[97, 98][99]".
func preImage(title, author []byte) []byte {
	buf := make([]byte, 0, 4*(len(title)+len(author))+4)
	buf = appendByteList(buf, title)
	buf = appendByteList(buf, author)
	return buf
}

func appendByteList(buf, b []byte) []byte {
	buf = append(buf, '[')
	for i, c := range b {
		if i > 0 {
			buf = append(buf, ',', ' ')
		}
		buf = strconv.AppendUint(buf, uint64(c), 10)
	}
	return append(buf, ']')
}

// Parse decodes the hex form of a fingerprint. The 0x prefix is optional.
func Parse(s string) (Fingerprint, error) {
	var fp Fingerprint
	raw := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(raw) != hex.EncodedLen(Size) {
		return fp, fmt.Errorf("%w: want %d hex digits, got %d", apperr.ErrInvalidFingerprint, hex.EncodedLen(Size), len(raw))
	}
	if _, err := hex.Decode(fp[:], []byte(raw)); err != nil {
		return fp, fmt.Errorf("%w: %v", apperr.ErrInvalidFingerprint, err)
	}
	return fp, nil
}

// String returns the 0x-prefixed lower-case hex form.
func (f Fingerprint) String() string {
	return "0x" + hex.EncodeToString(f[:])
}

// Hex returns the hex form without prefix, used as a storage key.
func (f Fingerprint) Hex() string {
	return hex.EncodeToString(f[:])
}

// MarshalText implements encoding.TextMarshaler.
func (f Fingerprint) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Fingerprint) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
