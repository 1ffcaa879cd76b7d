// Package version implements total ordering over version strings of the
// shape "[epoch:]upstream[-release]", the way rpm and dpkg order package
// versions: epoch first, then upstream and release compared by alternating
// digit/non-digit runs, with "~" sorting before everything else so that
// pre-release suffixes like "1.0~rc1" order before "1.0".
package version

import (
	"strconv"
	"strings"

	"github.com/siloworks/silo/internal/types"
)

// Ordering is the result of comparing two versions.
type Ordering int

const (
	Less    Ordering = -1
	Equal   Ordering = 0
	Greater Ordering = 1
)

// Version is a parsed, comparable version string.
type Version struct {
	Epoch    int64
	Upstream string
	Release  string
	raw      string
}

// String returns the version string exactly as it was given to Parse.
func (v Version) String() string { return v.raw }

// Parse splits s into epoch, upstream, and release components. An absent
// epoch defaults to 0; an absent release compares as if it were "0".
func Parse(s string) (Version, error) {
	raw := s
	if s == "" {
		return Version{}, types.NewVersionParseError(s)
	}

	epoch := int64(0)
	rest := s
	if idx := strings.IndexByte(s, ':'); idx >= 0 {
		epochStr := s[:idx]
		n, err := strconv.ParseInt(epochStr, 10, 64)
		if err != nil {
			return Version{}, types.NewVersionParseError(s)
		}
		epoch = n
		rest = s[idx+1:]
	}

	upstream := rest
	release := ""
	if idx := strings.LastIndexByte(rest, '-'); idx >= 0 {
		upstream = rest[:idx]
		release = rest[idx+1:]
	}

	if upstream == "" {
		return Version{}, types.NewVersionParseError(s)
	}

	return Version{Epoch: epoch, Upstream: upstream, Release: release, raw: raw}, nil
}

// MustParse panics on an unparseable string. Used only in tests and constant
// version tables, never on user- or repository-supplied input.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Compare implements the full three-way ordering described in spec §4.6.
func Compare(a, b Version) Ordering {
	if a.Epoch != b.Epoch {
		if a.Epoch < b.Epoch {
			return Less
		}
		return Greater
	}
	if o := compareSegments(a.Upstream, b.Upstream); o != Equal {
		return o
	}
	ar, br := a.Release, b.Release
	if ar == "" {
		ar = "0"
	}
	if br == "" {
		br = "0"
	}
	return compareSegments(ar, br)
}

// segment is one maximal run of either digits or non-digits.
type segment struct {
	text    string
	isDigit bool
}

func segments(s string) []segment {
	var out []segment
	i := 0
	for i < len(s) {
		start := i
		isDigit := isASCIIDigit(s[i])
		for i < len(s) && isASCIIDigit(s[i]) == isDigit {
			i++
		}
		out = append(out, segment{text: s[start:i], isDigit: isDigit})
	}
	return out
}

func isASCIIDigit(b byte) bool { return b >= '0' && b <= '9' }

// compareSegments walks alternating digit/non-digit runs of a and b. Digit
// runs compare numerically (leading zeros ignored); non-digit runs compare
// rune-by-rune where '~' sorts before everything, including the end of a
// string, and any other character sorts by its ordinary byte value.
func compareSegments(a, b string) Ordering {
	sa, sb := segments(a), segments(b)
	for i := 0; i < len(sa) || i < len(sb); i++ {
		var segA, segB segment
		hasA, hasB := i < len(sa), i < len(sb)
		if hasA {
			segA = sa[i]
		}
		if hasB {
			segB = sb[i]
		}

		switch {
		case hasA && hasB:
			if segA.isDigit != segB.isDigit {
				// A digit run and a non-digit run at the same position: the
				// shorter/missing side is treated as numerically zero so
				// "1.0" and "1.0.0" style mismatches still compare sanely.
				if segA.isDigit {
					if segA.text != "0" {
						return Greater
					}
				} else if segB.isDigit {
					if segB.text != "0" {
						return Less
					}
				}
				if o := compareNonDigitRun(segA.text, segB.text); o != Equal {
					return o
				}
				continue
			}
			if segA.isDigit {
				if o := compareNumeric(segA.text, segB.text); o != Equal {
					return o
				}
			} else {
				if o := compareNonDigitRun(segA.text, segB.text); o != Equal {
					return o
				}
			}
		case hasA && !hasB:
			return compareTailAgainstNothing(segA)
		case !hasA && hasB:
			o := compareTailAgainstNothing(segB)
			return invert(o)
		}
	}
	return Equal
}

// compareTailAgainstNothing orders a trailing segment against "the string
// already ended". A leading '~' sorts before end-of-string; a digit run of
// only zeros compares equal to it; anything else sorts after.
func compareTailAgainstNothing(seg segment) Ordering {
	if !seg.isDigit && strings.HasPrefix(seg.text, "~") {
		return Less
	}
	if seg.isDigit && trimLeadingZeros(seg.text) == "" {
		return Equal
	}
	return Greater
}

func invert(o Ordering) Ordering {
	switch o {
	case Less:
		return Greater
	case Greater:
		return Less
	default:
		return Equal
	}
}

func compareNumeric(a, b string) Ordering {
	a, b = trimLeadingZeros(a), trimLeadingZeros(b)
	if len(a) != len(b) {
		if len(a) < len(b) {
			return Less
		}
		return Greater
	}
	switch {
	case a < b:
		return Less
	case a > b:
		return Greater
	default:
		return Equal
	}
}

func trimLeadingZeros(s string) string {
	s = strings.TrimLeft(s, "0")
	return s
}

// compareNonDigitRun compares two non-digit runs character by character.
// '~' sorts before everything, including the empty string; letters (ASCII
// alpha, case-insensitively) sort before any other separator character.
func compareNonDigitRun(a, b string) Ordering {
	for i := 0; ; i++ {
		var ca, cb byte
		hasA := i < len(a)
		hasB := i < len(b)
		if hasA {
			ca = a[i]
		}
		if hasB {
			cb = b[i]
		}
		if !hasA && !hasB {
			return Equal
		}
		wa := charWeight(hasA, ca)
		wb := charWeight(hasB, cb)
		if wa != wb {
			if wa < wb {
				return Less
			}
			return Greater
		}
		if hasA && hasB && isAlpha(ca) && isAlpha(cb) {
			la, lb := lower(ca), lower(cb)
			if la != lb {
				if la < lb {
					return Less
				}
				return Greater
			}
		}
	}
}

// charWeight orders: '~' (lowest) < end-of-string < letters < everything
// else, matching rpm/dpkg's tilde-sorts-before-everything rule.
func charWeight(present bool, c byte) int {
	if present && c == '~' {
		return 0
	}
	if !present {
		return 1
	}
	if isAlpha(c) {
		return 2
	}
	return 3
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c - 'A' + 'a'
	}
	return c
}
