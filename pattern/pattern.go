// Package pattern matches keys against glob patterns.
//
// A pattern is matched byte by byte and is case sensitive:
//
//	*       matches zero or more bytes
//	?       matches exactly one byte
//	[set]   matches one byte in set; a-z is a range, a leading ^ negates the set and a
//	        ] first in the set is literal
//
// Any other byte matches itself. A pattern with an unterminated set matches nothing.
package pattern

import (
	"strings"
)

type Pattern struct {
	pat     string
	prefix  string
	literal bool
	valid   bool
}

func Compile(pat string) *Pattern {
	p := &Pattern{
		pat:   pat,
		valid: true,
	}

	idx := strings.IndexAny(pat, "*?[")
	if idx < 0 {
		p.prefix = pat
		p.literal = true
		return p
	}
	p.prefix = pat[:idx]

	for idx < len(pat) {
		if pat[idx] == '[' {
			_, w, ok := matchSet(pat[idx:], 0)
			if !ok {
				p.valid = false
				break
			}
			idx += w
		} else {
			idx += 1
		}
	}
	return p
}

func Match(pat, key string) bool {
	return Compile(pat).Match(key)
}

func (p *Pattern) String() string {
	return p.pat
}

// Prefix returns the literal bytes which every matching key must start with.
func (p *Pattern) Prefix() string {
	return p.prefix
}

func (p *Pattern) Literal() bool {
	return p.literal
}

func (p *Pattern) Match(key string) bool {
	if !p.valid {
		return false
	} else if p.literal {
		return p.pat == key
	} else if !strings.HasPrefix(key, p.prefix) {
		return false
	}
	return match(p.pat[len(p.prefix):], key[len(p.prefix):])
}

func match(pat, s string) bool {
	var px, sx int
	starPx, starSx := -1, 0

	for px < len(pat) || sx < len(s) {
		if px < len(pat) {
			switch c := pat[px]; c {
			case '*':
				starPx = px
				starSx = sx + 1
				px += 1
				continue
			case '?':
				if sx < len(s) {
					px += 1
					sx += 1
					continue
				}
			case '[':
				if sx < len(s) {
					ok, w, _ := matchSet(pat[px:], s[sx])
					if ok {
						px += w
						sx += 1
						continue
					}
				}
			default:
				if sx < len(s) && s[sx] == c {
					px += 1
					sx += 1
					continue
				}
			}
		}

		// Mismatch: let the last * consume one more byte and try again.
		if starPx >= 0 && starSx <= len(s) {
			px = starPx
			sx = starSx
			continue
		}
		return false
	}

	return true
}

// matchSet matches c against the set at the start of pat; it returns whether c is in the set,
// the width of the set in pat, and false for ok if the set is not terminated.
func matchSet(pat string, c byte) (matched bool, width int, ok bool) {
	idx := 1
	negate := false
	if idx < len(pat) && pat[idx] == '^' {
		negate = true
		idx += 1
	}

	first := true
	for idx < len(pat) {
		lo := pat[idx]
		if lo == ']' && !first {
			return matched != negate, idx + 1, true
		}
		first = false

		if idx+2 < len(pat) && pat[idx+1] == '-' && pat[idx+2] != ']' {
			hi := pat[idx+2]
			if lo <= c && c <= hi {
				matched = true
			}
			idx += 3
		} else {
			if c == lo {
				matched = true
			}
			idx += 1
		}
	}

	return false, 0, false
}
