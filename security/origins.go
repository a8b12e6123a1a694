package security

import "strings"

// OriginList is an ordered, de-duplicated set of normalized origins.
type OriginList []string

// NewOriginList normalizes raw origins: surrounding whitespace and trailing
// slashes are stripped, empty entries dropped and duplicates removed, keeping
// first-seen order. The input slice is not modified.
func NewOriginList(raw ...string) OriginList {
	seen := make(map[string]struct{}, len(raw))
	list := make(OriginList, 0, len(raw))
	for _, origin := range raw {
		origin = NormalizeOrigin(origin)
		if origin == "" {
			continue
		}
		if _, dup := seen[origin]; dup {
			continue
		}
		seen[origin] = struct{}{}
		list = append(list, origin)
	}
	return list
}

func NormalizeOrigin(origin string) string {
	return strings.TrimRight(strings.TrimSpace(origin), "/")
}

func (l OriginList) Contains(origin string) bool {
	origin = NormalizeOrigin(origin)
	for _, o := range l {
		if o == origin {
			return true
		}
	}
	return false
}

func (l OriginList) String() string {
	return strings.Join(l, " ")
}
