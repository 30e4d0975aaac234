package models

// HashID derives a compact numeric identifier from an opaque unique
// string, for consumers whose contract expects numeric ids. It is a
// plain 31-multiplier rolling hash truncated to a non-negative int32:
// one-way, collisions possible, display use only.
func HashID(s string) int32 {
	var h uint32
	for _, r := range s {
		h = h*31 + uint32(r)
	}
	return int32(h & 0x7fffffff)
}

// Regional indicator symbols start at U+1F1E6 ('A').
const regionalIndicatorBase = 0x1F1E6

// RegionFromFlag converts a two-letter flag-emoji region into its
// two-letter ISO code. Strings that carry no regional indicator symbols
// pass through unchanged.
func RegionFromFlag(flag string) string {
	out := make([]rune, 0, 2)
	converted := false
	for _, r := range flag {
		if r >= regionalIndicatorBase && r < regionalIndicatorBase+26 {
			out = append(out, 'A'+r-regionalIndicatorBase)
			converted = true
		} else {
			out = append(out, r)
		}
	}
	if !converted {
		return flag
	}
	return string(out)
}
