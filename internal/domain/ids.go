package domain

import "strconv"

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// DimensionValue renders a nullable dimension id the way cache keys and
// index entries expect: the literal id, or ALL when unset.
func DimensionValue(id int64) string {
	if id <= 0 {
		return WildcardAll
	}
	return formatID(id)
}
