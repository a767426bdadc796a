package cache

import (
	"sort"
	"strconv"
	"strings"

	"tutorhub-backend/internal/domain"
)

// Key namespaces, per feature:
//
//	<feature>:list:page_<p>:size_<s>:<dim>_<val|ALL>...
//	<feature>:index:<dimension>:<value|ALL>
//	<feature>:lock:<cacheKey>
//
// Dimensions are ordered canonically by name, so identical filter
// parameters always produce the identical key regardless of the order the
// caller assembled them in.

// ListKey builds the cache key for one page of a filtered listing.
func ListKey(feature string, page, size int, dims []domain.Dimension) string {
	sorted := make([]domain.Dimension, len(dims))
	copy(sorted, dims)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var b strings.Builder
	b.WriteString(feature)
	b.WriteString(":list:page_")
	b.WriteString(strconv.Itoa(page))
	b.WriteString(":size_")
	b.WriteString(strconv.Itoa(size))
	for _, d := range sorted {
		b.WriteByte(':')
		b.WriteString(d.Name)
		b.WriteByte('_')
		b.WriteString(d.Value)
	}
	return b.String()
}

// IndexKey builds the dimension-index set key for one dimension value.
func IndexKey(feature string, dim domain.Dimension) string {
	return feature + ":index:" + dim.Name + ":" + dim.Value
}

// LockKey builds the recompute-lock key guarding one cache key.
func LockKey(feature, cacheKey string) string {
	return feature + ":lock:" + cacheKey
}

// HotKey names a non-paginated hot endpoint payload, e.g.
// "teachers:hot:featured".
func HotKey(feature, name string) string {
	return feature + ":hot:" + name
}
