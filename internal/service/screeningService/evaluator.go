package screeningService

import (
	"sort"
	"strings"

	"github.com/portfolio-engine/internal/model"
)

// Condition is the set of operators applied to one field path. All set
// operators must hold for the path to match (gte+lte forms a range).
type Condition struct {
	Gte *float64
	Lte *float64
	In  []string
	Nin []string
}

// Query maps dot-separated field paths (e.g. "fundamental_data.pe_ratio")
// to conditions. A record matches when every path's conditions hold; an
// empty query matches everything.
type Query map[string]Condition

// Apply filters records down to those matching every condition. A record
// missing a filtered path simply does not match.
func Apply(records []model.CatalogRecord, query Query) []model.CatalogRecord {
	if len(query) == 0 {
		return records
	}

	matched := make([]model.CatalogRecord, 0, len(records))
	for _, record := range records {
		if matches(record, query) {
			matched = append(matched, record)
		}
	}
	return matched
}

func matches(record model.CatalogRecord, query Query) bool {
	for path, cond := range query {
		value, ok := lookupPath(record, path)
		if !ok {
			return false
		}
		if !matchCondition(value, cond) {
			return false
		}
	}
	return true
}

func matchCondition(value any, cond Condition) bool {
	if cond.Gte != nil || cond.Lte != nil {
		num, ok := asFloat(value)
		if !ok {
			return false
		}
		if cond.Gte != nil && num < *cond.Gte {
			return false
		}
		if cond.Lte != nil && num > *cond.Lte {
			return false
		}
	}

	if len(cond.In) > 0 && !containsString(cond.In, asString(value)) {
		return false
	}

	if len(cond.Nin) > 0 && containsString(cond.Nin, asString(value)) {
		return false
	}

	return true
}

// SortRecords orders records by one field path; a leading "-" selects
// descending order. A record missing the field sorts as the zero value of
// the field's type.
func SortRecords(records []model.CatalogRecord, sortBy string) []model.CatalogRecord {
	if sortBy == "" {
		return records
	}

	descending := strings.HasPrefix(sortBy, "-")
	path := strings.TrimPrefix(sortBy, "-")

	sorted := make([]model.CatalogRecord, len(records))
	copy(sorted, records)

	sort.SliceStable(sorted, func(i, j int) bool {
		if descending {
			i, j = j, i
		}
		return lessByPath(sorted[i], sorted[j], path)
	})

	return sorted
}

func lessByPath(a, b model.CatalogRecord, path string) bool {
	av, _ := lookupPath(a, path)
	bv, _ := lookupPath(b, path)

	af, aNum := asFloat(av)
	bf, bNum := asFloat(bv)
	if aNum || bNum {
		return af < bf
	}

	return asString(av) < asString(bv)
}

// Paginate returns the 1-based page window clamped to the result length.
// An out-of-range page yields an empty list.
func Paginate(records []model.CatalogRecord, page, limit int) []model.CatalogRecord {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		return []model.CatalogRecord{}
	}

	start := (page - 1) * limit
	if start >= len(records) {
		return []model.CatalogRecord{}
	}

	end := start + limit
	if end > len(records) {
		end = len(records)
	}

	return records[start:end]
}

func lookupPath(record model.CatalogRecord, path string) (any, bool) {
	var value any = map[string]any(record)

	for _, key := range strings.Split(path, ".") {
		nested, ok := value.(map[string]any)
		if !ok {
			return nil, false
		}
		value, ok = nested[key]
		if !ok {
			return nil, false
		}
	}

	return value, true
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func asString(value any) string {
	s, ok := value.(string)
	if !ok {
		return ""
	}
	return s
}

func containsString(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
