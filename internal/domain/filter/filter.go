// Package filter narrows a classified keyword set the way the results table does.
package filter

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/keywordsense/internal/domain/keyword"
)

// Brand selects keywords by brand flag.
type Brand string

// Brand filter values.
const (
	BrandAll      Brand = "all"
	BrandOnly     Brand = "brand"
	BrandNonBrand Brand = "non-brand"
)

// Language selects keywords by language flag.
type Language string

// Language filter values.
const (
	LanguageAll        Language = "all"
	LanguageEnglish    Language = "english"
	LanguageNonEnglish Language = "non-english"
)

// Filter is a conjunction of a search term, brand, language and cluster selectors.
type Filter struct {
	search   string
	brand    Brand
	language Language
	cluster  string
}

// New validates and creates a Filter. Empty brand/language mean "all", empty cluster matches any.
func New(search string, brand Brand, language Language, cluster string) (Filter, error) {
	if brand == "" {
		brand = BrandAll
	}
	if language == "" {
		language = LanguageAll
	}
	switch brand {
	case BrandAll, BrandOnly, BrandNonBrand:
	default:
		return Filter{}, fmt.Errorf("unknown brand filter %q", brand)
	}
	switch language {
	case LanguageAll, LanguageEnglish, LanguageNonEnglish:
	default:
		return Filter{}, fmt.Errorf("unknown language filter %q", language)
	}
	if cluster == "all" {
		cluster = ""
	}
	return Filter{
		search:   strings.ToLower(strings.TrimSpace(search)),
		brand:    brand,
		language: language,
		cluster:  cluster,
	}, nil
}

// All returns a filter that matches every keyword.
func All() Filter {
	return Filter{brand: BrandAll, language: LanguageAll}
}

// IsEmpty reports whether the filter matches everything.
func (f Filter) IsEmpty() bool {
	return f.search == "" && f.cluster == "" &&
		(f.brand == BrandAll || f.brand == "") && (f.language == LanguageAll || f.language == "")
}

// Match reports whether k passes every selector.
func (f Filter) Match(k keyword.AnalyzedKeyword) bool {
	if f.search != "" &&
		!strings.Contains(strings.ToLower(k.Original()), f.search) &&
		!strings.Contains(strings.ToLower(k.Cluster()), f.search) {
		return false
	}
	switch f.brand {
	case BrandOnly:
		if !k.IsBrand() {
			return false
		}
	case BrandNonBrand:
		if k.IsBrand() {
			return false
		}
	}
	switch f.language {
	case LanguageEnglish:
		if !k.IsEnglish() {
			return false
		}
	case LanguageNonEnglish:
		if k.IsEnglish() {
			return false
		}
	}
	return f.cluster == "" || k.Cluster() == f.cluster
}

// Apply returns the matching keywords in their original order.
func (f Filter) Apply(records []keyword.AnalyzedKeyword) []keyword.AnalyzedKeyword {
	out := make([]keyword.AnalyzedKeyword, 0, len(records))
	for _, k := range records {
		if f.Match(k) {
			out = append(out, k)
		}
	}
	return out
}
