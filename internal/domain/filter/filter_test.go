package filter

import (
	"testing"

	"github.com/kailas-cloud/keywordsense/internal/domain/keyword"
)

func fixture(t *testing.T) []keyword.AnalyzedKeyword {
	t.Helper()
	rows := []struct {
		original, cluster string
		english, brand    bool
		intent            keyword.Intent
	}{
		{"iphone 15", "Công nghệ", false, true, keyword.Transactional},
		{"giày nike", "Giày dép", false, true, keyword.Commercial},
		{"áo thun", "Thời trang", false, false, keyword.Commercial},
		{"running shoes", "Giày dép", true, false, keyword.Informational},
	}
	out := make([]keyword.AnalyzedKeyword, 0, len(rows))
	for _, r := range rows {
		k, err := keyword.New(r.original, r.cluster, r.english, r.brand, r.intent)
		if err != nil {
			t.Fatalf("keyword.New: %v", err)
		}
		out = append(out, k)
	}
	return out
}

func originals(ks []keyword.AnalyzedKeyword) []string {
	out := make([]string, len(ks))
	for i, k := range ks {
		out[i] = k.Original()
	}
	return out
}

func TestApply(t *testing.T) {
	data := fixture(t)

	tests := []struct {
		name     string
		search   string
		brand    Brand
		language Language
		cluster  string
		want     []string
	}{
		{name: "empty matches all", want: []string{"iphone 15", "giày nike", "áo thun", "running shoes"}},
		{name: "search original", search: "NIKE", want: []string{"giày nike"}},
		{name: "search cluster", search: "giày dép", want: []string{"giày nike", "running shoes"}},
		{name: "brand only", brand: BrandOnly, want: []string{"iphone 15", "giày nike"}},
		{name: "non-brand", brand: BrandNonBrand, want: []string{"áo thun", "running shoes"}},
		{name: "english", language: LanguageEnglish, want: []string{"running shoes"}},
		{name: "non-english", language: LanguageNonEnglish, want: []string{"iphone 15", "giày nike", "áo thun"}},
		{name: "cluster", cluster: "Giày dép", want: []string{"giày nike", "running shoes"}},
		{name: "cluster all keyword", cluster: "all", want: []string{"iphone 15", "giày nike", "áo thun", "running shoes"}},
		{name: "combined", brand: BrandOnly, cluster: "Giày dép", want: []string{"giày nike"}},
		{name: "no match", search: "samsung", want: []string{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f, err := New(tc.search, tc.brand, tc.language, tc.cluster)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			got := originals(f.Apply(data))
			if len(got) != len(tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("got[%d] = %q, want %q", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestNew_Invalid(t *testing.T) {
	if _, err := New("", Brand("maybe"), "", ""); err == nil {
		t.Error("expected error for unknown brand filter")
	}
	if _, err := New("", "", Language("vietnamese-ish"), ""); err == nil {
		t.Error("expected error for unknown language filter")
	}
}

func TestIsEmpty(t *testing.T) {
	if !All().IsEmpty() {
		t.Error("All() should be empty")
	}
	f, _ := New("x", "", "", "")
	if f.IsEmpty() {
		t.Error("filter with search term should not be empty")
	}
}
