// Package summary projects a classified keyword set into per-cluster and per-intent counts.
package summary

import (
	"cmp"
	"slices"

	"github.com/kailas-cloud/keywordsense/internal/domain/keyword"
)

// Count is a label with its frequency.
type Count struct {
	Name  string
	Value int
}

// Summary holds aggregate counts over a keyword set.
type Summary struct {
	Total        int
	EnglishCount int
	BrandCount   int
	// Clusters is sorted by descending count; ties keep first-appearance order.
	Clusters []Count
	// Intents keeps first-appearance order.
	Intents []Count
}

// Summarize computes the summary. It never mutates records.
func Summarize(records []keyword.AnalyzedKeyword) Summary {
	s := Summary{Total: len(records)}

	clusterIdx := make(map[string]int)
	intentIdx := make(map[keyword.Intent]int)

	for _, k := range records {
		if k.IsEnglish() {
			s.EnglishCount++
		}
		if k.IsBrand() {
			s.BrandCount++
		}

		if i, ok := clusterIdx[k.Cluster()]; ok {
			s.Clusters[i].Value++
		} else {
			clusterIdx[k.Cluster()] = len(s.Clusters)
			s.Clusters = append(s.Clusters, Count{Name: k.Cluster(), Value: 1})
		}

		if i, ok := intentIdx[k.Intent()]; ok {
			s.Intents[i].Value++
		} else {
			intentIdx[k.Intent()] = len(s.Intents)
			s.Intents = append(s.Intents, Count{Name: string(k.Intent()), Value: 1})
		}
	}

	slices.SortStableFunc(s.Clusters, func(a, b Count) int {
		return cmp.Compare(b.Value, a.Value)
	})
	return s
}

// ClusterNames returns distinct cluster labels in summary order.
func (s Summary) ClusterNames() []string {
	out := make([]string, len(s.Clusters))
	for i, c := range s.Clusters {
		out[i] = c.Name
	}
	return out
}
