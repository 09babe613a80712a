package keywordsense

import (
	"github.com/kailas-cloud/keywordsense/internal/domain/keyword"
	"github.com/kailas-cloud/keywordsense/internal/domain/run"
	"github.com/kailas-cloud/keywordsense/internal/domain/summary"
	"github.com/kailas-cloud/keywordsense/internal/usecase/analysis"
)

// Intent values.
const (
	IntentNavigational  = string(keyword.Navigational)
	IntentInformational = string(keyword.Informational)
	IntentTransactional = string(keyword.Transactional)
	IntentCommercial    = string(keyword.Commercial)
	IntentUnknown       = string(keyword.Unknown)
)

// Keyword is one classified keyword.
type Keyword struct {
	Original  string
	Cluster   string
	IsEnglish bool
	IsBrand   bool
	Intent    string
}

// Count is a label with its frequency.
type Count struct {
	Name  string
	Value int
}

// Summary aggregates a classified keyword set.
type Summary struct {
	Total        int
	EnglishCount int
	BrandCount   int
	Clusters     []Count // descending by count
	Intents      []Count // first-appearance order
}

// Progress reports run advancement after each batch.
type Progress struct {
	Processed    int
	Total        int
	Percent      int
	Batch        int
	TotalBatches int
}

// Result is the outcome of Analyze.
type Result struct {
	Keywords []Keyword
	Summary  Summary
	// FailedBatches holds zero-based indexes of batches that were skipped.
	FailedBatches []int
	// Warning is set when the input was truncated.
	Warning string
}

func keywordsFromDomain(recs []keyword.AnalyzedKeyword) []Keyword {
	out := make([]Keyword, len(recs))
	for i, k := range recs {
		out[i] = Keyword{
			Original:  k.Original(),
			Cluster:   k.Cluster(),
			IsEnglish: k.IsEnglish(),
			IsBrand:   k.IsBrand(),
			Intent:    string(k.Intent()),
		}
	}
	return out
}

func countsFromDomain(in []summary.Count) []Count {
	out := make([]Count, len(in))
	for i, c := range in {
		out[i] = Count(c)
	}
	return out
}

func summaryFromDomain(s summary.Summary) Summary {
	return Summary{
		Total:        s.Total,
		EnglishCount: s.EnglishCount,
		BrandCount:   s.BrandCount,
		Clusters:     countsFromDomain(s.Clusters),
		Intents:      countsFromDomain(s.Intents),
	}
}

func progressFromDomain(p run.Progress) Progress {
	return Progress(p)
}

func resultFromOutcome(o analysis.Outcome) Result {
	failed := o.FailedBatches
	if failed == nil {
		failed = []int{}
	}
	return Result{
		Keywords:      keywordsFromDomain(o.Records),
		Summary:       summaryFromDomain(summary.Summarize(o.Records)),
		FailedBatches: failed,
		Warning:       o.Warning,
	}
}
