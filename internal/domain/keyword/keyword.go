// Package keyword holds the classified keyword record.
package keyword

import (
	"fmt"
	"strings"
)

// Intent is the presumed purpose behind a search keyword.
type Intent string

// Search intent values.
const (
	Navigational  Intent = "Navigational"
	Informational Intent = "Informational"
	Transactional Intent = "Transactional"
	Commercial    Intent = "Commercial"
	Unknown       Intent = "Unknown"
)

// Intents lists every valid intent in display order.
var Intents = []Intent{Navigational, Informational, Transactional, Commercial, Unknown}

// ParseIntent validates an intent string. Matching is exact.
func ParseIntent(s string) (Intent, error) {
	for _, i := range Intents {
		if string(i) == s {
			return i, nil
		}
	}
	return "", fmt.Errorf("unknown intent %q", s)
}

// AnalyzedKeyword is the classifier output for one input keyword. Immutable.
type AnalyzedKeyword struct {
	original  string
	cluster   string
	isEnglish bool
	isBrand   bool
	intent    Intent
}

// New creates an AnalyzedKeyword. original must be non-blank and intent valid.
func New(original, cluster string, isEnglish, isBrand bool, intent Intent) (AnalyzedKeyword, error) {
	if strings.TrimSpace(original) == "" {
		return AnalyzedKeyword{}, fmt.Errorf("original keyword is required")
	}
	if _, err := ParseIntent(string(intent)); err != nil {
		return AnalyzedKeyword{}, err
	}
	return AnalyzedKeyword{
		original:  original,
		cluster:   strings.TrimSpace(cluster),
		isEnglish: isEnglish,
		isBrand:   isBrand,
		intent:    intent,
	}, nil
}

// Original returns the input keyword text.
func (k AnalyzedKeyword) Original() string { return k.original }

// Cluster returns the semantic topic label.
func (k AnalyzedKeyword) Cluster() string { return k.cluster }

// IsEnglish reports whether the keyword is entirely English.
func (k AnalyzedKeyword) IsEnglish() bool { return k.isEnglish }

// IsBrand reports whether the keyword contains a brand name.
func (k AnalyzedKeyword) IsBrand() bool { return k.isBrand }

// Intent returns the search intent.
func (k AnalyzedKeyword) Intent() Intent { return k.intent }
