package classify

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/keywordsense/internal/domain"
	"github.com/kailas-cloud/keywordsense/internal/domain/keyword"
)

// wireRecord uses pointers so that absent fields are distinguishable from zero values.
type wireRecord struct {
	Original  *string `json:"original"`
	Cluster   *string `json:"cluster"`
	IsEnglish *bool   `json:"isEnglish"`
	IsBrand   *bool   `json:"isBrand"`
	Intent    *string `json:"intent"`
}

type wireEnvelope struct {
	Keywords *[]wireRecord `json:"keywords"`
}

// stripFences removes a leading ```json or ``` fence, a trailing ``` fence and surrounding whitespace.
func stripFences(text string) string {
	s := strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(s, "```json"):
		s = strings.TrimPrefix(s, "```json")
	case strings.HasPrefix(s, "```"):
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// parseRecords decodes a bare array or a {"keywords": [...]} envelope into validated keywords.
func parseRecords(text string) ([]keyword.AnalyzedKeyword, error) {
	body := stripFences(text)
	if body == "" {
		return nil, fmt.Errorf("empty response body: %w", domain.ErrInvalidResponse)
	}

	var recs []wireRecord
	switch body[0] {
	case '[':
		if err := json.Unmarshal([]byte(body), &recs); err != nil {
			return nil, fmt.Errorf("decode array: %v: %w", err, domain.ErrInvalidResponse)
		}
	case '{':
		var env wireEnvelope
		if err := json.Unmarshal([]byte(body), &env); err != nil {
			return nil, fmt.Errorf("decode object: %v: %w", err, domain.ErrInvalidResponse)
		}
		if env.Keywords == nil {
			return nil, fmt.Errorf("missing keywords array: %w", domain.ErrInvalidResponse)
		}
		recs = *env.Keywords
	default:
		return nil, fmt.Errorf("unexpected payload start %q: %w", body[0], domain.ErrInvalidResponse)
	}

	out := make([]keyword.AnalyzedKeyword, 0, len(recs))
	for i, r := range recs {
		k, err := r.toDomain()
		if err != nil {
			return nil, fmt.Errorf("record %d: %v: %w", i, err, domain.ErrInvalidResponse)
		}
		out = append(out, k)
	}
	return out, nil
}

func (r wireRecord) toDomain() (keyword.AnalyzedKeyword, error) {
	var missing []string
	if r.Original == nil {
		missing = append(missing, "original")
	}
	if r.Cluster == nil {
		missing = append(missing, "cluster")
	}
	if r.IsEnglish == nil {
		missing = append(missing, "isEnglish")
	}
	if r.IsBrand == nil {
		missing = append(missing, "isBrand")
	}
	if r.Intent == nil {
		missing = append(missing, "intent")
	}
	if len(missing) > 0 {
		return keyword.AnalyzedKeyword{}, fmt.Errorf("missing fields %s", strings.Join(missing, ", "))
	}
	intent, err := keyword.ParseIntent(*r.Intent)
	if err != nil {
		return keyword.AnalyzedKeyword{}, err //nolint:wrapcheck // wrapped with ErrInvalidResponse by caller
	}
	return keyword.New(*r.Original, *r.Cluster, *r.IsEnglish, *r.IsBrand, intent) //nolint:wrapcheck // same
}

// align orders records by the input batch. Each input keyword consumes at most one
// record with a matching original (trimmed, case-insensitive). Unmatched records are
// dropped; input keywords without a record are omitted from the output.
func align(input []string, recs []keyword.AnalyzedKeyword, logger *zap.Logger) []keyword.AnalyzedKeyword {
	pending := make(map[string][]keyword.AnalyzedKeyword, len(recs))
	for _, r := range recs {
		key := matchKey(r.Original())
		pending[key] = append(pending[key], r)
	}

	out := make([]keyword.AnalyzedKeyword, 0, len(input))
	missing := 0
	for _, kw := range input {
		key := matchKey(kw)
		queue := pending[key]
		if len(queue) == 0 {
			missing++
			continue
		}
		r := queue[0]
		pending[key] = queue[1:]
		if r.Original() != kw {
			// keep the caller's spelling
			respelled, err := keyword.New(kw, r.Cluster(), r.IsEnglish(), r.IsBrand(), r.Intent())
			if err != nil {
				logger.Warn("Dropping record that cannot carry the input spelling",
					zap.String("keyword", kw), zap.Error(err))
				missing++
				continue
			}
			r = respelled
		}
		out = append(out, r)
	}

	extra := 0
	for _, q := range pending {
		extra += len(q)
	}
	if missing > 0 || extra > 0 {
		logger.Warn("Classifier response does not match batch",
			zap.Int("batch_size", len(input)),
			zap.Int("records", len(recs)),
			zap.Int("missing", missing),
			zap.Int("unexpected", extra),
		)
	}
	return out
}

func matchKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
