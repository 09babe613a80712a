package keywordsense

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/kailas-cloud/keywordsense/internal/usecase/analysis"
)

const promptPrefix = "Analyze the following keyword list: "

// echoCompleter classifies every keyword in the prompt into the "general" cluster.
// failOn makes any batch containing that keyword fail with err.
type echoCompleter struct {
	mu      sync.Mutex
	calls   int
	failOn  string
	err     error
	prompts []Prompt
}

func (e *echoCompleter) Complete(_ context.Context, p Prompt) (Completion, error) {
	e.mu.Lock()
	e.calls++
	e.prompts = append(e.prompts, p)
	e.mu.Unlock()

	var keywords []string
	if err := json.Unmarshal([]byte(strings.TrimPrefix(p.User, promptPrefix)), &keywords); err != nil {
		return Completion{}, fmt.Errorf("bad prompt: %w", err)
	}

	recs := make([]map[string]any, 0, len(keywords))
	for _, kw := range keywords {
		if e.failOn != "" && kw == e.failOn {
			return Completion{}, e.err
		}
		recs = append(recs, map[string]any{
			"original":  kw,
			"cluster":   "general",
			"isEnglish": true,
			"isBrand":   strings.Contains(kw, "acme"),
			"intent":    IntentInformational,
		})
	}
	body, _ := json.Marshal(map[string]any{"keywords": recs})
	return Completion{Text: string(body), PromptTokens: 10, OutputTokens: 5}, nil
}

// flakyCompleter fails the first n calls with err, then delegates.
type flakyCompleter struct {
	n     int
	err   error
	calls int
	next  Completer
}

func (f *flakyCompleter) Complete(ctx context.Context, p Prompt) (Completion, error) {
	f.calls++
	if f.calls <= f.n {
		return Completion{}, f.err
	}
	return f.next.Complete(ctx, p)
}

type mockAnalyzer struct {
	fn func(ctx context.Context, keywords []string, progress analysis.ProgressFunc) (analysis.Outcome, error)
}

func (m *mockAnalyzer) Process(
	ctx context.Context, keywords []string, progress analysis.ProgressFunc,
) (analysis.Outcome, error) {
	return m.fn(ctx, keywords, progress)
}
