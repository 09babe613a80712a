package classify

import (
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/keywordsense/internal/domain"
)

// SchemaName names the structured response for providers that require one.
const SchemaName = "keyword_analysis"

const systemInstruction = `You are an SEO and NLP specialist. Analyze every keyword in the list you receive.
For each keyword return an object with:
1. "original": the keyword exactly as given.
2. "cluster": a short semantic topic for the keyword, written in Vietnamese (for example "Giày dép", "Công nghệ", "Review").
3. "isEnglish": true only if the keyword is entirely English.
4. "isBrand": true if the keyword contains a specific brand name (for example Nike, Samsung, Shopee).
5. "intent": the search intent, one of Navigational, Informational, Transactional, Commercial, Unknown.

Return one object per keyword in the input order as plain JSON {"keywords": [...]}. Do not use Markdown.`

// responseSchema is wrapped in an object: structured-output providers reject a top-level array.
var responseSchema = []byte(`{
  "type": "object",
  "properties": {
    "keywords": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "original":  {"type": "string"},
          "cluster":   {"type": "string"},
          "isEnglish": {"type": "boolean"},
          "isBrand":   {"type": "boolean"},
          "intent":    {"type": "string", "enum": ["Navigational", "Informational", "Transactional", "Commercial", "Unknown"]}
        },
        "required": ["original", "cluster", "isEnglish", "isBrand", "intent"],
        "additionalProperties": false
      }
    }
  },
  "required": ["keywords"],
  "additionalProperties": false
}`)

// BuildPrompt creates the request for one batch. The keyword order is preserved.
func BuildPrompt(keywords []string) (domain.Prompt, error) {
	list, err := json.Marshal(keywords)
	if err != nil {
		return domain.Prompt{}, fmt.Errorf("marshal keywords: %w", err)
	}
	return domain.Prompt{
		System:     systemInstruction,
		User:       "Analyze the following keyword list: " + string(list),
		Schema:     responseSchema,
		SchemaName: SchemaName,
	}, nil
}
