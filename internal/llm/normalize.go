package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/talgya/alterlife/internal/game"
)

// textPaths are the locations the provider has been observed to place the
// generated text, in order of preference. The response shape is not fully
// stable across provider versions.
var textPaths = []string{
	"candidates.0.content.text",
	"candidates.0.content.parts.0.text",
	"text",
}

// ExtractText locates the model's text payload inside a provider-shaped
// reply. When no known path matches, the whole body is returned so the
// downstream parse failure carries the evidence.
func ExtractText(body []byte) string {
	for _, path := range textPaths {
		if v := gjson.GetBytes(body, path); v.Exists() {
			return strings.TrimSpace(v.String())
		}
	}
	return strings.TrimSpace(string(body))
}

// StripFences removes a Markdown code-fence wrapper from a payload the
// model insisted on decorating.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
	} else {
		return s
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ExtractSources pulls the grounding citations attached to a
// search-grounded reply. Missing metadata yields nil, not an error.
func ExtractSources(body []byte) []game.Source {
	chunks := gjson.GetBytes(body, "candidates.0.groundingMetadata.groundingChunks")
	if !chunks.Exists() {
		return nil
	}
	var sources []game.Source
	chunks.ForEach(func(_, chunk gjson.Result) bool {
		web := chunk.Get("web")
		if web.Exists() {
			sources = append(sources, game.Source{
				URI:   web.Get("uri").String(),
				Title: web.Get("title").String(),
			})
		}
		return true
	})
	return sources
}

// ParseTurn normalizes a raw provider reply into a TurnResult. It extracts
// the text payload, strips any code fences, and unmarshals the response
// schema. Anything unparsable is an error; callers decide the fallback.
func ParseTurn(body []byte) (game.TurnResult, error) {
	text := StripFences(ExtractText(body))
	var result game.TurnResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return game.TurnResult{}, fmt.Errorf("parse turn payload: %w", err)
	}
	if result.Narrative == "" {
		return game.TurnResult{}, fmt.Errorf("turn payload missing narrative")
	}
	return result, nil
}
