package ai

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/oilslick/catops/models"
)

// ParseReply interprets a raw backend reply as a classification result.
// Models wrap JSON in markdown fences or pad it with commentary more
// often than not, so extraction is permissive: find the first balanced
// JSON object, then coerce field by field. A reply with no usable JSON
// at all is an error result (Err set, verdict false, confidence zero)
// so the decision layer treats it as a failed call, never as an
// opinion. fallbackConfidence only fills in when parsed JSON omits or
// garbles the confidence field; an explicit zero stays zero.
func ParseReply(backend string, reply *Reply, fallbackConfidence float64) models.ModelResult {
	result := models.ModelResult{
		Backend: backend,
		Raw:     reply.Text,
		Fields:  map[string]any{},
		Usage: &models.Usage{
			InputUnits:  reply.InputUnits,
			OutputUnits: reply.OutputUnits,
		},
	}

	obj := extractJSONObject(reply.Text)
	if obj == "" {
		result.Err = "no JSON object in model reply"
		result.Rationale = firstLine(reply.Text)
		return result
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		result.Err = "model reply JSON did not decode"
		result.Rationale = firstLine(reply.Text)
		return result
	}

	confidenceSeen := false
	for key, value := range raw {
		switch key {
		case "verdict", "has_variants", "match":
			result.Verdict = coerceBool(value)
		case "confidence":
			result.Confidence = coerceConfidence(value, fallbackConfidence)
			confidenceSeen = true
		case "rationale", "reasoning":
			if s, ok := value.(string); ok {
				result.Rationale = s
			}
		default:
			result.Fields[key] = value
		}
	}

	if !confidenceSeen {
		result.Confidence = fallbackConfidence
	}
	return result
}

// extractJSONObject returns the first balanced top-level JSON object in
// the text, or empty when none exists. Markdown fences are stripped
// first since that alone covers most replies.
func extractJSONObject(text string) string {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	if json.Valid([]byte(cleaned)) && strings.HasPrefix(cleaned, "{") {
		return cleaned
	}

	start := strings.IndexRune(cleaned, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(cleaned); i++ {
		ch := cleaned[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					candidate := cleaned[start : i+1]
					if json.Valid([]byte(candidate)) {
						return candidate
					}
					return ""
				}
			}
		}
	}
	return ""
}

// coerceBool accepts the verdict spellings models actually produce.
func coerceBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		return s == "true" || s == "yes" || s == "y"
	case float64:
		return t != 0
	}
	return false
}

// coerceConfidence normalizes confidence to [0, 1]. Values above 1 are
// treated as percentages; anything unusable falls back.
func coerceConfidence(v any, fallback float64) float64 {
	var c float64
	switch t := v.(type) {
	case float64:
		c = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return fallback
		}
		c = parsed
	default:
		return fallback
	}

	if c > 1 {
		c = c / 100
	}
	if c < 0 || c > 1 {
		return fallback
	}
	return c
}

// firstLine trims a reply down to something loggable.
func firstLine(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}

// OptionSetsFromFields pulls proposed option axes out of parsed model
// fields. It tolerates the loose typing of decoded JSON: options arrive
// as []any of map[string]any.
func OptionSetsFromFields(fields map[string]any) []models.OptionSet {
	raw, ok := fields["options"]
	if !ok {
		return nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil
	}

	var sets []models.OptionSet
	for _, entry := range list {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		name, _ := m["name"].(string)
		if strings.TrimSpace(name) == "" {
			continue
		}
		values, ok := m["values"].([]any)
		if !ok {
			continue
		}
		set := models.OptionSet{Name: strings.TrimSpace(name)}
		seen := map[string]bool{}
		for _, v := range values {
			s, ok := v.(string)
			if !ok {
				continue
			}
			s = strings.TrimSpace(s)
			if s == "" || seen[strings.ToLower(s)] {
				continue
			}
			seen[strings.ToLower(s)] = true
			set.Values = append(set.Values, s)
		}
		if len(set.Values) > 0 {
			sets = append(sets, set)
		}
	}
	return sets
}
