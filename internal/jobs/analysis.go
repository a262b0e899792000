package jobs

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Requirement is the structured extraction of a posting's needs, used as the
// matching query. The extractor's JSON is consumed loosely: field names vary
// between model versions, so consumers must go through the alias resolution
// in ParseRequirement instead of assuming canonical keys.
type Requirement struct {
	HardSkills []string `json:"hard_skills" mapstructure:"hard_skills"`
	SoftSkills []string `json:"soft_skills" mapstructure:"soft_skills"`
	Domain     string   `json:"company_domain" mapstructure:"company_domain"`
	RoleType   string   `json:"job_type" mapstructure:"job_type"`
	MatchScore float64  `json:"match_score" mapstructure:"match_score"`
	Rationale  string   `json:"special_instructions" mapstructure:"special_instructions"`

	// Raw keeps the decoded object as returned by the extractor, so the
	// stored analysis blob loses nothing the schema above does not know about.
	Raw map[string]any `json:"-" mapstructure:"-"`
}

// hardSkillAliases is the resolution order for the skills list across known
// extractor versions.
var hardSkillAliases = []string{"hard_skills", "required_skills", "skills"}

// ParseRequirement decodes extractor output into a Requirement. It accepts
// markdown-fenced JSON, prose with an embedded object, and a one-element
// array wrapping the object. Anything else is an error, which callers treat
// as a soft, retryable failure.
func ParseRequirement(raw string) (*Requirement, error) {
	cleaned := ExtractJSON(raw)

	var decoded any
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		return nil, fmt.Errorf("parse requirement json: %w", err)
	}

	obj, err := asObject(decoded)
	if err != nil {
		return nil, err
	}

	req := &Requirement{}
	cfg := &mapstructure.DecoderConfig{
		Result:           req,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, fmt.Errorf("build requirement decoder: %w", err)
	}
	if err := decoder.Decode(obj); err != nil {
		return nil, fmt.Errorf("decode requirement: %w", err)
	}

	req.Raw = obj
	req.HardSkills = resolveStringList(obj, hardSkillAliases...)
	if len(req.SoftSkills) == 0 {
		req.SoftSkills = resolveStringList(obj, "soft_skills")
	}
	req.Domain = resolveDomain(obj)
	if req.RoleType == "" {
		req.RoleType = coerceString(firstPresent(obj, "job_type", "role_type", "position_type"))
	}
	req.MatchScore = resolveScore(obj)
	if req.Rationale == "" {
		req.Rationale = coerceString(firstPresent(obj, "special_instructions", "reason", "rationale"))
	}

	return req, nil
}

// asObject unwraps the decoded JSON into a single object, accepting either a
// bare object or a one-element array containing one.
func asObject(decoded any) (map[string]any, error) {
	switch v := decoded.(type) {
	case map[string]any:
		return v, nil
	case []any:
		if len(v) == 0 {
			return nil, fmt.Errorf("requirement json is an empty array")
		}
		if obj, ok := v[0].(map[string]any); ok {
			return obj, nil
		}
		return nil, fmt.Errorf("requirement json array does not contain an object")
	default:
		return nil, fmt.Errorf("requirement json is not an object")
	}
}

func resolveDomain(obj map[string]any) string {
	if domain := coerceString(firstPresent(obj, "company_domain", "industry", "domain")); domain != "" {
		return domain
	}
	if keywords := resolveStringList(obj, "description_keywords"); len(keywords) > 0 {
		return keywords[0]
	}
	return ""
}

// resolveScore probes match_score and the nested match_evaluation.score shape
// produced by some extractor versions. Missing or unparseable scores become 0.
func resolveScore(obj map[string]any) float64 {
	score := coerceFloat(obj["match_score"])
	if math.IsNaN(score) {
		if nested, ok := obj["match_evaluation"].(map[string]any); ok {
			score = coerceFloat(nested["score"])
		}
	}
	if math.IsNaN(score) {
		return 0
	}
	return score
}

func resolveStringList(obj map[string]any, keys ...string) []string {
	for _, key := range keys {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		items, ok := raw.([]any)
		if !ok {
			continue
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			if s := coerceString(item); s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

func firstPresent(obj map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := obj[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

// ExtractJSON strips markdown code fences and, when the payload is prose with
// an embedded object, cuts out the outermost {...} span.
func ExtractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	raw = strings.TrimSpace(raw)

	if !strings.HasPrefix(raw, "{") && !strings.HasPrefix(raw, "[") {
		start := strings.Index(raw, "{")
		end := strings.LastIndex(raw, "}")
		if start != -1 && end > start {
			raw = raw[start : end+1]
		}
	}

	return raw
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}
