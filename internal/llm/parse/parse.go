package parse

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/sells-group/recommend-consensus/internal/model"
)

// rawRecommendation mirrors the generate/synthesize wire shape loosely —
// numeric fields are decoded as json.Number or left as any so malformed
// entries (a string where a number belongs) can still be coerced instead
// of failing the whole decode.
type rawRecommendation struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Address         string   `json:"address"`
	Latitude        any      `json:"latitude"`
	Longitude       any      `json:"longitude"`
	ConfidenceScore any      `json:"confidenceScore"`
	Highlights      []string `json:"highlights"`
	WhyRecommended  string   `json:"whyRecommended"`
}

type generateEnvelope struct {
	Recommendations []rawRecommendation `json:"recommendations"`
}

// Generation extracts and parses a generate-stage response into
// Recommendations, skipping malformed entries rather than failing whole.
func Generation(raw string, category model.Category, sourceProvider string) []model.Recommendation {
	candidate := Sanitize(ExtractBalanced(ExtractCandidate(raw)))

	var env generateEnvelope
	if err := json.Unmarshal([]byte(candidate), &env); err != nil {
		return nil
	}

	out := make([]model.Recommendation, 0, len(env.Recommendations))
	for _, r := range env.Recommendations {
		if strings.TrimSpace(r.Name) == "" {
			continue
		}
		rec := model.Recommendation{
			Name:           r.Name,
			Description:    r.Description,
			Category:       category,
			Address:        r.Address,
			SourceProvider: sourceProvider,
			WhyRecommended: r.WhyRecommended,
			Highlights:     capHighlights(r.Highlights),
			AgreementCount: 1,
		}
		rec.BaseConfidence = clamp01(toFloat(r.ConfidenceScore, 0.7))
		rec.Level = model.LevelForScore(rec.BaseConfidence)
		if lat, ok := toFloatOK(r.Latitude); ok {
			rec.Latitude = &lat
		}
		if lng, ok := toFloatOK(r.Longitude); ok {
			rec.Longitude = &lng
		}
		out = append(out, rec)
	}
	return out
}

type rawValidation struct {
	Name                string `json:"name"`
	ValidationScore     any    `json:"validationScore"`
	FlaggedAsInaccurate any    `json:"flaggedAsInaccurate"`
	FlaggedAsOutOfRange any    `json:"flaggedAsOutOfRange"`
	Comment             string `json:"comment"`
}

type validateEnvelope struct {
	Validations []rawValidation `json:"validations"`
}

// Validations extracts and parses a validate-stage response, matching each
// entry back onto sourceRecs by normalized name. Entries with no matching
// source recommendation are skipped.
func Validations(raw string, sourceRecs []model.Recommendation) []model.ValidationEntry {
	candidate := Sanitize(ExtractBalanced(ExtractCandidate(raw)))

	var env validateEnvelope
	if err := json.Unmarshal([]byte(candidate), &env); err != nil {
		return nil
	}

	byName := make(map[string]model.Recommendation, len(sourceRecs))
	for _, r := range sourceRecs {
		byName[model.NormalizeName(r.Name)] = r
	}

	out := make([]model.ValidationEntry, 0, len(env.Validations))
	for _, v := range env.Validations {
		orig, ok := byName[model.NormalizeName(v.Name)]
		if !ok {
			continue
		}
		out = append(out, model.ValidationEntry{
			Original:          orig,
			ValidationScore:   clamp01(toFloat(v.ValidationScore, 0.7)),
			FlaggedInaccurate: toBool(v.FlaggedAsInaccurate),
			FlaggedOutOfRange: toBool(v.FlaggedAsOutOfRange),
			Comment:           v.Comment,
		})
	}
	return out
}

type rawSynthesized struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Highlights     []string `json:"highlights"`
	WhyRecommended string   `json:"whyRecommended"`
}

type synthesizeEnvelope struct {
	Recommendations []rawSynthesized `json:"recommendations"`
}

// Synthesized extracts and parses a synthesize-stage response.
func Synthesized(raw string) []struct {
	Name           string
	Description    string
	Highlights     []string
	WhyRecommended string
} {
	candidate := Sanitize(ExtractBalanced(ExtractCandidate(raw)))

	var env synthesizeEnvelope
	if err := json.Unmarshal([]byte(candidate), &env); err != nil {
		return nil
	}

	out := make([]struct {
		Name           string
		Description    string
		Highlights     []string
		WhyRecommended string
	}, 0, len(env.Recommendations))
	for _, r := range env.Recommendations {
		if strings.TrimSpace(r.Name) == "" {
			continue
		}
		out = append(out, struct {
			Name           string
			Description    string
			Highlights     []string
			WhyRecommended string
		}{
			Name:           r.Name,
			Description:    r.Description,
			Highlights:     capHighlights(r.Highlights),
			WhyRecommended: r.WhyRecommended,
		})
	}
	return out
}

func capHighlights(h []string) []string {
	if len(h) > 5 {
		return h[:5]
	}
	return h
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// toFloat coerces a decoded any (float64, json.Number-like string, or
// missing/invalid) into a float64, falling back to def when it can't.
func toFloat(v any, def float64) float64 {
	f, ok := toFloatOK(v)
	if !ok {
		return def
	}
	return f
}

func toFloatOK(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func toBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		return err == nil && b
	default:
		return false
	}
}
