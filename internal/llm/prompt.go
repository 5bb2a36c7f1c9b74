package llm

import (
	"fmt"
	"strings"

	"github.com/sells-group/recommend-consensus/internal/model"
)

// BuildGeneratePrompt is the single prompt every available provider
// receives during ParallelGeneration. It instructs the model to return
// only a JSON object with 12-15 recommendations.
func BuildGeneratePrompt(categories []model.Category, resolvedAddress string, lat, lng float64, radiusMeters int) string {
	cats := make([]string, len(categories))
	for i, c := range categories {
		cats[i] = string(c)
	}

	var sb strings.Builder
	sb.WriteString("You are a knowledgeable local guide. Recommend the best real places near the given location.\n\n")
	fmt.Fprintf(&sb, "Location: %s (%.5f, %.5f)\n", resolvedAddress, lat, lng)
	fmt.Fprintf(&sb, "Categories: %s\n", strings.Join(cats, ", "))
	fmt.Fprintf(&sb, "Search radius: %d meters\n\n", radiusMeters)
	sb.WriteString("Return ONLY a JSON object, no prose before or after, matching exactly this shape:\n")
	sb.WriteString(`{"recommendations":[{"name":string,"description":string,"address":string,"latitude":number,"longitude":number,"confidenceScore":number between 0 and 1,"highlights":[up to 5 strings],"whyRecommended":string}]}`)
	sb.WriteString("\n\nProvide between 12 and 15 entries, ordered by how strongly you'd recommend them.")
	return sb.String()
}

// BuildValidatePrompt asks one provider to score another provider's
// recommendation list.
func BuildValidatePrompt(sourceRecs []model.Recommendation) string {
	var sb strings.Builder
	sb.WriteString("Another assistant proposed these places. For each, judge whether it plausibly exists and fits the location described.\n\n")
	for i, r := range sourceRecs {
		fmt.Fprintf(&sb, "%d. %s", i+1, r.Name)
		if r.Address != "" {
			fmt.Fprintf(&sb, " — %s", r.Address)
		}
		if r.Latitude != nil && r.Longitude != nil {
			fmt.Fprintf(&sb, " (%.5f, %.5f)", *r.Latitude, *r.Longitude)
		}
		if r.Description != "" {
			fmt.Fprintf(&sb, ": %s", r.Description)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\nReturn ONLY a JSON object, no prose before or after, matching exactly this shape:\n")
	sb.WriteString(`{"validations":[{"name":string,"validationScore":number between 0 and 1,"flaggedAsInaccurate":bool,"flaggedAsOutOfRange":bool,"comment":string}]}`)
	return sb.String()
}

// BuildSynthesizePrompt asks the fastest successful provider to polish the
// already-ranked candidate list without reordering or adding/removing entries.
func BuildSynthesizePrompt(ranked []model.Recommendation) string {
	var sb strings.Builder
	sb.WriteString("Polish the descriptions of this already-finalized, already-ranked list of recommendations. ")
	sb.WriteString("Do not reorder, add, or remove entries — only improve wording.\n\n")
	for i, r := range ranked {
		fmt.Fprintf(&sb, "%d. %s: %s\n", i+1, r.Name, r.Description)
	}
	sb.WriteString("\nReturn ONLY a JSON object, no prose before or after, matching exactly this shape, ")
	sb.WriteString("with one entry per input name, same order:\n")
	sb.WriteString(`{"recommendations":[{"name":string,"description":string,"highlights":[up to 5 strings],"whyRecommended":string}]}`)
	return sb.String()
}
