package pipeline

import (
	"math"
	"sort"
	"strings"

	"github.com/sells-group/recommend-consensus/internal/model"
)

const (
	agreementBonusStep = 0.05
	agreementBonusCap  = 0.20
	realPlaceBonus     = 0.15
	ratingBonusScale   = 0.05
	flagInaccuratePenalty = 0.20
	flagOutOfRangePenalty = 0.30
	baseScoreWeight       = 0.4
	validationScoreWeight = 0.35
)

type consensusGroup struct {
	key     string
	members []model.Recommendation
}

// runConsensusScoring is a pure, in-memory fold over every generation
// output and every validation result: group by normalized name, compute
// the final weighted score per group, rank, and trim to maxResults.
func runConsensusScoring(s *requestState) {
	var flattened []model.Recommendation
	for _, r := range s.generationResults {
		if r.Success {
			flattened = append(flattened, r.Recommendations...)
		}
	}
	s.totalCandidatesScored = len(flattened)

	groups := groupByNormalizedName(flattened)

	validationsByKey := make(map[string][]model.ValidationEntry)
	for _, cv := range s.validationResults {
		for _, entry := range cv.Items {
			key := model.NormalizeName(entry.Original.Name)
			validationsByKey[key] = append(validationsByKey[key], entry)
		}
	}

	scored := make([]model.Recommendation, 0, len(groups))
	for _, g := range groups {
		scored = append(scored, scoreGroup(g, validationsByKey[g.key]))
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].BaseConfidence != scored[j].BaseConfidence {
			return scored[i].BaseConfidence > scored[j].BaseConfidence
		}
		return scored[i].AgreementCount > scored[j].AgreementCount
	})

	if maxResults := s.request.MaxResults; len(scored) > maxResults {
		scored = scored[:maxResults]
	}

	s.ranked = scored
}

func groupByNormalizedName(recs []model.Recommendation) []consensusGroup {
	order := make([]string, 0)
	byKey := make(map[string]*consensusGroup)

	for _, r := range recs {
		key := model.NormalizeName(r.Name)
		if key == "" {
			continue
		}
		g, ok := byKey[key]
		if !ok {
			g = &consensusGroup{key: key}
			byKey[key] = g
			order = append(order, key)
		}
		g.members = append(g.members, r)
	}

	groups := make([]consensusGroup, len(order))
	for i, key := range order {
		groups[i] = *byKey[key]
	}
	return groups
}

// scoreGroup implements the §4.7 scoring formula for one normalized-name
// group. The returned Recommendation is "final": BaseConfidence here holds
// the computed final score (not the representative's original
// baseConfidence) so downstream sort/serialization reads one field.
func scoreGroup(g consensusGroup, validations []model.ValidationEntry) model.Recommendation {
	representative := pickRepresentative(g.members)

	var confSum float64
	for _, m := range g.members {
		confSum += m.BaseConfidence
	}
	baseScore := confSum / float64(len(g.members))

	agreementCount := len(g.members)
	agreementBonus := math.Min(float64(agreementCount-1)*agreementBonusStep, agreementBonusCap)

	var validationScore float64
	if len(validations) > 0 {
		var vSum float64
		inaccurate, outOfRange := 0, 0
		for _, v := range validations {
			vSum += v.ValidationScore
			if v.FlaggedInaccurate {
				inaccurate++
			}
			if v.FlaggedOutOfRange {
				outOfRange++
			}
		}
		validationScore = vSum / float64(len(validations))

		flagPenalty := flagInaccuratePenalty*float64(inaccurate) + flagOutOfRangePenalty*float64(outOfRange)
		placeBonus, ratingBonusVal := enrichmentBonuses(representative)

		final := clamp01(baseScore*baseScoreWeight + validationScore*validationScoreWeight + agreementBonus + placeBonus + ratingBonusVal - flagPenalty)
		return buildFinalRecommendation(g, representative, final, agreementCount)
	}

	validationScore = baseScore
	placeBonus, ratingBonusVal := enrichmentBonuses(representative)
	final := clamp01(baseScore*baseScoreWeight + validationScore*validationScoreWeight + agreementBonus + placeBonus + ratingBonusVal)
	return buildFinalRecommendation(g, representative, final, agreementCount)
}

func enrichmentBonuses(representative model.Recommendation) (placeBonus, ratingBonus float64) {
	if representative.EnrichedPlace == nil {
		return 0, 0
	}
	if representative.EnrichedPlace.IsVerifiedRealPlace {
		placeBonus = realPlaceBonus
	}
	if representative.EnrichedPlace.Rating != nil {
		ratingBonus = ratingBonusScale * (*representative.EnrichedPlace.Rating / 5)
	}
	return placeBonus, ratingBonus
}

func buildFinalRecommendation(g consensusGroup, representative model.Recommendation, final float64, agreementCount int) model.Recommendation {
	final = math.Round(final*1000) / 1000

	out := representative
	out.BaseConfidence = final
	out.Level = model.LevelForScore(final)
	out.AgreementCount = agreementCount
	out.Highlights = mergeHighlights(g.members)
	out.Description = highestConfidenceMember(g.members).Description
	out.WhyRecommended = firstNonEmptyWhy(g.members)
	return out
}

// pickRepresentative is the member with the highest baseConfidence,
// breaking ties by first occurrence.
func pickRepresentative(members []model.Recommendation) model.Recommendation {
	return highestConfidenceMember(members)
}

func highestConfidenceMember(members []model.Recommendation) model.Recommendation {
	best := members[0]
	for _, m := range members[1:] {
		if m.BaseConfidence > best.BaseConfidence {
			best = m
		}
	}
	return best
}

func firstNonEmptyWhy(members []model.Recommendation) string {
	for _, m := range members {
		if strings.TrimSpace(m.WhyRecommended) != "" {
			return m.WhyRecommended
		}
	}
	return ""
}

// mergeHighlights unions highlights across the group, deduplicating
// case-insensitively, keeping first-seen order, capped at 5.
func mergeHighlights(members []model.Recommendation) []string {
	seen := make(map[string]bool)
	var merged []string
	for _, m := range members {
		for _, h := range m.Highlights {
			key := strings.ToLower(strings.TrimSpace(h))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, h)
			if len(merged) == 5 {
				return merged
			}
		}
	}
	return merged
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
