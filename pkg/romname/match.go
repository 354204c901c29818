package romname

import (
	"regexp"

	"github.com/hbollon/go-edlib"
)

// numberRegex extracts sequence numbers from titles (e.g., "2", "3")
var numberRegex = regexp.MustCompile(`\b(\d+)\b`)

// MatchConfidence represents the confidence level of a title match.
type MatchConfidence int

const (
	ConfidenceNone   MatchConfidence = iota // Score < 0.70
	ConfidenceLow                           // Score >= 0.70
	ConfidenceMedium                        // Score >= 0.85
	ConfidenceHigh                          // Score >= 0.95
)

func (c MatchConfidence) String() string {
	switch c {
	case ConfidenceHigh:
		return "high"
	case ConfidenceMedium:
		return "medium"
	case ConfidenceLow:
		return "low"
	default:
		return "none"
	}
}

// MatchResult represents the result of a fuzzy title match.
type MatchResult struct {
	Title      string          // The matched candidate
	Index      int             // Index of the candidate, -1 when nothing matched
	Score      float64         // Jaro-Winkler similarity score (0.0-1.0)
	Confidence MatchConfidence // Confidence level based on score
	Tied       bool            // Another candidate reached the same score
}

// MatchTitle finds the best match for a title among candidate titles.
// Uses Jaro-Winkler similarity, which favors prefix matches, and adjusts the
// score when sequence numbers agree or disagree ("Streets of Rage 2").
func MatchTitle(title string, candidates []string) MatchResult {
	best := MatchResult{Index: -1, Confidence: ConfidenceNone}
	if len(candidates) == 0 {
		return best
	}

	normalized := CleanTitle(title)
	titleNumbers := extractNumbers(normalized)

	for i, candidate := range candidates {
		normalizedCandidate := CleanTitle(candidate)
		score := float64(edlib.JaroWinklerSimilarity(normalized, normalizedCandidate))
		score = adjustScoreForNumbers(score, titleNumbers, extractNumbers(normalizedCandidate))

		switch {
		case score > best.Score:
			best.Title = candidate
			best.Index = i
			best.Score = score
			best.Tied = false
		case score == best.Score && best.Index >= 0:
			best.Tied = true
		}
	}

	switch {
	case best.Score >= 0.95:
		best.Confidence = ConfidenceHigh
	case best.Score >= 0.85:
		best.Confidence = ConfidenceMedium
	case best.Score >= 0.70:
		best.Confidence = ConfidenceLow
	default:
		best.Confidence = ConfidenceNone
		best.Title = ""
		best.Index = -1
	}

	return best
}

func extractNumbers(title string) []string {
	return numberRegex.FindAllString(title, -1)
}

// adjustScoreForNumbers rewards matching sequence numbers and penalizes
// mismatched or missing ones.
func adjustScoreForNumbers(score float64, titleNums, candidateNums []string) float64 {
	if len(titleNums) == 0 {
		return score
	}
	if len(candidateNums) == 0 {
		return score * 0.85
	}

	candidateSet := make(map[string]bool, len(candidateNums))
	for _, n := range candidateNums {
		candidateSet[n] = true
	}
	for _, n := range titleNums {
		if candidateSet[n] {
			return min(score*1.05, 1.0)
		}
	}
	return score * 0.90
}
