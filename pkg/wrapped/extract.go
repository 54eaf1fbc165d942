package wrapped

import (
	"math"
	"regexp"
	"strings"
)

var postURL = regexp.MustCompile(`^https?://(?:www\.)?(?:x|twitter)\.com/([A-Za-z0-9_]+)/status/(\d+)`)

// NormalizeUsername trims whitespace and a leading "@".
func NormalizeUsername(s string) string {
	return strings.TrimPrefix(strings.TrimSpace(s), "@")
}

// ExtractPostIDs returns unique post ids from permalink citations, in citation
// order, capped at limit.
func ExtractPostIDs(citations []string, limit int) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, c := range citations {
		if len(ids) >= limit {
			break
		}
		m := postURL.FindStringSubmatch(strings.TrimSpace(c))
		if m == nil || seen[m[2]] {
			continue
		}
		seen[m[2]] = true
		ids = append(ids, m[2])
	}
	return ids
}

// NormalizeSentiment clamps each bucket to [0,100] and rescales the result to
// sum to 100. Negative absorbs the rounding remainder. An all-zero input stays zero.
func NormalizeSentiment(positive, neutral, negative float64) Sentiment {
	p, n, g := clamp(positive), clamp(neutral), clamp(negative)
	sum := p + n + g
	if sum == 0 {
		return Sentiment{}
	}
	pos := int(math.Round(p * 100 / sum))
	neu := min(int(math.Round(n*100/sum)), 100-pos)
	return Sentiment{
		Positive: pos,
		Neutral:  neu,
		Negative: 100 - pos - neu,
	}
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(math.Max(v, 0), 100)
}
