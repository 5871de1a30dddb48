package conversation

import (
	"fmt"
	"strings"

	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/domain"
)

var toneLexicon = []struct {
	tone  domain.Tone
	words []string
}{
	{domain.ToneWorried, []string{
		"กังวล", "เป็นห่วง", "กลัว", "ไม่แน่ใจ", "ห่วง",
		"worried", "afraid", "scared", "concerned", "anxious", "nervous",
	}},
	{domain.ToneSad, []string{
		"เศร้า", "เสียใจ", "ท้อ", "เหงา", "ร้องไห้", "สิ้นหวัง",
		"sad", "crying", "lonely", "hopeless", "heartbroken",
	}},
	{domain.ToneFrustrated, []string{
		"เหนื่อย", "หงุดหงิด", "ไม่ไหว", "โมโห", "เบื่อ", "หมดแรง",
		"tired", "exhausted", "frustrated", "fed up", "angry", "overwhelmed",
	}},
	{domain.TonePositive, []string{
		"ขอบคุณ", "ดีขึ้น", "สบายใจ", "ดีใจ", "โล่งใจ",
		"thank", "better", "relieved", "glad", "happy",
	}},
}

// DetectTone picks the tone with the most keyword hits. Ties go to the
// earlier tone in the lexicon, so distress outranks positivity.
func DetectTone(text string) domain.Tone {
	lower := strings.ToLower(text)
	best, bestHits := domain.ToneNeutral, 0
	for _, entry := range toneLexicon {
		hits := 0
		for _, w := range entry.words {
			hits += strings.Count(lower, w)
		}
		if hits > bestHits {
			best, bestHits = entry.tone, hits
		}
	}
	return best
}

func distress(t domain.Tone) float64 {
	switch t {
	case domain.ToneWorried, domain.ToneSad, domain.ToneFrustrated:
		return 1
	case domain.TonePositive:
		return -1
	default:
		return 0
	}
}

// Summarize renders a tone history as a short trend description. An empty
// history yields "".
func Summarize(tones []domain.Tone) string {
	if len(tones) == 0 {
		return ""
	}

	counts := make(map[domain.Tone]int)
	dominant, top := domain.ToneNeutral, 0
	for _, t := range tones {
		counts[t]++
		if t != domain.ToneNeutral && counts[t] > top {
			dominant, top = t, counts[t]
		}
	}

	trend := "steady"
	if len(tones) >= 2 {
		half := len(tones) / 2
		before, after := mean(tones[:half]), mean(tones[half:])
		switch {
		case after < before:
			trend = "improving"
		case after > before:
			trend = "worsening"
		}
	}

	return fmt.Sprintf("mostly %s; latest %s; trend %s", dominant, tones[len(tones)-1], trend)
}

func mean(tones []domain.Tone) float64 {
	var sum float64
	for _, t := range tones {
		sum += distress(t)
	}
	return sum / float64(len(tones))
}
