package predictor

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"
)

var scheduleDays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

var scheduleHours = []int{9, 12, 15, 18, 21}

var dayWeights = map[string]float64{
	"Monday":    0.95,
	"Tuesday":   1.05,
	"Wednesday": 1.10,
	"Thursday":  1.00,
	"Friday":    0.90,
	"Saturday":  0.75,
	"Sunday":    0.80,
}

var hourWeights = map[int]float64{
	9:  0.85,
	12: 1.00,
	15: 0.90,
	18: 1.10,
	21: 0.95,
}

// Heuristic is a local model: deterministic feature scoring with no
// external service. It is the default Predictor when no model endpoint
// is configured.
type Heuristic struct {
	// EngagementRate is the assumed share of followers a slot reaches
	// before day/hour weighting. Zero means the default of 6%.
	EngagementRate float64
}

func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

func (h *Heuristic) ScoreVirality(_ context.Context, draft string, _ Features) (float64, error) {
	text := strings.TrimSpace(draft)
	if text == "" {
		return 0.0, nil
	}

	score := 0.5

	length := utf8.RuneCountInString(text)
	switch {
	case length >= 80 && length <= 240:
		score += 0.15
	case length > 500:
		score -= 0.10
	}

	if strings.Contains(text, "?") {
		score += 0.08
	}

	hashtags := strings.Count(text, "#")
	switch {
	case hashtags >= 1 && hashtags <= 3:
		score += 0.10
	case hashtags > 4:
		score -= 0.05
	}

	lower := strings.ToLower(text)
	for _, hook := range []string{"how to", "why ", "stop ", "secret", "thread"} {
		if strings.Contains(lower, hook) {
			score += 0.07
			break
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score, nil
}

// RecommendSchedule simulates every day-of-week and posting hour, ranks
// the grid by predicted reach, and returns the top three slots.
func (h *Heuristic) RecommendSchedule(_ context.Context, features Features) ([]Slot, error) {
	rate := h.EngagementRate
	if rate <= 0 {
		rate = 0.06
	}
	base := float64(features.FollowerCount) * rate
	if strings.EqualFold(features.TopicCategory, "technology") {
		base *= 1.1
	}

	slots := make([]Slot, 0, len(scheduleDays)*len(scheduleHours))
	for _, day := range scheduleDays {
		for _, hour := range scheduleHours {
			slots = append(slots, Slot{
				Day:            day,
				Hour:           hour,
				PredictedReach: base * dayWeights[day] * hourWeights[hour],
			})
		}
	}

	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].PredictedReach > slots[j].PredictedReach
	})
	if len(slots) > 3 {
		slots = slots[:3]
	}
	return slots, nil
}
