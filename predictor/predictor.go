// Package predictor estimates how content will perform: a virality score
// for a draft and a ranked posting schedule.
package predictor

import "context"

// Features describe the posting context a prediction is made for.
type Features struct {
	Platform      string `json:"platform"`
	TopicCategory string `json:"topicCategory"`
	FollowerCount int    `json:"followerCount"`
}

// Slot is one candidate posting time with its estimated reach.
type Slot struct {
	Day            string  `json:"day"`
	Hour           int     `json:"hour"`
	PredictedReach float64 `json:"predictedReach"`
}

// Predictor scores drafts and recommends posting slots. ScoreVirality
// returns a probability in [0, 1]. RecommendSchedule returns slots ranked
// by predicted reach, best first.
type Predictor interface {
	ScoreVirality(ctx context.Context, draft string, features Features) (float64, error)
	RecommendSchedule(ctx context.Context, features Features) ([]Slot, error)
}
