// Package publisher pushes approved content out to a social platform,
// either immediately or at a scheduled slot.
package publisher

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Post is one publish request. ScheduleTime is "now" for immediate
// publication or a human-readable slot like "Wednesday at 18:00".
type Post struct {
	Content      string `json:"content"`
	Platform     string `json:"platform"`
	ScheduleTime string `json:"scheduleTime"`
}

// Result confirms a publish. Confirmation is the platform's token for
// the post or scheduling ticket.
type Result struct {
	Confirmation string `json:"confirmation"`
	URL          string `json:"url,omitempty"`
	Scheduled    bool   `json:"scheduled"`
	ScheduledFor string `json:"scheduledFor,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, post Post) (Result, error)
}

// Simulated is the offline Publisher: it mints a confirmation token
// without touching any platform. Used in development and tests.
type Simulated struct{}

func NewSimulated() *Simulated {
	return &Simulated{}
}

func (*Simulated) Publish(_ context.Context, post Post) (Result, error) {
	if strings.TrimSpace(post.Content) == "" {
		return Result{}, fmt.Errorf("post content is required")
	}
	platform := post.Platform
	if platform == "" {
		platform = "twitter"
	}

	token := uuid.NewString()[:8]
	scheduleTime := strings.TrimSpace(post.ScheduleTime)
	if scheduleTime == "" || strings.EqualFold(scheduleTime, "now") {
		return Result{
			Confirmation: token,
			URL:          fmt.Sprintf("https://%s.com/user/status/%s", strings.ToLower(platform), token),
		}, nil
	}
	return Result{
		Confirmation: token,
		Scheduled:    true,
		ScheduledFor: scheduleTime,
	}, nil
}
