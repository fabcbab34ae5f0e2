// Package trainer ties the pieces of a practice attempt together: it looks
// up the challenge, obtains the model response, scores it and records the
// attempt.
package trainer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/giantswarm/prompt-trainer/internal/challenge"
	"github.com/giantswarm/prompt-trainer/internal/scorer"
	"github.com/giantswarm/prompt-trainer/internal/store"
)

// ChallengeSource looks up challenges by ID.
type ChallengeSource interface {
	Challenge(ctx context.Context, id string) (*challenge.Challenge, error)
}

// Responder obtains a model's response to a prompt.
type Responder interface {
	Response(ctx context.Context, prompt, model string) (string, error)
}

// Recorder persists scored attempts.
type Recorder interface {
	RecordAttempt(ctx context.Context, in store.NewAttempt) (*store.Attempt, []store.Achievement, error)
}

// Submission is a user's prompt for a challenge.
type Submission struct {
	UserID      int64 // zero for anonymous, unrecorded submissions
	ChallengeID string
	Prompt      string
	ModelName   string
	TimeTaken   int
}

// Outcome is the result of a submission.
type Outcome struct {
	*scorer.Result
	AttemptID    string              `json:"attempt_id,omitempty"`
	Achievements []store.Achievement `json:"new_achievements,omitempty"`
}

// Service runs submissions.
type Service struct {
	challenges ChallengeSource
	responder  Responder
	evaluator  *scorer.Evaluator
	recorder   Recorder
}

// New creates a Service. recorder may be nil, in which case no submission
// is recorded.
func New(challenges ChallengeSource, responder Responder, evaluator *scorer.Evaluator, recorder Recorder) *Service {
	return &Service{
		challenges: challenges,
		responder:  responder,
		evaluator:  evaluator,
		recorder:   recorder,
	}
}

// Submit scores a submission and, for identified users, records it.
func (s *Service) Submit(ctx context.Context, sub Submission) (*Outcome, error) {
	if strings.TrimSpace(sub.ChallengeID) == "" {
		return nil, fmt.Errorf("challenge id is required")
	}

	c, err := s.challenges.Challenge(ctx, sub.ChallengeID)
	if err != nil {
		return nil, err
	}

	response, err := s.responder.Response(ctx, sub.Prompt, sub.ModelName)
	if err != nil {
		return nil, err
	}

	result, err := s.evaluator.Evaluate(ctx, scorer.Input{
		Response:    response,
		Target:      c.TargetResponse,
		Prompt:      sub.Prompt,
		Constraints: c.Constraints,
	})
	if err != nil {
		return nil, err
	}

	out := &Outcome{Result: result}
	if sub.UserID == 0 || s.recorder == nil {
		return out, nil
	}

	attempt, earned, err := s.recorder.RecordAttempt(ctx, store.NewAttempt{
		UserID:      sub.UserID,
		ChallengeID: c.ID,
		Prompt:      sub.Prompt,
		ModelName:   sub.ModelName,
		TimeTaken:   sub.TimeTaken,
		Result:      result,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record attempt: %w", err)
	}
	out.AttemptID = attempt.ID
	out.Achievements = earned

	slog.Info("attempt recorded",
		"attempt", attempt.ID,
		"user", sub.UserID,
		"challenge", c.ID,
		"model", sub.ModelName,
		"total_score", result.TotalScore,
		"new_achievements", len(earned),
	)
	return out, nil
}
