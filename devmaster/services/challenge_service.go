// Package services wires the economy rules into user-facing operations:
// graded submissions, hint purchases, the daily challenge and practice
// runs.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/devmasterhq/devmaster/devmaster/achievements"
	"github.com/devmasterhq/devmaster/devmaster/database/models"
	"github.com/devmasterhq/devmaster/devmaster/database/repositories"
	"github.com/devmasterhq/devmaster/devmaster/energy"
	"github.com/devmasterhq/devmaster/devmaster/grader"
	"github.com/devmasterhq/devmaster/devmaster/leveling"
	"github.com/devmasterhq/devmaster/devmaster/logger"
	"github.com/devmasterhq/devmaster/devmaster/progress"
	"github.com/google/uuid"
)

var ErrHintNotFound = errors.New("hint not found")

const dailyBonusEnergy = 1

// CodeGrader is the grading surface the service needs; satisfied by
// *grader.Grader.
type CodeGrader interface {
	Grade(userCode, testCode string) (*grader.Result, error)
	RunPractice(code string) (*grader.Result, error)
}

type ChallengeService struct {
	challenges repositories.ChallengeRepository
	profiles   repositories.ProfileRepository
	ledger     *energy.Ledger
	grader     CodeGrader
	tracker    *progress.Tracker
	evaluator  *achievements.Evaluator
	now        func() time.Time
}

func NewChallengeService(
	challenges repositories.ChallengeRepository,
	profiles repositories.ProfileRepository,
	ledger *energy.Ledger,
	codeGrader CodeGrader,
	tracker *progress.Tracker,
	evaluator *achievements.Evaluator,
) *ChallengeService {
	return &ChallengeService{
		challenges: challenges,
		profiles:   profiles,
		ledger:     ledger,
		grader:     codeGrader,
		tracker:    tracker,
		evaluator:  evaluator,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SubmissionResult is the full outcome of a graded submission.
type SubmissionResult struct {
	Success         bool                  `json:"success"`
	Error           string                `json:"error,omitempty"`
	Output          string                `json:"output,omitempty"`
	FirstCompletion bool                  `json:"first_completion"`
	PointsAwarded   int                   `json:"points_awarded"`
	DailyBonus      bool                  `json:"daily_bonus"`
	CurrentStreak   int                   `json:"current_streak,omitempty"`
	EnergyRemaining int                   `json:"energy_remaining"`
	NewAchievements []*models.Achievement `json:"new_achievements,omitempty"`
}

// Submit grades userCode against the challenge's hidden tests. One energy
// is spent before the run and refunded on success. A first-time completion
// awards points, advances the streak, may grant the daily bonus and
// unlocks any achievements the new totals reach.
//
// Returns repositories.ErrChallengeNotFound and
// repositories.ErrInsufficientEnergy for the two caller-distinguishable
// failures; grading failures come back inside the result.
func (s *ChallengeService) Submit(ctx context.Context, userID, challengeID uuid.UUID, userCode string) (*SubmissionResult, error) {
	challenge, err := s.challenges.GetByID(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	remaining, err := s.ledger.Spend(ctx, userID)
	if err != nil {
		return nil, err
	}

	start := s.now()
	graded, err := s.grader.Grade(userCode, challenge.TestCode)
	if err != nil {
		// Grader-internal fault. The energy stays spent, same as a wrong
		// answer, and the attempt is still recorded.
		logger.LogError("Grader fault", err, "challenge_id", challengeID.String())
		graded = &grader.Result{Success: false, Error: "grading failed, please retry"}
	}
	logger.LogGrade(challengeID.String(), graded.Success, s.now().Sub(start))

	result := &SubmissionResult{
		Success:         graded.Success,
		Error:           graded.Error,
		Output:          graded.Output,
		EnergyRemaining: remaining,
	}

	if !graded.Success {
		if _, err := s.tracker.RecordAttempt(ctx, userID, challengeID, false, s.now()); err != nil {
			return nil, err
		}
		return result, nil
	}

	if refunded, err := s.ledger.Refund(ctx, userID); err != nil {
		logger.LogError("Refund failed after passing submission", err, "user_id", userID.String())
	} else {
		result.EnergyRemaining = refunded
	}

	first, err := s.tracker.RecordAttempt(ctx, userID, challengeID, true, s.now())
	if err != nil {
		return nil, err
	}
	result.FirstCompletion = first
	if first {
		s.applyCompletionRewards(ctx, userID, challengeID, result)
	}
	return result, nil
}

// applyCompletionRewards runs the post-completion bookkeeping. The
// submission already succeeded, so failures here are logged and the parts
// that did apply stand; nothing is rolled back.
func (s *ChallengeService) applyCompletionRewards(ctx context.Context, userID, challengeID uuid.UUID, result *SubmissionResult) {
	now := s.now()

	if err := s.profiles.Ensure(ctx, userID, ""); err != nil {
		logger.LogError("Profile creation failed", err, "user_id", userID.String())
	}

	total, err := s.profiles.AddPoints(ctx, userID, leveling.PointsPerCompletion)
	if err != nil {
		logger.LogError("Point award failed", err, "user_id", userID.String())
	} else {
		result.PointsAwarded = leveling.PointsPerCompletion
		if err := s.profiles.SetLevel(ctx, userID, leveling.LevelForPoints(total)); err != nil {
			logger.LogError("Level update failed", err, "user_id", userID.String())
		}
	}

	streak, err := s.tracker.AdvanceStreak(ctx, userID, now)
	if err != nil {
		logger.LogError("Streak update failed", err, "user_id", userID.String())
	} else {
		result.CurrentStreak = streak
	}

	bonus, err := s.grantDailyBonus(ctx, userID, challengeID, now)
	if err != nil {
		logger.LogError("Daily bonus failed", err, "user_id", userID.String())
	} else if bonus {
		result.DailyBonus = true
		if remaining, err := s.ledger.Credit(ctx, userID, dailyBonusEnergy); err == nil {
			result.EnergyRemaining = remaining
		}
	}

	unlocked, err := s.evaluator.Evaluate(ctx, userID, now)
	if err != nil {
		logger.LogError("Achievement evaluation failed", err, "user_id", userID.String())
	} else {
		result.NewAchievements = unlocked
	}
}

// grantDailyBonus reports whether this completion was the first solve of
// today's pinned challenge. The (user, day) insert makes it at most once
// per day even under races.
func (s *ChallengeService) grantDailyBonus(ctx context.Context, userID, challengeID uuid.UUID, now time.Time) (bool, error) {
	daily, err := s.dailyFor(ctx, now)
	if err != nil {
		return false, err
	}
	if daily == nil || daily.ChallengeID != challengeID {
		return false, nil
	}
	return s.tracker.MarkDailyCompleted(ctx, userID, now)
}

// Daily returns today's pinned challenge, picking one deterministically
// when no row exists yet. Selection rotates through the catalogue by day
// number, so every instance computes the same pick and the insert race is
// harmless.
func (s *ChallengeService) Daily(ctx context.Context) (*models.Challenge, error) {
	now := s.now()
	daily, err := s.dailyFor(ctx, now)
	if err != nil {
		return nil, err
	}

	if daily == nil {
		all, err := s.challenges.List(ctx)
		if err != nil {
			return nil, err
		}
		if len(all) == 0 {
			return nil, repositories.ErrChallengeNotFound
		}
		dayNumber := int(now.Unix() / 86400)
		pick := all[dayNumber%len(all)]
		if err := s.challenges.CreateDaily(ctx, &models.DailyChallenge{
			ChallengeDate: now,
			ChallengeID:   pick.ID,
			CreatedAt:     now,
		}); err != nil {
			return nil, err
		}
		// Read back in case a concurrent insert won with the same pick.
		daily, err = s.dailyFor(ctx, now)
		if err != nil {
			return nil, err
		}
		if daily == nil {
			return nil, fmt.Errorf("daily challenge vanished after insert")
		}
	}

	return s.challenges.GetByID(ctx, daily.ChallengeID)
}

func (s *ChallengeService) dailyFor(ctx context.Context, now time.Time) (*models.DailyChallenge, error) {
	return s.challenges.GetDaily(ctx, now)
}

// RevealHint charges one energy for the hint at index. The index is
// validated before the debit so asking for a hint that does not exist
// costs nothing.
func (s *ChallengeService) RevealHint(ctx context.Context, userID, challengeID uuid.UUID, index int) (string, int, error) {
	challenge, err := s.challenges.GetByID(ctx, challengeID)
	if err != nil {
		return "", 0, err
	}
	if index < 0 || index >= len(challenge.Hints) {
		return "", 0, ErrHintNotFound
	}

	remaining, err := s.ledger.Spend(ctx, userID)
	if err != nil {
		return "", 0, err
	}
	return challenge.Hints[index], remaining, nil
}

// Practice runs code in the sandbox with no energy cost and no grading.
func (s *ChallengeService) Practice(_ context.Context, code string) (*grader.Result, error) {
	return s.grader.RunPractice(code)
}

// Get returns one challenge for display.
func (s *ChallengeService) Get(ctx context.Context, id uuid.UUID) (*models.Challenge, error) {
	return s.challenges.GetByID(ctx, id)
}

// List returns the catalogue ordered for the learning path, optionally
// narrowed by a fuzzy title query.
func (s *ChallengeService) List(ctx context.Context, query string) ([]*models.Challenge, error) {
	all, err := s.challenges.List(ctx)
	if err != nil {
		return nil, err
	}
	if query == "" {
		return all, nil
	}
	return filterByTitle(all, query), nil
}
