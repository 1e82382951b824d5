package service

import (
	"context"
	"fmt"
	"math"

	"github.com/msomdec/coursewatch/internal/domain"
)

// Risk bands of the average cheat score.
const (
	RiskHigh   = "high"
	RiskMedium = "medium"
	RiskLow    = "low"
)

// ViewerStats aggregates every watch attempt of one viewer.
type ViewerStats struct {
	TotalVideos        int     `json:"totalVideos"`
	CompletedVideos    int     `json:"completedVideos"`
	AverageCheatScore  float64 `json:"averageCheatScore"`
	TotalWatchTime     float64 `json:"totalWatchTime"`
	TotalValidTime     float64 `json:"totalValidTime"`
	LargeSkipsDetected int     `json:"largeSkipsDetected"`
	SuspiciousSegments int     `json:"suspiciousSegments"`
	TimeRequirementMet int     `json:"timeRequirementMet"`
	ProgressUnlocked   int     `json:"progressUnlocked"`
	CompletionRate     float64 `json:"completionRate"`
	TimeEfficiency     float64 `json:"timeEfficiency"`
	Risk               string  `json:"risk"`
}

// StatsService computes per-viewer anti-cheat statistics.
type StatsService struct {
	analytics domain.AnalyticsRepository
}

// NewStatsService creates a new StatsService.
func NewStatsService(analytics domain.AnalyticsRepository) *StatsService {
	return &StatsService{analytics: analytics}
}

// ForViewer returns the aggregate statistics of userID.
func (s *StatsService) ForViewer(ctx context.Context, userID int64) (*ViewerStats, error) {
	rows, err := s.analytics.ListStatsRowsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list stats rows: %w", err)
	}
	return AggregateStats(rows), nil
}

// AggregateStats folds stats rows into ViewerStats. Attempts without a
// validation row count towards the totals but not towards the scores.
func AggregateStats(rows []domain.StatsRow) *ViewerStats {
	st := &ViewerStats{TotalVideos: len(rows)}

	var scoreSum, scored int
	for _, r := range rows {
		st.TotalWatchTime += r.Analytics.TotalWatchTime
		v := r.Validation
		if v == nil {
			continue
		}
		st.TotalValidTime += v.ValidWatchTime
		st.LargeSkipsDetected += v.LargeSkipsDetected
		st.SuspiciousSegments += v.SuspiciousSegments
		if v.CanComplete {
			st.CompletedVideos++
		}
		if v.TimeRequirementMet {
			st.TimeRequirementMet++
		}
		if v.ProgressUnlocked {
			st.ProgressUnlocked++
		}
		scoreSum += v.CheatScore
		scored++
	}

	st.AverageCheatScore = 100
	if scored > 0 {
		st.AverageCheatScore = float64(scoreSum) / float64(scored)
	}
	if st.TotalVideos > 0 {
		st.CompletionRate = float64(st.CompletedVideos) / float64(st.TotalVideos) * 100
	}
	if st.TotalWatchTime > 0 {
		st.TimeEfficiency = st.TotalValidTime / st.TotalWatchTime * 100
	}

	st.AverageCheatScore = round2(st.AverageCheatScore)
	st.TotalWatchTime = round2(st.TotalWatchTime)
	st.TotalValidTime = round2(st.TotalValidTime)
	st.CompletionRate = round2(st.CompletionRate)
	st.TimeEfficiency = round2(st.TimeEfficiency)
	st.Risk = RiskBand(st.AverageCheatScore)
	return st
}

// RiskBand classifies an average cheat score.
func RiskBand(avg float64) string {
	switch {
	case avg < 70:
		return RiskHigh
	case avg < 85:
		return RiskMedium
	default:
		return RiskLow
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
