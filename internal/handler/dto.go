package handler

import (
	"time"

	"github.com/msomdec/coursewatch/internal/domain"
	"github.com/msomdec/coursewatch/internal/service"
	"github.com/msomdec/coursewatch/internal/watch"
)

// UserDTO is the JSON representation of a user.
type UserDTO struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

func toUserDTO(u *domain.User) UserDTO {
	return UserDTO{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		CreatedAt:   u.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   u.UpdatedAt.Format(time.RFC3339),
	}
}

// ValidationStateDTO is the JSON representation of a validation state.
type ValidationStateDTO struct {
	AnalyticsID        string                `json:"analyticsId"`
	TotalDuration      float64               `json:"totalVideoDuration"`
	MinimumWatchTime   float64               `json:"minimumWatchTime"`
	ActualWatchTime    float64               `json:"actualWatchTime"`
	ValidWatchTime     float64               `json:"validWatchTime"`
	LargeSkipsDetected int                   `json:"largeSkipsDetected"`
	SuspiciousSegments int                   `json:"suspiciousSegments"`
	CheatScore         int                   `json:"cheatScore"`
	TimeRequirementMet bool                  `json:"timeRequirementMet"`
	ProgressUnlocked   bool                  `json:"progressUnlocked"`
	CanComplete        bool                  `json:"canComplete"`
	WatchSegments      []domain.WatchSegment `json:"watchSegments"`
	LastValidPosition  float64               `json:"lastValidPosition"`
	Version            int64                 `json:"version"`
}

func toValidationStateDTO(s domain.ValidationState) ValidationStateDTO {
	segments := s.WatchSegments
	if segments == nil {
		segments = []domain.WatchSegment{}
	}
	return ValidationStateDTO{
		AnalyticsID:        s.AnalyticsID,
		TotalDuration:      s.TotalDuration,
		MinimumWatchTime:   s.MinimumWatchTime,
		ActualWatchTime:    s.ActualWatchTime,
		ValidWatchTime:     s.ValidWatchTime,
		LargeSkipsDetected: s.LargeSkipsDetected,
		SuspiciousSegments: s.SuspiciousSegments,
		CheatScore:         s.CheatScore,
		TimeRequirementMet: s.TimeRequirementMet,
		ProgressUnlocked:   s.ProgressUnlocked,
		CanComplete:        s.CanComplete,
		WatchSegments:      segments,
		LastValidPosition:  s.LastValidPosition,
		Version:            s.Version,
	}
}

// StatusDTO adds the human-readable message to a validation status.
type StatusDTO struct {
	watch.Status
	Message string `json:"message"`
}

// PlaybackDTO is the JSON representation of the descriptive playback counters.
type PlaybackDTO struct {
	TotalWatchTime     float64 `json:"totalWatchTime"`
	PauseCount         int     `json:"pauseCount"`
	SeekCount          int     `json:"seekCount"`
	RewindCount        int     `json:"rewindCount"`
	MaxProgressReached float64 `json:"maxProgressReached"`
}

// SessionDTO is the JSON representation of a watch session snapshot.
type SessionDTO struct {
	ID                string             `json:"id"`
	UnitID            string             `json:"unitId"`
	StartedAt         string             `json:"startedAt"`
	Position          float64            `json:"position"`
	Playing           bool               `json:"playing"`
	CompletionPercent float64            `json:"completionPercent"`
	Completed         bool               `json:"completed"`
	Live              bool               `json:"live"`
	Status            StatusDTO          `json:"status"`
	State             ValidationStateDTO `json:"state"`
	Playback          PlaybackDTO        `json:"playback"`
}

func toSessionDTO(s *service.SessionSnapshot) SessionDTO {
	return SessionDTO{
		ID:                s.ID,
		UnitID:            s.UnitID,
		StartedAt:         s.StartedAt.Format(time.RFC3339),
		Position:          s.Position,
		Playing:           s.Playing,
		CompletionPercent: s.CompletionPercent,
		Completed:         s.Completed,
		Live:              s.Live,
		Status:            StatusDTO{Status: s.Status, Message: s.Status.Message()},
		State:             toValidationStateDTO(s.State),
		Playback: PlaybackDTO{
			TotalWatchTime:     s.Analytics.TotalWatchTime,
			PauseCount:         s.Analytics.PauseCount,
			SeekCount:          s.Analytics.SeekCount,
			RewindCount:        s.Analytics.RewindCount,
			MaxProgressReached: s.Analytics.MaxProgressReached,
		},
	}
}
