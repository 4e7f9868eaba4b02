package domain

import (
	"math"
	"time"
)

// GroupStats is the read-only aggregation row for one (account, group)
// session. It is always recomputed from the match table, never persisted.
//
// MaxBattlePower, FestContribution and MaxGradePoint are pointers because
// SQL MAX/SUM over an empty or all-NULL column is absence of data, not zero.
type GroupStats struct {
	AccountID string `json:"accountId"`
	GroupID   int64  `json:"groupId"`

	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`

	MatchCount      int `json:"matchCount"`
	WinCount        int `json:"winCount"`
	LoseCount       int `json:"loseCount"`
	DrawCount       int `json:"drawCount"`
	DisconnectCount int `json:"disconnectCount"`

	Kill    int `json:"kill"`
	Death   int `json:"death"`
	Assist  int `json:"assist"`
	Special int `json:"special"`

	AvgDurationSeconds float64 `json:"avgDurationSeconds"`

	MaxBattlePower   *float64 `json:"maxBattlePower,omitempty"`
	FestContribution *int64   `json:"festContribution,omitempty"`
	MaxGradePoint    *int64   `json:"maxGradePoint,omitempty"`
}

// VictoryRate is wins over decided matches. NaN when no match in the group
// was decided; callers must treat NaN as "no data", never as zero.
func (s *GroupStats) VictoryRate() float64 {
	decided := s.WinCount + s.LoseCount + s.DisconnectCount
	if decided == 0 {
		return math.NaN()
	}
	return float64(s.WinCount) / float64(decided)
}

// KD is kills per death, NaN when the group has no deaths.
func (s *GroupStats) KD() float64 {
	if s.Death == 0 {
		return math.NaN()
	}
	return float64(s.Kill) / float64(s.Death)
}

// KAD is (kills+assists) per death, NaN when the group has no deaths.
func (s *GroupStats) KAD() float64 {
	if s.Death == 0 {
		return math.NaN()
	}
	return float64(s.Kill+s.Assist) / float64(s.Death)
}
