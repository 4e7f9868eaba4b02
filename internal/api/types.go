package api

import "time"

type BattleListResponse struct {
	Results []BattleResult `json:"results"`
}

type BattleResult struct {
	ID               string       `json:"id"`
	Mode             string       `json:"mode"`
	Rule             string       `json:"rule"`
	StageID          int          `json:"stageId"`
	PlayedTime       time.Time    `json:"playedTime"`
	DurationSeconds  int          `json:"durationSeconds"`
	Judgement        string       `json:"judgement"`
	Knockout         bool         `json:"knockout"`
	Udemae           *string      `json:"udemae,omitempty"`
	BattlePower      *float64     `json:"battlePower,omitempty"`
	FestContribution *int64       `json:"festContribution,omitempty"`
	FestDragon       *string      `json:"festDragon,omitempty"`
	Teams            []TeamResult `json:"teams"`
}

type TeamResult struct {
	Color      string         `json:"color"`
	PaintRatio *float64       `json:"paintRatio,omitempty"`
	Score      *int64         `json:"score,omitempty"`
	IsMyTeam   bool           `json:"isMyTeam"`
	Players    []PlayerResult `json:"players"`
}

type PlayerResult struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	NameID   string `json:"nameId"`
	WeaponID int    `json:"weaponId"`
	Kill     int    `json:"kill"`
	Death    int    `json:"death"`
	Assist   int    `json:"assist"`
	Special  int    `json:"special"`
	Paint    int    `json:"paint"`
	IsMyself bool   `json:"isMyself"`
}

type CoopListResponse struct {
	Results []CoopResult `json:"results"`
}

type CoopResult struct {
	ID              string        `json:"id"`
	StageID         int           `json:"stageId"`
	WeaponID        int           `json:"weaponId"`
	PlayedTime      time.Time     `json:"playedTime"`
	DurationSeconds int           `json:"durationSeconds"`
	Cleared         bool          `json:"cleared"`
	GradeID         *int64        `json:"gradeId,omitempty"`
	GradePoint      *int64        `json:"gradePoint,omitempty"`
	WaveCleared     *int64        `json:"waveCleared,omitempty"`
	Hazard          *float64      `json:"hazard,omitempty"`
	Kill            int           `json:"kill"`
	Death           int           `json:"death"`
	GoldenDeliver   int           `json:"goldenDeliver"`
	Waves           []WaveResult  `json:"waves"`
	Enemies         []EnemyResult `json:"enemies"`
}

type WaveResult struct {
	WaveNumber   int    `json:"waveNumber"`
	EventID      *int64 `json:"eventId,omitempty"`
	WaterLevel   int    `json:"waterLevel"`
	DeliverCount int    `json:"deliverCount"`
	Quota        int    `json:"quota"`
}

type EnemyResult struct {
	EnemyID         int `json:"enemyId"`
	DefeatCount     int `json:"defeatCount"`
	TeamDefeatCount int `json:"teamDefeatCount"`
	PopCount        int `json:"popCount"`
}
