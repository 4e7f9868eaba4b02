package domain

import (
	"time"
)

type MatchKind string

const (
	KindBattle MatchKind = "battle"
	KindCoop   MatchKind = "coop"
)

type Judgement string

const (
	JudgementWin        Judgement = "WIN"
	JudgementLose       Judgement = "LOSE"
	JudgementDraw       Judgement = "DRAW"
	JudgementDisconnect Judgement = "DISCONNECT"
)

// Match is one completed battle or co-op run, owned by a single account.
// Rows are immutable once synced except for the two visibility flags.
type Match struct {
	ID        string    `json:"id"`
	AccountID string    `json:"accountId"`
	Kind      MatchKind `json:"kind"`
	Mode      string    `json:"mode"` // REGULAR, BANKARA, X_MATCH, FEST, PRIVATE, SALMON
	Rule      string    `json:"rule"`
	StageID   int       `json:"stageId"`
	WeaponID  int       `json:"weaponId"` // the owner's own weapon

	PlayedTime      time.Time `json:"playedTime"`
	DurationSeconds int       `json:"durationSeconds"`

	Judgement Judgement `json:"judgement"`
	Knockout  bool      `json:"knockout"`

	// Owner's own per-match stats, denormalized from the participant rows.
	Kill    int `json:"kill"`
	Death   int `json:"death"`
	Assist  int `json:"assist"`
	Special int `json:"special"`
	Paint   int `json:"paint"`

	Udemae           *string  `json:"udemae,omitempty"`
	BattlePower      *float64 `json:"battlePower,omitempty"`
	FestContribution *int64   `json:"festContribution,omitempty"`
	FestDragon       *string  `json:"festDragon,omitempty"`

	CoopGradeID     *int64   `json:"coopGradeId,omitempty"`
	CoopGradePoint  *int64   `json:"coopGradePoint,omitempty"`
	CoopWaveCleared *int64   `json:"coopWaveCleared,omitempty"`
	CoopHazard      *float64 `json:"coopHazard,omitempty"`

	GroupID    int64 `json:"groupId"`
	IsDeleted  bool  `json:"isDeleted"`
	IsFavorite bool  `json:"isFavorite"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Team is a per-team result row owned by exactly one match.
type Team struct {
	MatchID    string   `json:"matchId"`
	TeamOrder  int      `json:"teamOrder"`
	Color      string   `json:"color"`
	PaintRatio *float64 `json:"paintRatio,omitempty"`
	Score      *int64   `json:"score,omitempty"`
	IsMyTeam   bool     `json:"isMyTeam"`
}

// Player is a per-participant result row owned by exactly one match.
type Player struct {
	MatchID     string `json:"matchId"`
	TeamOrder   int    `json:"teamOrder"`
	PlayerOrder int    `json:"playerOrder"`
	PlayerID    string `json:"playerId"`
	Name        string `json:"name"`
	NameID      string `json:"nameId"`
	WeaponID    int    `json:"weaponId"`
	Kill        int    `json:"kill"`
	Death       int    `json:"death"`
	Assist      int    `json:"assist"`
	Special     int    `json:"special"`
	Paint       int    `json:"paint"`
	IsMyself    bool   `json:"isMyself"`
}

type CoopWave struct {
	MatchID      string `json:"matchId"`
	WaveNumber   int    `json:"waveNumber"`
	EventID      *int64 `json:"eventId,omitempty"`
	WaterLevel   int    `json:"waterLevel"`
	DeliverCount int    `json:"deliverCount"`
	Quota        int    `json:"quota"`
}

type CoopEnemy struct {
	MatchID         string `json:"matchId"`
	EnemyID         int    `json:"enemyId"`
	DefeatCount     int    `json:"defeatCount"`
	TeamDefeatCount int    `json:"teamDefeatCount"`
	PopCount        int    `json:"popCount"`
}

// AssetKind selects the lookup namespace in the static asset table.
type AssetKind string

const (
	AssetWeapon AssetKind = "weapon"
	AssetStage  AssetKind = "stage"
	AssetEnemy  AssetKind = "enemy"
)

// Asset is one row of the read-only name/image lookup table.
type Asset struct {
	Kind     AssetKind `json:"kind"`
	ID       int       `json:"id"`
	Name     string    `json:"name"`
	ImageKey string    `json:"imageKey"`
}
