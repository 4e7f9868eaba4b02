package domain

import "time"

// PlayerIdentity narrows results to matches in which any participant (not
// necessarily the account owner) matches the non-empty fields.
type PlayerIdentity struct {
	PlayerID string `json:"playerId,omitempty"`
	Name     string `json:"name,omitempty"`
	NameID   string `json:"nameId,omitempty"`
}

func (p PlayerIdentity) IsZero() bool {
	return p.PlayerID == "" && p.Name == "" && p.NameID == ""
}

// Filter is a pure value describing which matches a query should return.
// Empty set fields and zero times mean "no constraint", not "match nothing".
//
// Visibility is a deliberately asymmetric tri-state: ShowOnlyActive alone
// returns rows with is_deleted=0, ShowDeleted alone returns is_deleted=1,
// and both flags set return everything. Both flags unset also emits no
// visibility clause; callers that want the usual "active only" default set
// ShowOnlyActive themselves (DefaultFilter does).
type Filter struct {
	Modes     []string `json:"modes,omitempty"`
	Rules     []string `json:"rules,omitempty"`
	StageIDs  []int    `json:"stageIds,omitempty"`
	WeaponIDs []int    `json:"weaponIds,omitempty"`

	Start time.Time `json:"start,omitempty"`
	End   time.Time `json:"end,omitempty"`

	ShowOnlyActive bool `json:"showOnlyActive"`
	ShowDeleted    bool `json:"showDeleted"`
	FavoritesOnly  bool `json:"favoritesOnly"`

	Player *PlayerIdentity `json:"player,omitempty"`
}

// DefaultFilter is the unconstrained active-only filter the UI starts from.
func DefaultFilter() Filter {
	return Filter{ShowOnlyActive: true}
}

// Page is a limit/offset pair following the stable-pagination contract.
type Page struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func (p Page) Validate() error {
	if p.Limit <= 0 || p.Offset < 0 {
		return ErrInvalidPage
	}
	return nil
}
