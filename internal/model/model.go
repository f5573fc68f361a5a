package model

import (
	"time"
)

// Plan is one journaled planning pass.
type Plan struct {
	ID        string     `json:"id"`
	GameID    string     `json:"game_id,omitempty"`
	Player    string     `json:"player"`
	Round     int        `json:"round"`
	Targets   []string   `json:"targets"`
	Status    string     `json:"status"` // planned, executed, failed
	Moves     []PlanMove `json:"moves,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	// ExecutedAt is set once every move has been submitted.
	ExecutedAt *time.Time `json:"executed_at,omitempty"`
}

// Plan statuses.
const (
	PlanPlanned  = "planned"
	PlanExecuted = "executed"
	PlanFailed   = "failed"
)

// PlanMove is one emitted move instruction and its execution outcome.
type PlanMove struct {
	ID        string    `json:"id"`
	PlanID    string    `json:"plan_id"`
	Seq       int       `json:"seq"`
	Kind      string    `json:"kind"` // attack, load, advance, unload, bombard
	Target    string    `json:"target"`
	Route     []string  `json:"route"`
	UnitIDs   []string  `json:"unit_ids"`
	Transport string    `json:"transport,omitempty"`
	Result    string    `json:"result,omitempty"` // ok, or the failure reason
	CreatedAt time.Time `json:"created_at"`
}

// OddsRecord is a cached battle estimate. Survivors are stored as unit type
// names so a record can be reused for any battle with the same composition.
type OddsRecord struct {
	WinPercent           float64  `json:"win_percent"`
	TUVSwing             float64  `json:"tuv_swing"`
	AttackersRemaining   []string `json:"attackers_remaining"`
	DefendersRemaining   []string `json:"defenders_remaining"`
	HasLandUnitRemaining bool     `json:"has_land_unit_remaining"`
	AverageRounds        float64  `json:"average_rounds"`
}
