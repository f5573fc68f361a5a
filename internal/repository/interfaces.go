package repository

import (
	"context"

	"github.com/freeeve/polite-betrayal/proai/internal/model"
)

// PlanRepository journals planning passes and their moves.
type PlanRepository interface {
	CreatePlan(ctx context.Context, plan *model.Plan) error
	SaveMoves(ctx context.Context, planID string, moves []model.PlanMove) error
	UpdateMoveResult(ctx context.Context, moveID, result string) error
	MarkExecuted(ctx context.Context, planID, status string) error
	FindByID(ctx context.Context, id string) (*model.Plan, error)
	ListByGame(ctx context.Context, gameID string, limit int) ([]model.Plan, error)
}

// OddsCache stores battle estimates across planning passes (Redis).
type OddsCache interface {
	GetOdds(ctx context.Context, key string) (*model.OddsRecord, error)
	SetOdds(ctx context.Context, key string, rec *model.OddsRecord) error
}
