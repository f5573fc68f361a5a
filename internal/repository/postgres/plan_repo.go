package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/freeeve/polite-betrayal/proai/internal/model"
)

// PlanRepo journals planning passes and their moves.
type PlanRepo struct {
	db *sql.DB
}

// NewPlanRepo creates a PlanRepo.
func NewPlanRepo(db *sql.DB) *PlanRepo {
	return &PlanRepo{db: db}
}

// CreatePlan inserts a plan row and its moves in one transaction.
func (r *PlanRepo) CreatePlan(ctx context.Context, plan *model.Plan) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx,
		`INSERT INTO plans (id, game_id, player, round, targets, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at`,
		plan.ID, plan.GameID, plan.Player, plan.Round, pq.Array(nonNil(plan.Targets)), plan.Status,
	).Scan(&plan.CreatedAt)
	if err != nil {
		return fmt.Errorf("create plan: %w", err)
	}
	if err := insertMoves(ctx, tx, plan.ID, plan.Moves); err != nil {
		return err
	}
	return tx.Commit()
}

// SaveMoves appends moves to an existing plan.
func (r *PlanRepo) SaveMoves(ctx context.Context, planID string, moves []model.PlanMove) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := insertMoves(ctx, tx, planID, moves); err != nil {
		return err
	}
	return tx.Commit()
}

func insertMoves(ctx context.Context, tx *sql.Tx, planID string, moves []model.PlanMove) error {
	if len(moves) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO plan_moves (id, plan_id, seq, kind, target, route, unit_ids, transport, result)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`)
	if err != nil {
		return fmt.Errorf("prepare insert move: %w", err)
	}
	defer stmt.Close()

	for _, m := range moves {
		_, err := stmt.ExecContext(ctx, m.ID, planID, m.Seq, m.Kind, m.Target,
			pq.Array(nonNil(m.Route)), pq.Array(nonNil(m.UnitIDs)), nullStr(m.Transport), nullStr(m.Result))
		if err != nil {
			return fmt.Errorf("insert move %d: %w", m.Seq, err)
		}
	}
	return nil
}

// UpdateMoveResult records the execution outcome of one move.
func (r *PlanRepo) UpdateMoveResult(ctx context.Context, moveID, result string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE plan_moves SET result = $1 WHERE id = $2`, nullStr(result), moveID)
	if err != nil {
		return fmt.Errorf("update move result: %w", err)
	}
	return nil
}

// MarkExecuted sets the final status of a plan and stamps executed_at.
func (r *PlanRepo) MarkExecuted(ctx context.Context, planID, status string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE plans SET status = $1, executed_at = now() WHERE id = $2`, status, planID)
	if err != nil {
		return fmt.Errorf("mark plan executed: %w", err)
	}
	return nil
}

// FindByID returns a plan with its moves in sequence order, or nil.
func (r *PlanRepo) FindByID(ctx context.Context, id string) (*model.Plan, error) {
	var p model.Plan
	err := r.db.QueryRowContext(ctx,
		`SELECT id, game_id, player, round, targets, status, created_at, executed_at
		 FROM plans WHERE id = $1`, id,
	).Scan(&p.ID, &p.GameID, &p.Player, &p.Round, pq.Array(&p.Targets), &p.Status, &p.CreatedAt, &p.ExecutedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find plan: %w", err)
	}

	moves, err := r.movesByPlan(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.Moves = moves
	return &p, nil
}

func (r *PlanRepo) movesByPlan(ctx context.Context, planID string) ([]model.PlanMove, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, plan_id, seq, kind, target, route, unit_ids, transport, result, created_at
		 FROM plan_moves WHERE plan_id = $1 ORDER BY seq`, planID,
	)
	if err != nil {
		return nil, fmt.Errorf("moves by plan: %w", err)
	}
	defer rows.Close()

	var moves []model.PlanMove
	for rows.Next() {
		var m model.PlanMove
		var transport, result sql.NullString
		if err := rows.Scan(&m.ID, &m.PlanID, &m.Seq, &m.Kind, &m.Target,
			pq.Array(&m.Route), pq.Array(&m.UnitIDs), &transport, &result, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan move: %w", err)
		}
		m.Transport = transport.String
		m.Result = result.String
		moves = append(moves, m)
	}
	return moves, rows.Err()
}

// ListByGame returns the most recent plans of a game, newest first, without
// their moves.
func (r *PlanRepo) ListByGame(ctx context.Context, gameID string, limit int) ([]model.Plan, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, game_id, player, round, targets, status, created_at, executed_at
		 FROM plans WHERE game_id = $1
		 ORDER BY created_at DESC LIMIT $2`, gameID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var plans []model.Plan
	for rows.Next() {
		var p model.Plan
		if err := rows.Scan(&p.ID, &p.GameID, &p.Player, &p.Round, pq.Array(&p.Targets), &p.Status, &p.CreatedAt, &p.ExecutedAt); err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

func nullStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
