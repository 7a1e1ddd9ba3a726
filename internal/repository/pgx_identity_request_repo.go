package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/bob/dialect/psql/um"
	"github.com/weilan/team-roster/internal/db"
	"github.com/weilan/team-roster/internal/model"
)

type IdentityRequest struct {
	ID        int64               `db:"id"`
	GameID    string              `db:"game_id"`
	NewGameID string              `db:"new_game_id"`
	NewClass  string              `db:"new_class"`
	Status    model.RequestStatus `db:"status"`
	CreatedAt *time.Time          `db:"created_at"`
}

type IdentityRequestRepository interface {
	Create(ctx context.Context, req *IdentityRequest) error
	Get(ctx context.Context, id int64) (*IdentityRequest, error)
	List(ctx context.Context, status model.RequestStatus) ([]*IdentityRequest, error)
	SetStatus(ctx context.Context, id int64, status model.RequestStatus) error
}

type pgxIdentityRequestRepository struct {
	pool *pgxpool.Pool
}

func NewPgxIdentityRequestRepository(pool *pgxpool.Pool) IdentityRequestRepository {
	return &pgxIdentityRequestRepository{pool: pool}
}

func (p *pgxIdentityRequestRepository) Create(ctx context.Context, req *IdentityRequest) error {
	e := db.GetExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("identity_change_requests", "game_id", "new_game_id", "new_class", "status"),
		im.Values(psql.Arg(req.GameID), psql.Arg(req.NewGameID), psql.Arg(req.NewClass), psql.Arg(req.Status)),
		im.Returning("id", "created_at"),
	)

	sql, args, err := q.Build()
	if err != nil {
		return err
	}

	return e.QueryRow(ctx, sql, args...).Scan(&req.ID, &req.CreatedAt)
}

func (p *pgxIdentityRequestRepository) Get(ctx context.Context, id int64) (*IdentityRequest, error) {
	e := db.GetExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("id", "game_id", "new_game_id", "new_class", "status", "created_at"),
		sm.From("identity_change_requests"),
		sm.Where(psql.Quote("id").EQ(psql.Arg(id))),
	)

	sql, args, err := q.Build()
	if err != nil {
		return nil, err
	}

	req := &IdentityRequest{}
	if err = e.QueryRow(ctx, sql, args...).Scan(
		&req.ID,
		&req.GameID,
		&req.NewGameID,
		&req.NewClass,
		&req.Status,
		&req.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return req, nil
}

func (p *pgxIdentityRequestRepository) List(ctx context.Context, status model.RequestStatus) ([]*IdentityRequest, error) {
	e := db.GetExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("id", "game_id", "new_game_id", "new_class", "status", "created_at"),
		sm.From("identity_change_requests"),
		sm.OrderBy("created_at").Desc(),
	)
	if status != "" {
		q.Apply(sm.Where(psql.Quote("status").EQ(psql.Arg(status))))
	}

	sql, args, err := q.Build()
	if err != nil {
		return nil, err
	}

	rows, err := e.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reqs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*IdentityRequest, error) {
		req := &IdentityRequest{}
		if err = row.Scan(&req.ID, &req.GameID, &req.NewGameID, &req.NewClass, &req.Status, &req.CreatedAt); err != nil {
			return nil, err
		}
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	return reqs, nil
}

func (p *pgxIdentityRequestRepository) SetStatus(ctx context.Context, id int64, status model.RequestStatus) error {
	e := db.GetExecutorFromContext(ctx, p.pool)

	q := psql.Update(
		um.Table("identity_change_requests"),
		um.SetCol("status").ToArg(status),
		um.Where(psql.Quote("id").EQ(psql.Arg(id))),
	)

	sql, args, err := q.Build()
	if err != nil {
		return err
	}

	commandTag, err := e.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}

	if commandTag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}
