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

// TeamRequest rows keep empty strings rather than NULLs in the optional
// payload columns; only processed_at is nullable.
type TeamRequest struct {
	ID              int64                 `db:"id"`
	TeamID          int                   `db:"team_id"`
	RequestType     model.TeamRequestType `db:"request_type"`
	RequesterID     string                `db:"requester_id"`
	CurrentCaptain  string                `db:"current_captain"`
	ProposedCaptain string                `db:"proposed_captain"`
	MemberToAdd     string                `db:"member_to_add"`
	MemberToRemove  string                `db:"member_to_remove"`
	OriginalRequest string                `db:"original_request"`
	Reason          string                `db:"reason"`
	Status          model.RequestStatus   `db:"status"`
	CreatedAt       *time.Time            `db:"created_at"`
	ProcessedAt     *time.Time            `db:"processed_at"`
}

type TeamRequestRepository interface {
	Create(ctx context.Context, req *TeamRequest) error
	Get(ctx context.Context, id int64) (*TeamRequest, error)
	List(ctx context.Context, status model.RequestStatus) ([]*TeamRequest, error)
	SetStatus(ctx context.Context, id int64, status model.RequestStatus, processedAt time.Time) error
}

type pgxTeamRequestRepository struct {
	pool *pgxpool.Pool
}

func NewPgxTeamRequestRepository(pool *pgxpool.Pool) TeamRequestRepository {
	return &pgxTeamRequestRepository{pool: pool}
}

func (p *pgxTeamRequestRepository) Create(ctx context.Context, req *TeamRequest) error {
	e := db.GetExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("team_change_requests",
			"team_id", "request_type", "requester_id", "current_captain",
			"proposed_captain", "member_to_add", "member_to_remove",
			"original_request", "reason", "status"),
		im.Values(
			psql.Arg(req.TeamID), psql.Arg(req.RequestType), psql.Arg(req.RequesterID), psql.Arg(req.CurrentCaptain),
			psql.Arg(req.ProposedCaptain), psql.Arg(req.MemberToAdd), psql.Arg(req.MemberToRemove),
			psql.Arg(req.OriginalRequest), psql.Arg(req.Reason), psql.Arg(req.Status)),
		im.Returning("id", "created_at"),
	)

	sql, args, err := q.Build()
	if err != nil {
		return err
	}

	return e.QueryRow(ctx, sql, args...).Scan(&req.ID, &req.CreatedAt)
}

func (p *pgxTeamRequestRepository) Get(ctx context.Context, id int64) (*TeamRequest, error) {
	e := db.GetExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns(requestColumns()...),
		sm.From("team_change_requests"),
		sm.Where(psql.Quote("id").EQ(psql.Arg(id))),
	)

	sql, args, err := q.Build()
	if err != nil {
		return nil, err
	}

	req := &TeamRequest{}
	if err = e.QueryRow(ctx, sql, args...).Scan(scanTargets(req)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return req, nil
}

func (p *pgxTeamRequestRepository) List(ctx context.Context, status model.RequestStatus) ([]*TeamRequest, error) {
	e := db.GetExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns(requestColumns()...),
		sm.From("team_change_requests"),
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

	reqs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*TeamRequest, error) {
		req := &TeamRequest{}
		if err = row.Scan(scanTargets(req)...); err != nil {
			return nil, err
		}
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	return reqs, nil
}

func (p *pgxTeamRequestRepository) SetStatus(ctx context.Context, id int64, status model.RequestStatus, processedAt time.Time) error {
	e := db.GetExecutorFromContext(ctx, p.pool)

	q := psql.Update(
		um.Table("team_change_requests"),
		um.SetCol("status").ToArg(status),
		um.SetCol("processed_at").ToArg(processedAt),
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

func requestColumns() []any {
	return []any{
		"id", "team_id", "request_type", "requester_id", "current_captain",
		"proposed_captain", "member_to_add", "member_to_remove",
		"original_request", "reason", "status", "created_at", "processed_at",
	}
}

func scanTargets(req *TeamRequest) []any {
	return []any{
		&req.ID, &req.TeamID, &req.RequestType, &req.RequesterID, &req.CurrentCaptain,
		&req.ProposedCaptain, &req.MemberToAdd, &req.MemberToRemove,
		&req.OriginalRequest, &req.Reason, &req.Status, &req.CreatedAt, &req.ProcessedAt,
	}
}
