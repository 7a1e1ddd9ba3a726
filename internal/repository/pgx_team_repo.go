package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/dialect"
	"github.com/stephenafamo/bob/dialect/psql/dm"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/bob/dialect/psql/um"
	"github.com/weilan/team-roster/internal/db"
)

type Team struct {
	ID        int        `db:"id"`
	Captain   string     `db:"captain"`
	Members   []string   `db:"members"`
	CreatedAt *time.Time `db:"created_at"`
}

type TeamPatch struct {
	ID      int       `db:"id"`
	Captain *string   `db:"captain"`
	Members *[]string `db:"members"`
}

type TeamRepository interface {
	Create(ctx context.Context, team *Team) error
	Get(ctx context.Context, id int) (*Team, error)
	List(ctx context.Context) ([]*Team, error)
	MaxID(ctx context.Context) (int, error)
	FindByPlayer(ctx context.Context, gameID string) ([]*Team, error)
	Patch(ctx context.Context, patch *TeamPatch) (*Team, error)
	Delete(ctx context.Context, id int) error
}

type pgxTeamRepository struct {
	pool *pgxpool.Pool
}

func NewPgxTeamRepository(pool *pgxpool.Pool) TeamRepository {
	return &pgxTeamRepository{pool: pool}
}

func (p *pgxTeamRepository) Create(ctx context.Context, team *Team) error {
	e := db.GetExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("teams", "id", "captain", "members", "created_at"),
		im.Values(psql.Arg(team.ID), psql.Arg(team.Captain), psql.Arg(team.Members), psql.Arg(time.Now())),
		im.Returning("created_at"),
	)

	sql, args, err := q.Build()
	if err != nil {
		return err
	}

	err = e.QueryRow(ctx, sql, args...).Scan(&team.CreatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrAlreadyExists
	}

	return err
}

func (p *pgxTeamRepository) Get(ctx context.Context, id int) (*Team, error) {
	e := db.GetExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("id", "captain", "members", "created_at"),
		sm.From("teams"),
		sm.Where(psql.Quote("id").EQ(psql.Arg(id))),
	)

	sql, args, err := q.Build()
	if err != nil {
		return nil, err
	}

	team := &Team{}
	if err = e.QueryRow(ctx, sql, args...).Scan(
		&team.ID,
		&team.Captain,
		&team.Members,
		&team.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return team, nil
}

func (p *pgxTeamRepository) List(ctx context.Context) ([]*Team, error) {
	e := db.GetExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("id", "captain", "members", "created_at"),
		sm.From("teams"),
		sm.OrderBy("created_at").Desc(),
	)

	sql, args, err := q.Build()
	if err != nil {
		return nil, err
	}

	return p.collectTeams(ctx, e, sql, args)
}

// MaxID reads the current highest team id. Callers must treat the value
// as already stale: allocation races are resolved by the primary-key
// constraint, not by this read.
func (p *pgxTeamRepository) MaxID(ctx context.Context) (int, error) {
	e := db.GetExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("id"),
		sm.From("teams"),
		sm.OrderBy("id").Desc(),
		sm.Limit(1),
	)

	sql, args, err := q.Build()
	if err != nil {
		return 0, err
	}

	var id int
	if err = e.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return id, nil
}

// FindByPlayer returns every team where gameID is the captain or a
// listed member, in one OR-predicate query.
func (p *pgxTeamRepository) FindByPlayer(ctx context.Context, gameID string) ([]*Team, error) {
	e := db.GetExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("id", "captain", "members", "created_at"),
		sm.From("teams"),
		sm.Where(
			psql.Quote("captain").EQ(psql.Arg(gameID)).
				Or(psql.Raw("? = ANY(members)", gameID)),
		),
		sm.OrderBy("id"),
	)

	sql, args, err := q.Build()
	if err != nil {
		return nil, err
	}

	return p.collectTeams(ctx, e, sql, args)
}

func (p *pgxTeamRepository) Patch(ctx context.Context, patch *TeamPatch) (*Team, error) {
	e := db.GetExecutorFromContext(ctx, p.pool)

	sets := make([]bob.Mod[*dialect.UpdateQuery], 0, 2)

	if patch.Captain != nil {
		sets = append(sets, um.SetCol("captain").ToArg(*patch.Captain))
	}
	if patch.Members != nil {
		sets = append(sets, um.SetCol("members").ToArg(*patch.Members))
	}

	q := psql.Update(
		um.Table("teams"),
		um.Where(psql.Quote("id").EQ(psql.Arg(patch.ID))),
		um.Returning("id", "captain", "members", "created_at"),
	)

	q.Apply(sets...)

	sql, args, err := q.Build()
	if err != nil {
		return nil, err
	}

	team := &Team{}
	if err = e.QueryRow(ctx, sql, args...).Scan(
		&team.ID,
		&team.Captain,
		&team.Members,
		&team.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return team, nil
}

func (p *pgxTeamRepository) Delete(ctx context.Context, id int) error {
	e := db.GetExecutorFromContext(ctx, p.pool)

	q := psql.Delete(
		dm.From("teams"),
		dm.Where(psql.Quote("id").EQ(psql.Arg(id))),
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

func (p *pgxTeamRepository) collectTeams(ctx context.Context, e db.Executor, sql string, args []any) ([]*Team, error) {
	rows, err := e.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Team, error) {
		team := &Team{}
		if err = row.Scan(&team.ID, &team.Captain, &team.Members, &team.CreatedAt); err != nil {
			return nil, err
		}
		return team, nil
	})
	if err != nil {
		return nil, err
	}

	return teams, nil
}
