package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/dialect"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/bob/dialect/psql/um"
	"github.com/weilan/team-roster/internal/db"
)

type Player struct {
	DisplayID  int    `db:"display_id"`
	GameID     string `db:"game_id"`
	Class      string `db:"class"`
	IsSelected bool   `db:"is_selected"`
}

// PlayerPatch updates the player currently identified by GameID. Only
// non-nil fields are written; NewGameID and Class together form the
// single-write identity mutation.
type PlayerPatch struct {
	GameID     string  `db:"game_id"`
	NewGameID  *string `db:"new_game_id"`
	Class      *string `db:"class"`
	IsSelected *bool   `db:"is_selected"`
}

type PlayerRepository interface {
	Create(ctx context.Context, player *Player) error
	Get(ctx context.Context, gameID string) (*Player, error)
	List(ctx context.Context) ([]*Player, error)
	Patch(ctx context.Context, patch *PlayerPatch) (*Player, error)
	SetSelectedIn(ctx context.Context, gameIDs []string, selected bool) error
	ResetSelections(ctx context.Context) error
}

type pgxPlayerRepository struct {
	pool *pgxpool.Pool
}

func NewPgxPlayerRepository(pool *pgxpool.Pool) PlayerRepository {
	return &pgxPlayerRepository{pool: pool}
}

func (p *pgxPlayerRepository) Create(ctx context.Context, player *Player) error {
	e := db.GetExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("players", "game_id", "class", "is_selected"),
		im.Values(psql.Arg(player.GameID), psql.Arg(player.Class), psql.Arg(player.IsSelected)),
		im.Returning("display_id"),
	)

	sql, args, err := q.Build()
	if err != nil {
		return err
	}

	err = e.QueryRow(ctx, sql, args...).Scan(&player.DisplayID)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrAlreadyExists
	}

	return err
}

func (p *pgxPlayerRepository) Get(ctx context.Context, gameID string) (*Player, error) {
	e := db.GetExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("display_id", "game_id", "class", "is_selected"),
		sm.From("players"),
		sm.Where(psql.Quote("game_id").EQ(psql.Arg(gameID))),
	)

	sql, args, err := q.Build()
	if err != nil {
		return nil, err
	}

	player := &Player{}
	if err = e.QueryRow(ctx, sql, args...).Scan(
		&player.DisplayID,
		&player.GameID,
		&player.Class,
		&player.IsSelected,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return player, nil
}

func (p *pgxPlayerRepository) List(ctx context.Context) ([]*Player, error) {
	e := db.GetExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("display_id", "game_id", "class", "is_selected"),
		sm.From("players"),
		sm.OrderBy("display_id"),
	)

	sql, args, err := q.Build()
	if err != nil {
		return nil, err
	}

	rows, err := e.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	players, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Player, error) {
		player := &Player{}
		if err = row.Scan(&player.DisplayID, &player.GameID, &player.Class, &player.IsSelected); err != nil {
			return nil, err
		}
		return player, nil
	})
	if err != nil {
		return nil, err
	}

	return players, nil
}

func (p *pgxPlayerRepository) Patch(ctx context.Context, patch *PlayerPatch) (*Player, error) {
	e := db.GetExecutorFromContext(ctx, p.pool)

	sets := make([]bob.Mod[*dialect.UpdateQuery], 0, 3)

	if patch.NewGameID != nil {
		sets = append(sets, um.SetCol("game_id").ToArg(*patch.NewGameID))
	}
	if patch.Class != nil {
		sets = append(sets, um.SetCol("class").ToArg(*patch.Class))
	}
	if patch.IsSelected != nil {
		sets = append(sets, um.SetCol("is_selected").ToArg(*patch.IsSelected))
	}

	q := psql.Update(
		um.Table("players"),
		um.Where(psql.Quote("game_id").EQ(psql.Arg(patch.GameID))),
		um.Returning("display_id", "game_id", "class", "is_selected"),
	)

	q.Apply(sets...)

	sql, args, err := q.Build()
	if err != nil {
		return nil, err
	}

	player := &Player{}
	if err = e.QueryRow(ctx, sql, args...).Scan(
		&player.DisplayID,
		&player.GameID,
		&player.Class,
		&player.IsSelected,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return player, nil
}

// SetSelectedIn flips is_selected for every listed player in one
// statement. The reconciler's corrective writes go through here.
func (p *pgxPlayerRepository) SetSelectedIn(ctx context.Context, gameIDs []string, selected bool) error {
	if len(gameIDs) == 0 {
		return nil
	}

	e := db.GetExecutorFromContext(ctx, p.pool)

	sql, args, err := setSelectedInQuery(gameIDs, selected).Build()
	if err != nil {
		return err
	}

	_, err = e.Exec(ctx, sql, args...)
	return err
}

func setSelectedInQuery(gameIDs []string, selected bool) bob.BaseQuery[*dialect.UpdateQuery] {
	ids := make([]any, 0, len(gameIDs))
	for _, id := range gameIDs {
		ids = append(ids, id)
	}

	return psql.Update(
		um.Table("players"),
		um.SetCol("is_selected").ToArg(selected),
		um.Where(psql.Quote("game_id").In(psql.Arg(ids...))),
	)
}

func (p *pgxPlayerRepository) ResetSelections(ctx context.Context) error {
	e := db.GetExecutorFromContext(ctx, p.pool)

	sql, args, err := resetSelectionsQuery().Build()
	if err != nil {
		return err
	}

	_, err = e.Exec(ctx, sql, args...)
	return err
}

func resetSelectionsQuery() bob.BaseQuery[*dialect.UpdateQuery] {
	return psql.Update(
		um.Table("players"),
		um.SetCol("is_selected").ToArg(false),
	)
}
