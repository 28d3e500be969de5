package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/stakepot/stakepot/internal/domain/game"
)

const gameColumns = `id, short_id, game_type, total_slots, team_mode, wager::text, status, winner_kind, winner_side, winner_player, players, votes, lobby_chat_id, lobby_message_id, created_at, started_at, completed_at, version`

// GameRepository implements game.Repository on postgres. Update wraps the
// read-mutate-write cycle in a transaction with a row lock, which gives the
// single-document atomicity the engine's conditional updates require.
type GameRepository struct {
	pool *pgxpool.Pool
}

func NewGameRepository(pool *pgxpool.Pool) *GameRepository {
	return &GameRepository{pool: pool}
}

func (r *GameRepository) Create(ctx context.Context, s *game.Session) error {
	winnerKind, winnerSide, winnerPlayer := s.Winner.Parts()
	players, err := json.Marshal(s.Players)
	if err != nil {
		return err
	}
	votes, err := json.Marshal(s.Votes)
	if err != nil {
		return err
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO games
		(short_id, game_type, total_slots, team_mode, wager, status, winner_kind, winner_side, winner_player, players, votes, lobby_chat_id, lobby_message_id, created_at, started_at, completed_at, version)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		RETURNING id
	`, s.ShortID, s.GameType, s.TotalSlots, s.TeamMode, s.Wager.String(), s.Status, winnerKind, winnerSide, winnerPlayer, players, votes, s.LobbyChatID, s.LobbyMessageID, s.CreatedAt, s.StartedAt, s.CompletedAt, s.Version)
	if err := row.Scan(&s.ID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return game.ErrShortIDTaken
		}
		return err
	}
	return nil
}

func (r *GameRepository) GetByShortID(ctx context.Context, shortID string) (*game.Session, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+gameColumns+` FROM games WHERE short_id=$1`, shortID)
	return scanGame(row)
}

func (r *GameRepository) Update(ctx context.Context, shortID string, mutate func(*game.Session) error) (*game.Session, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `SELECT `+gameColumns+` FROM games WHERE short_id=$1 FOR UPDATE`, shortID)
	sess, err := scanGame(row)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, game.ErrNotFound
	}

	if err := mutate(sess); err != nil {
		return nil, err
	}
	sess.Version++

	winnerKind, winnerSide, winnerPlayer := sess.Winner.Parts()
	players, err := json.Marshal(sess.Players)
	if err != nil {
		return nil, err
	}
	votes, err := json.Marshal(sess.Votes)
	if err != nil {
		return nil, err
	}
	_, err = tx.Exec(ctx, `
		UPDATE games
		SET status=$1, winner_kind=$2, winner_side=$3, winner_player=$4, players=$5, votes=$6, started_at=$7, completed_at=$8, version=$9
		WHERE short_id=$10
	`, sess.Status, winnerKind, winnerSide, winnerPlayer, players, votes, sess.StartedAt, sess.CompletedAt, sess.Version, shortID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return sess, nil
}

func (r *GameRepository) List(ctx context.Context, filter game.Filter, limit, offset int) ([]*game.Session, error) {
	query := `SELECT ` + gameColumns + ` FROM games`
	args := []interface{}{}
	idx := 1
	if filter.Status != nil {
		query += addWhere(query) + " status=$" + itoa(idx)
		args = append(args, *filter.Status)
		idx++
	}
	if filter.GameType != nil {
		query += addWhere(query) + " game_type=$" + itoa(idx)
		args = append(args, *filter.GameType)
		idx++
	}
	query += " ORDER BY created_at DESC LIMIT $" + itoa(idx) + " OFFSET $" + itoa(idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sessions []*game.Session
	for rows.Next() {
		s, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func scanGame(row pgx.Row) (*game.Session, error) {
	var (
		s            game.Session
		wager        string
		winnerKind   string
		winnerSide   *int
		winnerPlayer *string
		players      []byte
		votes        []byte
	)
	if err := row.Scan(&s.ID, &s.ShortID, &s.GameType, &s.TotalSlots, &s.TeamMode, &wager, &s.Status, &winnerKind, &winnerSide, &winnerPlayer, &players, &votes, &s.LobbyChatID, &s.LobbyMessageID, &s.CreatedAt, &s.StartedAt, &s.CompletedAt, &s.Version); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	var err error
	if s.Wager, err = decimal.NewFromString(wager); err != nil {
		return nil, fmt.Errorf("bad wager value %q: %w", wager, err)
	}
	if s.Winner, err = game.WinnerFromParts(winnerKind, winnerSide, winnerPlayer); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(players, &s.Players); err != nil {
		return nil, fmt.Errorf("bad players document: %w", err)
	}
	if len(votes) > 0 {
		if err := json.Unmarshal(votes, &s.Votes); err != nil {
			return nil, fmt.Errorf("bad votes document: %w", err)
		}
	}
	return &s, nil
}

func addWhere(query string) string {
	if strings.Contains(query, " WHERE ") {
		return " AND"
	}
	return " WHERE"
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
