// internal/database/archive.go
package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jamsesh/jamsesh/internal/cache"
	"github.com/jamsesh/jamsesh/internal/game"
)

// RecordGameResults persists the final outcome of one game: a games row
// keyed by lobby code plus start time, and one game_results row per player.
// Live lobby state never touches the database; only finished games land
// here.
func RecordGameResults(ctx context.Context, code string, res *game.GameResults) error {
	if DB == nil {
		return nil
	}
	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var gameRowID int64
		insertGame := `
			INSERT INTO games (lobby_code, finished_at)
			VALUES ($1, NOW())
			RETURNING id
		`
		if e := tx.QueryRow(ctx, insertGame, code).Scan(&gameRowID); e != nil {
			return e
		}

		for rank, pl := range res.Players {
			mvp := res.MVP != nil && res.MVP.ID == pl.ID
			q := `
				INSERT INTO game_results (game_id, player_id, player_name, score, final_rank, is_mvp)
				VALUES ($1, $2, $3, $4, $5, $6)
			`
			if _, e := tx.Exec(ctx, q, gameRowID, pl.ID, pl.Name, pl.Score, rank+1, mvp); e != nil {
				return e
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx insert game results: %w", err)
	}
	return nil
}

// InsertRoundRecordTx inserts one historian round record within an open
// transaction. The guess map is stored as JSONB for later analysis.
func InsertRoundRecordTx(ctx context.Context, tx pgx.Tx, rec cache.RoundRecord) error {
	guesses, err := json.Marshal(rec.Guesses)
	if err != nil {
		return fmt.Errorf("marshal guesses: %w", err)
	}
	scoreboard, err := json.Marshal(rec.Scoreboard)
	if err != nil {
		return fmt.Errorf("marshal scoreboard: %w", err)
	}

	q := `
		INSERT INTO rounds (lobby_code, round_number, song_title, song_artist, song_source, song_source_id, guesses, scoreboard, played_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, to_timestamp($9))
	`
	_, err = tx.Exec(ctx, q,
		rec.LobbyCode, rec.RoundNumber,
		rec.SongTitle, rec.SongArtist, rec.SongSource, rec.SongID,
		guesses, scoreboard, rec.Timestamp,
	)
	return err
}
