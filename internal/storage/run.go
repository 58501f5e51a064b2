package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"

	"github.com/kovalyov-valentin/news-radar/internal/model"
)

const runsSchema = `
CREATE TABLE IF NOT EXISTS radar_runs (
	run_id     UUID PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL,
	threshold  DOUBLE PRECISION NOT NULL,
	stats      JSONB NOT NULL
);
CREATE TABLE IF NOT EXISTS radar_events (
	run_id      UUID NOT NULL REFERENCES radar_runs (run_id) ON DELETE CASCADE,
	position    INT NOT NULL,
	dedup_group TEXT NOT NULL,
	headline    TEXT NOT NULL,
	hotness     DOUBLE PRECISION NOT NULL,
	payload     JSONB NOT NULL,
	PRIMARY KEY (run_id, position)
)`

// История прогонов радара
type RunPostgresStorage struct {
	db *sqlx.DB
}

func NewRunPostgresStorage(db *sqlx.DB) *RunPostgresStorage {
	return &RunPostgresStorage{db: db}
}

func (s *RunPostgresStorage) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, runsSchema)
	return err
}

// Publish сохраняет прогон и его события в одной транзакции
func (s *RunPostgresStorage) Publish(ctx context.Context, out model.RadarOutput) error {
	stats, err := json.Marshal(out.Stats)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO radar_runs (run_id, created_at, threshold, stats) VALUES ($1, $2, $3, $4)`,
		out.RunID,
		out.Timestamp,
		out.Stats.Threshold,
		stats,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, event := range out.TopEvents {
		payload, err := json.Marshal(event)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO radar_events (run_id, position, dedup_group, headline, hotness, payload) VALUES ($1, $2, $3, $4, $5, $6)`,
			out.RunID,
			i,
			event.DedupGroup,
			event.Headline,
			event.Hotness,
			payload,
		); err != nil {
			return fmt.Errorf("insert event %s: %w", event.DedupGroup, err)
		}
	}

	return tx.Commit()
}

// Latest собирает последний сохраненный прогон
func (s *RunPostgresStorage) Latest(ctx context.Context) (model.RadarOutput, error) {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return model.RadarOutput{}, err
	}
	defer conn.Close()

	var run dbRun
	if err := conn.GetContext(ctx, &run, `SELECT run_id, created_at, stats FROM radar_runs ORDER BY created_at DESC LIMIT 1`); err != nil {
		return model.RadarOutput{}, err
	}

	var events []dbEvent
	if err := conn.SelectContext(ctx, &events, `SELECT payload FROM radar_events WHERE run_id = $1 ORDER BY position`, run.RunID); err != nil {
		return model.RadarOutput{}, err
	}

	return run.toModel(events)
}

type dbRun struct {
	RunID     string    `db:"run_id"`
	CreatedAt time.Time `db:"created_at"`
	Stats     []byte    `db:"stats"`
}

type dbEvent struct {
	Payload []byte `db:"payload"`
}

func (r dbRun) toModel(events []dbEvent) (model.RadarOutput, error) {
	out := model.RadarOutput{RunID: r.RunID, Timestamp: r.CreatedAt.UTC()}
	if err := json.Unmarshal(r.Stats, &out.Stats); err != nil {
		return model.RadarOutput{}, fmt.Errorf("decode stats of run %s: %w", r.RunID, err)
	}

	var decodeErr error
	out.TopEvents = lo.FilterMap(events, func(e dbEvent, _ int) (model.EnrichedEvent, bool) {
		var event model.EnrichedEvent
		if err := json.Unmarshal(e.Payload, &event); err != nil {
			decodeErr = err
			return event, false
		}
		return event, true
	})
	if decodeErr != nil {
		return model.RadarOutput{}, fmt.Errorf("decode events of run %s: %w", r.RunID, decodeErr)
	}

	return out, nil
}
