package storage

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"

	"github.com/kovalyov-valentin/news-radar/internal/governor"
	"github.com/kovalyov-valentin/news-radar/internal/model"
)

const sourcesSchema = `
CREATE TABLE IF NOT EXISTS sources (
	id               BIGSERIAL PRIMARY KEY,
	name             TEXT NOT NULL UNIQUE,
	kind             TEXT NOT NULL,
	feed_url         TEXT NOT NULL,
	api_key          TEXT NOT NULL DEFAULT '',
	query            TEXT NOT NULL DEFAULT '',
	category         TEXT NOT NULL DEFAULT '',
	credibility      INT NOT NULL DEFAULT 5,
	min_interval_ms  BIGINT NOT NULL DEFAULT 0,
	fetch_timeout_ms BIGINT NOT NULL DEFAULT 0,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Источники в Postgres. Их можно добавлять командой бота без рестарта
type SourcePostgresStorage struct {
	db *sqlx.DB
}

func NewSourcePostgresStorage(db *sqlx.DB) *SourcePostgresStorage {
	return &SourcePostgresStorage{db: db}
}

func (s *SourcePostgresStorage) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sourcesSchema)
	return err
}

func (s *SourcePostgresStorage) Sources(ctx context.Context) ([]model.Source, error) {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	var sources []dbSource
	if err := conn.SelectContext(ctx, &sources, `SELECT * FROM sources ORDER BY id`); err != nil {
		return nil, err
	}

	return lo.Map(sources, func(source dbSource, _ int) model.Source {
		return source.toModel()
	}), nil
}

func (s *SourcePostgresStorage) SourceByID(ctx context.Context, id int64) (*model.Source, error) {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	var source dbSource
	if err := conn.GetContext(ctx, &source, `SELECT * FROM sources WHERE id = $1`, id); err != nil {
		return nil, err
	}

	m := source.toModel()
	return &m, nil
}

func (s *SourcePostgresStorage) Add(ctx context.Context, source model.Source) (int64, error) {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	row := fromModel(source)
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}

	var id int64
	err = conn.QueryRowxContext(
		ctx,
		`INSERT INTO sources (name, kind, feed_url, api_key, query, category, credibility, min_interval_ms, fetch_timeout_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
		row.Name,
		row.Kind,
		row.FeedURL,
		row.APIKey,
		row.Query,
		row.Category,
		row.Credibility,
		row.MinIntervalMS,
		row.FetchTimeoutMS,
		row.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, err
	}

	return id, nil
}

func (s *SourcePostgresStorage) Delete(ctx context.Context, id int64) error {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = conn.ExecContext(ctx, `DELETE FROM sources WHERE id = $1`, id)
	return err
}

// Внутренняя модель для маппинга на колонки таблицы
type dbSource struct {
	ID             int64     `db:"id"`
	Name           string    `db:"name"`
	Kind           string    `db:"kind"`
	FeedURL        string    `db:"feed_url"`
	APIKey         string    `db:"api_key"`
	Query          string    `db:"query"`
	Category       string    `db:"category"`
	Credibility    int       `db:"credibility"`
	MinIntervalMS  int64     `db:"min_interval_ms"`
	FetchTimeoutMS int64     `db:"fetch_timeout_ms"`
	CreatedAt      time.Time `db:"created_at"`
}

func (s dbSource) toModel() model.Source {
	return model.Source{
		ID:          s.ID,
		Name:        s.Name,
		Kind:        s.Kind,
		FeedURL:     s.FeedURL,
		APIKey:      s.APIKey,
		Query:       s.Query,
		Category:    s.Category,
		Credibility: s.Credibility,
		// В строке интервал может быть не задан, тогда берем интервал провайдера
		MinInterval:  governor.Resolve(s.Kind, time.Duration(s.MinIntervalMS)*time.Millisecond, 0),
		FetchTimeout: time.Duration(s.FetchTimeoutMS) * time.Millisecond,
		CreatedAt:    s.CreatedAt,
	}
}

func fromModel(m model.Source) dbSource {
	return dbSource{
		ID:             m.ID,
		Name:           m.Name,
		Kind:           m.Kind,
		FeedURL:        m.FeedURL,
		APIKey:         m.APIKey,
		Query:          m.Query,
		Category:       m.Category,
		Credibility:    m.Credibility,
		MinIntervalMS:  m.MinInterval.Milliseconds(),
		FetchTimeoutMS: m.FetchTimeout.Milliseconds(),
		CreatedAt:      m.CreatedAt,
	}
}
