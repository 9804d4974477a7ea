package store

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// PgStore is the Postgres-backed persistence layer. All SQL lives here;
// the service and recommendation layers only see the methods.
type PgStore struct {
	db *sqlx.DB
}

func NewPgStore(db *sqlx.DB) *PgStore {
	return &PgStore{db: db}
}

// RunMigrations creates the schema if it does not exist. Statements are
// idempotent so the service can run them on every boot.
func (s *PgStore) RunMigrations() error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`,

		`CREATE TABLE IF NOT EXISTS categories (
			id          UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			name        TEXT NOT NULL,
			slug        TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			icon        TEXT NOT NULL DEFAULT '',
			sort_order  INT NOT NULL DEFAULT 0,
			is_active   BOOLEAN NOT NULL DEFAULT TRUE,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS sources (
			id                      UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			name                    TEXT NOT NULL,
			slug                    TEXT NOT NULL UNIQUE,
			description             TEXT NOT NULL DEFAULT '',
			base_url                TEXT NOT NULL,
			rss_feed                TEXT NOT NULL DEFAULT '',
			source_type             TEXT NOT NULL DEFAULT 'rss',
			primary_category        TEXT NOT NULL DEFAULT '',
			country                 TEXT NOT NULL DEFAULT '',
			language                TEXT NOT NULL DEFAULT 'en',
			is_active               BOOLEAN NOT NULL DEFAULT TRUE,
			scrape_frequency_mins   INT NOT NULL DEFAULT 60,
			max_articles_per_scrape INT NOT NULL DEFAULT 20,
			last_scraped            TIMESTAMPTZ,
			total_articles_scraped  INT NOT NULL DEFAULT 0,
			success_rate            DOUBLE PRECISION NOT NULL DEFAULT 100,
			credibility_score       DOUBLE PRECISION NOT NULL DEFAULT 5,
			bias_rating             TEXT NOT NULL DEFAULT 'center',
			created_at              TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS articles (
			id              UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			title           TEXT NOT NULL,
			url             TEXT NOT NULL UNIQUE,
			content         TEXT NOT NULL DEFAULT '',
			summary         TEXT NOT NULL DEFAULT '',
			llm_summary     TEXT NOT NULL DEFAULT '',
			author          TEXT NOT NULL DEFAULT '',
			source_id       UUID NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
			published_at    TIMESTAMPTZ NOT NULL,
			scraped_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			top_image       TEXT NOT NULL DEFAULT '',
			sentiment_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			sentiment_label TEXT NOT NULL DEFAULT 'neutral',
			read_time_mins  INT NOT NULL DEFAULT 1,
			view_count      BIGINT NOT NULL DEFAULT 0,
			keywords        JSONB NOT NULL DEFAULT '[]',
			is_featured     BOOLEAN NOT NULL DEFAULT FALSE,
			is_published    BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_published_at ON articles (published_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_source ON articles (source_id)`,

		`CREATE TABLE IF NOT EXISTS article_categories (
			article_id  UUID NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
			category_id UUID NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
			PRIMARY KEY (article_id, category_id)
		)`,

		`CREATE TABLE IF NOT EXISTS users (
			id            UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			email         TEXT NOT NULL UNIQUE,
			username      TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL DEFAULT '',
			is_active     BOOLEAN NOT NULL DEFAULT TRUE,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS user_profiles (
			user_id                UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			display_name           TEXT NOT NULL DEFAULT '',
			theme                  TEXT NOT NULL DEFAULT 'auto',
			reading_speed_wpm      INT NOT NULL DEFAULT 200,
			is_onboarded           BOOLEAN NOT NULL DEFAULT FALSE,
			email_notifications    BOOLEAN NOT NULL DEFAULT TRUE,
			notification_frequency TEXT NOT NULL DEFAULT 'daily'
		)`,

		`CREATE TABLE IF NOT EXISTS user_interactions (
			id                UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			user_id           UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			article_id        UUID NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
			action            TEXT NOT NULL,
			platform          TEXT NOT NULL DEFAULT '',
			ip_address        TEXT NOT NULL DEFAULT '',
			user_agent        TEXT NOT NULL DEFAULT '',
			reading_time_secs INT NOT NULL DEFAULT 0,
			created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_user ON user_interactions (user_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_article ON user_interactions (article_id, created_at DESC)`,

		`CREATE TABLE IF NOT EXISTS bookmarks (
			user_id    UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			article_id UUID NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
			notes      TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, article_id)
		)`,

		`CREATE TABLE IF NOT EXISTS likes (
			user_id    UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			article_id UUID NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, article_id)
		)`,

		`CREATE TABLE IF NOT EXISTS user_preferences (
			user_id    UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			categories JSONB NOT NULL DEFAULT '[]',
			sources    JSONB NOT NULL DEFAULT '[]',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	log.Println("database migrations applied")
	return nil
}
