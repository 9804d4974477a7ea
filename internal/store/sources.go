package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"newsflow/pkg/models"
)

const sourceCols = `
	id, name, slug, description, base_url, rss_feed, source_type, primary_category,
	country, language, is_active, scrape_frequency_mins, max_articles_per_scrape,
	last_scraped, total_articles_scraped, success_rate, credibility_score,
	bias_rating, created_at`

func (s *PgStore) ListSources(ctx context.Context, activeOnly bool) ([]*models.Source, error) {
	rows := []*models.Source{}
	query := `SELECT` + sourceCols + ` FROM sources`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY name`
	err := s.db.SelectContext(ctx, &rows, query)
	return rows, err
}

func (s *PgStore) SourceByID(ctx context.Context, id string) (*models.Source, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	var src models.Source
	err := s.db.GetContext(ctx, &src, `SELECT`+sourceCols+` FROM sources WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &src, nil
}

func (s *PgStore) CreateSource(ctx context.Context, src *models.Source) error {
	if src.ID == "" {
		src.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sources (id, name, slug, description, base_url, rss_feed, source_type,
			primary_category, country, language, is_active, scrape_frequency_mins,
			max_articles_per_scrape, credibility_score, bias_rating)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		ON CONFLICT (slug) DO UPDATE SET
			name = EXCLUDED.name,
			base_url = EXCLUDED.base_url,
			rss_feed = EXCLUDED.rss_feed,
			is_active = EXCLUDED.is_active`,
		src.ID, src.Name, src.Slug, src.Description, src.BaseURL, src.RSSFeed, src.SourceType,
		src.PrimaryCategory, src.Country, src.Language, src.IsActive, src.ScrapeFrequency,
		src.MaxArticles, src.Credibility, src.BiasRating)
	return err
}

// MarkSourceScraped stamps the scrape time and rolls the success rate and
// article counter forward.
func (s *PgStore) MarkSourceScraped(ctx context.Context, sourceID string, count int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sources SET
			last_scraped = NOW(),
			total_articles_scraped = total_articles_scraped + $2,
			success_rate = LEAST(100, success_rate * 0.9 + (CASE WHEN $2 > 0 THEN 100.0 ELSE 0 END) * 0.1)
		WHERE id = $1`, sourceID, count)
	return err
}

func (s *PgStore) ActiveSources(ctx context.Context) ([]*models.Source, error) {
	return s.ListSources(ctx, true)
}

const categoryCols = `id, name, slug, description, icon, sort_order, is_active, created_at`

func (s *PgStore) ListCategories(ctx context.Context) ([]*models.Category, error) {
	rows := []*models.Category{}
	err := s.db.SelectContext(ctx, &rows,
		`SELECT `+categoryCols+` FROM categories WHERE is_active ORDER BY sort_order, name`)
	return rows, err
}

func (s *PgStore) CreateCategory(ctx context.Context, c *models.Category) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, slug, description, icon, sort_order, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (slug) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			icon = EXCLUDED.icon,
			sort_order = EXCLUDED.sort_order`,
		c.ID, c.Name, c.Slug, c.Description, c.Icon, c.SortOrder, c.IsActive)
	return err
}

func (s *PgStore) UserByID(ctx context.Context, id string) (*models.User, error) {
	// Same uuid-cast guard as ArticleByID; callers map not-found to a 401.
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	var u models.User
	err := s.db.GetContext(ctx, &u, `
		SELECT id, email, username, password_hash, is_active, created_at
		FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *PgStore) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, username, password_hash, is_active)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (username) DO NOTHING`,
		u.ID, u.Email, u.Username, u.PasswordHash, u.IsActive)
	return err
}

func (s *PgStore) ProfileByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	var p models.Profile
	err := s.db.GetContext(ctx, &p, `
		SELECT user_id, display_name, theme, reading_speed_wpm, is_onboarded,
			email_notifications, notification_frequency
		FROM user_profiles WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PgStore) SaveProfile(ctx context.Context, p *models.Profile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_profiles (user_id, display_name, theme, reading_speed_wpm,
			is_onboarded, email_notifications, notification_frequency)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (user_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			theme = EXCLUDED.theme,
			reading_speed_wpm = EXCLUDED.reading_speed_wpm,
			is_onboarded = EXCLUDED.is_onboarded,
			email_notifications = EXCLUDED.email_notifications,
			notification_frequency = EXCLUDED.notification_frequency`,
		p.UserID, p.DisplayName, p.Theme, p.ReadingSpeedWPM, p.IsOnboarded,
		p.EmailNotifications, p.NotifyFrequency)
	return err
}
