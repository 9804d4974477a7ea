package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	dbtypes "newsflow/internal/db"
	"newsflow/pkg/models"
)

// RecordInteraction appends one event to the interaction log.
func (s *PgStore) RecordInteraction(ctx context.Context, in *models.Interaction) error {
	if in.ID == "" {
		in.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_interactions (id, user_id, article_id, action, platform, ip_address, user_agent, reading_time_secs)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		in.ID, in.UserID, in.ArticleID, in.Action, in.Platform, in.IPAddress, in.UserAgent, in.ReadingSecs)
	return err
}

// UserInteractions returns the user's most recent events, newest first.
func (s *PgStore) UserInteractions(ctx context.Context, userID string, limit int) ([]models.Interaction, error) {
	if limit <= 0 {
		limit = 50
	}
	rows := []models.Interaction{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, article_id, action, platform, ip_address, user_agent, reading_time_secs, created_at
		FROM user_interactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	return rows, err
}

func (s *PgStore) ViewedArticleIDs(ctx context.Context, userID string) ([]string, error) {
	ids := []string{}
	err := s.db.SelectContext(ctx, &ids, `
		SELECT DISTINCT article_id FROM user_interactions
		WHERE user_id = $1 AND action = 'view'`, userID)
	return ids, err
}

// ToggleBookmark flips the bookmark state and reports the resulting state.
func (s *PgStore) ToggleBookmark(ctx context.Context, userID, articleID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM bookmarks WHERE user_id = $1 AND article_id = $2`, userID, articleID)
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return false, nil
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO bookmarks (user_id, article_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, userID, articleID)
	if err != nil {
		return false, err
	}
	return true, nil
}

// ToggleLike flips the like state and reports the resulting state.
func (s *PgStore) ToggleLike(ctx context.Context, userID, articleID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM likes WHERE user_id = $1 AND article_id = $2`, userID, articleID)
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return false, nil
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO likes (user_id, article_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, userID, articleID)
	if err != nil {
		return false, err
	}
	return true, nil
}

// BookmarkedArticles lists a user's saved articles, most recently saved first.
func (s *PgStore) BookmarkedArticles(ctx context.Context, userID string, limit int) ([]*models.Article, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows := []*models.Article{}
	query := `SELECT` + articleCols + articleJoins + `
		JOIN bookmarks b ON b.article_id = a.id AND b.user_id = $1` +
		articleGroup + `, b.created_at
		ORDER BY b.created_at DESC
		LIMIT $2`
	err := s.db.SelectContext(ctx, &rows, query, userID, limit)
	return rows, err
}

// UserPreference returns the user's feed preference, or an empty one if the
// user never saved preferences.
func (s *PgStore) UserPreference(ctx context.Context, userID string) (*models.Preference, error) {
	var p models.Preference
	err := s.db.GetContext(ctx, &p, `
		SELECT user_id, categories, sources FROM user_preferences WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return &models.Preference{
			UserID:     userID,
			Categories: dbtypes.StringSlice{},
			Sources:    dbtypes.StringSlice{},
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PgStore) SavePreference(ctx context.Context, p *models.Preference) error {
	if p.Categories == nil {
		p.Categories = dbtypes.StringSlice{}
	}
	if p.Sources == nil {
		p.Sources = dbtypes.StringSlice{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_preferences (user_id, categories, sources, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			categories = EXCLUDED.categories,
			sources = EXCLUDED.sources,
			updated_at = NOW()`,
		p.UserID, p.Categories, p.Sources)
	return err
}
