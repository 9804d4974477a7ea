package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	dbtypes "newsflow/internal/db"
	"newsflow/pkg/models"
)

var ErrNotFound = errors.New("not found")

// articleCols is the shared projection for article queries. Category slugs
// are folded into a jsonb array so they scan into dbtypes.StringSlice.
const articleCols = `
	a.id, a.title, a.url, a.content, a.summary, a.llm_summary, a.author,
	a.source_id, s.name AS source_name, a.published_at, a.scraped_at,
	a.top_image, a.sentiment_score, a.sentiment_label, a.read_time_mins,
	a.view_count, a.keywords, a.is_featured, a.is_published,
	COALESCE(jsonb_agg(DISTINCT c.slug) FILTER (WHERE c.slug IS NOT NULL), '[]') AS categories`

const articleJoins = `
	FROM articles a
	JOIN sources s ON s.id = a.source_id
	LEFT JOIN article_categories ac ON ac.article_id = a.id
	LEFT JOIN categories c ON c.id = ac.category_id`

const articleGroup = ` GROUP BY a.id, s.name`

// categoryFilter matches articles carrying any of the given slugs without
// disturbing the aggregated categories column.
const categoryFilter = ` AND EXISTS (
	SELECT 1 FROM article_categories acf
	JOIN categories cf ON cf.id = acf.category_id
	WHERE acf.article_id = a.id AND cf.slug = ANY($%d))`

// SaveArticles upserts a batch keyed on the article URL and links category
// slugs through the join table. The whole batch commits or rolls back as one.
func (s *PgStore) SaveArticles(ctx context.Context, articles []*models.Article) error {
	if len(articles) == 0 {
		return nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	upsert := `
		INSERT INTO articles (id, title, url, content, summary, llm_summary, author,
			source_id, published_at, scraped_at, top_image, sentiment_score,
			sentiment_label, read_time_mins, keywords, is_featured, is_published)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		ON CONFLICT (url) DO UPDATE SET
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			summary = EXCLUDED.summary,
			top_image = EXCLUDED.top_image,
			sentiment_score = EXCLUDED.sentiment_score,
			sentiment_label = EXCLUDED.sentiment_label,
			read_time_mins = EXCLUDED.read_time_mins,
			keywords = EXCLUDED.keywords
		RETURNING id`

	linkCats := `
		INSERT INTO article_categories (article_id, category_id)
		SELECT $1, id FROM categories WHERE slug = ANY($2)
		ON CONFLICT DO NOTHING`

	for _, a := range articles {
		if a.ID == "" {
			a.ID = uuid.New().String()
		}
		if a.Keywords == nil {
			a.Keywords = dbtypes.StringSlice{}
		}
		if a.ScrapedAt.IsZero() {
			a.ScrapedAt = time.Now().UTC()
		}
		var id string
		err := tx.QueryRowxContext(ctx, upsert,
			a.ID, a.Title, a.URL, a.Content, a.Summary, a.LLMSummary, a.Author,
			a.SourceID, a.PublishedAt, a.ScrapedAt, a.TopImage, a.Sentiment,
			a.SentimentLbl, a.ReadTime, a.Keywords, a.IsFeatured, a.IsPublished,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("upsert article url=%s: %w", a.URL, err)
		}
		a.ID = id
		if len(a.Categories) > 0 {
			if _, err := tx.ExecContext(ctx, linkCats, id, pq.Array([]string(a.Categories))); err != nil {
				return fmt.Errorf("link categories for %s: %w", id, err)
			}
		}
	}
	return tx.Commit()
}

func (s *PgStore) ArticleByID(ctx context.Context, id string) (*models.Article, error) {
	// Client-supplied IDs hit a uuid cast in Postgres; reject garbage here
	// so it reads as not-found instead of a query error.
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	var a models.Article
	query := `SELECT` + articleCols + articleJoins + ` WHERE a.id = $1` + articleGroup
	if err := s.db.GetContext(ctx, &a, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (s *PgStore) ArticlesByIDs(ctx context.Context, ids []string) ([]*models.Article, error) {
	if len(ids) == 0 {
		return []*models.Article{}, nil
	}
	rows := []*models.Article{}
	query := `SELECT` + articleCols + articleJoins + ` WHERE a.id = ANY($1::uuid[])` + articleGroup
	err := s.db.SelectContext(ctx, &rows, query, pq.Array(ids))
	return rows, err
}

func (s *PgStore) ArticleURLExists(ctx context.Context, url string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM articles WHERE url = $1)`, url)
	return exists, err
}

func (s *PgStore) RecentTitlesBySource(ctx context.Context, sourceID string, since time.Time) ([]string, error) {
	titles := []string{}
	err := s.db.SelectContext(ctx, &titles,
		`SELECT title FROM articles WHERE source_id = $1 AND scraped_at >= $2`, sourceID, since)
	return titles, err
}

// RecentArticles feeds the recommendation index: published articles newest first.
func (s *PgStore) RecentArticles(ctx context.Context, since time.Time, limit int) ([]*models.Article, error) {
	rows := []*models.Article{}
	query := `SELECT` + articleCols + articleJoins + `
		WHERE a.is_published AND a.published_at >= $1` + articleGroup + `
		ORDER BY a.published_at DESC LIMIT $2`
	err := s.db.SelectContext(ctx, &rows, query, since, limit)
	return rows, err
}

// LatestArticles lists published articles newest first, optionally filtered
// to category slugs and excluding specific ids.
func (s *PgStore) LatestArticles(ctx context.Context, categories []string, excludeIDs []string, limit int) ([]*models.Article, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows := []*models.Article{}
	query := `SELECT` + articleCols + articleJoins + ` WHERE a.is_published`
	args := []interface{}{}
	n := 1
	if len(categories) > 0 {
		query += fmt.Sprintf(categoryFilter, n)
		args = append(args, pq.Array(categories))
		n++
	}
	if len(excludeIDs) > 0 {
		query += fmt.Sprintf(` AND a.id <> ALL($%d::uuid[])`, n)
		args = append(args, pq.Array(excludeIDs))
		n++
	}
	query += articleGroup + fmt.Sprintf(` ORDER BY a.published_at DESC LIMIT $%d`, n)
	args = append(args, limit)
	err := s.db.SelectContext(ctx, &rows, query, args...)
	return rows, err
}

// ListArticles pages published articles for the browse endpoints.
func (s *PgStore) ListArticles(ctx context.Context, category string, limit, offset int) ([]*models.Article, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows := []*models.Article{}
	query := `SELECT` + articleCols + articleJoins + ` WHERE a.is_published`
	args := []interface{}{}
	n := 1
	if category != "" {
		query += fmt.Sprintf(categoryFilter, n)
		args = append(args, pq.Array([]string{category}))
		n++
	}
	query += articleGroup + fmt.Sprintf(` ORDER BY a.published_at DESC LIMIT $%d OFFSET $%d`, n, n+1)
	args = append(args, limit, offset)
	err := s.db.SelectContext(ctx, &rows, query, args...)
	return rows, err
}

// SearchArticles matches the query against title, summary and content with a
// title hit ranked above body hits.
func (s *PgStore) SearchArticles(ctx context.Context, q string, limit int) ([]*models.Article, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	like := "%" + q + "%"
	rows := []*models.Article{}
	query := `SELECT` + articleCols + articleJoins + `
		WHERE a.is_published AND (a.title ILIKE $1 OR a.summary ILIKE $1 OR a.content ILIKE $1)` +
		articleGroup + `
		ORDER BY (CASE WHEN a.title ILIKE $1 THEN 1 ELSE 0 END) DESC, a.published_at DESC
		LIMIT $2`
	err := s.db.SelectContext(ctx, &rows, query, like, limit)
	return rows, err
}

// engagementJoin computes the weighted interaction score per article inside
// the window: views 1, likes 2, comments 2, shares 3.
const engagementJoin = `
	LEFT JOIN (
		SELECT article_id,
			SUM(CASE action
				WHEN 'view' THEN 1
				WHEN 'like' THEN 2
				WHEN 'comment' THEN 2
				WHEN 'share' THEN 3
				ELSE 0 END) AS score
		FROM user_interactions
		WHERE created_at >= $1
		GROUP BY article_id
	) e ON e.article_id = a.id`

// TrendingArticles ranks articles published inside the window by engagement.
// Pass an empty category for the global list.
func (s *PgStore) TrendingArticles(ctx context.Context, category string, window time.Duration, limit int) ([]*models.Article, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	since := time.Now().UTC().Add(-window)
	rows := []*models.Article{}
	query := `SELECT` + articleCols + `, COALESCE(e.score, 0) AS relevance_score` +
		articleJoins + engagementJoin + `
		WHERE a.is_published AND a.published_at >= $1 AND COALESCE(e.score, 0) > 0`
	args := []interface{}{since}
	if category != "" {
		query += fmt.Sprintf(categoryFilter, 2)
		args = append(args, pq.Array([]string{category}))
	}
	query += articleGroup + `, e.score
		ORDER BY relevance_score DESC, a.published_at DESC
		LIMIT $` + fmt.Sprint(len(args)+1)
	args = append(args, limit)
	err := s.db.SelectContext(ctx, &rows, query, args...)
	return rows, err
}

// BreakingArticles returns the newest articles in the window regardless of
// engagement, engagement only breaks ties.
func (s *PgStore) BreakingArticles(ctx context.Context, window time.Duration, limit int) ([]*models.Article, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	since := time.Now().UTC().Add(-window)
	rows := []*models.Article{}
	query := `SELECT` + articleCols + `, COALESCE(e.score, 0) AS relevance_score` +
		articleJoins + engagementJoin + `
		WHERE a.is_published AND a.published_at >= $1` +
		articleGroup + `, e.score
		ORDER BY a.published_at DESC, relevance_score DESC
		LIMIT $2`
	err := s.db.SelectContext(ctx, &rows, query, since, limit)
	return rows, err
}

// FreshArticles returns recent publications the viewer has not yet viewed.
func (s *PgStore) FreshArticles(ctx context.Context, categories []string, since time.Time, viewerID string, limit int) ([]*models.Article, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	rows := []*models.Article{}
	query := `SELECT` + articleCols + articleJoins + `
		WHERE a.is_published AND a.published_at >= $1`
	args := []interface{}{since}
	n := 2
	if len(categories) > 0 {
		query += fmt.Sprintf(categoryFilter, n)
		args = append(args, pq.Array(categories))
		n++
	}
	if viewerID != "" {
		query += fmt.Sprintf(` AND a.id NOT IN (
			SELECT article_id FROM user_interactions WHERE user_id = $%d AND action = 'view')`, n)
		args = append(args, viewerID)
		n++
	}
	query += articleGroup + fmt.Sprintf(` ORDER BY a.published_at DESC LIMIT $%d`, n)
	args = append(args, limit)
	err := s.db.SelectContext(ctx, &rows, query, args...)
	return rows, err
}

func (s *PgStore) IncrementViewCount(ctx context.Context, articleID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE articles SET view_count = view_count + 1 WHERE id = $1`, articleID)
	return err
}

func (s *PgStore) UpdateLLMSummary(ctx context.Context, articleID, summary string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE articles SET llm_summary = $1 WHERE id = $2`, summary, articleID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteArticlesOlderThan prunes unbookmarked, non-featured articles whose
// publish date fell behind the cutoff. Returns the number removed.
func (s *PgStore) DeleteArticlesOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM articles a
		WHERE a.published_at < $1
		  AND NOT a.is_featured
		  AND NOT EXISTS (SELECT 1 FROM bookmarks b WHERE b.article_id = a.id)`, cutoff)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
