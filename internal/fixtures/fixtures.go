package fixtures

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"newsflow/pkg/models"
)

// Store is what the loader needs from persistence. Fixture records carry
// explicit ids so references between files resolve without lookups.
type Store interface {
	CreateCategory(ctx context.Context, c *models.Category) error
	CreateSource(ctx context.Context, src *models.Source) error
	CreateUser(ctx context.Context, u *models.User) error
	SaveProfile(ctx context.Context, p *models.Profile) error
	SaveArticles(ctx context.Context, articles []*models.Article) error
	RecordInteraction(ctx context.Context, in *models.Interaction) error
	SavePreference(ctx context.Context, p *models.Preference) error
}

type Loader struct {
	store Store
}

func NewLoader(store Store) *Loader {
	return &Loader{store: store}
}

// Load reads the fixture files from dir in dependency order. A missing file
// is skipped; a bad record is logged and the rest of the file still loads.
func (l *Loader) Load(ctx context.Context, dir string) error {
	if err := loadFile(dir, "categories.json", func(c *models.Category) error {
		return l.store.CreateCategory(ctx, c)
	}); err != nil {
		return err
	}
	if err := loadFile(dir, "sources.json", func(s *models.Source) error {
		return l.store.CreateSource(ctx, s)
	}); err != nil {
		return err
	}
	if err := loadFile(dir, "users.json", func(u *models.User) error {
		u.IsActive = true
		return l.store.CreateUser(ctx, u)
	}); err != nil {
		return err
	}
	if err := loadFile(dir, "profiles.json", func(p *models.Profile) error {
		return l.store.SaveProfile(ctx, p)
	}); err != nil {
		return err
	}
	if err := l.loadArticles(ctx, dir); err != nil {
		return err
	}
	if err := loadFile(dir, "interactions.json", func(in *models.Interaction) error {
		return l.store.RecordInteraction(ctx, in)
	}); err != nil {
		return err
	}
	return loadFile(dir, "preferences.json", func(p *models.Preference) error {
		return l.store.SavePreference(ctx, p)
	})
}

// loadArticles saves articles as one batch so category links land in the
// same transaction.
func (l *Loader) loadArticles(ctx context.Context, dir string) error {
	articles, err := readRecords[*models.Article](dir, "articles.json")
	if err != nil {
		return err
	}
	if articles == nil {
		return nil
	}
	if err := l.store.SaveArticles(ctx, articles); err != nil {
		return fmt.Errorf("load articles.json: %w", err)
	}
	log.Printf("fixtures: loaded %d records from articles.json", len(articles))
	return nil
}

func loadFile[T any](dir, name string, insert func(T) error) error {
	records, err := readRecords[T](dir, name)
	if err != nil {
		return err
	}
	if records == nil {
		return nil
	}
	loaded := 0
	for i, rec := range records {
		if err := insert(rec); err != nil {
			log.Printf("fixtures: %s record %d skipped: %v", name, i, err)
			continue
		}
		loaded++
	}
	log.Printf("fixtures: loaded %d/%d records from %s", loaded, len(records), name)
	return nil
}

// readRecords returns nil with no error when the file does not exist.
func readRecords[T any](dir, name string) ([]T, error) {
	raw, err := os.ReadFile(filepath.Join(dir, name))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", name, err)
	}
	var records []T
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", name, err)
	}
	return records, nil
}
