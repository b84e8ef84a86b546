package deck

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/conorfennell/spacedrep/internal/domain"
	"github.com/conorfennell/spacedrep/internal/knol"
	"github.com/conorfennell/spacedrep/internal/parser"
)

// Report summarises a sync run.
type Report struct {
	Sources  int
	Parsed   int
	Inserted int
	Orphaned int
	Errors   []error
}

func (r *Report) add(o Report) {
	r.Sources += o.Sources
	r.Parsed += o.Parsed
	r.Inserted += o.Inserted
	r.Orphaned += o.Orphaned
	r.Errors = append(r.Errors, o.Errors...)
}

// SyncAll reconciles every user's sources.
func (s *Syncer) SyncAll(ctx context.Context) (Report, error) {
	sources, err := s.store.AllSources(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("failed to get sources: %w", err)
	}
	return s.syncSources(ctx, sources)
}

// SyncUser reconciles one user's sources.
func (s *Syncer) SyncUser(ctx context.Context, userID string) (Report, error) {
	sources, err := s.store.ListSources(ctx, userID)
	if err != nil {
		return Report{}, fmt.Errorf("failed to get sources for %s: %w", userID, err)
	}
	return s.syncSources(ctx, sources)
}

func (s *Syncer) syncSources(ctx context.Context, sources []domain.Source) (Report, error) {
	var report Report
	if len(sources) == 0 {
		s.logger.Info("no sources configured")
		return report, nil
	}

	s.logger.Info("starting sync", zap.Int("sources", len(sources)))
	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		r, err := s.SyncSource(ctx, source)
		report.add(r)
		if err != nil {
			// One broken source must not stop the others.
			s.logger.Error("source sync failed", zap.Int64("source_id", source.ID), zap.String("path", source.Path), zap.Error(err))
			report.Errors = append(report.Errors, fmt.Errorf("source %d: %w", source.ID, err))
		}
	}
	s.logger.Info("sync complete",
		zap.Int("sources", report.Sources),
		zap.Int("parsed", report.Parsed),
		zap.Int("inserted", report.Inserted),
		zap.Int("orphaned", report.Orphaned),
		zap.Int("errors", len(report.Errors)),
	)
	return report, nil
}

// SyncSource brings one source up to date. Git sources are cloned or pulled
// first. New cards are inserted with a fresh schedule, cards that vanished
// from the files are deleted, and every other card keeps its schedule.
func (s *Syncer) SyncSource(ctx context.Context, source domain.Source) (Report, error) {
	dir := source.Path
	if source.Type == domain.SourceGit {
		localPath, err := gitURLToLocalPath(filepath.Join(s.reposDir, source.UserID), source.Path)
		if err != nil {
			return Report{}, err
		}
		if err := s.git(ctx, source.Path, localPath); err != nil {
			return Report{}, err
		}
		dir = localPath
	}
	return s.reconcile(ctx, source, dir)
}

func (s *Syncer) reconcile(ctx context.Context, source domain.Source, dir string) (Report, error) {
	report := Report{Sources: 1}
	found := make(map[string]bool)
	log := s.logger.With(zap.Int64("source_id", source.ID), zap.String("user_id", source.UserID))

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}

		cards, parseErr := parser.ParseFile(path)
		if parseErr != nil {
			report.Errors = append(report.Errors, fmt.Errorf("parsing %s: %w", path, parseErr))
		}
		for _, card := range cards {
			report.Parsed++
			inserted, err := s.importCard(ctx, source, card, found)
			if err != nil {
				report.Errors = append(report.Errors, err)
				continue
			}
			if inserted {
				report.Inserted++
				log.Debug("new card found, inserted", zap.String("file", path))
			}
		}
		return nil
	})
	if walkErr != nil {
		return report, fmt.Errorf("walking %s: %w", dir, walkErr)
	}

	stored, err := s.store.ListBySource(ctx, source.ID)
	if err != nil {
		return report, fmt.Errorf("listing cards of source %d: %w", source.ID, err)
	}
	for _, card := range stored {
		if found[card.Hash] {
			continue
		}
		log.Info("orphaned card, deleting", zap.String("card_id", card.ID))
		if err := s.store.Delete(ctx, card.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			log.Warn("failed to delete orphaned card", zap.String("card_id", card.ID), zap.Error(err))
			report.Errors = append(report.Errors, err)
			continue
		}
		report.Orphaned++
	}

	if err := s.store.TouchSource(ctx, source.ID, s.now()); err != nil {
		log.Warn("failed to update last scanned", zap.Error(err))
	}

	log.Info("reconciliation complete",
		zap.String("path", dir),
		zap.Int("parsed_cards", report.Parsed),
		zap.Int("inserted", report.Inserted),
		zap.Int("orphaned_deleted", report.Orphaned),
		zap.Int("errors", len(report.Errors)),
	)
	return report, nil
}

// importCard inserts card unless the user already has the same content.
func (s *Syncer) importCard(ctx context.Context, source domain.Source, card domain.Card, found map[string]bool) (bool, error) {
	card.Hash = knol.Hash(card)
	found[card.Hash] = true

	existing, err := s.store.FindCardByHash(ctx, source.UserID, card.Hash)
	if err != nil {
		return false, fmt.Errorf("db check for %s: %w", card.Hash, err)
	}
	if existing != nil {
		return false, nil
	}

	now := s.now()
	card.ID = s.newID()
	card.UserID = source.UserID
	card.SourceID = sql.NullInt64{Int64: source.ID, Valid: true}
	card.CreatedAt = now
	card.CardState = domain.NewCardState(now)
	if err := s.store.InsertCard(ctx, card); err != nil {
		return false, fmt.Errorf("db insert for %s: %w", card.Hash, err)
	}
	return true, nil
}
