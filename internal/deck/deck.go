// Package deck imports cards from markdown decks kept in local directories
// or git repositories and keeps them reconciled with storage.
package deck

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/conorfennell/spacedrep/internal/domain"
	"github.com/conorfennell/spacedrep/internal/gitsource"
)

// Store is the persistence the syncer needs.
type Store interface {
	InsertSource(ctx context.Context, userID, path string, typ domain.SourceType) (int64, error)
	ListSources(ctx context.Context, userID string) ([]domain.Source, error)
	AllSources(ctx context.Context) ([]domain.Source, error)
	DeleteSource(ctx context.Context, userID string, sourceID int64) error
	TouchSource(ctx context.Context, sourceID int64, now time.Time) error

	InsertCard(ctx context.Context, card domain.Card) error
	FindCardByHash(ctx context.Context, userID, hash string) (*domain.Card, error)
	ListBySource(ctx context.Context, sourceID int64) ([]domain.Card, error)
	Delete(ctx context.Context, id string) error
}

// GitFunc brings a clone of url at localPath up to date.
type GitFunc func(ctx context.Context, url, localPath string) error

// Syncer reconciles deck sources with stored cards.
type Syncer struct {
	store    Store
	reposDir string
	logger   *zap.Logger
	git      GitFunc
	now      func() time.Time
	newID    func() string
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithGit replaces the go-git backed clone/pull.
func WithGit(fn GitFunc) Option { return func(s *Syncer) { s.git = fn } }

// WithClock sets the clock used for new cards and scan times.
func WithClock(now func() time.Time) Option { return func(s *Syncer) { s.now = now } }

// WithProgress streams git clone and pull progress to w.
func WithProgress(w io.Writer) Option {
	return func(s *Syncer) {
		s.git = func(ctx context.Context, url, localPath string) error {
			return gitsource.Sync(ctx, s.logger, url, localPath, w)
		}
	}
}

// NewSyncer creates a Syncer that clones git sources below reposDir.
func NewSyncer(store Store, reposDir string, logger *zap.Logger, opts ...Option) *Syncer {
	s := &Syncer{
		store:    store,
		reposDir: reposDir,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	s.git = func(ctx context.Context, url, localPath string) error {
		return gitsource.Sync(ctx, s.logger, url, localPath, nil)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DetectSourceType guesses whether path names a git remote or a local
// directory.
func DetectSourceType(path string) domain.SourceType {
	if strings.HasSuffix(path, ".git") || strings.HasPrefix(path, "git@") ||
		strings.HasPrefix(path, "https://") || strings.HasPrefix(path, "http://") {
		return domain.SourceGit
	}
	return domain.SourceLocal
}

// AddSource registers path as a deck source for the user. Local paths are
// stored as absolute paths.
func (s *Syncer) AddSource(ctx context.Context, userID, path string) (domain.Source, error) {
	path = strings.TrimSpace(path)
	if userID == "" || path == "" {
		return domain.Source{}, fmt.Errorf("%w: user and path are required", domain.ErrInvalidInput)
	}

	typ := DetectSourceType(path)
	if typ == domain.SourceLocal {
		abs, err := filepath.Abs(path)
		if err != nil {
			return domain.Source{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
		path = abs
	}

	id, err := s.store.InsertSource(ctx, userID, path, typ)
	if err != nil {
		return domain.Source{}, err
	}
	s.logger.Info("source added", zap.String("user_id", userID), zap.Int64("source_id", id),
		zap.String("type", string(typ)), zap.String("path", path))
	return domain.Source{ID: id, UserID: userID, Path: path, Type: typ}, nil
}

// Sources lists the user's sources.
func (s *Syncer) Sources(ctx context.Context, userID string) ([]domain.Source, error) {
	return s.store.ListSources(ctx, userID)
}

// RemoveSource deletes a source and every card imported from it.
func (s *Syncer) RemoveSource(ctx context.Context, userID string, sourceID int64) error {
	if err := s.store.DeleteSource(ctx, userID, sourceID); err != nil {
		return err
	}
	s.logger.Info("source removed", zap.String("user_id", userID), zap.Int64("source_id", sourceID))
	return nil
}

// gitURLToLocalPath maps a remote URL onto a directory below baseDir, e.g.
// git@github.com:me/deck.git -> baseDir/github.com/me/deck.
func gitURLToLocalPath(baseDir, repoURL string) (string, error) {
	parsedURL, err := url.Parse(repoURL)
	if err != nil || (parsedURL.Scheme != "https" && parsedURL.Scheme != "http") {
		// scp-like syntax: user@host:path
		if at := strings.Index(repoURL, "@"); at >= 0 {
			host, repoPath, ok := strings.Cut(repoURL[at+1:], ":")
			if ok && host != "" && repoPath != "" {
				return safeJoin(baseDir, host, strings.TrimSuffix(repoPath, ".git"))
			}
		}
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}

	return safeJoin(baseDir, parsedURL.Host, strings.TrimSuffix(parsedURL.Path, ".git"))
}

func safeJoin(baseDir string, parts ...string) (string, error) {
	joined := filepath.Join(append([]string{baseDir}, parts...)...)
	rel, err := filepath.Rel(baseDir, joined)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("git URL escapes the repos directory: %s", filepath.Join(parts...))
	}
	return joined, nil
}
