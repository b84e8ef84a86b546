package gitsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-git/go-git/v5"
	"go.uber.org/zap"
)

// Sync clones the repository at url into localPath if nothing is there yet,
// or pulls the latest changes if it is already a clone.
func Sync(ctx context.Context, logger *zap.Logger, url, localPath string, progress io.Writer) error {
	_, err := os.Stat(localPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.Info("cloning repository", zap.String("url", url), zap.String("path", localPath))
		_, err := git.PlainCloneContext(ctx, localPath, false, &git.CloneOptions{
			URL:      url,
			Progress: progress,
		})
		if err != nil {
			return fmt.Errorf("failed to clone repo %s: %w", url, err)
		}
		logger.Info("clone successful", zap.String("path", localPath))

	case err == nil:
		logger.Info("pulling latest changes", zap.String("path", localPath))
		repo, err := git.PlainOpen(localPath)
		if err != nil {
			return fmt.Errorf("failed to open existing repo at %s: %w", localPath, err)
		}

		worktree, err := repo.Worktree()
		if err != nil {
			return fmt.Errorf("failed to get worktree for repo at %s: %w", localPath, err)
		}

		err = worktree.PullContext(ctx, &git.PullOptions{
			RemoteName: "origin",
			Progress:   progress,
		})
		if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
			return fmt.Errorf("failed to pull changes for repo at %s: %w", localPath, err)
		}
		logger.Info("pull successful", zap.String("path", localPath), zap.Bool("up_to_date", err != nil))

	default:
		return fmt.Errorf("error checking path %s: %w", localPath, err)
	}

	return nil
}
