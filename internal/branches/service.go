package branches

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/duriyam/operate/internal/shared"
)

// Selection is the user's branch list plus the resolved current branch.
type Selection struct {
	Branches []Branch `json:"branches"`
	Current  *Branch  `json:"current"`
}

// Service resolves and changes the active branch.
type Service struct {
	repo   Repository
	prefs  PreferenceStore
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, prefs PreferenceStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, prefs: prefs, logger: logger}
}

// List returns the user's branches.
func (s *Service) List(ctx context.Context, userID string) ([]Branch, error) {
	branches, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if branches == nil {
		branches = []Branch{}
	}
	return branches, nil
}

// Current resolves the active branch without touching the stored preference.
// A failing preference store degrades to the primary/first fallback.
func (s *Service) Current(ctx context.Context, userID string) (Selection, error) {
	branches, err := s.List(ctx, userID)
	if err != nil {
		return Selection{}, err
	}
	stored, err := s.prefs.Selected(ctx, userID)
	if err != nil {
		s.logger.Warn("branch preference read", slog.String("user_id", userID), slog.Any("error", err))
		stored = nil
	}
	return Selection{Branches: branches, Current: Resolve(stored, branches)}, nil
}

// Select stores an explicit choice. Branches the user cannot see are rejected.
func (s *Service) Select(ctx context.Context, userID, branchID string) (Selection, error) {
	branches, err := s.List(ctx, userID)
	if err != nil {
		return Selection{}, err
	}
	chosen := find(branches, branchID)
	if chosen == nil {
		return Selection{}, fmt.Errorf("branch %q: %w", branchID, shared.ErrNotFound)
	}
	if err := s.prefs.Save(ctx, userID, branchID); err != nil {
		return Selection{}, err
	}
	return Selection{Branches: branches, Current: chosen}, nil
}

// Refresh re-reads the branch list and drops a stored selection that no
// longer matches any branch.
func (s *Service) Refresh(ctx context.Context, userID string) (Selection, error) {
	branches, err := s.List(ctx, userID)
	if err != nil {
		return Selection{}, err
	}
	stored, err := s.prefs.Selected(ctx, userID)
	if err != nil {
		return Selection{}, err
	}
	if stored != nil && find(branches, *stored) == nil {
		if err := s.prefs.Clear(ctx, userID); err != nil {
			return Selection{}, err
		}
		s.logger.Info("stale branch selection cleared", slog.String("user_id", userID), slog.String("branch_id", *stored))
		stored = nil
	}
	return Selection{Branches: branches, Current: Resolve(stored, branches)}, nil
}
