package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/isdelr/notebook-be/internal/common"
	"github.com/isdelr/notebook-be/internal/models"
	"github.com/isdelr/notebook-be/internal/store"
	"github.com/rs/zerolog/log"
)

// NotebookInput carries the client-editable notebook fields. Nil fields are left untouched.
type NotebookInput struct {
	Title *string        `json:"title"`
	Cells *[]models.Cell `json:"cells"`
}

// NotebookServiceProvider defines the interface for notebook services.
type NotebookServiceProvider interface {
	List(ctx context.Context, userID string) ([]models.Notebook, error)
	Create(ctx context.Context, userID string, in NotebookInput) (models.Notebook, error)
	Get(ctx context.Context, userID, id string) (models.Notebook, error)
	Update(ctx context.Context, userID, id string, in NotebookInput) (models.Notebook, error)
	MigrateProfiles(ctx context.Context) (int, error)
}

// NotebookService manages the notebooks embedded in user profiles.
type NotebookService struct {
	store store.Store
	now   func() time.Time
}

// NewNotebookService creates a new NotebookService. A nil clock means time.Now.
func NewNotebookService(st store.Store, now func() time.Time) *NotebookService {
	return &NotebookService{store: st, now: clockOrDefault(now)}
}

// List returns the user's notebooks, newest first.
func (s *NotebookService) List(ctx context.Context, userID string) ([]models.Notebook, error) {
	var notebooks []models.Notebook
	err := s.withUser(ctx, userID, func(u *models.User) (bool, error) {
		notebooks = append([]models.Notebook(nil), u.Profile.Notebooks...)
		return false, nil
	})
	return notebooks, err
}

// Create adds a notebook at the head of the user's list.
func (s *NotebookService) Create(ctx context.Context, userID string, in NotebookInput) (models.Notebook, error) {
	now := models.NewTimestamp(s.now())
	nb := models.Notebook{
		ID:        models.NewID(models.NotebookIDPrefix),
		Title:     models.DefaultNotebookTitle,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.Title != nil && strings.TrimSpace(*in.Title) != "" {
		nb.Title = *in.Title
	}
	if in.Cells != nil && len(*in.Cells) > 0 {
		cells, err := prepareCells(*in.Cells)
		if err != nil {
			return models.Notebook{}, err
		}
		nb.Cells = cells
	} else {
		nb.Cells = []models.Cell{models.DefaultCell()}
	}

	err := s.withUser(ctx, userID, func(u *models.User) (bool, error) {
		u.Profile.Notebooks = append([]models.Notebook{nb}, u.Profile.Notebooks...)
		return true, nil
	})
	if err != nil {
		return models.Notebook{}, err
	}
	return nb, nil
}

// Get returns one of the user's notebooks.
func (s *NotebookService) Get(ctx context.Context, userID, id string) (models.Notebook, error) {
	var nb models.Notebook
	err := s.withUser(ctx, userID, func(u *models.User) (bool, error) {
		i := indexOfNotebook(u.Profile.Notebooks, id)
		if i < 0 {
			return false, fmt.Errorf("%w: no notebook with id %s", common.ErrNotFound, id)
		}
		nb = u.Profile.Notebooks[i]
		return false, nil
	})
	return nb, err
}

// Update replaces the provided fields of a notebook and bumps its updatedAt.
func (s *NotebookService) Update(ctx context.Context, userID, id string, in NotebookInput) (models.Notebook, error) {
	var cells []models.Cell
	if in.Cells != nil {
		var err error
		if cells, err = prepareCells(*in.Cells); err != nil {
			return models.Notebook{}, err
		}
	}

	var nb models.Notebook
	err := s.withUser(ctx, userID, func(u *models.User) (bool, error) {
		i := indexOfNotebook(u.Profile.Notebooks, id)
		if i < 0 {
			return false, fmt.Errorf("%w: no notebook with id %s", common.ErrNotFound, id)
		}
		target := &u.Profile.Notebooks[i]
		if in.Title != nil {
			target.Title = *in.Title
		}
		if in.Cells != nil {
			target.Cells = cells
		}
		target.UpdatedAt = nextUpdatedAt(target.UpdatedAt, s.now())
		nb = *target
		return true, nil
	})
	if err != nil {
		return models.Notebook{}, err
	}
	return nb, nil
}

// MigrateProfiles repairs every stored profile and returns how many users changed.
func (s *NotebookService) MigrateProfiles(ctx context.Context) (int, error) {
	changed := 0
	err := s.store.Users().Update(ctx, func(users []models.User) ([]models.User, error) {
		now := s.now()
		for i := range users {
			if models.NormalizeUser(&users[i], now) {
				changed++
			}
		}
		if changed == 0 {
			return nil, errUnchanged
		}
		return users, nil
	})
	if err = ignoreUnchanged(err); err != nil {
		return 0, fmt.Errorf("failed to migrate profiles: %w", err)
	}
	if changed > 0 {
		log.Info().Int("users", changed).Msg("Repaired user profiles")
	}
	return changed, nil
}

// withUser runs fn on a normalized user record under the users lock.
// The record is persisted when fn or normalization modified it.
func (s *NotebookService) withUser(ctx context.Context, userID string, fn func(u *models.User) (bool, error)) error {
	err := s.store.Users().Update(ctx, func(users []models.User) ([]models.User, error) {
		for i := range users {
			if users[i].ID != userID {
				continue
			}
			repaired := models.NormalizeUser(&users[i], s.now())
			modified, err := fn(&users[i])
			if err != nil {
				return nil, err
			}
			if !repaired && !modified {
				return nil, errUnchanged
			}
			return users, nil
		}
		return nil, fmt.Errorf("%w: no user with id %s", common.ErrNotFound, userID)
	})
	return ignoreUnchanged(err)
}

// prepareCells canonicalizes languages and assigns missing or duplicate cell ids.
func prepareCells(in []models.Cell) ([]models.Cell, error) {
	cells := make([]models.Cell, len(in))
	for i, c := range in {
		lang, ok := models.ParseLanguage(string(c.Language))
		if !ok {
			return nil, fmt.Errorf("%w: cell %d has unsupported language %q", common.ErrValidation, i, c.Language)
		}
		c.Language = lang
		cells[i] = c
	}
	models.AssignCellIDs(cells)
	return cells, nil
}

func indexOfNotebook(notebooks []models.Notebook, id string) int {
	for i := range notebooks {
		if notebooks[i].ID == id {
			return i
		}
	}
	return -1
}

// nextUpdatedAt returns now, or prev+1ms when the clock has not moved past prev.
func nextUpdatedAt(prev models.Timestamp, now time.Time) models.Timestamp {
	ts := models.NewTimestamp(now)
	if floor := prev.Add(time.Millisecond); !prev.IsZero() && ts.Before(floor) {
		return models.NewTimestamp(floor)
	}
	return ts
}
