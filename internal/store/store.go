// Package store persists generation runs.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Conceptual-Machines/melody-api/internal/models"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// ErrNotFound is returned when no run has the requested id
var ErrNotFound = errors.New("generation run not found")

// Store reads and writes generation runs
type Store struct {
	db *gorm.DB
}

// New creates a store on db
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// ListOptions filters and pages List
type ListOptions struct {
	GeneratorID string
	Limit       int
	Offset      int
}

// Create inserts run, assigning an id when it has none
func (s *Store) Create(ctx context.Context, run *models.GenerationRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("create generation run: %w", err)
	}
	return nil
}

// Get returns the run with id
func (s *Store) Get(ctx context.Context, id string) (*models.GenerationRun, error) {
	var run models.GenerationRun
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get generation run: %w", err)
	}
	return &run, nil
}

// List returns runs newest first
func (s *Store) List(ctx context.Context, opts ListOptions) ([]models.GenerationRun, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)

	query := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Offset(max(opts.Offset, 0))
	if opts.GeneratorID != "" {
		query = query.Where("generator_id = ?", opts.GeneratorID)
	}

	var runs []models.GenerationRun
	if err := query.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("list generation runs: %w", err)
	}
	return runs, nil
}

// Delete soft-deletes the run with id
func (s *Store) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.GenerationRun{})
	if res.Error != nil {
		return fmt.Errorf("delete generation run: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
