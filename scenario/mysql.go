package scenario

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hairizuan-noorazman/desktop-automation/logger"
)

// MySQLStore implements the Store interface using GORM. Despite the
// name it works with any configured GORM dialector; the sqlite driver
// backs single-machine runner deployments.
type MySQLStore struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewMySQLStore creates a new GORM-backed scenario store.
func NewMySQLStore(db *gorm.DB, log logger.Logger) *MySQLStore {
	return &MySQLStore{
		db:     db,
		logger: log,
	}
}

// Create creates a new scenario in the database.
func (s *MySQLStore) Create(ctx context.Context, sc *Scenario) error {
	if err := sc.Validate(); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Create(sc).Error; err != nil {
		s.logger.Error(ctx, "failed to create scenario", map[string]interface{}{
			"error": err.Error(),
			"title": sc.Title,
		})
		return err
	}
	return nil
}

// GetByID retrieves a scenario by its ID.
func (s *MySQLStore) GetByID(ctx context.Context, id uuid.UUID) (*Scenario, error) {
	var sc Scenario
	err := s.db.WithContext(ctx).
		Where("id = ?", id).
		First(&sc).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScenarioNotFound
		}
		s.logger.Error(ctx, "failed to get scenario by ID", map[string]interface{}{
			"error":       err.Error(),
			"scenario_id": id.String(),
		})
		return nil, err
	}

	return &sc, nil
}

// List retrieves scenarios ordered by creation time. A non-positive
// limit lists everything.
func (s *MySQLStore) List(ctx context.Context, limit, offset int) ([]*Scenario, error) {
	if limit <= 0 {
		limit = -1
	}

	var scenarios []*Scenario
	err := s.db.WithContext(ctx).
		Order("created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&scenarios).Error

	if err != nil {
		s.logger.Error(ctx, "failed to list scenarios", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, err
	}

	return scenarios, nil
}

// Update applies the given setters to a scenario inside a transaction.
func (s *MySQLStore) Update(ctx context.Context, id uuid.UUID, setters ...UpdateSetter) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sc Scenario
		err := tx.Where("id = ?", id).First(&sc).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrScenarioNotFound
			}
			return err
		}

		for _, setter := range setters {
			if err := setter(&sc); err != nil {
				return err
			}
		}

		return tx.Save(&sc).Error
	})
}

// Delete removes a scenario.
func (s *MySQLStore) Delete(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&Scenario{})

	if result.Error != nil {
		s.logger.Error(ctx, "failed to delete scenario", map[string]interface{}{
			"error":       result.Error.Error(),
			"scenario_id": id.String(),
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrScenarioNotFound
	}
	return nil
}
