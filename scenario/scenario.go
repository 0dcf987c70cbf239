package scenario

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrScenarioNotFound is returned when a scenario is not found.
	ErrScenarioNotFound = errors.New("scenario not found")

	// ErrInvalidTitle is returned when a scenario title is empty.
	ErrInvalidTitle = errors.New("scenario title is required")

	// ErrInvalidDescription is returned when a scenario description is empty.
	ErrInvalidDescription = errors.New("scenario description is required")

	// ErrInvalidStatus is returned when status is invalid.
	ErrInvalidStatus = errors.New("invalid scenario status")

	// ErrScenarioNotRunning is returned when trying to complete a
	// scenario that is not running.
	ErrScenarioNotRunning = errors.New("scenario is not running")
)

// Status represents the lifecycle status of a scenario.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusStopped   Status = "stopped"
	StatusSkipped   Status = "skipped"
)

// IsValid checks if the status is valid.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed, StatusStopped, StatusSkipped:
		return true
	}
	return false
}

// IsFinal checks if the status is terminal.
func (s Status) IsFinal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusStopped, StatusSkipped:
		return true
	}
	return false
}

// HintImageRef points at one hint image attached to a scenario. The
// image bytes live in blob storage; Position preserves the attachment
// order that coordinate numbering is keyed on.
type HintImageRef struct {
	Position int    `json:"position"`
	FileName string `json:"file_name"`
	MIMEType string `json:"mime_type"`
	Path     string `json:"path"`
}

// HintImageRefs is the ordered hint image list, stored as a JSON column.
type HintImageRefs []HintImageRef

// Value implements the driver.Valuer interface for database storage.
func (h HintImageRefs) Value() (driver.Value, error) {
	if h == nil {
		return nil, nil
	}
	return json.Marshal(h)
}

// Scan implements the sql.Scanner interface for database retrieval.
func (h *HintImageRefs) Scan(value interface{}) error {
	if value == nil {
		*h = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan HintImageRefs: not a byte slice")
	}

	return json.Unmarshal(bytes, h)
}

// Scenario is one natural-language UI test scenario.
type Scenario struct {
	ID          uuid.UUID     `json:"id" gorm:"type:char(36);primaryKey"`
	Title       string        `json:"title" gorm:"not null"`
	Description string        `json:"description" gorm:"type:text;not null"`
	Status      Status        `json:"status" gorm:"type:varchar(20);not null;default:'pending';index:idx_status"`
	HintImages  HintImageRefs `json:"hint_images" gorm:"type:json"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// BeforeCreate hook to generate UUID before creating a new scenario
func (s *Scenario) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Validate checks if the scenario has valid required fields.
func (s *Scenario) Validate() error {
	if s.Title == "" {
		return ErrInvalidTitle
	}
	if s.Description == "" {
		return ErrInvalidDescription
	}
	if !s.Status.IsValid() {
		return ErrInvalidStatus
	}
	return nil
}
