package hintimage

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrTooManyImages is returned when a scenario carries more hint
	// images than the oracle API accepts.
	ErrTooManyImages = errors.New("too many hint images")

	// ErrImageTooLarge is returned when a single hint image exceeds the
	// per-file size cap.
	ErrImageTooLarge = errors.New("hint image exceeds maximum size")

	// ErrTotalSizeExceeded is returned when the combined hint images
	// exceed the aggregate size cap.
	ErrTotalSizeExceeded = errors.New("hint images exceed maximum total size")

	// ErrUnsupportedMIMEType is returned for image formats the oracle
	// API does not accept.
	ErrUnsupportedMIMEType = errors.New("unsupported hint image MIME type")

	// ErrEmptyImage is returned when a hint image has no data.
	ErrEmptyImage = errors.New("hint image is empty")
)

// HintImage is one template image attached to a scenario, keyed by its
// original position so coordinate numbering stays stable.
type HintImage struct {
	Index    int
	FileName string
	MIMEType string
	Data     []byte
}

// ValidationLimits defines the oracle API constraints hint images are
// preflight-checked against.
type ValidationLimits struct {
	MaxCount         int
	MaxFileBytes     int
	MaxTotalBytes    int
	AllowedMIMETypes []string
}

// DefaultValidationLimits returns the fixed oracle API constraints.
func DefaultValidationLimits() ValidationLimits {
	return ValidationLimits{
		MaxCount:      20,
		MaxFileBytes:  5 * 1024 * 1024,
		MaxTotalBytes: 25 * 1024 * 1024,
		AllowedMIMETypes: []string{
			"image/png", "image/jpeg", "image/gif", "image/webp",
		},
	}
}

// ValidateSet checks a scenario's hint images against the API limits.
// Violations block scenario execution outright; images are never
// silently trimmed to fit.
func ValidateSet(images []HintImage, limits ValidationLimits) error {
	if len(images) > limits.MaxCount {
		return fmt.Errorf("%w: %d images (max %d)", ErrTooManyImages, len(images), limits.MaxCount)
	}

	total := 0
	for _, img := range images {
		if len(img.Data) == 0 {
			return fmt.Errorf("%w: %s", ErrEmptyImage, img.FileName)
		}
		if len(img.Data) > limits.MaxFileBytes {
			return fmt.Errorf("%w: %s is %d bytes (max %d)",
				ErrImageTooLarge, img.FileName, len(img.Data), limits.MaxFileBytes)
		}
		if !mimeAllowed(img.MIMEType, limits.AllowedMIMETypes) {
			return fmt.Errorf("%w: %s (%s)", ErrUnsupportedMIMEType, img.FileName, img.MIMEType)
		}
		total += len(img.Data)
	}

	if total > limits.MaxTotalBytes {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrTotalSizeExceeded, total, limits.MaxTotalBytes)
	}
	return nil
}

func mimeAllowed(mimeType string, allowed []string) bool {
	for _, a := range allowed {
		if mimeType == a {
			return true
		}
	}
	return false
}

// Matcher locates hint image templates within a screenshot. The concrete
// template-matching subsystem is an external collaborator.
type Matcher interface {
	Match(ctx context.Context, screenshot []byte, templates []HintImage, scaleFactor, threshold float64) ([]MatchResult, error)
}
