package action

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"
)

var (
	// ErrInvalidKind is returned when an action kind is not recognised.
	ErrInvalidKind = errors.New("invalid action kind")

	// ErrMissingCoordinate is returned when a pointer action has no coordinate.
	ErrMissingCoordinate = errors.New("coordinate is required")

	// ErrMissingText is returned when a text-carrying action has no text.
	ErrMissingText = errors.New("text is required")

	// ErrInvalidScroll is returned when scroll parameters are invalid.
	ErrInvalidScroll = errors.New("invalid scroll parameters")
)

// Kind identifies one of the closed set of computer action variants.
type Kind string

const (
	KindScreenshot    Kind = "screenshot"
	KindLeftClick     Kind = "left_click"
	KindRightClick    Kind = "right_click"
	KindMiddleClick   Kind = "middle_click"
	KindDoubleClick   Kind = "double_click"
	KindTripleClick   Kind = "triple_click"
	KindMouseMove     Kind = "mouse_move"
	KindLeftClickDrag Kind = "left_click_drag"
	KindLeftMouseDown Kind = "left_mouse_down"
	KindLeftMouseUp   Kind = "left_mouse_up"
	KindType          Kind = "type"
	KindKey           Kind = "key"
	KindScroll        Kind = "scroll"
	KindWait          Kind = "wait"
	KindHoldKey       Kind = "hold_key"
)

// KindGenericClick is the wildcard kind used by expected actions that
// accept any click variant. It is never a valid kind for an actual action.
const KindGenericClick = "click"

// IsValid checks if the kind is one of the known action variants.
func (k Kind) IsValid() bool {
	switch k {
	case KindScreenshot, KindLeftClick, KindRightClick, KindMiddleClick,
		KindDoubleClick, KindTripleClick, KindMouseMove, KindLeftClickDrag,
		KindLeftMouseDown, KindLeftMouseUp, KindType, KindKey, KindScroll,
		KindWait, KindHoldKey:
		return true
	}
	return false
}

// IsProgressive reports whether the kind is expected to visibly change
// the screen. Wait, screenshot, mouse_move and hold_key only observe or
// reposition; everything else acts on the UI.
func (k Kind) IsProgressive() bool {
	switch k {
	case KindWait, KindScreenshot, KindMouseMove, KindHoldKey:
		return false
	}
	return true
}

// IsSubtleChange reports whether the kind is progressive but may produce
// only a change too small for the screen-change detector to see, such as
// a focus ring or a text selection.
func (k Kind) IsSubtleChange() bool {
	return k == KindLeftClick || k == KindTripleClick
}

// IsClick reports whether the kind is one of the click variants covered
// by the generic "click" wildcard.
func (k Kind) IsClick() bool {
	switch k {
	case KindLeftClick, KindRightClick, KindMiddleClick, KindDoubleClick, KindTripleClick:
		return true
	}
	return false
}

// ScrollDirection is the direction of a scroll action.
type ScrollDirection string

const (
	ScrollUp    ScrollDirection = "up"
	ScrollDown  ScrollDirection = "down"
	ScrollLeft  ScrollDirection = "left"
	ScrollRight ScrollDirection = "right"
)

// IsValid checks if the scroll direction is valid.
func (d ScrollDirection) IsValid() bool {
	switch d {
	case ScrollUp, ScrollDown, ScrollLeft, ScrollRight:
		return true
	}
	return false
}

// Point is a screen coordinate in oracle (resized screenshot) space.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Action is a single computer action proposed by the oracle. The Kind
// discriminates the variant; only the fields that variant needs are set.
type Action struct {
	Kind            Kind            `json:"action"`
	Coordinate      *Point          `json:"coordinate,omitempty"`
	StartCoordinate *Point          `json:"start_coordinate,omitempty"`
	Text            string          `json:"text,omitempty"`
	Key             string          `json:"key,omitempty"`
	ScrollDirection ScrollDirection `json:"scroll_direction,omitempty"`
	ScrollAmount    int             `json:"scroll_amount,omitempty"`
	DurationMs      int             `json:"duration_ms,omitempty"`
	Down            bool            `json:"down,omitempty"`
}

// Validate checks that the action carries the parameters its kind needs.
func (a Action) Validate() error {
	switch a.Kind {
	case KindScreenshot, KindWait:
		return nil
	case KindLeftClick, KindRightClick, KindMiddleClick, KindDoubleClick,
		KindTripleClick, KindMouseMove, KindLeftMouseDown, KindLeftMouseUp:
		if a.Coordinate == nil {
			return fmt.Errorf("%w: %s", ErrMissingCoordinate, a.Kind)
		}
		return nil
	case KindLeftClickDrag:
		if a.StartCoordinate == nil || a.Coordinate == nil {
			return fmt.Errorf("%w: %s needs start and end coordinates", ErrMissingCoordinate, a.Kind)
		}
		return nil
	case KindType:
		if a.Text == "" {
			return fmt.Errorf("%w: %s", ErrMissingText, a.Kind)
		}
		return nil
	case KindKey:
		if a.Text == "" && a.Key == "" {
			return fmt.Errorf("%w: %s", ErrMissingText, a.Kind)
		}
		return nil
	case KindHoldKey:
		if a.Key == "" {
			return fmt.Errorf("%w: %s", ErrMissingText, a.Kind)
		}
		return nil
	case KindScroll:
		if a.Coordinate == nil {
			return fmt.Errorf("%w: %s", ErrMissingCoordinate, a.Kind)
		}
		if !a.ScrollDirection.IsValid() {
			return fmt.Errorf("%w: direction %q", ErrInvalidScroll, a.ScrollDirection)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidKind, a.Kind)
	}
}

// KeyText returns the key sequence for key and hold_key actions,
// tolerating oracles that put it in either field.
func (a Action) KeyText() string {
	if a.Key != "" {
		return a.Key
	}
	return a.Text
}

// Describe returns a short human-readable summary used in logs, action
// history records and webhook payloads.
func (a Action) Describe() string {
	switch a.Kind {
	case KindType:
		text := a.Text
		if len(text) > 40 {
			text = text[:40] + "..."
		}
		return fmt.Sprintf("type %q", text)
	case KindKey:
		return fmt.Sprintf("press %q", a.KeyText())
	case KindHoldKey:
		if a.Down {
			return fmt.Sprintf("hold %q", a.KeyText())
		}
		return fmt.Sprintf("release %q", a.KeyText())
	case KindScroll:
		return fmt.Sprintf("scroll %s by %d", a.ScrollDirection, a.ScrollAmount)
	case KindWait:
		return fmt.Sprintf("wait %dms", a.DurationMs)
	case KindLeftClickDrag:
		return fmt.Sprintf("drag (%d,%d) to (%d,%d)",
			a.StartCoordinate.X, a.StartCoordinate.Y, a.Coordinate.X, a.Coordinate.Y)
	default:
		if a.Coordinate != nil {
			return fmt.Sprintf("%s at (%d,%d)", a.Kind, a.Coordinate.X, a.Coordinate.Y)
		}
		return string(a.Kind)
	}
}

// Hash returns a stable digest of the action kind and all of its
// parameters. Identical proposals hash identically, which is what the
// loop and stuck detectors key on.
func (a Action) Hash() string {
	var b strings.Builder
	b.WriteString(string(a.Kind))
	if a.Coordinate != nil {
		b.WriteString("|c:" + strconv.Itoa(a.Coordinate.X) + "," + strconv.Itoa(a.Coordinate.Y))
	}
	if a.StartCoordinate != nil {
		b.WriteString("|s:" + strconv.Itoa(a.StartCoordinate.X) + "," + strconv.Itoa(a.StartCoordinate.Y))
	}
	if a.Text != "" {
		b.WriteString("|t:" + a.Text)
	}
	if a.Key != "" {
		b.WriteString("|k:" + a.Key)
	}
	if a.ScrollDirection != "" {
		b.WriteString("|d:" + string(a.ScrollDirection) + ":" + strconv.Itoa(a.ScrollAmount))
	}
	if a.DurationMs != 0 {
		b.WriteString("|ms:" + strconv.Itoa(a.DurationMs))
	}
	if a.Down {
		b.WriteString("|down")
	}

	sum := blake2b.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:16])
}
