package actuator

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/hairizuan-noorazman/desktop-automation/action"
)

// ErrUnsupportedAction is returned when Perform is handed an action kind
// it cannot dispatch.
var ErrUnsupportedAction = errors.New("unsupported action kind")

// Screenshot is one capture of the screen together with the metadata
// needed to convert oracle coordinates back to physical ones.
type Screenshot struct {
	Image              []byte
	MediaType          string
	OriginalWidth      int
	OriginalHeight     int
	ResizedWidth       int
	ResizedHeight      int
	ScaleFactor        float64
	DisplayScaleFactor float64
	MonitorID          int
}

// ToPhysical converts a point from oracle (resized-image) space into the
// actuator's physical screen space.
func (s *Screenshot) ToPhysical(p action.Point) (int, int) {
	scale := s.ScaleFactor
	if scale <= 0 {
		scale = 1
	}
	display := s.DisplayScaleFactor
	if display <= 0 {
		display = 1
	}
	x := int(math.Round(float64(p.X) * scale / display))
	y := int(math.Round(float64(p.Y) * scale / display))
	return x, y
}

// Actuator is the native backend that performs input events and captures
// screenshots. Every primitive is fallible and returns a human-readable
// error on failure.
type Actuator interface {
	Capture(ctx context.Context) (*Screenshot, error)
	Click(ctx context.Context, x, y int, kind action.Kind) error
	Drag(ctx context.Context, x1, y1, x2, y2 int) error
	MouseMove(ctx context.Context, x, y int) error
	MouseButton(ctx context.Context, x, y int, down bool) error
	Type(ctx context.Context, text string) error
	Key(ctx context.Context, text string) error
	Scroll(ctx context.Context, x, y int, direction action.ScrollDirection, amount int) error
	Wait(ctx context.Context, ms int) (bool, error)
	HoldKey(ctx context.Context, name string, down bool) error
}

// Perform dispatches one proposed action to the actuator, converting
// coordinates from oracle space using the screenshot the action was
// proposed against. A screenshot action is a no-op here; the loop
// captures after every action regardless.
func Perform(ctx context.Context, act Actuator, a action.Action, screen *Screenshot) error {
	switch a.Kind {
	case action.KindScreenshot:
		return nil

	case action.KindLeftClick, action.KindRightClick, action.KindMiddleClick,
		action.KindDoubleClick, action.KindTripleClick:
		x, y := screen.ToPhysical(*a.Coordinate)
		return act.Click(ctx, x, y, a.Kind)

	case action.KindMouseMove:
		x, y := screen.ToPhysical(*a.Coordinate)
		return act.MouseMove(ctx, x, y)

	case action.KindLeftClickDrag:
		x1, y1 := screen.ToPhysical(*a.StartCoordinate)
		x2, y2 := screen.ToPhysical(*a.Coordinate)
		return act.Drag(ctx, x1, y1, x2, y2)

	case action.KindLeftMouseDown:
		x, y := screen.ToPhysical(*a.Coordinate)
		return act.MouseButton(ctx, x, y, true)

	case action.KindLeftMouseUp:
		x, y := screen.ToPhysical(*a.Coordinate)
		return act.MouseButton(ctx, x, y, false)

	case action.KindType:
		return act.Type(ctx, a.Text)

	case action.KindKey:
		return act.Key(ctx, a.KeyText())

	case action.KindScroll:
		x, y := screen.ToPhysical(*a.Coordinate)
		return act.Scroll(ctx, x, y, a.ScrollDirection, a.ScrollAmount)

	case action.KindWait:
		_, err := act.Wait(ctx, a.DurationMs)
		return err

	case action.KindHoldKey:
		return act.HoldKey(ctx, a.KeyText(), a.Down)

	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedAction, a.Kind)
	}
}
