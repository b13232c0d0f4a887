package cart

import "time"

// cartState implements the state pattern for the open -> closed lifecycle.
type cartState interface {
	Status() Status
	OnMutate(c *Cart) error
	OnPlace(c *Cart, branch string, at time.Time) (cartState, error)
}

func (c *Cart) state() cartState {
	switch c.Status {
	case StatusOpen:
		return openState{}
	case StatusClosed:
		return closedState{}
	default:
		return unknownState{}
	}
}

type openState struct{}

func (openState) Status() Status { return StatusOpen }

func (openState) OnMutate(*Cart) error { return nil }

func (openState) OnPlace(c *Cart, branch string, at time.Time) (cartState, error) {
	if len(c.Lines) == 0 {
		return nil, ErrEmpty
	}
	c.Branch = branch
	c.PlacedAt = at
	return closedState{}, nil
}

type closedState struct{}

func (closedState) Status() Status { return StatusClosed }

func (closedState) OnMutate(*Cart) error { return ErrClosed }

func (closedState) OnPlace(*Cart, string, time.Time) (cartState, error) {
	return nil, ErrClosed
}

type unknownState struct{}

func (unknownState) Status() Status { return "" }

func (unknownState) OnMutate(*Cart) error { return ErrInvalidStateTransition }

func (unknownState) OnPlace(*Cart, string, time.Time) (cartState, error) {
	return nil, ErrInvalidStateTransition
}
