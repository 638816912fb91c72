package domain

import (
	"fmt"
	"sync"
)

// EventKind is the kind of book mutation an Event carries
type EventKind int

const (
	EventAdd EventKind = iota
	EventCancel
	EventModify
	EventFill
)

// String implements fmt.Stringer
func (k EventKind) String() string {
	switch k {
	case EventAdd:
		return "add"
	case EventCancel:
		return "cancel"
	case EventModify:
		return "modify"
	case EventFill:
		return "fill"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is a decoded book update handed in by the feed.
// Side and Price are only meaningful for EventAdd; Size is the new size
// for EventModify and the executed quantity for EventFill.
type Event struct {
	Kind    EventKind
	OrderID OrderID
	Side    Side
	Price   Price
	Size    Size
}

var eventPool = sync.Pool{
	New: func() any {
		return &Event{}
	},
}

func newEvent(kind EventKind, id OrderID) *Event {
	ev := eventPool.Get().(*Event)
	ev.Kind = kind
	ev.OrderID = id
	return ev
}

// NewAddEvent creates an add event from the pool
func NewAddEvent(id OrderID, side Side, price Price, size Size) *Event {
	ev := newEvent(EventAdd, id)
	ev.Side = side
	ev.Price = price
	ev.Size = size
	return ev
}

// NewCancelEvent creates a cancel event from the pool
func NewCancelEvent(id OrderID) *Event {
	return newEvent(EventCancel, id)
}

// NewModifyEvent creates a resize event from the pool
func NewModifyEvent(id OrderID, newSize Size) *Event {
	ev := newEvent(EventModify, id)
	ev.Size = newSize
	return ev
}

// NewFillEvent creates a fill event from the pool
func NewFillEvent(id OrderID, fillSize Size) *Event {
	ev := newEvent(EventFill, id)
	ev.Size = fillSize
	return ev
}

// Destroy returns the event to the pool. The event must not be used afterwards.
func (e *Event) Destroy() {
	e.Reset()
	eventPool.Put(e)
}

func (e *Event) Reset() {
	*e = Event{}
}
