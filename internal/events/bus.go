// Package events implements the synchronous, typed publish/subscribe bus the
// scraper reports through.
package events

import (
	"errors"
	"fmt"
	"sync"

	"github.com/resume-rag/jobscraper/internal/domain"
)

// Kind names an event.
type Kind string

const (
	Data           Kind = "scraper:data"
	DataFile       Kind = "scraper:datafile"
	Metrics        Kind = "scraper:metrics"
	Error          Kind = "scraper:error"
	InvalidSession Kind = "scraper:invalid-session"
	Begin          Kind = "scraper:begin"
	End            Kind = "scraper:end"
)

// Kinds lists every known event kind.
var Kinds = []Kind{Data, DataFile, Metrics, Error, InvalidSession, Begin, End}

// ErrListenerShape is returned when a listener does not match the payload of its kind.
var ErrListenerShape = errors.New("listener does not match event payload")

// ErrUnknownKind is returned for kinds outside Kinds.
var ErrUnknownKind = errors.New("unknown event kind")

// CallbackError wraps a failure raised by a listener during Emit.
type CallbackError struct {
	Kind Kind
	Err  error
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("%s listener failed: %v", e.Kind, e.Err)
}

func (e *CallbackError) Unwrap() error { return e.Err }

// ListenerID identifies a subscription.
type ListenerID uint64

type listener struct {
	id   ListenerID
	once bool
	call func(args []any) error
}

// Bus dispatches events to listeners in registration order on the emitting goroutine.
type Bus struct {
	mu        sync.Mutex
	nextID    ListenerID
	listeners map[Kind][]listener
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{listeners: make(map[Kind][]listener)}
}

// On registers listener for kind. The listener's signature must match the
// kind's payload:
//
//	Data, DataFile:           func(domain.EventData) [error]
//	Metrics:                  func(domain.EventMetrics) [error]
//	Error:                    func(string) [error]
//	Begin, End, InvalidSession: func() [error]
func (b *Bus) On(kind Kind, fn any) (ListenerID, error) {
	return b.subscribe(kind, fn, false)
}

// Once registers a listener that is removed after its first delivery.
func (b *Bus) Once(kind Kind, fn any) (ListenerID, error) {
	return b.subscribe(kind, fn, true)
}

func (b *Bus) subscribe(kind Kind, fn any, once bool) (ListenerID, error) {
	call, err := adapt(kind, fn)
	if err != nil {
		return 0, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.listeners[kind] = append(b.listeners[kind], listener{id: b.nextID, once: once, call: call})
	return b.nextID, nil
}

// Off removes one listener. It reports whether the listener was registered.
func (b *Bus) Off(kind Kind, id ListenerID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	ls := b.listeners[kind]
	for i, l := range ls {
		if l.id == id {
			b.listeners[kind] = append(ls[:i:i], ls[i+1:]...)
			return true
		}
	}
	return false
}

// OffAll removes every listener of kind.
func (b *Bus) OffAll(kind Kind) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.listeners, kind)
}

// Count returns the number of listeners registered for kind.
func (b *Bus) Count(kind Kind) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners[kind])
}

// Emit delivers args to every listener of kind. The first listener failure
// stops delivery and is returned as a *CallbackError. A once listener is
// detached right before it is called, so one that delivery never reached
// stays registered.
func (b *Bus) Emit(kind Kind, args ...any) error {
	if err := checkArgs(kind, args); err != nil {
		return err
	}

	b.mu.Lock()
	snapshot := append([]listener(nil), b.listeners[kind]...)
	b.mu.Unlock()

	for _, l := range snapshot {
		// Another emitter claimed it first.
		if l.once && !b.Off(kind, l.id) {
			continue
		}
		if err := invoke(l, args); err != nil {
			return &CallbackError{Kind: kind, Err: err}
		}
	}
	return nil
}

func invoke(l listener, args []any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return l.call(args)
}

func adapt(kind Kind, fn any) (func([]any) error, error) {
	if fn == nil {
		return nil, fmt.Errorf("%w: nil listener for %s", ErrListenerShape, kind)
	}
	switch kind {
	case Data, DataFile:
		switch f := fn.(type) {
		case func(domain.EventData):
			return func(a []any) error { f(a[0].(domain.EventData)); return nil }, nil
		case func(domain.EventData) error:
			return func(a []any) error { return f(a[0].(domain.EventData)) }, nil
		}
	case Metrics:
		switch f := fn.(type) {
		case func(domain.EventMetrics):
			return func(a []any) error { f(a[0].(domain.EventMetrics)); return nil }, nil
		case func(domain.EventMetrics) error:
			return func(a []any) error { return f(a[0].(domain.EventMetrics)) }, nil
		}
	case Error:
		switch f := fn.(type) {
		case func(string):
			return func(a []any) error { f(a[0].(string)); return nil }, nil
		case func(string) error:
			return func(a []any) error { return f(a[0].(string)) }, nil
		}
	case Begin, End, InvalidSession:
		switch f := fn.(type) {
		case func():
			return func([]any) error { f(); return nil }, nil
		case func() error:
			return func([]any) error { return f() }, nil
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return nil, fmt.Errorf("%w: %s does not accept %T", ErrListenerShape, kind, fn)
}

func checkArgs(kind Kind, args []any) error {
	var ok bool
	switch kind {
	case Data, DataFile:
		if len(args) == 1 {
			_, ok = args[0].(domain.EventData)
		}
	case Metrics:
		if len(args) == 1 {
			_, ok = args[0].(domain.EventMetrics)
		}
	case Error:
		if len(args) == 1 {
			_, ok = args[0].(string)
		}
	case Begin, End, InvalidSession:
		ok = len(args) == 0
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if !ok {
		return fmt.Errorf("emit %s: unexpected payload %v", kind, args)
	}
	return nil
}
