// Package handles mints opaque, generation-checked handles for values that
// are owned by callers on the other side of the C boundary.
//
// A Handle packs a slot index and a generation. Releasing a slot bumps its
// generation, so a handle that outlives its value is detected as stale
// instead of aliasing whatever occupies the slot next.
package handles

import (
	"sync"

	apperrors "github.com/kimhsiao/toodle/internal/errors"
)

// Handle is an opaque reference to a value in an Arena. Zero is the null handle.
type Handle uint64

// Null is the handle that refers to nothing.
const Null Handle = 0

func makeHandle(index, gen uint32) Handle {
	return Handle(uint64(gen)<<32 | uint64(index+1))
}

func (h Handle) index() (uint32, bool) {
	low := uint32(h)
	if low == 0 {
		return 0, false
	}
	return low - 1, true
}

func (h Handle) generation() uint32 {
	return uint32(h >> 32)
}

// IsNull reports whether h is the null handle.
func (h Handle) IsNull() bool {
	return h == Null
}

// Kind tags what a slot holds.
type Kind uint8

const (
	KindNone Kind = iota
	KindStore
	KindItem
	KindLabel
	KindCategory
	KindItemList
	KindLabelList
	KindCategoryList
)

var kindNames = [...]string{
	KindNone:         "none",
	KindStore:        "store",
	KindItem:         "item",
	KindLabel:        "label",
	KindCategory:     "category",
	KindItemList:     "item_list",
	KindLabelList:    "label_list",
	KindCategoryList: "category_list",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Kinds lists every kind a slot can hold.
func Kinds() []Kind {
	return []Kind{KindStore, KindItem, KindLabel, KindCategory, KindItemList, KindLabelList, KindCategoryList}
}

// EventType identifies what happened to a slot.
type EventType int

const (
	EventAcquired EventType = iota
	EventReleased
)

// Event is delivered to observers after the arena lock is dropped.
type Event struct {
	Type     EventType
	Kind     Kind
	Handle   Handle
	Borrowed bool
}

// Observer receives slot events.
type Observer func(Event)

type slot struct {
	gen      uint32
	kind     Kind
	value    any
	borrowed bool
}

// Arena is a slot table of boundary-owned values. It is safe for concurrent
// use; the values themselves are not locked.
type Arena struct {
	mu        sync.Mutex
	slots     []slot
	free      []uint32
	live      int
	observers []Observer
}

// New creates an empty Arena.
func New() *Arena {
	return &Arena{}
}

// Observe registers o for every future acquire and release.
func (a *Arena) Observe(o Observer) {
	a.mu.Lock()
	a.observers = append(a.observers, o)
	a.mu.Unlock()
}

// Insert stores v under kind and returns an owned handle to it.
func (a *Arena) Insert(kind Kind, v any) Handle {
	return a.insert(kind, v, false)
}

// Borrow stores v as a read-only handle. Borrowed handles can be read but
// not destroyed or mutated by callers; only Release drops them.
func (a *Arena) Borrow(kind Kind, v any) Handle {
	return a.insert(kind, v, true)
}

func (a *Arena) insert(kind Kind, v any, borrowed bool) Handle {
	a.mu.Lock()
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		idx = uint32(len(a.slots))
		a.slots = append(a.slots, slot{})
	}
	s := &a.slots[idx]
	if s.gen == 0 {
		s.gen = 1
	}
	s.kind = kind
	s.value = v
	s.borrowed = borrowed
	a.live++
	h := makeHandle(idx, s.gen)
	obs := a.observers
	a.mu.Unlock()

	notify(obs, Event{Type: EventAcquired, Kind: kind, Handle: h, Borrowed: borrowed})
	return h
}

// lookup resolves h under a.mu.
func (a *Arena) lookup(h Handle, kind Kind) (*slot, uint32, error) {
	idx, ok := h.index()
	if !ok {
		return nil, 0, apperrors.Newf(apperrors.ErrNullHandle, "null %s handle", kind)
	}
	if int(idx) >= len(a.slots) {
		return nil, 0, apperrors.Newf(apperrors.ErrStaleHandle, "unknown %s handle %#x", kind, uint64(h))
	}
	s := &a.slots[idx]
	if s.kind == KindNone || s.gen != h.generation() {
		return nil, 0, apperrors.Newf(apperrors.ErrStaleHandle, "stale %s handle %#x", kind, uint64(h))
	}
	if s.kind != kind {
		return nil, 0, apperrors.Newf(apperrors.ErrWrongKind, "handle %#x is a %s, not a %s", uint64(h), s.kind, kind)
	}
	return s, idx, nil
}

// Get returns the value behind h without consuming it.
func (a *Arena) Get(h Handle, kind Kind) (any, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, _, err := a.lookup(h, kind)
	if err != nil {
		return nil, err
	}
	return s.value, nil
}

// GetMut is Get for callers about to mutate the value. Borrowed handles are refused.
func (a *Arena) GetMut(h Handle, kind Kind) (any, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, _, err := a.lookup(h, kind)
	if err != nil {
		return nil, err
	}
	if s.borrowed {
		return nil, apperrors.Newf(apperrors.ErrBorrowed, "%s handle %#x is borrowed", kind, uint64(h))
	}
	return s.value, nil
}

// Remove destroys an owned handle and returns its value. Borrowed handles are refused.
func (a *Arena) Remove(h Handle, kind Kind) (any, error) {
	return a.remove(h, kind, false)
}

// Release drops h whether owned or borrowed.
func (a *Arena) Release(h Handle, kind Kind) (any, error) {
	return a.remove(h, kind, true)
}

func (a *Arena) remove(h Handle, kind Kind, force bool) (any, error) {
	a.mu.Lock()
	s, idx, err := a.lookup(h, kind)
	if err != nil {
		a.mu.Unlock()
		return nil, err
	}
	if s.borrowed && !force {
		a.mu.Unlock()
		return nil, apperrors.Newf(apperrors.ErrBorrowed, "%s handle %#x is borrowed", kind, uint64(h))
	}
	v := s.value
	borrowed := s.borrowed
	s.value = nil
	s.kind = KindNone
	s.borrowed = false
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	a.free = append(a.free, idx)
	a.live--
	obs := a.observers
	a.mu.Unlock()

	notify(obs, Event{Type: EventReleased, Kind: kind, Handle: h, Borrowed: borrowed})
	return v, nil
}

// IsBorrowed reports whether h is a live borrowed handle of kind.
func (a *Arena) IsBorrowed(h Handle, kind Kind) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, _, err := a.lookup(h, kind)
	return err == nil && s.borrowed
}

// Live returns the number of live handles.
func (a *Arena) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.live
}

// LiveByKind counts live handles per kind.
func (a *Arena) LiveByKind() map[Kind]int {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[Kind]int)
	for _, s := range a.slots {
		if s.kind != KindNone {
			out[s.kind]++
		}
	}
	return out
}

// Drain releases every live handle and returns the values that were held,
// so the caller can close anything that needs closing.
func (a *Arena) Drain() []any {
	a.mu.Lock()
	var values []any
	var events []Event
	for i := range a.slots {
		s := &a.slots[i]
		if s.kind == KindNone {
			continue
		}
		events = append(events, Event{Type: EventReleased, Kind: s.kind, Handle: makeHandle(uint32(i), s.gen), Borrowed: s.borrowed})
		values = append(values, s.value)
		s.value = nil
		s.kind = KindNone
		s.borrowed = false
		s.gen++
		if s.gen == 0 {
			s.gen = 1
		}
		a.free = append(a.free, uint32(i))
	}
	a.live = 0
	obs := a.observers
	a.mu.Unlock()

	for _, ev := range events {
		notify(obs, ev)
	}
	return values
}

func notify(obs []Observer, ev Event) {
	for _, o := range obs {
		o(ev)
	}
}

// Get is a typed form of (*Arena).Get.
func Get[T any](a *Arena, h Handle, kind Kind) (T, error) {
	var zero T
	v, err := a.Get(h, kind)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, apperrors.Newf(apperrors.ErrInternal, "%s handle holds %T", kind, v)
	}
	return t, nil
}

// GetMut is a typed form of (*Arena).GetMut.
func GetMut[T any](a *Arena, h Handle, kind Kind) (T, error) {
	var zero T
	v, err := a.GetMut(h, kind)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, apperrors.Newf(apperrors.ErrInternal, "%s handle holds %T", kind, v)
	}
	return t, nil
}
