package handles

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/kimhsiao/toodle/internal/errors"
)

func TestArena_InsertGetRemove(t *testing.T) {
	a := New()

	h := a.Insert(KindItem, "milk")
	require.False(t, h.IsNull())
	assert.Equal(t, 1, a.Live())

	v, err := Get[string](a, h, KindItem)
	require.NoError(t, err)
	assert.Equal(t, "milk", v)

	got, err := a.Remove(h, KindItem)
	require.NoError(t, err)
	assert.Equal(t, "milk", got)
	assert.Equal(t, 0, a.Live())
}

func TestArena_doubleRemoveIsStale(t *testing.T) {
	a := New()
	h := a.Insert(KindLabel, 1)

	_, err := a.Remove(h, KindLabel)
	require.NoError(t, err)

	_, err = a.Remove(h, KindLabel)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrStaleHandle))
}

func TestArena_reuseBumpsGeneration(t *testing.T) {
	a := New()
	old := a.Insert(KindItem, "a")
	_, err := a.Remove(old, KindItem)
	require.NoError(t, err)

	fresh := a.Insert(KindItem, "b")
	assert.NotEqual(t, old, fresh)
	oldIdx, _ := old.index()
	freshIdx, _ := fresh.index()
	assert.Equal(t, oldIdx, freshIdx, "slot is reused")

	_, err = a.Get(old, KindItem)
	assert.True(t, apperrors.Is(err, apperrors.ErrStaleHandle))

	v, err := Get[string](a, fresh, KindItem)
	require.NoError(t, err)
	assert.Equal(t, "b", v)
}

func TestArena_nullAndUnknown(t *testing.T) {
	a := New()

	_, err := a.Get(Null, KindItem)
	assert.True(t, apperrors.Is(err, apperrors.ErrNullHandle))

	_, err = a.Get(makeHandle(40, 1), KindItem)
	assert.True(t, apperrors.Is(err, apperrors.ErrStaleHandle))
}

func TestArena_wrongKind(t *testing.T) {
	a := New()
	h := a.Insert(KindLabel, "x")

	_, err := a.Get(h, KindItem)
	assert.True(t, apperrors.Is(err, apperrors.ErrWrongKind))

	_, err = a.Remove(h, KindCategory)
	assert.True(t, apperrors.Is(err, apperrors.ErrWrongKind))
	assert.Equal(t, 1, a.Live(), "failed remove keeps the handle")
}

func TestArena_typeMismatch(t *testing.T) {
	a := New()
	h := a.Insert(KindItem, 5)

	_, err := Get[string](a, h, KindItem)
	assert.True(t, apperrors.Is(err, apperrors.ErrInternal))
}

func TestArena_borrowed(t *testing.T) {
	a := New()
	h := a.Borrow(KindItemList, []int{1})
	assert.True(t, a.IsBorrowed(h, KindItemList))

	_, err := a.Get(h, KindItemList)
	assert.NoError(t, err)

	_, err = a.GetMut(h, KindItemList)
	assert.True(t, apperrors.Is(err, apperrors.ErrBorrowed))

	_, err = a.Remove(h, KindItemList)
	assert.True(t, apperrors.Is(err, apperrors.ErrBorrowed))

	_, err = a.Release(h, KindItemList)
	require.NoError(t, err)
	assert.Equal(t, 0, a.Live())
	assert.False(t, a.IsBorrowed(h, KindItemList))
}

func TestArena_observer(t *testing.T) {
	a := New()
	var events []Event
	a.Observe(func(ev Event) { events = append(events, ev) })

	h := a.Insert(KindCategory, "c")
	_, err := a.Remove(h, KindCategory)
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, Event{Type: EventAcquired, Kind: KindCategory, Handle: h}, events[0])
	assert.Equal(t, Event{Type: EventReleased, Kind: KindCategory, Handle: h}, events[1])
}

func TestArena_LiveByKindAndDrain(t *testing.T) {
	a := New()
	a.Insert(KindItem, 1)
	a.Insert(KindItem, 2)
	a.Borrow(KindItemList, 3)
	a.Insert(KindStore, 4)

	assert.Equal(t, map[Kind]int{KindItem: 2, KindItemList: 1, KindStore: 1}, a.LiveByKind())

	released := 0
	a.Observe(func(ev Event) {
		if ev.Type == EventReleased {
			released++
		}
	})
	values := a.Drain()
	assert.ElementsMatch(t, []any{1, 2, 3, 4}, values)
	assert.Equal(t, 4, released)
	assert.Equal(t, 0, a.Live())
	assert.Empty(t, a.LiveByKind())
}

func TestArena_concurrent(t *testing.T) {
	a := New()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				h := a.Insert(KindItem, i)
				if _, err := a.Remove(h, KindItem); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, a.Live())
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "item_list", KindItemList.String())
	assert.Equal(t, "unknown", Kind(200).String())
	assert.Len(t, Kinds(), 7)
}
