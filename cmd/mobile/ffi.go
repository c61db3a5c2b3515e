//go:build cgo

package main

/*
#cgo CFLAGS: -Wall -Wextra
#include <stdint.h>
#include <stdlib.h>
#include <string.h>

#include "toodle.h"
*/
import "C"
import (
	"context"
	"fmt"
	"time"
	"unsafe"

	"github.com/kimhsiao/toodle/internal/bridge"
	apperrors "github.com/kimhsiao/toodle/internal/errors"
)

// Every entry point returns an int32_t status (0 on success) and writes its
// results through pointer arguments. Handles are uint64_t; 0 is null.
// Optional dates are passed as const int64_t* epoch seconds, NULL for none.

var errNullOut = apperrors.New(apperrors.ErrInvalid, "output pointer is NULL")

func run(fn func(b *bridge.Bridge) error) C.int32_t {
	return C.int32_t(with(fn))
}

func text(p *C.char) (string, error) {
	if p == nil {
		return "", apperrors.New(apperrors.ErrInvalid, "text argument is NULL")
	}
	return bridge.Text(C.GoBytes(unsafe.Pointer(p), C.int(C.strlen(p))))
}

func optionalText(p *C.char) (string, error) {
	if p == nil {
		return "", nil
	}
	return text(p)
}

func optionalTime(p *C.int64_t) *time.Time {
	if p == nil {
		return nil
	}
	secs := int64(*p)
	return bridge.OptionalTime(&secs)
}

func cstring(b *bridge.Bridge, s string) *C.char {
	b.Counters().StringAllocated()
	return C.CString(s)
}

func outText(b *bridge.Bridge, out **C.char, get func() (string, error)) error {
	if out == nil {
		return errNullOut
	}
	s, err := get()
	if err != nil {
		return err
	}
	*out = cstring(b, s)
	return nil
}

func outHandle(out *C.uint64_t, get func() (bridge.Handle, error)) error {
	if out == nil {
		return errNullOut
	}
	h, err := get()
	if err != nil {
		return err
	}
	*out = C.uint64_t(h)
	return nil
}

// entryAt range-checks index before handing it to get.
func entryAt(out *C.uint64_t, index C.int64_t, get func(i int) (bridge.Handle, error)) error {
	return outHandle(out, func() (bridge.Handle, error) {
		i, err := listIndex(int64(index))
		if err != nil {
			return 0, err
		}
		return get(i)
	})
}

func outCount(out *C.int64_t, get func() (int, error)) error {
	if out == nil {
		return errNullOut
	}
	n, err := get()
	if err != nil {
		return err
	}
	*out = C.int64_t(n)
	return nil
}

// outTime writes the date and sets *present to 1, or 0 when it is absent.
func outTime(out *C.int64_t, present *C.int32_t, get func() (*time.Time, error)) error {
	if out == nil || present == nil {
		return errNullOut
	}
	t, err := get()
	if err != nil {
		return err
	}
	secs, ok := bridge.EpochSeconds(t)
	*out = C.int64_t(secs)
	*present = 0
	if ok {
		*present = 1
	}
	return nil
}

// =====================================================
// Lifecycle
// =====================================================

//export Init
// Init loads the TOML config at configPath (NULL for defaults) and prepares
// the library. Calling it twice without Cleanup is a no-op.
func Init(configPath *C.char) C.int32_t {
	path, err := optionalText(configPath)
	if err != nil {
		return C.int32_t(record(err))
	}
	return C.int32_t(record(initialize(path)))
}

//export Cleanup
// Cleanup destroys every live handle and closes open stores.
func Cleanup() C.int32_t {
	return C.int32_t(record(shutdown()))
}

//export GetLastError
// GetLastError returns the message of the most recent failure.
// Returns a C string that must be freed with FreeString.
func GetLastError() *C.char {
	if b, err := instance(); err == nil {
		return cstring(b, lastMessage())
	}
	return C.CString(lastMessage())
}

//export FreeString
// FreeString frees a string allocated by the library.
func FreeString(ptr *C.char) {
	if ptr == nil {
		return
	}
	C.free(unsafe.Pointer(ptr))
	if b, err := instance(); err == nil {
		b.Counters().StringFreed()
	}
}

//export StatsJSON
// StatsJSON returns the handle and string allocation counters as JSON.
// Returns a C string that must be freed with FreeString.
func StatsJSON(out **C.char) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		return outText(b, out, func() (string, error) {
			data, err := b.Stats().JSON()
			if err != nil {
				return "", apperrors.Wrap(apperrors.ErrInternal, "failed to serialize stats", err)
			}
			return string(data), nil
		})
	})
}

// =====================================================
// Item Operations
// =====================================================

//export ItemNew
func ItemNew(name *C.char, due *C.int64_t, out *C.uint64_t) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		return outHandle(out, func() (bridge.Handle, error) {
			n, err := text(name)
			if err != nil {
				return 0, err
			}
			return b.ItemNew(n, optionalTime(due)), nil
		})
	})
}

//export ItemDestroy
func ItemDestroy(item C.uint64_t) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		return b.ItemDestroy(bridge.Handle(item))
	})
}

//export ItemGetID
// ItemGetID writes the stored row id; *present is 0 for unsaved items.
func ItemGetID(item C.uint64_t, out *C.int64_t, present *C.int32_t) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		if out == nil || present == nil {
			return errNullOut
		}
		id, ok, err := b.ItemGetID(bridge.Handle(item))
		if err != nil {
			return err
		}
		*out = C.int64_t(id)
		*present = 0
		if ok {
			*present = 1
		}
		return nil
	})
}

//export ItemGetUUID
func ItemGetUUID(item C.uint64_t, out **C.char) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		return outText(b, out, func() (string, error) { return b.ItemGetUUID(bridge.Handle(item)) })
	})
}

//export ItemGetName
func ItemGetName(item C.uint64_t, out **C.char) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		return outText(b, out, func() (string, error) { return b.ItemGetName(bridge.Handle(item)) })
	})
}

//export ItemGetDueDate
func ItemGetDueDate(item C.uint64_t, out *C.int64_t, present *C.int32_t) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		return outTime(out, present, func() (*time.Time, error) { return b.ItemGetDueDate(bridge.Handle(item)) })
	})
}

//export ItemGetCompletionDate
func ItemGetCompletionDate(item C.uint64_t, out *C.int64_t, present *C.int32_t) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		return outTime(out, present, func() (*time.Time, error) { return b.ItemGetCompletionDate(bridge.Handle(item)) })
	})
}

//export ItemGetLabels
// ItemGetLabels returns a new label list holding copies of the item's labels.
func ItemGetLabels(item C.uint64_t, out *C.uint64_t) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		return outHandle(out, func() (bridge.Handle, error) { return b.ItemGetLabels(bridge.Handle(item)) })
	})
}

//export ItemLabelsCount
func ItemLabelsCount(item C.uint64_t, out *C.int64_t) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		return outCount(out, func() (int, error) { return b.ItemLabelsCount(bridge.Handle(item)) })
	})
}

//export ItemSetName
func ItemSetName(item C.uint64_t, name *C.char) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		n, err := text(name)
		if err != nil {
			return err
		}
		return b.ItemSetName(bridge.Handle(item), n)
	})
}

//export ItemSetDueDate
func ItemSetDueDate(item C.uint64_t, due *C.int64_t) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		return b.ItemSetDueDate(bridge.Handle(item), optionalTime(due))
	})
}

//export ItemSetCompletionDate
func ItemSetCompletionDate(item C.uint64_t, completed *C.int64_t) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		return b.ItemSetCompletionDate(bridge.Handle(item), optionalTime(completed))
	})
}

//export ItemAddLabel
func ItemAddLabel(item, label C.uint64_t) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		return b.ItemAddLabel(bridge.Handle(item), bridge.Handle(label))
	})
}

//export ItemDetachStrings
// ItemDetachStrings hands the item's UUID and name to the caller, who frees
// both with FreeString. The item stays alive with empty text fields and
// must still be released with ItemDestroy.
func ItemDetachStrings(item C.uint64_t, outUUID, outName **C.char) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		if outUUID == nil || outName == nil {
			return errNullOut
		}
		id, name, err := b.ItemDetachStrings(bridge.Handle(item))
		if err != nil {
			return err
		}
		*outUUID = cstring(b, id)
		*outName = cstring(b, name)
		return nil
	})
}

// =====================================================
// Label Operations
// =====================================================

//export LabelNew
// LabelNew creates a label. A NULL or empty color gets the default.
func LabelNew(name, color *C.char, out *C.uint64_t) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		return outHandle(out, func() (bridge.Handle, error) {
			n, err := text(name)
			if err != nil {
				return 0, err
			}
			c, err := optionalText(color)
			if err != nil {
				return 0, err
			}
			return b.LabelNew(n, c), nil
		})
	})
}

//export LabelDestroy
func LabelDestroy(label C.uint64_t) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		return b.LabelDestroy(bridge.Handle(label))
	})
}

//export LabelGetName
func LabelGetName(label C.uint64_t, out **C.char) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		return outText(b, out, func() (string, error) { return b.LabelGetName(bridge.Handle(label)) })
	})
}

//export LabelGetColor
func LabelGetColor(label C.uint64_t, out **C.char) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		return outText(b, out, func() (string, error) { return b.LabelGetColor(bridge.Handle(label)) })
	})
}

//export LabelSetName
func LabelSetName(label C.uint64_t, name *C.char) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		n, err := text(name)
		if err != nil {
			return err
		}
		return b.LabelSetName(bridge.Handle(label), n)
	})
}

//export LabelSetColor
func LabelSetColor(label C.uint64_t, color *C.char) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		c, err := text(color)
		if err != nil {
			return err
		}
		return b.LabelSetColor(bridge.Handle(label), c)
	})
}

// =====================================================
// Category Operations
// =====================================================

//export CategoryNew
func CategoryNew(name *C.char, out *C.uint64_t) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		return outHandle(out, func() (bridge.Handle, error) {
			n, err := text(name)
			if err != nil {
				return 0, err
			}
			return b.CategoryNew(n), nil
		})
	})
}

//export CategoryDestroy
func CategoryDestroy(category C.uint64_t) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		return b.CategoryDestroy(bridge.Handle(category))
	})
}

//export CategoryGetID
// CategoryGetID writes the stored id, or -1 for an unsaved category.
func CategoryGetID(category C.uint64_t, out *C.int64_t) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		if out == nil {
			return errNullOut
		}
		id, err := b.CategoryGetID(bridge.Handle(category))
		if err != nil {
			return err
		}
		*out = C.int64_t(id)
		return nil
	})
}

//export CategoryGetName
func CategoryGetName(category C.uint64_t, out **C.char) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		return outText(b, out, func() (string, error) { return b.CategoryGetName(bridge.Handle(category)) })
	})
}

//export CategoryGetItems
func CategoryGetItems(category C.uint64_t, out *C.uint64_t) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		return outHandle(out, func() (bridge.Handle, error) { return b.CategoryGetItems(bridge.Handle(category)) })
	})
}

//export CategoryItemsCount
func CategoryItemsCount(category C.uint64_t, out *C.int64_t) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		return outCount(out, func() (int, error) { return b.CategoryItemsCount(bridge.Handle(category)) })
	})
}

//export CategorySetName
func CategorySetName(category C.uint64_t, name *C.char) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		n, err := text(name)
		if err != nil {
			return err
		}
		return b.CategorySetName(bridge.Handle(category), n)
	})
}

//export CategoryAddItem
// CategoryAddItem appends a copy of item. The item handle stays valid.
func CategoryAddItem(category, item C.uint64_t) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		return b.CategoryAddItem(bridge.Handle(category), bridge.Handle(item))
	})
}

// =====================================================
// List Operations
// =====================================================

//export ItemListNew
func ItemListNew(out *C.uint64_t) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		return outHandle(out, func() (bridge.Handle, error) { return b.ItemListNew(), nil })
	})
}

//export ItemListCount
func ItemListCount(list C.uint64_t, out *C.int64_t) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		return outCount(out, func() (int, error) { return b.ItemListCount(bridge.Handle(list)) })
	})
}

//export ItemListEntryAt
// ItemListEntryAt returns a new item handle copied from position index.
// Indexes outside [0, count) fail with OUT_OF_BOUNDS.
func ItemListEntryAt(list C.uint64_t, index C.int64_t, out *C.uint64_t) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		return entryAt(out, index, func(i int) (bridge.Handle, error) { return b.ItemListEntryAt(bridge.Handle(list), i) })
	})
}

//export ItemListAdd
func ItemListAdd(list, item C.uint64_t) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		return b.ItemListAdd(bridge.Handle(list), bridge.Handle(item))
	})
}

//export ItemListDestroy
func ItemListDestroy(list C.uint64_t) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		return b.ItemListDestroy(bridge.Handle(list))
	})
}

//export LabelListNew
func LabelListNew(out *C.uint64_t) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		return outHandle(out, func() (bridge.Handle, error) { return b.LabelListNew(), nil })
	})
}

//export LabelListCount
func LabelListCount(list C.uint64_t, out *C.int64_t) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		return outCount(out, func() (int, error) { return b.LabelListCount(bridge.Handle(list)) })
	})
}

//export LabelListEntryAt
func LabelListEntryAt(list C.uint64_t, index C.int64_t, out *C.uint64_t) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		return entryAt(out, index, func(i int) (bridge.Handle, error) { return b.LabelListEntryAt(bridge.Handle(list), i) })
	})
}

//export LabelListAdd
func LabelListAdd(list, label C.uint64_t) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		return b.LabelListAdd(bridge.Handle(list), bridge.Handle(label))
	})
}

//export LabelListDestroy
func LabelListDestroy(list C.uint64_t) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		return b.LabelListDestroy(bridge.Handle(list))
	})
}

//export CategoryListNew
func CategoryListNew(out *C.uint64_t) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		return outHandle(out, func() (bridge.Handle, error) { return b.CategoryListNew(), nil })
	})
}

//export CategoryListCount
func CategoryListCount(list C.uint64_t, out *C.int64_t) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		return outCount(out, func() (int, error) { return b.CategoryListCount(bridge.Handle(list)) })
	})
}

//export CategoryListEntryAt
func CategoryListEntryAt(list C.uint64_t, index C.int64_t, out *C.uint64_t) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		return entryAt(out, index, func(i int) (bridge.Handle, error) { return b.CategoryListEntryAt(bridge.Handle(list), i) })
	})
}

//export CategoryListAdd
// CategoryListAdd appends a copy of category. Neither handle is consumed.
func CategoryListAdd(list, category C.uint64_t) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		return b.CategoryListAdd(bridge.Handle(list), bridge.Handle(category))
	})
}

//export CategoryListDestroy
func CategoryListDestroy(list C.uint64_t) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		return b.CategoryListDestroy(bridge.Handle(list))
	})
}

// =====================================================
// Store Operations
// =====================================================

//export StoreOpen
// StoreOpen opens the store at uri, creating and migrating it as needed.
// NULL or ":memory:" opens a private in-memory store.
func StoreOpen(uri *C.char, out *C.uint64_t) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		return outHandle(out, func() (bridge.Handle, error) {
			u, err := optionalText(uri)
			if err != nil {
				return 0, err
			}
			return b.StoreOpen(u)
		})
	})
}

//export StoreDestroy
func StoreDestroy(store C.uint64_t) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		return b.StoreDestroy(bridge.Handle(store))
	})
}

//export StoreCreateItem
func StoreCreateItem(store C.uint64_t, name *C.char, due *C.int64_t, out *C.uint64_t) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		return outHandle(out, func() (bridge.Handle, error) {
			n, err := text(name)
			if err != nil {
				return 0, err
			}
			return b.StoreCreateItem(bridge.Handle(store), n, optionalTime(due))
		})
	})
}

//export StoreAllItems
func StoreAllItems(store C.uint64_t, out *C.uint64_t) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		return outHandle(out, func() (bridge.Handle, error) { return b.StoreAllItems(bridge.Handle(store)) })
	})
}

//export StoreAllItemsScoped
// StoreAllItemsScoped calls fn with a read-only list of every stored item,
// or 0 when the store is empty. The list is released when fn returns and
// must not be destroyed or kept. A non-zero return from fn is reported as
// CALLBACK_FAILED.
func StoreAllItemsScoped(store C.uint64_t, fn C.toodle_items_fn, userData unsafe.Pointer) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		if fn == nil {
			return apperrors.New(apperrors.ErrInvalid, "callback is NULL")
		}
		return b.WithAllItems(bridge.Handle(store), func(list bridge.Handle) error {
			if rc := C.toodle_call_items(fn, C.uint64_t(list), userData); rc != 0 {
				return fmt.Errorf("callback returned %d", int32(rc))
			}
			return nil
		})
	})
}

//export StoreItemForUUID
// StoreItemForUUID writes the item with the given UUID, or 0 when there is
// none. Only a malformed UUID is an error.
func StoreItemForUUID(store C.uint64_t, uuid *C.char, out *C.uint64_t) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		return outHandle(out, func() (bridge.Handle, error) {
			id, err := text(uuid)
			if err != nil {
				return 0, err
			}
			return b.StoreItemForUUID(bridge.Handle(store), id)
		})
	})
}

//export StoreUpdateItem
// StoreUpdateItem writes name, dates and the labels in labels (0 for none)
// to the stored copy of item. The item handle itself is not modified.
func StoreUpdateItem(store, item C.uint64_t, name *C.char, due, completion *C.int64_t, labels C.uint64_t) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		n, err := text(name)
		if err != nil {
			return err
		}
		return b.StoreUpdateItem(bridge.Handle(store), bridge.Handle(item), n,
			optionalTime(due), optionalTime(completion), bridge.Handle(labels))
	})
}

//export StoreUpdateItemByUUID
func StoreUpdateItemByUUID(store C.uint64_t, uuid, name *C.char, due, completion *C.int64_t) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		id, err := text(uuid)
		if err != nil {
			return err
		}
		n, err := text(name)
		if err != nil {
			return err
		}
		return b.StoreUpdateItemByUUID(bridge.Handle(store), id, n, optionalTime(due), optionalTime(completion))
	})
}

//export StoreCreateLabel
func StoreCreateLabel(store C.uint64_t, name, color *C.char, out *C.uint64_t) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		return outHandle(out, func() (bridge.Handle, error) {
			n, err := text(name)
			if err != nil {
				return 0, err
			}
			c, err := optionalText(color)
			if err != nil {
				return 0, err
			}
			return b.StoreCreateLabel(bridge.Handle(store), n, c)
		})
	})
}

//export StoreAllLabels
func StoreAllLabels(store C.uint64_t, out *C.uint64_t) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		return outHandle(out, func() (bridge.Handle, error) { return b.StoreAllLabels(bridge.Handle(store)) })
	})
}

//export StoreSaveCategory
// StoreSaveCategory persists category and its items, then writes the
// assigned id back into the category.
func StoreSaveCategory(store, category C.uint64_t) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		return b.StoreSaveCategory(bridge.Handle(store), bridge.Handle(category))
	})
}

//export StoreAllCategories
func StoreAllCategories(store C.uint64_t, out *C.uint64_t) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		return outHandle(out, func() (bridge.Handle, error) { return b.StoreAllCategories(bridge.Handle(store)) })
	})
}

//export StoreSync
// StoreSync exchanges every item and label of userUUID with the sync server
// at serverURL and applies the merged result. Blocks until done or until
// the configured sync timeout.
func StoreSync(store C.uint64_t, userUUID, serverURL *C.char) C.int32_t {
	return run(func(b *bridge.Bridge) error {
		user, err := text(userUUID)
		if err != nil {
			return err
		}
		url, err := text(serverURL)
		if err != nil {
			return err
		}
		return b.StoreSync(context.Background(), bridge.Handle(store), user, url)
	})
}
