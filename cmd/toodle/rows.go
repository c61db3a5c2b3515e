package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kimhsiao/toodle/internal/bridge"
)

// row is the display form of one stored item.
type row struct {
	UUID   string
	Name   string
	Due    *time.Time
	Done   bool
	Labels []string
}

// loadRows reads every stored item through a scoped borrow of the item list.
func loadRows(b *bridge.Bridge, store bridge.Handle) ([]row, error) {
	var rows []row
	err := b.WithAllItems(store, func(list bridge.Handle) error {
		if list.IsNull() {
			return nil
		}
		n, err := b.ItemListCount(list)
		if err != nil {
			return err
		}
		rows = make([]row, 0, n)
		for i := 0; i < n; i++ {
			entry, err := b.ItemListEntryAt(list, i)
			if err != nil {
				return err
			}
			r, err := readRow(b, entry)
			b.ItemDestroy(entry)
			if err != nil {
				return err
			}
			rows = append(rows, r)
		}
		return nil
	})
	return rows, err
}

func readRow(b *bridge.Bridge, item bridge.Handle) (row, error) {
	var r row
	var err error
	if r.UUID, err = b.ItemGetUUID(item); err != nil {
		return r, err
	}
	if r.Name, err = b.ItemGetName(item); err != nil {
		return r, err
	}
	if r.Due, err = b.ItemGetDueDate(item); err != nil {
		return r, err
	}
	done, err := b.ItemGetCompletionDate(item)
	if err != nil {
		return r, err
	}
	r.Done = done != nil

	labels, err := b.ItemGetLabels(item)
	if err != nil {
		return r, err
	}
	defer b.LabelListDestroy(labels)
	n, err := b.LabelListCount(labels)
	if err != nil {
		return r, err
	}
	for i := 0; i < n; i++ {
		label, err := b.LabelListEntryAt(labels, i)
		if err != nil {
			return r, err
		}
		name, err := b.LabelGetName(label)
		b.LabelDestroy(label)
		if err != nil {
			return r, err
		}
		r.Labels = append(r.Labels, name)
	}
	return r, nil
}

// toggle flips the completion state of the stored item with id, keeping its
// name, due date and labels.
func toggle(b *bridge.Bridge, store bridge.Handle, id string, now time.Time) error {
	item, err := b.StoreItemForUUID(store, id)
	if err != nil {
		return err
	}
	if item.IsNull() {
		return fmt.Errorf("item %s not found", id)
	}
	defer b.ItemDestroy(item)

	name, err := b.ItemGetName(item)
	if err != nil {
		return err
	}
	due, err := b.ItemGetDueDate(item)
	if err != nil {
		return err
	}
	completed, err := b.ItemGetCompletionDate(item)
	if err != nil {
		return err
	}
	labels, err := b.ItemGetLabels(item)
	if err != nil {
		return err
	}
	defer b.LabelListDestroy(labels)

	if completed == nil {
		completed = &now
	} else {
		completed = nil
	}
	return b.StoreUpdateItem(store, item, name, due, completed, labels)
}

func add(b *bridge.Bridge, store bridge.Handle, name string) error {
	item, err := b.StoreCreateItem(store, name, nil)
	if err != nil {
		return err
	}
	return b.ItemDestroy(item)
}

func (r row) line() string {
	box := boxUnchecked
	if r.Done {
		box = boxChecked
	}
	s := box + " " + r.Name
	if r.Due != nil {
		s += " (due " + r.Due.Format("2006-01-02") + ")"
	}
	if len(r.Labels) > 0 {
		s += " [" + strings.Join(r.Labels, ", ") + "]"
	}
	return s
}

func stats(rows []row) (done, pending int) {
	for _, r := range rows {
		if r.Done {
			done++
		} else {
			pending++
		}
	}
	return done, pending
}

// printPlain writes one line per item, for pipes and non-interactive use.
func printPlain(w io.Writer, rows []row) {
	for _, r := range rows {
		fmt.Fprintln(w, r.line())
	}
	done, pending := stats(rows)
	fmt.Fprintf(w, "%d done, %d pending, %d total\n", done, pending, len(rows))
}
