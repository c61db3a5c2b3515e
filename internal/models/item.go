// Package models provides the record types handed across the toodle boundary.
package models

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// UUID is a wrapper around string for item identity type safety.
type UUID string

// Value implements driver.Valuer for UUID.
func (u UUID) Value() (driver.Value, error) {
	return string(u), nil
}

// Scan implements sql.Scanner for UUID.
func (u *UUID) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*u = ""
	case string:
		*u = UUID(v)
	case []byte:
		*u = UUID(v)
	default:
		return fmt.Errorf("cannot scan %T into UUID", value)
	}
	return nil
}

// String returns the string representation of the UUID.
func (u UUID) String() string {
	return string(u)
}

// Item is a to-do entry. ID is the store row id and stays nil until the item
// has been persisted.
type Item struct {
	ID             *int64     `json:"-"`
	UUID           UUID       `json:"uuid"`
	Name           string     `json:"name"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	CompletionDate *time.Time `json:"completion_date,omitempty"`
	Labels         []Label    `json:"labels,omitempty"`
	UpdatedAt      int64      `json:"updated_at"`
}

// TableName returns the table name for Item.
func (Item) TableName() string {
	return "items"
}

// Clone returns a deep copy. Pointers and the label slice are never shared.
func (i Item) Clone() Item {
	out := i
	if i.ID != nil {
		id := *i.ID
		out.ID = &id
	}
	out.DueDate = cloneTime(i.DueDate)
	out.CompletionDate = cloneTime(i.CompletionDate)
	if i.Labels != nil {
		out.Labels = make([]Label, len(i.Labels))
		copy(out.Labels, i.Labels)
	}
	return out
}

// IsComplete reports whether a completion date is set.
func (i *Item) IsComplete() bool {
	return i.CompletionDate != nil
}

// HasLabel reports whether a label with the given name is attached.
func (i *Item) HasLabel(name string) bool {
	for _, l := range i.Labels {
		if l.Name == name {
			return true
		}
	}
	return false
}

// Touch updates the UpdatedAt timestamp.
func (i *Item) Touch() {
	i.UpdatedAt = time.Now().Unix()
}

// UpdatedAtTime returns the UpdatedAt as time.Time.
func (i *Item) UpdatedAtTime() time.Time {
	return time.Unix(i.UpdatedAt, 0)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
