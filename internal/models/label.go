package models

// DefaultLabelColor is applied when a label is created without a color.
const DefaultLabelColor = "#3B82F6"

// Label is a named, colored tag attached to items. Names are unique per store.
type Label struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// TableName returns the table name for Label.
func (Label) TableName() string {
	return "labels"
}
