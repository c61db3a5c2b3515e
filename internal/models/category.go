package models

// UnsavedCategoryID marks a category that has not been persisted.
const UnsavedCategoryID int64 = -1

// Category groups items under a name and owns its item list.
type Category struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Items []Item `json:"items"`
}

// NewCategory returns an empty, unsaved category.
func NewCategory(name string) Category {
	return Category{ID: UnsavedCategoryID, Name: name, Items: []Item{}}
}

// TableName returns the table name for Category.
func (Category) TableName() string {
	return "categories"
}

// IsSaved reports whether the category has a store id.
func (c *Category) IsSaved() bool {
	return c.ID != UnsavedCategoryID
}

// Clone returns a deep copy, cloning every item.
func (c Category) Clone() Category {
	out := c
	out.Items = make([]Item, len(c.Items))
	for i, it := range c.Items {
		out.Items[i] = it.Clone()
	}
	return out
}

// AddItem appends a clone of item.
func (c *Category) AddItem(item Item) {
	c.Items = append(c.Items, item.Clone())
}
