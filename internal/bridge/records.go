package bridge

import (
	"time"

	"github.com/kimhsiao/toodle/internal/handles"
	"github.com/kimhsiao/toodle/internal/models"
	"github.com/kimhsiao/toodle/internal/uuid"
)

// =====================================================
// Item
// =====================================================

// ItemNew creates an unsaved item with a fresh UUID.
func (b *Bridge) ItemNew(name string, due *time.Time) Handle {
	item := &models.Item{
		UUID:    models.UUID(uuid.New()),
		Name:    name,
		DueDate: cloneTime(due),
	}
	return b.arena.Insert(handles.KindItem, item)
}

// ItemDestroy releases the item and everything it owns.
func (b *Bridge) ItemDestroy(h Handle) error {
	_, err := b.destroy("ItemDestroy", h, handles.KindItem)
	return err
}

// ItemGetID returns the store row id. ok is false for unsaved items.
func (b *Bridge) ItemGetID(h Handle) (id int64, ok bool, err error) {
	item, err := get[*models.Item](b, "ItemGetID", h, handles.KindItem)
	if err != nil {
		return 0, false, err
	}
	if item.ID == nil {
		return 0, false, nil
	}
	return *item.ID, true, nil
}

// ItemGetUUID returns a copy of the item's UUID.
func (b *Bridge) ItemGetUUID(h Handle) (string, error) {
	item, err := get[*models.Item](b, "ItemGetUUID", h, handles.KindItem)
	if err != nil {
		return "", err
	}
	return item.UUID.String(), nil
}

// ItemGetName returns a copy of the item's name.
func (b *Bridge) ItemGetName(h Handle) (string, error) {
	item, err := get[*models.Item](b, "ItemGetName", h, handles.KindItem)
	if err != nil {
		return "", err
	}
	return item.Name, nil
}

// ItemGetDueDate returns a copy of the due date, nil when absent.
func (b *Bridge) ItemGetDueDate(h Handle) (*time.Time, error) {
	item, err := get[*models.Item](b, "ItemGetDueDate", h, handles.KindItem)
	if err != nil {
		return nil, err
	}
	return cloneTime(item.DueDate), nil
}

// ItemGetCompletionDate returns a copy of the completion date, nil when absent.
func (b *Bridge) ItemGetCompletionDate(h Handle) (*time.Time, error) {
	item, err := get[*models.Item](b, "ItemGetCompletionDate", h, handles.KindItem)
	if err != nil {
		return nil, err
	}
	return cloneTime(item.CompletionDate), nil
}

// ItemGetLabels returns a new label list holding clones of the item's labels.
func (b *Bridge) ItemGetLabels(h Handle) (Handle, error) {
	item, err := get[*models.Item](b, "ItemGetLabels", h, handles.KindItem)
	if err != nil {
		return handles.Null, err
	}
	labels := make([]models.Label, len(item.Labels))
	copy(labels, item.Labels)
	return b.arena.Insert(handles.KindLabelList, &labelList{labels: labels}), nil
}

// ItemLabelsCount returns the number of labels on the item.
func (b *Bridge) ItemLabelsCount(h Handle) (int, error) {
	item, err := get[*models.Item](b, "ItemLabelsCount", h, handles.KindItem)
	if err != nil {
		return 0, err
	}
	return len(item.Labels), nil
}

// ItemSetName replaces the item's name.
func (b *Bridge) ItemSetName(h Handle, name string) error {
	item, err := getMut[*models.Item](b, "ItemSetName", h, handles.KindItem)
	if err != nil {
		return err
	}
	item.Name = name
	return nil
}

// ItemSetDueDate replaces the due date. nil clears it.
func (b *Bridge) ItemSetDueDate(h Handle, due *time.Time) error {
	item, err := getMut[*models.Item](b, "ItemSetDueDate", h, handles.KindItem)
	if err != nil {
		return err
	}
	item.DueDate = cloneTime(due)
	return nil
}

// ItemSetCompletionDate replaces the completion date. nil clears it.
func (b *Bridge) ItemSetCompletionDate(h Handle, completed *time.Time) error {
	item, err := getMut[*models.Item](b, "ItemSetCompletionDate", h, handles.KindItem)
	if err != nil {
		return err
	}
	item.CompletionDate = cloneTime(completed)
	return nil
}

// ItemAddLabel attaches a copy of label to the item. A label with the same
// name already attached is replaced.
func (b *Bridge) ItemAddLabel(h, label Handle) error {
	item, err := getMut[*models.Item](b, "ItemAddLabel", h, handles.KindItem)
	if err != nil {
		return err
	}
	l, err := get[*models.Label](b, "ItemAddLabel", label, handles.KindLabel)
	if err != nil {
		return err
	}
	for i := range item.Labels {
		if item.Labels[i].Name == l.Name {
			item.Labels[i] = *l
			return nil
		}
	}
	item.Labels = append(item.Labels, *l)
	return nil
}

// ItemDetachStrings hands the item's UUID and name to the caller as owned
// values and leaves the item alive with both fields empty. ItemDestroy is
// still required to release the item itself.
func (b *Bridge) ItemDetachStrings(h Handle) (id, name string, err error) {
	item, err := getMut[*models.Item](b, "ItemDetachStrings", h, handles.KindItem)
	if err != nil {
		return "", "", err
	}
	id, name = item.UUID.String(), item.Name
	item.UUID = ""
	item.Name = ""
	return id, name, nil
}

// =====================================================
// Label
// =====================================================

// LabelNew creates a label. An empty color uses the default label color.
func (b *Bridge) LabelNew(name, color string) Handle {
	if color == "" {
		color = models.DefaultLabelColor
	}
	return b.arena.Insert(handles.KindLabel, &models.Label{Name: name, Color: color})
}

// LabelDestroy releases the label.
func (b *Bridge) LabelDestroy(h Handle) error {
	_, err := b.destroy("LabelDestroy", h, handles.KindLabel)
	return err
}

// LabelGetName returns a copy of the label name.
func (b *Bridge) LabelGetName(h Handle) (string, error) {
	l, err := get[*models.Label](b, "LabelGetName", h, handles.KindLabel)
	if err != nil {
		return "", err
	}
	return l.Name, nil
}

// LabelGetColor returns a copy of the label color.
func (b *Bridge) LabelGetColor(h Handle) (string, error) {
	l, err := get[*models.Label](b, "LabelGetColor", h, handles.KindLabel)
	if err != nil {
		return "", err
	}
	return l.Color, nil
}

// LabelSetName replaces the label name.
func (b *Bridge) LabelSetName(h Handle, name string) error {
	l, err := getMut[*models.Label](b, "LabelSetName", h, handles.KindLabel)
	if err != nil {
		return err
	}
	l.Name = name
	return nil
}

// LabelSetColor replaces the label color.
func (b *Bridge) LabelSetColor(h Handle, color string) error {
	l, err := getMut[*models.Label](b, "LabelSetColor", h, handles.KindLabel)
	if err != nil {
		return err
	}
	l.Color = color
	return nil
}

// =====================================================
// Category
// =====================================================

// CategoryNew creates an empty, unsaved category.
func (b *Bridge) CategoryNew(name string) Handle {
	cat := models.NewCategory(name)
	return b.arena.Insert(handles.KindCategory, &cat)
}

// CategoryDestroy releases the category and every item it owns.
func (b *Bridge) CategoryDestroy(h Handle) error {
	_, err := b.destroy("CategoryDestroy", h, handles.KindCategory)
	return err
}

// CategoryGetID returns the category id, models.UnsavedCategoryID until saved.
func (b *Bridge) CategoryGetID(h Handle) (int64, error) {
	cat, err := get[*models.Category](b, "CategoryGetID", h, handles.KindCategory)
	if err != nil {
		return 0, err
	}
	return cat.ID, nil
}

// CategoryGetName returns a copy of the category name.
func (b *Bridge) CategoryGetName(h Handle) (string, error) {
	cat, err := get[*models.Category](b, "CategoryGetName", h, handles.KindCategory)
	if err != nil {
		return "", err
	}
	return cat.Name, nil
}

// CategoryGetItems returns a new item list holding clones of the category's items.
func (b *Bridge) CategoryGetItems(h Handle) (Handle, error) {
	cat, err := get[*models.Category](b, "CategoryGetItems", h, handles.KindCategory)
	if err != nil {
		return handles.Null, err
	}
	return b.arena.Insert(handles.KindItemList, &itemList{items: cloneItems(cat.Items)}), nil
}

// CategoryItemsCount returns the number of items in the category.
func (b *Bridge) CategoryItemsCount(h Handle) (int, error) {
	cat, err := get[*models.Category](b, "CategoryItemsCount", h, handles.KindCategory)
	if err != nil {
		return 0, err
	}
	return len(cat.Items), nil
}

// CategorySetName replaces the category name.
func (b *Bridge) CategorySetName(h Handle, name string) error {
	cat, err := getMut[*models.Category](b, "CategorySetName", h, handles.KindCategory)
	if err != nil {
		return err
	}
	cat.Name = name
	return nil
}

// CategoryAddItem appends a clone of item. Neither handle is consumed.
func (b *Bridge) CategoryAddItem(h, item Handle) error {
	cat, err := getMut[*models.Category](b, "CategoryAddItem", h, handles.KindCategory)
	if err != nil {
		return err
	}
	it, err := get[*models.Item](b, "CategoryAddItem", item, handles.KindItem)
	if err != nil {
		return err
	}
	cat.AddItem(*it)
	return nil
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneItems(items []models.Item) []models.Item {
	out := make([]models.Item, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}
