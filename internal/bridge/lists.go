package bridge

import (
	apperrors "github.com/kimhsiao/toodle/internal/errors"
	"github.com/kimhsiao/toodle/internal/handles"
	"github.com/kimhsiao/toodle/internal/models"
)

// Lists own their elements by value. EntryAt always hands out a clone.
type itemList struct{ items []models.Item }

type labelList struct{ labels []models.Label }

type categoryList struct{ categories []models.Category }

func checkIndex(op string, i, n int) error {
	if i < 0 || i >= n {
		return apperrors.Newf(apperrors.ErrOutOfBounds, "%s: index %d out of range [0, %d)", op, i, n)
	}
	return nil
}

// =====================================================
// Item lists
// =====================================================

// ItemListNew creates an empty item list.
func (b *Bridge) ItemListNew() Handle {
	return b.arena.Insert(handles.KindItemList, &itemList{})
}

// ItemListCount returns the number of items in the list.
func (b *Bridge) ItemListCount(h Handle) (int, error) {
	l, err := get[*itemList](b, "ItemListCount", h, handles.KindItemList)
	if err != nil {
		return 0, err
	}
	return len(l.items), nil
}

// ItemListEntryAt returns an owned clone of the item at index i.
func (b *Bridge) ItemListEntryAt(h Handle, i int) (Handle, error) {
	l, err := get[*itemList](b, "ItemListEntryAt", h, handles.KindItemList)
	if err != nil {
		return handles.Null, err
	}
	if err := checkIndex("ItemListEntryAt", i, len(l.items)); err != nil {
		return handles.Null, b.fail("ItemListEntryAt", err)
	}
	item := l.items[i].Clone()
	return b.arena.Insert(handles.KindItem, &item), nil
}

// ItemListAdd appends a clone of item. Neither handle is consumed.
func (b *Bridge) ItemListAdd(h, item Handle) error {
	l, err := getMut[*itemList](b, "ItemListAdd", h, handles.KindItemList)
	if err != nil {
		return err
	}
	it, err := get[*models.Item](b, "ItemListAdd", item, handles.KindItem)
	if err != nil {
		return err
	}
	l.items = append(l.items, it.Clone())
	return nil
}

// ItemListDestroy releases the list and every item it owns. Borrowed lists
// are refused.
func (b *Bridge) ItemListDestroy(h Handle) error {
	_, err := b.destroy("ItemListDestroy", h, handles.KindItemList)
	return err
}

// =====================================================
// Label lists
// =====================================================

// LabelListNew creates an empty label list.
func (b *Bridge) LabelListNew() Handle {
	return b.arena.Insert(handles.KindLabelList, &labelList{})
}

// LabelListCount returns the number of labels in the list.
func (b *Bridge) LabelListCount(h Handle) (int, error) {
	l, err := get[*labelList](b, "LabelListCount", h, handles.KindLabelList)
	if err != nil {
		return 0, err
	}
	return len(l.labels), nil
}

// LabelListEntryAt returns an owned copy of the label at index i.
func (b *Bridge) LabelListEntryAt(h Handle, i int) (Handle, error) {
	l, err := get[*labelList](b, "LabelListEntryAt", h, handles.KindLabelList)
	if err != nil {
		return handles.Null, err
	}
	if err := checkIndex("LabelListEntryAt", i, len(l.labels)); err != nil {
		return handles.Null, b.fail("LabelListEntryAt", err)
	}
	label := l.labels[i]
	return b.arena.Insert(handles.KindLabel, &label), nil
}

// LabelListAdd appends a copy of label.
func (b *Bridge) LabelListAdd(h, label Handle) error {
	l, err := getMut[*labelList](b, "LabelListAdd", h, handles.KindLabelList)
	if err != nil {
		return err
	}
	lb, err := get[*models.Label](b, "LabelListAdd", label, handles.KindLabel)
	if err != nil {
		return err
	}
	l.labels = append(l.labels, *lb)
	return nil
}

// LabelListDestroy releases the list and every label it owns.
func (b *Bridge) LabelListDestroy(h Handle) error {
	_, err := b.destroy("LabelListDestroy", h, handles.KindLabelList)
	return err
}

// labelsOf copies the labels held by h. The null handle is an empty set.
func (b *Bridge) labelsOf(op string, h Handle) ([]models.Label, error) {
	if h.IsNull() {
		return nil, nil
	}
	l, err := get[*labelList](b, op, h, handles.KindLabelList)
	if err != nil {
		return nil, err
	}
	out := make([]models.Label, len(l.labels))
	copy(out, l.labels)
	return out, nil
}

// =====================================================
// Category lists
// =====================================================

// CategoryListNew creates an empty category list.
func (b *Bridge) CategoryListNew() Handle {
	return b.arena.Insert(handles.KindCategoryList, &categoryList{})
}

// CategoryListCount returns the number of categories in the list.
func (b *Bridge) CategoryListCount(h Handle) (int, error) {
	l, err := get[*categoryList](b, "CategoryListCount", h, handles.KindCategoryList)
	if err != nil {
		return 0, err
	}
	return len(l.categories), nil
}

// CategoryListEntryAt returns an owned clone of the category at index i.
func (b *Bridge) CategoryListEntryAt(h Handle, i int) (Handle, error) {
	l, err := get[*categoryList](b, "CategoryListEntryAt", h, handles.KindCategoryList)
	if err != nil {
		return handles.Null, err
	}
	if err := checkIndex("CategoryListEntryAt", i, len(l.categories)); err != nil {
		return handles.Null, b.fail("CategoryListEntryAt", err)
	}
	cat := l.categories[i].Clone()
	return b.arena.Insert(handles.KindCategory, &cat), nil
}

// CategoryListAdd appends a clone of category. Neither handle is consumed.
func (b *Bridge) CategoryListAdd(h, category Handle) error {
	l, err := getMut[*categoryList](b, "CategoryListAdd", h, handles.KindCategoryList)
	if err != nil {
		return err
	}
	cat, err := get[*models.Category](b, "CategoryListAdd", category, handles.KindCategory)
	if err != nil {
		return err
	}
	l.categories = append(l.categories, cat.Clone())
	return nil
}

// CategoryListDestroy releases the list and every category it owns.
func (b *Bridge) CategoryListDestroy(h Handle) error {
	_, err := b.destroy("CategoryListDestroy", h, handles.KindCategoryList)
	return err
}
