package bridge

import (
	"context"
	"time"

	"github.com/kimhsiao/toodle/internal/db"
	apperrors "github.com/kimhsiao/toodle/internal/errors"
	"github.com/kimhsiao/toodle/internal/handles"
	"github.com/kimhsiao/toodle/internal/logging"
	"github.com/kimhsiao/toodle/internal/models"
	"github.com/kimhsiao/toodle/internal/sync"
	"github.com/kimhsiao/toodle/internal/sync/conflict"
	"github.com/kimhsiao/toodle/internal/uuid"
)

type store struct {
	db     *db.DB
	repo   *db.Repository
	engine *sync.SyncEngine
}

func (s *store) close() error {
	s.repo.Close()
	return s.db.Close()
}

// StoreOpen opens and migrates the store at uri. ":memory:" or "" opens a
// private in-memory store. Failures are STORE_INIT_FAILED.
func (b *Bridge) StoreOpen(uri string) (Handle, error) {
	database, err := db.OpenAndMigrate(uri, db.Options{BusyTimeoutMS: b.cfg.Store.BusyTimeoutMS})
	if err != nil {
		return handles.Null, b.fail("StoreOpen", apperrors.Wrap(apperrors.ErrStoreInit, "failed to open store", err))
	}
	repo := db.NewRepository(database.DB)
	s := &store{
		db:     database,
		repo:   repo,
		engine: sync.NewSyncEngine(repo, b.cfg.SyncTimeout(), conflict.ResolutionStrategy(b.cfg.Sync.Strategy)),
	}
	logging.Info("Store opened", map[string]interface{}{"uri": database.URI()})
	return b.arena.Insert(handles.KindStore, s), nil
}

// StoreDestroy closes the store.
func (b *Bridge) StoreDestroy(h Handle) error {
	v, err := b.destroy("StoreDestroy", h, handles.KindStore)
	if err != nil {
		return err
	}
	if err := v.(*store).close(); err != nil {
		return b.fail("StoreDestroy", apperrors.Wrap(apperrors.ErrDatabase, "failed to close store", err))
	}
	return nil
}

func (b *Bridge) storeOf(op string, h Handle) (*store, error) {
	return get[*store](b, op, h, handles.KindStore)
}

// StoreCreateItem creates an item in the store and returns a handle to the
// stored record.
func (b *Bridge) StoreCreateItem(h Handle, name string, due *time.Time) (Handle, error) {
	s, err := b.storeOf("StoreCreateItem", h)
	if err != nil {
		return handles.Null, err
	}
	item, err := s.repo.CreateAndFetchItem(name, due)
	if err != nil {
		return handles.Null, b.fail("StoreCreateItem", err)
	}
	logging.Debug("Item created", map[string]interface{}{"uuid": item.UUID})
	return b.arena.Insert(handles.KindItem, item), nil
}

// StoreAllItems returns an owned list of every stored item.
func (b *Bridge) StoreAllItems(h Handle) (Handle, error) {
	s, err := b.storeOf("StoreAllItems", h)
	if err != nil {
		return handles.Null, err
	}
	items, err := s.repo.FetchItems()
	if err != nil {
		return handles.Null, b.fail("StoreAllItems", err)
	}
	return b.arena.Insert(handles.KindItemList, &itemList{items: items}), nil
}

// WithAllItems lends fn a read-only list of every stored item, or the null
// handle when the store is empty. The list is released when fn returns,
// including when it fails or panics. A failure from fn is CALLBACK_FAILED.
func (b *Bridge) WithAllItems(h Handle, fn func(list Handle) error) error {
	s, err := b.storeOf("WithAllItems", h)
	if err != nil {
		return err
	}
	items, err := s.repo.FetchItems()
	if err != nil {
		return b.fail("WithAllItems", err)
	}

	list := handles.Null
	if len(items) > 0 {
		list = b.arena.Borrow(handles.KindItemList, &itemList{items: items})
		defer b.arena.Release(list, handles.KindItemList)
	}

	if err := fn(list); err != nil {
		return b.fail("WithAllItems", apperrors.Wrap(apperrors.ErrCallbackFailed, "scoped callback failed", err))
	}
	return nil
}

// StoreItemForUUID looks an item up by UUID. An unknown UUID returns the
// null handle and no error; a malformed one is INVALID_INPUT.
func (b *Bridge) StoreItemForUUID(h Handle, id string) (Handle, error) {
	s, err := b.storeOf("StoreItemForUUID", h)
	if err != nil {
		return handles.Null, err
	}
	canonical, err := uuid.Normalize(id)
	if err != nil {
		return handles.Null, b.fail("StoreItemForUUID", apperrors.Wrap(apperrors.ErrInvalid, "malformed item uuid", err))
	}
	item, err := s.repo.FetchItem(models.UUID(canonical))
	if apperrors.Is(err, apperrors.ErrNotFound) {
		return handles.Null, nil
	}
	if err != nil {
		return handles.Null, b.fail("StoreItemForUUID", err)
	}
	return b.arena.Insert(handles.KindItem, item), nil
}

// StoreUpdateItem writes name, dates and the label set in labels (null for
// none) to the stored record with the item's UUID. The item handle itself
// is left unchanged.
func (b *Bridge) StoreUpdateItem(h, item Handle, name string, due, completion *time.Time, labels Handle) error {
	s, err := b.storeOf("StoreUpdateItem", h)
	if err != nil {
		return err
	}
	it, err := get[*models.Item](b, "StoreUpdateItem", item, handles.KindItem)
	if err != nil {
		return err
	}
	set, err := b.labelsOf("StoreUpdateItem", labels)
	if err != nil {
		return err
	}

	update := &models.Item{
		UUID:           it.UUID,
		Name:           name,
		DueDate:        cloneTime(due),
		CompletionDate: cloneTime(completion),
		Labels:         set,
	}
	if err := s.repo.UpdateItem(update); err != nil {
		return b.fail("StoreUpdateItem", err)
	}
	return nil
}

// StoreUpdateItemByUUID writes name and dates to the stored item with the
// given UUID. An unknown UUID is NOT_FOUND.
func (b *Bridge) StoreUpdateItemByUUID(h Handle, id, name string, due, completion *time.Time) error {
	s, err := b.storeOf("StoreUpdateItemByUUID", h)
	if err != nil {
		return err
	}
	canonical, err := uuid.Normalize(id)
	if err != nil {
		return b.fail("StoreUpdateItemByUUID", apperrors.Wrap(apperrors.ErrInvalid, "malformed item uuid", err))
	}
	if err := s.repo.UpdateItemByUUID(models.UUID(canonical), name, due, completion); err != nil {
		return b.fail("StoreUpdateItemByUUID", err)
	}
	return nil
}

// StoreCreateLabel stores a new label. A name already in use is DUPLICATE.
func (b *Bridge) StoreCreateLabel(h Handle, name, color string) (Handle, error) {
	s, err := b.storeOf("StoreCreateLabel", h)
	if err != nil {
		return handles.Null, err
	}
	label := &models.Label{Name: name, Color: color}
	if err := s.repo.CreateLabel(label); err != nil {
		return handles.Null, b.fail("StoreCreateLabel", err)
	}
	return b.arena.Insert(handles.KindLabel, label), nil
}

// StoreAllLabels returns an owned list of every stored label.
func (b *Bridge) StoreAllLabels(h Handle) (Handle, error) {
	s, err := b.storeOf("StoreAllLabels", h)
	if err != nil {
		return handles.Null, err
	}
	labels, err := s.repo.FetchLabels()
	if err != nil {
		return handles.Null, b.fail("StoreAllLabels", err)
	}
	return b.arena.Insert(handles.KindLabelList, &labelList{labels: labels}), nil
}

// StoreSaveCategory persists the category and writes the assigned id back
// into the category handle.
func (b *Bridge) StoreSaveCategory(h, category Handle) error {
	s, err := b.storeOf("StoreSaveCategory", h)
	if err != nil {
		return err
	}
	cat, err := getMut[*models.Category](b, "StoreSaveCategory", category, handles.KindCategory)
	if err != nil {
		return err
	}

	saved := cat.Clone()
	if err := s.repo.SaveCategory(&saved); err != nil {
		return b.fail("StoreSaveCategory", err)
	}
	*cat = saved
	return nil
}

// StoreAllCategories returns an owned list of every saved category.
func (b *Bridge) StoreAllCategories(h Handle) (Handle, error) {
	s, err := b.storeOf("StoreAllCategories", h)
	if err != nil {
		return handles.Null, err
	}
	cats, err := s.repo.FetchCategories()
	if err != nil {
		return handles.Null, b.fail("StoreAllCategories", err)
	}
	return b.arena.Insert(handles.KindCategoryList, &categoryList{categories: cats}), nil
}

// StoreSync runs one sync round trip for userUUID against serverURL.
func (b *Bridge) StoreSync(ctx context.Context, h Handle, userUUID, serverURL string) error {
	s, err := b.storeOf("StoreSync", h)
	if err != nil {
		return err
	}
	user, err := uuid.Normalize(userUUID)
	if err != nil {
		return b.fail("StoreSync", apperrors.Wrap(apperrors.ErrInvalid, "malformed user uuid", err))
	}
	if serverURL == "" {
		return b.fail("StoreSync", apperrors.New(apperrors.ErrInvalid, "sync server uri is empty"))
	}

	result, err := s.engine.Sync(ctx, serverURL, user)
	if err != nil {
		return b.fail("StoreSync", err)
	}
	b.counters.RecordCount("sync.uploaded", int64(result.Uploaded))
	b.counters.RecordCount("sync.downloaded", int64(result.Downloaded))
	b.counters.RecordCount("sync.conflicts", int64(result.Conflicts))
	return nil
}
