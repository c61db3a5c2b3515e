package db

import (
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	apperrors "github.com/kimhsiao/toodle/internal/errors"
	"github.com/kimhsiao/toodle/internal/models"
	"github.com/kimhsiao/toodle/internal/uuid"
)

// Repository provides record operations for items, labels and categories.
type Repository struct {
	db *sql.DB

	// Prepared statement cache for the single-row lookups.
	stmtCache sync.Map // map[string]*sql.Stmt
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// NewRepository creates a new Repository instance.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// PrepareStmt gets or creates a prepared statement from cache.
func (r *Repository) PrepareStmt(query string) (*sql.Stmt, error) {
	if stmt, ok := r.stmtCache.Load(query); ok {
		return stmt.(*sql.Stmt), nil
	}

	stmt, err := r.db.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}

	actual, loaded := r.stmtCache.LoadOrStore(query, stmt)
	if loaded {
		stmt.Close()
		return actual.(*sql.Stmt), nil
	}
	return stmt, nil
}

// Close closes all cached prepared statements.
// Should be called when the Repository is no longer needed.
func (r *Repository) Close() error {
	var firstErr error
	r.stmtCache.Range(func(key, value interface{}) bool {
		stmt := value.(*sql.Stmt)
		if err := stmt.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		r.stmtCache.Delete(key)
		return true
	})
	return firstErr
}

func (r *Repository) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := r.db.Begin()
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "failed to commit", err)
	}
	return nil
}

// =====================================================
// Item Operations
// =====================================================

// CreateItem inserts item and its labels. A missing UUID is generated, the
// row id and UpdatedAt are written back into item.
func (r *Repository) CreateItem(item *models.Item) error {
	if item.UUID == "" {
		item.UUID = models.UUID(uuid.New())
	}
	item.Touch()

	return r.withTx(func(tx *sql.Tx) error {
		return insertItem(tx, item)
	})
}

// CreateAndFetchItem creates an item with a fresh UUID and reads it back.
func (r *Repository) CreateAndFetchItem(name string, due *time.Time) (*models.Item, error) {
	item := &models.Item{Name: name, DueDate: due}
	if err := r.CreateItem(item); err != nil {
		return nil, err
	}
	return r.FetchItem(item.UUID)
}

// FetchItem returns the item with the given UUID, or a NOT_FOUND error.
func (r *Repository) FetchItem(id models.UUID) (*models.Item, error) {
	stmt, err := r.PrepareStmt(`
	SELECT id, uuid, name, due_date, completion_date, updated_at
	FROM items WHERE uuid = ?
	`)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to fetch item", err)
	}

	item, err := scanItem(stmt.QueryRow(id))
	if err == sql.ErrNoRows {
		return nil, apperrors.Newf(apperrors.ErrNotFound, "item %s not found", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to fetch item", err)
	}

	labels, err := labelsByItem(r.db, []int64{*item.ID})
	if err != nil {
		return nil, err
	}
	item.Labels = labels[*item.ID]
	return item, nil
}

// FetchItems returns every item in insertion order.
func (r *Repository) FetchItems() ([]models.Item, error) {
	return fetchItems(r.db)
}

// UpdateItem writes the name, dates and label set of item to the row with
// the same UUID. UpdatedAt on item is refreshed.
func (r *Repository) UpdateItem(item *models.Item) error {
	item.Touch()
	return r.withTx(func(tx *sql.Tx) error {
		rowID, err := updateItemRow(tx, item.UUID, item.Name, item.DueDate, item.CompletionDate, item.UpdatedAt)
		if err != nil {
			return err
		}
		return replaceItemLabels(tx, rowID, item.Labels)
	})
}

// UpdateItemByUUID writes name and dates to the item with the given UUID,
// leaving its labels untouched.
func (r *Repository) UpdateItemByUUID(id models.UUID, name string, due, completion *time.Time) error {
	return r.withTx(func(tx *sql.Tx) error {
		_, err := updateItemRow(tx, id, name, due, completion, time.Now().Unix())
		return err
	})
}

// UpsertItem stores item as-is, keeping its UpdatedAt. Used when applying
// remote changes during sync.
func (r *Repository) UpsertItem(item *models.Item) error {
	return r.withTx(func(tx *sql.Tx) error {
		rowID, err := updateItemRow(tx, item.UUID, item.Name, item.DueDate, item.CompletionDate, item.UpdatedAt)
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return insertItem(tx, item)
		}
		if err != nil {
			return err
		}
		item.ID = &rowID
		return replaceItemLabels(tx, rowID, item.Labels)
	})
}

func insertItem(q querier, item *models.Item) error {
	res, err := q.Exec(`
	INSERT INTO items (uuid, name, due_date, completion_date, updated_at)
	VALUES (?, ?, ?, ?, ?)
	`, item.UUID, item.Name, epoch(item.DueDate), epoch(item.CompletionDate), item.UpdatedAt)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "failed to insert item", err)
	}
	rowID, err := res.LastInsertId()
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "failed to read item id", err)
	}
	item.ID = &rowID
	return replaceItemLabels(q, rowID, item.Labels)
}

func updateItemRow(q querier, id models.UUID, name string, due, completion *time.Time, updatedAt int64) (int64, error) {
	var rowID int64
	err := q.QueryRow(`SELECT id FROM items WHERE uuid = ?`, id).Scan(&rowID)
	if err == sql.ErrNoRows {
		return 0, apperrors.Newf(apperrors.ErrNotFound, "item %s not found", id)
	}
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrDatabase, "failed to look up item", err)
	}

	_, err = q.Exec(`
	UPDATE items SET name = ?, due_date = ?, completion_date = ?, updated_at = ?
	WHERE id = ?
	`, name, epoch(due), epoch(completion), updatedAt, rowID)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrDatabase, "failed to update item", err)
	}
	return rowID, nil
}

// replaceItemLabels links exactly labels to the item. Labels unknown to the
// store are created; existing labels keep their stored color.
func replaceItemLabels(q querier, itemID int64, labels []models.Label) error {
	if _, err := q.Exec(`DELETE FROM item_labels WHERE item_id = ?`, itemID); err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "failed to clear item labels", err)
	}
	for _, l := range labels {
		color := l.Color
		if color == "" {
			color = models.DefaultLabelColor
		}
		if _, err := q.Exec(`INSERT INTO labels (name, color) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`, l.Name, color); err != nil {
			return apperrors.Wrap(apperrors.ErrDatabase, "failed to store label", err)
		}
		if _, err := q.Exec(`
		INSERT OR IGNORE INTO item_labels (item_id, label_id)
		SELECT ?, id FROM labels WHERE name = ?
		`, itemID, l.Name); err != nil {
			return apperrors.Wrap(apperrors.ErrDatabase, "failed to link label", err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*models.Item, error) {
	var item models.Item
	var rowID int64
	var due, completion sql.NullInt64
	if err := row.Scan(&rowID, &item.UUID, &item.Name, &due, &completion, &item.UpdatedAt); err != nil {
		return nil, err
	}
	item.ID = &rowID
	item.DueDate = fromEpoch(due)
	item.CompletionDate = fromEpoch(completion)
	return &item, nil
}

func fetchItems(q querier) ([]models.Item, error) {
	rows, err := q.Query(`
	SELECT id, uuid, name, due_date, completion_date, updated_at
	FROM items ORDER BY id
	`)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to list items", err)
	}

	var items []models.Item
	var ids []int64
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			rows.Close()
			return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to scan item", err)
		}
		items = append(items, *item)
		ids = append(ids, *item.ID)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to list items", err)
	}

	labels, err := labelsByItem(q, ids)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Labels = labels[*items[i].ID]
	}
	return items, nil
}

// labelsByItem loads label sets for the given item row ids, sorted by name.
func labelsByItem(q querier, ids []int64) (map[int64][]models.Label, error) {
	out := make(map[int64][]models.Label, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	rows, err := q.Query(`
	SELECT il.item_id, l.name, l.color
	FROM item_labels il JOIN labels l ON l.id = il.label_id
	ORDER BY il.item_id, l.name
	`)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to load labels", err)
	}
	defer rows.Close()

	for rows.Next() {
		var itemID int64
		var l models.Label
		if err := rows.Scan(&itemID, &l.Name, &l.Color); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to scan label", err)
		}
		if want[itemID] {
			out[itemID] = append(out[itemID], l)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to load labels", err)
	}
	return out, nil
}

// =====================================================
// Label Operations
// =====================================================

// CreateLabel inserts a label. A name already in the store is a DUPLICATE error.
func (r *Repository) CreateLabel(label *models.Label) error {
	if label.Color == "" {
		label.Color = models.DefaultLabelColor
	}
	return r.withTx(func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRow(`SELECT COUNT(*) FROM labels WHERE name = ?`, label.Name).Scan(&n); err != nil {
			return apperrors.Wrap(apperrors.ErrDatabase, "failed to check label", err)
		}
		if n > 0 {
			return apperrors.Newf(apperrors.ErrDuplicate, "label %q already exists", label.Name)
		}
		if _, err := tx.Exec(`INSERT INTO labels (name, color) VALUES (?, ?)`, label.Name, label.Color); err != nil {
			return apperrors.Wrap(apperrors.ErrDatabase, "failed to insert label", err)
		}
		return nil
	})
}

// UpsertLabel inserts label or overwrites the color of the label with its name.
func (r *Repository) UpsertLabel(label models.Label) error {
	_, err := r.db.Exec(`
	INSERT INTO labels (name, color) VALUES (?, ?)
	ON CONFLICT(name) DO UPDATE SET color = excluded.color
	`, label.Name, label.Color)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "failed to upsert label", err)
	}
	return nil
}

// FetchLabels returns every label sorted by name.
func (r *Repository) FetchLabels() ([]models.Label, error) {
	rows, err := r.db.Query(`SELECT name, color FROM labels ORDER BY name`)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to list labels", err)
	}
	defer rows.Close()

	var labels []models.Label
	for rows.Next() {
		var l models.Label
		if err := rows.Scan(&l.Name, &l.Color); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to scan label", err)
		}
		labels = append(labels, l)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to list labels", err)
	}
	return labels, nil
}

// =====================================================
// Category Operations
// =====================================================

// SaveCategory inserts an unsaved category or renames a saved one, then
// replaces its item membership. Items not yet in the store are created.
// The assigned id is written back into cat.
func (r *Repository) SaveCategory(cat *models.Category) error {
	return r.withTx(func(tx *sql.Tx) error {
		if !cat.IsSaved() {
			res, err := tx.Exec(`INSERT INTO categories (name) VALUES (?)`, cat.Name)
			if err != nil {
				return apperrors.Wrap(apperrors.ErrDatabase, "failed to insert category", err)
			}
			id, err := res.LastInsertId()
			if err != nil {
				return apperrors.Wrap(apperrors.ErrDatabase, "failed to read category id", err)
			}
			cat.ID = id
		} else {
			res, err := tx.Exec(`UPDATE categories SET name = ? WHERE id = ?`, cat.Name, cat.ID)
			if err != nil {
				return apperrors.Wrap(apperrors.ErrDatabase, "failed to update category", err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return apperrors.Newf(apperrors.ErrNotFound, "category %d not found", cat.ID)
			}
		}

		if _, err := tx.Exec(`DELETE FROM category_items WHERE category_id = ?`, cat.ID); err != nil {
			return apperrors.Wrap(apperrors.ErrDatabase, "failed to clear category items", err)
		}
		for pos := range cat.Items {
			item := &cat.Items[pos]
			var rowID int64
			err := tx.QueryRow(`SELECT id FROM items WHERE uuid = ?`, item.UUID).Scan(&rowID)
			switch {
			case err == sql.ErrNoRows || item.UUID == "":
				if item.UUID == "" {
					item.UUID = models.UUID(uuid.New())
				}
				if item.UpdatedAt == 0 {
					item.Touch()
				}
				if err := insertItem(tx, item); err != nil {
					return err
				}
				rowID = *item.ID
			case err != nil:
				return apperrors.Wrap(apperrors.ErrDatabase, "failed to look up item", err)
			default:
				item.ID = &rowID
			}
			if _, err := tx.Exec(`
			INSERT OR IGNORE INTO category_items (category_id, item_id, position) VALUES (?, ?, ?)
			`, cat.ID, rowID, pos); err != nil {
				return apperrors.Wrap(apperrors.ErrDatabase, "failed to link category item", err)
			}
		}
		return nil
	})
}

// FetchCategories returns every saved category with its items in position order.
func (r *Repository) FetchCategories() ([]models.Category, error) {
	rows, err := r.db.Query(`SELECT id, name FROM categories ORDER BY id`)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to list categories", err)
	}
	var cats []models.Category
	for rows.Next() {
		c := models.Category{Items: []models.Item{}}
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			rows.Close()
			return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to scan category", err)
		}
		cats = append(cats, c)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to list categories", err)
	}
	if len(cats) == 0 {
		return cats, nil
	}

	items, err := fetchItems(r.db)
	if err != nil {
		return nil, err
	}
	byRow := make(map[int64]models.Item, len(items))
	for _, it := range items {
		byRow[*it.ID] = it
	}

	type member struct {
		category int64
		item     int64
		position int
	}
	rows, err = r.db.Query(`SELECT category_id, item_id, position FROM category_items`)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to load category items", err)
	}
	defer rows.Close()
	var members []member
	for rows.Next() {
		var m member
		if err := rows.Scan(&m.category, &m.item, &m.position); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to scan category item", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to load category items", err)
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].category != members[j].category {
			return members[i].category < members[j].category
		}
		return members[i].position < members[j].position
	})

	index := make(map[int64]int, len(cats))
	for i, c := range cats {
		index[c.ID] = i
	}
	for _, m := range members {
		i, ok := index[m.category]
		if !ok {
			continue
		}
		if it, ok := byRow[m.item]; ok {
			cats[i].Items = append(cats[i].Items, it.Clone())
		}
	}
	return cats, nil
}

// =====================================================
// ConflictLog Operations
// =====================================================

// CreateConflictLog records a resolved sync conflict.
func (r *Repository) CreateConflictLog(log *models.ConflictLog) error {
	log.DetectedAt = time.Now().Unix()

	_, err := r.db.Exec(`
	INSERT INTO conflict_log (item_uuid, local_timestamp, remote_timestamp, resolution, detected_at)
	VALUES (?, ?, ?, ?, ?)
	`, log.ItemUUID, log.LocalTimestamp, log.RemoteTimestamp, log.Resolution, log.DetectedAt)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "failed to record conflict", err)
	}
	return nil
}

// FetchConflictLogs returns every recorded conflict, oldest first.
func (r *Repository) FetchConflictLogs() ([]models.ConflictLog, error) {
	rows, err := r.db.Query(`
	SELECT item_uuid, local_timestamp, remote_timestamp, resolution, detected_at
	FROM conflict_log ORDER BY id
	`)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to list conflicts", err)
	}
	defer rows.Close()

	var logs []models.ConflictLog
	for rows.Next() {
		var c models.ConflictLog
		if err := rows.Scan(&c.ItemUUID, &c.LocalTimestamp, &c.RemoteTimestamp, &c.Resolution, &c.DetectedAt); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to scan conflict", err)
		}
		logs = append(logs, c)
	}
	return logs, rows.Err()
}

func epoch(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}

func fromEpoch(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0)
	return &t
}
