// Package db provides unit tests for repository operations.
package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/kimhsiao/toodle/internal/errors"
	"github.com/kimhsiao/toodle/internal/models"
	"github.com/kimhsiao/toodle/internal/uuid"
)

// setupRepo creates a migrated in-memory store for testing.
func setupRepo(t *testing.T) *Repository {
	t.Helper()
	database, err := OpenAndMigrate(MemoryURI, Options{})
	require.NoError(t, err)
	repo := NewRepository(database.DB)
	t.Cleanup(func() {
		repo.Close()
		database.Close()
	})
	return repo
}

func ptime(sec int64) *time.Time {
	t := time.Unix(sec, 0)
	return &t
}

func TestRepository_CreateAndFetchItem(t *testing.T) {
	repo := setupRepo(t)

	item, err := repo.CreateAndFetchItem("Milk", ptime(1700000000))
	require.NoError(t, err)

	require.NotNil(t, item.ID)
	assert.True(t, uuid.IsValid(item.UUID.String()))
	assert.Equal(t, "Milk", item.Name)
	require.NotNil(t, item.DueDate)
	assert.Equal(t, int64(1700000000), item.DueDate.Unix())
	assert.Nil(t, item.CompletionDate)
	assert.Empty(t, item.Labels)
	assert.NotZero(t, item.UpdatedAt)

	again, err := repo.FetchItem(item.UUID)
	require.NoError(t, err)
	assert.Equal(t, item, again)
}

func TestRepository_FetchItem_notFound(t *testing.T) {
	repo := setupRepo(t)

	_, err := repo.FetchItem(models.UUID(uuid.New()))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestRepository_FetchItems_order(t *testing.T) {
	repo := setupRepo(t)

	for _, name := range []string{"Milk", "Eggs", "Bread"} {
		_, err := repo.CreateAndFetchItem(name, nil)
		require.NoError(t, err)
	}

	items, err := repo.FetchItems()
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "Milk", items[0].Name)
	assert.Equal(t, "Eggs", items[1].Name)
	assert.Equal(t, "Bread", items[2].Name)
}

func TestRepository_FetchItems_empty(t *testing.T) {
	repo := setupRepo(t)

	items, err := repo.FetchItems()
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestRepository_UpdateItem_labels(t *testing.T) {
	repo := setupRepo(t)
	require.NoError(t, repo.CreateLabel(&models.Label{Name: "dairy", Color: "#ffffff"}))

	item, err := repo.CreateAndFetchItem("Milk", nil)
	require.NoError(t, err)

	item.Name = "Oat milk"
	item.CompletionDate = ptime(1700000100)
	item.Labels = []models.Label{{Name: "dairy", Color: "#000000"}, {Name: "shop"}}
	require.NoError(t, repo.UpdateItem(item))

	got, err := repo.FetchItem(item.UUID)
	require.NoError(t, err)
	assert.Equal(t, "Oat milk", got.Name)
	require.NotNil(t, got.CompletionDate)
	assert.Equal(t, int64(1700000100), got.CompletionDate.Unix())
	require.Len(t, got.Labels, 2)
	assert.Equal(t, models.Label{Name: "dairy", Color: "#ffffff"}, got.Labels[0], "existing label keeps its color")
	assert.Equal(t, models.Label{Name: "shop", Color: models.DefaultLabelColor}, got.Labels[1])

	item.Labels = nil
	require.NoError(t, repo.UpdateItem(item))
	got, err = repo.FetchItem(item.UUID)
	require.NoError(t, err)
	assert.Empty(t, got.Labels)

	labels, err := repo.FetchLabels()
	require.NoError(t, err)
	assert.Len(t, labels, 2, "labels outlive their items")
}

func TestRepository_UpdateItem_notFound(t *testing.T) {
	repo := setupRepo(t)

	err := repo.UpdateItem(&models.Item{UUID: models.UUID(uuid.New()), Name: "ghost"})
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestRepository_UpdateItemByUUID(t *testing.T) {
	repo := setupRepo(t)

	item, err := repo.CreateAndFetchItem("Milk", ptime(1700000000))
	require.NoError(t, err)
	item.Labels = []models.Label{{Name: "dairy"}}
	require.NoError(t, repo.UpdateItem(item))

	require.NoError(t, repo.UpdateItemByUUID(item.UUID, "Eggs", nil, ptime(1700000200)))

	got, err := repo.FetchItem(item.UUID)
	require.NoError(t, err)
	assert.Equal(t, "Eggs", got.Name)
	assert.Nil(t, got.DueDate)
	require.NotNil(t, got.CompletionDate)
	assert.True(t, got.HasLabel("dairy"), "labels are left untouched")

	err = repo.UpdateItemByUUID(models.UUID(uuid.New()), "x", nil, nil)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestRepository_UpsertItem(t *testing.T) {
	repo := setupRepo(t)

	remote := &models.Item{
		UUID:      models.UUID(uuid.New()),
		Name:      "Remote",
		Labels:    []models.Label{{Name: "sync"}},
		UpdatedAt: 42,
	}
	require.NoError(t, repo.UpsertItem(remote))
	require.NotNil(t, remote.ID)

	got, err := repo.FetchItem(remote.UUID)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.UpdatedAt, "upsert keeps the given timestamp")
	assert.True(t, got.HasLabel("sync"))

	remote.Name = "Remote v2"
	remote.UpdatedAt = 43
	require.NoError(t, repo.UpsertItem(remote))

	items, err := repo.FetchItems()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Remote v2", items[0].Name)
	assert.Equal(t, int64(43), items[0].UpdatedAt)
}

func TestRepository_CreateLabel_duplicate(t *testing.T) {
	repo := setupRepo(t)

	label := &models.Label{Name: "urgent"}
	require.NoError(t, repo.CreateLabel(label))
	assert.Equal(t, models.DefaultLabelColor, label.Color)

	err := repo.CreateLabel(&models.Label{Name: "urgent", Color: "#ff0000"})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrDuplicate))

	labels, err := repo.FetchLabels()
	require.NoError(t, err)
	require.Len(t, labels, 1)
	assert.Equal(t, models.DefaultLabelColor, labels[0].Color)
}

func TestRepository_UpsertLabel(t *testing.T) {
	repo := setupRepo(t)

	require.NoError(t, repo.UpsertLabel(models.Label{Name: "b", Color: "#111111"}))
	require.NoError(t, repo.UpsertLabel(models.Label{Name: "a", Color: "#222222"}))
	require.NoError(t, repo.UpsertLabel(models.Label{Name: "b", Color: "#333333"}))

	labels, err := repo.FetchLabels()
	require.NoError(t, err)
	assert.Equal(t, []models.Label{
		{Name: "a", Color: "#222222"},
		{Name: "b", Color: "#333333"},
	}, labels)
}

func TestRepository_SaveCategory(t *testing.T) {
	repo := setupRepo(t)

	milk, err := repo.CreateAndFetchItem("Milk", nil)
	require.NoError(t, err)

	cat := models.NewCategory("Groceries")
	cat.AddItem(*milk)
	cat.AddItem(models.Item{Name: "Eggs"})
	require.NoError(t, repo.SaveCategory(&cat))
	assert.True(t, cat.IsSaved())

	cats, err := repo.FetchCategories()
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, cat.ID, cats[0].ID)
	assert.Equal(t, "Groceries", cats[0].Name)
	require.Len(t, cats[0].Items, 2)
	assert.Equal(t, "Milk", cats[0].Items[0].Name)
	assert.Equal(t, milk.UUID, cats[0].Items[0].UUID)
	assert.Equal(t, "Eggs", cats[0].Items[1].Name)

	items, err := repo.FetchItems()
	require.NoError(t, err)
	assert.Len(t, items, 2, "unsaved category items are created")

	// Saving again renames and replaces membership.
	cat.Name = "Shopping"
	cat.Items = cat.Items[1:]
	require.NoError(t, repo.SaveCategory(&cat))

	cats, err = repo.FetchCategories()
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "Shopping", cats[0].Name)
	require.Len(t, cats[0].Items, 1)
	assert.Equal(t, "Eggs", cats[0].Items[0].Name)
}

func TestRepository_SaveCategory_unknownID(t *testing.T) {
	repo := setupRepo(t)

	cat := models.Category{ID: 77, Name: "gone"}
	err := repo.SaveCategory(&cat)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestRepository_FetchCategories_empty(t *testing.T) {
	repo := setupRepo(t)

	cats, err := repo.FetchCategories()
	require.NoError(t, err)
	assert.Empty(t, cats)
}

func TestRepository_ConflictLog(t *testing.T) {
	repo := setupRepo(t)

	entry := &models.ConflictLog{
		ItemUUID:        "u-1",
		LocalTimestamp:  10,
		RemoteTimestamp: 20,
		Resolution:      "remote_wins",
	}
	require.NoError(t, repo.CreateConflictLog(entry))
	assert.NotZero(t, entry.DetectedAt)

	logs, err := repo.FetchConflictLogs()
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, *entry, logs[0])
}

func TestRepository_PrepareStmt_cache(t *testing.T) {
	repo := setupRepo(t)

	s1, err := repo.PrepareStmt("SELECT 1")
	require.NoError(t, err)
	s2, err := repo.PrepareStmt("SELECT 1")
	require.NoError(t, err)
	assert.Same(t, s1, s2)

	require.NoError(t, repo.Close())

	s3, err := repo.PrepareStmt("SELECT 1")
	require.NoError(t, err)
	assert.NotSame(t, s1, s3, "Close empties the cache")
}
