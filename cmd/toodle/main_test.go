package main

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kimhsiao/toodle/internal/bridge"
	"github.com/kimhsiao/toodle/internal/config"
)

func openStore(t *testing.T) (*bridge.Bridge, bridge.Handle) {
	t.Helper()
	b := bridge.New(config.Default())
	t.Cleanup(func() { b.Close() })
	store, err := b.StoreOpen(":memory:")
	require.NoError(t, err)
	return b, store
}

func TestLoadRows(t *testing.T) {
	b, store := openStore(t)

	rows, err := loadRows(b, store)
	require.NoError(t, err)
	assert.Empty(t, rows)

	require.NoError(t, add(b, store, "Milk"))
	require.NoError(t, add(b, store, "Eggs"))

	rows, err = loadRows(b, store)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Milk", rows[0].Name)
	assert.False(t, rows[0].Done)
	assert.Equal(t, 1, b.Live(), "only the store handle stays live")
}

func TestToggle(t *testing.T) {
	b, store := openStore(t)
	require.NoError(t, add(b, store, "Milk"))

	labels := b.LabelListNew()
	dairy := b.LabelNew("dairy", "")
	require.NoError(t, b.LabelListAdd(labels, dairy))
	rows, _ := loadRows(b, store)
	item, err := b.StoreItemForUUID(store, rows[0].UUID)
	require.NoError(t, err)
	require.NoError(t, b.StoreUpdateItem(store, item, "Milk", nil, nil, labels))
	for _, err := range []error{b.ItemDestroy(item), b.LabelDestroy(dairy), b.LabelListDestroy(labels)} {
		require.NoError(t, err)
	}

	now := time.Unix(1700000000, 0)
	require.NoError(t, toggle(b, store, rows[0].UUID, now))
	rows, err = loadRows(b, store)
	require.NoError(t, err)
	assert.True(t, rows[0].Done)
	assert.Equal(t, []string{"dairy"}, rows[0].Labels, "labels survive a toggle")

	require.NoError(t, toggle(b, store, rows[0].UUID, now))
	rows, _ = loadRows(b, store)
	assert.False(t, rows[0].Done)

	assert.Error(t, toggle(b, store, "9b2c1e4a-1f7e-4c7a-9a43-0d6b0c8f1e11", now))
	assert.Equal(t, 1, b.Live())
}

func TestPrintPlain(t *testing.T) {
	due := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := []row{
		{Name: "Milk", Due: &due, Labels: []string{"dairy"}},
		{Name: "Eggs", Done: true},
	}

	var buf bytes.Buffer
	printPlain(&buf, rows)
	assert.Equal(t, "☐ Milk (due 2024-03-01) [dairy]\n☑ Eggs\n1 done, 1 pending, 2 total\n", buf.String())
}

func TestModel_addAndToggle(t *testing.T) {
	b, store := openStore(t)

	var m tea.Model = newModel(b, store, nil)
	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")})
	require.True(t, m.(model).adding)

	mm := m.(model)
	mm.ti.SetValue("Bread")
	m, _ = mm.Update(tea.KeyMsg{Type: tea.KeyEnter})
	mm = m.(model)
	require.NoError(t, mm.err)
	assert.False(t, mm.adding)
	require.Len(t, mm.list.Items(), 1)

	m, _ = mm.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")})
	mm = m.(model)
	require.NoError(t, mm.err)
	it := mm.list.Items()[0].(listItem)
	assert.True(t, it.Done)

	_, cmd := mm.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestRun_plain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "toodle.db")
	require.NoError(t, run([]string{"-store", path, "-add", "Milk"}))
	require.NoError(t, run([]string{"-store", path, "-plain"}))
	assert.Error(t, run([]string{"-store", path, "-sync", "ws://127.0.0.1:1/sync", "-user", "bogus"}))
}
