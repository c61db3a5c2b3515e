package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kimhsiao/toodle/internal/bridge"
)

// listItem adapts a row to bubbles/list.Item.
type listItem struct{ row }

func (i listItem) Title() string       { return i.line() }
func (i listItem) Description() string { return "" }
func (i listItem) FilterValue() string { return i.Name }

type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, _ := item.(listItem)
	box := mutedStyle.Render(boxUnchecked)
	text := it.Name
	if it.Done {
		box = successStyle.Render(boxChecked)
		text = doneStyle.Render(text)
	}
	if it.Due != nil {
		text += " " + mutedStyle.Render("due "+it.Due.Format("2006-01-02"))
	}
	if len(it.Labels) > 0 {
		text += " " + accentStyle.Render(strings.Join(it.Labels, " "))
	}

	prefix := "  "
	if index == m.Index() {
		prefix = selectedStyle.Render("> ")
	}
	fmt.Fprintln(w, prefix+box+" "+text)
}

type model struct {
	b     *bridge.Bridge
	store bridge.Handle

	list   list.Model
	ti     textinput.Model
	adding bool
	err    error

	width, height int
}

func newModel(b *bridge.Bridge, store bridge.Handle, rows []row) model {
	l := list.New(nil, itemDelegate{}, 0, 0)
	l.SetShowHelp(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle
	l.Styles.HelpStyle = helpStyle
	l.Styles.PaginationStyle = helpStyle
	l.FilterInput.Prompt = "/ "
	l.SetStatusBarItemName("item", "items")

	addBind := key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add"))
	toggleBind := key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "done"))
	l.AdditionalShortHelpKeys = func() []key.Binding { return []key.Binding{addBind, toggleBind} }
	l.AdditionalFullHelpKeys = func() []key.Binding { return []key.Binding{addBind, toggleBind} }

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "New item name..."
	ti.CharLimit = 200

	m := model{b: b, store: store, list: l, ti: ti}
	m.setRows(rows)
	return m
}

func (m *model) setRows(rows []row) {
	items := make([]list.Item, 0, len(rows))
	for _, r := range rows {
		items = append(items, listItem{r})
	}
	m.list.SetItems(items)

	done, pending := stats(rows)
	m.list.Title = fmt.Sprintf("%s   %s %d  %s %d  %s %d",
		titleStyle.Render("Items"),
		successStyle.Render("✔"), done,
		pendingStyle.Render("•"), pending,
		accentStyle.Render("Total"), len(rows),
	)
}

func (m *model) reload() {
	rows, err := loadRows(m.b, m.store)
	if err != nil {
		m.err = err
		return
	}
	m.setRows(rows)
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if size, ok := msg.(tea.WindowSizeMsg); ok {
		m.width, m.height = size.Width, size.Height
		m.list.SetSize(size.Width-4, size.Height-6)
		return m, nil
	}

	if m.adding {
		if k, ok := msg.(tea.KeyMsg); ok {
			switch k.String() {
			case "enter":
				name := strings.TrimSpace(m.ti.Value())
				if name == "" {
					m.err = fmt.Errorf("name cannot be empty")
					return m, nil
				}
				m.err = add(m.b, m.store, name)
				m.reload()
				m.adding = false
				m.ti.SetValue("")
				m.ti.Blur()
				return m, nil
			case "esc":
				m.adding = false
				m.ti.SetValue("")
				m.ti.Blur()
				return m, nil
			}
		}
		var cmd tea.Cmd
		m.ti, cmd = m.ti.Update(msg)
		return m, cmd
	}

	if k, ok := msg.(tea.KeyMsg); ok && m.list.FilterState() != list.Filtering {
		switch k.String() {
		case "q", "esc":
			return m, tea.Quit
		case " ":
			if it, ok := m.list.SelectedItem().(listItem); ok {
				m.err = toggle(m.b, m.store, it.UUID, time.Now())
				m.reload()
			}
			return m, nil
		case "a":
			m.adding = true
			m.err = nil
			m.ti.Focus()
			return m, textinput.Blink
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m model) View() string {
	content := m.list.View()
	if m.adding {
		content += "\n" + panelStyle.Render("Add item\n"+m.ti.View())
	}
	if m.err != nil {
		content += "\n" + errorStyle.Render(m.err.Error())
	}
	return panelStyle.Render(content)
}

func runInteractive(b *bridge.Bridge, store bridge.Handle, rows []row) error {
	_, err := tea.NewProgram(newModel(b, store, rows), tea.WithAltScreen()).Run()
	return err
}
