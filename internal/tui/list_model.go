package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/balkashynov/relay/internal/models"
)

// ListAction is what the user chose on the session list
type ListAction int

const (
	ListQuit ListAction = iota
	ListOpen
	ListNew
)

// ListModel is the session picker
type ListModel struct {
	ctx     context.Context
	backend Backend

	width  int
	height int

	sessions []models.Session
	filtered []int // indexes into sessions matching the search
	selected int   // index into filtered

	focus        Focus
	searchActive bool
	searchQuery  string

	shimmer *ShimmerState

	currentPage     int
	sessionsPerPage int

	confirmDelete bool
	status        string
	err           error

	action   ListAction
	chosenID string
}

// Focus represents what UI element has focus
type Focus int

const (
	FocusTable Focus = iota
	FocusSearch
	FocusModal
)

type sessionsLoadedMsg struct {
	sessions []models.Session
	err      error
}

type sessionDeletedMsg struct {
	name string
	err  error
}

// NewListModel creates the session list
func NewListModel(ctx context.Context, backend Backend) ListModel {
	return ListModel{
		ctx:             ctx,
		backend:         backend,
		focus:           FocusTable,
		shimmer:         NewShimmerState(DefaultShimmerConfig()),
		sessionsPerPage: 10,
	}
}

// Action returns the user's choice once the program has exited
func (m ListModel) Action() (ListAction, string) {
	return m.action, m.chosenID
}

func (m ListModel) loadSessions() tea.Msg {
	sessions, err := m.backend.ListSessions(m.ctx)
	return sessionsLoadedMsg{sessions: sessions, err: err}
}

func (m ListModel) deleteSession(s models.Session) tea.Cmd {
	return func() tea.Msg {
		return sessionDeletedMsg{name: s.Name, err: m.backend.DeleteSession(m.ctx, s.ID)}
	}
}

func shimmerTick(s *ShimmerState) tea.Cmd {
	return tea.Tick(s.GetTickInterval(), func(time.Time) tea.Msg {
		return shimmerTickMsg{}
	})
}

// shimmerTickMsg is sent when shimmer should update
type shimmerTickMsg struct{}

// Init loads the sessions and starts the shimmer
func (m ListModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.loadSessions}
	if m.shimmer.ShouldTick() {
		cmds = append(cmds, shimmerTick(m.shimmer))
	}
	return tea.Batch(cmds...)
}

// Update handles messages
func (m ListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case shimmerTickMsg:
		if m.focus == FocusTable && m.shimmer.ShouldTick() {
			return m, shimmerTick(m.shimmer)
		}
		return m, nil

	case sessionsLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			if isAuthExpired(msg.err) {
				return m, tea.Quit
			}
			return m, nil
		}
		m.sessions = msg.sessions
		m.applyFilter()
		return m, nil

	case sessionDeletedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.status = fmt.Sprintf("Deleted %q", msg.name)
		return m, m.loadSessions

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// header, column headers, pagination, help, borders and margins
		m.sessionsPerPage = max(m.height-12, 3)
		m.clampPage()
		return m, nil

	case tea.KeyMsg:
		switch m.focus {
		case FocusSearch:
			return m.handleSearchKeys(msg)
		case FocusModal:
			return m.handleConfirmKeys(msg)
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "esc":
			if m.searchQuery != "" {
				m.searchQuery = ""
				m.applyFilter()
				return m, nil
			}
			return m, tea.Quit

		case "up", "k":
			return m.moveSelection(-1), nil

		case "down", "j":
			return m.moveSelection(1), nil

		case "left", "h":
			return m.changePage(-1), nil

		case "right", "l":
			return m.changePage(1), nil

		case "/":
			m.focus = FocusSearch
			m.searchActive = true
			m.shimmer.SetActive(false)
			return m, nil

		case "enter":
			if s, ok := m.current(); ok {
				m.action = ListOpen
				m.chosenID = s.ID
				return m, tea.Quit
			}
			return m, nil

		case "n":
			m.action = ListNew
			return m, tea.Quit

		case "d":
			if _, ok := m.current(); ok {
				m.focus = FocusModal
				m.confirmDelete = true
			}
			return m, nil

		case "r":
			m.status = ""
			m.err = nil
			return m, m.loadSessions
		}
	}

	return m, nil
}

func (m ListModel) handleSearchKeys(msg tea.KeyMsg) (ListModel, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.searchQuery = ""
		fallthrough
	case tea.KeyEnter:
		m.focus = FocusTable
		m.searchActive = false
		m.shimmer.SetActive(true)
		m.applyFilter()
		var cmd tea.Cmd
		if m.shimmer.ShouldTick() {
			cmd = shimmerTick(m.shimmer)
		}
		return m, cmd

	case tea.KeyBackspace:
		if r := []rune(m.searchQuery); len(r) > 0 {
			m.searchQuery = string(r[:len(r)-1])
		}
	case tea.KeyRunes, tea.KeySpace:
		m.searchQuery += string(msg.Runes)
	}
	m.applyFilter()
	return m, nil
}

func (m ListModel) handleConfirmKeys(msg tea.KeyMsg) (ListModel, tea.Cmd) {
	m.focus = FocusTable
	m.confirmDelete = false
	switch msg.String() {
	case "y", "Y", "enter":
		if s, ok := m.current(); ok {
			return m, m.deleteSession(s)
		}
	}
	return m, nil
}

// applyFilter matches the search against name, category and description
func (m *ListModel) applyFilter() {
	q := strings.ToLower(strings.TrimSpace(m.searchQuery))
	m.filtered = m.filtered[:0]
	for i, s := range m.sessions {
		if q == "" ||
			strings.Contains(strings.ToLower(s.Name), q) ||
			strings.Contains(strings.ToLower(s.Category), q) ||
			strings.Contains(strings.ToLower(s.Description), q) {
			m.filtered = append(m.filtered, i)
		}
	}
	if m.selected >= len(m.filtered) {
		m.selected = max(len(m.filtered)-1, 0)
	}
	m.clampPage()
}

func (m ListModel) current() (models.Session, bool) {
	if m.selected < 0 || m.selected >= len(m.filtered) {
		return models.Session{}, false
	}
	return m.sessions[m.filtered[m.selected]], true
}

func (m ListModel) pageCount() int {
	if m.sessionsPerPage <= 0 {
		return 1
	}
	return max((len(m.filtered)+m.sessionsPerPage-1)/m.sessionsPerPage, 1)
}

// clampPage keeps the current page on the selected row
func (m *ListModel) clampPage() {
	if m.sessionsPerPage > 0 {
		m.currentPage = m.selected / m.sessionsPerPage
	}
}

func (m ListModel) moveSelection(delta int) ListModel {
	next := m.selected + delta
	if next < 0 || next >= len(m.filtered) {
		return m
	}
	m.selected = next
	m.shimmer.Reset()
	m.clampPage()
	return m
}

func (m ListModel) changePage(delta int) ListModel {
	page := m.currentPage + delta
	if page < 0 || page >= m.pageCount() {
		return m
	}
	m.currentPage = page
	m.selected = min(page*m.sessionsPerPage, max(len(m.filtered)-1, 0))
	m.shimmer.Reset()
	return m
}

// View renders the TUI
func (m ListModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	leftWidth := m.width * 60 / 100
	rightWidth := m.width - leftWidth - 1

	content := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderSessionTable(leftWidth),
		" ",
		m.renderSessionDetails(rightWidth),
	)

	var bottom string
	switch {
	case m.searchActive:
		bottom = m.renderSearchBar()
	case m.confirmDelete:
		s, _ := m.current()
		bottom = lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorError)).
			Bold(true).
			Render(fmt.Sprintf("Delete %q and everything in it? y/N", s.Name))
	default:
		bottom = m.renderHelpBar()
	}

	return lipgloss.JoinVertical(lipgloss.Left, "", content, m.renderStatus(), bottom)
}

func (m ListModel) renderStatus() string {
	switch {
	case m.err != nil:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(ColorError)).Render("Error: " + m.err.Error())
	case m.status != "":
		return lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSuccess)).Render(m.status)
	}
	return ""
}

func (m ListModel) renderSessionTable(width int) string {
	var b strings.Builder

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(ColorAccentBright))
	b.WriteString(headerStyle.Render("Sessions"))
	b.WriteString("\n\n")

	if len(m.filtered) == 0 {
		emptyStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorSecondaryText)).
			Italic(true)
		msg := "No sessions yet. Press n to start one."
		if m.searchQuery != "" {
			msg = "No sessions match " + fmt.Sprintf("%q", m.searchQuery)
		}
		b.WriteString(emptyStyle.Render(msg))
		return lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorBorder)).
			Width(width).
			Render(b.String())
	}

	categoryWidth := 16
	updatedWidth := 14
	nameWidth := max(width-4-categoryWidth-updatedWidth-4, 20)

	columnHeaderStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(ColorAccentBright)).
		Padding(0, 1)
	b.WriteString(columnHeaderStyle.Render(fmt.Sprintf("%-*s %-*s %-*s",
		nameWidth, "NAME",
		categoryWidth, "CATEGORY",
		updatedWidth, "UPDATED")))
	b.WriteString("\n\n")

	start := m.currentPage * m.sessionsPerPage
	end := min(start+m.sessionsPerPage, len(m.filtered))

	for i := start; i < end; i++ {
		s := m.sessions[m.filtered[i]]
		isSelected := i == m.selected

		name := truncate(s.Name, nameWidth)
		if isSelected {
			name = m.shimmer.RenderShimmerText(name, nameWidth)
			// Pad by visible width since the shimmer adds escape codes
			name += strings.Repeat(" ", max(nameWidth-lipgloss.Width(name), 0))
		} else {
			name = fmt.Sprintf("%-*s", nameWidth, name)
		}

		category := s.Category
		if category == "" {
			category = "-"
		}
		category = lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorSecondaryText)).
			Width(categoryWidth).
			Render(truncate(category, categoryWidth))

		updated := lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorDisabledText)).
			Width(updatedWidth).
			Render(humanize.Time(s.UpdatedAt))

		row := name + " " + category + " " + updated
		if isSelected {
			b.WriteString(lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color(ColorAccentMain)).
				Bold(true).
				Padding(0, 1).
				Render(row))
		} else {
			b.WriteString(" " + row)
		}
		b.WriteString("\n")
	}

	if m.pageCount() > 1 {
		pageStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorHelpText)).
			Align(lipgloss.Center).
			Width(width - 2).
			MarginTop(1)
		b.WriteString(pageStyle.Render(fmt.Sprintf("Page %d/%d (%d sessions)",
			m.currentPage+1, m.pageCount(), len(m.filtered))))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorBorder)).
		Width(width).
		Render(b.String())
}

func (m ListModel) renderSessionDetails(width int) string {
	var b strings.Builder

	s, ok := m.current()
	if !ok {
		logoStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorAccentMain)).
			Bold(true).
			Align(lipgloss.Center).
			Width(width)
		b.WriteString(logoStyle.Render("relay"))
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorSecondaryText)).
			Italic(true).
			Align(lipgloss.Center).
			Width(width).
			MarginTop(2).
			Render("Capture screenshots into a session to get started"))
	} else {
		b.WriteString(lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorPrimaryText)).
			Width(width).
			Render(s.Name))
		b.WriteString("\n\n")

		if s.Category != "" {
			b.WriteString("Category: ")
			b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccentBright)).Render(s.Category))
			b.WriteString("\n")
		}
		b.WriteString("Created: ")
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSecondaryText)).Render(s.CreatedAt.Format("02 Jan 2006 15:04")))
		b.WriteString("\n")
		b.WriteString("Updated: ")
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSecondaryText)).Render(humanize.Time(s.UpdatedAt)))
		b.WriteString("\n")

		if s.Description != "" {
			b.WriteString("\n")
			b.WriteString(lipgloss.NewStyle().
				Foreground(lipgloss.Color(ColorSecondaryText)).
				Italic(true).
				Width(width - 2).
				Render(s.Description))
		}
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorBorder)).
		Width(width).
		Render(b.String())
}

func (m ListModel) renderSearchBar() string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorPrimaryText)).
		Background(lipgloss.Color(ColorBorder)).
		Padding(0, 1).
		Width(m.width - 2).
		Render("Search: " + m.searchQuery + "█")
}

func (m ListModel) renderHelpBar() string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorHelpText)).
		Italic(true).
		Align(lipgloss.Center).
		Width(m.width).
		Render("↑/↓ nav · ←/→ page · enter open · n new · d delete · / search · r refresh · q quit")
}

// truncate shortens s to width runes
func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 3 || len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}
