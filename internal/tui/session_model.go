package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/balkashynov/relay/internal/models"
	"github.com/balkashynov/relay/internal/note"
	"github.com/balkashynov/relay/internal/session"
)

// editTimeout bounds the queue hop of a keystroke in the editor
const editTimeout = 2 * time.Second

type pane int

const (
	paneEntities pane = iota
	paneNote
	paneChat
)

// SessionModel is the workspace for one open session: entities on the
// left, the note and the chat on the right
type SessionModel struct {
	ctx  context.Context
	ctrl *session.Controller

	snap   session.Snapshot
	loaded bool

	width  int
	height int

	focus   pane
	editing bool
	cursor  int

	note    viewport.Model
	editor  textarea.Model
	input   textinput.Model
	spin    spinner.Model
	shimmer *ShimmerState

	busy      string
	status    string
	statusErr bool

	authExpired bool
}

type snapshotMsg struct {
	snap session.Snapshot
	err  error
}

type eventMsg struct {
	ev session.Event
	ok bool
}

type askDoneMsg struct {
	reply string
	err   error
}

type actionDoneMsg struct {
	status string
	err    error
}

// NewSessionModel creates the workspace for an open controller
func NewSessionModel(ctx context.Context, ctrl *session.Controller) SessionModel {
	input := textinput.New()
	input.Placeholder = "Ask about this session or tell the AI how to edit the note..."
	input.CharLimit = 2000
	input.Prompt = "› "
	input.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccentBright))
	input.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorPrimaryText))
	input.PlaceholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorPlaceholder))

	editor := textarea.New()
	editor.ShowLineNumbers = false
	editor.CharLimit = 0
	editor.Placeholder = "Write your notes in markdown..."

	spin := spinner.New()
	spin.Spinner = spinner.MiniDot
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccentBright))

	return SessionModel{
		ctx:     ctx,
		ctrl:    ctrl,
		note:    viewport.New(0, 0),
		editor:  editor,
		input:   input,
		spin:    spin,
		shimmer: NewShimmerState(DefaultShimmerConfig()),
	}
}

// AuthExpired reports whether the view closed because the token expired
func (m SessionModel) AuthExpired() bool {
	return m.authExpired
}

func (m SessionModel) refresh() tea.Msg {
	snap, err := m.ctrl.Snapshot(m.ctx)
	return snapshotMsg{snap: snap, err: err}
}

func (m SessionModel) waitForEvent() tea.Msg {
	ev, ok := <-m.ctrl.Events()
	return eventMsg{ev: ev, ok: ok}
}

func (m SessionModel) ask(message string) tea.Cmd {
	return func() tea.Msg {
		outcome, err := m.ctrl.Ask(m.ctx, message)
		if err != nil {
			return askDoneMsg{err: err}
		}
		return askDoneMsg{reply: outcome.Reply}
	}
}

func (m SessionModel) do(status string, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{status: status, err: fn(m.ctx)}
	}
}

// Init loads the first snapshot and starts listening for events
func (m SessionModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.refresh, m.waitForEvent, m.spin.Tick}
	if m.shimmer.ShouldTick() {
		cmds = append(cmds, shimmerTick(m.shimmer))
	}
	return tea.Batch(cmds...)
}

// Update handles messages
func (m SessionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case shimmerTickMsg:
		if m.shimmer.ShouldTick() {
			return m, shimmerTick(m.shimmer)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case snapshotMsg:
		if msg.err != nil {
			if errors.Is(msg.err, note.ErrQueueClosed) {
				return m, tea.Quit
			}
			m.setStatus("", msg.err)
			return m, nil
		}
		grew := msg.snap.Highlight.Active && msg.snap.Highlight != m.snap.Highlight
		m.snap = msg.snap
		m.loaded = true
		m.cursor = min(m.cursor, max(len(m.snap.Entities)-1, 0))
		m.renderNote()
		if grew {
			m.note.GotoBottom()
		}
		return m, nil

	case eventMsg:
		if !msg.ok {
			return m, nil
		}
		switch msg.ev.Kind {
		case session.EventAuthExpired:
			m.authExpired = true
			return m, tea.Quit
		case session.EventNoteSaved:
			m.setStatus("Saved", nil)
		case session.EventSaveFailed:
			m.setStatus("", fmt.Errorf("save failed: %w", msg.ev.Err))
		case session.EventChatFailed, session.EventError:
			m.setStatus("", msg.ev.Err)
		}
		return m, tea.Batch(m.refresh, m.waitForEvent)

	case askDoneMsg:
		m.busy = ""
		if msg.err != nil {
			m.setStatus("", fmt.Errorf("chat failed: %w", msg.err))
		} else {
			m.setStatus("", nil)
		}
		return m, m.refresh

	case actionDoneMsg:
		m.busy = ""
		if msg.err != nil {
			if isAuthExpired(msg.err) {
				m.authExpired = true
				return m, tea.Quit
			}
			m.setStatus("", msg.err)
		} else if msg.status != "" {
			m.setStatus(msg.status, nil)
		}
		return m, m.refresh

	case tea.KeyMsg:
		if m.editing {
			return m.handleEditorKeys(msg)
		}
		if m.focus == paneChat {
			return m.handleChatKeys(msg)
		}
		return m.handleKeys(msg)
	}

	return m, nil
}

func (m *SessionModel) setStatus(status string, err error) {
	m.statusErr = err != nil
	if err != nil {
		status = err.Error()
	}
	m.status = status
}

func (m SessionModel) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q", "esc":
		return m, tea.Quit

	case "tab":
		return m.cycleFocus(), nil

	case "ctrl+s":
		return m, m.do("Saved", m.ctrl.Save)

	case "s":
		if m.busy != "" {
			return m, nil
		}
		m.busy = "Summarizing"
		return m, m.do("Summary added to the note", func(ctx context.Context) error {
			_, err := m.ctrl.Summarize(ctx)
			return err
		})

	case "r":
		return m, m.do("", m.ctrl.Reload)
	}

	switch m.focus {
	case paneEntities:
		return m.handleEntityKeys(msg)
	case paneNote:
		return m.handleNoteKeys(msg)
	}
	return m, nil
}

func (m SessionModel) cycleFocus() SessionModel {
	m.focus = (m.focus + 1) % 3
	if m.focus == paneChat {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
	m.shimmer.Reset()
	return m
}

func (m SessionModel) handleEntityKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	entities := m.snap.Entities
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			m.shimmer.Reset()
		}
	case "down", "j":
		if m.cursor < len(entities)-1 {
			m.cursor++
			m.shimmer.Reset()
		}
	case " ", "space":
		if m.cursor < len(entities) {
			id := entities[m.cursor].ID
			return m, m.do("", func(ctx context.Context) error { return m.ctrl.ToggleEntity(ctx, id) })
		}
	case "c":
		return m, m.do("Selection cleared", m.ctrl.ClearSelection)
	case "x", "delete":
		if m.cursor < len(entities) {
			e := entities[m.cursor]
			return m, m.do(fmt.Sprintf("Removed %q", e.Title), func(ctx context.Context) error {
				return m.ctrl.DeleteEntity(ctx, e.ID)
			})
		}
	}
	return m, nil
}

func (m SessionModel) handleNoteKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "e" || msg.String() == "enter" {
		m.editing = true
		m.editor.SetValue(m.snap.Content)
		return m, m.editor.Focus()
	}
	var cmd tea.Cmd
	m.note, cmd = m.note.Update(msg)
	return m, cmd
}

func (m SessionModel) handleEditorKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.editing = false
		m.editor.Blur()
		return m, m.refresh
	case "ctrl+s":
		return m, m.do("Saved", m.ctrl.Save)
	case "ctrl+c":
		return m, tea.Quit
	}

	before := m.editor.Value()
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	if after := m.editor.Value(); after != before {
		// Synchronous so keystrokes reach the controller in order
		ctx, cancel := context.WithTimeout(m.ctx, editTimeout)
		err := m.ctrl.Edit(ctx, after)
		cancel()
		if err != nil {
			m.setStatus("", err)
		} else {
			m.snap.Content = after
			m.snap.Dirty = true
		}
	}
	return m, cmd
}

func (m SessionModel) handleChatKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "tab":
		return m.cycleFocus(), nil
	case "esc":
		m.focus = paneEntities
		m.input.Blur()
		return m, nil
	case "ctrl+x":
		return m, m.do("Chat cleared", m.ctrl.ClearChat)
	case "enter":
		message := strings.TrimSpace(m.input.Value())
		if message == "" || m.busy != "" {
			return m, nil
		}
		m.input.SetValue("")
		m.busy = "Thinking"
		m.setStatus("", nil)
		return m, m.ask(message)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// Layout

func (m SessionModel) columns() (left, right int) {
	left = max(m.width*30/100, 24)
	return left, max(m.width-left-1, 20)
}

func (m SessionModel) rows() (noteH, chatH int) {
	body := max(m.height-2, 10)
	noteH = body * 60 / 100
	return noteH, body - noteH
}

func (m *SessionModel) layout() {
	_, right := m.columns()
	noteH, _ := m.rows()

	m.note.Width = right - 4
	m.note.Height = max(noteH-3, 1)
	m.editor.SetWidth(right - 4)
	m.editor.SetHeight(max(noteH-3, 1))
	m.input.Width = right - 6
	m.renderNote()
}

// renderNote puts the note into the viewport with the AI-inserted span
// highlighted
func (m *SessionModel) renderNote() {
	content := m.snap.Content
	if content == "" {
		m.note.SetContent(lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorDisabledText)).
			Italic(true).
			Render("The note is empty. Press e to write, s to summarize or ask the AI below."))
		return
	}

	body := content
	if hl := m.snap.Highlight; hl.Active {
		cut := note.ByteOffset(content, hl.Start)
		body = content[:cut] + renderHighlight(content[cut:])
	}
	m.note.SetContent(lipgloss.NewStyle().Width(max(m.note.Width, 1)).Render(body))
}

func (m SessionModel) border(p pane) lipgloss.Style {
	color := ColorBorder
	if p == m.focus {
		color = ColorFocusBorder
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(color)).
		Padding(0, 1)
}

// View renders the TUI
func (m SessionModel) View() string {
	if m.width == 0 || m.height == 0 || !m.loaded {
		return "Loading..."
	}

	left, right := m.columns()
	noteH, chatH := m.rows()

	entities := m.border(paneEntities).
		Width(left - 2).
		Height(noteH + chatH - 2).
		Render(m.renderEntities(left - 4))

	noteBody := m.note.View()
	if m.editing {
		noteBody = m.editor.View()
	}
	notePanel := m.border(paneNote).
		Width(right - 2).
		Height(noteH - 2).
		Render(m.renderNoteHeader(right-4) + "\n" + noteBody)

	chat := m.border(paneChat).
		Width(right - 2).
		Height(chatH - 2).
		Render(m.renderChat(right-4, chatH-4) + "\n" + m.input.View())

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		entities,
		" ",
		lipgloss.JoinVertical(lipgloss.Left, notePanel, chat),
	)
	return lipgloss.JoinVertical(lipgloss.Left, body, m.renderStatusBar(), m.renderHelpBar())
}

func (m SessionModel) renderEntities(width int) string {
	var b strings.Builder

	header := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAccentBright))
	b.WriteString(header.Render(truncate(m.snap.Session.Name, width)))
	b.WriteString("\n")

	meta := fmt.Sprintf("%d screenshots", len(m.snap.Screenshots))
	if m.snap.Session.Category != "" {
		meta = m.snap.Session.Category + " · " + meta
	}
	b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSecondaryText)).Render(meta))
	b.WriteString("\n\n")

	if len(m.snap.Entities) == 0 {
		b.WriteString(lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorDisabledText)).
			Italic(true).
			Width(width).
			Render("No entities yet. Capture a screenshot with relay capture."))
		return b.String()
	}

	if ids := m.snap.SelectedIDs(); len(ids) > 0 {
		titles := make(map[string]string, len(m.snap.Entities))
		for _, e := range m.snap.Entities {
			titles[e.ID] = e.Title
		}
		names := make([]string, 0, len(ids))
		for _, id := range ids {
			names = append(names, titles[id])
		}
		scope := fmt.Sprintf("Chat scoped to %d selected: %s", len(ids), strings.Join(names, ", "))
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(ColorWarning)).
			Render(truncate(scope, width)))
		b.WriteString("\n")
	}

	typeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDisabledText))
	for i, e := range m.snap.Entities {
		mark := "[ ]"
		if m.snap.Selected[e.ID] {
			mark = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSuccess)).Render("[x]")
		}

		titleWidth := max(width-6, 8)
		title := truncate(e.Title, titleWidth)
		if i == m.cursor && m.focus == paneEntities {
			title = m.shimmer.RenderShimmerText(title, titleWidth)
		}

		b.WriteString(mark + " " + title + "\n")
		b.WriteString("    " + typeStyle.Render(e.TypeName()) + "\n")
	}
	return b.String()
}

func (m SessionModel) renderNoteHeader(width int) string {
	state := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSuccess)).Render("saved")
	switch {
	case m.snap.Saving:
		state = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorWarning)).Render("saving...")
	case m.snap.Dirty:
		state = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSecondaryText)).Render("edited")
	}

	title := "Note"
	if m.editing {
		title = "Note (editing, esc to finish)"
	}
	left := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorPrimaryText)).Render(title)
	gap := max(width-lipgloss.Width(left)-lipgloss.Width(state), 1)
	return left + strings.Repeat(" ", gap) + state
}

func (m SessionModel) renderChat(width, height int) string {
	you := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAccentBright))
	bot := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAccentMain))
	failed := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorError))
	text := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSecondaryText)).Width(width)

	var lines []string
	for _, msg := range m.snap.Messages {
		label := you.Render("You: ")
		if msg.Role == models.RoleAssistant {
			label = bot.Render("AI: ")
		}
		body := text.Render(label + msg.Content)
		if msg.Failed {
			body = failed.Width(width).Render("AI: " + msg.Content)
		}
		lines = append(lines, strings.Split(body, "\n")...)
	}
	if m.busy == "Thinking" {
		lines = append(lines, m.spin.View()+" thinking...")
	}

	// Keep the tail that fits
	if height > 0 && len(lines) > height {
		lines = lines[len(lines)-height:]
	}
	return strings.Join(lines, "\n")
}

func (m SessionModel) renderStatusBar() string {
	var parts []string
	if m.busy != "" {
		parts = append(parts, m.spin.View()+" "+m.busy+"...")
	}
	if m.status != "" {
		color := ColorSuccess
		if m.statusErr {
			color = ColorError
		}
		parts = append(parts, lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(m.status))
	}
	parts = append(parts, lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorDisabledText)).
		Render("updated "+humanize.Time(m.snap.Session.UpdatedAt)))
	return strings.Join(parts, "  ")
}

func (m SessionModel) renderHelpBar() string {
	var help string
	switch {
	case m.editing:
		help = "type to edit · ctrl+s save now · esc done"
	case m.focus == paneChat:
		help = "enter send · ctrl+x clear chat · tab next pane · esc back"
	case m.focus == paneNote:
		help = "e edit · ↑/↓ scroll · s summarize · ctrl+s save · tab next pane · q back"
	default:
		help = "↑/↓ nav · space select · c clear selection · x remove · s summarize · r reload · tab next pane · q back"
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorHelpText)).
		Italic(true).
		Width(m.width).
		Align(lipgloss.Center).
		Render(help)
}
