package tui

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/balkashynov/relay/internal/ai"
	"github.com/balkashynov/relay/internal/models"
	"github.com/balkashynov/relay/internal/parser"
)

// Step represents the current step in the wizard
type Step int

const (
	StepName Step = iota
	StepCategory
	StepDescription
	StepSave
)

var stepLabels = []string{"Name", "Category", "Description", "Save"}

// SessionCreator creates sessions
type SessionCreator interface {
	CreateSession(ctx context.Context, req models.CreateSessionRequest) (*models.Session, error)
}

// AddSessionModel is the new-session wizard
type AddSessionModel struct {
	ctx     context.Context
	creator SessionCreator

	currentStep Step
	inputs      []textinput.Model
	width       int
	height      int

	owner string

	err           error
	saving        bool
	completed     bool
	cancelled     bool
	validationErr string
	created       *models.Session

	shimmer *ShimmerState

	showDiscardModal bool
}

type sessionCreatedMsg struct {
	session *models.Session
	err     error
}

// NewAddSessionModel creates the wizard. name may carry inline metadata
// such as "@shopping".
func NewAddSessionModel(ctx context.Context, creator SessionCreator, name string) AddSessionModel {
	inputs := make([]textinput.Model, int(StepSave))
	for i := range inputs {
		inputs[i] = textinput.New()
		inputs[i].Width = 60
		inputs[i].TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorPrimaryText))
		inputs[i].PlaceholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorPlaceholder))
		inputs[i].Cursor.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccentBright))
	}

	inputs[StepName].Placeholder = "Session name... (@category and by:owner work too)"
	inputs[StepName].CharLimit = 120
	inputs[StepName].Focus()

	inputs[StepCategory].Placeholder = strings.Join(ai.Categories, ", ") + " (Enter to skip)"
	inputs[StepCategory].CharLimit = 32
	inputs[StepCategory].ShowSuggestions = true
	inputs[StepCategory].SetSuggestions(ai.Categories)

	inputs[StepDescription].Placeholder = "What is this session for? (Enter to skip)"
	inputs[StepDescription].CharLimit = 500

	m := AddSessionModel{
		ctx:     ctx,
		creator: creator,
		inputs:  inputs,
		shimmer: NewShimmerState(DefaultShimmerConfig()),
	}
	if name != "" {
		m.inputs[StepName].SetValue(name)
	}
	return m
}

// Created returns the new session, or nil when the wizard was cancelled
func (m AddSessionModel) Created() *models.Session {
	return m.created
}

// Init initializes the model
func (m AddSessionModel) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if m.shimmer.ShouldTick() {
		cmds = append(cmds, shimmerTick(m.shimmer))
	}
	return tea.Batch(cmds...)
}

// Update handles messages
func (m AddSessionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case shimmerTickMsg:
		if m.shimmer.ShouldTick() {
			return m, shimmerTick(m.shimmer)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		w := min(max(m.width*2/3-10, 30), 80)
		for i := range m.inputs {
			m.inputs[i].Width = w
		}
		return m, nil

	case sessionCreatedMsg:
		m.saving = false
		if msg.err != nil {
			m.err = msg.err
			if isAuthExpired(msg.err) {
				return m, tea.Quit
			}
			return m, nil
		}
		m.completed = true
		m.created = msg.session
		return m, tea.Quit

	case tea.KeyMsg:
		if m.showDiscardModal {
			switch msg.String() {
			case "y", "Y", "enter":
				m.cancelled = true
				return m, tea.Quit
			default:
				m.showDiscardModal = false
				return m, nil
			}
		}

		switch msg.String() {
		case "ctrl+c":
			m.cancelled = true
			return m, tea.Quit

		case "esc":
			if m.currentStep == StepSave {
				return m.prevStep()
			}
			if !m.hasChanges() {
				m.cancelled = true
				return m, tea.Quit
			}
			m.showDiscardModal = true
			return m, nil

		case "enter":
			return m.handleEnter()

		case "tab", "down":
			if m.currentStep == StepCategory {
				// Tab accepts the suggestion first
				break
			}
			return m.nextStep()

		case "shift+tab", "up":
			return m.prevStep()
		}
	}

	var cmd tea.Cmd
	if m.currentStep < StepSave {
		m.inputs[m.currentStep], cmd = m.inputs[m.currentStep].Update(msg)
	}
	return m, cmd
}

func (m AddSessionModel) value(step Step) string {
	return strings.TrimSpace(m.inputs[step].Value())
}

// handleEnter validates the current step and advances
func (m AddSessionModel) handleEnter() (AddSessionModel, tea.Cmd) {
	m.validationErr = ""

	switch m.currentStep {
	case StepName:
		parsed := parser.ParseSessionTitle(m.value(StepName), ai.Categories)
		if len(parsed.Errors) > 0 {
			m.validationErr = parsed.Errors[0]
			return m, nil
		}
		if parsed.Name == "" {
			m.validationErr = "Session name is required"
			return m, nil
		}
		m.inputs[StepName].SetValue(parsed.Name)
		if parsed.Category != "" {
			m.inputs[StepCategory].SetValue(parsed.Category)
		}
		if parsed.Owner != "" {
			m.owner = parsed.Owner
		}
		return m.nextStep()

	case StepCategory:
		category := strings.ToLower(m.value(StepCategory))
		if category != "" && !slices.Contains(ai.Categories, category) {
			m.validationErr = "Unknown category. Use one of: " + strings.Join(ai.Categories, ", ")
			return m, nil
		}
		m.inputs[StepCategory].SetValue(category)
		return m.nextStep()

	case StepDescription:
		return m.nextStep()

	case StepSave:
		if m.saving {
			return m, nil
		}
		m.saving = true
		return m, m.createSession()
	}
	return m, nil
}

func (m AddSessionModel) createSession() tea.Cmd {
	req := models.CreateSessionRequest{
		Owner:       m.owner,
		Name:        m.value(StepName),
		Description: m.value(StepDescription),
		Category:    m.value(StepCategory),
	}
	return func() tea.Msg {
		s, err := m.creator.CreateSession(m.ctx, req)
		return sessionCreatedMsg{session: s, err: err}
	}
}

func (m AddSessionModel) nextStep() (AddSessionModel, tea.Cmd) {
	if m.currentStep == StepName && m.value(StepName) == "" {
		m.validationErr = "Session name is required"
		return m, nil
	}
	if m.currentStep < StepSave {
		m.inputs[m.currentStep].Blur()
		m.currentStep++
		if m.currentStep < StepSave {
			m.inputs[m.currentStep].Focus()
		}
		m.shimmer.Reset()
	}
	return m, textinput.Blink
}

func (m AddSessionModel) prevStep() (AddSessionModel, tea.Cmd) {
	if m.currentStep > StepName {
		if m.currentStep < StepSave {
			m.inputs[m.currentStep].Blur()
		}
		m.currentStep--
		m.inputs[m.currentStep].Focus()
		m.shimmer.Reset()
	}
	return m, textinput.Blink
}

func (m AddSessionModel) hasChanges() bool {
	for i := range m.inputs {
		if m.value(Step(i)) != "" {
			return true
		}
	}
	return false
}

// View renders the TUI
func (m AddSessionModel) View() string {
	if m.cancelled || m.completed {
		return ""
	}
	if m.width == 0 {
		return "Loading..."
	}

	if m.width < 85 {
		return lipgloss.NewStyle().Padding(1).Render(m.renderWizard())
	}

	rightWidth := 44
	leftWidth := m.width - rightWidth - 4

	left := lipgloss.NewStyle().
		Width(leftWidth).
		Height(m.height - 2).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorBorder)).
		Padding(1).
		Render(m.renderWizard())
	right := lipgloss.NewStyle().
		Width(rightWidth).
		Height(m.height - 2).
		Padding(1).
		Render(m.renderPreview())

	view := lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right)
	if m.showDiscardModal {
		return m.renderDiscardModal()
	}
	return view
}

func (m AddSessionModel) renderWizard() string {
	var b strings.Builder

	b.WriteString(lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(ColorAccentBright)).
		Render("New session"))
	b.WriteString("\n\n")

	done := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSuccess))
	skipped := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDisabledText))
	future := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSecondaryText))

	for i, label := range stepLabels {
		step := Step(i)
		if step == StepSave {
			b.WriteString("\n")
		}
		switch {
		case step == m.currentStep:
			b.WriteString(m.shimmer.RenderShimmerText("▶ "+label, 40))
		case step < m.currentStep && m.value(step) != "":
			b.WriteString(done.Render("✓ " + label))
		case step < m.currentStep:
			b.WriteString(skipped.Render("  " + label))
		default:
			b.WriteString(future.Render("  " + label))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.currentStep < StepSave {
		b.WriteString(stepLabels[m.currentStep] + "\n")
		b.WriteString(m.inputs[m.currentStep].View())
	} else if m.saving {
		b.WriteString("Saving...")
	} else {
		b.WriteString("Press Enter to create the session")
	}

	errText := m.validationErr
	if m.err != nil {
		errText = m.err.Error()
	}
	if errText != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorError)).
			Bold(true).
			MarginTop(1).
			Render("✗ " + errText))
	}

	b.WriteString("\n\n")
	b.WriteString(lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorHelpText)).
		Italic(true).
		Render("Enter: Next | Tab/↓: Next | Shift+Tab/↑: Back | Esc: Cancel"))

	return b.String()
}

func (m AddSessionModel) renderPreview() string {
	label := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSecondaryText))
	value := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorPrimaryText))
	empty := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDisabledText)).Italic(true)

	field := func(name, v string) string {
		if v == "" {
			return label.Render(name+": ") + empty.Render("none")
		}
		return label.Render(name+": ") + value.Render(v)
	}

	name := m.value(StepName)
	if name == "" {
		name = models.DefaultSessionName
	}

	lines := []string{
		lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAccentMain)).Render(name),
		"",
		field("Category", m.value(StepCategory)),
		field("Owner", m.owner),
		"",
		lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorSecondaryText)).
			Italic(true).
			Width(40).
			Render(m.value(StepDescription)),
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorAccentMain)).
		Background(lipgloss.Color(ColorCardBackground)).
		Padding(1).
		Width(40).
		Render(strings.Join(lines, "\n"))
}

func (m AddSessionModel) renderDiscardModal() string {
	modal := lipgloss.NewStyle().
		Width(46).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorAccentBright)).
		Background(lipgloss.Color(ColorCardBackground)).
		Padding(1).
		Align(lipgloss.Center).
		Render(fmt.Sprintf("Discard this session?\n\n%s",
			lipgloss.NewStyle().Foreground(lipgloss.Color(ColorHelpText)).Render("y / Enter to discard, any other key to keep editing")))

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal)
}
