// Package tui is the terminal interface: a session picker, a wizard for new
// sessions and the workspace where the note and chat live.
package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/balkashynov/relay/internal/models"
	"github.com/balkashynov/relay/internal/session"
)

// Backend is what the TUI needs from local storage or the API client
type Backend interface {
	session.Store
	SessionCreator
	ListSessions(ctx context.Context) ([]models.Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// Options wires the TUI to its data
type Options struct {
	Backend  Backend
	Analyzer session.Analyzer
	// Deps carries the autosave and highlight timings and the logger.
	// Store and Analyzer are taken from the fields above.
	Deps session.Deps
}

func isAuthExpired(err error) bool {
	return errors.Is(err, models.ErrAuthExpired)
}

// Run shows the session list and opens sessions until the user quits
func Run(ctx context.Context, opts Options) error {
	for {
		action, id, err := RunSessionList(ctx, opts.Backend)
		if err != nil {
			return err
		}

		switch action {
		case ListQuit:
			return nil
		case ListNew:
			created, err := RunAddSession(ctx, opts.Backend, "")
			if err != nil {
				return err
			}
			if created == nil {
				continue
			}
			id = created.ID
		}

		if err := RunSession(ctx, id, opts); err != nil {
			return err
		}
	}
}

// RunSessionList shows the session picker and returns what the user chose
func RunSessionList(ctx context.Context, backend Backend) (ListAction, string, error) {
	p := tea.NewProgram(NewListModel(ctx, backend), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return ListQuit, "", err
	}

	m, ok := final.(ListModel)
	if !ok {
		return ListQuit, "", nil
	}
	if m.err != nil && isAuthExpired(m.err) {
		return ListQuit, "", m.err
	}
	action, id := m.Action()
	return action, id, nil
}

// RunAddSession starts the new-session wizard. It returns nil when the user
// cancelled.
func RunAddSession(ctx context.Context, creator SessionCreator, name string) (*models.Session, error) {
	p := tea.NewProgram(NewAddSessionModel(ctx, creator, name), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return nil, err
	}

	m, ok := final.(AddSessionModel)
	if !ok {
		return nil, nil
	}
	if m.err != nil && isAuthExpired(m.err) {
		return nil, m.err
	}
	if m.cancelled {
		fmt.Println("✗ Session creation cancelled.")
		return nil, nil
	}
	return m.Created(), nil
}

// RunSession opens one session in the workspace and saves it on the way out
func RunSession(ctx context.Context, id string, opts Options) error {
	deps := opts.Deps
	deps.Store = opts.Backend
	deps.Analyzer = opts.Analyzer

	ctrl, err := session.Open(ctx, id, deps)
	if err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}

	p := tea.NewProgram(NewSessionModel(ctx, ctrl), tea.WithAltScreen(), tea.WithContext(ctx))
	final, runErr := p.Run()

	// Flush even when the program failed so no edit is lost
	closeErr := ctrl.Close(context.WithoutCancel(ctx))

	if runErr != nil {
		return runErr
	}
	if m, ok := final.(SessionModel); ok && m.AuthExpired() {
		return fmt.Errorf("session closed: %w", models.ErrAuthExpired)
	}
	if closeErr != nil {
		return fmt.Errorf("note may not be saved: %w", closeErr)
	}
	return nil
}
