package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contactdesk/services/contact/internal/app"
)

type stubGenerator struct{ err error }

func (g stubGenerator) GenerateText(context.Context, string, string) (string, error) {
	return "Dear Ana, thanks for writing.", g.err
}

type countingDispatcher struct{ calls int }

func (d *countingDispatcher) Dispatch(context.Context, app.Submission) error {
	d.calls++
	return nil
}

func newModel(t *testing.T) (Model, *app.Controller, *countingDispatcher) {
	t.Helper()
	disp := &countingDispatcher{}
	ctrl := app.NewController(app.ControllerConfig{
		Confirmer:  app.NewConfirmer(stubGenerator{err: errors.New("offline")}),
		Dispatcher: disp,
	})
	return New(context.Background(), ctrl), ctrl, disp
}

func press(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	require.True(t, ok)
	return model, cmd
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return m
}

// findMsg runs cmd (and the members of a batch) until one yields a T.
func findMsg[T any](cmd tea.Cmd) (T, bool) {
	var zero T
	if cmd == nil {
		return zero, false
	}
	switch msg := cmd().(type) {
	case T:
		return msg, true
	case tea.BatchMsg:
		for _, c := range msg {
			if found, ok := findMsg[T](c); ok {
				return found, true
			}
		}
	}
	return zero, false
}

func fillForm(t *testing.T, m Model) Model {
	t.Helper()
	m = typeText(t, m, "Ana")
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = typeText(t, m, "ana@x.com")
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	return typeText(t, m, "Hi")
}

func TestViewShowsLabels(t *testing.T) {
	m, _, _ := newModel(t)
	view := m.View()
	for _, want := range []string{Title, "Your Name", "Your Email", "Your Message", SubmitLabel} {
		assert.Contains(t, view, want)
	}
}

func TestTypingUpdatesController(t *testing.T) {
	m, ctrl, _ := newModel(t)
	fillForm(t, m)
	rec := ctrl.Record()
	assert.Equal(t, "Ana", rec.Name)
	assert.Equal(t, "ana@x.com", rec.Email)
	assert.Equal(t, "Hi", rec.Message)
}

func TestFocusCycles(t *testing.T) {
	m, _, _ := newModel(t)
	assert.Equal(t, focusName, m.focus)
	for i := 0; i < int(focusCount); i++ {
		m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	}
	assert.Equal(t, focusName, m.focus)
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, focusSubmit, m.focus)
}

func TestSubmitEmptyShowsValidationNotice(t *testing.T) {
	m, ctrl, disp := newModel(t)
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.False(t, m.Sending())
	assert.NotNil(t, cmd)
	assert.Contains(t, m.View(), app.MsgMissingFields)
	assert.Zero(t, disp.calls)
	_, ok := ctrl.Notice()
	assert.True(t, ok)
}

func TestSubmitSuccessResetsForm(t *testing.T) {
	m, ctrl, disp := newModel(t)
	m = fillForm(t, m)

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	require.True(t, m.Sending())
	assert.Contains(t, m.View(), BusyLabel)

	// Typing is ignored while sending.
	m = typeText(t, m, "zzz")
	assert.Equal(t, "Hi", ctrl.Record().Message)

	done, ok := findMsg[submitDoneMsg](cmd)
	require.True(t, ok)
	require.NoError(t, done.err)
	assert.Equal(t, app.MsgSent, done.notice.Text)

	m, _ = press(t, m, done)
	assert.False(t, m.Sending())
	assert.Equal(t, 1, disp.calls)
	assert.Empty(t, m.name.Value())
	assert.Empty(t, m.email.Value())
	assert.Empty(t, m.message.Value())
	assert.Contains(t, m.View(), app.MsgSent)
}

func TestNoticeExpiryAndDismiss(t *testing.T) {
	m, ctrl, _ := newModel(t)
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	first, ok := ctrl.Notice()
	require.True(t, ok)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	second, ok := ctrl.Notice()
	require.True(t, ok)
	require.NotEqual(t, first.Seq, second.Seq)

	m, _ = press(t, m, noticeExpiredMsg{seq: first.Seq})
	assert.Contains(t, m.View(), app.MsgMissingFields, "stale timer must not clear the newer notice")

	m, _ = press(t, m, noticeExpiredMsg{seq: second.Seq})
	assert.NotContains(t, m.View(), app.MsgMissingFields)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.NotContains(t, m.View(), app.MsgMissingFields)
}

func TestCtrlCQuits(t *testing.T) {
	m, _, _ := newModel(t)
	_, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)
}
