// Package tui is the terminal contact form.
package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"contactdesk/pkg/domain"
	"contactdesk/services/contact/internal/app"
)

const (
	Title          = "Contact Us"
	SubmitLabel    = "Send Message"
	BusyLabel      = "Sending..."
	namePrompt     = "Your Name"
	emailPrompt    = "Your Email"
	messagePrompt  = "Your Message"
	formWidth      = 48
	messageHeight  = 5
	dismissHint    = "esc dismiss"
	navigationHelp = "tab/shift+tab move • ctrl+s send • ctrl+c quit"
)

type focusTarget int

const (
	focusName focusTarget = iota
	focusEmail
	focusMessage
	focusSubmit
	focusCount
)

type submitDoneMsg struct {
	notice domain.OutcomeNotice
	err    error
}

type noticeExpiredMsg struct {
	seq uint64
}

// Model renders a Controller's record and runs its submissions.
type Model struct {
	ctrl    *app.Controller
	ctx     context.Context
	name    textinput.Model
	email   textinput.Model
	message textarea.Model
	spinner spinner.Model
	focus   focusTarget
	sending bool
}

// New builds the form. ctx is passed to every submission.
func New(ctx context.Context, ctrl *app.Controller) Model {
	name := textinput.New()
	name.Placeholder = namePrompt
	name.Width = formWidth
	name.Prompt = ""

	email := textinput.New()
	email.Placeholder = emailPrompt
	email.Width = formWidth
	email.Prompt = ""

	message := textarea.New()
	message.Placeholder = messagePrompt
	message.ShowLineNumbers = false
	message.SetWidth(formWidth)
	message.SetHeight(messageHeight)

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))

	m := Model{
		ctrl:    ctrl,
		ctx:     ctx,
		name:    name,
		email:   email,
		message: message,
		spinner: sp,
	}
	m.syncFromRecord()
	m.applyFocus()
	return m
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case submitDoneMsg:
		return m.handleSubmitDone(msg)
	case noticeExpiredMsg:
		m.ctrl.ExpireNotice(msg.seq)
		return m, nil
	case spinner.TickMsg:
		if !m.sending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.ctrl.DismissNotice()
		return m, nil
	}
	if m.sending {
		return m, nil
	}
	switch msg.String() {
	case "tab":
		m.focus = (m.focus + 1) % focusCount
		return m, m.applyFocus()
	case "shift+tab":
		m.focus = (m.focus + focusCount - 1) % focusCount
		return m, m.applyFocus()
	case "ctrl+s":
		return m.submit()
	case "enter":
		if m.focus == focusSubmit {
			return m.submit()
		}
		if m.focus != focusMessage {
			m.focus++
			return m, m.applyFocus()
		}
	}
	return m.updateField(msg)
}

func (m Model) updateField(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case focusName:
		m.name, cmd = m.name.Update(msg)
		m.ctrl.SetName(m.name.Value())
	case focusEmail:
		m.email, cmd = m.email.Update(msg)
		m.ctrl.SetEmail(m.email.Value())
	case focusMessage:
		m.message, cmd = m.message.Update(msg)
		m.ctrl.SetMessage(m.message.Value())
	}
	return m, cmd
}

// submit settles invalid records in the update loop; only a valid record is
// sent from a background command.
func (m Model) submit() (tea.Model, tea.Cmd) {
	if err := app.Validate(m.ctrl.Record()); err != nil {
		notice, err := m.ctrl.Submit(m.ctx)
		return m.handleSubmitDone(submitDoneMsg{notice: notice, err: err})
	}
	m.sending = true
	m.blurAll()
	ctrl, ctx := m.ctrl, m.ctx
	run := func() tea.Msg {
		notice, err := ctrl.Submit(ctx)
		return submitDoneMsg{notice: notice, err: err}
	}
	m.spinner = spinner.New(spinner.WithSpinner(spinner.Dot))
	return m, tea.Batch(run, m.spinner.Tick)
}

func (m Model) handleSubmitDone(_ submitDoneMsg) (tea.Model, tea.Cmd) {
	m.sending = false
	m.syncFromRecord()
	focusCmd := m.applyFocus()
	shown, ok := m.ctrl.Notice()
	if !ok {
		return m, focusCmd
	}
	return m, tea.Batch(focusCmd, expireAfter(shown))
}

// expireAfter clears n when its lifetime ends, unless a newer notice replaced it.
func expireAfter(n app.Notice) tea.Cmd {
	seq := n.Seq
	return tea.Tick(n.ExpiresAt.Sub(n.ShownAt), func(_ time.Time) tea.Msg {
		return noticeExpiredMsg{seq: seq}
	})
}

func (m *Model) syncFromRecord() {
	rec := m.ctrl.Record()
	m.name.SetValue(rec.Name)
	m.email.SetValue(rec.Email)
	m.message.SetValue(rec.Message)
}

func (m *Model) blurAll() {
	m.name.Blur()
	m.email.Blur()
	m.message.Blur()
}

func (m *Model) applyFocus() tea.Cmd {
	m.blurAll()
	switch m.focus {
	case focusName:
		return m.name.Focus()
	case focusEmail:
		return m.email.Focus()
	case focusMessage:
		return m.message.Focus()
	}
	return nil
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(Title))
	b.WriteString("\n")
	if n, ok := m.ctrl.Notice(); ok {
		style := successNoticeStyle
		if n.Kind == domain.NoticeError {
			style = errorNoticeStyle
		}
		b.WriteString(style.Render(n.Text + "  (" + dismissHint + ")"))
		b.WriteString("\n\n")
	}
	b.WriteString(m.label(namePrompt, focusName) + "\n" + m.name.View() + "\n\n")
	b.WriteString(m.label(emailPrompt, focusEmail) + "\n" + m.email.View() + "\n\n")
	b.WriteString(m.label(messagePrompt, focusMessage) + "\n" + m.message.View() + "\n\n")
	b.WriteString(m.button())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(navigationHelp))
	return frameStyle.Render(b.String())
}

func (m Model) label(text string, target focusTarget) string {
	if m.focus == target && !m.sending {
		return focusedLabelStyle.Render(text)
	}
	return labelStyle.Render(text)
}

func (m Model) button() string {
	switch {
	case m.sending:
		return busyButtonStyle.Render(m.spinner.View() + " " + BusyLabel)
	case m.focus == focusSubmit:
		return focusedButtonStyle.Render(SubmitLabel)
	default:
		return buttonStyle.Render(SubmitLabel)
	}
}

// Sending reports whether a submission is in flight.
func (m Model) Sending() bool { return m.sending }
