package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tejasmk/doorbell/internal/conversation"
	"github.com/tejasmk/doorbell/internal/identity"
	"github.com/tejasmk/doorbell/internal/models"
)

// inboundMsg carries a relayed message into the bubbletea loop.
type inboundMsg struct {
	msg models.Message
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	mineStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	theirsStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	botStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	timeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Italic(true)
)

type visitorModel struct {
	conv     *conversation.Conversation
	resolver *identity.Resolver

	vp    viewport.Model
	input textinput.Model
	ready bool
}

func newVisitorModel(conv *conversation.Conversation, resolver *identity.Resolver) visitorModel {
	input := textinput.New()
	input.Placeholder = "Type a message..."
	input.Focus()
	return visitorModel{conv: conv, resolver: resolver, input: input}
}

func (m visitorModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m visitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.vp = viewport.New(msg.Width, msg.Height-4)
			m.ready = true
		} else {
			m.vp.Width = msg.Width
			m.vp.Height = msg.Height - 4
		}
		m.input.Width = msg.Width - 4
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			// A blank submit, or a submit while anonymous, is a no-op:
			// the input stays so the user sees nothing was sent.
			if m.conv.Submit(m.input.Value()) {
				m.input.Reset()
				m.refresh()
			}
			return m, nil
		}

	case inboundMsg:
		m.conv.Receive(msg.msg)
		m.refresh()
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.vp, cmd = m.vp.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// refresh re-renders the transcript and applies the snap-to-bottom
// policy: every history mutation forces the newest message into view.
func (m *visitorModel) refresh() {
	if !m.ready {
		return
	}
	m.vp.SetContent(renderTranscript(m.conv, m.vp.Width))
	if m.conv.ConsumeScroll() {
		m.vp.GotoBottom()
	}
}

func (m visitorModel) View() string {
	if !m.ready {
		return "loading..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Live Chat"))
	b.WriteString("\n")
	b.WriteString(m.vp.View())
	b.WriteString("\n")
	if _, ok := m.resolver.Current(); !ok {
		b.WriteString(noticeStyle.Render("not signed in; sending is disabled, restart to sign in"))
	} else {
		b.WriteString(m.input.View())
	}
	return b.String()
}

// renderTranscript formats the conversation for the viewport.
func renderTranscript(conv *conversation.Conversation, width int) string {
	msgs := conv.Messages()
	if len(msgs) == 0 {
		return noticeStyle.Render("no messages yet")
	}

	var b strings.Builder
	for _, msg := range msgs {
		b.WriteString(renderLine(conv, msg, width))
		b.WriteString("\n")
	}
	return b.String()
}

func renderLine(conv *conversation.Conversation, msg models.Message, width int) string {
	label := msg.Sender
	style := theirsStyle
	switch {
	case conv.IsMine(msg):
		label = "me"
		style = mineStyle
	case msg.Sender == models.SenderBot:
		style = botStyle
	}

	line := fmt.Sprintf("%s %s: %s",
		timeStyle.Render(msg.DisplayTime()),
		style.Render(label),
		msg.Text,
	)
	if conv.IsMine(msg) && width > 0 {
		return lipgloss.PlaceHorizontal(width, lipgloss.Right, line)
	}
	return line
}
