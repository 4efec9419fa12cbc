package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tejasmk/doorbell/internal/conversation"
	"github.com/tejasmk/doorbell/internal/directory"
	"github.com/tejasmk/doorbell/internal/models"
)

const sidebarWidth = 30

// inboundMsg carries a relayed message into the bubbletea loop.
type inboundMsg struct {
	msg models.Message
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("12"))
	unreadStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	mineStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	theirsStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	timeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	noticeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Italic(true)
	sidebarStyle  = lipgloss.NewStyle().Width(sidebarWidth).BorderStyle(lipgloss.NormalBorder()).BorderRight(true)
)

type adminModel struct {
	roster *directory.Roster
	conv   *conversation.Conversation

	cursor int
	vp     viewport.Model
	input  textinput.Model
	ready  bool
}

func newAdminModel(roster *directory.Roster, conv *conversation.Conversation) adminModel {
	input := textinput.New()
	input.Placeholder = "Reply..."
	input.Focus()
	return adminModel{roster: roster, conv: conv, input: input}
}

func (m adminModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m adminModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.vp = viewport.New(msg.Width-sidebarWidth-2, msg.Height-4)
			m.ready = true
		} else {
			m.vp.Width = msg.Width - sidebarWidth - 2
			m.vp.Height = msg.Height - 4
		}
		m.input.Width = msg.Width - sidebarWidth - 6
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyUp:
			m.moveCursor(-1)
			return m, nil
		case tea.KeyDown, tea.KeyTab:
			m.moveCursor(1)
			return m, nil
		case tea.KeyEnter:
			if m.conv.Submit(m.input.Value()) {
				// The reply also belongs to the roster's per-room
				// history, or it would vanish on reselect.
				if msgs := m.conv.Messages(); len(msgs) > 0 {
					m.roster.AppendLocal(msgs[len(msgs)-1])
				}
				m.input.Reset()
				m.refresh()
			}
			return m, nil
		}

	case inboundMsg:
		// Every room accumulates regardless of selection; only the
		// selected room's view changes on screen.
		if m.roster.Receive(msg.msg) {
			m.conv.Receive(msg.msg)
		}
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

// moveCursor changes the selected room. Selection swaps in the history
// accumulated for that room since the directory loaded; nothing is
// refetched.
func (m *adminModel) moveCursor(delta int) {
	entries := m.roster.Entries()
	if len(entries) == 0 {
		return
	}
	if m.roster.Selected() == "" {
		// First keypress selects the row under the cursor; only
		// subsequent presses move it.
		delta = 0
	}
	m.cursor = (m.cursor + delta + len(entries)) % len(entries)
	email := entries[m.cursor].Visitor.Email
	m.conv.SetRoom(email, m.roster.Select(email))
	m.refresh()
}

func (m *adminModel) refresh() {
	if !m.ready {
		return
	}
	m.vp.SetContent(m.renderTranscript())
	if m.conv.ConsumeScroll() {
		m.vp.GotoBottom()
	}
}

func (m adminModel) View() string {
	if !m.ready {
		return "loading..."
	}

	sidebar := sidebarStyle.Height(m.vp.Height + 2).Render(m.renderSidebar())
	chatBox := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(m.chatTitle()),
		m.vp.View(),
		m.input.View(),
	)
	return lipgloss.JoinHorizontal(lipgloss.Top, sidebar, chatBox)
}

func (m adminModel) chatTitle() string {
	if room := m.roster.Selected(); room != "" {
		return "Chat with " + room
	}
	return "Live Chat: select a visitor"
}

func (m adminModel) renderSidebar() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Visitors"))
	b.WriteString("\n")

	switch m.roster.State() {
	case directory.StateLoading:
		b.WriteString(noticeStyle.Render("loading..."))
		return b.String()
	case directory.StateFailed:
		b.WriteString(noticeStyle.Render("directory unavailable"))
		return b.String()
	}

	entries := m.roster.Entries()
	if len(entries) == 0 {
		b.WriteString(noticeStyle.Render("no visitors yet"))
		return b.String()
	}

	for i, entry := range entries {
		line := entry.Visitor.Email
		if entry.Unread > 0 {
			line = fmt.Sprintf("%s %s", line, unreadStyle.Render(fmt.Sprintf("(%d)", entry.Unread)))
		}
		if i == m.cursor && m.roster.Selected() == entry.Visitor.Email {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func (m adminModel) renderTranscript() string {
	if m.roster.Selected() == "" {
		return noticeStyle.Render("pick a visitor with up/down, reply with enter")
	}

	msgs := m.conv.Messages()
	if len(msgs) == 0 {
		return noticeStyle.Render("no messages yet")
	}

	var b strings.Builder
	for _, msg := range msgs {
		label, style := msg.Sender, theirsStyle
		if m.conv.IsMine(msg) {
			label, style = "me", mineStyle
		}
		fmt.Fprintf(&b, "%s %s: %s\n",
			timeStyle.Render(msg.DisplayTime()),
			style.Render(label),
			msg.Text,
		)
	}
	return b.String()
}
