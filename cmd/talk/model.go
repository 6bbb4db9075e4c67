package main

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

const (
	senderUser = "user"
	senderAI   = "ai"

	defaultWidth  = 80
	defaultHeight = 24
	// Title, status and help lines around the transcript.
	chromeHeight = 4
)

type transcriptMsg struct {
	text    string
	isFinal bool
	sender  string
}

type statusMsg struct {
	text string
}

type responseCompleteMsg struct{}

type connectionClosedMsg struct {
	err error
}

type transcriptLine struct {
	sender      string
	text        string
	interrupted bool
}

type model struct {
	lines []transcriptLine
	// interim is the user's speech recognized so far that is not final yet.
	interim string
	// aiOpen is set while interviewer text is streaming into the last line.
	aiOpen     bool
	status     string
	responding bool
	err        error

	interrupt func()

	spinner  spinner.Model
	viewport viewport.Model
	styles   styles
	width    int
}

func newModel(interrupt func()) model {
	return model{
		interrupt: interrupt,
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
		),
		viewport: viewport.New(defaultWidth, defaultHeight-chromeHeight),
		styles:   newStyles(),
		width:    defaultWidth,
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-chromeHeight, 1)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case " ", "space":
			if m.interrupt != nil {
				m.interrupt()
			}
			m.endResponse(true)
			m.status = "Interrupted"
			m.refresh()
			return m, nil
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case transcriptMsg:
		m.addTranscript(msg)
		m.refresh()
		return m, nil

	case statusMsg:
		m.status = msg.text
		m.aiOpen = false
		started := !m.responding
		m.responding = true
		if started {
			return m, m.spinner.Tick
		}
		return m, nil

	case responseCompleteMsg:
		m.endResponse(false)
		m.status = ""
		m.refresh()
		return m, nil

	case connectionClosedMsg:
		m.err = msg.err
		return m, tea.Quit

	case spinner.TickMsg:
		if !m.responding {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *model) addTranscript(msg transcriptMsg) {
	switch msg.sender {
	case senderUser:
		if !msg.isFinal {
			m.interim = msg.text
			return
		}
		m.interim = ""
		m.aiOpen = false
		m.lines = append(m.lines, transcriptLine{sender: senderUser, text: msg.text})
	case senderAI:
		if m.aiOpen && len(m.lines) > 0 {
			last := &m.lines[len(m.lines)-1]
			last.text += msg.text
			return
		}
		m.aiOpen = true
		m.lines = append(m.lines, transcriptLine{sender: senderAI, text: msg.text})
	}
}

func (m *model) endResponse(interrupted bool) {
	if interrupted && m.aiOpen && len(m.lines) > 0 {
		m.lines[len(m.lines)-1].interrupted = true
	}
	m.aiOpen = false
	m.responding = false
}

func (m *model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m model) renderTranscript() string {
	wrapAt := max(m.width-2, 20)
	var b strings.Builder
	for _, line := range m.lines {
		label := m.styles.user.Render("You")
		if line.sender == senderAI {
			label = m.styles.interviewer.Render("Interviewer")
		}
		b.WriteString(label)
		b.WriteString("\n")
		b.WriteString(m.styles.text.Render(wordwrap.String(strings.TrimSpace(line.text), wrapAt)))
		if line.interrupted {
			b.WriteString(" ")
			b.WriteString(m.styles.interrupted.Render("(interrupted)"))
		}
		b.WriteString("\n\n")
	}
	if m.interim != "" {
		b.WriteString(m.styles.interim.Render(wordwrap.String(m.interim, wrapAt)))
		b.WriteString("\n")
	}
	return b.String()
}

func (m model) View() string {
	var status string
	switch {
	case m.responding:
		status = m.spinner.View() + " " + m.styles.status.Render(m.status)
	case m.status != "":
		status = m.styles.status.Render(m.status)
	default:
		status = m.styles.help.Render("Listening")
	}

	help := m.styles.help.Render("space: interrupt • q: quit")
	if m.err != nil {
		help = m.styles.err.Render(m.err.Error())
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.styles.title.Render("Interview"),
		status,
		m.viewport.View(),
		help,
	)
}
