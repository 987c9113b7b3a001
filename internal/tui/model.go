package tui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ragchat/internal/domain"
	"ragchat/internal/provider"
	"ragchat/internal/service"
)

// SessionFactory builds a service for the backend chosen in the menu.
// grounded indicates whether the session needs the embedding pipeline.
type SessionFactory func(backend string, grounded bool) (*service.Service, error)

type sessionState int

const (
	stateModeSelect sessionState = iota
	stateProviderSelect
	stateIndexing
	stateChat
	stateWaiting
	stateStreaming
)

const (
	modeChat = iota
	modeRAG
)

var backends = []string{provider.BackendOpenAI, provider.BackendGemini, provider.BackendGroq}

// Model drives the interactive session: pick a mode, pick a backend,
// optionally index a document, then chat.
type Model struct {
	factory SessionFactory
	doc     *domain.Document

	state   sessionState
	mode    int
	cursor  int
	backend string
	svc     *service.Service

	input    textinput.Model
	viewport viewport.Model
	spin     spinner.Model
	history  string
	partial  string
	status   string
	ready    bool
	width    int
	height   int

	stream provider.Stream
}

// New creates the session model. doc may be nil; grounded mode then
// queries whatever the store already holds.
func New(factory SessionFactory, doc *domain.Document) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type a message and press Enter (exit to quit)"
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = statusStyle
	return Model{
		factory:  factory,
		doc:      doc,
		input:    ti,
		viewport: vp,
		spin:     sp,
		status:   "Choose a session mode.",
	}
}

// Init starts the cursor blink and the spinner tick.
func (m Model) Init() tea.Cmd { return tea.Batch(textinput.Blink, m.spin.Tick) }

type sessionReadyMsg struct{ svc *service.Service }

type indexDoneMsg struct{ chunks int }

type streamStartMsg struct{ stream provider.Stream }

type streamFragMsg struct{ frag string }

type streamDoneMsg struct{}

type errMsg struct{ err error }

// Update handles key, window and pipeline events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch m.state {
		case stateModeSelect, stateProviderSelect:
			return m.updateMenu(msg)
		case stateChat:
			return m.updateChat(msg)
		default:
			// Indexing or a reply in flight; ignore typing.
			return m, nil
		}

	case sessionReadyMsg:
		m.svc = msg.svc
		if m.mode == modeRAG && m.doc != nil {
			m.state = stateIndexing
			m.status = fmt.Sprintf("Indexing %s...", m.doc.Title)
			return m, indexCmd(m.svc, *m.doc)
		}
		return m.enterChat()

	case indexDoneMsg:
		m.appendLine(systemStyle.Render(fmt.Sprintf("Indexed %d chunks.", msg.chunks)))
		return m.enterChat()

	case streamStartMsg:
		m.stream = msg.stream
		m.state = stateStreaming
		m.partial = ""
		return m, recvCmd(m.stream)

	case streamFragMsg:
		m.partial += msg.frag
		m.refreshViewport()
		return m, recvCmd(m.stream)

	case streamDoneMsg:
		m.stream.Close()
		m.stream = nil
		m.appendLine(assistantStyle.Render(m.partial) + "\n")
		m.partial = ""
		m.state = stateChat
		m.status = statusReady(m.backend, m.mode)
		return m, nil

	case errMsg:
		if m.stream != nil {
			m.stream.Close()
			m.stream = nil
		}
		if m.partial != "" {
			m.appendLine(assistantStyle.Render(m.partial) + "\n")
			m.partial = ""
		}
		if m.svc == nil || m.state == stateIndexing {
			// Setup and indexing failures are fatal to the session.
			m.appendLine(errorStyle.Render("Fatal: " + msg.err.Error()))
			return m, tea.Quit
		}
		m.appendLine(errorStyle.Render("Error: " + msg.err.Error()))
		m.state = stateChat
		m.status = statusReady(m.backend, m.mode)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	count := 2
	if m.state == stateProviderSelect {
		count = len(backends)
	}
	switch msg.String() {
	case "up", "k":
		m.cursor = (m.cursor - 1 + count) % count
	case "down", "j":
		m.cursor = (m.cursor + 1) % count
	case "enter":
		if m.state == stateModeSelect {
			m.mode = m.cursor
			m.state = stateProviderSelect
			m.cursor = 0
			m.status = "Choose a backend."
			return m, nil
		}
		m.backend = backends[m.cursor]
		m.status = "Connecting to " + m.backend + "..."
		factory := m.factory
		backend := m.backend
		grounded := m.mode == modeRAG
		return m, func() tea.Msg {
			svc, err := factory(backend, grounded)
			if err != nil {
				return errMsg{err}
			}
			return sessionReadyMsg{svc}
		}
	}
	return m, nil
}

func (m Model) updateChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "enter" {
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		if strings.EqualFold(text, "exit") {
			return m, tea.Quit
		}
		m.input.Reset()
		m.appendLine(userStyle.Render("You: ") + text)
		m.state = stateWaiting
		m.status = "Waiting for " + m.backend + "..."
		svc := m.svc
		grounded := m.mode == modeRAG
		return m, func() tea.Msg {
			ctx := context.Background()
			var (
				stream provider.Stream
				err    error
			)
			if grounded {
				stream, err = svc.AnswerStream(ctx, text)
			} else {
				stream, err = svc.ChatStream(ctx, text)
			}
			if err != nil {
				return errMsg{err}
			}
			return streamStartMsg{stream}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) enterChat() (tea.Model, tea.Cmd) {
	m.state = stateChat
	m.status = statusReady(m.backend, m.mode)
	m.input.Focus()
	m.refreshViewport()
	return m, textinput.Blink
}

func indexCmd(svc *service.Service, doc domain.Document) tea.Cmd {
	return func() tea.Msg {
		n, err := svc.Index(context.Background(), doc)
		if err != nil {
			return errMsg{err}
		}
		return indexDoneMsg{chunks: n}
	}
}

// recvCmd pulls one fragment; the update loop re-issues it until EOF,
// so the backend is only read as fast as the UI consumes.
func recvCmd(stream provider.Stream) tea.Cmd {
	return func() tea.Msg {
		frag, err := stream.Recv()
		if err == io.EOF {
			return streamDoneMsg{}
		}
		if err != nil {
			return errMsg{err}
		}
		return streamFragMsg{frag}
	}
}

// View renders the menus or the chat layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	switch m.state {
	case stateModeSelect:
		return m.renderMenu("Session mode", []string{"Chat", "Chat with your documents"})
	case stateProviderSelect:
		return m.renderMenu("Backend", backendLabels())
	default:
		header := headerStyle.Render("ragchat") + " " + systemStyle.Render(statusReady(m.backend, m.mode))
		chat := chatBoxStyle.Render(m.viewport.View())
		input := inputBoxStyle.Render(m.input.View())
		status := statusStyle.Render(m.status)
		if m.state == stateIndexing || m.state == stateWaiting {
			status = m.spin.View() + status
		}
		return header + "\n" + chat + "\n" + input + "\n" + status
	}
}

func (m Model) renderMenu(title string, items []string) string {
	var sb strings.Builder
	sb.WriteString(headerStyle.Render(title) + "\n\n")
	for i, item := range items {
		if i == m.cursor {
			sb.WriteString(cursorStyle.Render("> "+item) + "\n")
		} else {
			sb.WriteString("  " + item + "\n")
		}
	}
	sb.WriteString("\n" + statusStyle.Render(m.status))
	return sb.String()
}

func backendLabels() []string {
	labels := make([]string, len(backends))
	for i, b := range backends {
		labels[i] = b
	}
	return labels
}

func statusReady(backend string, mode int) string {
	if mode == modeRAG {
		return fmt.Sprintf("[%s, grounded] Ask away. Type exit to quit.", backend)
	}
	return fmt.Sprintf("[%s] Ask away. Type exit to quit.", backend)
}

func (m *Model) appendLine(line string) {
	m.history += line + "\n"
	m.refreshViewport()
}

func (m *Model) refreshViewport() {
	content := m.history
	if m.partial != "" {
		content += assistantStyle.Render(m.partial)
	}
	m.viewport.SetContent(content)
	m.viewport.GotoBottom()
}

func (m *Model) resize() {
	_, ch := chatBoxStyle.GetFrameSize()
	_, ih := inputBoxStyle.GetFrameSize()
	reserved := 2 + ih // header + status
	vh := m.height - reserved - ch
	if vh < 3 {
		vh = 3
	}
	m.viewport.Width = max(20, m.width)
	m.viewport.Height = vh
	m.refreshViewport()
}

var (
	chatBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	headerStyle    = lipgloss.NewStyle().Bold(true)
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	systemStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	cursorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
