package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jwebster45206/dicebot/pkg/command"
)

const (
	BotName         = "Dicebot"
	PlaceHolderText = "Type a dice expression (4d6kh3+2) or a command (~help)..."
	historyLimit    = 10
)

type entryKind int

const (
	entryUser entryKind = iota
	entryResult
	entryError
	entryInfo
)

type logEntry struct {
	kind entryKind
	text string
}

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config       *ConsoleConfig
	client       *http.Client
	events       <-chan SSEEvent
	chatViewport viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	ready        bool
	width        int
	height       int

	entries    []logEntry
	loading    bool              // waiting on a synchronous roll
	pending    map[string]string // request id -> command text
	lastResult string
	status     string

	characters []CharacterSummary
	history    []command.RollRecord

	// Quit confirmation state
	showQuitModal bool

	// Progress bar state
	progressTick int
}

type rollResultMsg struct {
	expression string
	response   *command.RollResponse
	err        error
}

type commandSentMsg struct {
	content   string
	requestID string
	err       error
}

type eventMsg struct {
	event SSEEvent
	ok    bool
}

type charactersMsg struct {
	characters []CharacterSummary
	err        error
}

type historyMsg struct {
	history []command.RollRecord
	err     error
}

type progressTickMsg struct{}

var (
	chatPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	botStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

func NewConsoleUI(cfg *ConsoleConfig, client *http.Client, events <-chan SSEEvent) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 500
	ta.SetWidth(50)
	ta.SetHeight(2)
	ta.ShowLineNumbers = false

	chatVp := viewport.New(50, 20)
	chatVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	return ConsoleUI{
		config:       cfg,
		client:       client,
		events:       events,
		textarea:     ta,
		chatViewport: chatVp,
		metaViewport: metaVp,
		pending:      make(map[string]string),
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.waitForEvent(), m.loadCharacters(), m.loadHistory())
}

// formatEntry renders one log line wrapped to width.
func formatEntry(e logEntry, width int) string {
	switch e.kind {
	case entryUser:
		return userStyle.Render("You: ") + wordwrap.String(e.text, width-5)
	case entryResult:
		prefix := BotName + ": "
		return botStyle.Render(prefix) + resultStyle.Render(wordwrap.String(e.text, width-len(prefix)))
	case entryError:
		return errorStyle.Render(wordwrap.String(e.text, width))
	default:
		return infoStyle.Render(wordwrap.String(e.text, width))
	}
}

// writeChatContent rebuilds the log for the current viewport width
func (m *ConsoleUI) writeChatContent() {
	chatWidth := m.chatViewport.Width - 6 // Account for left(3) + right(3) padding
	if chatWidth < 10 {
		chatWidth = 10
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render("DICEBOT") + "\n\n")
	content.WriteString(fmt.Sprintf("Rolling in channel %q. Plain expressions roll right away; %shelp lists bot commands.\n\n",
		m.config.ChannelID, m.config.Prefix))
	content.WriteString(separatorStyle.Render(strings.Repeat("─", chatWidth)) + "\n\n")

	for _, e := range m.entries {
		content.WriteString(formatEntry(e, chatWidth) + "\n\n")
	}

	if m.loading || len(m.pending) > 0 {
		content.WriteString(m.renderProgressBar())
	}

	m.chatViewport.SetContent(content.String())
	m.chatViewport.GotoBottom()
}

func writeMetadata(cfg *ConsoleConfig, characters []CharacterSummary, history []command.RollRecord, status string) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("TABLE") + "\n\n")

	content.WriteString("Channel:\n")
	content.WriteString(cfg.ChannelID + "\n\n")

	content.WriteString("Characters:\n")
	if len(characters) == 0 {
		content.WriteString("None loaded\n")
	}
	for _, c := range characters {
		line := fmt.Sprintf("• %s (%s)", c.Name, c.ID)
		if c.Class != "" {
			line += fmt.Sprintf(" L%d %s", c.Level, c.Class)
		}
		content.WriteString(line + "\n")
	}

	content.WriteString("\nRecent rolls:\n")
	if len(history) == 0 {
		content.WriteString("None yet\n")
	}
	for _, r := range history {
		content.WriteString(fmt.Sprintf("• %s = %s\n", r.Expression, r.Result))
	}

	content.WriteString("\n")
	content.WriteString("Keys:\n")
	content.WriteString("• Enter: Roll / send\n")
	content.WriteString("• Ctrl+Y: Copy result\n")
	content.WriteString("• Ctrl+C: Quit\n")
	content.WriteString("• /help, /clear\n")

	if status != "" {
		content.WriteString("\n" + promptStyle.Render(status) + "\n")
	}
	return content.String()
}

func (m *ConsoleUI) refreshMeta() {
	m.metaViewport.SetContent(writeMetadata(m.config, m.characters, m.history, m.status))
}

func (m *ConsoleUI) layout() {
	chatWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - chatWidth - 6

	m.chatViewport.Width = chatWidth - 2
	m.chatViewport.Height = m.height - 6
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
	m.textarea.SetWidth(chatWidth - 4)
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.chatViewport, vpCmd = m.chatViewport.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.ready = true
		m.writeChatContent()
		m.refreshMeta()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyCtrlY:
			if m.lastResult == "" {
				m.status = "Nothing to copy yet"
			} else if err := clipboard.WriteAll(m.lastResult); err != nil {
				m.status = "Copy failed: " + err.Error()
			} else {
				m.status = "Copied " + m.lastResult
			}
			m.refreshMeta()
			return m, nil
		case tea.KeyEnter:
			if m.loading {
				return m, nil
			}
			input := strings.TrimSpace(m.textarea.Value())
			m.textarea.Reset()
			if input == "" {
				return m, nil
			}
			return m.submit(input)
		}

	case rollResultMsg:
		m.loading = false
		var rollErr *RollError
		switch {
		case msg.err == nil:
			m.lastResult = msg.response.Result
			m.entries = append(m.entries, logEntry{entryResult, msg.response.Result})
		case errors.As(msg.err, &rollErr):
			m.entries = append(m.entries, logEntry{entryError, rollErr.Message})
		default:
			m.entries = append(m.entries, logEntry{entryError, "Error: " + msg.err.Error()})
		}
		m.writeChatContent()
		return m, m.loadHistory()

	case commandSentMsg:
		if msg.err != nil {
			m.entries = append(m.entries, logEntry{entryError, "Error: " + msg.err.Error()})
		} else {
			m.pending[msg.requestID] = msg.content
		}
		m.writeChatContent()
		return m, progressTick()

	case eventMsg:
		if !msg.ok {
			m.entries = append(m.entries, logEntry{entryInfo, "Event stream closed; command replies will not appear."})
			m.pending = make(map[string]string)
			m.writeChatContent()
			return m, nil
		}
		return m.handleEvent(msg.event)

	case charactersMsg:
		if msg.err == nil {
			m.characters = msg.characters
		}
		m.refreshMeta()

	case historyMsg:
		if msg.err == nil {
			m.history = msg.history
		}
		m.refreshMeta()

	case progressTickMsg:
		if m.loading || len(m.pending) > 0 {
			m.progressTick++
			m.writeChatContent()
			return m, progressTick()
		}
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.chatViewport, vpCmd = m.chatViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, mvCmd)
}

// submit routes input: local slash commands, bot commands through the
// queue, anything else straight to the roll endpoint.
func (m ConsoleUI) submit(input string) (tea.Model, tea.Cmd) {
	switch strings.ToLower(input) {
	case "/help":
		m.entries = append(m.entries, logEntry{entryInfo, helpText(m.config.Prefix)})
		m.writeChatContent()
		return m, nil
	case "/clear":
		m.entries = nil
		m.writeChatContent()
		return m, nil
	}

	m.entries = append(m.entries, logEntry{entryUser, input})
	m.progressTick = 0

	if strings.HasPrefix(input, m.config.Prefix) {
		m.writeChatContent()
		return m, m.sendCommand(input)
	}

	m.loading = true
	m.writeChatContent()
	return m, tea.Batch(m.roll(input), progressTick())
}

func (m ConsoleUI) handleEvent(ev SSEEvent) (tea.Model, tea.Cmd) {
	_, mine := m.pending[ev.RequestID]

	switch ev.Type {
	case "reply":
		if !mine {
			break
		}
		content, _ := ev.Data["content"].(string)
		if code, _ := ev.Data["code"].(string); code != "" {
			m.entries = append(m.entries, logEntry{entryError, content})
		} else {
			m.lastResult = content
			m.entries = append(m.entries, logEntry{entryResult, content})
		}
	case "request.completed":
		delete(m.pending, ev.RequestID)
	case "request.failed":
		if mine {
			delete(m.pending, ev.RequestID)
			errMsg, _ := ev.Data["error"].(string)
			m.entries = append(m.entries, logEntry{entryError, "Command failed: " + errMsg})
		}
	}

	m.writeChatContent()
	return m, tea.Batch(m.waitForEvent(), m.loadHistory())
}

func helpText(prefix string) string {
	return strings.Join([]string{
		"Expressions: 2d6+3, 4d6kh3, 2d20kl1, (1d4)d6, (2+3)*4, 7/2",
		"Bot commands: " + prefix + "roll, " + prefix + "check <character> <attribute>, " +
			prefix + "attack <character> <attack>, " + prefix + "8ball <question>, " + prefix + "ping, " + prefix + "help",
		"Console: /help, /clear, Ctrl+Y copies the last result",
	}, "\n")
}

func (m ConsoleUI) roll(expression string) tea.Cmd {
	return func() tea.Msg {
		resp, err := rollExpression(m.client, m.config.APIBaseURL, m.config.Lang, command.RollRequest{
			Expression: expression,
			ChannelID:  m.config.ChannelID,
			User:       m.config.User,
		})
		return rollResultMsg{expression, resp, err}
	}
}

func (m ConsoleUI) sendCommand(content string) tea.Cmd {
	return func() tea.Msg {
		id, err := sendCommand(m.client, m.config.APIBaseURL, m.config.Lang, command.CommandRequest{
			ChannelID: m.config.ChannelID,
			User:      m.config.User,
			Content:   content,
		})
		return commandSentMsg{content, id, err}
	}
}

func (m ConsoleUI) waitForEvent() tea.Cmd {
	if m.events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-m.events
		return eventMsg{ev, ok}
	}
}

func (m ConsoleUI) loadCharacters() tea.Cmd {
	return func() tea.Msg {
		chars, err := listCharacters(m.client, m.config.APIBaseURL)
		return charactersMsg{chars, err}
	}
}

func (m ConsoleUI) loadHistory() tea.Cmd {
	return func() tea.Msg {
		history, err := getHistory(m.client, m.config.APIBaseURL, m.config.ChannelID, historyLimit)
		return historyMsg{history, err}
	}
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit?"))
	content.WriteString("\n\n")
	content.WriteString("Leave the table?")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to keep rolling, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	chatWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - chatWidth - 6

	chatPanel := chatPanelStyle.Width(chatWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.chatViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", max(chatWidth-4, 0))),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, chatPanel, metaPanel)
}

// renderProgressBar creates an animated progress bar for loading states
func (m ConsoleUI) renderProgressBar() string {
	usable := m.chatViewport.Width - 6
	if usable <= 0 {
		usable = 30 // fallback before sizing
	}
	usable = min(max(usable, 10), 80)

	const totalFrames = 40
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := 0; i < usable; i++ {
		if i < filled {
			bar.WriteString("█")
		} else if i == filled && frame%4 < 2 {
			bar.WriteString("▓") // Blinking effect at the progress point
		} else {
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String())
}

// progressTick creates a command that sends a progress tick message
func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}
