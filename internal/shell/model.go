package shell

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
)

type focus int

const (
	focusList focus = iota
	focusScan
	focusConnect
	focusCount
)

const (
	defaultWidth  = 80
	defaultHeight = 24
	selectedMark  = "●"
)

// deviceItem is one visible list entry, the device label
type deviceItem string

func (i deviceItem) FilterValue() string { return string(i) }

// deviceDelegate renders list rows, marking the selected one
type deviceDelegate struct {
	shell *Shell
}

func (d deviceDelegate) Height() int                             { return 1 }
func (d deviceDelegate) Spacing() int                            { return 0 }
func (d deviceDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d deviceDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	label, ok := item.(deviceItem)
	if !ok {
		return
	}
	mark := " "
	if index == d.shell.Selected() {
		mark = selectedMark
	}
	row := fmt.Sprintf("%s %s", mark, label)
	if index == m.Index() {
		_, _ = fmt.Fprint(w, cursorStyle.Render("> "+row))
		return
	}
	_, _ = fmt.Fprint(w, "  "+row)
}

// Model is the Bubble Tea model of the console
type Model struct {
	shell   *Shell
	keys    keyMap
	help    help.Model
	log     viewport.Model
	devices list.Model
	focus   focus
	width   int
	height  int

	logSeen  int
	listSeen int
}

// NewModel creates the console model around a shell
func NewModel(s *Shell) Model {
	l := list.New(nil, deviceDelegate{shell: s}, defaultWidth, 8)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.SetShowPagination(true)
	l.DisableQuitKeybindings()

	m := Model{
		shell:    s,
		keys:     defaultKeyMap(),
		help:     help.New(),
		log:      viewport.New(defaultWidth, 10),
		devices:  l,
		width:    defaultWidth,
		height:   defaultHeight,
		listSeen: -1,
	}
	m.layout()
	m.sync()
	return m
}

// Shell returns the state behind the model
func (m Model) Shell() *Shell { return m.shell }

func (m Model) Init() tea.Cmd {
	return tea.SetWindowTitle(m.shell.Title())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.layout()
	case tea.KeyMsg:
		cmd = m.handleKey(msg)
	case scanDoneMsg:
		m.shell.OnScanComplete(msg.devices)
	case logLineMsg:
		m.shell.Log(msg.line)
	case connectDoneMsg:
		m.shell.OnConnectComplete(msg.outcome, msg.err)
	}

	m.sync()
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.layout()
	case key.Matches(msg, m.keys.Scan):
		m.shell.StartScan()
	case key.Matches(msg, m.keys.Connect):
		m.shell.StartConnect()
	case key.Matches(msg, m.keys.Focus):
		m.focus = (m.focus + 1) % focusCount
	case key.Matches(msg, m.keys.Up):
		m.devices.CursorUp()
	case key.Matches(msg, m.keys.Down):
		m.devices.CursorDown()
	case key.Matches(msg, m.keys.Select):
		m.press()
	case key.Matches(msg, m.keys.PageUp), key.Matches(msg, m.keys.PageDown):
		var cmd tea.Cmd
		m.log, cmd = m.log.Update(msg)
		return cmd
	}
	return nil
}

// press activates whatever has focus
func (m *Model) press() {
	switch m.focus {
	case focusList:
		if len(m.shell.Items()) > 0 {
			m.shell.Select(m.devices.Index())
		}
	case focusScan:
		m.shell.StartScan()
	case focusConnect:
		m.shell.StartConnect()
	}
}

// sync pushes shell state into the widgets
func (m *Model) sync() {
	if n := len(m.shell.Lines()); n != m.logSeen {
		m.setLogContent()
		m.log.GotoBottom()
		m.logSeen = n
	}

	if m.shell.listGen != m.listSeen {
		labels := m.shell.Items()
		items := make([]list.Item, len(labels))
		for i, label := range labels {
			items[i] = deviceItem(label)
		}
		m.devices.SetItems(items)
		m.devices.ResetSelected()
		m.listSeen = m.shell.listGen
	}
}

func (m *Model) layout() {
	inner := m.width - 2
	if inner < 20 {
		inner = 20
	}
	// title, buttons (3 rows), help, plus two bordered panels
	chrome := 1 + 3 + lipgloss.Height(m.help.View(m.keys)) + 4
	avail := m.height - chrome
	if avail < 6 {
		avail = 6
	}
	logHeight := avail * 3 / 5
	listHeight := avail - logHeight

	following := m.log.AtBottom()
	m.log.Width = inner
	m.log.Height = logHeight
	m.setLogContent()
	if following {
		m.log.GotoBottom()
	}
	m.devices.SetSize(inner, listHeight)
}

// setLogContent wraps log lines to the panel width instead of clipping them
func (m *Model) setLogContent() {
	wrapped := lipgloss.NewStyle().Width(m.log.Width).Render(strings.Join(m.shell.Lines(), "\n"))
	m.log.SetContent(wrapped)
}

func (m Model) View() string {
	logPanel := panelStyle.Render(m.log.View())

	listBody := m.devices.View()
	if len(m.shell.Items()) == 0 {
		listBody = mutedStyle.Render("No devices. Press s to scan.")
	}
	listPanel := panelStyle
	if m.focus == focusList {
		listPanel = panelFocusedStyle
	}

	scanBtn, connectBtn := buttonStyle, buttonStyle
	switch m.focus {
	case focusScan:
		scanBtn = buttonFocusedStyle
	case focusConnect:
		connectBtn = buttonFocusedStyle
	}
	buttons := lipgloss.JoinHorizontal(lipgloss.Top,
		scanBtn.Render("Scan for Devices"),
		connectBtn.Render("Connect to Selected"),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(m.shell.Title()),
		logPanel,
		buttons,
		listPanel.Width(m.log.Width).Render(listBody),
		m.help.View(m.keys),
	)
}

// Run starts the console on the terminal and blocks until the user quits
// or ctx is cancelled.
func Run(ctx context.Context, sess Session, logger *logrus.Logger) error {
	s := New(ctx, sess, logger, GoroutineDispatcher)
	program := tea.NewProgram(NewModel(s), tea.WithAltScreen(), tea.WithContext(ctx))
	s.SetProgramSender(program)

	_, err := program.Run()
	return err
}
