// Package tui renders the dashboard state in a terminal.
package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"hedera-pulse/internal/domain"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Controller is the refresh controller as seen by the display layer.
type Controller interface {
	Start(ctx context.Context)
	Stop()
	State() domain.RefreshState
	Refresh(ctx context.Context) domain.RefreshState
	Subscribe() (<-chan domain.RefreshState, func())
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5F87"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#767676"))
	panelStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

var feedColors = map[domain.Feed]lipgloss.Color{
	domain.FeedTxCount:    lipgloss.Color("#8884d8"),
	domain.FeedUSDCMinted: lipgloss.Color("#82ca9d"),
	domain.FeedGreedFear:  lipgloss.Color("#ff7300"),
}

type stateMsg domain.RefreshState

type refreshedMsg struct{}

// Model mounts the controller on Init and tears it down on quit.
type Model struct {
	ctx         context.Context
	ctrl        Controller
	updates     <-chan domain.RefreshState
	unsubscribe func()
	closeOnce   sync.Once

	state   domain.RefreshState
	spinner spinner.Model
	width   int
	height  int
	source  string
}

func NewModel(ctx context.Context, ctrl Controller, source string) *Model {
	updates, unsubscribe := ctrl.Subscribe()
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return &Model{
		ctx:         ctx,
		ctrl:        ctrl,
		updates:     updates,
		unsubscribe: unsubscribe,
		state:       ctrl.State(),
		spinner:     sp,
		width:       100,
		height:      40,
		source:      source,
	}
}

func (m *Model) SetSize(width, height int) {
	if width > 0 {
		m.width = width
	}
	if height > 0 {
		m.height = height
	}
}

func (m *Model) State() domain.RefreshState { return m.state }

func (m *Model) Init() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return tea.Batch(
		m.spinner.Tick,
		func() tea.Msg {
			ctrl.Start(ctx)
			return nil
		},
		waitForState(m.updates),
	)
}

func waitForState(updates <-chan domain.RefreshState) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-updates
		if !ok {
			return nil
		}
		return stateMsg(s)
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.Close()
			return m, tea.Quit
		case "r":
			ctrl, ctx := m.ctrl, m.ctx
			return m, func() tea.Msg {
				ctrl.Refresh(ctx)
				return refreshedMsg{}
			}
		}
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
	case stateMsg:
		m.state = domain.RefreshState(msg)
		return m, waitForState(m.updates)
	case spinner.TickMsg:
		if m.state.Status() != domain.StatusInitializing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// Close stops the controller and ends the subscription, which releases any
// pending state wait. It is safe to call more than once and from any goroutine.
func (m *Model) Close() {
	m.closeOnce.Do(func() {
		m.ctrl.Stop()
		m.unsubscribe()
	})
}

func (m *Model) View() string {
	switch m.state.Status() {
	case domain.StatusInitializing:
		return fmt.Sprintf("%s Loading...\n", m.spinner.View())
	case domain.StatusFailed:
		return lipgloss.Place(m.width, max(m.height-1, 1), lipgloss.Center, lipgloss.Center,
			errorStyle.Render(m.state.Error)) + "\n" + m.footer()
	}

	chartW := max(m.width-4, minChartWidth)
	// three panels, each with a title line, axis, x labels and a border
	chartH := max((m.height-2)/len(domain.Feeds)-5, minChartHeight)

	panels := make([]string, 0, len(domain.Feeds))
	for _, feed := range domain.Feeds {
		chart := lipgloss.NewStyle().Foreground(feedColors[feed]).
			Render(RenderLineChart(m.state.Series(feed), chartW, chartH))
		panels = append(panels, panelStyle.Render(
			lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(feed.Title()), chart),
		))
	}
	return lipgloss.JoinVertical(lipgloss.Left, panels...) + "\n" + m.footer()
}

func (m *Model) footer() string {
	parts := []string{}
	if m.source != "" {
		parts = append(parts, m.source)
	}
	if !m.state.UpdatedAt.IsZero() {
		parts = append(parts, "updated "+m.state.UpdatedAt.Format(time.TimeOnly))
	}
	parts = append(parts, "r refresh", "q quit")
	return footerStyle.Render(strings.Join(parts, " · "))
}
