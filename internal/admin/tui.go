package admin

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/xiy/faq-search/internal/store"
	"github.com/xiy/faq-search/pkg/types"
)

type tickMsg time.Time
type dashboardMsg struct {
	stats    store.Stats
	searches []types.SearchLog
	faqs     []types.FAQRecord
	err      error
	duration time.Duration
}

// DashboardStore is the read-only view of the store the dashboard polls.
type DashboardStore interface {
	Stats(ctx context.Context) (store.Stats, error)
	RecentSearchLogs(ctx context.Context, limit int) ([]types.SearchLog, error)
	FetchAll(ctx context.Context) ([]types.FAQRecord, error)
}

type model struct {
	ctx           context.Context
	st            DashboardStore
	stats         store.Stats
	searches      []types.SearchLog
	faqs          []types.FAQRecord
	lastErr       error
	lastTick      time.Time
	logLines      []string
	maxLogs       int
	searchesLimit int
	width         int
	height        int
}

// Run starts a lightweight local admin dashboard.
func Run(ctx context.Context, st DashboardStore) error {
	m := newModel(ctx, st)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func newModel(ctx context.Context, st DashboardStore) model {
	m := model{
		ctx:           ctx,
		st:            st,
		maxLogs:       10,
		searchesLimit: 8,
	}
	return m.appendLog("admin UI started")
}

func (m model) Init() tea.Cmd {
	return tea.Batch(fetchDashboardCmd(m.ctx, m.st, m.searchesLimit), tickCmd())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m = m.appendLog("received quit signal")
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		m.lastTick = time.Time(msg)
		return m, tea.Batch(fetchDashboardCmd(m.ctx, m.st, m.searchesLimit), tickCmd())
	case dashboardMsg:
		m.lastErr = msg.err
		if msg.err == nil {
			m.stats = msg.stats
			m.searches = msg.searches
			m.faqs = msg.faqs
			m = m.appendLog(fmt.Sprintf(
				"refresh ok faqs=%d searches=%d failed=%d (%s)",
				msg.stats.Records,
				msg.stats.Searches,
				msg.stats.FailedSearches,
				formatDuration(msg.duration),
			))
		} else {
			m = m.appendLog(fmt.Sprintf("refresh error: %v", msg.err))
		}
	}
	return m, nil
}

func (m model) View() string {
	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).Render("faq-search admin")
	meta := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("q to quit • refresh every 2s")

	statsBody := m.renderStats()
	logBody := "(no log events yet)"
	if len(m.logLines) > 0 {
		logBody = strings.Join(m.logLines, "\n")
	}

	paneWidth := 54
	if m.width > 0 {
		paneWidth = max(38, (m.width-3)/2)
	}
	paneHeight := 9
	if m.height > 0 {
		paneHeight = max(8, (m.height-8)/2)
	}

	topRow := joinColumns(
		renderPane("Stats", statsBody, paneWidth, paneHeight),
		renderPane("General Logs", logBody, paneWidth, paneHeight),
	)
	bottomRow := joinColumns(
		renderPane("Recent Searches", formatSearchPane(m.searches), paneWidth, paneHeight),
		renderPane("Corpus", formatCorpusPane(m.faqs, paneHeight), paneWidth, paneHeight),
	)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		title,
		meta,
		"",
		topRow,
		bottomRow,
	)
}

func (m model) renderStats() string {
	body := fmt.Sprintf(
		"FAQ records:     %d\nSearches:        %d\nFailed:          %d\nLast refresh:    %s",
		m.stats.Records,
		m.stats.Searches,
		m.stats.FailedSearches,
		formatTime(m.lastTick),
	)
	if m.lastErr != nil {
		body += "\n\nLast error: " + truncateText(compactWhitespace(m.lastErr.Error()), 120)
	}
	return body
}

func fetchDashboardCmd(ctx context.Context, st DashboardStore, searchLimit int) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		s, err := st.Stats(ctx)
		if err != nil {
			return dashboardMsg{err: err, duration: time.Since(start)}
		}

		searches, err := st.RecentSearchLogs(ctx, searchLimit)
		if err != nil {
			return dashboardMsg{stats: s, err: err, duration: time.Since(start)}
		}

		faqs, err := st.FetchAll(ctx)
		if err != nil {
			return dashboardMsg{stats: s, searches: searches, err: err, duration: time.Since(start)}
		}

		return dashboardMsg{
			stats:    s,
			searches: searches,
			faqs:     faqs,
			duration: time.Since(start),
		}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.RFC3339)
}

func (m model) appendLog(line string) model {
	if strings.TrimSpace(line) == "" {
		return m
	}
	entry := fmt.Sprintf("[%s] %s", time.Now().UTC().Format("15:04:05"), line)
	m.logLines = append(m.logLines, entry)
	if m.maxLogs <= 0 {
		m.maxLogs = 10
	}
	if len(m.logLines) > m.maxLogs {
		m.logLines = m.logLines[len(m.logLines)-m.maxLogs:]
	}
	return m
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return d.String()
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Round(10 * time.Millisecond).String()
}

func renderPane(title, body string, width, height int) string {
	style := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(1, 2)
	if width > 0 {
		style = style.Width(width)
	}
	if height > 0 {
		style = style.Height(height)
	}
	return style.Render(title + "\n\n" + body)
}

func joinColumns(left, right string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right)
}

func formatSearchPane(rows []types.SearchLog) string {
	if len(rows) == 0 {
		return "(no searches yet)"
	}
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		status := "ok"
		if !row.Success {
			status = "err"
		}
		line := fmt.Sprintf(
			"[%s] %-3s %-24s k=%-2d %4dms",
			formatClock(row.CreatedAt),
			status,
			truncateText(compactWhitespace(row.Query), 24),
			row.TopK,
			max(0, row.DurationMS),
		)
		switch {
		case !row.Success && strings.TrimSpace(row.ErrorText) != "":
			line += " " + truncateText(compactWhitespace(row.ErrorText), 52)
		case row.TopQuestion != "":
			line += " -> " + truncateText(row.TopQuestion, 40)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func formatCorpusPane(rows []types.FAQRecord, height int) string {
	if len(rows) == 0 {
		return "(corpus is empty, run seed)"
	}
	limit := len(rows)
	if height > 4 && limit > height-4 {
		limit = height - 4
	}
	lines := make([]string, 0, limit+1)
	for _, row := range rows[:limit] {
		lines = append(lines, fmt.Sprintf("#%-4d %s", row.ID, truncateText(compactWhitespace(row.Question), 60)))
	}
	if limit < len(rows) {
		lines = append(lines, fmt.Sprintf("... %d more", len(rows)-limit))
	}
	return strings.Join(lines, "\n")
}

func formatClock(t time.Time) string {
	if t.IsZero() {
		return "--:--:--"
	}
	return t.UTC().Format("15:04:05")
}

func truncateText(s string, limit int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	if limit <= 3 {
		return string(r[:limit])
	}
	return string(r[:limit-3]) + "..."
}

func compactWhitespace(s string) string {
	return strings.Join(strings.Fields(strings.TrimSpace(s)), " ")
}
