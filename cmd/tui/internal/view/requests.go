package view

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/condo/internal/client"
	"github.com/MrJamesThe3rd/condo/internal/ledger"
)

// WatchMsg asks the root model to open the live view of a request.
type WatchMsg struct {
	RequestID uuid.UUID
}

var statusFilters = []ledger.RequestStatus{
	"",
	ledger.RequestPending,
	ledger.RequestAccepted,
	ledger.RequestInProgress,
	ledger.RequestCompleted,
	ledger.RequestRejected,
}

type RequestsModel struct {
	CommonModel
	api *client.Client

	table   table.Model
	all     []*ledger.Request
	shown   []*ledger.Request
	filter  int
	loading bool
	err     error
}

func NewRequestsModel(api *client.Client) RequestsModel {
	columns := []table.Column{
		{Title: "Created", Width: 12},
		{Title: "Type", Width: 12},
		{Title: "Status", Width: 12},
		{Title: "Priority", Width: 9},
		{Title: "Docs", Width: 6},
		{Title: "Title", Width: 40},
	}

	return RequestsModel{
		api:     api,
		table:   newTable(columns),
		loading: true,
	}
}

func newTable(columns []table.Column) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return t
}

func (m RequestsModel) Title() string { return "Requests" }
func (m RequestsModel) ShortHelp() string {
	return "Esc: back | Enter: watch | s: status filter | r: refresh"
}

func (m RequestsModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m RequestsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadRequestsMsg:
		m.loading = false
		m.err = msg.err
		m.all = msg.reqs
		m.refreshTable()

		return m, nil

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "s":
			m.filter = (m.filter + 1) % len(statusFilters)
			m.refreshTable()

			return m, nil
		case "enter":
			idx := m.table.Cursor()
			if idx < 0 || idx >= len(m.shown) {
				return m, nil
			}

			id := m.shown[idx].ID

			return m, func() tea.Msg { return WatchMsg{RequestID: id} }
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m RequestsModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading requests...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v", m.err))
	}

	label := "All"
	if f := statusFilters[m.filter]; f != "" {
		label = string(f)
	}

	header := fmt.Sprintf("Filter: [s] Status: %s | %d requests", activeStyle(label), len(m.shown))

	tableView := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	return lipgloss.NewStyle().Padding(1).Render(lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		tableView,
	))
}

func activeStyle(s string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Render(s)
}

func (m *RequestsModel) refreshTable() {
	want := statusFilters[m.filter]

	m.shown = nil
	for _, r := range m.all {
		if want == "" || r.Status == want {
			m.shown = append(m.shown, r)
		}
	}

	rows := make([]table.Row, 0, len(m.shown))
	for _, r := range m.shown {
		signed := 0
		for _, d := range r.Documents {
			if d.Signed {
				signed++
			}
		}

		rows = append(rows, table.Row{
			FormatDate(r.CreatedAt),
			string(r.Type),
			string(r.Status),
			string(r.Priority),
			fmt.Sprintf("%d/%d", signed, len(r.Documents)),
			r.Title,
		})
	}

	m.table.SetRows(rows)
}

type loadRequestsMsg struct {
	reqs []*ledger.Request
	err  error
}

func (m RequestsModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := APICtx()
		defer cancel()

		reqs, err := m.api.ListRequests(ctx)

		return loadRequestsMsg{reqs: reqs, err: err}
	}
}
