package view

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/condo/internal/client"
)

type BuildingsModel struct {
	CommonModel
	api *client.Client

	table     table.Model
	buildings []client.Building
	loading   bool
	err       error
}

func NewBuildingsModel(api *client.Client) BuildingsModel {
	columns := []table.Column{
		{Title: "Building", Width: 24},
		{Title: "Units", Width: 6},
		{Title: "Occupied", Width: 9},
		{Title: "Received", Width: 12},
		{Title: "Pending", Width: 12},
		{Title: "Late", Width: 12},
		{Title: "Open Req.", Width: 9},
	}

	return BuildingsModel{api: api, table: newTable(columns), loading: true}
}

func (m BuildingsModel) Title() string     { return "Buildings" }
func (m BuildingsModel) ShortHelp() string { return "Esc: back | r: refresh" }

func (m BuildingsModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m BuildingsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadBuildingsMsg:
		m.loading = false
		m.err = msg.err
		m.buildings = msg.buildings
		m.refreshTable()

		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m BuildingsModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading buildings...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v", m.err))
	}

	return lipgloss.NewStyle().Padding(1).Render(
		lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			Render(m.table.View()),
	)
}

func (m *BuildingsModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.buildings))
	for _, b := range m.buildings {
		st := b.Stats
		rows = append(rows, table.Row{
			b.Name,
			fmt.Sprint(st.Units),
			fmt.Sprint(st.Occupied),
			FormatAmount(st.Payments.TotalReceived),
			FormatAmount(st.Payments.TotalPending),
			FormatAmount(st.Payments.TotalLate),
			fmt.Sprint(st.Requests.Open),
		})
	}

	m.table.SetRows(rows)
}

type loadBuildingsMsg struct {
	buildings []client.Building
	err       error
}

func (m BuildingsModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := APICtx()
		defer cancel()

		bs, err := m.api.ListBuildings(ctx)

		return loadBuildingsMsg{buildings: bs, err: err}
	}
}
