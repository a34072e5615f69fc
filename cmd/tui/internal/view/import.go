package view

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/condo/internal/client"
	"github.com/MrJamesThe3rd/condo/internal/lifecycle"
)

const importTimeout = 2 * time.Minute

type importState int

const (
	importStateFilePick importState = iota
	importStateImporting
	importStateResult
)

type ImportModel struct {
	CommonModel
	api *client.Client

	state      importState
	filePicker filepicker.Model
	failedList list.Model

	report lifecycle.ImportReport
	status string
	err    error
}

func NewImportModel(api *client.Client) ImportModel {
	fp := filepicker.New()
	fp.CurrentDirectory, _ = os.Getwd()
	fp.AllowedTypes = []string{".csv"}
	fp.ShowHidden = false
	fp.DirAllowed = false
	fp.FileAllowed = true
	fp.SetHeight(15)

	return ImportModel{
		api:        api,
		filePicker: fp,
	}
}

func (m ImportModel) Title() string { return "Import Rent Roll" }

func (m ImportModel) ShortHelp() string {
	return "Esc: back | Enter: select"
}

func (m ImportModel) Init() tea.Cmd {
	return m.filePicker.Init()
}

func (m ImportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m.handleEsc()
		}

		if m.state == importStateResult {
			var cmd tea.Cmd
			m.failedList, cmd = m.failedList.Update(msg)

			return m, cmd
		}

	case importResultMsg:
		m.state = importStateResult

		if msg.err != nil {
			m.err = msg.err
			m.status = fmt.Sprintf("Error: %v", msg.err)

			return m, nil
		}

		m.report = msg.report
		m.status = fmt.Sprintf("Created %d payments, %d already present, %d failed.",
			msg.report.Created, msg.report.Duplicates, len(msg.report.Failed))

		items := make([]list.Item, len(msg.report.Failed))
		for i, f := range msg.report.Failed {
			items[i] = failedItem{row: f}
		}

		m.failedList = list.New(items, failedDelegate{}, 80, 15)
		m.failedList.Title = "Rejected Rows"
		m.failedList.SetShowStatusBar(false)
		m.failedList.SetFilteringEnabled(false)
		m.failedList.SetShowHelp(false)

		return m, nil
	}

	if m.state != importStateFilePick {
		return m, nil
	}

	var cmd tea.Cmd
	m.filePicker, cmd = m.filePicker.Update(msg)

	if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
		m.state = importStateImporting
		m.status = fmt.Sprintf("Importing from %s...", path)

		return m, m.importCmd(path)
	}

	return m, cmd
}

func (m ImportModel) handleEsc() (tea.Model, tea.Cmd) {
	if m.state == importStateResult {
		m.state = importStateFilePick
		m.err = nil
		m.status = ""
		m.report = lifecycle.ImportReport{}

		return m, m.filePicker.Init()
	}

	return m, Back
}

func (m ImportModel) View() string {
	switch m.state {
	case importStateFilePick:
		return lipgloss.NewStyle().Padding(1).Render(
			fmt.Sprintf("Select rent roll to import:\n\n%s", m.filePicker.View()),
		)
	case importStateImporting:
		return lipgloss.NewStyle().Padding(2).Render(m.status)
	case importStateResult:
		return m.viewResult()
	}

	return ""
}

func (m ImportModel) viewResult() string {
	style := lipgloss.NewStyle().Padding(2)
	if m.err != nil {
		return style.Render(
			lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render(m.status) +
				"\n\n(Esc to go back)",
		)
	}

	out := lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Render(m.status)
	if len(m.report.Failed) > 0 {
		out += "\n\n" + m.failedList.View()
	}

	return style.Render(out + "\n\n(Esc to go back)")
}

// Messages

type importResultMsg struct {
	report lifecycle.ImportReport
	err    error
}

func (m ImportModel) importCmd(path string) tea.Cmd {
	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return importResultMsg{err: err}
		}
		defer f.Close()

		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()

		report, err := m.api.ImportPayments(ctx, filepath.Base(path), f)
		if err != nil {
			return importResultMsg{err: err}
		}

		return importResultMsg{report: report}
	}
}

// Rejected row list

type failedItem struct {
	row lifecycle.RowError
}

func (i failedItem) Title() string       { return "" }
func (i failedItem) Description() string { return "" }
func (i failedItem) FilterValue() string { return "" }

type failedDelegate struct{}

func (d failedDelegate) Height() int                             { return 1 }
func (d failedDelegate) Spacing() int                            { return 0 }
func (d failedDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d failedDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	item, ok := listItem.(failedItem)
	if !ok {
		return
	}

	cursor := "  "
	if index == m.Index() {
		cursor = "> "
	}

	fmt.Fprintf(w, "%srow %d: %s", cursor, item.row.Row, item.row.Error)
}
