package main

import (
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/condo/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/condo/internal/actor"
	"github.com/MrJamesThe3rd/condo/internal/client"
	"github.com/MrJamesThe3rd/condo/internal/config"
)

const logFile = "condo-tui.log"

type model struct {
	api      *client.Client
	watchCfg view.WatchConfig

	currentView View

	requestsView  view.RequestsModel
	watchView     view.WatchModel
	buildingsView view.BuildingsModel
	importView    view.ImportModel
}

type View int

const (
	ViewMenu      View = 0
	ViewRequests  View = 1
	ViewWatch     View = 2
	ViewBuildings View = 3
	ViewImport    View = 4
)

func initialModel(cfg *config.Config) model {
	a := actor.Actor{ID: cfg.Client.ActorID, Role: actor.Role(cfg.Client.ActorRole)}
	api := client.New(cfg.Client.APIURL, a, cfg.Server.Timeout)

	return model{
		api: api,
		watchCfg: view.WatchConfig{
			PollInterval:      cfg.Client.PollInterval,
			SuppressionWindow: cfg.Client.SuppressionWindow,
			PendingTTL:        cfg.Client.PendingTTL,
		},
		currentView:   ViewMenu,
		requestsView:  view.NewRequestsModel(api),
		buildingsView: view.NewBuildingsModel(api),
		importView:    view.NewImportModel(api),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.currentView == ViewMenu {
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewRequests
				m.requestsView = view.NewRequestsModel(m.api)

				return m, m.requestsView.Init()
			case "2":
				m.currentView = ViewBuildings
				m.buildingsView = view.NewBuildingsModel(m.api)

				return m, m.buildingsView.Init()
			case "3":
				m.currentView = ViewImport
				m.importView = view.NewImportModel(m.api)

				return m, m.importView.Init()
			}
		}
	case view.WatchMsg:
		m.currentView = ViewWatch
		m.watchView = view.NewWatchModel(m.api, m.watchCfg, msg.RequestID)

		return m, m.watchView.Init()
	case view.BackMsg:
		if m.currentView == ViewWatch {
			m.currentView = ViewRequests
			return m, m.requestsView.Init()
		}

		m.currentView = ViewMenu

		return m, nil
	}

	switch m.currentView {
	case ViewRequests:
		var newModel tea.Model
		newModel, cmd = m.requestsView.Update(msg)
		m.requestsView = newModel.(view.RequestsModel)
	case ViewWatch:
		var newModel tea.Model
		newModel, cmd = m.watchView.Update(msg)
		m.watchView = newModel.(view.WatchModel)
	case ViewBuildings:
		var newModel tea.Model
		newModel, cmd = m.buildingsView.Update(msg)
		m.buildingsView = newModel.(view.BuildingsModel)
	case ViewImport:
		var newModel tea.Model
		newModel, cmd = m.importView.Update(msg)
		m.importView = newModel.(view.ImportModel)
	}

	return m, cmd
}

func (m model) View() string {
	switch m.currentView {
	case ViewMenu:
		return lipgloss.NewStyle().Padding(2).Render(
			"Condo Operator\n\n" +
				"1. Requests\n" +
				"2. Buildings\n" +
				"3. Import Rent Roll\n\n" +
				"q. Quit",
		)
	case ViewRequests:
		return m.requestsView.View()
	case ViewWatch:
		return m.watchView.View()
	case ViewBuildings:
		return m.buildingsView.View()
	case ViewImport:
		return m.importView.View()
	}

	return "Unknown View"
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if cfg.Client.ActorID == uuid.Nil {
		slog.Error("CONDO_ACTOR_ID is required")
		os.Exit(1)
	}

	// The screen belongs to the TUI; background loops log to a file.
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		slog.Error("failed to open log file", "error", err)
		os.Exit(1)
	}
	defer f.Close()

	slog.SetDefault(slog.New(slog.NewTextHandler(f, nil)))

	p := tea.NewProgram(initialModel(cfg))
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "failed to run TUI:", err)
		os.Exit(1)
	}
}
