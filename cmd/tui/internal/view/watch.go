package view

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/condo/internal/client"
	"github.com/MrJamesThe3rd/condo/internal/fanout"
	"github.com/MrJamesThe3rd/condo/internal/ledger"
	"github.com/MrJamesThe3rd/condo/internal/reconcile"
)

type WatchConfig struct {
	PollInterval      time.Duration
	SuppressionWindow time.Duration
	PendingTTL        time.Duration
}

type watchState int

const (
	watchStateBrowse watchState = iota
	watchStateRecord
)

// session owns the background reconciliation loop. It is shared by every copy of the model.
type session struct {
	rec     *reconcile.Reconciler
	client  *reconcile.Client
	updates chan ledger.Aggregate
	ctx     context.Context
	cancel  context.CancelFunc
}

type WatchModel struct {
	CommonModel
	api *client.Client

	requestID uuid.UUID
	sess      *session

	state watchState
	table table.Model
	view  ledger.Aggregate
	form  *huh.Form
	err   error
	flash string

	formAmount string
	formDue    string
}

func NewWatchModel(api *client.Client, cfg WatchConfig, requestID uuid.UUID) WatchModel {
	columns := []table.Column{
		{Title: "Due", Width: 12},
		{Title: "Type", Width: 10},
		{Title: "Status", Width: 10},
		{Title: "Amount", Width: 12},
		{Title: "Paid", Width: 12},
	}

	ctx, cancel := context.WithCancel(context.Background())
	sess := &session{
		rec: reconcile.New(requestID, reconcile.Config{
			SuppressionWindow: cfg.SuppressionWindow,
			PendingTTL:        cfg.PendingTTL,
		}),
		updates: make(chan ledger.Aggregate, 1),
		ctx:     ctx,
		cancel:  cancel,
	}

	sess.client = reconcile.NewClient(sess.rec, api, fanout.NewSubscriber(api.WebsocketURL(), api.Header()), cfg.PollInterval, nil)
	sess.client.OnChange(func(agg ledger.Aggregate) {
		// Only the latest view matters; replace a value the UI has not picked up yet.
		select {
		case <-sess.updates:
		default:
		}
		sess.updates <- agg
	})

	return WatchModel{
		api:       api,
		requestID: requestID,
		sess:      sess,
		table:     newTable(columns),
	}
}

func (m WatchModel) Title() string { return "Watch Request" }
func (m WatchModel) ShortHelp() string {
	if m.state == watchStateRecord {
		return "Navigate form | Esc: cancel"
	}

	return "Esc: back | p: record payment | m: mark paid | r: refresh"
}

// Init starts the reconciliation loop. Stop must be called when the view is left.
func (m WatchModel) Init() tea.Cmd {
	sess := m.sess

	return tea.Batch(
		func() tea.Msg {
			_ = sess.client.Run(sess.ctx)
			return nil
		},
		m.waitCmd(),
	)
}

func (m WatchModel) Stop() {
	m.sess.cancel()
}

func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case aggregateMsg:
		m.view = msg.agg
		m.refreshTable()

		return m, m.waitCmd()

	case actionMsg:
		m.err = msg.err
		m.flash = msg.flash

		return m, nil

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 16)
		return m, nil
	}

	if m.state == watchStateRecord {
		return m.updateRecord(msg)
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			m.Stop()
			return m, Back
		case "r":
			return m, m.refreshCmd()
		case "m":
			return m, m.markPaidCmd()
		case "p":
			return m.enterRecordMode()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m WatchModel) enterRecordMode() (tea.Model, tea.Cmd) {
	if m.view.Request == nil {
		return m, nil
	}

	m.formAmount = ""
	m.formDue = FormatDate(time.Now())

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("amount").
				Title("Amount").
				Value(&m.formAmount).
				Validate(func(s string) error {
					d, err := decimal.NewFromString(strings.TrimSpace(s))
					if err != nil || !d.IsPositive() {
						return fmt.Errorf("enter a positive amount")
					}

					return nil
				}),
			huh.NewInput().
				Key("due").
				Title("Due date").
				Placeholder("YYYY-MM-DD").
				Value(&m.formDue).
				Validate(func(s string) error {
					_, err := time.Parse(time.DateOnly, s)
					return err
				}),
		),
	).WithWidth(40).WithShowHelp(false)

	m.state = watchStateRecord
	m.table.Blur()

	return m, m.form.Init()
}

func (m WatchModel) updateRecord(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = watchStateBrowse
		m.form = nil
		m.table.Focus()

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	m.state = watchStateBrowse
	m.form = nil
	m.table.Focus()

	return m, m.recordCmd()
}

func (m WatchModel) View() string {
	req := m.view.Request
	if req == nil {
		return lipgloss.NewStyle().Padding(2).Render("Waiting for request " + m.requestID.String() + "...")
	}

	var b strings.Builder

	fmt.Fprintf(&b, "%s  %s\n", lipgloss.NewStyle().Bold(true).Render(req.Title), activeStyle(string(req.Status)))
	fmt.Fprintf(&b, "Type: %s | Priority: %s | Version: %d\n\n", req.Type, req.Priority, req.Version)

	for _, d := range req.Documents {
		mark := "[ ]"
		if d.Signed {
			mark = "[x]"
		}

		fmt.Fprintf(&b, "%s %s\n", mark, d.Kind)
	}

	tableView := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	content := lipgloss.JoinVertical(lipgloss.Left, b.String(), tableView)

	if m.state == watchStateRecord && m.form != nil {
		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Width(44).
			Render("Record Payment\n\n" + m.form.View())

		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	switch {
	case m.err != nil:
		content = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render(m.err.Error()) + "\n" + content
	case m.flash != "":
		content = lipgloss.NewStyle().Faint(true).Render(m.flash) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m *WatchModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.view.Payments))
	for _, p := range m.view.Payments {
		paid := ""
		if p.PaidDate != nil {
			paid = FormatDate(*p.PaidDate)
		}

		rows = append(rows, table.Row{
			FormatDate(p.DueDate),
			string(p.Type),
			string(p.Status),
			FormatAmount(p.Amount),
			paid,
		})
	}

	m.table.SetRows(rows)
}

// Messages

type aggregateMsg struct {
	agg ledger.Aggregate
}

type actionMsg struct {
	flash string
	err   error
}

func (m WatchModel) waitCmd() tea.Cmd {
	sess := m.sess

	return func() tea.Msg {
		select {
		case agg := <-sess.updates:
			return aggregateMsg{agg: agg}
		case <-sess.ctx.Done():
			return nil
		}
	}
}

func (m WatchModel) refreshCmd() tea.Cmd {
	sess := m.sess

	return func() tea.Msg {
		ctx, cancel := APICtx()
		defer cancel()

		agg, err := m.api.RequestAggregate(ctx, m.requestID)
		if err != nil {
			return actionMsg{err: err}
		}

		sess.rec.Merge(agg)

		return aggregateMsg{agg: sess.rec.View()}
	}
}

func (m WatchModel) markPaidCmd() tea.Cmd {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.view.Payments) {
		return nil
	}

	p := m.view.Payments[idx]

	return func() tea.Msg {
		ctx, cancel := APICtx()
		defer cancel()

		if _, err := m.api.MarkPaid(ctx, p.ID, "manual"); err != nil {
			return actionMsg{err: err}
		}

		return actionMsg{flash: "Marked " + FormatAmount(p.Amount) + " as paid"}
	}
}

// recordCmd shows the payment right away and submits it. The server echo replaces the local copy.
func (m WatchModel) recordCmd() tea.Cmd {
	req := m.view.Request
	amount, _ := decimal.NewFromString(strings.TrimSpace(m.formAmount))
	due, _ := time.Parse(time.DateOnly, m.formDue)

	local := &ledger.Payment{
		ID:        uuid.New(),
		PayerID:   req.CreatorID,
		UnitID:    req.UnitID,
		RequestID: &req.ID,
		Amount:    amount,
		Type:      paymentTypeFor(req.Type),
		Status:    ledger.PaymentPending,
		DueDate:   due,
	}

	m.sess.rec.AddOptimistic(local)

	optimistic := aggregateMsg{agg: m.sess.rec.View()}
	submit := func() tea.Msg {
		ctx, cancel := APICtx()
		defer cancel()

		_, err := m.api.RecordPayment(ctx, client.PaymentInput{
			PayerID:   local.PayerID,
			UnitID:    local.UnitID,
			RequestID: local.RequestID,
			Amount:    local.Amount,
			Type:      local.Type,
			DueDate:   local.DueDate,
		})
		if err != nil {
			return actionMsg{err: err}
		}

		return actionMsg{flash: "Payment recorded"}
	}

	return tea.Batch(func() tea.Msg { return optimistic }, submit)
}

func paymentTypeFor(t ledger.RequestType) ledger.PaymentType {
	switch t {
	case ledger.RequestRental:
		return ledger.PaymentTypeRent
	case ledger.RequestPurchase:
		return ledger.PaymentTypePurchase
	}

	return ledger.PaymentTypeService
}
