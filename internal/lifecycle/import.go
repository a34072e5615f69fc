package lifecycle

import (
	"context"
	"fmt"

	"github.com/MrJamesThe3rd/condo/internal/actor"
	"github.com/MrJamesThe3rd/condo/internal/fanout"
	"github.com/MrJamesThe3rd/condo/internal/ledger"
)

// RowError reports a row of a bulk import that was not recorded.
type RowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

type ImportReport struct {
	Created    int        `json:"created"`
	Duplicates int        `json:"duplicates"`
	Failed     []RowError `json:"failed,omitempty"`
}

// ImportPayments records a batch of payments. Rows are independent: a bad row is reported
// and the rest still go in. Aggregates are refreshed through the batcher rather than per row.
func (o *Orchestrator) ImportPayments(ctx context.Context, a actor.Actor, rows []ledger.PaymentParams) (ImportReport, error) {
	if !a.Manager() {
		return ImportReport{}, fmt.Errorf("%w: only managers import payments", actor.ErrForbidden)
	}

	var report ImportReport

	for i, params := range rows {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		p, created, err := o.record(ctx, params)
		if err != nil {
			report.Failed = append(report.Failed, RowError{Row: i + 1, Error: err.Error()})
			continue
		}

		if !created {
			report.Duplicates++
			continue
		}

		report.Created++
		o.batch.Payment(p)
		o.emitter.Emit(ctx, fanout.PaymentEvent(fanout.PaymentCreated, p, o.timestamp()))
	}

	o.logger.Info("payments imported",
		"actor_id", a.ID,
		"created", report.Created,
		"duplicates", report.Duplicates,
		"failed", len(report.Failed),
	)

	return report, nil
}
