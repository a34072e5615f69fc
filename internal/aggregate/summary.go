package aggregate

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/condo/internal/ledger"
	"github.com/MrJamesThe3rd/condo/internal/property"
)

// SummarizePayments folds payments into totals as of now. A pending payment already past its
// due date counts as late even before the sweeper has marked it overdue.
func SummarizePayments(payments []*ledger.Payment, now time.Time) property.PaymentSummary {
	s := property.PaymentSummary{
		TotalReceived: decimal.Zero,
		TotalPending:  decimal.Zero,
		TotalLate:     decimal.Zero,
		ByStatus:      make(map[ledger.PaymentStatus]int),
	}

	for _, p := range payments {
		s.ByStatus[p.Status]++

		switch p.Status {
		case ledger.PaymentPaid:
			s.TotalReceived = s.TotalReceived.Add(p.Amount)

			if p.PaidDate != nil && (s.LastPaymentDate == nil || p.PaidDate.After(*s.LastPaymentDate)) {
				s.LastPaymentDate = new(*p.PaidDate)
			}
		case ledger.PaymentOverdue:
			s.TotalLate = s.TotalLate.Add(p.Amount)
		case ledger.PaymentPending:
			if p.DueDate.Before(now) {
				s.TotalLate = s.TotalLate.Add(p.Amount)
				continue
			}

			s.TotalPending = s.TotalPending.Add(p.Amount)

			if s.NextDueDate == nil || p.DueDate.Before(*s.NextDueDate) {
				s.NextDueDate = new(p.DueDate)
			}
		}
	}

	return s
}

func SummarizeRequests(requests []*ledger.Request) property.RequestSummary {
	s := property.RequestSummary{
		ByStatus:   make(map[ledger.RequestStatus]int),
		ByType:     make(map[ledger.RequestType]int),
		ByPriority: make(map[ledger.Priority]int),
	}

	for _, r := range requests {
		s.Total++
		s.ByStatus[r.Status]++
		s.ByType[r.Type]++
		s.ByPriority[r.Priority]++

		if !r.Status.Terminal() {
			s.Open++
		}

		if s.LastRequestDate == nil || r.CreatedAt.After(*s.LastRequestDate) {
			s.LastRequestDate = new(r.CreatedAt)
		}
	}

	return s
}
