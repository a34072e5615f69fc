package payment

import (
	"github.com/MrJamesThe3rd/condo/internal/ledger"
	"github.com/MrJamesThe3rd/condo/internal/lifecycle"
)

type resultResponse struct {
	Payment       *ledger.Payment `json:"payment"`
	Request       *ledger.Request `json:"request,omitempty"`
	Created       bool            `json:"created,omitempty"`
	Changed       bool            `json:"changed"`
	FailedEffects []string        `json:"failed_effects,omitempty"`
}

func toResultResponse(res lifecycle.PaymentResult) resultResponse {
	return resultResponse{
		Payment:       res.Payment,
		Request:       res.Request,
		Created:       res.Created,
		Changed:       res.Changed,
		FailedEffects: res.FailedEffects,
	}
}
