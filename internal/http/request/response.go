package request

import (
	"github.com/MrJamesThe3rd/condo/internal/ledger"
	"github.com/MrJamesThe3rd/condo/internal/lifecycle"
)

type resultResponse struct {
	Request       *ledger.Request `json:"request"`
	Created       bool            `json:"created,omitempty"`
	FailedEffects []string        `json:"failed_effects,omitempty"`
}

type paymentResultResponse struct {
	Payment       *ledger.Payment `json:"payment"`
	Request       *ledger.Request `json:"request,omitempty"`
	Created       bool            `json:"created,omitempty"`
	FailedEffects []string        `json:"failed_effects,omitempty"`
}

func toResultResponse(res lifecycle.RequestResult) resultResponse {
	return resultResponse{
		Request:       res.Request,
		Created:       res.Created,
		FailedEffects: res.FailedEffects,
	}
}

func toPaymentResultResponse(res lifecycle.PaymentResult) paymentResultResponse {
	return paymentResultResponse{
		Payment:       res.Payment,
		Request:       res.Request,
		Created:       res.Created,
		FailedEffects: res.FailedEffects,
	}
}
