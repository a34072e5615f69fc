package memstore

import (
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/condo/internal/ledger"
	"github.com/MrJamesThe3rd/condo/internal/property"
)

func cloneID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}

	return new(*id)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}

	return new(*t)
}

func clonePayment(p *ledger.Payment) *ledger.Payment {
	cp := *p
	cp.UnitID = cloneID(p.UnitID)
	cp.BuildingID = cloneID(p.BuildingID)
	cp.RequestID = cloneID(p.RequestID)
	cp.PaidDate = cloneTime(p.PaidDate)

	return &cp
}

func cloneRequest(r *ledger.Request) *ledger.Request {
	cp := *r
	cp.UnitID = cloneID(r.UnitID)
	cp.BuildingID = cloneID(r.BuildingID)
	cp.PaymentID = cloneID(r.PaymentID)
	cp.History = slices.Clone(r.History)
	cp.Documents = make([]ledger.Document, len(r.Documents))

	for i, d := range r.Documents {
		d.SignedAt = cloneTime(d.SignedAt)
		d.SignedBy = cloneID(d.SignedBy)
		cp.Documents[i] = d
	}

	if r.Documents == nil {
		cp.Documents = nil
	}

	if r.InitialPayment != nil {
		desc := *r.InitialPayment
		desc.PaidDate = cloneTime(r.InitialPayment.PaidDate)
		cp.InitialPayment = &desc
	}

	return &cp
}

func cloneSummary(m property.PaymentSummary) property.PaymentSummary {
	m.ByStatus = maps.Clone(m.ByStatus)
	m.LastPaymentDate = cloneTime(m.LastPaymentDate)
	m.NextDueDate = cloneTime(m.NextDueDate)

	return m
}

func cloneRequestSummary(m property.RequestSummary) property.RequestSummary {
	m.ByStatus = maps.Clone(m.ByStatus)
	m.ByType = maps.Clone(m.ByType)
	m.ByPriority = maps.Clone(m.ByPriority)
	m.LastRequestDate = cloneTime(m.LastRequestDate)

	return m
}

func cloneUnit(u *property.Unit) *property.Unit {
	cp := *u
	cp.OwnerID = cloneID(u.OwnerID)
	cp.TenantID = cloneID(u.TenantID)
	cp.Metadata.Payments = cloneSummary(u.Metadata.Payments)
	cp.Metadata.Requests = cloneRequestSummary(u.Metadata.Requests)

	return &cp
}

func cloneBuilding(b *property.Building) *property.Building {
	cp := *b
	cp.AdminID = cloneID(b.AdminID)
	cp.Stats.Payments = cloneSummary(b.Stats.Payments)
	cp.Stats.Requests = cloneRequestSummary(b.Stats.Requests)

	return &cp
}
