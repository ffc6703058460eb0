package dto

import (
	"time"

	domainprovider "homeease/internal/domain/provider"
)

type LedgerSnapshot struct {
	ProviderID            string     `json:"provider_id"`
	CompletedServiceCount int        `json:"completed_service_count"`
	LifetimeEarnings      MoneyDTO   `json:"lifetime_earnings"`
	LastServiceDate       *time.Time `json:"last_service_date,omitempty"`
}

type Provider struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Phone  string         `json:"phone,omitempty"`
	Skills []string       `json:"skills,omitempty"`
	Ledger LedgerSnapshot `json:"ledger"`
}

func MapLedger(providerID string, ledger domainprovider.Ledger) LedgerSnapshot {
	out := LedgerSnapshot{
		ProviderID:            providerID,
		CompletedServiceCount: ledger.CompletedServiceCount,
		LifetimeEarnings:      mapMoney(ledger.LifetimeEarnings),
	}
	if !ledger.LastServiceDate.IsZero() {
		last := ledger.LastServiceDate
		out.LastServiceDate = &last
	}
	return out
}

func MapProvider(p *domainprovider.Provider) Provider {
	if p == nil {
		return Provider{}
	}
	return Provider{
		ID:     p.ID,
		Name:   p.Name,
		Phone:  p.Phone,
		Skills: append([]string(nil), p.Skills...),
		Ledger: MapLedger(p.ID, p.Ledger),
	}
}
