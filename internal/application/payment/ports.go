package payment

import (
	"sort"

	"github.com/Zhima-Mochi/travelshop/internal/application"
	dompay "github.com/Zhima-Mochi/travelshop/internal/domain/payment"
)

var (
	_ application.UseCase[InitiatePaymentInput, *InitiatePaymentResult] = (*InitiatePaymentUseCase)(nil)
	_ application.UseCase[ConfirmPaymentInput, *ConfirmPaymentResult]   = (*ConfirmPaymentUseCase)(nil)
)

// PaymentIDGenerator produces local payment identifiers. They must never
// collide with order ids or provider transaction ids.
type PaymentIDGenerator interface {
	NewPaymentID() string
}

// Providers indexes the configured payment networks by name.
type Providers map[string]dompay.Provider

func NewProviders(ps ...dompay.Provider) Providers {
	out := make(Providers, len(ps))
	for _, p := range ps {
		if p != nil {
			out[p.Name()] = p
		}
	}
	return out
}

func (p Providers) Get(name string) (dompay.Provider, bool) {
	prov, ok := p[name]
	return prov, ok
}

func (p Providers) Names() []string {
	names := make([]string, 0, len(p))
	for n := range p {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
