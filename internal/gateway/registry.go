package gateway

import (
	"sync"

	"github.com/upsader/BillingAPI/internal/domain"
)

// Registry maps gateway ids to PaymentGateway instances. Resolution is
// read-mostly; registration typically happens only at startup, so a single
// RWMutex around the map is enough.
type Registry struct {
	mu       sync.RWMutex
	gateways map[string]PaymentGateway
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		gateways: make(map[string]PaymentGateway),
	}
}

// Register maps id to gw. An existing mapping for id is silently
// overwritten; the last registration wins.
func (r *Registry) Register(id string, gw PaymentGateway) error {
	if id == "" {
		return domain.E(domain.KindInvalidArgument, "gateway id is required")
	}
	if gw == nil {
		return domain.E(domain.KindInvalidArgument, "gateway for id %s cannot be nil", id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.gateways[id] = gw
	return nil
}

// Resolve returns the gateway registered under id.
func (r *Registry) Resolve(id string) (PaymentGateway, error) {
	if id == "" {
		return nil, domain.E(domain.KindNotFound, "no payment gateway registered for id: %s", id)
	}

	r.mu.RLock()
	gw, ok := r.gateways[id]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.E(domain.KindNotFound, "no payment gateway registered for id: %s", id)
	}
	return gw, nil
}

// IDs returns the currently registered gateway ids, in no particular order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.gateways))
	for id := range r.gateways {
		ids = append(ids, id)
	}
	return ids
}
