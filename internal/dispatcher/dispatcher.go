package dispatcher

import (
	"context"
	"fmt"
	"sync/atomic"
)

var (
	ErrNoHealthy = fmt.Errorf("no healthy providers")
	ErrNoAcquire = fmt.Errorf("provider not acquired")
)

// SurveySMS is the message handed to an SMS provider.
type SurveySMS struct {
	Phone string `json:"phone"`
	Text  string `json:"text"`
}

// Dispatcher round-robins survey SMS across healthy providers, retrying up
// to maxAttempts times across the pool.
type Dispatcher struct {
	providers         []Provider
	roundRobinCounter atomic.Uint64
	maxAttempts       int
}

func NewDispatcher(provs []Provider, maxAttempts int) *Dispatcher {
	if maxAttempts < 1 {
		maxAttempts = 2
	}

	return &Dispatcher{providers: provs, maxAttempts: maxAttempts}
}

func (d *Dispatcher) selectProvider() (Provider, error) {
	healthy := make([]Provider, 0, len(d.providers))
	for _, p := range d.providers {
		if p.Ready() {
			healthy = append(healthy, p)
		}
	}

	if len(healthy) == 0 {
		return nil, ErrNoHealthy
	}

	x := d.roundRobinCounter.Add(1)
	idx := int((x - 1) % uint64(len(healthy)))

	return healthy[idx], nil
}

func (d *Dispatcher) tryOnce(ctx context.Context, sms SurveySMS) (string, error) {
	p, err := d.selectProvider()
	if err != nil {
		return "", err
	}

	if !p.Acquire() {
		return p.Name(), ErrNoAcquire
	}

	return p.Name(), p.SendSurvey(ctx, sms)
}

// Send returns the name of the provider that delivered, for the delivery log.
func (d *Dispatcher) Send(ctx context.Context, sms SurveySMS) (string, error) {
	var last error
	for i := 0; i < d.maxAttempts; i++ {
		name, err := d.tryOnce(ctx, sms)
		if err == nil {
			return name, nil
		}
		last = err
	}

	if last == nil {
		last = fmt.Errorf("send survey failed")
	}

	return "", last
}
