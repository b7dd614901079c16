package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
)

// Dispatcher tries engines one at a time, in order, until one answers.
// Sources are fetched politely, so engines never race against the same host.
// The engine that last worked for a host is tried first next time.
type Dispatcher struct {
	engines []Engine
	memory  *DomainMemory
}

// NewDispatcher creates a Dispatcher over engines in fallback order.
// memory may be nil.
func NewDispatcher(engines []Engine, memory *DomainMemory) *Dispatcher {
	return &Dispatcher{engines: engines, memory: memory}
}

// Name lists the engines in fallback order.
func (d *Dispatcher) Name() string {
	name := "dispatcher"
	for _, e := range d.engines {
		name += ":" + e.Name()
	}
	return name
}

// Fetch returns the first successful result. Only transport failures move on
// to the next engine. A status error, a non-HTML body or an expired deadline
// ends the chain since another TLS stack would get the same answer.
func (d *Dispatcher) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	if len(d.engines) == 0 {
		return nil, fmt.Errorf("dispatcher: no engines configured")
	}
	domain := extractDomain(req.URL)

	var lastErr error
	for _, eng := range d.ordered(domain) {
		slog.Debug("engine starting", "engine", eng.Name(), "url", req.URL)
		result, err := eng.Fetch(ctx, req)
		if err == nil {
			d.remember(domain, eng.Name())
			return result, nil
		}

		lastErr = err
		if !fallbackWorthy(ctx, err) {
			return nil, err
		}
		d.forget(domain, eng.Name())
		slog.Debug("engine failed, falling back", "engine", eng.Name(), "url", req.URL, "error", err)
	}
	return nil, lastErr
}

// ordered puts the remembered engine for domain first, keeping the rest in
// configured order.
func (d *Dispatcher) ordered(domain string) []Engine {
	if d.memory == nil {
		return d.engines
	}
	remembered := d.memory.Get(domain)
	if remembered == "" || d.engines[0].Name() == remembered {
		return d.engines
	}

	out := make([]Engine, 0, len(d.engines))
	for _, e := range d.engines {
		if e.Name() == remembered {
			slog.Debug("domain memory hit", "domain", domain, "engine", remembered)
			out = append(out, e)
		}
	}
	for _, e := range d.engines {
		if e.Name() != remembered {
			out = append(out, e)
		}
	}
	return out
}

func (d *Dispatcher) remember(domain, engine string) {
	if d.memory != nil {
		d.memory.Set(domain, engine)
	}
}

func (d *Dispatcher) forget(domain, engine string) {
	if d.memory != nil && d.memory.Get(domain) == engine {
		d.memory.Delete(domain)
	}
}

func fallbackWorthy(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) || errors.Is(err, ErrNotHTML) {
		return false
	}
	return true
}

// extractDomain parses the hostname from a URL string.
func extractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}
