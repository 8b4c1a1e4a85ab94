package router

// Metrics holds cumulative per-model counters. Counters only grow; cost is
// additive and never corrected retroactively.
type Metrics struct {
	TotalRequests      int64   `json:"total_requests"`
	SuccessfulRequests int64   `json:"successful_requests"`
	FailedRequests     int64   `json:"failed_requests"`
	TokensIn           int64   `json:"tokens_in"`
	TokensOut          int64   `json:"tokens_out"`
	TotalCost          float64 `json:"total_cost"`
}

// successRate returns the historical success ratio. A model with no
// history scores 1.0 so new models are tried optimistically first.
func (m Metrics) successRate() float64 {
	if m.TotalRequests == 0 {
		return 1.0
	}
	return float64(m.SuccessfulRequests) / float64(m.TotalRequests)
}

// Snapshot of all per-model metrics. The returned map is a copy; calling
// this twice with no intervening routing returns identical values.
func (r *Router) Metrics() map[string]Metrics {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]Metrics, len(r.metrics))
	for model, m := range r.metrics {
		out[model] = *m
	}
	return out
}

// TotalCost returns cumulative spend across all models in USD.
func (r *Router) TotalCost() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	var total float64
	for _, m := range r.metrics {
		total += m.TotalCost
	}
	return total
}

func (r *Router) recordAttempt(model string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics[model].TotalRequests++
}

func (r *Router) recordFailure(model string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics[model].FailedRequests++
}

func (r *Router) recordSuccess(model string, tokensIn, tokensOut int, cost float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.metrics[model]
	m.SuccessfulRequests++
	m.TokensIn += int64(tokensIn)
	m.TokensOut += int64(tokensOut)
	m.TotalCost += cost
}

func (r *Router) successRate(model string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.metrics[model].successRate()
}
