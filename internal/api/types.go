package api

import "golddust/internal/router"

// DecisionResponse is returned by GET /decide.
type DecisionResponse struct {
	RequestID string        `json:"request_id,omitempty"`
	Target    string        `json:"target,omitempty"`
	BackendID string        `json:"backend_id,omitempty"`
	Kind      router.Kind   `json:"kind,omitempty"`
	Reason    router.Reason `json:"reason,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// BackendStatus mirrors one router.Snapshot on the wire.
type BackendStatus struct {
	ID          string      `json:"id"`
	Kind        router.Kind `json:"kind"`
	Enabled     bool        `json:"enabled"`
	LatencyMs   float64     `json:"latency_ms"`
	FailureRate float64     `json:"failure_rate"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	RequestID string           `json:"request_id,omitempty"`
	Source    string           `json:"source"`
	Backends  []BackendStatus  `json:"backends"`
	Decision  DecisionResponse `json:"decision"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	RequestID string `json:"request_id,omitempty"`
	Error     string `json:"error"`
}

// NewDecisionResponse renders a decision outcome; err must be nil or a decision error.
func NewDecisionResponse(requestID, target string, d router.Decision, err error) DecisionResponse {
	resp := DecisionResponse{RequestID: requestID, Target: target}
	if err != nil {
		resp.Error = err.Error()
		return resp
	}
	resp.BackendID = d.BackendID
	resp.Kind = d.Kind
	resp.Reason = d.Reason
	return resp
}

// Decision converts the response back into the engine's result.
func (r DecisionResponse) Decision() (router.Decision, error) {
	if r.Error == router.ErrNoBackendsAvailable.Error() {
		return router.Decision{}, router.ErrNoBackendsAvailable
	}
	if r.Error != "" {
		return router.Decision{}, &HTTPError{Message: r.Error}
	}
	return router.Decision{BackendID: r.BackendID, Kind: r.Kind, Reason: r.Reason}, nil
}

// BackendsFromSet lists snapshots ordered by kind then id.
func BackendsFromSet(set router.SnapshotSet) []BackendStatus {
	out := make([]BackendStatus, 0, set.Len())
	for _, s := range set.Sorted() {
		out = append(out, BackendStatus{
			ID:          s.ID,
			Kind:        s.Kind,
			Enabled:     s.Enabled,
			LatencyMs:   s.LatencyMs,
			FailureRate: s.FailureRate,
		})
	}
	return out
}
