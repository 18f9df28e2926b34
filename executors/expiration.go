package executors

import (
	"context"

	"github.com/session-mesh/jobengine/engine"
)

// ExpirationUpdateDetails is the opaque-bytes payload shared by
// expirationUpdate and getExpiration (section 4.3's table lists them
// as siblings with identical gating).
type ExpirationUpdateDetails struct {
	Hashes      []string `json:"hashes"`
	NewExpiryMs int64    `json:"newExpiryMs,omitempty"`
	ShortenOnly bool     `json:"shortenOnly,omitempty"`
	Auth        string   `json:"auth,omitempty"`
}

// ExpirationUpdate pushes a new expiry timestamp for a batch of
// message hashes to the network client's updateExpiry endpoint.
func ExpirationUpdate(ctx context.Context, job *engine.Job, rc *engine.Context) (engine.Outcome, error) {
	d, err := decodeDetails[ExpirationUpdateDetails](job)
	if err != nil {
		return engine.Outcome{}, engine.MissingRequiredDetailsError{Reason: err.Error()}
	}
	if err := engine.CheckCancelled(ctx); err != nil {
		return engine.Outcome{}, err
	}
	req, err := rc.Network.PrepareUpdateExpiry(d.Hashes, d.NewExpiryMs, d.ShortenOnly, d.Auth)
	if err != nil {
		return engine.Outcome{}, engine.TransientNetwork(err)
	}
	if _, err := req.Send(ctx); err != nil {
		return classifyNetworkSendError(err)
	}
	return engine.Outcome{Stop: true}, nil
}

// GetExpiration queries the server's authoritative expiry for a batch
// of message hashes, used to reconcile local dedup/expiry state.
func GetExpiration(ctx context.Context, job *engine.Job, rc *engine.Context) (engine.Outcome, error) {
	d, err := decodeDetails[ExpirationUpdateDetails](job)
	if err != nil {
		return engine.Outcome{}, engine.MissingRequiredDetailsError{Reason: err.Error()}
	}
	if err := engine.CheckCancelled(ctx); err != nil {
		return engine.Outcome{}, err
	}
	req, err := rc.Network.PrepareGetExpiries(d.Hashes, d.Auth)
	if err != nil {
		return engine.Outcome{}, engine.TransientNetwork(err)
	}
	if _, err := req.Send(ctx); err != nil {
		return classifyNetworkSendError(err)
	}
	return engine.Outcome{Stop: true}, nil
}
