// Package lcd queries the chain's LCD (REST) endpoints with failover.
package lcd

import "errors"

var (
	// ErrNoEndpointsRequired indicates that at least one LCD endpoint is required.
	ErrNoEndpointsRequired = errors.New("at least one LCD endpoint is required")
	// ErrAllAttemptsFailed indicates that every endpoint failed the request.
	ErrAllAttemptsFailed = errors.New("all attempts failed across LCD endpoints")
	// ErrUnexpectedStatus indicates a non-200 LCD response.
	ErrUnexpectedStatus = errors.New("unexpected LCD status")
)
