// Package dsnerr collects the error-kind sentinels from spec.md §7 so every
// package can wrap a concrete cause with errors.Is-compatible classification
// instead of inventing its own ad hoc error strings.
package dsnerr

import "errors"

var (
	ErrIllFormedTerm           = errors.New("ill_formed_term")
	ErrEvaluatorBudgetExceeded = errors.New("evaluator_budget_exceeded")
	ErrNormalFormMismatch      = errors.New("normal_form_mismatch")
	ErrTwistClosureFailed      = errors.New("twist_closure_failed")
	ErrLocalEvidenceFailed     = errors.New("local_evidence_failed")
	ErrRedundancyInsufficient  = errors.New("redundancy_insufficient")
	ErrPeerNotConnected        = errors.New("peer_not_connected")
	ErrTransportNotReady       = errors.New("transport_not_ready")
	ErrTransportSendFailed     = errors.New("transport_send_failed")
	ErrBrokerNotConnected      = errors.New("broker_not_connected")
	ErrKeyMissing              = errors.New("key_missing")
	ErrSnapshotVerification    = errors.New("snapshot_verification_failed")
	ErrDeserialization         = errors.New("deserialization_error")
	ErrReconnectExceeded       = errors.New("reconnect_exceeded")
)
