// Package protocol implements the Coherent-Commit Protocol: the ordered,
// fail-fast acceptance checks and weighted voting from spec.md §4.F.
package protocol

import (
	"encoding/json"

	"github.com/dsnproject/dsn-core/internal/prime"
)

// CheckResult is the outcome of a single evaluation-order check.
type CheckResult struct {
	Passed  bool
	Reason  string
	Details map[string]any
}

func pass() CheckResult { return CheckResult{Passed: true} }

func fail(reason string, details map[string]any) CheckResult {
	return CheckResult{Passed: false, Reason: reason, Details: details}
}

// Thresholds collects the tunables the checks compare against (spec.md
// §4.F, §6 table); callers build this from internal/config.
type Thresholds struct {
	CoherenceThreshold  float64
	RedundancyThreshold float64
	EntropyMin          float64
	EntropyMax          float64
	MaxEvalSteps        int
}

// CheckTwistClosure is an optional fast filter: if the proposal carries no
// encoded twist packet it passes through untouched. When a packet is
// present, spec.md §4.F only says to "verify its structural closure"
// without fixing a wire format for that packet; this implementation
// treats presence of a well-formed JSON object as the minimal structural
// closure property, since no twist-closure packet format is defined
// elsewhere in spec.md.
func CheckTwistClosure(packet json.RawMessage) CheckResult {
	if len(packet) == 0 {
		return pass()
	}
	var probe map[string]any
	if err := json.Unmarshal(packet, &probe); err != nil {
		return fail("twist_closure_malformed", map[string]any{"error": err.Error()})
	}
	return pass()
}

// LocalEvidenceInput bundles the local-evidence signals (spec.md §4.F.2).
type LocalEvidenceInput struct {
	Coherence             float64
	Entropy               float64
	ReconstructionFidelity bool
}

// CheckLocalEvidence fails fast at the first unmet local-evidence signal.
func CheckLocalEvidence(in LocalEvidenceInput, th Thresholds) CheckResult {
	if in.Coherence < th.CoherenceThreshold {
		return fail("coherence_below_threshold", map[string]any{"coherence": in.Coherence, "threshold": th.CoherenceThreshold})
	}
	if in.Entropy < th.EntropyMin || in.Entropy > th.EntropyMax {
		return fail("entropy_out_of_band", map[string]any{"entropy": in.Entropy, "min": th.EntropyMin, "max": th.EntropyMax})
	}
	if !in.ReconstructionFidelity {
		return fail("reconstruction_fidelity_failed", nil)
	}
	return pass()
}

// CheckKernelEvidence re-evaluates term and compares its normal-form
// signature against claimedSignature (spec.md §4.F.3).
func CheckKernelEvidence(term *prime.Term, claimedSignature string, maxEvalSteps int) CheckResult {
	nf := prime.Evaluate(term, maxEvalSteps)
	actual := nf.Signature()
	if actual != claimedSignature {
		return fail("normal_form_mismatch", map[string]any{"claimed": claimedSignature, "actual": actual})
	}
	return pass()
}

// CheckRedundancy compares r against the redundancy threshold (spec.md
// §4.F.4). r may be the plain agree-fraction or the weighted score from
// WeightedRedundancy.
func CheckRedundancy(r float64, th Thresholds) CheckResult {
	if r < th.RedundancyThreshold {
		return fail("redundancy_insufficient", map[string]any{"redundancy": r, "threshold": th.RedundancyThreshold})
	}
	return pass()
}

// Evaluate runs every check in spec.md §4.F's fixed order and returns the
// first failing result, or a passing result if all checks clear.
func Evaluate(twistPacket json.RawMessage, local LocalEvidenceInput, term *prime.Term, claimedSignature string, redundancy float64, th Thresholds) CheckResult {
	if r := CheckTwistClosure(twistPacket); !r.Passed {
		return r
	}
	if r := CheckLocalEvidence(local, th); !r.Passed {
		return r
	}
	if r := CheckKernelEvidence(term, claimedSignature, th.MaxEvalSteps); !r.Passed {
		return r
	}
	if r := CheckRedundancy(redundancy, th); !r.Passed {
		return r
	}
	return pass()
}
