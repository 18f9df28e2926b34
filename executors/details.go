// Package executors implements the engine.ExecuteFunc for each
// registered Variant (section 4.3/4.10). Each executor decodes its
// own Details encoding — the engine itself never inspects job bytes.
package executors

import (
	"encoding/json"
	"fmt"

	"github.com/session-mesh/jobengine/engine"
)

// decodeDetails is a small json-based helper shared by every
// executor file, mirroring the self-describing serialisation the
// reference producer uses (section 6, "Job details encoding").
func decodeDetails[T any](job *engine.Job) (T, error) {
	var v T
	if len(job.Details) == 0 {
		return v, fmt.Errorf("jobengine: %s job %d has empty details", job.Variant, job.ID)
	}
	if err := json.Unmarshal(job.Details, &v); err != nil {
		return v, fmt.Errorf("jobengine: decoding %s details: %w", job.Variant, err)
	}
	return v, nil
}

func encodeDetails(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		// Details are produced internally by trusted callers; a
		// marshal failure here means a programming error, not a
		// runtime condition executors should classify.
		panic(fmt.Sprintf("jobengine: failed to encode details: %v", err))
	}
	return b
}
