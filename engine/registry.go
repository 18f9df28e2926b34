package engine

import "context"

// Outcome is the result an Executor reports back to the Runner after
// invocation. The Runner — never the executor — owns retry policy
// (outcome.go), so executors communicate intent only through these
// values and through returned errors classified in outcome.go.
type Outcome struct {
	// Job carries the executor's updated view of the SAME job row
	// (e.g. mutated Details). A nil Job means "use the job as
	// admitted, with no field changes."
	Job *Job
	// Stop, when true on a successful outcome, removes a recurring
	// job from rotation instead of rescheduling it (section 4.2).
	Stop bool
	// Deferred, when true, asks the Runner to return the job to
	// runnable without incrementing FailureCount (section 4.5).
	Deferred bool
	// Successor, when non-nil, is inserted as a brand-new job row in
	// the same outcome transaction — e.g. sendReadReceipts'
	// throttled, empty-timestamp follow-up (section 4.10).
	Successor *Job
}

// ExecuteFunc is the async execution function bound to a Variant. It
// must insert a cancellation check after every suspension point
// (network send, DB transaction acquisition, file I/O) — see
// section 5 of the design notes; failing to do so is a bug, not a
// limitation of the Runner.
type ExecuteFunc func(ctx context.Context, job *Job, rc *Context) (Outcome, error)

// ExecutorDescriptor is the static, per-variant configuration the
// Executor Registry holds. It is never mutated after registration.
type ExecutorDescriptor struct {
	Variant Variant

	// MaxFailureCount is the non-negative retry ceiling, or -1 to
	// mean "retry forever" (section 4.3).
	MaxFailureCount int

	RequiresThreadID      bool
	RequiresInteractionID bool

	// Admission is the queue admission policy this variant runs
	// under (queue.go).
	Admission AdmissionPolicy

	// DefaultBehaviour is the Behaviour a newly enqueued job of this
	// variant takes unless the producer overrides it.
	DefaultBehaviour Behaviour

	Execute ExecuteFunc
}

// Registry is the static table mapping Variant to ExecutorDescriptor.
// It is a constant table by convention: callers build one at process
// startup via NewRegistry and Register, then treat it as read-only.
type Registry struct {
	descriptors map[Variant]ExecutorDescriptor
}

// NewRegistry returns an empty Registry ready for Register calls.
func NewRegistry() *Registry {
	return &Registry{descriptors: make(map[Variant]ExecutorDescriptor)}
}

// Register adds or replaces a variant's descriptor.
func (r *Registry) Register(desc ExecutorDescriptor) {
	r.descriptors[desc.Variant] = desc
}

// Lookup returns the descriptor for a variant.
func (r *Registry) Lookup(v Variant) (ExecutorDescriptor, bool) {
	d, ok := r.descriptors[v]
	return d, ok
}

// Variants returns every registered variant, in no particular order.
func (r *Registry) Variants() []Variant {
	out := make([]Variant, 0, len(r.descriptors))
	for v := range r.descriptors {
		out = append(out, v)
	}
	return out
}

// StandardDescriptors returns the ExecutorDescriptor table for the
// thirteen variants named in the variant catalogue, with Execute left
// nil — callers fill in Execute (executors.RegisterAll does, by
// mutating the returned slice) before registering, since the executors themselves
// live in the sibling executors package to avoid an import cycle.
func StandardDescriptors() []ExecutorDescriptor {
	return []ExecutorDescriptor{
		{
			Variant:               VariantAttachmentDownload,
			MaxFailureCount:       3,
			RequiresThreadID:      true,
			RequiresInteractionID: true,
			Admission:             AdmissionParallelBounded(4),
			DefaultBehaviour:      BehaviourRunOnce,
		},
		{
			Variant:               VariantAttachmentUpload,
			MaxFailureCount:       10,
			RequiresThreadID:      true,
			RequiresInteractionID: true,
			Admission:             AdmissionParallelBounded(4),
			DefaultBehaviour:      BehaviourRunOnce,
		},
		{
			Variant:               VariantMessageSend,
			MaxFailureCount:       10,
			RequiresThreadID:      true,
			RequiresInteractionID: true,
			Admission:             AdmissionSerialPerThread(),
			DefaultBehaviour:      BehaviourRunOnce,
		},
		{
			Variant:          VariantSendReadReceipts,
			MaxFailureCount:  -1,
			RequiresThreadID: false, // optional per the variant table
			Admission:        AdmissionSingleInstancePerThread(),
			DefaultBehaviour: BehaviourRecurring,
		},
		{
			Variant:          VariantExpirationUpdate,
			MaxFailureCount:  -1,
			RequiresThreadID: true,
			Admission:        AdmissionParallelBounded(4),
			DefaultBehaviour: BehaviourRunOnce,
		},
		{
			Variant:          VariantGetExpiration,
			MaxFailureCount:  -1,
			RequiresThreadID: true,
			Admission:        AdmissionParallelBounded(4),
			DefaultBehaviour: BehaviourRunOnce,
		},
		{
			Variant:          VariantFailedAttachmentDownloads,
			MaxFailureCount:  -1,
			Admission:        AdmissionSingleInstance(),
			DefaultBehaviour: BehaviourRunOnceAfterDelay,
		},
		{
			Variant:          VariantGarbageCollection,
			MaxFailureCount:  -1,
			Admission:        AdmissionSingleInstance(),
			DefaultBehaviour: BehaviourRecurringOnActive,
		},
		{
			Variant:          VariantRetrieveDefaultOpenGroups,
			MaxFailureCount:  -1,
			Admission:        AdmissionSingleInstance(),
			DefaultBehaviour: BehaviourRunOnce,
		},
		{
			Variant:          VariantUpdateProfilePicture,
			MaxFailureCount:  -1,
			Admission:        AdmissionSingleInstance(),
			DefaultBehaviour: BehaviourRecurring,
		},
		{
			Variant:          VariantCheckForAppUpdates,
			MaxFailureCount:  -1,
			Admission:        AdmissionSingleInstance(),
			DefaultBehaviour: BehaviourRecurring,
		},
		{
			Variant:               VariantGroupLeaving,
			MaxFailureCount:       0,
			RequiresThreadID:      true,
			RequiresInteractionID: true,
			Admission:             AdmissionSerialPerThread(),
			DefaultBehaviour:      BehaviourRunOnce,
		},
		{
			Variant:          VariantDisappearingMessages,
			MaxFailureCount:  -1,
			Admission:        AdmissionSingleInstance(),
			DefaultBehaviour: BehaviourRecurring,
		},
	}
}
