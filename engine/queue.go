package engine

import "sync"

// AdmissionKind names one of the four admission predicates spec
// section 4.7 enumerates.
type AdmissionKind int

const (
	AdmissionKindSerialPerThread AdmissionKind = iota
	AdmissionKindSingleInstance
	AdmissionKindSingleInstancePerThread
	AdmissionKindParallelBounded
)

// AdmissionPolicy parameterises a Queue's admission predicate.
// MaxConcurrency is meaningful only for ParallelBounded (default 4
// for attachments, per the variant table).
type AdmissionPolicy struct {
	Kind           AdmissionKind
	MaxConcurrency int
}

func AdmissionSerialPerThread() AdmissionPolicy {
	return AdmissionPolicy{Kind: AdmissionKindSerialPerThread, MaxConcurrency: 1}
}

func AdmissionSingleInstance() AdmissionPolicy {
	return AdmissionPolicy{Kind: AdmissionKindSingleInstance, MaxConcurrency: 1}
}

func AdmissionSingleInstancePerThread() AdmissionPolicy {
	return AdmissionPolicy{Kind: AdmissionKindSingleInstancePerThread, MaxConcurrency: 1}
}

func AdmissionParallelBounded(n int) AdmissionPolicy {
	if n <= 0 {
		n = 4
	}
	return AdmissionPolicy{Kind: AdmissionKindParallelBounded, MaxConcurrency: n}
}

// Queue tracks the in-flight jobs for one Variant so the Runner can
// decide how many more it may admit this tick. It holds no durable
// state of its own — status lives in the Store — only the bookkeeping
// needed to enforce the admission policy's concurrency rule, mirroring
// the bounded-concurrency semaphore pattern used for parallel GCS
// fetches.
type Queue struct {
	mu      sync.Mutex
	variant Variant
	policy  AdmissionPolicy

	// runningGlobal counts in-flight jobs for single-instance and
	// parallel-bounded policies.
	runningGlobal int
	// runningByThread counts in-flight jobs per threadId for
	// serial-per-thread and single-instance-per-thread policies.
	runningByThread map[string]int
}

// NewQueue constructs a Queue for one variant under the given policy.
func NewQueue(variant Variant, policy AdmissionPolicy) *Queue {
	return &Queue{
		variant:         variant,
		policy:          policy,
		runningByThread: make(map[string]int),
	}
}

// Policy returns the admission policy this queue enforces.
func (q *Queue) Policy() AdmissionPolicy {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.policy
}

// CanAdmit reports whether another job of this queue's variant
// (optionally scoped to threadID) may transition to running right
// now, without reserving a slot.
func (q *Queue) CanAdmit(threadID *string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.canAdmitLocked(threadID)
}

func (q *Queue) canAdmitLocked(threadID *string) bool {
	switch q.policy.Kind {
	case AdmissionKindSerialPerThread, AdmissionKindSingleInstancePerThread:
		key := ""
		if threadID != nil {
			key = *threadID
		}
		return q.runningByThread[key] == 0
	case AdmissionKindSingleInstance:
		return q.runningGlobal == 0
	case AdmissionKindParallelBounded:
		return q.runningGlobal < q.policy.MaxConcurrency
	default:
		return false
	}
}

// Admit reserves a slot for the job, returning false if the policy
// would be violated (caller must re-check CanAdmit first if it needs
// to decide whether to even attempt the state transition).
func (q *Queue) Admit(threadID *string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.canAdmitLocked(threadID) {
		return false
	}
	q.runningGlobal++
	if q.policy.Kind == AdmissionKindSerialPerThread || q.policy.Kind == AdmissionKindSingleInstancePerThread {
		key := ""
		if threadID != nil {
			key = *threadID
		}
		q.runningByThread[key]++
	}
	return true
}

// Release frees the slot reserved by a prior Admit once the job
// reaches a terminal or deferred outcome.
func (q *Queue) Release(threadID *string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.runningGlobal > 0 {
		q.runningGlobal--
	}
	if q.policy.Kind == AdmissionKindSerialPerThread || q.policy.Kind == AdmissionKindSingleInstancePerThread {
		key := ""
		if threadID != nil {
			key = *threadID
		}
		if q.runningByThread[key] > 0 {
			q.runningByThread[key]--
			if q.runningByThread[key] == 0 {
				delete(q.runningByThread, key)
			}
		}
	}
}

// QueueSet owns one Queue per registered variant.
type QueueSet struct {
	mu     sync.RWMutex
	queues map[Variant]*Queue
}

// NewQueueSet builds a Queue for every descriptor in the registry.
func NewQueueSet(reg *Registry) *QueueSet {
	qs := &QueueSet{queues: make(map[Variant]*Queue)}
	for _, v := range reg.Variants() {
		desc, _ := reg.Lookup(v)
		qs.queues[v] = NewQueue(v, desc.Admission)
	}
	return qs
}

// For returns the Queue for a variant, or nil if unregistered.
func (qs *QueueSet) For(v Variant) *Queue {
	qs.mu.RLock()
	defer qs.mu.RUnlock()
	return qs.queues[v]
}
