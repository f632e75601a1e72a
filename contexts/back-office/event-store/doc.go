// Package eventstore implements the Event Store inside the back-office
// context.
//
// The module owns the append-only event log layered on the shared audit
// journal: tenanted appends with per-aggregate version assignment and
// optimistic concurrency, ordered reads by aggregate or event type, state
// reconstruction through reducer replay, and a projection worker that drains
// stored events onto per-type topics. It keeps business rules in
// application/domain layers and isolates journal backends behind ports and
// adapters.
package eventstore
