// Package dispatch issues asynchronous authorization RPCs to the external
// policy engine.
//
// A dispatched call never blocks the caller: Dispatch returns an opaque
// correlation token immediately and the result is delivered later through a
// completion callback carrying that token, a gRPC status code, and the raw
// reply bytes. Exactly one completion is delivered per successful dispatch.
package dispatch
