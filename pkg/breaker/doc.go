// Package breaker implements per-provider circuit breaking.
//
// # Overview
//
// Each provider gets an independent state machine:
//
//	CLOSED --(threshold consecutive failures)--> OPEN
//	OPEN --(cooldown elapsed)--> HALF_OPEN
//	HALF_OPEN --(probe success)--> CLOSED
//	HALF_OPEN --(probe failure)--> OPEN
//
// While open, calls are rejected immediately without touching the
// network. While half-open, a compare-and-set on the probe flag admits
// exactly one trial call; concurrent callers are rejected as if the
// breaker were still open.
//
// Allow returns an Admission that must settle exactly once: Success,
// Failure, or Release. Release hands back an admission without a
// verdict, for calls whose outcome says nothing about provider health;
// a released probe slot goes to the next caller. Admissions are
// generation-stamped, so a call that outlives a trip of the circuit
// cannot close it on stale evidence.
//
// The Table hands out breakers by provider name and can persist state
// to the shared store, so a tripped circuit stays tripped across a
// process restart.
package breaker
