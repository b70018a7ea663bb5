package core

import "strings"

// Actor identifies the operator (or system process) performing a mutating
// action. It is passed explicitly into every mutating call rather than read
// from session state, so audit attribution survives outside a request context.
type Actor string

// SystemActor attributes actions taken by background processes.
const SystemActor Actor = "system"

func (a Actor) String() string { return string(a) }

// IsEmpty checks if the actor is missing
func (a Actor) IsEmpty() bool {
	return strings.TrimSpace(string(a)) == ""
}

// OrSystem returns the actor, falling back to SystemActor when unset.
func (a Actor) OrSystem() Actor {
	if a.IsEmpty() {
		return SystemActor
	}
	return a
}
