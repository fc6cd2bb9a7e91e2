package sim

import "fmt"

// EventKind tags the events emitted while a tick is resolved. The set is closed:
// reward rules switch over it exhaustively.
type EventKind uint8

const (
	// EventAttack is a landed attack (actor hit target).
	EventAttack EventKind = iota + 1
	// EventKill is an attack that brought the target to zero hp.
	EventKill
	// EventCollide is a move blocked by another agent standing on the destination.
	EventCollide
)

var eventKindNames = map[EventKind]string{
	EventAttack:  "attack",
	EventKill:    "kill",
	EventCollide: "collide",
}

func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("EventKind(%d)", uint8(k))
}

// ParseEventKind maps a scenario-file event name to its kind.
func ParseEventKind(name string) (EventKind, error) {
	for k, n := range eventKindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown event kind %q; valid: attack, kill, collide", name)
}

// Event is one entry of the per-tick event log.
type Event struct {
	Kind        EventKind
	Tick        int
	Actor       AgentID
	ActorGroup  GroupID
	Target      AgentID
	TargetGroup GroupID
}

// Symbol is a late-bound placeholder for "any agent in group G". It is resolved against
// the concrete actor and target of each event when rules are evaluated.
type Symbol struct {
	Group GroupID
}

// AnyAgent returns the symbol matching every agent of group g.
func AnyAgent(g GroupID) Symbol {
	return Symbol{Group: g}
}

// EventPattern is the trigger half of a reward rule: (actor, kind, target).
type EventPattern struct {
	Actor  Symbol
	Kind   EventKind
	Target Symbol
}

// On builds an EventPattern, mirroring the "a attacks b" reading order.
func On(actor Symbol, kind EventKind, target Symbol) EventPattern {
	return EventPattern{Actor: actor, Kind: kind, Target: target}
}
