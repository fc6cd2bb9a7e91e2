package sim

import "fmt"

// ruleRole says which side of the triggering event receives a rule's value.
type ruleRole uint8

const (
	roleActor ruleRole = iota
	roleTarget
)

// RewardRule adds Value to Receiver whenever an event matching Trigger is logged.
// Rules are group-scoped: a rule written against AnyAgent(g) matches every agent of g.
type RewardRule struct {
	Trigger  EventPattern
	Receiver Symbol
	Value    float32

	role ruleRole
}

// ReceivesActor reports whether the rule pays the acting agent (as opposed to the target).
func (r RewardRule) ReceivesActor() bool {
	return r.role == roleActor
}

func (r RewardRule) String() string {
	side := "actor"
	if r.role == roleTarget {
		side = "target"
	}
	return fmt.Sprintf("group %d %s group %d -> %s %+g",
		r.Trigger.Actor.Group, r.Trigger.Kind, r.Trigger.Target.Group, side, r.Value)
}

// matches reports whether ev satisfies the trigger pattern.
func (r RewardRule) matches(ev Event) bool {
	if ev.Kind != r.Trigger.Kind {
		return false
	}
	switch r.Trigger.Kind {
	case EventAttack, EventKill, EventCollide:
		return ev.ActorGroup == r.Trigger.Actor.Group && ev.TargetGroup == r.Trigger.Target.Group
	default:
		panic(fmt.Sprintf("reward rule with unhandled event kind %v", r.Trigger.Kind))
	}
}

// receiver resolves the concrete agent paid for ev.
func (r RewardRule) receiver(ev Event) AgentID {
	if r.role == roleTarget {
		return ev.Target
	}
	return ev.Actor
}

// rewardCredit is one resolved payout of a rule against an event.
type rewardCredit struct {
	Agent AgentID
	Value float32
}

// evaluateRules matches every rule of every group against the tick's event log, in log
// order and then group/rule order. All matches fire; values are additive.
func evaluateRules(groups []Group, events []Event) []rewardCredit {
	var credits []rewardCredit
	for _, ev := range events {
		for gi := range groups {
			for _, rule := range groups[gi].Rules {
				if rule.matches(ev) {
					credits = append(credits, rewardCredit{Agent: rule.receiver(ev), Value: rule.Value})
				}
			}
		}
	}
	return credits
}
