package rules

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/rwirdemann/modbusrelay/config"
)

// TriggerType defines when a rule should be executed
type TriggerType string

const (
	TriggerOnRead      TriggerType = "on_read"
	TriggerOnWrite     TriggerType = "on_write"
	TriggerOnReadWrite TriggerType = "on_read_write"
)

const (
	// ActionStick keeps the relay in its current state. Writes are still
	// acknowledged.
	ActionStick = "stick"
	// ActionInvert flips the written or reported state, like a relay wired
	// normally closed.
	ActionInvert = "invert"
	// ActionLink switches the target relay along with the written one.
	ActionLink = "link"
)

// Engine manages and executes rules for relay accesses
type Engine struct {
	rules map[uint16][]config.Rule // map[relay]rules
}

// NewEngine creates a new rule engine from configuration rules
func NewEngine(configRules []config.Rule) *Engine {
	e := &Engine{
		rules: make(map[uint16][]config.Rule),
	}
	for _, rule := range configRules {
		e.Add(rule)
	}
	return e
}

// Add appends rule to the rules of its relay.
func (e *Engine) Add(rule config.Rule) {
	e.rules[rule.Relay] = append(e.rules[rule.Relay], rule)
}

// ApplyRead returns the state reported for relay when its actual state is
// state. Only invert rules affect reads.
func (e *Engine) ApplyRead(relay uint16, state bool) bool {
	for _, rule := range e.rules[relay] {
		if !shouldTrigger(rule.Trigger, TriggerOnRead) || rule.Action != ActionInvert {
			continue
		}
		state = !state
	}
	return state
}

// ApplyWrite returns the state relay takes when on is written to it. Link
// rules switch their target in coils as a side effect.
func (e *Engine) ApplyWrite(relay uint16, on bool, coils []bool) bool {
	value := on
	for _, rule := range e.rules[relay] {
		if !shouldTrigger(rule.Trigger, TriggerOnWrite) {
			continue
		}

		// Conditional check: If rule.Value is set, only execute if the written state matches
		if rule.Value != nil && *rule.Value != on {
			slog.Debug("Rule condition not met", "relay", relay, "expected", *rule.Value, "written", on)
			continue
		}

		old := value
		switch rule.Action {
		case ActionStick:
			if int(relay) < len(coils) {
				value = coils[relay]
			}
		case ActionInvert:
			value = !value
		case ActionLink:
			if rule.Target != nil && int(*rule.Target) < len(coils) {
				coils[*rule.Target] = on
				slog.Debug("Rule side-effect", "target", *rule.Target, "state", on)
			}
		default:
			slog.Warn("Unknown action", "action", rule.Action)
		}

		slog.Debug("Rule executed", "relay", relay, "trigger", rule.Trigger, "action", rule.Action, "old", old, "new", value)
	}
	return value
}

// Describe returns a short note on the rules of relay, e.g. "stuck".
func (e *Engine) Describe(relay uint16) string {
	var notes []string
	for _, r := range e.rules[relay] {
		switch r.Action {
		case ActionStick:
			notes = append(notes, "stuck")
		case ActionInvert:
			notes = append(notes, "inverted")
		case ActionLink:
			if r.Target != nil {
				notes = append(notes, fmt.Sprintf("linked to %d", *r.Target))
			}
		}
	}
	return strings.Join(notes, ", ")
}

func (e *Engine) Status() string {
	if len(e.rules) == 0 {
		return ""
	}
	s := "\n  Rules:"
	for _, relay := range slices.Sorted(maps.Keys(e.rules)) {
		for i, r := range e.rules[relay] {
			s += fmt.Sprintf("\n  - R%d: relay %d => %s %s", i+1, relay, r.Trigger, r.Action)
		}
	}
	return s
}

// HasRulesForRelay checks if there are any rules for the given relay
func (e *Engine) HasRulesForRelay(relay uint16) bool {
	_, exists := e.rules[relay]
	return exists
}

func shouldTrigger(ruleTrigger string, triggerType TriggerType) bool {
	if ruleTrigger == string(TriggerOnReadWrite) {
		return true
	}
	return ruleTrigger == string(triggerType)
}
