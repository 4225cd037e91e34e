package domain

import (
	"strings"
)

// Rule selects how credential conflicts between passports of a community are resolved.
type Rule int

const (
	// RuleFIFO keeps a credential with its earliest live holder.
	RuleFIFO Rule = iota + 1
	// RuleLIFO hands a credential to its most recent claimant.
	RuleLIFO
)

func (r Rule) String() string {
	switch r {
	case RuleFIFO:
		return "FIFO"
	case RuleLIFO:
		return "LIFO"
	default:
		return "UNKNOWN"
	}
}

func ParseRule(s string) (Rule, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "FIFO":
		return RuleFIFO, nil
	case "LIFO":
		return RuleLIFO, nil
	default:
		return 0, InvalidRuleError{Rule: s}
	}
}

type Community struct {
	ID        uint               `json:"id"`
	Name      string             `json:"name"`
	Rule      string             `json:"rule"`
	Weights   map[string]float64 `json:"weights"`
	Threshold *float64           `json:"threshold,omitempty"`
}
