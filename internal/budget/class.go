package budget

import (
	"fmt"
	"strings"

	"github.com/codefionn/toolrelay/internal/consts"
)

// ReasoningClass selects how much of the window a tool may spend on reasoning.
type ReasoningClass string

const (
	ClassLow    ReasoningClass = "low"
	ClassMedium ReasoningClass = "medium"
	ClassHigh   ReasoningClass = "high"
	// ClassMax follows the provider's reasoning ceiling.
	ClassMax ReasoningClass = "max"
)

// Classes lists the classes from smallest to largest.
var Classes = []ReasoningClass{ClassLow, ClassMedium, ClassHigh, ClassMax}

// ParseClass parses s into a ReasoningClass.
func ParseClass(s string) (ReasoningClass, error) {
	c := ReasoningClass(strings.ToLower(strings.TrimSpace(s)))
	if c.Valid() {
		return c, nil
	}
	return "", fmt.Errorf("unknown reasoning class %q", s)
}

// Valid reports whether c is one of the known classes.
func (c ReasoningClass) Valid() bool {
	switch c {
	case ClassLow, ClassMedium, ClassHigh, ClassMax:
		return true
	}
	return false
}

// Effort maps the class to the provider's reasoning effort parameter.
func (c ReasoningClass) Effort() string {
	switch c {
	case ClassLow:
		return "low"
	case ClassHigh, ClassMax:
		return "high"
	default:
		return "medium"
	}
}

// DefaultClassTokens is the fixed class table. ClassMax is resolved against
// the planner's ceiling instead.
func DefaultClassTokens() map[ReasoningClass]int {
	return map[ReasoningClass]int{
		ClassLow:    consts.ReasoningTokensLow,
		ClassMedium: consts.ReasoningTokensMedium,
		ClassHigh:   consts.ReasoningTokensHigh,
	}
}
