package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RuleKind selects which view a rule belongs to.
type RuleKind int

const (
	KindBudget RuleKind = iota
	KindGoal
	KindInOut
)

// CombineMode controls how a rule's terms combine.
type CombineMode int

const (
	CombineOr  CombineMode = iota // any term credits the rule
	CombineAnd                    // every term must be present
)

// ParseCombineMode interprets the "AND"/"OR" cell value; anything that
// is not "and" means OR.
func ParseCombineMode(v string) CombineMode {
	if v == "and" || v == "AND" || v == "And" {
		return CombineAnd
	}
	return CombineOr
}

// Rule is a user-defined budget, goal or cash-flow matcher. Terms name
// categories or tags; matching is case-insensitive.
type Rule struct {
	Name           string
	HighlightColor string
	Target         decimal.Decimal
	Frequency      string // "M", "Y", ...
	Terms          []string
	Combine        CombineMode

	// Goal-only fields.
	CarryForward decimal.Decimal
	EndDate      time.Time
}

// EverythingElseName labels the implicit budget catch-all bucket.
const EverythingElseName = "Everything else"
