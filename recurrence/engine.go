// Package recurrence wraps rrule-go with the expansion and validation
// operations the update engine needs: checking a recurrence identifier
// against a series' generated occurrence set, computing occurrence
// windows, and deriving the rule pair of a this-and-future split.
package recurrence

import (
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/meridiancal/groupcal/calendar"
)

const defaultMaxOccurrences = 1000

// ErrNoOccurrences is returned by Split when no occurrence remains on one
// side of the split point.
var ErrNoOccurrences = errors.New("no occurrences remain")

// Engine provides unified recurrence expansion and validation logic.
type Engine struct {
	// MaxOccurrences caps expansion to prevent unbounded iteration of
	// open-ended rules.
	MaxOccurrences int
}

// NewEngine creates a new recurrence engine instance.
func NewEngine() *Engine {
	return &Engine{MaxOccurrences: defaultMaxOccurrences}
}

func (e *Engine) rule(master *calendar.Event) (*rrule.RRule, error) {
	opt, err := rrule.StrToROption(master.RecurrenceRule)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RRULE %q: %w", master.RecurrenceRule, err)
	}
	opt.Dtstart = master.Start
	return rrule.NewRRule(*opt)
}

// Contains reports whether the recurrence id lies in the master's
// generated occurrence set. Delete-exception dates are not considered
// here; rejecting those is the caller's concern.
func (e *Engine) Contains(master *calendar.Event, recurrenceID time.Time) (bool, error) {
	if !master.IsSeriesMaster() {
		return false, nil
	}
	rule, err := e.rule(master)
	if err != nil {
		return false, err
	}
	// Between is inclusive at both ends with inc=true; a one-second
	// window around the identifier catches an exact occurrence only.
	for _, occ := range rule.Between(recurrenceID.Add(-time.Second), recurrenceID.Add(time.Second), true) {
		if occ.Equal(recurrenceID) {
			return true, nil
		}
	}
	return false, nil
}

// OccurrenceWindow computes the start and end of the occurrence addressed
// by the recurrence id, carrying over the master's duration.
func (e *Engine) OccurrenceWindow(master *calendar.Event, recurrenceID time.Time) (time.Time, time.Time) {
	return recurrenceID, recurrenceID.Add(master.Duration())
}

// Occurrences expands the master's occurrences within [from, until),
// excluding delete-exception dates.
func (e *Engine) Occurrences(master *calendar.Event, from, until time.Time) ([]time.Time, error) {
	rule, err := e.rule(master)
	if err != nil {
		return nil, err
	}
	max := e.MaxOccurrences
	if max <= 0 {
		max = defaultMaxOccurrences
	}
	var out []time.Time
	for _, occ := range rule.Between(from, until, true) {
		if occ.Equal(until) {
			break
		}
		if calendar.ContainsDate(master.DeleteExceptionDates, occ) {
			continue
		}
		out = append(out, occ)
		if len(out) >= max {
			break
		}
	}
	return out, nil
}

// SplitRules is the rule pair resulting from a this-and-future split.
type SplitRules struct {
	// Head is the truncated rule of the original series.
	Head string
	// Tail is the rule of the detached series starting at the split point.
	Tail string
	// Kept is the number of occurrences remaining in the head.
	Kept int
}

// Split derives the head and tail recurrence rules for splitting the
// master's series at the given occurrence. A COUNT-limited rule is
// divided by occurrence count; an open or UNTIL-limited rule is truncated
// with an UNTIL one second before the split point.
func (e *Engine) Split(master *calendar.Event, splitPoint time.Time) (SplitRules, error) {
	opt, err := rrule.StrToROption(master.RecurrenceRule)
	if err != nil {
		return SplitRules{}, fmt.Errorf("failed to parse RRULE %q: %w", master.RecurrenceRule, err)
	}
	expand := *opt
	expand.Dtstart = master.Start
	rule, err := rrule.NewRRule(expand)
	if err != nil {
		return SplitRules{}, err
	}

	kept := 0
	for _, occ := range rule.Between(master.Start, splitPoint, true) {
		if occ.Before(splitPoint) {
			kept++
		}
	}
	if kept == 0 {
		return SplitRules{}, fmt.Errorf("before split point %s: %w", splitPoint.Format(time.RFC3339), ErrNoOccurrences)
	}

	headOpt := *opt
	tailOpt := *opt
	if opt.Count > 0 {
		if opt.Count <= kept {
			return SplitRules{}, fmt.Errorf("after split point %s: %w", splitPoint.Format(time.RFC3339), ErrNoOccurrences)
		}
		headOpt.Count = kept
		tailOpt.Count = opt.Count - kept
	} else {
		headOpt.Until = splitPoint.Add(-time.Second)
	}
	return SplitRules{
		Head: headOpt.RRuleString(),
		Tail: tailOpt.RRuleString(),
		Kept: kept,
	}, nil
}
