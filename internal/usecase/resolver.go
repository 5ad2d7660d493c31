package usecase

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/X1ag/ReminderBot/internal/domain"
)

var (
	clockPattern    = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
	sentencePattern = regexp.MustCompile(`(?is)remind me\s+(.+?)\s+to\s+(.+)`)
)

// Interpreter turns a free-form time phrase into an absolute time relative to
// ref. It reports false when the phrase holds no recognizable time.
type Interpreter interface {
	Interpret(phrase string, ref time.Time) (time.Time, bool)
}

// InterpreterFunc adapts a plain function to Interpreter.
type InterpreterFunc func(phrase string, ref time.Time) (time.Time, bool)

func (f InterpreterFunc) Interpret(phrase string, ref time.Time) (time.Time, bool) {
	return f(phrase, ref)
}

// Resolution is a resolved due time. Task is set only when the expression was
// a full sentence that carried one.
type Resolution struct {
	DueAt time.Time
	Task  string
}

type Resolver struct {
	interpreter Interpreter
}

func NewResolver(interpreter Interpreter) *Resolver {
	return &Resolver{interpreter: interpreter}
}

// Resolve accepts either an HH:MM clock time or a "remind me <when> to <what>"
// sentence. The returned due time is always strictly after now: anything that
// lands on or before now is moved forward by one day.
func (r *Resolver) Resolve(expression string, now time.Time) (Resolution, error) {
	expr := strings.TrimSpace(expression)
	if m := clockPattern.FindStringSubmatch(expr); m != nil {
		due, err := clockOn(now, m[1], m[2])
		if err != nil {
			return Resolution{}, &domain.ParseError{Input: expression, Reason: err.Error()}
		}
		return Resolution{DueAt: rollForward(due, now)}, nil
	}
	return r.resolveSentence(expression, expr, now)
}

func (r *Resolver) resolveSentence(raw, expr string, now time.Time) (Resolution, error) {
	m := sentencePattern.FindStringSubmatch(expr)
	if m == nil {
		return Resolution{}, &domain.ParseError{Input: raw, Reason: `expected "HH:MM" or "remind me <time> to <task>"`}
	}
	phrase, task := strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
	if phrase == "" || task == "" {
		return Resolution{}, &domain.ParseError{Input: raw, Reason: "time or task is missing"}
	}
	due, err := r.resolveTime(raw, phrase, now)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{DueAt: due, Task: task}, nil
}

// ResolvePhrase resolves a bare time phrase such as "17:00" or "tomorrow at
// 5pm", with the same roll-forward as Resolve.
func (r *Resolver) ResolvePhrase(phrase string, now time.Time) (time.Time, error) {
	p := strings.TrimSpace(phrase)
	if p == "" {
		return time.Time{}, &domain.ParseError{Input: phrase, Reason: "time is missing"}
	}
	return r.resolveTime(phrase, p, now)
}

func (r *Resolver) resolveTime(raw, phrase string, now time.Time) (time.Time, error) {
	if m := clockPattern.FindStringSubmatch(phrase); m != nil {
		due, err := clockOn(now, m[1], m[2])
		if err != nil {
			return time.Time{}, &domain.ParseError{Input: raw, Reason: err.Error()}
		}
		return rollForward(due, now), nil
	}
	if r.interpreter == nil {
		return time.Time{}, &domain.ParseError{Input: raw, Reason: "natural language times are not supported"}
	}
	due, ok := r.interpreter.Interpret(phrase, now)
	if !ok || due.IsZero() {
		return time.Time{}, &domain.ParseError{Input: raw, Reason: "unrecognized time " + strconv.Quote(phrase)}
	}
	return rollForward(due, now), nil
}

type rangeError struct {
	field string
	value int
	max   int
}

func (e rangeError) Error() string {
	return e.field + " " + strconv.Itoa(e.value) + " is out of range 0-" + strconv.Itoa(e.max)
}

func clockOn(now time.Time, hh, mm string) (time.Time, error) {
	hour, err := strconv.Atoi(hh)
	if err != nil {
		return time.Time{}, err
	}
	minute, err := strconv.Atoi(mm)
	if err != nil {
		return time.Time{}, err
	}
	if hour > 23 {
		return time.Time{}, rangeError{"hour", hour, 23}
	}
	if minute > 59 {
		return time.Time{}, rangeError{"minute", minute, 59}
	}
	y, mo, d := now.Date()
	return time.Date(y, mo, d, hour, minute, 0, 0, now.Location()), nil
}

// rollForward treats a time equal to now as past.
func rollForward(due, now time.Time) time.Time {
	if !due.After(now) {
		return due.AddDate(0, 0, 1)
	}
	return due
}
