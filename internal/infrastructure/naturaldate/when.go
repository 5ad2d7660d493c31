// Package naturaldate interprets English time phrases such as
// "tomorrow at 5 pm" or "in 2 hours".
package naturaldate

import (
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

type Interpreter struct {
	parser *when.Parser
}

func NewInterpreter() *Interpreter {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &Interpreter{parser: w}
}

// Interpret reports false when the phrase contains no time the rules know.
func (i *Interpreter) Interpret(phrase string, ref time.Time) (time.Time, bool) {
	res, err := i.parser.Parse(phrase, ref)
	if err != nil || res == nil {
		return time.Time{}, false
	}
	return res.Time, true
}
