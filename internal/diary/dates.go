package diary

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// DateLayout is the calendar date format of Entry.Date.
const DateLayout = "2006-01-02"

var dateParser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// Today formats now as an entry date.
func Today(now time.Time) string {
	return now.Format(DateLayout)
}

// ParseDate turns user input into an entry date. It accepts YYYY-MM-DD or
// natural language relative to now ("yesterday", "last friday").
func ParseDate(input string, now time.Time) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Today(now), nil
	}
	if t, err := time.Parse(DateLayout, input); err == nil {
		return t.Format(DateLayout), nil
	}

	r, err := dateParser.Parse(input, now)
	if err != nil {
		return "", fmt.Errorf("parse date %q: %w", input, err)
	}
	if r == nil {
		return "", fmt.Errorf("parse date %q: not a date", input)
	}
	return r.Time.Format(DateLayout), nil
}
