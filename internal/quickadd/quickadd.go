// Package quickadd turns one line of free text into task fields. It
// recognises hashtags, priorities (P1..P4), durations, recurrence phrases
// and natural-language dates, strips them from the title, and reports each
// recognised fragment as a chip.
package quickadd

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/mesh-intelligence/cling/pkg/types"
)

// ChipType names what a chip recognised.
type ChipType string

// Chip types.
const (
	ChipTag        ChipType = "tag"
	ChipPriority   ChipType = "priority"
	ChipDuration   ChipType = "duration"
	ChipRecurrence ChipType = "recurrence"
	ChipDate       ChipType = "date"
	ChipTime       ChipType = "time"
)

// Chip is one recognised fragment of the input. Start and End are byte
// offsets into the text before the description separator.
type Chip struct {
	Type  ChipType `json:"type"`
	Value string   `json:"value"`
	Text  string   `json:"text"`
	Start int      `json:"start"`
	End   int      `json:"end"`
}

// Result holds the parsed task fields. Priority is zero when the input
// named none.
type Result struct {
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	Tags           []string   `json:"tags"`
	Priority       int        `json:"priority,omitempty"`
	DurationMin    *int       `json:"duration_min,omitempty"`
	RecurrenceRule string     `json:"recurrence_rrule,omitempty"`
	StartAt        *time.Time `json:"start_at,omitempty"`
	EndAt          *time.Time `json:"end_at,omitempty"`
	AllDay         bool       `json:"all_day"`
	Chips          []Chip     `json:"chips"`
}

// Task builds an unsaved task from r. Tag names are left to the caller,
// which resolves them to ids.
func (r Result) Task() *types.Task {
	return &types.Task{
		Title:          r.Title,
		Description:    r.Description,
		Priority:       r.Priority,
		DurationMin:    r.DurationMin,
		RecurrenceRule: r.RecurrenceRule,
		StartAt:        r.StartAt,
		EndAt:          r.EndAt,
		AllDay:         r.AllDay,
	}
}

const descriptionSep = " - "

var (
	tagRe      = regexp.MustCompile(`#(\w+)`)
	priorityRe = regexp.MustCompile(`(?i)\bp([1-4])\b`)
	durationRe = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*(minutes|minute|mins|min|hours|hour|hrs|hr|h)\b`)
	clockRe    = regexp.MustCompile(`(?i)\d{1,2}(:\d{2})?\s*(am|pm|a\.m\.|p\.m\.)|\d{1,2}:\d{2}|\bnoon\b|\bmidnight\b|\btonight\b`)
)

var weekdayCodes = map[string]string{
	"monday": "MO", "tuesday": "TU", "wednesday": "WE", "thursday": "TH",
	"friday": "FR", "saturday": "SA", "sunday": "SU",
}

// recurrence patterns in match order. The first pattern found wins.
var recurrences = []struct {
	re   *regexp.Regexp
	rule func(m []string) string
}{
	{regexp.MustCompile(`(?i)\bevery\s+(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`), func(m []string) string {
		return "FREQ=WEEKLY;BYDAY=" + weekdayCodes[strings.ToLower(m[1])]
	}},
	{regexp.MustCompile(`(?i)\bevery\s+(\d+)\s+weeks?\b`), func(m []string) string { return "FREQ=WEEKLY;INTERVAL=" + m[1] }},
	{regexp.MustCompile(`(?i)\bevery\s+week\b`), func([]string) string { return "FREQ=WEEKLY" }},
	{regexp.MustCompile(`(?i)\bdaily\b`), func([]string) string { return "FREQ=DAILY" }},
	{regexp.MustCompile(`(?i)\bevery\s+day\b`), func([]string) string { return "FREQ=DAILY" }},
	{regexp.MustCompile(`(?i)\bweekly\b`), func([]string) string { return "FREQ=WEEKLY" }},
	{regexp.MustCompile(`(?i)\bmonthly\b`), func([]string) string { return "FREQ=MONTHLY" }},
	{regexp.MustCompile(`(?i)\bevery\s+(\d+)\s+days?\b`), func(m []string) string { return "FREQ=DAILY;INTERVAL=" + m[1] }},
}

// connectors are dropped when left dangling at the end of a title.
var connectors = map[string]bool{
	"at": true, "on": true, "for": true, "by": true, "from": true, "in": true,
}

// Parser parses quick-add text. It is safe for concurrent use.
type Parser struct {
	dates *when.Parser
}

// New returns a Parser that understands English dates.
func New() *Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &Parser{dates: w}
}

// Parse extracts task fields from input. Relative dates are resolved
// against now.
func (p *Parser) Parse(input string, now time.Time) (Result, error) {
	head, desc, _ := strings.Cut(input, descriptionSep)
	res := Result{Description: strings.TrimSpace(desc), Tags: []string{}}

	// masked keeps byte offsets stable while claimed spans are blanked out.
	masked := []byte(head)
	claim := func(c Chip) {
		res.Chips = append(res.Chips, c)
		for i := c.Start; i < c.End; i++ {
			masked[i] = ' '
		}
	}

	seenTag := map[string]bool{}
	for _, m := range tagRe.FindAllStringSubmatchIndex(head, -1) {
		name := strings.ToLower(head[m[2]:m[3]])
		claim(Chip{Type: ChipTag, Value: name, Text: head[m[0]:m[1]], Start: m[0], End: m[1]})
		if !seenTag[name] {
			seenTag[name] = true
			res.Tags = append(res.Tags, name)
		}
	}

	for _, m := range priorityRe.FindAllStringSubmatchIndex(string(masked), -1) {
		res.Priority, _ = strconv.Atoi(head[m[2]:m[3]])
		claim(Chip{Type: ChipPriority, Value: head[m[2]:m[3]], Text: head[m[0]:m[1]], Start: m[0], End: m[1]})
	}

	if m := durationRe.FindStringSubmatchIndex(string(masked)); m != nil {
		n, err := strconv.ParseFloat(head[m[2]:m[3]], 64)
		if err != nil {
			return Result{}, fmt.Errorf("parsing duration %q: %w", head[m[0]:m[1]], err)
		}
		unit := strings.ToLower(head[m[4]:m[5]])
		if strings.HasPrefix(unit, "h") {
			n *= 60
		}
		mins := int(n + 0.5)
		if mins > 0 {
			res.DurationMin = &mins
			claim(Chip{Type: ChipDuration, Value: strconv.Itoa(mins), Text: head[m[0]:m[1]], Start: m[0], End: m[1]})
		}
	}

	for _, r := range recurrences {
		m := r.re.FindStringSubmatchIndex(string(masked))
		if m == nil {
			continue
		}
		groups := make([]string, len(m)/2)
		for i := range groups {
			if m[2*i] >= 0 {
				groups[i] = head[m[2*i]:m[2*i+1]]
			}
		}
		res.RecurrenceRule = r.rule(groups)
		claim(Chip{Type: ChipRecurrence, Value: res.RecurrenceRule, Text: groups[0], Start: m[0], End: m[1]})
		break
	}

	if err := p.parseDate(&res, masked, head, now, claim); err != nil {
		return Result{}, err
	}

	res.Title = cleanTitle(string(masked))
	if res.Title == "" {
		res.Title = strings.TrimSpace(head)
	}
	return res, nil
}

func (p *Parser) parseDate(res *Result, masked []byte, head string, now time.Time, claim func(Chip)) error {
	r, err := p.dates.Parse(string(masked), now)
	if err != nil {
		return fmt.Errorf("parsing date: %w", err)
	}
	if r == nil {
		return nil
	}
	start, end := r.Index, r.Index+len(r.Text)
	// The date rules include the leading separator in the match.
	for start < end && !isWordByte(head[start]) {
		start++
	}
	if start >= end {
		return nil
	}
	text := head[start:end]

	at := r.Time
	typ := ChipTime
	if !clockRe.MatchString(text) {
		typ = ChipDate
		at = time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, at.Location())
		res.AllDay = true
	}
	res.StartAt = &at
	if res.DurationMin != nil && !res.AllDay {
		e := at.Add(time.Duration(*res.DurationMin) * time.Minute)
		res.EndAt = &e
	}
	claim(Chip{Type: typ, Value: at.Format(time.RFC3339), Text: text, Start: start, End: end})
	return nil
}

// cleanTitle collapses whitespace and drops connectors orphaned by the
// removal of chips.
func cleanTitle(s string) string {
	words := strings.Fields(s)
	for len(words) > 1 && connectors[strings.ToLower(words[len(words)-1])] {
		words = words[:len(words)-1]
	}
	return strings.Join(words, " ")
}

func isWordByte(b byte) bool {
	return b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= 0x80
}
