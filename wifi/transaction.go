package wifi

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Outcome classifies how a transaction ended.
type Outcome int

const (
	// OutcomeOK means the terminal token arrived inside the budget.
	OutcomeOK Outcome = iota
	// OutcomeFail means an error token arrived before the terminal token.
	OutcomeFail
	// OutcomeTimeout means the budget elapsed with no terminal token.
	OutcomeTimeout
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeFail:
		return "fail"
	case OutcomeTimeout:
		return "timeout"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Transaction describes one command/response exchange with the modem.
type Transaction struct {
	// Label names the exchange in logs and errors. Keep it short and free
	// of secrets; the command itself may carry credentials.
	Label string
	// Command is the text to transmit. The session appends CRLF.
	Command string
	// Ack anchors field extraction inside the captured response. Empty
	// means extraction starts at the beginning of the capture.
	Ack string
	// Slots receive typed fields scanned from the text after Ack, in order.
	Slots []Slot
	// Terminal is the substring whose arrival ends the wait, success or not.
	Terminal string
	// Timeout bounds the wait. Zero selects the session default.
	Timeout time.Duration
}

// Result reports how a transaction ended.
type Result struct {
	Outcome Outcome
	// Text is the captured buffer window when a token was seen. Empty on
	// timeout.
	Text string
	// Filled counts the slots written before extraction stopped.
	Filled int
}

// Slot is one typed destination filled from a response. Destinations are
// written in declaration order; a slot that cannot be filled stops the scan
// and surfaces as ErrPartialParse, it never leaves later slots half written.
type Slot interface {
	fill(sc *fieldScanner) error
}

// Int extracts a signed decimal integer.
func Int(dst *int) Slot { return intSlot{dst} }

// Word extracts a run of characters up to the next space, comma or line
// ending.
func Word(dst *string) Slot { return wordSlot{dst} }

// Quoted extracts the contents of a double-quoted string, without the quotes.
func Quoted(dst *string) Slot { return quotedSlot{dst} }

// Line extracts everything up to the next line ending.
func Line(dst *string) Slot { return lineSlot{dst} }

type intSlot struct{ dst *int }

func (s intSlot) fill(sc *fieldScanner) error {
	v, err := sc.nextInt()
	if err != nil {
		return err
	}
	*s.dst = v
	return nil
}

type wordSlot struct{ dst *string }

func (s wordSlot) fill(sc *fieldScanner) error {
	v, err := sc.nextWord()
	if err != nil {
		return err
	}
	*s.dst = v
	return nil
}

type quotedSlot struct{ dst *string }

func (s quotedSlot) fill(sc *fieldScanner) error {
	v, err := sc.nextQuoted()
	if err != nil {
		return err
	}
	*s.dst = v
	return nil
}

type lineSlot struct{ dst *string }

func (s lineSlot) fill(sc *fieldScanner) error {
	v, err := sc.nextLine()
	if err != nil {
		return err
	}
	*s.dst = v
	return nil
}

// extract anchors on ack inside text and fills slots from the tail. It
// returns the number of slots written; an unfillable slot or a missing
// anchor (when there are slots to fill) wraps ErrPartialParse. Text beyond
// the last slot is ignored.
func extract(text, ack string, slots []Slot) (int, error) {
	if len(slots) == 0 {
		return 0, nil
	}
	tail := text
	if ack != "" {
		idx := strings.Index(text, ack)
		if idx < 0 {
			return 0, fmt.Errorf("anchor %q not in response: %w", ack, ErrPartialParse)
		}
		tail = text[idx+len(ack):]
	}
	sc := &fieldScanner{text: tail}
	for i, slot := range slots {
		if err := slot.fill(sc); err != nil {
			return i, fmt.Errorf("slot %d of %d: %s: %w", i+1, len(slots), err, ErrPartialParse)
		}
	}
	return len(slots), nil
}

// fieldScanner walks response text token by token. Runs of spaces, tabs,
// commas and colons separate tokens, mirroring the punctuation the command
// set puts between fields.
type fieldScanner struct {
	text string
	pos  int
}

func (sc *fieldScanner) skipSeparators() {
	for sc.pos < len(sc.text) {
		switch sc.text[sc.pos] {
		case ' ', '\t', ',', ':':
			sc.pos++
		default:
			return
		}
	}
}

func (sc *fieldScanner) nextInt() (int, error) {
	sc.skipSeparators()
	start := sc.pos
	if sc.pos < len(sc.text) && (sc.text[sc.pos] == '-' || sc.text[sc.pos] == '+') {
		sc.pos++
	}
	digits := sc.pos
	for sc.pos < len(sc.text) && sc.text[sc.pos] >= '0' && sc.text[sc.pos] <= '9' {
		sc.pos++
	}
	if sc.pos == digits {
		sc.pos = start
		return 0, fmt.Errorf("no integer at %q", snippet(sc.text[start:]))
	}
	raw := sc.text[start:sc.pos]
	v, err := strconv.Atoi(raw)
	if err != nil {
		sc.pos = start
		return 0, fmt.Errorf("bad integer %q", raw)
	}
	return v, nil
}

func (sc *fieldScanner) nextWord() (string, error) {
	sc.skipSeparators()
	start := sc.pos
	for sc.pos < len(sc.text) {
		c := sc.text[sc.pos]
		if c == ' ' || c == '\t' || c == ',' || c == '\r' || c == '\n' {
			break
		}
		sc.pos++
	}
	if sc.pos == start {
		return "", fmt.Errorf("no word at %q", snippet(sc.text[start:]))
	}
	return sc.text[start:sc.pos], nil
}

func (sc *fieldScanner) nextQuoted() (string, error) {
	sc.skipSeparators()
	if sc.pos >= len(sc.text) || sc.text[sc.pos] != '"' {
		return "", fmt.Errorf("no opening quote at %q", snippet(sc.text[sc.pos:]))
	}
	sc.pos++
	start := sc.pos
	end := strings.IndexByte(sc.text[start:], '"')
	if end < 0 {
		sc.pos = start - 1
		return "", fmt.Errorf("unterminated quote at %q", snippet(sc.text[start-1:]))
	}
	sc.pos = start + end + 1
	return sc.text[start : start+end], nil
}

func (sc *fieldScanner) nextLine() (string, error) {
	sc.skipSeparators()
	start := sc.pos
	for sc.pos < len(sc.text) {
		c := sc.text[sc.pos]
		if c == '\r' || c == '\n' {
			break
		}
		sc.pos++
	}
	if sc.pos == start {
		return "", fmt.Errorf("no text at %q", snippet(sc.text[start:]))
	}
	return sc.text[start:sc.pos], nil
}

// snippet trims a scan position down to something an error message can carry.
func snippet(s string) string {
	const max = 24
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
