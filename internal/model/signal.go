package model

// BreachKind classifies a break of a recent extremum.
type BreachKind string

const (
	BreachNone       BreachKind = ""
	BreachResistance BreachKind = "resistance"
	BreachSupport    BreachKind = "support"
)

// Breach is the result of comparing the newest bar with its trailing window.
type Breach struct {
	Kind     BreachKind
	Level    float64 // reference extremum that was broken
	Distance float64 // how far beyond Level the bar reached
}

// Found reports whether a breach was detected.
func (b Breach) Found() bool { return b.Kind != BreachNone }

// ChecklistState is the per-instrument checklist, rewritten every cycle.
type ChecklistState struct {
	Breach       bool
	Divergence   bool
	BelowMidline bool
	TimeWindow   bool

	RetraceConfirmed bool
	AllConfirmed     bool
}

// SlowReady reports whether every slow-timeframe gate holds.
func (s ChecklistState) SlowReady() bool {
	return s.Breach && s.Divergence && s.BelowMidline && s.TimeWindow
}

// Flags returns the five booleans shown on the display.
func (s ChecklistState) Flags() Flags {
	return Flags{
		Breach:           s.Breach,
		Divergence:       s.Divergence,
		BelowMidline:     s.BelowMidline,
		RetraceConfirmed: s.RetraceConfirmed,
		AllConfirmed:     s.AllConfirmed,
	}
}

// Flags are the checklist items reported to the display each cycle.
type Flags struct {
	Breach           bool
	Divergence       bool
	BelowMidline     bool
	RetraceConfirmed bool
	AllConfirmed     bool
}

// FlagLabels names the Flags fields in display order.
var FlagLabels = [5]string{
	"H1: SR breach",
	"H1: RSI leaves Fisher",
	"H1: RSI close < 50",
	"M15: Retrace to 50 EMA (200/400 side + BB ok)",
	"ALL conditions met",
}

// Values returns the flags in FlagLabels order.
func (f Flags) Values() [5]bool {
	return [5]bool{f.Breach, f.Divergence, f.BelowMidline, f.RetraceConfirmed, f.AllConfirmed}
}
