package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Category classifies a lossy conversion.
type Category string

const (
	CatSaturated       Category = "saturated"        // integer clamped to the target range
	CatFloatRange      Category = "float_range"      // NaN or out-of-range float written to an integer
	CatFloatOverflow   Category = "float_overflow"   // finite double became Inf in a float
	CatArrayTruncated  Category = "array_truncated"  // stored array had more elements than the current one
	CatStringTruncated Category = "string_truncated" // char array text cut to fit
	CatPointerFold     Category = "pointer_fold"     // 8-byte address does not survive folding to 4 bytes
	CatIncompatible    Category = "incompatible"     // no conversion rule, field left at its default
)

// Warning is a non-fatal record that a field lost information or could not be
// converted. Conversion continues after a warning; the output keeps whatever
// value the rule produced (clamped, truncated or default).
type Warning struct {
	Category Category `json:"category"`
	Struct   string   `json:"struct"`          // current name of the top-level struct
	Field    string   `json:"field"`           // dotted path below Struct, e.g. "id.name"
	From     string   `json:"from"`            // stored declaration, e.g. "int count"
	To       string   `json:"to"`              // current declaration
	Detail   string   `json:"detail,omitempty"`
}

func (w Warning) String() string {
	s := fmt.Sprintf("%s.%s: %s (%s -> %s)", w.Struct, w.Field, w.Category, w.From, w.To)
	if w.Detail != "" {
		s += ": " + w.Detail
	}
	return s
}

// Sink receives warnings as a load session produces them.
type Sink interface {
	Warn(Warning)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Warning)

func (f SinkFunc) Warn(w Warning) { f(w) }

// Discard drops every warning.
var Discard Sink = SinkFunc(func(Warning) {})

// LogSink writes each warning as one structured record.
type LogSink struct {
	Logger *slog.Logger
	Level  slog.Level
}

// NewLogSink returns a sink logging at warn level. A nil logger uses slog.Default.
func NewLogSink(l *slog.Logger) *LogSink {
	if l == nil {
		l = slog.Default()
	}
	return &LogSink{Logger: l, Level: slog.LevelWarn}
}

func (s *LogSink) Warn(w Warning) {
	attrs := []slog.Attr{
		slog.String("category", string(w.Category)),
		slog.String("struct", w.Struct),
		slog.String("field", w.Field),
		slog.String("from", w.From),
		slog.String("to", w.To),
	}
	if w.Detail != "" {
		attrs = append(attrs, slog.String("detail", w.Detail))
	}
	s.Logger.LogAttrs(context.Background(), s.Level, "lossy conversion", attrs...)
}

// Collector accumulates warnings and counts them per category. It is safe for
// concurrent use.
type Collector struct {
	mu         sync.Mutex
	warnings   []Warning
	byCategory map[Category]int
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{byCategory: make(map[Category]int)}
}

func (c *Collector) Warn(w Warning) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warnings = append(c.warnings, w)
	c.byCategory[w.Category]++
}

// Warnings returns a copy of everything collected so far.
func (c *Collector) Warnings() []Warning {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Warning(nil), c.warnings...)
}

// Count returns the number of warnings in a category.
func (c *Collector) Count(cat Category) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.byCategory[cat]
}

// Len returns the total number of warnings.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.warnings)
}

// Tee fans warnings out to several sinks.
func Tee(sinks ...Sink) Sink {
	return SinkFunc(func(w Warning) {
		for _, s := range sinks {
			if s != nil {
				s.Warn(w)
			}
		}
	})
}
