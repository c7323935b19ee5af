package compile

import (
	"fmt"
	"strings"
)

// Kind classifies a compile failure.
type Kind string

const (
	MalformedTime        Kind = "MalformedTime"
	InvalidRange         Kind = "InvalidRange"
	SpeedMismatch        Kind = "SpeedMismatch"
	MissingStream        Kind = "MissingStream"
	StreamIncompatible   Kind = "StreamIncompatible"
	TransitionInfeasible Kind = "TransitionInfeasible"
	MarkerOutOfRange     Kind = "MarkerOutOfRange"
	UnresolvedStyle      Kind = "UnresolvedStyle"
	UnresolvedAsset      Kind = "UnresolvedAsset"
	OverlayConflict      Kind = "OverlayConflict"
	InvalidValue         Kind = "InvalidValue"
	DurationMismatch     Kind = "DurationMismatch"
	ChapterConflict      Kind = "ChapterConflict"
)

// Ref points at an authored unit: a segment by scope and index, or a
// track-level setting when Index is negative.
type Ref struct {
	Scope string `json:"scope"`
	Index int    `json:"index"`
	ID    string `json:"id,omitempty"`
	Field string `json:"field,omitempty"`
}

func (r Ref) String() string {
	var b strings.Builder
	b.WriteString(r.Scope)
	if r.Index >= 0 {
		fmt.Fprintf(&b, "[%d]", r.Index)
	}
	if r.Field != "" {
		b.WriteString(".")
		b.WriteString(r.Field)
	}
	if r.ID != "" {
		fmt.Fprintf(&b, " (id %q)", r.ID)
	}
	return b.String()
}

// With returns a copy of r naming field.
func (r Ref) With(field string) Ref {
	if r.Field != "" {
		field = r.Field + "." + field
	}
	r.Field = field
	return r
}

// Diagnostic is a compile failure. Every failure the compiler returns is a
// *Diagnostic; use errors.As to inspect it.
type Diagnostic struct {
	Kind    Kind   `json:"kind"`
	Ref     Ref    `json:"ref"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s: %s", d.Ref, d.Kind, d.Message)
}

func (d *Diagnostic) Unwrap() error { return d.Err }

func diagf(kind Kind, ref Ref, format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{Kind: kind, Ref: ref, Message: fmt.Sprintf(format, args...)}
}

func wrapDiag(kind Kind, ref Ref, err error) *Diagnostic {
	return &Diagnostic{Kind: kind, Ref: ref, Message: err.Error(), Err: err}
}

// Warning is an advisory finding that does not stop compilation.
type Warning struct {
	Ref     Ref    `json:"ref"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	if w.Ref.Scope == "" {
		return w.Message
	}
	return fmt.Sprintf("%s: %s", w.Ref, w.Message)
}

// Report is the result of validating a project in validate-all mode: at
// most one error per component, plus warnings.
type Report struct {
	Errors   []*Diagnostic `json:"errors"`
	Warnings []Warning     `json:"warnings"`
}

// OK reports whether the project compiled without errors.
func (r Report) OK() bool { return len(r.Errors) == 0 }
