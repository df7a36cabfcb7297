// Package report prints an evaluation in the console layout used by the demo.
package report

import (
	"fmt"
	"io"
	"strconv"

	"placement/internal/model"
)

// Render writes diagnostics first, then the student, academic, interview and
// result sections.
func Render(w io.Writer, e model.Evaluation) error {
	p := &printer{w: w}

	for _, d := range e.Diagnostics {
		p.line(d)
	}

	p.line("\n--- Student Information ---")
	p.line("Name    : " + e.Student.Name)
	p.line("Roll No : " + strconv.Itoa(e.Student.RollNo))

	p.line("\n--- Academic Marks ---")
	p.line("Start Exam : " + FormatMark(e.Academic.Start))
	p.line("Mid Exam   : " + FormatMark(e.Academic.Mid))
	p.line("End Exam   : " + FormatMark(e.Academic.End))

	p.line("\n--- Interview Marks ---")
	p.line("Technical : " + FormatMark(e.Interview.Technical))
	p.line("HR        : " + FormatMark(e.Interview.HR))

	p.line("\n--- Interview Result ---")
	if e.Result == model.Pass {
		p.line("Result : PASS")
		p.line(" You got the job!")
	} else {
		p.line("Result : FAIL")
		p.line(" Better luck next time.")
	}

	return p.err
}

// FormatMark prints a mark in its shortest form, 25 rather than 25.000000.
func FormatMark(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// printer keeps the first write error and drops everything after it.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) line(s string) {
	if p.err != nil {
		return
	}
	if _, err := fmt.Fprintln(p.w, s); err != nil {
		p.err = fmt.Errorf("write report: %w", err)
	}
}
