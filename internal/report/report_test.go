package report

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"placement/internal/model"
)

func TestRenderPass(t *testing.T) {
	academic, _ := model.NewAcademicMarks(25, 30, 35)
	interview, _ := model.NewInterviewMarks(30, 40)
	e := model.NewEvaluation(model.NewStudentInfo("Satheesh", 42), academic, interview)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, e))

	want := `
--- Student Information ---
Name    : Satheesh
Roll No : 42

--- Academic Marks ---
Start Exam : 25
Mid Exam   : 30
End Exam   : 35

--- Interview Marks ---
Technical : 30
HR        : 40

--- Interview Result ---
Result : PASS
 You got the job!
`
	assert.Equal(t, want, buf.String())
}

func TestRenderFailWithDiagnostics(t *testing.T) {
	academic, aerr := model.NewAcademicMarks(-1, 30, 35)
	interview, ierr := model.NewInterviewMarks(60, 10)
	e := model.NewEvaluation(model.NewStudentInfo("Ravi", 7), academic, interview)
	e.Diagnostics = []string{
		"Academic Marks Error: " + aerr.Error(),
		"Interview Marks Error: " + ierr.Error(),
	}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, e))

	want := `Academic Marks Error: Academic marks cannot be negative
Interview Marks Error: Interview marks should be between 0 and 50

--- Student Information ---
Name    : Ravi
Roll No : 7

--- Academic Marks ---
Start Exam : 0
Mid Exam   : 0
End Exam   : 0

--- Interview Marks ---
Technical : 0
HR        : 0

--- Interview Result ---
Result : FAIL
 Better luck next time.
`
	assert.Equal(t, want, buf.String())
}

func TestFormatMark(t *testing.T) {
	assert.Equal(t, "25", FormatMark(25))
	assert.Equal(t, "27.5", FormatMark(27.5))
	assert.Equal(t, "0", FormatMark(0))
}

type failingWriter struct{ writes int }

func (w *failingWriter) Write(p []byte) (int, error) {
	w.writes++
	return 0, errors.New("disk full")
}

func TestRenderWriteError(t *testing.T) {
	w := &failingWriter{}
	err := Render(w, model.Evaluation{})

	assert.ErrorContains(t, err, "disk full")
	assert.Equal(t, 1, w.writes)
}
