package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAcademicMarks(t *testing.T) {
	tests := []struct {
		name            string
		start, mid, end float64
		want            AcademicMarks
		wantErr         error
	}{
		{"valid marks", 25, 30, 35, AcademicMarks{25, 30, 35}, nil},
		{"zero marks", 0, 0, 0, AcademicMarks{}, nil},
		{"negative start", -1, 30, 35, AcademicMarks{}, ErrNegativeAcademicMarks},
		{"negative mid", 25, -0.5, 35, AcademicMarks{}, ErrNegativeAcademicMarks},
		{"negative end", 25, 30, -35, AcademicMarks{}, ErrNegativeAcademicMarks},
		{"fractional marks", 12.5, 40, 99.25, AcademicMarks{12.5, 40, 99.25}, nil},
		{"NaN start", math.NaN(), 30, 35, AcademicMarks{}, ErrNegativeAcademicMarks},
		{"infinite mid", 25, math.Inf(1), 35, AcademicMarks{}, ErrNegativeAcademicMarks},
		{"negative infinite end", 25, 30, math.Inf(-1), AcademicMarks{}, ErrNegativeAcademicMarks},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewAcademicMarks(tt.start, tt.mid, tt.end)
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewInterviewMarks(t *testing.T) {
	tests := []struct {
		name          string
		technical, hr float64
		want          InterviewMarks
		wantErr       error
		wantResult    Outcome
	}{
		{"pass", 30, 40, InterviewMarks{30, 40}, nil, Pass},
		{"technical above range", 60, 10, InterviewMarks{}, ErrInterviewMarksRange, Fail},
		{"hr above range", 30, 51, InterviewMarks{}, ErrInterviewMarksRange, Fail},
		{"upper bound", 50, 50, InterviewMarks{50, 50}, nil, Pass},
		{"exact threshold", 25, 25, InterviewMarks{25, 25}, nil, Pass},
		{"technical below threshold", 24.9, 40, InterviewMarks{24.9, 40}, nil, Fail},
		{"hr below threshold", 40, 10, InterviewMarks{40, 10}, nil, Fail},
		{"negative technical is kept", -5, 30, InterviewMarks{-5, 30}, nil, Fail},
		{"NaN technical", math.NaN(), 30, InterviewMarks{}, ErrInterviewMarksRange, Fail},
		{"NaN hr", 30, math.NaN(), InterviewMarks{}, ErrInterviewMarksRange, Fail},
		{"infinite technical", math.Inf(1), 30, InterviewMarks{}, ErrInterviewMarksRange, Fail},
		{"negative infinite hr", 30, math.Inf(-1), InterviewMarks{}, ErrInterviewMarksRange, Fail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewInterviewMarks(tt.technical, tt.hr)
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantResult, got.Result())
		})
	}
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "Academic marks cannot be negative", ErrNegativeAcademicMarks.Error())
	assert.Equal(t, "Interview marks should be between 0 and 50", ErrInterviewMarksRange.Error())
}

func TestNewEvaluation(t *testing.T) {
	student := NewStudentInfo("Satheesh", 42)
	academic, _ := NewAcademicMarks(25, 30, 35)
	interview, _ := NewInterviewMarks(30, 40)

	e := NewEvaluation(student, academic, interview)

	assert.Equal(t, "Satheesh", e.Student.Name)
	assert.Equal(t, 42, e.Student.RollNo)
	assert.Equal(t, Pass, e.Result)
	assert.Empty(t, e.Diagnostics)
}
