package model

import (
	"errors"
	"math"
	"time"
)

var (
	ErrNegativeAcademicMarks = errors.New("Academic marks cannot be negative")
	ErrInterviewMarksRange   = errors.New("Interview marks should be between 0 and 50")
)

const (
	MaxInterviewMark  = 50
	InterviewPassMark = 25
)

type Outcome string

const (
	Pass Outcome = "PASS"
	Fail Outcome = "FAIL"
)

// StudentInfo identifies the student being evaluated.
type StudentInfo struct {
	Name   string `gorm:"not null" json:"name"`
	RollNo int    `gorm:"uniqueIndex;not null" json:"rollNo"`
}

func NewStudentInfo(name string, rollNo int) StudentInfo {
	return StudentInfo{Name: name, RollNo: rollNo}
}

type AcademicMarks struct {
	Start float64 `json:"start"`
	Mid   float64 `json:"mid"`
	End   float64 `json:"end"`
}

// NewAcademicMarks returns the marks unchanged, or all-zero marks and
// ErrNegativeAcademicMarks when any of them is negative or not a finite number.
func NewAcademicMarks(start, mid, end float64) (AcademicMarks, error) {
	if !validAcademic(start) || !validAcademic(mid) || !validAcademic(end) {
		return AcademicMarks{}, ErrNegativeAcademicMarks
	}
	return AcademicMarks{Start: start, Mid: mid, End: end}, nil
}

type InterviewMarks struct {
	Technical float64 `json:"technical"`
	HR        float64 `json:"hr"`
}

// NewInterviewMarks returns the marks unchanged, or all-zero marks and
// ErrInterviewMarksRange when either mark is above MaxInterviewMark or not a
// finite number.
func NewInterviewMarks(technical, hr float64) (InterviewMarks, error) {
	if !validInterview(technical) || !validInterview(hr) {
		return InterviewMarks{}, ErrInterviewMarksRange
	}
	return InterviewMarks{Technical: technical, HR: hr}, nil
}

// The comparisons are written so that NaN fails them.
func validAcademic(v float64) bool {
	return v >= 0 && !math.IsInf(v, 1)
}

func validInterview(v float64) bool {
	return v <= MaxInterviewMark && !math.IsInf(v, -1)
}

// Result requires both marks to reach InterviewPassMark.
func (m InterviewMarks) Result() Outcome {
	if m.Technical >= InterviewPassMark && m.HR >= InterviewPassMark {
		return Pass
	}
	return Fail
}

// Evaluation is the stored outcome for one student, keyed by roll number.
type Evaluation struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Student     StudentInfo    `gorm:"embedded" json:"student"`
	Academic    AcademicMarks  `gorm:"embedded;embeddedPrefix:academic_" json:"academic"`
	Interview   InterviewMarks `gorm:"embedded;embeddedPrefix:interview_" json:"interview"`
	Result      Outcome        `gorm:"index;size:4" json:"result"`
	Diagnostics []string       `gorm:"-" json:"diagnostics,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

func NewEvaluation(student StudentInfo, academic AcademicMarks, interview InterviewMarks) Evaluation {
	return Evaluation{
		Student:   student,
		Academic:  academic,
		Interview: interview,
		Result:    interview.Result(),
	}
}
