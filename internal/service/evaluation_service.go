package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"placement/internal/logging"
	"placement/internal/model"
)

var (
	ErrEmptyName          = errors.New("student name is required")
	ErrEvaluationNotFound = errors.New("evaluation not found")
	ErrInvalidQuery       = errors.New("invalid list query")
)

// EvaluateRequest carries the raw marks for one student.
type EvaluateRequest struct {
	Name      string  `json:"name"`
	RollNo    int     `json:"rollNo"`
	Start     float64 `json:"start"`
	Mid       float64 `json:"mid"`
	End       float64 `json:"end"`
	Technical float64 `json:"technical"`
	HR        float64 `json:"hr"`
}

// BuildEvaluation validates the marks and assembles the evaluation. Rejected
// marks are zeroed; each rejection is returned and also recorded in the
// evaluation's Diagnostics.
func BuildEvaluation(req EvaluateRequest) (model.Evaluation, []error) {
	var problems []error

	academic, err := model.NewAcademicMarks(req.Start, req.Mid, req.End)
	if err != nil {
		problems = append(problems, fmt.Errorf("Academic Marks Error: %w", err))
	}
	interview, err := model.NewInterviewMarks(req.Technical, req.HR)
	if err != nil {
		problems = append(problems, fmt.Errorf("Interview Marks Error: %w", err))
	}

	e := model.NewEvaluation(model.NewStudentInfo(req.Name, req.RollNo), academic, interview)
	for _, p := range problems {
		e.Diagnostics = append(e.Diagnostics, p.Error())
	}
	return e, problems
}

var upsertColumns = []string{
	"name",
	"academic_start", "academic_mid", "academic_end",
	"interview_technical", "interview_hr",
	"result", "updated_at",
}

// upsertByRollNo replaces the marks of an existing roll number.
func upsertByRollNo() clause.OnConflict {
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "roll_no"}},
		DoUpdates: clause.AssignmentColumns(upsertColumns),
	}
}

type EvaluationService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewEvaluationService(db *gorm.DB, logger *zap.Logger) *EvaluationService {
	return &EvaluationService{db: db, logger: logging.OrNop(logger)}
}

// Evaluate stores the evaluation for req.RollNo, replacing any earlier one.
// Invalid marks are not an error: they are logged, zeroed and listed in the
// returned evaluation's Diagnostics.
func (s *EvaluationService) Evaluate(ctx context.Context, req EvaluateRequest) (*model.Evaluation, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, ErrEmptyName
	}

	e, problems := BuildEvaluation(req)
	for _, p := range problems {
		s.logger.Warn("Marks reset to zero",
			zap.String("name", req.Name),
			zap.Int("roll_no", req.RollNo),
			zap.Error(p))
	}

	err := s.db.WithContext(ctx).Clauses(upsertByRollNo()).Create(&e).Error
	if err != nil {
		return nil, fmt.Errorf("failed to save evaluation %d: %w", req.RollNo, err)
	}

	stored, err := s.Get(ctx, req.RollNo)
	if err != nil {
		return nil, err
	}
	stored.Diagnostics = e.Diagnostics

	s.logger.Info("Evaluation saved",
		zap.Int("roll_no", stored.Student.RollNo),
		zap.String("result", string(stored.Result)))
	return stored, nil
}

func (s *EvaluationService) Get(ctx context.Context, rollNo int) (*model.Evaluation, error) {
	var e model.Evaluation
	err := s.db.WithContext(ctx).Where("roll_no = ?", rollNo).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEvaluationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load evaluation %d: %w", rollNo, err)
	}
	return &e, nil
}

func (s *EvaluationService) Delete(ctx context.Context, rollNo int) error {
	res := s.db.WithContext(ctx).Where("roll_no = ?", rollNo).Delete(&model.Evaluation{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete evaluation %d: %w", rollNo, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrEvaluationNotFound
	}
	s.logger.Info("Evaluation deleted", zap.Int("roll_no", rollNo))
	return nil
}

// ListQuery filters and pages evaluations. Zero values select the defaults.
type ListQuery struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
	Name      string
	Result    model.Outcome
}

var sortColumns = map[string]bool{
	"roll_no":    true,
	"name":       true,
	"created_at": true,
}

func (q *ListQuery) normalize() error {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 10
	}
	if q.SortBy == "" {
		q.SortBy = "roll_no"
	}
	if !sortColumns[q.SortBy] {
		return fmt.Errorf("%w: cannot sort by %q", ErrInvalidQuery, q.SortBy)
	}
	q.SortOrder = strings.ToLower(q.SortOrder)
	if q.SortOrder == "" {
		q.SortOrder = "asc"
	}
	if q.SortOrder != "asc" && q.SortOrder != "desc" {
		return fmt.Errorf("%w: sort order %q", ErrInvalidQuery, q.SortOrder)
	}
	if q.Result != "" && q.Result != model.Pass && q.Result != model.Fail {
		return fmt.Errorf("%w: result %q", ErrInvalidQuery, q.Result)
	}
	return nil
}

// List returns one page of evaluations with the total match count and page count.
func (s *EvaluationService) List(ctx context.Context, q ListQuery) ([]model.Evaluation, int64, int, error) {
	if err := q.normalize(); err != nil {
		return nil, 0, 0, err
	}

	dbQuery := s.db.WithContext(ctx).Model(&model.Evaluation{})
	if q.Name != "" {
		dbQuery = dbQuery.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(q.Name)+"%")
	}
	if q.Result != "" {
		dbQuery = dbQuery.Where("result = ?", q.Result)
	}
	dbQuery = dbQuery.Session(&gorm.Session{})

	var totalCount int64
	if err := dbQuery.Count(&totalCount).Error; err != nil {
		return nil, 0, 0, fmt.Errorf("failed to count evaluations: %w", err)
	}

	evaluations := []model.Evaluation{}
	err := dbQuery.
		Order(clause.OrderByColumn{Column: clause.Column{Name: q.SortBy}, Desc: q.SortOrder == "desc"}).
		Offset((q.Page - 1) * q.Limit).
		Limit(q.Limit).
		Find(&evaluations).Error
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to list evaluations: %w", err)
	}

	totalPages := int(math.Ceil(float64(totalCount) / float64(q.Limit)))
	return evaluations, totalCount, totalPages, nil
}
