package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"placement/internal/logging"
	"placement/internal/model"
)

const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// Import files carry one student per row after a header row, in this column order.
var importColumns = []string{"name", "roll_no", "start", "mid", "end", "technical", "hr"}

var (
	ErrUnsupportedHeader = errors.New("header row does not match name,roll_no,start,mid,end,technical,hr")
	ErrNonFiniteMark     = errors.New("mark is not a finite number")
)

const (
	saveBatchSize  = 200
	readBufferSize = 1000
)

type ProgressInfo struct {
	FileName     string    `json:"fileName"`
	TotalRecords int       `json:"totalRecords"`
	Processed    int       `json:"processed"`
	Skipped      int       `json:"skipped"`
	Status       string    `json:"status"`
	Error        string    `json:"error,omitempty"`
	StartTime    time.Time `json:"startTime"`
	EndTime      *time.Time `json:"endTime,omitempty"`
}

type ImportService struct {
	db                *gorm.DB
	logger            *zap.Logger
	fileProgressMap   map[string]*ProgressInfo
	fileProgressLock  sync.RWMutex
	progressListeners map[chan *ProgressInfo]bool
	listenerLock      sync.RWMutex

	workerSemaphore chan struct{} // caps workers across all files
}

func NewImportService(db *gorm.DB, logger *zap.Logger) *ImportService {
	maxWorkers := runtime.NumCPU() * 2

	return &ImportService{
		db:                db,
		logger:            logging.OrNop(logger),
		fileProgressMap:   make(map[string]*ProgressInfo),
		progressListeners: make(map[chan *ProgressInfo]bool),
		workerSemaphore:   make(chan struct{}, maxWorkers),
	}
}

func (s *ImportService) RegisterProgressListener(ch chan *ProgressInfo) {
	s.listenerLock.Lock()
	defer s.listenerLock.Unlock()
	s.progressListeners[ch] = true
}

func (s *ImportService) UnregisterProgressListener(ch chan *ProgressInfo) {
	s.listenerLock.Lock()
	defer s.listenerLock.Unlock()
	delete(s.progressListeners, ch)
}

// BroadcastProgress sends a copy of progress to every listener that is ready
// to receive it. Busy listeners miss the update.
func (s *ImportService) BroadcastProgress(progress *ProgressInfo) {
	s.listenerLock.RLock()
	defer s.listenerLock.RUnlock()

	for listener := range s.progressListeners {
		update := *progress
		select {
		case listener <- &update:
		default:
		}
	}
}

func now() *time.Time {
	t := time.Now()
	return &t
}

func (s *ImportService) startProgress(fileName string) {
	s.fileProgressLock.Lock()
	defer s.fileProgressLock.Unlock()

	progress := &ProgressInfo{
		FileName:  fileName,
		Status:    StatusProcessing,
		StartTime: time.Now(),
	}
	s.fileProgressMap[fileName] = progress
	s.BroadcastProgress(progress)
}

func (s *ImportService) setTotal(fileName string, total int) {
	s.fileProgressLock.Lock()
	defer s.fileProgressLock.Unlock()

	if progress, exists := s.fileProgressMap[fileName]; exists {
		progress.TotalRecords = total
	}
}

func (s *ImportService) updateProgress(fileName string, processed, skipped int) {
	if processed == 0 && skipped == 0 {
		return
	}
	s.fileProgressLock.Lock()
	defer s.fileProgressLock.Unlock()

	if progress, exists := s.fileProgressMap[fileName]; exists {
		progress.Processed += processed
		progress.Skipped += skipped
		s.BroadcastProgress(progress)
	}
}

func (s *ImportService) updateProgressError(fileName string, errorMsg string) {
	s.fileProgressLock.Lock()
	defer s.fileProgressLock.Unlock()

	if progress, exists := s.fileProgressMap[fileName]; exists {
		progress.Status = StatusError
		progress.Error = errorMsg
		progress.EndTime = now()
		s.BroadcastProgress(progress)
	}
}

func (s *ImportService) completeProgress(fileName string) {
	s.fileProgressLock.Lock()
	defer s.fileProgressLock.Unlock()

	if progress, exists := s.fileProgressMap[fileName]; exists {
		progress.Status = StatusCompleted
		progress.EndTime = now()
		s.BroadcastProgress(progress)
	}
}

// GetFileProgress returns a copy of the progress for fileName, or nil.
func (s *ImportService) GetFileProgress(fileName string) *ProgressInfo {
	s.fileProgressLock.RLock()
	defer s.fileProgressLock.RUnlock()

	if progress, exists := s.fileProgressMap[fileName]; exists {
		copyProgress := *progress
		return &copyProgress
	}
	return nil
}

func (s *ImportService) GetAllFileProgress() []*ProgressInfo {
	s.fileProgressLock.RLock()
	defer s.fileProgressLock.RUnlock()

	result := make([]*ProgressInfo, 0, len(s.fileProgressMap))
	for _, progress := range s.fileProgressMap {
		copyProgress := *progress
		result = append(result, &copyProgress)
	}
	return result
}

// importRun is the state shared by the workers of one file.
type importRun struct {
	fileName string

	mu       sync.Mutex
	firstErr error
}

func (r *importRun) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.firstErr == nil {
		r.firstErr = err
	}
}

func (r *importRun) err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.firstErr
}

// ProcessFile imports the evaluations in a .csv or .xlsx file. Rows with
// malformed fields or a roll number already seen in the file are skipped;
// rows with out-of-range marks are stored with those marks zeroed.
func (s *ImportService) ProcessFile(ctx context.Context, filePath string) error {
	fileName := filepath.Base(filePath)
	startTime := time.Now()
	s.startProgress(fileName)

	fail := func(msg string, err error) error {
		s.updateProgressError(fileName, msg+": "+err.Error())
		s.logger.Error("Import failed", zap.String("file", fileName), zap.String("stage", msg), zap.Error(err))
		return fmt.Errorf("%s %s: %w", msg, fileName, err)
	}

	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return fail("failed to get file info", err)
	}

	numWorkers := calculateWorkers(fileInfo.Size())
	s.logger.Info("Importing file",
		zap.String("file", fileName),
		zap.Int64("size", fileInfo.Size()),
		zap.Int("workers", numWorkers))

	totalRecords, err := countRecords(filePath)
	if err != nil {
		return fail("failed to count records", err)
	}
	s.setTotal(fileName, totalRecords)

	rows, err := openRows(filePath)
	if err != nil {
		return fail("failed to open file", err)
	}
	defer rows.Close()

	header, err := rows.Read()
	if err != nil && !errors.Is(err, io.EOF) {
		return fail("failed to read header", err)
	}
	if err == nil {
		if err := checkHeader(header); err != nil {
			return fail("invalid header", err)
		}
	}

	bufferSize := readBufferSize
	if numWorkers > 10 {
		bufferSize = numWorkers * 100
	}

	requestCh := make(chan EvaluateRequest, bufferSize)
	run := &importRun{fileName: fileName}
	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go s.worker(ctx, run, requestCh, &wg)
	}

	readErr := s.feed(ctx, run, rows, requestCh)
	close(requestCh)
	wg.Wait()

	if readErr == nil {
		readErr = run.err()
	}
	if readErr != nil {
		return fail("import aborted", readErr)
	}

	s.completeProgress(fileName)
	s.logger.Info("Import completed", zap.String("file", fileName), zap.Duration("elapsed", time.Since(startTime)))
	return nil
}

// feed parses every data row and sends it to the workers until the file
// ends, ctx is done or the reader fails. The first row for a roll number wins.
func (s *ImportService) feed(ctx context.Context, run *importRun, rows rowReader, requestCh chan<- EvaluateRequest) error {
	seen := make(map[int]bool)
	for {
		record, err := rows.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			s.logger.Warn("Skipping unreadable row", zap.String("file", run.fileName), zap.Error(err))
			s.updateProgress(run.fileName, 0, 1)
			continue
		}
		if err != nil {
			return err
		}
		if isBlank(record) {
			continue
		}

		req, err := parseRecord(record)
		if err != nil {
			s.logger.Warn("Skipping malformed row", zap.String("file", run.fileName), zap.Strings("row", record), zap.Error(err))
			s.updateProgress(run.fileName, 0, 1)
			continue
		}
		if seen[req.RollNo] {
			s.logger.Warn("Skipping duplicate roll number", zap.String("file", run.fileName), zap.Int("roll_no", req.RollNo))
			s.updateProgress(run.fileName, 0, 1)
			continue
		}
		seen[req.RollNo] = true

		select {
		case requestCh <- req:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// calculateWorkers scales the worker count with file size, bounded by the CPUs.
func calculateWorkers(fileSize int64) int {
	cpus := runtime.NumCPU()

	if fileSize < 1_000_000 {
		return min(2, cpus)
	}
	if fileSize < 10_000_000 {
		return min(4, cpus)
	}
	if fileSize < 100_000_000 {
		return min(8, cpus)
	}
	if fileSize < 1_000_000_000 {
		return min(16, cpus)
	}
	return cpus
}

func (s *ImportService) worker(ctx context.Context, run *importRun, requestCh <-chan EvaluateRequest, wg *sync.WaitGroup) {
	s.workerSemaphore <- struct{}{}
	defer func() {
		<-s.workerSemaphore
		wg.Done()
	}()

	var batch []model.Evaluation
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := s.saveBatch(ctx, batch); err != nil {
			s.logger.Error("Failed to save batch", zap.String("file", run.fileName), zap.Int("rows", len(batch)), zap.Error(err))
			run.fail(err)
			s.updateProgress(run.fileName, 0, len(batch))
		} else {
			s.updateProgress(run.fileName, len(batch), 0)
		}
		batch = batch[:0]
	}

	for req := range requestCh {
		e, problems := BuildEvaluation(req)
		for _, p := range problems {
			s.logger.Warn("Marks reset to zero", zap.String("file", run.fileName), zap.Int("roll_no", req.RollNo), zap.Error(p))
		}
		batch = append(batch, e)
		if len(batch) >= saveBatchSize {
			flush()
		}
	}
	flush()
}

func (s *ImportService) saveBatch(ctx context.Context, evaluations []model.Evaluation) error {
	if len(evaluations) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(upsertByRollNo()).CreateInBatches(evaluations, saveBatchSize).Error
}

// parseRecord converts one row in importColumns order.
func parseRecord(record []string) (EvaluateRequest, error) {
	if len(record) < len(importColumns) {
		return EvaluateRequest{}, fmt.Errorf("expected %d columns, got %d", len(importColumns), len(record))
	}
	fields := make([]string, len(importColumns))
	for i := range fields {
		fields[i] = strings.TrimSpace(record[i])
	}

	req := EvaluateRequest{Name: fields[0]}
	if req.Name == "" {
		return EvaluateRequest{}, ErrEmptyName
	}

	rollNo, err := strconv.Atoi(fields[1])
	if err != nil {
		return EvaluateRequest{}, fmt.Errorf("roll_no: %w", err)
	}
	req.RollNo = rollNo

	marks := []*float64{&req.Start, &req.Mid, &req.End, &req.Technical, &req.HR}
	for i, dst := range marks {
		v, err := strconv.ParseFloat(fields[i+2], 64)
		if err != nil {
			return EvaluateRequest{}, fmt.Errorf("%s: %w", importColumns[i+2], err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return EvaluateRequest{}, fmt.Errorf("%s: %w: %q", importColumns[i+2], ErrNonFiniteMark, fields[i+2])
		}
		*dst = v
	}
	return req, nil
}

// checkHeader accepts the importColumns names in order, ignoring case,
// surrounding space, a leading byte order mark and any extra columns.
func checkHeader(header []string) error {
	if len(header) < len(importColumns) {
		return fmt.Errorf("%w: got %q", ErrUnsupportedHeader, header)
	}
	for i, want := range importColumns {
		got := strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
		if !strings.EqualFold(got, want) {
			return fmt.Errorf("%w: column %d is %q", ErrUnsupportedHeader, i+1, header[i])
		}
	}
	return nil
}

func isBlank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

// countRecords counts the non-blank data rows below the header.
func countRecords(filePath string) (int, error) {
	rows, err := openRows(filePath)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	if _, err := rows.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		return 0, err
	}

	count := 0
	for {
		record, err := rows.Read()
		if errors.Is(err, io.EOF) {
			return count, nil
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			count++
			continue
		}
		if err != nil {
			return count, err
		}
		if !isBlank(record) {
			count++
		}
	}
}

// rowReader yields spreadsheet rows until io.EOF.
type rowReader interface {
	Read() ([]string, error)
	Close() error
}

func openRows(filePath string) (rowReader, error) {
	switch ext := strings.ToLower(filepath.Ext(filePath)); ext {
	case ".csv":
		return openCSVRows(filePath)
	case ".xlsx", ".xlsm":
		return openXLSXRows(filePath)
	default:
		return nil, fmt.Errorf("unsupported file type %q", ext)
	}
}

type csvRows struct {
	file   *os.File
	reader *csv.Reader
}

func openCSVRows(filePath string) (*csvRows, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	return &csvRows{file: file, reader: reader}, nil
}

func (r *csvRows) Read() ([]string, error) { return r.reader.Read() }
func (r *csvRows) Close() error            { return r.file.Close() }

type xlsxRows struct {
	file *excelize.File
	rows *excelize.Rows
}

// openXLSXRows streams the first sheet of a workbook.
func openXLSXRows(filePath string) (*xlsxRows, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open excel file: %w", err)
	}
	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		f.Close()
		return nil, errors.New("excel file does not contain any sheets")
	}
	rows, err := f.Rows(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to get rows from sheet %s: %w", sheetName, err)
	}
	return &xlsxRows{file: f, rows: rows}, nil
}

func (r *xlsxRows) Read() ([]string, error) {
	if !r.rows.Next() {
		if err := r.rows.Error(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	return r.rows.Columns()
}

func (r *xlsxRows) Close() error {
	rowsErr := r.rows.Close()
	if err := r.file.Close(); err != nil {
		return err
	}
	return rowsErr
}
