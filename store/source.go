package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rushteam/coursesim/core"
)

// SliceEnrollmentSource 是内存实现的数据源，用于测试/演示。
type SliceEnrollmentSource struct {
	Records []core.RawEnrollment
}

func NewSliceEnrollmentSource(pairs ...core.Enrollment) *SliceEnrollmentSource {
	recs := make([]core.RawEnrollment, 0, len(pairs))
	for _, p := range pairs {
		recs = append(recs, core.RawEnrollment{LearnerID: p.LearnerID, CourseID: p.CourseID})
	}
	return &SliceEnrollmentSource{Records: recs}
}

func (s *SliceEnrollmentSource) Name() string { return "slice" }

func (s *SliceEnrollmentSource) Scan(ctx context.Context, fn func(core.RawEnrollment) error) error {
	for _, rec := range s.Records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

func (s *SliceEnrollmentSource) Close(ctx context.Context) error { return nil }

// CSVEnrollmentSource 从带表头的 CSV 文件读取选课记录。
// 除 learner / course 列外，其余列以字符串放入 Attrs。
type CSVEnrollmentSource struct {
	Path string

	// LearnerColumn / CourseColumn 是表头列名，默认 learner_id / course_id
	LearnerColumn string
	CourseColumn  string

	// Comma 是分隔符，默认 ','
	Comma rune
}

func (s *CSVEnrollmentSource) Name() string { return "csv:" + s.Path }

func (s *CSVEnrollmentSource) Scan(ctx context.Context, fn func(core.RawEnrollment) error) error {
	f, err := os.Open(s.Path)
	if err != nil {
		return core.ErrSourceUnavailable.Wrap(err)
	}
	defer f.Close()
	return s.scan(ctx, f, fn)
}

func (s *CSVEnrollmentSource) scan(ctx context.Context, r io.Reader, fn func(core.RawEnrollment) error) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	if s.Comma != 0 {
		reader.Comma = s.Comma
	}

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return core.ErrSourceUnavailable.Wrap(fmt.Errorf("read header %s: %w", s.Path, err))
	}

	learnerCol, courseCol := -1, -1
	learnerName, courseName := s.columns()
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case learnerName:
			learnerCol = i
		case courseName:
			courseCol = i
		}
	}
	if learnerCol < 0 || courseCol < 0 {
		return core.ErrSourceUnavailable.Wrap(fmt.Errorf("%s: header must contain %q and %q", s.Path, learnerName, courseName))
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			// 单行格式错误按缺字段处理
			if err := fn(core.RawEnrollment{}); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return core.ErrSourceUnavailable.Wrap(err)
		}

		rec := core.RawEnrollment{
			LearnerID: field(row, learnerCol),
			CourseID:  field(row, courseCol),
		}
		if len(header) > 2 {
			rec.Attrs = make(map[string]any, len(header)-2)
			for i, h := range header {
				if i == learnerCol || i == courseCol {
					continue
				}
				rec.Attrs[strings.TrimSpace(h)] = field(row, i)
			}
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}

func (s *CSVEnrollmentSource) columns() (string, string) {
	learner, course := s.LearnerColumn, s.CourseColumn
	if learner == "" {
		learner = "learner_id"
	}
	if course == "" {
		course = "course_id"
	}
	return learner, course
}

func (s *CSVEnrollmentSource) Close(ctx context.Context) error { return nil }

func field(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

var (
	_ core.EnrollmentSource = (*SliceEnrollmentSource)(nil)
	_ core.EnrollmentSource = (*CSVEnrollmentSource)(nil)
)
