package writer

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/rushteam/coursesim/core"
)

type fakeSink struct {
	calls     []string
	clearErr  error
	insertErr error
	failed    []core.FailedRow
	inserted  []core.RecommendationEntry
}

func (s *fakeSink) Name() string { return "fake" }

func (s *fakeSink) Clear(ctx context.Context) error {
	s.calls = append(s.calls, "clear")
	return s.clearErr
}

func (s *fakeSink) BulkInsert(ctx context.Context, entries []core.RecommendationEntry) (*core.WriteResult, error) {
	s.calls = append(s.calls, "insert")
	if s.insertErr != nil {
		return &core.WriteResult{}, s.insertErr
	}
	s.inserted = append(s.inserted, entries...)
	return &core.WriteResult{Inserted: len(entries) - len(s.failed), Failed: s.failed}, nil
}

// checkingSink 拒绝 reject 中列出的课程
type checkingSink struct {
	fakeSink
	reject map[string]bool
}

func (s *checkingSink) Check(e core.RecommendationEntry) error {
	if s.reject[e.CourseID] {
		return errors.New("invalid object id")
	}
	return nil
}

var table = []core.RecommendationEntry{
	{CourseID: "A", Recommendations: []core.Recommendation{{CourseID: "B", Score: 1}}},
	{CourseID: "B", Recommendations: []core.Recommendation{{CourseID: "A", Score: 1}}},
}

func TestWriter_Write(t *testing.T) {
	tests := []struct {
		name         string
		sink         *fakeSink
		skipOnEmpty  bool
		entries      []core.RecommendationEntry
		wantCalls    []string
		wantInserted int
		wantFailed   int
		wantErr      bool
	}{
		{
			name:         "clear then insert",
			sink:         &fakeSink{},
			entries:      table,
			wantCalls:    []string{"clear", "insert"},
			wantInserted: 2,
		},
		{
			name:      "clear failure aborts before insert",
			sink:      &fakeSink{clearErr: core.ErrSinkUnavailable},
			entries:   table,
			wantCalls: []string{"clear"},
			wantErr:   true,
		},
		{
			name:      "insert failure is returned",
			sink:      &fakeSink{insertErr: errors.New("write concern")},
			entries:   table,
			wantCalls: []string{"clear", "insert"},
			wantErr:   true,
		},
		{
			name:         "partial failures reported",
			sink:         &fakeSink{failed: []core.FailedRow{{CourseID: "B", Reason: "invalid id"}}},
			entries:      table,
			wantCalls:    []string{"clear", "insert"},
			wantInserted: 1,
			wantFailed:   1,
		},
		{
			name:      "empty table clears",
			sink:      &fakeSink{},
			wantCalls: []string{"clear"},
		},
		{
			name:        "empty table kept when configured",
			sink:        &fakeSink{},
			skipOnEmpty: true,
			wantCalls:   nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &Writer{Sink: tt.sink, SkipClearOnEmpty: tt.skipOnEmpty, Logger: zerolog.Nop()}
			res, err := w.Write(context.Background(), tt.entries)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if len(tt.sink.calls) != len(tt.wantCalls) {
				t.Fatalf("calls = %v, want %v", tt.sink.calls, tt.wantCalls)
			}
			for i := range tt.wantCalls {
				if tt.sink.calls[i] != tt.wantCalls[i] {
					t.Fatalf("calls = %v, want %v", tt.sink.calls, tt.wantCalls)
				}
			}
			if err != nil {
				return
			}
			if res.Inserted != tt.wantInserted || len(res.Failed) != tt.wantFailed {
				t.Errorf("result = %+v, want inserted=%d failed=%d", res, tt.wantInserted, tt.wantFailed)
			}
		})
	}
}

func TestWriter_NilSink(t *testing.T) {
	_, err := (&Writer{}).Write(context.Background(), table)
	if !errors.Is(err, core.ErrSinkUnavailable) {
		t.Errorf("err = %v, want ErrSinkUnavailable", err)
	}
}

func TestWriter_CheckBeforeClear(t *testing.T) {
	tests := []struct {
		name         string
		reject       map[string]bool
		wantCalls    []string
		wantInserted int
		wantFailed   int
		wantErr      bool
	}{
		{
			name:         "all accepted",
			wantCalls:    []string{"clear", "insert"},
			wantInserted: 2,
		},
		{
			name:         "rejected rows reported, rest written",
			reject:       map[string]bool{"A": true},
			wantCalls:    []string{"clear", "insert"},
			wantInserted: 1,
			wantFailed:   1,
		},
		{
			name:       "nothing writable keeps previous table",
			reject:     map[string]bool{"A": true, "B": true},
			wantCalls:  nil,
			wantFailed: 2,
			wantErr:    true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &checkingSink{reject: tt.reject}
			w := &Writer{Sink: sink, Logger: zerolog.Nop()}
			res, err := w.Write(context.Background(), table)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, core.ErrNothingWritten) {
				t.Errorf("err = %v, want ErrNothingWritten", err)
			}
			if len(sink.calls) != len(tt.wantCalls) {
				t.Fatalf("calls = %v, want %v", sink.calls, tt.wantCalls)
			}
			if res.Inserted != tt.wantInserted || len(res.Failed) != tt.wantFailed {
				t.Errorf("result = %+v, want inserted=%d failed=%d", res, tt.wantInserted, tt.wantFailed)
			}
			if len(sink.inserted) != tt.wantInserted {
				t.Errorf("sink got %d entries, want %d", len(sink.inserted), tt.wantInserted)
			}
		})
	}
}

func TestWriter_NothingInsertedIsAnError(t *testing.T) {
	sink := &fakeSink{failed: []core.FailedRow{
		{CourseID: "A", Reason: "duplicate key"},
		{CourseID: "B", Reason: "duplicate key"},
	}}
	res, err := (&Writer{Sink: sink, Logger: zerolog.Nop()}).Write(context.Background(), table)
	if !errors.Is(err, core.ErrNothingWritten) {
		t.Fatalf("err = %v, want ErrNothingWritten", err)
	}
	if res == nil || res.Inserted != 0 || len(res.Failed) != 2 {
		t.Errorf("result = %+v, want inserted=0 failed=2", res)
	}
}
