package writer

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/rushteam/coursesim/core"
	"github.com/rushteam/coursesim/matrix"
	"github.com/rushteam/coursesim/similarity"
)

func simOf(t *testing.T, ps ...[2]string) *similarity.Matrix {
	t.Helper()
	pairs := make([]core.Enrollment, 0, len(ps))
	for _, p := range ps {
		pairs = append(pairs, core.Enrollment{LearnerID: p[0], CourseID: p[1]})
	}
	sim, err := (&similarity.Engine{}).Compute(context.Background(), matrix.Build(pairs))
	if err != nil {
		t.Fatal(err)
	}
	return sim
}

func TestSelect_Scenario(t *testing.T) {
	sim := simOf(t,
		[2]string{"u1", "A"}, [2]string{"u1", "B"},
		[2]string{"u2", "A"}, [2]string{"u2", "B"}, [2]string{"u2", "C"},
		[2]string{"u3", "C"},
	)
	entries := Select(sim, 5)

	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}
	a := entries[0]
	if a.CourseID != "A" {
		t.Fatalf("first entry = %s, want A", a.CourseID)
	}
	if a.Recommendations[0].CourseID != "B" || a.Recommendations[0].Score != 1.0 {
		t.Errorf("top-1 for A = %+v, want B/1.0", a.Recommendations[0])
	}
	if len(a.Recommendations) != 2 || a.Recommendations[1].CourseID != "C" ||
		math.Abs(a.Recommendations[1].Score-0.5) > 1e-12 {
		t.Errorf("A recommendations = %+v", a.Recommendations)
	}
}

func TestSelect_IsolatedCourseOmitted(t *testing.T) {
	sim := simOf(t,
		[2]string{"u1", "A"}, [2]string{"u1", "B"},
		[2]string{"u2", "Z"},
	)
	for _, e := range Select(sim, 5) {
		if e.CourseID == "Z" {
			t.Errorf("isolated course Z should have no entry, got %+v", e)
		}
		for _, r := range e.Recommendations {
			if r.CourseID == "Z" {
				t.Errorf("Z recommended for %s", e.CourseID)
			}
		}
	}
}

func TestSelect_Invariants(t *testing.T) {
	// 一个学员选了全部课程：所有课程两两相似
	var ps [][2]string
	for i := 0; i < 12; i++ {
		ps = append(ps, [2]string{"all", fmt.Sprintf("c%02d", i)})
		if i%3 == 0 {
			ps = append(ps, [2]string{fmt.Sprintf("u%d", i), fmt.Sprintf("c%02d", i)})
		}
	}
	sim := simOf(t, ps...)

	for _, k := range []int{1, 3, 5, 20} {
		entries := Select(sim, k)
		for i, e := range entries {
			if i > 0 && entries[i-1].CourseID >= e.CourseID {
				t.Errorf("k=%d: entries not sorted by course id", k)
			}
			if len(e.Recommendations) == 0 || len(e.Recommendations) > k {
				t.Errorf("k=%d: %s has %d recommendations", k, e.CourseID, len(e.Recommendations))
			}
			for j, r := range e.Recommendations {
				if r.CourseID == e.CourseID {
					t.Errorf("k=%d: %s recommends itself", k, e.CourseID)
				}
				if !(r.Score > 0) {
					t.Errorf("k=%d: %s -> %s has non-positive score %v", k, e.CourseID, r.CourseID, r.Score)
				}
				if j > 0 && ranksBefore(r, e.Recommendations[j-1]) {
					t.Errorf("k=%d: %s recommendations out of order at %d", k, e.CourseID, j)
				}
			}
		}
	}
}

func TestSelect_DefaultK(t *testing.T) {
	var ps [][2]string
	for i := 0; i < 10; i++ {
		ps = append(ps, [2]string{"u", fmt.Sprintf("c%d", i)})
	}
	for _, e := range Select(simOf(t, ps...), 0) {
		if len(e.Recommendations) != core.DefaultTopK {
			t.Errorf("%s: %d recommendations, want %d", e.CourseID, len(e.Recommendations), core.DefaultTopK)
		}
	}
}

func TestRanksBefore(t *testing.T) {
	tests := []struct {
		a, b core.Recommendation
		want bool
	}{
		{core.Recommendation{CourseID: "x", Score: 0.9}, core.Recommendation{CourseID: "a", Score: 0.5}, true},
		{core.Recommendation{CourseID: "a", Score: 0.5}, core.Recommendation{CourseID: "b", Score: 0.5}, true},
		{core.Recommendation{CourseID: "b", Score: 0.5}, core.Recommendation{CourseID: "a", Score: 0.5}, false},
		{core.Recommendation{CourseID: "a", Score: 0.1}, core.Recommendation{CourseID: "b", Score: 0.2}, false},
	}
	for _, tt := range tests {
		if got := ranksBefore(tt.a, tt.b); got != tt.want {
			t.Errorf("ranksBefore(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
