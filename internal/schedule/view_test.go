package schedule

import (
	"reflect"
	"testing"
)

func TestSanitize(t *testing.T) {
	members := []Member{
		{ID: "a", Name: "Alice"},
		{ID: "b", Name: "Bob"},
		{ID: "c", Name: "Carol"},
	}

	t.Run("assigns dense indices in join order excluding the viewer", func(t *testing.T) {
		_, others := Split(sampleGrid(), "b")
		names, indexed := Sanitize(others, members, "b")
		if !reflect.DeepEqual(names, []string{"Alice", "Carol"}) {
			t.Fatalf("unexpected names: %v", names)
		}
		want := [][][]int{
			{{0}, {}, {1}},
			{{}, {0, 1}, {0}},
		}
		if !reflect.DeepEqual(indexed, want) {
			t.Fatalf("unexpected indices: %v", indexed)
		}
	})

	t.Run("is stable across repeated projections", func(t *testing.T) {
		_, others := Split(sampleGrid(), "a")
		names1, first := Sanitize(others, members, "a")
		names2, second := Sanitize(others, members, "a")
		if !reflect.DeepEqual(names1, names2) || !reflect.DeepEqual(first, second) {
			t.Fatalf("expected identical projections, got %v/%v and %v/%v", names1, first, names2, second)
		}
	})

	t.Run("drops identifiers without a membership", func(t *testing.T) {
		others := Grid{{{"ghost", "c"}}}
		_, indexed := Sanitize(others, members, "a")
		if !reflect.DeepEqual(indexed, [][][]int{{{1}}}) {
			t.Fatalf("expected ghost to be dropped, got %v", indexed)
		}
	})
}

func TestProject(t *testing.T) {
	t.Run("two participants editing a 2x3 room", func(t *testing.T) {
		aMarks := [][]bool{{true, false, true}, {false, true, false}}
		bMarks := [][]bool{{true, true, false}, {false, false, true}}

		grid := Seed("A", aMarks)
		grid, err := Merge(grid, "B", bMarks)
		if err != nil {
			t.Fatalf("Merge returned error: %v", err)
		}
		members := []Member{
			{ID: "A", Name: "Alice", IsOwner: true},
			{ID: "B", Name: "Bob"},
		}

		viewA := Project(grid, members, "A")
		if !reflect.DeepEqual(viewA.OwnSchedule, aMarks) {
			t.Fatalf("expected A's own schedule %v, got %v", aMarks, viewA.OwnSchedule)
		}
		if !reflect.DeepEqual(viewA.OthersNames, []string{"Bob"}) {
			t.Fatalf("expected A to see only Bob, got %v", viewA.OthersNames)
		}
		wantOthers := [][][]int{{{0}, {0}, {}}, {{}, {}, {0}}}
		if !reflect.DeepEqual(viewA.OthersSchedule, wantOthers) {
			t.Fatalf("unexpected others schedule for A: %v", viewA.OthersSchedule)
		}
		if !viewA.IsOwner {
			t.Fatalf("expected A to be owner")
		}

		viewB := Project(grid, members, "B")
		if !reflect.DeepEqual(viewB.OwnSchedule, bMarks) {
			t.Fatalf("expected B's matrix to round-trip, got %v", viewB.OwnSchedule)
		}
		if viewB.IsOwner {
			t.Fatalf("expected B not to be owner")
		}
	})

	t.Run("non-member viewer sees everyone as others", func(t *testing.T) {
		members := []Member{{ID: "a", Name: "Alice"}, {ID: "b", Name: "Bob", IsAbsent: true, AbsentReason: "away"}}
		view := Project(sampleGrid(), members, "visitor")

		if view.IsMember || view.IsOwner || view.UserName != "" {
			t.Fatalf("expected member defaults, got %+v", view)
		}
		for _, row := range view.OwnSchedule {
			for _, cell := range row {
				if cell {
					t.Fatalf("expected zero own schedule, got %v", view.OwnSchedule)
				}
			}
		}
		if !reflect.DeepEqual(view.OthersNames, []string{"Alice", "Bob"}) {
			t.Fatalf("unexpected names: %v", view.OthersNames)
		}
		if len(view.AbsentReasons) != 3 || view.AbsentReasons[0] != nil || view.AbsentReasons[1] != nil {
			t.Fatalf("unexpected absent reasons: %v", view.AbsentReasons)
		}
		if view.AbsentReasons[2] == nil || *view.AbsentReasons[2] != "away" {
			t.Fatalf("expected Bob's reason, got %v", view.AbsentReasons[2])
		}
	})

	t.Run("absent reasons list the viewer first", func(t *testing.T) {
		members := []Member{
			{ID: "a", Name: "Alice", IsOwner: true},
			{ID: "b", Name: "Bob", IsAbsent: true, AbsentReason: "holiday"},
		}
		view := Project(sampleGrid(), members, "b")
		if view.AbsentReasons[0] == nil || *view.AbsentReasons[0] != "holiday" {
			t.Fatalf("expected own reason first, got %v", view.AbsentReasons)
		}
		if view.AbsentReasons[1] != nil {
			t.Fatalf("expected Alice not absent, got %v", *view.AbsentReasons[1])
		}
	})
}

func TestOthersNames(t *testing.T) {
	members := []Member{{ID: "a", Name: "Alice"}, {ID: "b", Name: "Bob"}, {ID: "c", Name: "Carol"}}
	if got := OthersNames(members, "b"); !reflect.DeepEqual(got, []string{"Alice", "Carol"}) {
		t.Fatalf("unexpected names: %v", got)
	}
}
