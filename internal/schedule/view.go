package schedule

// Member is the projection-relevant part of a room membership.
type Member struct {
	ID           string
	Name         string
	IsOwner      bool
	IsAbsent     bool
	AbsentReason string
}

// View is the personalized rendering of a room grid for one viewer.
type View struct {
	OwnSchedule    [][]bool
	OthersSchedule [][][]int
	OthersNames    []string
	// AbsentReasons lists the viewer first, then every other member in index
	// order. A nil entry means that member is not absent.
	AbsentReasons []*string
	UserName      string
	IsOwner       bool
	IsMember      bool
}

// Sanitize assigns every member other than viewer a dense index in join order
// and rewrites the identifiers left in others to those indices. Identifiers
// that match no member are dropped.
func Sanitize(others Grid, members []Member, viewer string) (names []string, indexed [][][]int) {
	names = make([]string, 0, len(members))
	indices := make(map[string]int, len(members))
	for _, m := range members {
		if m.ID == viewer {
			continue
		}
		if _, seen := indices[m.ID]; seen {
			continue
		}
		indices[m.ID] = len(names)
		names = append(names, m.Name)
	}

	indexed = make([][][]int, len(others))
	for d, row := range others {
		indexed[d] = make([][]int, len(row))
		for s, cell := range row {
			out := make([]int, 0, len(cell))
			for _, id := range cell {
				if idx, ok := indices[id]; ok {
					out = append(out, idx)
				}
			}
			indexed[d][s] = out
		}
	}
	return names, indexed
}

// Project computes the complete view of g for viewer. A viewer who is not a
// member still gets a view: an all-false own schedule and every member listed
// as another participant.
func Project(g Grid, members []Member, viewer string) View {
	own, others := Split(g, viewer)
	names, indexed := Sanitize(others, members, viewer)

	view := View{
		OwnSchedule:    own,
		OthersSchedule: indexed,
		OthersNames:    names,
		AbsentReasons:  make([]*string, 0, len(names)+1),
	}

	var self *Member
	for i := range members {
		if members[i].ID == viewer {
			self = &members[i]
			break
		}
	}
	if self != nil {
		view.IsMember = true
		view.UserName = self.Name
		view.IsOwner = self.IsOwner
	}
	view.AbsentReasons = append(view.AbsentReasons, absentReason(self))

	seen := make(map[string]struct{}, len(members))
	for i := range members {
		m := &members[i]
		if m.ID == viewer {
			continue
		}
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		view.AbsentReasons = append(view.AbsentReasons, absentReason(m))
	}
	return view
}

// OthersNames lists the display names of every member except viewer, in the
// same order Sanitize assigns indices.
func OthersNames(members []Member, viewer string) []string {
	names, _ := Sanitize(nil, members, viewer)
	return names
}

func absentReason(m *Member) *string {
	if m == nil || !m.IsAbsent {
		return nil
	}
	reason := m.AbsentReason
	return &reason
}
