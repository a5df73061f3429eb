package domain

// Conflicts reports whether two distinct campaigns compete for the same
// placement during intersecting windows. Callers decide which campaigns are
// active or under consideration for activation.
func Conflicts(a, b Campaign) bool {
	if a.ID == b.ID || a.Placement != b.Placement {
		return false
	}
	return a.Schedule.Window().Overlaps(b.Schedule.Window())
}

// ConflictPair names two campaigns whose windows collide at a placement.
type ConflictPair struct {
	Placement Placement `json:"placement"`
	First     int64     `json:"first"`
	Second    int64     `json:"second"`
}

// FindConflicts returns every conflicting pair among campaigns, each pair
// reported once with the lower id first.
func FindConflicts(campaigns []Campaign) []ConflictPair {
	var pairs []ConflictPair
	for i := range campaigns {
		for j := i + 1; j < len(campaigns); j++ {
			a, b := campaigns[i], campaigns[j]
			if !Conflicts(a, b) {
				continue
			}
			if b.ID < a.ID {
				a, b = b, a
			}
			pairs = append(pairs, ConflictPair{Placement: a.Placement, First: a.ID, Second: b.ID})
		}
	}
	return pairs
}
