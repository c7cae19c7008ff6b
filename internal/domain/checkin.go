package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MuscleGroup is the training focus a member tags their check-in with.
type MuscleGroup string

// The fixed set of muscle groups the dashboard aggregates over.
const (
	MuscleGroupChest     MuscleGroup = "Chest"
	MuscleGroupBack      MuscleGroup = "Back"
	MuscleGroupLegs      MuscleGroup = "Legs"
	MuscleGroupArms      MuscleGroup = "Arms"
	MuscleGroupShoulders MuscleGroup = "Shoulders"
	MuscleGroupCore      MuscleGroup = "Core"
)

// MuscleGroups returns the known groups in display order.
func MuscleGroups() []MuscleGroup {
	return []MuscleGroup{
		MuscleGroupChest,
		MuscleGroupBack,
		MuscleGroupLegs,
		MuscleGroupArms,
		MuscleGroupShoulders,
		MuscleGroupCore,
	}
}

// IsValid reports whether g is one of the known muscle groups.
func (g MuscleGroup) IsValid() bool {
	switch g {
	case MuscleGroupChest, MuscleGroupBack, MuscleGroupLegs,
		MuscleGroupArms, MuscleGroupShoulders, MuscleGroupCore:
		return true
	}
	return false
}

// CheckIn is a member's live presence record. At most one exists per subject;
// the record existing at all means "this member is in the gym right now".
// Only the owning subject ever writes its own record, so last-write-wins on
// the key is safe.
type CheckIn struct {
	SubjectID   string      `bson:"_id" json:"subjectId"`
	MuscleGroup MuscleGroup `bson:"muscleGroup" json:"muscleGroup"`
	ObservedAt  time.Time   `bson:"observedAt" json:"observedAt"`
}

// HistoryEntry is an immutable record of a past check-in event. Entries are
// only ever appended (on entering the gym) and later evicted by the retention
// sweeper; they are never updated in place.
type HistoryEntry struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SubjectID   string             `bson:"subjectId" json:"subjectId"`
	MuscleGroup MuscleGroup        `bson:"muscleGroup" json:"muscleGroup"`
	ObservedAt  time.Time          `bson:"observedAt" json:"observedAt"`
}

// OccupancyAggregate is the derived live occupancy summary. It is never
// persisted; it is always recomputed from the full check-in set.
type OccupancyAggregate struct {
	TotalPresent   int                 `json:"totalPresent"`
	PerMuscleGroup map[MuscleGroup]int `json:"perMuscleGroup"`
}

// AggregateCheckIns recomputes the occupancy summary from scratch. Every
// known muscle group appears in the result map, defaulting to zero. Records
// carrying an unknown group still count toward TotalPresent but are excluded
// from the per-group breakdown, so sum(PerMuscleGroup) <= TotalPresent.
func AggregateCheckIns(checkIns []CheckIn) OccupancyAggregate {
	agg := OccupancyAggregate{
		PerMuscleGroup: make(map[MuscleGroup]int, len(MuscleGroups())),
	}
	for _, g := range MuscleGroups() {
		agg.PerMuscleGroup[g] = 0
	}
	for _, ci := range checkIns {
		agg.TotalPresent++
		if ci.MuscleGroup.IsValid() {
			agg.PerMuscleGroup[ci.MuscleGroup]++
		}
	}
	return agg
}
