// Package compat scores how well two players fit together.
package compat

import (
	"fmt"
	"math"

	"playmatch/pkg/domain"
)

const (
	styleWeight         = 35.0
	scheduleWeight      = 25.0
	communicationWeight = 20.0
	toleranceWeight     = 20.0
	tolerancePenalty    = 4.0

	ReasonIncomplete = "incomplete profiles"
	ReasonTolerance  = "similar tolerance level"
)

// Score compares a's profile against b's and returns a value in [0,100]
// rounded to one decimal, together with the reasons that contributed.
// Reasons are ordered style, schedule, communication, tolerance.
func Score(a, b domain.User) (float64, []string) {
	if a.GamingProfile == nil || b.GamingProfile == nil {
		return 0, []string{ReasonIncomplete}
	}
	pa, pb := a.GamingProfile, b.GamingProfile

	var total float64
	reasons := make([]string, 0, 4)

	if pa.Style == pb.Style {
		total += styleWeight
		reasons = append(reasons, fmt.Sprintf("both play %s", pa.Style))
	}

	overlap, slots := ScheduleOverlap(a.Availability, b.Availability)
	if slots > 0 {
		total += float64(overlap) / float64(slots) * scheduleWeight
	}
	if overlap > 0 {
		reasons = append(reasons, fmt.Sprintf("compatible schedules (%d slots)", overlap))
	}

	if pa.Communication == pb.Communication {
		total += communicationWeight
		reasons = append(reasons, fmt.Sprintf("communicate via %s", pa.Communication))
	}

	diff := pa.Tolerance - pb.Tolerance
	if diff < 0 {
		diff = -diff
	}
	total += math.Max(0, toleranceWeight-tolerancePenalty*float64(diff))
	if diff <= 1 {
		reasons = append(reasons, ReasonTolerance)
	}

	return Round1(total), reasons
}

// ScheduleOverlap counts shared slots over the days both schedules list.
// slots sums, per shared day, the larger of the two slot sets.
func ScheduleOverlap(a, b domain.AvailabilitySchedule) (overlap, slots int) {
	for day := range a {
		if _, ok := b[day]; !ok {
			continue
		}
		sa, sb := a.Slots(day), b.Slots(day)
		for slot := range sa {
			if _, ok := sb[slot]; ok {
				overlap++
			}
		}
		slots += max(len(sa), len(sb))
	}
	return overlap, slots
}

// Round1 rounds v to one decimal place, halves away from zero.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
