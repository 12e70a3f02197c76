package trace

// TraceSummary aggregates queue accounting from a SimulationTrace.
type TraceSummary struct {
	Inserts        int
	Departures     int
	Transitions    int
	InsertedBits   int64
	DepartedBits   int64
	FinalOccupancy int64 // occupancy of the last queue record; 0 when there is none
	MinOccupancy   int64 // lowest occupancy seen on any queue record
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{}
	if st == nil {
		return summary
	}
	seen := false
	for _, r := range st.Records {
		switch r.Kind {
		case KindInsert:
			summary.Inserts++
			summary.InsertedBits += r.Size
		case KindDeparture:
			summary.Departures++
			summary.DepartedBits += r.Size
		case KindTransition:
			summary.Transitions++
			continue
		}
		summary.FinalOccupancy = r.Occupancy
		if !seen || r.Occupancy < summary.MinOccupancy {
			summary.MinOccupancy = r.Occupancy
			seen = true
		}
	}
	return summary
}

// Balanced reports whether inserted minus departed bits equals the final occupancy.
func (s *TraceSummary) Balanced() bool {
	return s.InsertedBits-s.DepartedBits == s.FinalOccupancy
}
