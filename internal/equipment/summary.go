package equipment

import "sort"

// Summarize computes count, per-parameter averages and the type distribution
// of records.
//
// Averages only consider present values and are 0 when a parameter has no
// present value at all. Present values are summed in ascending order so the
// result depends only on the multiset of records, not their order.
//
// The type distribution is sorted by descending count. Equal counts keep the
// order in which the type was first seen, so that part of the result is
// order-sensitive.
func Summarize(records []Record) Summary {
	var flows, pressures, temps []float64
	counts := make(map[string]int)
	var order []string

	for _, r := range records {
		if r.Flowrate != nil {
			flows = append(flows, *r.Flowrate)
		}
		if r.Pressure != nil {
			pressures = append(pressures, *r.Pressure)
		}
		if r.Temperature != nil {
			temps = append(temps, *r.Temperature)
		}

		if _, seen := counts[r.Type]; !seen {
			order = append(order, r.Type)
		}
		counts[r.Type]++
	}

	dist := make([]TypeCount, len(order))
	for i, t := range order {
		dist[i] = TypeCount{Type: t, Count: counts[t]}
	}
	sort.SliceStable(dist, func(i, j int) bool {
		return dist[i].Count > dist[j].Count
	})

	return Summary{
		TotalCount:       len(records),
		AvgFlowrate:      mean(flows),
		AvgPressure:      mean(pressures),
		AvgTemperature:   mean(temps),
		TypeDistribution: dist,
	}
}

// mean returns the arithmetic mean of values, or 0 for an empty slice.
// values is sorted in place.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sort.Float64s(values)

	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
