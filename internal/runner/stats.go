package runner

import "math"

// Summary describes the total scores of one model's run.
type Summary struct {
	Count    int     `json:"count"`
	Failed   int     `json:"failed"`
	Mean     float64 `json:"mean"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Variance float64 `json:"variance"`
	StdDev   float64 `json:"std_dev"`
}

// summarize computes population statistics over scores. An empty input
// yields a zero Summary.
func summarize(scores []float64, failed int) Summary {
	s := Summary{Count: len(scores), Failed: failed}
	if len(scores) == 0 {
		return s
	}

	s.Min, s.Max = scores[0], scores[0]
	var sum float64
	for _, v := range scores {
		sum += v
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	s.Mean = sum / float64(len(scores))

	var sq float64
	for _, v := range scores {
		d := v - s.Mean
		sq += d * d
	}
	s.Variance = sq / float64(len(scores))
	s.StdDev = math.Sqrt(s.Variance)
	return s
}
