package search

// minMaxNormalize returns a copy of hits with scores rescaled to [0,1].
// When every hit already shares the same score (including the
// single-hit and empty cases), all normalized scores are set to 1.0
// rather than dividing by zero.
func minMaxNormalize(hits []Hit) []Hit {
	if len(hits) == 0 {
		return nil
	}

	min, max := hits[0].Score, hits[0].Score
	for _, h := range hits[1:] {
		if h.Score < min {
			min = h.Score
		}
		if h.Score > max {
			max = h.Score
		}
	}

	out := make([]Hit, len(hits))
	spread := max - min
	for i, h := range hits {
		if spread == 0 {
			out[i] = Hit{Fragment: h.Fragment, Score: 1}
			continue
		}
		out[i] = Hit{Fragment: h.Fragment, Score: (h.Score - min) / spread}
	}
	return out
}
