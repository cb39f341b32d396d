package retrieval

import "math"

// Diversify selects up to k candidates by greedy Maximal Marginal Relevance:
// each round picks the unchosen candidate maximizing
//
//	lambda*relevance - (1-lambda)*maxSimilarityToChosen
//
// The redundancy term is 0 for the first pick, so with lambda=1 this reduces
// to a pure relevance-sorted top-k. Ties keep the first-encountered
// candidate, which makes the output deterministic for a fixed input order.
func Diversify(candidates []*Candidate, k int, lambda float32) []*Candidate {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}
	if k > len(candidates) {
		k = len(candidates)
	}
	if lambda < 0 {
		lambda = 0
	} else if lambda > 1 {
		lambda = 1
	}

	chosen := make([]*Candidate, 0, k)
	remaining := make([]*Candidate, len(candidates))
	copy(remaining, candidates)

	for len(chosen) < k && len(remaining) > 0 {
		bestIdx := -1
		bestScore := float32(-math.MaxFloat32)

		for i, cand := range remaining {
			var redundancy float32
			for _, sel := range chosen {
				sim := Cosine(cand.Item.Vector, sel.Item.Vector)
				if sim > redundancy {
					redundancy = sim
				}
			}

			score := lambda*cand.Relevance - (1-lambda)*redundancy
			if score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}

		if bestIdx < 0 {
			break
		}
		chosen = append(chosen, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	return chosen
}
