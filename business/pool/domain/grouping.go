package domain

// GroupByPair rebuilds the pair-keyed grouping of the latest snapshots,
// fresh every poll cycle per the design's no-retained-history rule.
func GroupByPair(snapshots []*PoolSnapshot) []*PricePair {
	order := make([]PairKey, 0)
	byPair := make(map[PairKey][]*PoolSnapshot)

	for _, s := range snapshots {
		key := s.Pool.Pair()
		if _, ok := byPair[key]; !ok {
			order = append(order, key)
		}
		byPair[key] = append(byPair[key], s)
	}

	pairs := make([]*PricePair, 0, len(order))
	for _, key := range order {
		pairs = append(pairs, &PricePair{Pair: key, Snapshots: byPair[key]})
	}
	return pairs
}
