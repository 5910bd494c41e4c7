package lineage

// DetectExchanges pairs every input of script i with every output of an
// earlier script carrying the same hash. Pairs are not deduplicated: a hash
// produced by several earlier scripts yields one pair per producer.
func DetectExchanges(c *Collection) []ExchangePair {
	if len(c.Scripts) <= 1 {
		return nil
	}
	idx := indexOutputs(c.Outputs)
	var pairs []ExchangePair
	for consumer := 2; consumer <= len(c.Scripts); consumer++ {
		for _, in := range c.Inputs {
			if in.Script != consumer {
				continue
			}
			for _, oi := range idx[hashKey(in.Hash)] {
				out := c.Outputs[oi]
				if out.Script >= consumer {
					continue
				}
				pairs = append(pairs, ExchangePair{
					Producer: out.Script,
					Consumer: consumer,
					Output:   out,
					Input:    in,
					Renamed:  out.DisplayName() != in.DisplayName(),
				})
			}
		}
	}
	return pairs
}
