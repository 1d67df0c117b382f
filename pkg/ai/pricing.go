package ai

import "github.com/oilslick/catops/models"

// Pricing is the per-million-unit rate of one backend.
type Pricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// PriceTable maps backend names to rates. Unknown backends cost zero;
// the ledger still records their unit counts.
type PriceTable map[string]Pricing

// DefaultPrices returns published list rates for the built-in backends.
func DefaultPrices() PriceTable {
	return PriceTable{
		"gemini": {InputPerMillion: 0.10, OutputPerMillion: 0.40},
		"claude": {InputPerMillion: 3.00, OutputPerMillion: 15.00},
	}
}

// TableFromConfig overlays configured rates on the defaults.
func TableFromConfig(cfg map[string]models.BackendPricing) PriceTable {
	table := DefaultPrices()
	for name, p := range cfg {
		table[name] = Pricing{
			InputPerMillion:  p.InputPerMillion,
			OutputPerMillion: p.OutputPerMillion,
		}
	}
	return table
}

// Cost prices one call.
func (t PriceTable) Cost(backend string, inputUnits, outputUnits int64) float64 {
	p, ok := t[backend]
	if !ok {
		return 0
	}
	return float64(inputUnits)/1e6*p.InputPerMillion + float64(outputUnits)/1e6*p.OutputPerMillion
}
