// Package pricing computes the monetary cost of usage records against tiered
// rate cards. The applicable unit price for a record is taken from the highest
// tier threshold strictly below the billed quantity.
package pricing

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"azure-costs/core/document"
	"azure-costs/internal/errors"
)

// Tier is one threshold/price step of a rate card.
type Tier struct {
	Threshold decimal.Decimal
	UnitPrice decimal.Decimal
}

// RateEntry is the tiered rate card for a single meter.
type RateEntry struct {
	MeterID string

	// Tiers sorted by ascending threshold.
	Tiers []Tier
}

// RateIndex maps meter ids to their rate cards for O(1) lookup.
type RateIndex map[string]RateEntry

// NewRateIndex builds a rate index from raw meter documents. Each document
// must carry a MeterId and a non-empty MeterRates mapping whose keys parse as
// decimal thresholds. A duplicate meter id or an unparseable threshold is a
// data integrity error.
func NewRateIndex(rates []document.Document) (RateIndex, error) {
	index := make(RateIndex, len(rates))

	for _, rate := range rates {
		meterID, ok := rate.GetString("MeterId")
		if !ok {
			return nil, errors.Integrity("rate entry without MeterId").
				WithContext("rate", rate.String())
		}
		if _, exists := index[meterID]; exists {
			return nil, errors.Newf(errors.TypeIntegrity, "duplicate meter id in rate card: %s", meterID)
		}

		meterRates := rate.Get("MeterRates")
		if !meterRates.Exists() || !meterRates.IsObject() {
			return nil, errors.Newf(errors.TypeIntegrity, "meter %s has no MeterRates", meterID)
		}

		entry := RateEntry{MeterID: meterID}
		var parseErr error
		meterRates.ForEach(func(key, value gjson.Result) bool {
			threshold, err := decimal.NewFromString(key.String())
			if err != nil {
				parseErr = errors.Newf(errors.TypeIntegrity,
					"meter %s has unparseable tier threshold %q", meterID, key.String())
				return false
			}
			price, err := decimal.NewFromString(value.Raw)
			if err != nil {
				parseErr = errors.Newf(errors.TypeIntegrity,
					"meter %s has non-numeric unit price %q at tier %s", meterID, value.Raw, key.String())
				return false
			}
			entry.Tiers = append(entry.Tiers, Tier{
				Threshold: threshold,
				UnitPrice: price,
			})
			return true
		})
		if parseErr != nil {
			return nil, parseErr
		}
		if len(entry.Tiers) == 0 {
			return nil, errors.Newf(errors.TypeIntegrity, "meter %s has an empty tier set", meterID)
		}

		sort.Slice(entry.Tiers, func(i, j int) bool {
			return entry.Tiers[i].Threshold.LessThan(entry.Tiers[j].Threshold)
		})
		index[meterID] = entry
	}

	return index, nil
}
