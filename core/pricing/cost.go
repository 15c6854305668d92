package pricing

import (
	"github.com/shopspring/decimal"

	"azure-costs/core/document"
	"azure-costs/internal/errors"
)

// Cost computes the cost of a single usage record. The record's meter must be
// present in the index, and at least one tier threshold must lie strictly
// below the billed quantity; either miss is an integrity error, never a zero
// fallback.
func Cost(index RateIndex, usage document.Document) (decimal.Decimal, error) {
	meterID, ok := usage.GetString("properties.meterId")
	if !ok {
		return decimal.Zero, errors.Integrity("usage record without properties.meterId").
			WithContext("usage", usage.String())
	}

	entry, ok := index[meterID]
	if !ok {
		return decimal.Zero, errors.Newf(errors.TypeIntegrity, "no rate card for meter %s", meterID)
	}

	q, ok := usage.GetNumber("properties.quantity")
	if !ok {
		return decimal.Zero, errors.Newf(errors.TypeIntegrity, "usage record for meter %s without quantity", meterID)
	}
	quantity := decimal.NewFromFloat(q)

	// Tiers are sorted ascending; the applicable tier is the last threshold
	// strictly below the quantity.
	var price decimal.Decimal
	found := false
	for _, tier := range entry.Tiers {
		if tier.Threshold.LessThan(quantity) {
			price = tier.UnitPrice
			found = true
		} else {
			break
		}
	}
	if !found {
		return decimal.Zero, errors.Newf(errors.TypeIntegrity,
			"quantity %s for meter %s is below every tier threshold", quantity, meterID)
	}

	return quantity.Mul(price), nil
}

// ApplyCosts returns usage records enriched with a top-level cost field.
// Records are not mutated; any lookup failure aborts the pass.
func ApplyCosts(index RateIndex, usages []document.Document) ([]document.Document, error) {
	out := make([]document.Document, len(usages))
	for i, usage := range usages {
		cost, err := Cost(index, usage)
		if err != nil {
			return nil, err
		}
		f, _ := cost.Float64()
		enriched, err := usage.Set("cost", f)
		if err != nil {
			return nil, errors.Internal("setting cost on usage record", err)
		}
		out[i] = enriched
	}
	return out, nil
}
