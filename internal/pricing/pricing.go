// Package pricing computes what a table reservation costs.
//
// The canonical charge is table + bottles + mixers, plus an 18% gratuity on bottles only,
// plus the processor fee of 2.9% + $0.30 on everything before it. The total is rounded to cents.
// LegacyServiceFeeEstimate is kept for screens that still show the old flat 10% service fee;
// it is never what a customer is charged.
package pricing

import (
	"github.com/shopspring/decimal"
	"github.com/trebla915/web1111-sub002/internal/domain"
)

var (
	BottleGratuityRate    = decimal.RequireFromString("0.18")
	ProcessorFeeRate      = decimal.RequireFromString("0.029")
	ProcessorFeeFixed     = decimal.RequireFromString("0.30")
	LegacyServiceFeeRate  = decimal.RequireFromString("0.10")
	currencyDecimalPlaces = int32(2)
)

type CostBreakdown struct {
	TablePrice           decimal.Decimal
	BottlesCost          decimal.Decimal
	MixersCost           decimal.Decimal
	Subtotal             decimal.Decimal
	BottleGratuity       decimal.Decimal
	SubtotalWithGratuity decimal.Decimal
	ProcessorFee         decimal.Decimal
	Total                decimal.Decimal
}

func BottlesCost(items []domain.LineItem) decimal.Decimal {
	return sumPrices(items)
}

// MixersCost has the same shape as BottlesCost; mixers never attract gratuity.
func MixersCost(items []domain.LineItem) decimal.Decimal {
	return sumPrices(items)
}

func sumPrices(items []domain.LineItem) decimal.Decimal {
	total := decimal.Zero

	for _, item := range items {
		total = total.Add(item.Price)
	}

	return total
}

func BottleGratuity(bottlesCost decimal.Decimal) decimal.Decimal {
	return bottlesCost.Mul(BottleGratuityRate)
}

func ProcessorFee(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(ProcessorFeeRate).Add(ProcessorFeeFixed)
}

func CalculateBreakdown(tablePrice decimal.Decimal, bottles, mixers []domain.LineItem) CostBreakdown {
	bottlesCost := BottlesCost(bottles)
	mixersCost := MixersCost(mixers)
	subtotal := tablePrice.Add(bottlesCost).Add(mixersCost)
	gratuity := BottleGratuity(bottlesCost)
	withGratuity := subtotal.Add(gratuity)
	fee := ProcessorFee(withGratuity)

	return CostBreakdown{
		TablePrice:           tablePrice,
		BottlesCost:          bottlesCost,
		MixersCost:           mixersCost,
		Subtotal:             subtotal,
		BottleGratuity:       gratuity,
		SubtotalWithGratuity: withGratuity,
		ProcessorFee:         fee,
		Total:                withGratuity.Add(fee).Round(currencyDecimalPlaces),
	}
}

func TotalCharge(tablePrice decimal.Decimal, bottles, mixers []domain.LineItem) decimal.Decimal {
	return CalculateBreakdown(tablePrice, bottles, mixers).Total
}

// LegacyServiceFeeEstimate is display-only.
func LegacyServiceFeeEstimate(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(LegacyServiceFeeRate).Round(currencyDecimalPlaces)
}
