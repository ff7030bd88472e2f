package service

import (
	"github.com/shopspring/decimal"

	"auto_trader/internal/errs"
	"auto_trader/internal/models"
)

// orderPlan — сколько контрактов открываем и какими батчами.
type orderPlan struct {
	Total   int64
	Batches []int64
	// true, если пришлось поднять размер до биржевого минимума —
	// фактический риск больше запрошенного, логируем отдельно.
	RaisedToMin bool
}

// planOrder: notional = capital*leverage, стоимость контракта = multiplier*last,
// контрактов = ceil(notional/unit), минимум 1; затем подгонка под min/max
// размера ордера. Деньги считаем в decimal — как в проде, без float-сюрпризов.
func planOrder(capital decimal.Decimal, leverage int, spec models.ContractSpec) (orderPlan, error) {
	if capital.Sign() <= 0 {
		return orderPlan{}, errs.Rejectionf("planOrder %s: capital <= 0", spec.Name)
	}
	if leverage <= 0 {
		return orderPlan{}, errs.Rejectionf("planOrder %s: leverage <= 0", spec.Name)
	}
	if spec.Multiplier <= 0 || spec.LastPrice <= 0 {
		return orderPlan{}, errs.DataIntegrityf(
			"planOrder %s: bad contract meta mult=%.10f last=%.10f", spec.Name, spec.Multiplier, spec.LastPrice)
	}

	notional := capital.Mul(decimal.NewFromInt(int64(leverage)))
	unit := decimal.NewFromFloat(spec.Multiplier).Mul(decimal.NewFromFloat(spec.LastPrice))

	total := notional.DivRound(unit, 9).Ceil().IntPart()
	if total < 1 {
		total = 1
	}

	raised := false
	if spec.OrderSizeMin > 0 && total < spec.OrderSizeMin {
		total = spec.OrderSizeMin
		raised = true
	}

	plan := orderPlan{Total: total, RaisedToMin: raised}

	maxSz := spec.OrderSizeMax
	if maxSz <= 0 {
		plan.Batches = []int64{total}
		return plan, nil
	}
	for rest := total; rest > 0; rest -= maxSz {
		b := rest
		if b > maxSz {
			b = maxSz
		}
		plan.Batches = append(plan.Batches, b)
	}
	return plan, nil
}
