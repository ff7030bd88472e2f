package service

import (
	"context"
	"fmt"
	"net/url"

	"auto_trader/internal/errs"
	"auto_trader/internal/helper"
	"auto_trader/internal/models"
)

// ListContracts — все живые USDT-контракты с метаданными для сайзинга.
func (c *Client) ListContracts(ctx context.Context) ([]models.ContractSpec, error) {
	var raw []contractResp
	if err := c.getJSON(ctx, "/futures/usdt/contracts", "", false, &raw); err != nil {
		return nil, fmt.Errorf("ListContracts: %w", err)
	}

	specs := make([]models.ContractSpec, 0, len(raw))
	for _, r := range raw {
		if r.InDelisting {
			continue
		}
		specs = append(specs, r.toSpec())
	}
	return specs, nil
}

// GetContract — метаданные одного контракта (для открытия позиции).
func (c *Client) GetContract(ctx context.Context, symbol string) (models.ContractSpec, error) {
	contract := helper.Contract(symbol)
	var raw contractResp
	err := c.getJSON(ctx, "/futures/usdt/contracts/"+url.PathEscape(contract), "", false, &raw)
	if err != nil {
		return models.ContractSpec{}, fmt.Errorf("GetContract %s: %w", contract, err)
	}

	spec := raw.toSpec()
	if spec.Multiplier <= 0 || spec.LastPrice <= 0 {
		return models.ContractSpec{}, errs.DataIntegrityf(
			"GetContract %s: bad meta mult=%.10f last=%.10f", contract, spec.Multiplier, spec.LastPrice)
	}
	return spec, nil
}
