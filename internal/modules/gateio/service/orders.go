package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"

	"auto_trader/internal/errs"
	"auto_trader/internal/helper"
	"auto_trader/internal/models"
	"auto_trader/pkg/logger"
)

// SetLeverage выставляет плечо на контракт перед открытием.
func (c *Client) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	contract := helper.Contract(symbol)
	q := url.Values{}
	q.Set("leverage", strconv.Itoa(leverage))

	req, err := c.newRequest(ctx, http.MethodPost,
		"/futures/usdt/positions/"+url.PathEscape(contract)+"/leverage", q.Encode(), "", true)
	if err != nil {
		return fmt.Errorf("SetLeverage %s: %w", contract, err)
	}
	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("SetLeverage %s: %w", contract, err)
	}
	return nil
}

// OpenPosition открывает позицию на notional = capital*leverage рыночными
// IOC-ордерами, батчами не больше order_size_max. Любой батч не дошёл до
// finished — вся попытка провалена, компенсаций не делаем: оператор
// разрулит через close, который всегда читает живой размер.
func (c *Client) OpenPosition(
	ctx context.Context,
	symbol string,
	side models.PositionSide,
	capital decimal.Decimal,
	leverage int,
) (bool, error) {
	if side != models.PosSideLong && side != models.PosSideShort {
		return false, errs.Rejectionf("OpenPosition %s: bad side %q", symbol, side)
	}

	spec, err := c.GetContract(ctx, symbol)
	if err != nil {
		return false, err
	}

	plan, err := planOrder(capital, leverage, spec)
	if err != nil {
		return false, err
	}
	if plan.RaisedToMin {
		logger.Warn("[ORDER] %s: размер поднят до биржевого минимума %d — риск выше запрошенного",
			spec.Name, plan.Total)
	}

	if err := c.SetLeverage(ctx, symbol, leverage); err != nil {
		return false, err
	}

	sign := int64(1)
	if side == models.PosSideShort {
		sign = -1
	}

	defer c.InvalidatePositions()

	for i, b := range plan.Batches {
		if err := c.createOrder(ctx, spec.Name, sign*b, false); err != nil {
			// частичное открытие возможно — дальше не шлём
			return false, fmt.Errorf("OpenPosition %s batch %d/%d: %w",
				spec.Name, i+1, len(plan.Batches), err)
		}
	}

	logger.Info("[ORDER] открыто %s %s: %d контрактов в %d батчах (capital=%s lev=%d)",
		spec.Name, side, plan.Total, len(plan.Batches), capital.String(), leverage)
	return true, nil
}

// ClosePosition закрывает живую позицию по symbol целиком: читает
// размер принудительно (мимо кеша) и шлёт один встречный IOC-ордер.
// Нет позиции — false без ошибки.
func (c *Client) ClosePosition(ctx context.Context, symbol string) (bool, error) {
	positions, err := c.Positions(ctx, true)
	if err != nil {
		return false, err
	}

	var size int64
	contract := helper.Contract(symbol)
	for _, p := range positions {
		if p.Contract == contract {
			size = p.Size
			break
		}
	}
	if size == 0 {
		return false, nil
	}

	defer c.InvalidatePositions()

	if err := c.createOrder(ctx, contract, -size, true); err != nil {
		return false, fmt.Errorf("ClosePosition %s: %w", contract, err)
	}
	logger.Info("[ORDER] закрыто %s: %d контрактов", contract, size)
	return true, nil
}

// createOrder — рыночный IOC-ордер. price="0" + tif=ioc у Gate = маркет.
func (c *Client) createOrder(ctx context.Context, contract string, size int64, reduceOnly bool) error {
	body := map[string]any{
		"contract": contract,
		"size":     size,
		"price":    "0",
		"tif":      "ioc",
	}
	if reduceOnly {
		body["reduce_only"] = true
	}

	payload, err := sonic.Marshal(body)
	if err != nil {
		return fmt.Errorf("createOrder marshal: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/futures/usdt/orders", "", string(payload), true)
	if err != nil {
		return err
	}

	var r orderResp
	if err := c.do(req, &r); err != nil {
		return err
	}
	if r.Status != "finished" {
		return errs.Rejectionf("createOrder %s size=%d: status=%q left=%d", contract, size, r.Status, r.Left)
	}
	return nil
}
