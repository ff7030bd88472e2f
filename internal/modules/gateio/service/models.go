package service

import (
	"encoding/json"
	"strconv"
	"time"

	"auto_trader/internal/helper"
	"auto_trader/internal/models"
)

type apiError struct {
	Label   string `json:"label"`
	Message string `json:"message"`
}

// Gate отдаёт числа строками — парсим на границе, дальше только типизированное.

type contractResp struct {
	Name             string `json:"name"`
	QuantoMultiplier string `json:"quanto_multiplier"`
	OrderSizeMin     int64  `json:"order_size_min"`
	OrderSizeMax     int64  `json:"order_size_max"`
	LeverageMax      string `json:"leverage_max"`
	LastPrice        string `json:"last_price"`
	InDelisting      bool   `json:"in_delisting"`
}

func (r contractResp) toSpec() models.ContractSpec {
	mult, _ := strconv.ParseFloat(r.QuantoMultiplier, 64)
	levMax, _ := strconv.ParseFloat(r.LeverageMax, 64)
	last, _ := strconv.ParseFloat(r.LastPrice, 64)
	return models.ContractSpec{
		Name:         r.Name,
		Symbol:       helper.SymbolOf(r.Name),
		Multiplier:   mult,
		OrderSizeMin: r.OrderSizeMin,
		OrderSizeMax: r.OrderSizeMax,
		LeverageMax:  int(levMax),
		LastPrice:    last,
	}
}

type tickerResp struct {
	Contract        string `json:"contract"`
	Last            string `json:"last"`
	Volume24hSettle string `json:"volume_24h_settle"`
}

func (r tickerResp) toTicker() models.Ticker {
	last, _ := strconv.ParseFloat(r.Last, 64)
	vol, _ := strconv.ParseFloat(r.Volume24hSettle, 64)
	return models.Ticker{
		Contract:        r.Contract,
		Last:            last,
		Volume24hSettle: vol,
	}
}

type candleResp struct {
	T int64           `json:"t"`
	V json.RawMessage `json:"v"`
	C string          `json:"c"`
	H string          `json:"h"`
	L string          `json:"l"`
	O string          `json:"o"`
}

func (r candleResp) toCandle() models.Candle {
	o, _ := strconv.ParseFloat(r.O, 64)
	h, _ := strconv.ParseFloat(r.H, 64)
	l, _ := strconv.ParseFloat(r.L, 64)
	c, _ := strconv.ParseFloat(r.C, 64)
	var v float64
	if len(r.V) > 0 {
		_ = json.Unmarshal(r.V, &v)
	}
	return models.Candle{
		Time:   time.Unix(r.T, 0),
		Open:   o,
		High:   h,
		Low:    l,
		Close:  c,
		Volume: v,
	}
}

type positionResp struct {
	Contract      string `json:"contract"`
	Size          int64  `json:"size"`
	Value         string `json:"value"`
	Leverage      string `json:"leverage"`
	UnrealisedPnl string `json:"unrealised_pnl"`
}

func (r positionResp) toPosition() models.LivePosition {
	val, _ := strconv.ParseFloat(r.Value, 64)
	lev, _ := strconv.ParseFloat(r.Leverage, 64)
	upl, _ := strconv.ParseFloat(r.UnrealisedPnl, 64)
	return models.LivePosition{
		Contract:      r.Contract,
		Symbol:        helper.SymbolOf(r.Contract),
		Size:          r.Size,
		Value:         val,
		Leverage:      lev,
		UnrealizedPnl: upl,
	}
}

type orderResp struct {
	ID     int64  `json:"id"`
	Status string `json:"status"` // open | finished
	Size   int64  `json:"size"`
	Left   int64  `json:"left"`
}
