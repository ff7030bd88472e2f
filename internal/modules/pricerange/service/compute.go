package service

import (
	"auto_trader/internal/errs"
)

// rangeCalc — чистая математика 20-дневного диапазона.
type rangeCalc struct {
	High          float64
	Low           float64
	Last          float64
	Amplitude     float64
	PositionRatio float64
}

// computeRange: high/low/last по N закрытиям (от старых к новым).
// Меньше N закрытий — ошибка данных, символ пропускается.
func computeRange(closes []float64, n int) (rangeCalc, error) {
	if len(closes) < n {
		return rangeCalc{}, errs.DataIntegrityf("history too short: %d of %d closes", len(closes), n)
	}
	closes = closes[len(closes)-n:]

	high, low := closes[0], closes[0]
	for _, c := range closes[1:] {
		if c > high {
			high = c
		}
		if c < low {
			low = c
		}
	}
	last := closes[len(closes)-1]

	return rangeCalc{
		High:          high,
		Low:           low,
		Last:          last,
		Amplitude:     amplitude(high, low),
		PositionRatio: positionRatio(last, high, low),
	}, nil
}

// amplitude = (high-low)/low; low<=0 даёт 0 по определению, не ошибку.
func amplitude(high, low float64) float64 {
	if low <= 0 {
		return 0
	}
	return (high - low) / low
}

// positionRatio = (last-low)/(high-low); вырожденный диапазон -> 0.
func positionRatio(last, high, low float64) float64 {
	if high <= low {
		return 0
	}
	return (last - low) / (high - low)
}
