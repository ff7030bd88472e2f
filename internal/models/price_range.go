package models

import "time"

// Snapshot — строка price_range_20d: диапазон за 20 дневных закрытий плюс
// последняя цена. Дневной джоб пересчитывает high/low, минутный — только
// last_price/amplitude/position_ratio/volume_24h/update_time.
type Snapshot struct {
	Symbol        string
	High20        float64
	Low20         float64
	LastPrice     float64
	Amplitude     float64 // (high-low)/low, 0 при low<=0
	PositionRatio float64 // (last-low)/(high-low), 0 при high<=low
	Volume24h     float64 // оборот за 24ч в USDT
	UpdateDate    time.Time
	UpdateTime    time.Time
}

// Fresh — снапшот старше staleAfter считаем отсутствующим:
// лучше не открыться, чем открыться по протухшей цене.
func (s Snapshot) Fresh(now time.Time, staleAfter time.Duration) bool {
	return !s.UpdateTime.IsZero() && now.Sub(s.UpdateTime) <= staleAfter
}
