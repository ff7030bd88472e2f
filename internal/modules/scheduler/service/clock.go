package service

import "time"

// Clock выносим в интерфейс, чтобы в тестах гонять расписание без сна.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func SystemClock() Clock { return systemClock{} }
