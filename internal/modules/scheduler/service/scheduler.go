package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"auto_trader/pkg/logger"
	"auto_trader/pkg/tracing"
)

// Health — кусок health-стейта, который трогает планировщик.
type Health interface {
	SetReady(v bool)
	TouchTick(t time.Time)
	SetStreamUp(v bool)
}

// Job — один запуск джоба целиком.
type Job func(ctx context.Context) error

// Scheduler гоняет два джоба: дневной пересчёт диапазонов (по расписанию
// daily_at) и частый тик (рефреш цен + синк позиций). Джобы выполняются
// строго по очереди в одной горутине, пересечений нет; паника внутри
// джоба гасится и процесс живёт дальше.
type Scheduler struct {
	daily  Job
	tick   Job
	stream Job // опциональный WS-поток цен, nil если выключен

	tickEvery time.Duration
	dailyAt   string
	clock     Clock
	health    Health

	mu sync.Mutex // один джоб за раз, даже при внешних вызовах RunOnce
}

type Deps struct {
	Daily     Job
	Tick      Job
	Stream    Job
	TickEvery time.Duration
	DailyAt   string
	Clock     Clock
	Health    Health
}

func New(d Deps) *Scheduler {
	if d.Clock == nil {
		d.Clock = SystemClock()
	}
	return &Scheduler{
		daily:     d.Daily,
		tick:      d.Tick,
		stream:    d.Stream,
		tickEvery: d.TickEvery,
		dailyAt:   d.DailyAt,
		clock:     d.Clock,
		health:    d.Health,
	}
}

// RunOnce — разовый полный прогон для ручного запуска и отладки:
// дневной джоб, затем один тик.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if err := s.runJob(ctx, "daily", s.daily); err != nil {
		return err
	}
	return s.runJob(ctx, "tick", s.tick)
}

// RunForever блокируется до отмены контекста. На старте сразу догоняем
// дневной джоб (правило «нет записи за вчера» внутри него делает повтор
// бесплатным), дальше живём по расписанию.
func (s *Scheduler) RunForever(ctx context.Context) error {
	if s.health != nil {
		s.health.SetReady(true)
		defer s.health.SetReady(false)
	}

	if s.stream != nil {
		go s.runStream(ctx)
	}

	if err := s.runJob(ctx, "daily", s.daily); err != nil {
		logger.Error("[SCHED] стартовый дневной джоб: %v", err)
	}

	dailyCh := s.clock.After(s.untilDaily())
	tickCh := s.clock.After(s.tickEvery)

	for {
		select {
		case <-ctx.Done():
			logger.Info("[SCHED] остановка по контексту")
			return ctx.Err()

		case <-dailyCh:
			if err := s.runJob(ctx, "daily", s.daily); err != nil {
				logger.Error("[SCHED] дневной джоб: %v", err)
			}
			dailyCh = s.clock.After(s.untilDaily())

		case <-tickCh:
			if err := s.runJob(ctx, "tick", s.tick); err != nil {
				logger.Error("[SCHED] тик: %v", err)
			}
			if s.health != nil {
				s.health.TouchTick(s.clock.Now())
			}
			tickCh = s.clock.After(s.tickEvery)
		}
	}
}

// runJob — один запуск под мьютексом, со спаном и ловлей паники.
func (s *Scheduler) runJob(ctx context.Context, name string, job Job) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	span, ctx := tracing.StartSpan(ctx, "job."+name)
	defer span.Finish()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panic: %v", name, r)
		}
	}()

	started := s.clock.Now()
	err = job(ctx)
	logger.Info("[SCHED] джоб %s выполнен за %s (err=%v)", name, s.clock.Now().Sub(started), err)
	return err
}

// runStream перезапускает WS-поток, пока жив контекст.
func (s *Scheduler) runStream(ctx context.Context) {
	for {
		if s.health != nil {
			s.health.SetStreamUp(true)
		}
		err := s.stream(ctx)
		if s.health != nil {
			s.health.SetStreamUp(false)
		}
		if ctx.Err() != nil {
			return
		}
		logger.Warn("[SCHED] поток цен упал, перезапуск: %v", err)
		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(5 * time.Second):
		}
	}
}

// untilDaily — сколько ждать до ближайшего dailyAt ("HH:MM").
// Кривой формат в конфиге превращаем в полночь со следующих суток.
func (s *Scheduler) untilDaily() time.Duration {
	now := s.clock.Now()
	return nextDaily(now, s.dailyAt).Sub(now)
}

func nextDaily(now time.Time, at string) time.Time {
	var hh, mm int
	if _, err := fmt.Sscanf(at, "%d:%d", &hh, &mm); err != nil || hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		hh, mm = 0, 0
	}
	next := time.Date(now.Year(), now.Month(), now.Day(), hh, mm, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
