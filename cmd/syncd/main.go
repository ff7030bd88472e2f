package main

import (
	"context"
	"flag"
	"log"
	"os"

	"go.uber.org/fx"

	"auto_trader/internal/modules/config"
	"auto_trader/internal/modules/engine"
	"auto_trader/internal/modules/gateio"
	"auto_trader/internal/modules/health"
	"auto_trader/internal/modules/postgres"
	"auto_trader/internal/modules/pricerange"
	"auto_trader/internal/modules/registry"
	"auto_trader/internal/modules/scheduler"
	service "auto_trader/internal/modules/scheduler/service"
	"auto_trader/internal/notify"
	"auto_trader/pkg/logger"
	"auto_trader/pkg/tracing"
)

func main() {
	once := flag.Bool("once", false, "один полный прогон и выход")
	flag.Parse()

	if err := logger.Init(); err != nil {
		log.Fatal(err)
	}
	logger.SetServiceName("syncd")
	tracing.SetServiceName("syncd")

	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		config.Module(),
		postgres.Module(),
		gateio.Module(),
		registry.Module(),
		pricerange.Module(),
		notify.Module(),
		engine.Module(),
		scheduler.Module(),
		health.Module(),
		fx.Invoke(registerTracer),
		fx.Invoke(func(lc fx.Lifecycle, sched *service.Scheduler, sd fx.Shutdowner) {
			runScheduler(lc, sched, sd, *once)
		}),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal(err)
	}

	sig := <-app.Wait()
	if err := app.Stop(context.Background()); err != nil {
		log.Fatal(err)
	}
	os.Exit(sig.ExitCode)
}

// registerTracer поднимает jaeger, если он настроен; без него спаны
// уходят в noop-трейсер.
func registerTracer(lc fx.Lifecycle, cfg *config.Config) {
	if cfg.Jaeger.Host == "" {
		logger.Info("[MAIN] jaeger не настроен, трейсинг выключен")
		return
	}

	_, closeFn, err := tracing.InitTracer(tracing.Config{
		Host: cfg.Jaeger.Host,
		Port: cfg.Jaeger.Port,
	})
	if err != nil {
		logger.Warn("[MAIN] jaeger недоступен, трейсинг выключен: %v", err)
		return
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			closeFn()
			return nil
		},
	})
}

// runScheduler гоняет планировщик в отдельной горутине под fx-жизненным
// циклом: SIGTERM доезжает до контекста, текущий джоб дорабатывает.
func runScheduler(lc fx.Lifecycle, sched *service.Scheduler, sd fx.Shutdowner, once bool) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)

				var err error
				if once {
					err = sched.RunOnce(ctx)
				} else {
					err = sched.RunForever(ctx)
				}

				if err != nil && ctx.Err() == nil {
					logger.Error("[MAIN] планировщик завершился с ошибкой: %v", err)
					_ = sd.Shutdown(fx.ExitCode(1))
					return
				}
				if once {
					_ = sd.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
}
