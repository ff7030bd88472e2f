package service

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"auto_trader/internal/errs"
	"auto_trader/internal/models"
	"auto_trader/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

var testNow = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

type fakeRegistry struct {
	accounts []models.Account
	monitors map[int64][]models.Monitor

	opened  map[int64]models.PositionSide
	closed  map[int64]bool
	sides   map[int64]models.PositionSide
	touched map[int64]bool
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		monitors: make(map[int64][]models.Monitor),
		opened:   make(map[int64]models.PositionSide),
		closed:   make(map[int64]bool),
		sides:    make(map[int64]models.PositionSide),
		touched:  make(map[int64]bool),
	}
}

func (f *fakeRegistry) ActiveAccounts(ctx context.Context) ([]models.Account, error) {
	return f.accounts, nil
}
func (f *fakeRegistry) ListActive(ctx context.Context, accountID int64) ([]models.Monitor, error) {
	return f.monitors[accountID], nil
}
func (f *fakeRegistry) MarkOpened(ctx context.Context, id int64, side models.PositionSide) error {
	f.opened[id] = side
	return nil
}
func (f *fakeRegistry) MarkClosed(ctx context.Context, id int64) error {
	f.closed[id] = true
	return nil
}
func (f *fakeRegistry) SetPositionSide(ctx context.Context, id int64, side models.PositionSide) error {
	f.sides[id] = side
	return nil
}
func (f *fakeRegistry) Touch(ctx context.Context, id int64) error {
	f.touched[id] = true
	return nil
}

type fakeRanges struct {
	snaps map[string]models.Snapshot
}

func (f *fakeRanges) FreshSnapshots(ctx context.Context, staleAfter time.Duration) (map[string]models.Snapshot, error) {
	return f.snaps, nil
}

type openCall struct {
	symbol string
	side   models.PositionSide
}

type fakeClient struct {
	positions []models.LivePosition
	posErr    error

	opens  []openCall
	closes []string

	openErr  error
	closeRes bool
}

func (f *fakeClient) Positions(ctx context.Context, force bool) ([]models.LivePosition, error) {
	return f.positions, f.posErr
}
func (f *fakeClient) OpenPosition(ctx context.Context, symbol string, side models.PositionSide,
	capital decimal.Decimal, leverage int) (bool, error) {
	if f.openErr != nil {
		return false, f.openErr
	}
	f.opens = append(f.opens, openCall{symbol: symbol, side: side})
	return true, nil
}
func (f *fakeClient) ClosePosition(ctx context.Context, symbol string) (bool, error) {
	f.closes = append(f.closes, symbol)
	return f.closeRes, nil
}

type fakeProvider struct {
	clients map[int64]*fakeClient
	panicID int64
}

func (f *fakeProvider) ClientFor(acct models.Account) ExchangeClient {
	if acct.ID == f.panicID {
		panic(fmt.Sprintf("no client for account %d", acct.ID))
	}
	return f.clients[acct.ID]
}

type fakeNotifier struct {
	msgs []string
}

func (f *fakeNotifier) Sendf(format string, args ...any) {
	f.msgs = append(f.msgs, fmt.Sprintf(format, args...))
}

func freshSnap(symbol string, high, low, last float64) models.Snapshot {
	ratio := 0.0
	if high > low {
		ratio = (last - low) / (high - low)
	}
	return models.Snapshot{
		Symbol:        symbol,
		High20:        high,
		Low20:         low,
		LastPrice:     last,
		PositionRatio: ratio,
		UpdateTime:    testNow.Add(-time.Minute),
	}
}

func newTestEngine(reg *fakeRegistry, ranges *fakeRanges, prov *fakeProvider, n *fakeNotifier) *Engine {
	e := New(Deps{
		Registry:    reg,
		Ranges:      ranges,
		Clients:     prov,
		Notify:      n,
		StaleAfter:  3 * time.Minute,
		OpenedGrace: 5 * time.Minute,
	})
	e.now = func() time.Time { return testNow }
	return e
}

func monitor(id int64, symbol string, strategy models.StrategyType, status models.SyncStatus) models.Monitor {
	return models.Monitor{
		ID:             id,
		AccountID:      1,
		Symbol:         symbol,
		StrategyType:   strategy,
		AllocatedMoney: decimal.NewFromInt(1000),
		Leverage:       10,
		TakeProfit:     decimal.NewFromInt(50),
		SyncStatus:     status,
		IsActive:       true,
		LastSyncTime:   testNow.Add(-time.Minute),
	}
}

func runOne(t *testing.T, reg *fakeRegistry, ranges *fakeRanges, cl *fakeClient) *fakeNotifier {
	t.Helper()
	reg.accounts = []models.Account{{ID: 1, Name: "main"}}
	prov := &fakeProvider{clients: map[int64]*fakeClient{1: cl}}
	n := &fakeNotifier{}
	if err := newTestEngine(reg, ranges, prov, n).RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	return n
}

func TestWaitingBreakoutOpensLong(t *testing.T) {
	reg := newFakeRegistry()
	reg.monitors[1] = []models.Monitor{monitor(7, "BTC", models.StrategyBreak, models.StatusWaiting)}
	ranges := &fakeRanges{snaps: map[string]models.Snapshot{
		"BTC": freshSnap("BTC", 100, 50, 120), // last выше high
	}}
	cl := &fakeClient{}

	runOne(t, reg, ranges, cl)

	if len(cl.opens) != 1 || cl.opens[0].side != models.PosSideLong {
		t.Fatalf("opens = %+v", cl.opens)
	}
	if reg.opened[7] != models.PosSideLong {
		t.Fatalf("статус не переведён: %+v", reg.opened)
	}
}

func TestWaitingBreakdownOpensShort(t *testing.T) {
	reg := newFakeRegistry()
	reg.monitors[1] = []models.Monitor{monitor(7, "BTC", models.StrategyBreak, models.StatusWaiting)}
	ranges := &fakeRanges{snaps: map[string]models.Snapshot{
		"BTC": freshSnap("BTC", 100, 50, 40),
	}}
	cl := &fakeClient{}

	runOne(t, reg, ranges, cl)

	if len(cl.opens) != 1 || cl.opens[0].side != models.PosSideShort {
		t.Fatalf("opens = %+v", cl.opens)
	}
}

func TestWaitingInsideRangeNoSignal(t *testing.T) {
	reg := newFakeRegistry()
	reg.monitors[1] = []models.Monitor{monitor(7, "BTC", models.StrategyBreak, models.StatusWaiting)}
	ranges := &fakeRanges{snaps: map[string]models.Snapshot{
		"BTC": freshSnap("BTC", 100, 50, 75),
	}}
	cl := &fakeClient{}

	runOne(t, reg, ranges, cl)

	if len(cl.opens) != 0 {
		t.Fatalf("открылись без сигнала: %+v", cl.opens)
	}
	if !reg.touched[7] {
		t.Fatal("монитор без сигнала должен отметиться touch-ем")
	}
}

func TestWaitingOscillationMidpointNoSignal(t *testing.T) {
	reg := newFakeRegistry()
	reg.monitors[1] = []models.Monitor{monitor(7, "BTC", models.StrategyOscillation, models.StatusWaiting)}
	ranges := &fakeRanges{snaps: map[string]models.Snapshot{
		"BTC": freshSnap("BTC", 100, 50, 75), // ratio ровно 0.5
	}}
	cl := &fakeClient{}

	runOne(t, reg, ranges, cl)

	if len(cl.opens) != 0 {
		t.Fatalf("на середине диапазона сигнала нет: %+v", cl.opens)
	}
}

func TestWaitingOscillationLowRatioOpensLong(t *testing.T) {
	reg := newFakeRegistry()
	reg.monitors[1] = []models.Monitor{monitor(7, "BTC", models.StrategyOscillation, models.StatusWaiting)}
	ranges := &fakeRanges{snaps: map[string]models.Snapshot{
		"BTC": freshSnap("BTC", 100, 50, 55),
	}}
	cl := &fakeClient{}

	runOne(t, reg, ranges, cl)

	if len(cl.opens) != 1 || cl.opens[0].side != models.PosSideLong {
		t.Fatalf("opens = %+v", cl.opens)
	}
}

func TestWaitingStaleSnapshotNoOpen(t *testing.T) {
	reg := newFakeRegistry()
	reg.monitors[1] = []models.Monitor{monitor(7, "BTC", models.StrategyBreak, models.StatusWaiting)}

	stale := freshSnap("BTC", 100, 50, 120)
	stale.UpdateTime = testNow.Add(-10 * time.Minute)
	ranges := &fakeRanges{snaps: map[string]models.Snapshot{"BTC": stale}}
	cl := &fakeClient{}

	runOne(t, reg, ranges, cl)

	if len(cl.opens) != 0 {
		t.Fatalf("открылись по протухшему снапшоту: %+v", cl.opens)
	}
}

func TestWaitingExistingPositionBlocksOpen(t *testing.T) {
	reg := newFakeRegistry()
	reg.monitors[1] = []models.Monitor{monitor(7, "BTC", models.StrategyBreak, models.StatusWaiting)}
	ranges := &fakeRanges{snaps: map[string]models.Snapshot{
		"BTC": freshSnap("BTC", 100, 50, 120),
	}}
	cl := &fakeClient{positions: []models.LivePosition{
		{Contract: "BTC_USDT", Symbol: "BTC", Size: 3},
	}}

	runOne(t, reg, ranges, cl)

	if len(cl.opens) != 0 {
		t.Fatalf("открылись поверх живой позиции: %+v", cl.opens)
	}
	if reg.opened[7] != "" {
		t.Fatal("статус не должен меняться")
	}
}

func TestOpenedTakeProfitCloses(t *testing.T) {
	reg := newFakeRegistry()
	m := monitor(7, "BTC", models.StrategyBreak, models.StatusOpened)
	m.PositionSide = models.PosSideLong
	reg.monitors[1] = []models.Monitor{m}
	ranges := &fakeRanges{snaps: map[string]models.Snapshot{}}
	cl := &fakeClient{
		positions: []models.LivePosition{
			{Contract: "BTC_USDT", Symbol: "BTC", Size: 20, UnrealizedPnl: 60}, // tp = 50
		},
		closeRes: true,
	}

	n := runOne(t, reg, ranges, cl)

	if len(cl.closes) != 1 || cl.closes[0] != "BTC" {
		t.Fatalf("closes = %+v", cl.closes)
	}
	if !reg.closed[7] {
		t.Fatal("монитор не закрыт после тейка")
	}
	if len(n.msgs) == 0 {
		t.Fatal("про тейк должны уведомить")
	}
}

func TestOpenedZeroTakeProfitStillCloses(t *testing.T) {
	// take_profit по умолчанию 0: сравнение безусловное, любой
	// неотрицательный PnL закрывает позицию
	reg := newFakeRegistry()
	m := monitor(7, "BTC", models.StrategyBreak, models.StatusOpened)
	m.PositionSide = models.PosSideLong
	m.TakeProfit = decimal.Zero
	reg.monitors[1] = []models.Monitor{m}
	ranges := &fakeRanges{snaps: map[string]models.Snapshot{}}
	cl := &fakeClient{
		positions: []models.LivePosition{
			{Contract: "BTC_USDT", Symbol: "BTC", Size: 20, UnrealizedPnl: 100},
		},
		closeRes: true,
	}

	runOne(t, reg, ranges, cl)

	if len(cl.closes) != 1 {
		t.Fatalf("closes = %+v", cl.closes)
	}
	if !reg.closed[7] {
		t.Fatal("монитор не закрыт")
	}
}

func TestOpenedBelowTakeProfitHolds(t *testing.T) {
	reg := newFakeRegistry()
	m := monitor(7, "BTC", models.StrategyBreak, models.StatusOpened)
	m.PositionSide = models.PosSideLong
	reg.monitors[1] = []models.Monitor{m}
	ranges := &fakeRanges{snaps: map[string]models.Snapshot{}}
	cl := &fakeClient{positions: []models.LivePosition{
		{Contract: "BTC_USDT", Symbol: "BTC", Size: 20, UnrealizedPnl: 10},
	}}

	runOne(t, reg, ranges, cl)

	if len(cl.closes) != 0 {
		t.Fatalf("закрылись раньше тейка: %+v", cl.closes)
	}
	if reg.closed[7] {
		t.Fatal("монитор закрыт раньше времени")
	}
	if !reg.touched[7] {
		t.Fatal("живой opened должен отметиться touch-ем")
	}
}

func TestOpenedRestoresSideFromSize(t *testing.T) {
	reg := newFakeRegistry()
	reg.monitors[1] = []models.Monitor{monitor(7, "BTC", models.StrategyBreak, models.StatusOpened)}
	ranges := &fakeRanges{snaps: map[string]models.Snapshot{}}
	cl := &fakeClient{positions: []models.LivePosition{
		{Contract: "BTC_USDT", Symbol: "BTC", Size: -5, UnrealizedPnl: 0},
	}}

	runOne(t, reg, ranges, cl)

	if reg.sides[7] != models.PosSideShort {
		t.Fatalf("side = %q, want short", reg.sides[7])
	}
}

func TestOpenedGoneWithinGraceWaits(t *testing.T) {
	reg := newFakeRegistry()
	m := monitor(7, "BTC", models.StrategyBreak, models.StatusOpened)
	m.LastSyncTime = testNow.Add(-time.Minute) // грейс 5 минут не вышел
	reg.monitors[1] = []models.Monitor{m}
	ranges := &fakeRanges{snaps: map[string]models.Snapshot{}}
	cl := &fakeClient{}

	runOne(t, reg, ranges, cl)

	if reg.closed[7] {
		t.Fatal("монитор закрыт внутри грейса")
	}
}

func TestOpenedGoneAfterGraceCloses(t *testing.T) {
	reg := newFakeRegistry()
	m := monitor(7, "BTC", models.StrategyBreak, models.StatusOpened)
	m.LastSyncTime = testNow.Add(-10 * time.Minute)
	reg.monitors[1] = []models.Monitor{m}
	ranges := &fakeRanges{snaps: map[string]models.Snapshot{}}
	cl := &fakeClient{}

	runOne(t, reg, ranges, cl)

	if !reg.closed[7] {
		t.Fatal("после грейса без позиции монитор должен закрыться")
	}
	if len(cl.closes) != 0 {
		t.Fatalf("на биржу ходить не за чем: %+v", cl.closes)
	}
}

func TestOrphanPositionSwept(t *testing.T) {
	reg := newFakeRegistry()
	reg.monitors[1] = []models.Monitor{monitor(7, "BTC", models.StrategyBreak, models.StatusOpened)}
	ranges := &fakeRanges{snaps: map[string]models.Snapshot{}}
	cl := &fakeClient{
		positions: []models.LivePosition{
			{Contract: "BTC_USDT", Symbol: "BTC", Size: 20},
			{Contract: "DOGE_USDT", Symbol: "DOGE", Size: 5}, // монитора нет
		},
		closeRes: true,
	}

	runOne(t, reg, ranges, cl)

	if len(cl.closes) != 1 || cl.closes[0] != "DOGE" {
		t.Fatalf("closes = %+v", cl.closes)
	}
}

func TestClosedActiveMonitorProtectsPosition(t *testing.T) {
	// активный монитор защищает позицию по своему символу в любом
	// статусе: закрытый монитор + живая позиция — дело оператора
	reg := newFakeRegistry()
	reg.monitors[1] = []models.Monitor{monitor(7, "BTC", models.StrategyBreak, models.StatusClosed)}
	ranges := &fakeRanges{snaps: map[string]models.Snapshot{}}
	cl := &fakeClient{
		positions: []models.LivePosition{{Contract: "BTC_USDT", Symbol: "BTC", Size: 20}},
		closeRes:  true,
	}

	runOne(t, reg, ranges, cl)

	if len(cl.closes) != 0 {
		t.Fatalf("свип закрыл защищённую позицию: %+v", cl.closes)
	}
}

func TestCredentialErrorSkipsAccount(t *testing.T) {
	reg := newFakeRegistry()
	reg.monitors[1] = []models.Monitor{monitor(7, "BTC", models.StrategyBreak, models.StatusWaiting)}
	ranges := &fakeRanges{snaps: map[string]models.Snapshot{
		"BTC": freshSnap("BTC", 100, 50, 120),
	}}
	cl := &fakeClient{posErr: errs.Credentialf("bad key")}

	runOne(t, reg, ranges, cl)

	if len(cl.opens) != 0 {
		t.Fatalf("аккаунт с битыми ключами должен пропускаться: %+v", cl.opens)
	}
	if reg.touched[7] || reg.opened[7] != "" {
		t.Fatal("мониторы пропущенного аккаунта не трогаем")
	}
}

func TestPanicInOneAccountDoesNotKillOthers(t *testing.T) {
	reg := newFakeRegistry()
	reg.accounts = []models.Account{{ID: 1, Name: "boom"}, {ID: 2, Name: "ok"}}
	reg.monitors[2] = []models.Monitor{{
		ID: 9, AccountID: 2, Symbol: "BTC",
		StrategyType:   models.StrategyBreak,
		AllocatedMoney: decimal.NewFromInt(1000),
		Leverage:       10,
		SyncStatus:     models.StatusWaiting,
		IsActive:       true,
	}}
	ranges := &fakeRanges{snaps: map[string]models.Snapshot{
		"BTC": freshSnap("BTC", 100, 50, 120),
	}}

	okClient := &fakeClient{}
	prov := &fakeProvider{clients: map[int64]*fakeClient{2: okClient}, panicID: 1}
	n := &fakeNotifier{}

	if err := newTestEngine(reg, ranges, prov, n).RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	if len(okClient.opens) != 1 {
		t.Fatalf("второй аккаунт не обработан: %+v", okClient.opens)
	}
}
