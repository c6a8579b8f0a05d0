package ratchet

import (
	"context"
	"errors"
	"sync"
	"testing"

	"sniper/internal/bracket"
	"sniper/internal/errs"
	"sniper/internal/logger"
	"sniper/internal/models"
)

type amendCall struct {
	linkID string
	price  float64
}

type fakeEditor struct {
	mu        sync.Mutex
	amends    []amendCall
	cancels   []string
	amendErr  error
	cancelErr error
}

func (f *fakeEditor) CancelOrder(ctx context.Context, symbol, linkID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels = append(f.cancels, linkID)
	return f.cancelErr
}

func (f *fakeEditor) AmendTriggerPrice(ctx context.Context, symbol, linkID string, price float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.amends = append(f.amends, amendCall{linkID: linkID, price: price})
	return f.amendErr
}

func orderSet(side models.PositionSide, withStop bool, prices ...float64) bracket.OrderSet {
	set := bracket.OrderSet{BaseID: "b", Symbol: "BTCUSDT", Side: side}
	set.Orders = append(set.Orders, models.NewEntryOrder("BTCUSDT", side, models.OrderStyleMarket, 0, 3, "b-entry"))
	if withStop {
		stop := 90.0
		if side == models.Short {
			stop = 110
		}
		set.Orders = append(set.Orders, models.NewStopLossOrder("BTCUSDT", side, stop, 3, "b-sl"))
	}
	for i, p := range prices {
		set.Orders = append(set.Orders, models.NewTakeProfitOrder("BTCUSDT", side, i, p, 1, bracket.TakeProfitLinkID("b", i)))
	}
	return set
}

func TestOnTakeProfitFilled_LadderWithoutStop(t *testing.T) {
	editor := &fakeEditor{}
	r := New("acc-1", editor, logger.Nop())
	r.Arm(orderSet(models.Long, false, 105, 110, 115))

	move, err := r.OnTakeProfitFilled(context.Background(), 0)
	if err != nil || move.Moved {
		t.Fatalf("first fill must not move the stop: %+v %v", move, err)
	}
	if snap := r.Snapshot(); snap.HasStop {
		t.Fatalf("stop should still be unset, got %+v", snap)
	}

	move, err = r.OnTakeProfitFilled(context.Background(), 1)
	if err != nil || !move.Moved || move.To != 105 {
		t.Fatalf("second fill should move the stop to the first target: %+v %v", move, err)
	}
	snap := r.Snapshot()
	if !snap.HasStop || snap.StopLoss != 105 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if !snap.Ladder[0].Filled || !snap.Ladder[1].Filled || snap.Ladder[2].Filled {
		t.Fatalf("unexpected ladder %+v", snap.Ladder)
	}
	if len(editor.amends) != 0 {
		t.Fatalf("no stop order exists, nothing to amend, got %+v", editor.amends)
	}
}

func TestOnTakeProfitFilled_AmendsExchangeStop(t *testing.T) {
	editor := &fakeEditor{}
	r := New("acc-1", editor, logger.Nop())
	r.Arm(orderSet(models.Long, true, 105, 110, 115))

	_, _ = r.OnTakeProfitFilled(context.Background(), 0)
	_, _ = r.OnTakeProfitFilled(context.Background(), 1)
	_, _ = r.OnTakeProfitFilled(context.Background(), 2)

	want := []amendCall{{"b-sl", 105}, {"b-sl", 110}}
	if len(editor.amends) != len(want) {
		t.Fatalf("expected %d amends, got %+v", len(want), editor.amends)
	}
	for i := range want {
		if editor.amends[i] != want[i] {
			t.Errorf("amend %d = %+v, want %+v", i, editor.amends[i], want[i])
		}
	}
	if got := r.Snapshot().StopLoss; got != 110 {
		t.Errorf("stop = %f, want 110", got)
	}
}

func TestOnTakeProfitFilled_NeverLoosens(t *testing.T) {
	r := New("acc-1", &fakeEditor{}, logger.Nop())
	set := orderSet(models.Short, true, 95, 90)
	r.Arm(set)

	_, _ = r.OnTakeProfitFilled(context.Background(), 1)
	if got := r.Snapshot().StopLoss; got != 95 {
		t.Fatalf("short stop should tighten from 110 to 95, got %f", got)
	}

	r.Arm(orderSet(models.Long, false, 105, 110))
	r.mu.Lock()
	r.stopLoss, r.hasStop = 107, true
	r.mu.Unlock()
	move, _ := r.OnTakeProfitFilled(context.Background(), 1)
	if move.Moved || r.Snapshot().StopLoss != 107 {
		t.Fatalf("a looser level must not replace a tighter stop: %+v", move)
	}
}

func TestOnTakeProfitFilled_IgnoresUnknownAndRepeatedLevels(t *testing.T) {
	editor := &fakeEditor{}
	r := New("acc-1", editor, logger.Nop())
	r.Arm(orderSet(models.Long, true, 105, 110))

	if move, err := r.OnTakeProfitFilled(context.Background(), 7); err != nil || move.Moved {
		t.Fatalf("out of range level should be a no-op: %+v %v", move, err)
	}
	_, _ = r.OnTakeProfitFilled(context.Background(), 1)
	_, _ = r.OnTakeProfitFilled(context.Background(), 1)
	if len(editor.amends) != 1 {
		t.Fatalf("a repeated fill must not amend twice, got %+v", editor.amends)
	}
}

func TestOnTakeProfitFilled_AmendFailureKeepsMove(t *testing.T) {
	editor := &fakeEditor{amendErr: errs.Newf(errs.KindSubmission, "acc-1", "amend", "order not exists")}
	r := New("acc-1", editor, logger.Nop())
	r.Arm(orderSet(models.Long, true, 105, 110))

	move, err := r.OnTakeProfitFilled(context.Background(), 1)
	if !errors.Is(err, errs.ErrSubmission) {
		t.Fatalf("amend failure should be reported, got %v", err)
	}
	if !move.Moved || r.Snapshot().StopLoss != 105 {
		t.Fatalf("state must keep the move after a failed amend: %+v", r.Snapshot())
	}
}

func TestResetTakeProfits(t *testing.T) {
	editor := &fakeEditor{}
	r := New("acc-1", editor, logger.Nop())
	r.Arm(orderSet(models.Long, true, 105, 110, 115))
	_, _ = r.OnTakeProfitFilled(context.Background(), 0)

	if err := r.ResetTakeProfits(context.Background()); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if len(r.Snapshot().Ladder) != 0 {
		t.Fatal("ladder should be empty after reset")
	}
	if len(editor.cancels) != 2 || editor.cancels[0] != "b-tp-1" || editor.cancels[1] != "b-tp-2" {
		t.Fatalf("only pending targets should be cancelled, got %v", editor.cancels)
	}
	if !r.Snapshot().HasStop {
		t.Fatal("reset must not touch the stop")
	}
}

func TestCancelTakeProfits_FailureKeepsLadderCleared(t *testing.T) {
	editor := &fakeEditor{cancelErr: errs.Newf(errs.KindCancel, "acc-1", "cancel", "timeout")}
	r := New("acc-1", editor, logger.Nop())
	r.Arm(orderSet(models.Long, false, 105, 110))

	err := r.CancelTakeProfits(context.Background())
	if !errors.Is(err, errs.ErrCancel) {
		t.Fatalf("cancel failures should be reported, got %v", err)
	}
	if len(r.Snapshot().Ladder) != 0 {
		t.Fatal("ladder should stay cleared")
	}
}

func TestLevelOfAndDisarm(t *testing.T) {
	r := New("acc-1", nil, logger.Nop())
	r.Arm(orderSet(models.Long, true, 105, 110))
	if lvl, ok := r.LevelOf("b-tp-1"); !ok || lvl != 1 {
		t.Fatalf("LevelOf = %d, %v", lvl, ok)
	}
	if _, ok := r.LevelOf("other-tp-1"); ok {
		t.Fatal("foreign link id should not match")
	}
	r.Disarm()
	if snap := r.Snapshot(); snap.HasStop || len(snap.Ladder) != 0 || snap.Symbol != "" {
		t.Fatalf("disarm should clear everything, got %+v", snap)
	}
}

func TestConcurrentFillsAreSerialised(t *testing.T) {
	editor := &fakeEditor{}
	r := New("acc-1", editor, logger.Nop())
	r.Arm(orderSet(models.Long, true, 101, 102, 103, 104, 105))

	var wg sync.WaitGroup
	for i := range MaxLevels {
		wg.Add(1)
		go func(level int) {
			defer wg.Done()
			_, _ = r.OnTakeProfitFilled(context.Background(), level)
		}(i)
	}
	wg.Wait()

	snap := r.Snapshot()
	for i, lvl := range snap.Ladder {
		if !lvl.Filled {
			t.Errorf("level %d not marked filled", i)
		}
	}
	if snap.StopLoss != 104 {
		t.Errorf("stop should end at the highest locked level 104, got %f", snap.StopLoss)
	}
}
