// Package ratchet tracks one account's stop loss and take-profit ladder and
// walks the stop up the ladder as targets fill.
package ratchet

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"sniper/internal/bracket"
	"sniper/internal/logger"
	"sniper/internal/models"
)

const MaxLevels = 5

// OrderEditor is the part of an account gateway the ratchet drives.
type OrderEditor interface {
	CancelOrder(ctx context.Context, symbol, linkID string) error
	AmendTriggerPrice(ctx context.Context, symbol, linkID string, price float64) error
}

type Level struct {
	Price  float64
	LinkID string
	Filled bool
}

type Snapshot struct {
	AccountID  string
	Symbol     string
	Side       models.PositionSide
	StopLoss   float64
	HasStop    bool
	StopLinkID string
	Ladder     []Level
}

// Move describes what a take-profit fill did to the stop.
type Move struct {
	Level   int
	Moved   bool
	HadStop bool
	From    float64
	To      float64
}

// Ratchet owns one account's ladder. All mutations are serialised on mu,
// including the exchange calls they trigger, so stop amendments reach the
// exchange in the order the fills arrived.
type Ratchet struct {
	accountID string
	editor    OrderEditor
	log       *logger.Logger

	mu         sync.Mutex
	symbol     string
	side       models.PositionSide
	stopLoss   float64
	hasStop    bool
	stopLinkID string
	ladder     []Level
}

func New(accountID string, editor OrderEditor, log *logger.Logger) *Ratchet {
	return &Ratchet{
		accountID: accountID,
		editor:    editor,
		log:       log,
	}
}

func (r *Ratchet) AccountID() string {
	return r.accountID
}

// Arm replaces the tracked state with the protection carried by set.
func (r *Ratchet) Arm(set bracket.OrderSet) {
	tps := set.TakeProfits()
	if len(tps) > MaxLevels {
		r.logEntry().WithField("levels", len(tps)).Warn("Ladder longer than supported, extra levels not tracked.")
		tps = tps[:MaxLevels]
	}

	ladder := make([]Level, 0, len(tps))
	for _, tp := range tps {
		ladder = append(ladder, Level{Price: tp.LimitPrice, LinkID: tp.LinkID})
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.symbol = set.Symbol
	r.side = set.Side
	r.ladder = ladder
	r.stopLoss, r.hasStop, r.stopLinkID = 0, false, ""
	if sl, ok := set.StopLoss(); ok {
		r.stopLoss, r.hasStop, r.stopLinkID = sl.TriggerPrice, true, sl.LinkID
	}

	r.logEntry().WithFields(logrus.Fields{
		"symbol":    r.symbol,
		"side":      r.side,
		"stop_loss": r.stopLoss,
		"levels":    len(r.ladder),
	}).Info("Ratchet armed.")
}

// OnTakeProfitFilled marks level index filled. Filling level i > 0 moves the
// stop to the price of level i-1 when that tightens it; level 0 leaves the
// stop alone. The new stop is pushed to the exchange; a failed push is
// returned but the local state keeps the move.
func (r *Ratchet) OnTakeProfitFilled(ctx context.Context, index int) (Move, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	move := Move{Level: index, HadStop: r.hasStop, From: r.stopLoss, To: r.stopLoss}

	if index < 0 || index >= len(r.ladder) {
		r.logEntry().WithField("level", index).WithField("levels", len(r.ladder)).Warn("Fill for unknown take-profit level ignored.")
		return move, nil
	}
	if r.ladder[index].Filled {
		return move, nil
	}
	r.ladder[index].Filled = true

	if index == 0 {
		r.logEntry().Info("First take profit filled, stop unchanged.")
		return move, nil
	}

	target := r.ladder[index-1].Price
	if r.hasStop && !r.tightens(target) {
		r.logEntry().WithFields(logrus.Fields{
			"level":     index,
			"stop_loss": r.stopLoss,
			"candidate": target,
		}).Info("Stop already tighter than the locked level, not moved.")
		return move, nil
	}

	r.stopLoss, r.hasStop = target, true
	move.Moved, move.To = true, target

	r.logEntry().WithFields(logrus.Fields{
		"level": index,
		"from":  move.From,
		"to":    move.To,
	}).Info("Stop loss ratcheted.")

	if r.stopLinkID == "" || r.editor == nil {
		return move, nil
	}
	if err := r.editor.AmendTriggerPrice(ctx, r.symbol, r.stopLinkID, target); err != nil {
		r.logEntry().WithError(err).Error("Exchange stop not moved.")
		return move, err
	}
	return move, nil
}

// ResetTakeProfits clears the ladder and cancels the targets that have not
// filled yet. Cancel failures are returned; the ladder stays cleared.
func (r *Ratchet) ResetTakeProfits(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pending := make([]Level, 0, len(r.ladder))
	for _, lvl := range r.ladder {
		if !lvl.Filled && lvl.LinkID != "" {
			pending = append(pending, lvl)
		}
	}
	r.ladder = nil

	r.logEntry().WithField("pending", len(pending)).Info("Take-profit ladder cleared.")

	if r.editor == nil {
		return nil
	}
	var errList []error
	for _, lvl := range pending {
		if err := r.editor.CancelOrder(ctx, r.symbol, lvl.LinkID); err != nil {
			r.logEntry().WithError(err).WithField("link_id", lvl.LinkID).Warn("Take profit not cancelled.")
			errList = append(errList, err)
		}
	}
	return errors.Join(errList...)
}

// CancelTakeProfits is ResetTakeProfits under the name the console buttons use.
func (r *Ratchet) CancelTakeProfits(ctx context.Context) error {
	return r.ResetTakeProfits(ctx)
}

// Disarm forgets everything without touching the exchange, for when the
// position is gone.
func (r *Ratchet) Disarm() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.symbol, r.side = "", ""
	r.stopLoss, r.hasStop, r.stopLinkID = 0, false, ""
	r.ladder = nil
}

func (r *Ratchet) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{
		AccountID:  r.accountID,
		Symbol:     r.symbol,
		Side:       r.side,
		StopLoss:   r.stopLoss,
		HasStop:    r.hasStop,
		StopLinkID: r.stopLinkID,
		Ladder:     append([]Level(nil), r.ladder...),
	}
}

// LevelOf finds the ladder level placed under linkID.
func (r *Ratchet) LevelOf(linkID string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, lvl := range r.ladder {
		if lvl.LinkID == linkID {
			return i, true
		}
	}
	return 0, false
}

// tightens reports whether moving the stop to price locks in more profit.
func (r *Ratchet) tightens(price float64) bool {
	if r.side == models.Short {
		return price < r.stopLoss
	}
	return price > r.stopLoss
}

func (r *Ratchet) logEntry() *logrus.Entry {
	return r.log.For("ratchet", r.accountID)
}
