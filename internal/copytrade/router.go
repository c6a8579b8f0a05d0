// Package copytrade fans one trade intent out to several accounts. Every
// account is priced, built and submitted on its own; a failure on one account
// never blocks or undoes another.
package copytrade

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"

	"sniper/internal/bracket"
	"sniper/internal/errs"
	"sniper/internal/logger"
	"sniper/internal/metrics"
	"sniper/internal/models"
	"sniper/internal/registry"
	"sniper/internal/validator"
)

// PairMap maps a subscriber account id to the symbol it trades instead of
// the intent's symbol. Missing or empty entries keep the original symbol.
type PairMap map[string]string

func (p PairMap) SymbolFor(accountID, symbol string) string {
	if mapped := p[accountID]; mapped != "" {
		return mapped
	}
	return symbol
}

// Result is the outcome for one account.
type Result struct {
	AccountID string
	Master    bool
	Symbol    string
	Set       bracket.OrderSet
	Acks      []models.OrderAck
	Warnings  []string
	Err       error
	Elapsed   time.Duration
}

func (r Result) OK() bool {
	return r.Err == nil
}

type Router struct {
	accounts      *registry.Registry
	builder       *bracket.Builder
	log           *logger.Logger
	submitTimeout time.Duration
}

type Option func(*Router)

// WithSubmitTimeout bounds each account's price, leverage and submit calls.
func WithSubmitTimeout(d time.Duration) Option {
	return func(r *Router) {
		r.submitTimeout = d
	}
}

func New(accounts *registry.Registry, builder *bracket.Builder, log *logger.Logger, opts ...Option) *Router {
	r := &Router{
		accounts: accounts,
		builder:  builder,
		log:      log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Mirror validates intent and starts one submission per subscriber. It returns
// as soon as the submissions are running; the Dispatch reports when they end.
// master only labels results; whether the master trades is decided by
// listing it among subscribers.
func (r *Router) Mirror(ctx context.Context, intent models.TradeIntent, master string, subscribers []string, pairs PairMap) (*Dispatch, error) {
	if err := validator.ValidateIntent(intent); err != nil {
		return nil, err
	}

	d := newDispatch(len(subscribers))
	p := pool.New()

	r.logEntry().WithFields(logrus.Fields{
		"symbol":      intent.Symbol,
		"side":        intent.Side,
		"style":       intent.Style,
		"size":        intent.Size,
		"master":      master,
		"subscribers": len(subscribers),
	}).Info("Mirroring intent.")

	for i, id := range subscribers {
		p.Go(func() {
			var res Result
			recovered := panics.Try(func() {
				res = r.submit(ctx, id, intent.Clone(), pairs)
			})
			if recovered != nil {
				res = Result{
					AccountID: id,
					Err:       errs.New(errs.KindSubmission, id, "mirror", recovered.AsError()),
				}
			}
			res.Master = id == master
			r.record(res)
			d.results[i] = res
		})
	}

	go func() {
		p.Wait()
		close(d.done)
	}()

	return d, nil
}

func (r *Router) submit(ctx context.Context, accountID string, intent models.TradeIntent, pairs PairMap) (res Result) {
	start := time.Now()
	res.AccountID = accountID
	defer func() {
		res.Elapsed = time.Since(start)
		metrics.ObserveSince(accountID, start)
	}()

	acc, ok := r.accounts.Get(accountID)
	if !ok {
		res.Err = errs.Newf(errs.KindConnection, accountID, "mirror", "account not registered")
		return res
	}

	intent.Symbol = pairs.SymbolFor(accountID, intent.Symbol)
	res.Symbol = intent.Symbol

	if r.submitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.submitTimeout)
		defer cancel()
	}

	gw := acc.Gateway

	reference := intent.Price
	if intent.Style == models.OrderStyleMarket {
		price, err := gw.GetMarketPrice(ctx, intent.Symbol)
		if err != nil {
			res.Err = errs.Scope(errs.KindPrice, accountID, "price", err)
			return res
		}
		reference = price
	}

	set, err := r.builder.Build(intent, reference)
	if err != nil {
		res.Err = errs.Scope(errs.KindInvalidIntent, accountID, "build", err)
		return res
	}
	res.Set = set
	res.Warnings = set.Warnings
	for _, w := range set.Warnings {
		r.logEntry().WithField("account", accountID).WithField("symbol", intent.Symbol).Warn(w)
	}

	if err := gw.SetLeverage(ctx, intent.Symbol, intent.Leverage, intent.MarginMode == models.MarginCross); err != nil {
		res.Err = errs.Scope(errs.KindLeverage, accountID, "leverage", err)
		return res
	}

	acks, err := gw.SubmitOrderBatch(ctx, set.Orders)
	res.Acks = acks
	if err != nil {
		res.Err = errs.Scope(errs.KindSubmission, accountID, "submit", err)
	}

	if armed, ok := acceptedSet(set, acks); ok {
		acc.Ratchet.Arm(armed)
	}
	return res
}

// acceptedSet keeps the orders the exchange accepted. It reports false when
// no entry was accepted, since there is then nothing to protect.
func acceptedSet(set bracket.OrderSet, acks []models.OrderAck) (bracket.OrderSet, bool) {
	accepted := map[string]bool{}
	for _, ack := range acks {
		if ack.Accepted() {
			accepted[ack.LinkID] = true
		}
	}

	out := set
	out.Orders = nil
	hasEntry := false
	for _, o := range set.Orders {
		if !accepted[o.LinkID] {
			continue
		}
		if o.Role == models.RoleEntry {
			hasEntry = true
		}
		out.Orders = append(out.Orders, o)
	}
	return out, hasEntry
}

func (r *Router) record(res Result) {
	roles := map[string]models.OrderRole{}
	for _, o := range res.Set.Orders {
		roles[o.LinkID] = o.Role
	}
	for _, ack := range res.Acks {
		outcome := "accepted"
		if !ack.Accepted() {
			outcome = "rejected"
		}
		metrics.OrdersSubmitted.WithLabelValues(res.AccountID, string(roles[ack.LinkID]), outcome).Inc()
	}

	entry := r.logEntry().WithFields(logrus.Fields{
		"account": res.AccountID,
		"symbol":  res.Symbol,
		"orders":  len(res.Acks),
		"elapsed": res.Elapsed.String(),
	})
	if res.Err == nil {
		entry.Info("Order set submitted.")
		return
	}

	kind, ok := errs.KindOf(res.Err)
	if !ok {
		kind = errs.KindSubmission
	}
	metrics.SubscriberFailures.WithLabelValues(res.AccountID, string(kind)).Inc()
	entry.WithError(res.Err).WithField("kind", kind).WithField("timeout", errs.IsTimeout(res.Err)).Error("Order set failed.")
}

func (r *Router) logEntry() *logrus.Entry {
	return r.log.WithComponent("copytrade")
}

// Summary renders results one line per account.
func Summary(results []Result) []string {
	lines := make([]string, 0, len(results))
	for _, res := range results {
		status := "ok"
		if res.Err != nil {
			status = res.Err.Error()
		}
		accepted := 0
		for _, ack := range res.Acks {
			if ack.Accepted() {
				accepted++
			}
		}
		lines = append(lines, fmt.Sprintf("%s %s: %d/%d orders accepted, %s", res.AccountID, res.Symbol, accepted, len(res.Acks), status))
	}
	return lines
}
