// Package engine is the trading desk. It owns the account roster, routes
// intents through the copy-trading router and feeds exchange updates back into
// each account's ratchet.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/pool"

	"sniper/internal/bracket"
	"sniper/internal/config"
	"sniper/internal/copytrade"
	"sniper/internal/errs"
	"sniper/internal/exchange"
	"sniper/internal/exchange/bybit/rest"
	"sniper/internal/exchange/paper"
	"sniper/internal/logger"
	"sniper/internal/metrics"
	"sniper/internal/registry"
	"sniper/internal/splitter"
)

type Desk struct {
	cfg      *config.Config
	accounts *registry.Registry
	router   *copytrade.Router
	log      *logger.Logger
	pairs    copytrade.PairMap

	retryAttempts int
	retryBackoff  time.Duration

	mu     sync.Mutex
	states map[string]*accountState
	loops  conc.WaitGroup
}

type Option func(*Desk)

// WithRetry sets how often and how patiently connects are retried.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(d *Desk) {
		d.retryAttempts = attempts
		d.retryBackoff = backoff
	}
}

func New(cfg *config.Config, accounts *registry.Registry, router *copytrade.Router, log *logger.Logger, opts ...Option) *Desk {
	d := &Desk{
		cfg:           cfg,
		accounts:      accounts,
		router:        router,
		log:           log,
		pairs:         copytrade.PairMap(cfg.Copy.Pairs),
		retryAttempts: 5,
		retryBackoff:  time.Second,
		states:        map[string]*accountState{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Build wires a desk from configuration: one gateway per roster entry (paper
// gateways in dry-run mode), the registry, the bracket builder and the router.
func Build(cfg *config.Config, log *logger.Logger, opts ...Option) (*Desk, error) {
	reg := registry.New(log)
	for _, acc := range cfg.Accounts {
		if _, err := reg.Add(newGateway(cfg, acc, log)); err != nil {
			return nil, err
		}
	}
	if reg.Len() == 0 {
		return nil, fmt.Errorf("no accounts configured")
	}
	if cfg.Copy.Master != "" {
		if err := reg.SetMaster(cfg.Copy.Master); err != nil {
			return nil, err
		}
	}
	if err := reg.SetSubscribers(cfg.Copy.Subscribers); err != nil {
		return nil, err
	}

	builder := bracket.New(splitter.NewDefault(), bracket.WithQtyPrecision(cfg.Trading.QtyPrecision))
	router := copytrade.New(reg, builder, log, copytrade.WithSubmitTimeout(cfg.Copy.SubmitTimeout))
	return New(cfg, reg, router, log, opts...), nil
}

func newGateway(cfg *config.Config, acc config.Account, log *logger.Logger) exchange.Gateway {
	if cfg.Runtime.DryRun {
		return paper.New(acc.AccountID, cfg.Runtime.PaperEquity, cfg.Runtime.PaperPrice, log)
	}
	return rest.New(rest.Config{
		AccountID:    acc.AccountID,
		BaseURL:      cfg.Exchange.BaseURL,
		WSPrivateURL: cfg.Exchange.WSPrivateURL,
		APIKey:       acc.APIKey,
		Secret:       acc.APISecret,
		AccountType:  cfg.Exchange.AccountType,
		SettleCoin:   cfg.Exchange.SettleCoin,
		RecvWindow:   cfg.Exchange.RecvWindow,
		Timeout:      cfg.Exchange.Timeout,
	}, log)
}

func (d *Desk) Accounts() *registry.Registry {
	return d.accounts
}

// Start connects every account, logs what the exchange already holds and
// starts one update loop per account that streams events. Accounts that fail
// to connect are reported in the returned error; the others keep running.
func (d *Desk) Start(ctx context.Context) error {
	err := d.Connect(ctx)

	d.restore(ctx)

	for _, acc := range d.accounts.All() {
		src, ok := acc.Gateway.(exchange.EventSource)
		if !ok {
			continue
		}
		events := src.Events()
		d.loops.Go(func() {
			d.handleEvents(ctx, acc, events)
		})
	}
	return err
}

// Connect connects all accounts concurrently, retrying each one on its own.
func (d *Desk) Connect(ctx context.Context) error {
	var connected atomic.Int64
	p := pool.New().WithErrors()
	for _, acc := range d.accounts.All() {
		p.Go(func() error {
			err := d.withRetryVoid(ctx, acc.ID, func() error {
				return acc.Gateway.Connect(ctx)
			})
			if err != nil {
				d.accountEntry(acc.ID).WithError(err).Error("Account not connected.")
				return errs.Scope(errs.KindConnection, acc.ID, "connect", err)
			}
			connected.Add(1)
			return nil
		})
	}
	err := p.Wait()
	metrics.ConnectedAccounts.Set(float64(connected.Load()))
	d.logEntry().WithField("connected", connected.Load()).WithField("accounts", d.accounts.Len()).Info("Accounts connected.")
	return err
}

// Close shuts every gateway and waits for the update loops. Cancel the
// context given to Start first.
func (d *Desk) Close() error {
	var errList []error
	for _, acc := range d.accounts.All() {
		if err := acc.Gateway.Close(); err != nil {
			errList = append(errList, errs.Scope(errs.KindConnection, acc.ID, "close", err))
		}
	}
	d.loops.Wait()
	metrics.ConnectedAccounts.Set(0)
	return errors.Join(errList...)
}

// Describe renders the roster for logs and the accounts command.
func (d *Desk) Describe() string {
	master, _ := d.accounts.Master()
	var subs []string
	for _, acc := range d.accounts.Subscribers() {
		subs = append(subs, acc.ID)
	}
	masterID := ""
	if master != nil {
		masterID = master.ID
	}
	return fmt.Sprintf("master=%s subscribers=[%s] master_trades=%t", masterID, strings.Join(subs, ","), d.cfg.Copy.MasterTrades)
}
