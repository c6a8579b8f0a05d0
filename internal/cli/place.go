package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"sniper/internal/config"
	"sniper/internal/copytrade"
	"sniper/internal/engine"
	"sniper/internal/errs"
	"sniper/internal/models"
)

type placeFlags struct {
	symbol      string
	side        string
	style       string
	margin      string
	size        float64
	price       float64
	leverage    int
	stopLoss    float64
	takeProfits []float64
	rangeBand   float64
	rangeSplits int
	risk        float64
	follow      bool
	timeout     time.Duration
}

func newPlaceCmd(app *App) *cobra.Command {
	f := &placeFlags{}

	cmd := &cobra.Command{
		Use:   "place",
		Short: "Place a trade on the master and mirror it to the subscribers",
		Long: `Place builds one entry, an optional stop loss and up to five take profits
for every target account and submits them concurrently. A failing account
never blocks the others.

Percentages are relative to the limit price, or to each account's market
price for market orders. With --follow the command stays attached and moves
each account's stop up the ladder as take profits fill.`,
		Example: `  sniper place --side long --size 0.01 --sl 2 --tp 1,2,3
  sniper place --side short --price 64000 --size 0.02 --leverage 20 --margin isolated --sl 1.5 --tp 1,2
  sniper place --side long --price 3000 --range-band 0.5 --range-splits 10 --risk 1 --sl 2 --tp 2,4 --follow`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withDesk(cmd, func(ctx context.Context, desk *engine.Desk) error {
				return runPlace(ctx, cmd, app.Config, desk, f)
			})
		},
	}

	cmd.Flags().StringVar(&f.symbol, "symbol", "", "symbol to trade (default: trading.default_symbol)")
	cmd.Flags().StringVar(&f.side, "side", "", "long or short")
	cmd.Flags().StringVar(&f.style, "style", "", "market or limit (default: limit when --price is set)")
	cmd.Flags().StringVar(&f.margin, "margin", "", "cross or isolated (default: trading.margin_mode)")
	cmd.Flags().Float64Var(&f.size, "size", 0, "position size in base units")
	cmd.Flags().Float64Var(&f.price, "price", 0, "limit price")
	cmd.Flags().IntVar(&f.leverage, "leverage", 0, "leverage (default: trading.default_leverage)")
	cmd.Flags().Float64Var(&f.stopLoss, "sl", 0, "stop loss distance in percent")
	cmd.Flags().Float64SliceVar(&f.takeProfits, "tp", nil, "take-profit distances in percent, ascending")
	cmd.Flags().Float64Var(&f.rangeBand, "range-band", 0, "spread the entry over +/- this percent")
	cmd.Flags().IntVar(&f.rangeSplits, "range-splits", 0, "number of entry orders in the range")
	cmd.Flags().Float64Var(&f.risk, "risk", 0, "size the position to lose this percent of master equity at the stop")
	cmd.Flags().BoolVar(&f.follow, "follow", false, "stay attached and ratchet stops until interrupted")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 30*time.Second, "how long to wait for every account to answer")
	_ = cmd.MarkFlagRequired("side")

	return cmd
}

// intent turns the flags into a trade intent, filling gaps from cfg.
func (f *placeFlags) intent(cfg *config.Config) (models.TradeIntent, error) {
	side, ok := models.ParsePositionSide(f.side)
	if !ok {
		return models.TradeIntent{}, errs.Invalid("side", f.side, "must be long or short")
	}

	style := models.OrderStyleMarket
	if f.price > 0 {
		style = models.OrderStyleLimit
	}
	if f.style != "" {
		if style, ok = models.ParseOrderStyle(f.style); !ok {
			return models.TradeIntent{}, errs.Invalid("style", f.style, "must be market or limit")
		}
	}

	marginName := f.margin
	if marginName == "" {
		marginName = cfg.Trading.MarginMode
	}
	margin, ok := models.ParseMarginMode(marginName)
	if !ok {
		return models.TradeIntent{}, errs.Invalid("margin", marginName, "must be cross or isolated")
	}

	symbol := strings.ToUpper(strings.TrimSpace(f.symbol))
	if symbol == "" {
		symbol = cfg.Trading.DefaultSymbol
	}
	leverage := f.leverage
	if leverage == 0 {
		leverage = cfg.Trading.DefaultLeverage
	}

	intent := models.TradeIntent{
		Symbol:          symbol,
		Side:            side,
		Style:           style,
		Size:            f.size,
		Leverage:        leverage,
		MarginMode:      margin,
		StopLossPercent: f.stopLoss,
		TakeProfits:     f.takeProfits,
	}
	if style == models.OrderStyleLimit {
		intent.Price = f.price
	}
	if f.rangeSplits > 0 || f.rangeBand > 0 {
		intent.RangeEntry = &models.RangeEntry{BandPercent: f.rangeBand, SplitCount: f.rangeSplits}
	}
	return intent, nil
}

func runPlace(ctx context.Context, cmd *cobra.Command, cfg *config.Config, desk *engine.Desk, f *placeFlags) error {
	out := NewOutput(cmd)

	intent, err := f.intent(cfg)
	if err != nil {
		return err
	}

	if f.risk > 0 {
		if f.size > 0 {
			return errs.Invalid("risk", f.risk, "use either --size or --risk")
		}
		if !intent.HasStopLoss() {
			return errs.Invalid("risk", f.risk, "risk sizing needs --sl")
		}
		intent.Size, err = desk.SizeForRisk(ctx, intent.Symbol, f.risk, intent.StopLossPercent, intent.Price)
		if err != nil {
			return err
		}
	}

	dispatch, err := desk.Place(ctx, intent)
	if err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	results, err := dispatch.Wait(waitCtx)
	if err != nil {
		return fmt.Errorf("accounts did not answer in %s: %w", f.timeout, err)
	}

	if err := printPlaceResults(out, results); err != nil {
		return err
	}

	failed := 0
	for _, res := range results {
		if !res.OK() {
			failed++
		}
	}
	if failed == len(results) {
		return fmt.Errorf("no account accepted the trade: %w", dispatch.Err())
	}

	if f.follow {
		out.Println("Following fills, interrupt to stop.")
		<-ctx.Done()
	}
	return nil
}

type placeLine struct {
	Account  string   `json:"account"`
	Master   bool     `json:"master"`
	Symbol   string   `json:"symbol"`
	Accepted int      `json:"accepted"`
	Orders   int      `json:"orders"`
	Warnings []string `json:"warnings,omitempty"`
	Error    string   `json:"error,omitempty"`
	Elapsed  string   `json:"elapsed"`
}

func printPlaceResults(out *Output, results []copytrade.Result) error {
	if !out.IsJSON() {
		for _, line := range copytrade.Summary(results) {
			out.Println(line)
		}
		for _, res := range results {
			for _, w := range res.Warnings {
				out.Printf("%s warning: %s\n", res.AccountID, w)
			}
		}
		return nil
	}

	lines := make([]placeLine, 0, len(results))
	for _, res := range results {
		line := placeLine{
			Account:  res.AccountID,
			Master:   res.Master,
			Symbol:   res.Symbol,
			Orders:   len(res.Acks),
			Warnings: res.Warnings,
			Elapsed:  res.Elapsed.String(),
		}
		for _, ack := range res.Acks {
			if ack.Accepted() {
				line.Accepted++
			}
		}
		if res.Err != nil {
			line.Error = res.Err.Error()
		}
		lines = append(lines, line)
	}
	return out.JSON(lines)
}
