package cli

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"sniper/internal/engine"
)

func newAccountsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "Connect every account and show equity and open positions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withDesk(cmd, func(ctx context.Context, desk *engine.Desk) error {
				statuses, err := desk.Status(ctx)
				out := NewOutput(cmd)
				if out.IsJSON() {
					if jsonErr := out.JSON(statuses); jsonErr != nil {
						return jsonErr
					}
					return err
				}

				out.Printf("%s\n\n", desk.Describe())
				for _, st := range statuses {
					role := "subscriber"
					if st.Master {
						role = "master"
					}
					if st.Error != "" {
						out.Printf("%-16s %-10s FAILED %s\n", st.AccountID, role, st.Error)
						continue
					}
					out.Printf("%-16s %-10s equity %s %s\n", st.AccountID, role, formatAmount(st.Equity), app.Config.Trading.EquityAsset)
					for _, pos := range st.Positions {
						out.Printf("  %-12s %-5s size %s entry %s upnl %s\n",
							pos.Symbol, pos.Side, formatAmount(pos.Size), formatAmount(pos.EntryPrice), formatAmount(pos.UnrealPnL))
					}
					if st.StopLoss > 0 {
						out.Printf("  stop %s, %d take profits tracked\n", formatAmount(st.StopLoss), len(st.Ladder))
					}
				}
				return err
			})
		},
	}
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
