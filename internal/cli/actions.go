package cli

import (
	"context"

	"github.com/spf13/cobra"

	"sniper/internal/engine"
)

type deskAction func(ctx context.Context, desk *engine.Desk) []engine.AccountResult

func newActionCmd(app *App, use, short string, action deskAction) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withDesk(cmd, func(ctx context.Context, desk *engine.Desk) error {
				return NewOutput(cmd).AccountResults(action(ctx, desk))
			})
		},
	}
}

func newCancelAllCmd(app *App) *cobra.Command {
	return newActionCmd(app, "cancel-all", "Cancel every open order on every account", func(ctx context.Context, desk *engine.Desk) []engine.AccountResult {
		return desk.CancelAll(ctx)
	})
}

func newResetTPsCmd(app *App) *cobra.Command {
	return newActionCmd(app, "reset-tps", "Clear the take-profit ladders and cancel resting targets", func(ctx context.Context, desk *engine.Desk) []engine.AccountResult {
		return desk.ResetTakeProfits(ctx)
	})
}

func newCancelTPsCmd(app *App) *cobra.Command {
	return newActionCmd(app, "cancel-tps", "Cancel resting take profits on every account", func(ctx context.Context, desk *engine.Desk) []engine.AccountResult {
		return desk.CancelTakeProfits(ctx)
	})
}

func newCloseAllCmd(app *App) *cobra.Command {
	return newActionCmd(app, "close-all", "Close every open position with reduce-only market orders", func(ctx context.Context, desk *engine.Desk) []engine.AccountResult {
		return desk.CloseAll(ctx)
	})
}
