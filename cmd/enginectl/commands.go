package main

import (
	"encoding/json"
	"fmt"

	"cosmossdk.io/math"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tidalswap/engine/internal/engine"
)

// newServeCmd runs every background scheduler until interrupted, the local
// stand-in for the host canister's heartbeat/timer entry points.
func newServeCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the engine's background schedulers until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(v)
			if err != nil {
				return err
			}
			app.Logger.Info("enginectl serving", "environment", app.Cfg.Environment)
			app.Scheduler.Run(cmd.Context())
			return nil
		},
	}
}

func newSwapCmd(v *viper.Viper) *cobra.Command {
	var userID uint32
	var payToken, receiveToken uint32
	var payAmount, minReceive string
	var maxSlippageBp uint32
	var receiveAddress string
	var pull bool

	cmd := &cobra.Command{
		Use:   "swap",
		Short: "execute a swap synchronously and print the resulting reply",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := buildApp(v)
			if err != nil {
				return err
			}
			amt, ok := math.NewIntFromString(payAmount)
			if !ok {
				return fmt.Errorf("invalid pay amount %q", payAmount)
			}
			min := math.ZeroInt()
			if minReceive != "" {
				min, ok = math.NewIntFromString(minReceive)
				if !ok {
					return fmt.Errorf("invalid min receive %q", minReceive)
				}
			}
			reply, err := app.Engine.Swap(cmd.Context(), engine.SwapArgs{
				UserID: userID, PayToken: payToken, PayAmount: amt,
				PayTx: engine.PayTx{Pull: pull}, ReceiveToken: receiveToken,
				MinReceive: min, MaxSlippageBp: maxSlippageBp, ReceiveAddress: receiveAddress,
			})
			if err != nil {
				return err
			}
			return printJSON(reply)
		},
	}
	cmd.Flags().Uint32Var(&userID, "user-id", 0, "acting user id")
	cmd.Flags().Uint32Var(&payToken, "pay-token", 0, "token id being paid in")
	cmd.Flags().StringVar(&payAmount, "pay-amount", "", "amount being paid in")
	cmd.Flags().Uint32Var(&receiveToken, "receive-token", 0, "token id being received")
	cmd.Flags().StringVar(&minReceive, "min-receive", "", "minimum acceptable receive amount")
	cmd.Flags().Uint32Var(&maxSlippageBp, "max-slippage-bp", 0, "max slippage in basis points, 0 = use default")
	cmd.Flags().StringVar(&receiveAddress, "receive-address", "", "canonical address to receive the output leg")
	cmd.Flags().BoolVar(&pull, "pull", true, "pull via delegated allowance instead of a push tx reference")
	return cmd
}

func newAddLiquidityCmd(v *viper.Viper) *cobra.Command {
	var userID uint32
	var token0, token1 uint32
	var amount0, amount1Max string

	cmd := &cobra.Command{
		Use:   "add-liquidity",
		Short: "deposit into a pool synchronously and print the resulting reply",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := buildApp(v)
			if err != nil {
				return err
			}
			amt0, ok := math.NewIntFromString(amount0)
			if !ok {
				return fmt.Errorf("invalid amount0 %q", amount0)
			}
			amt1, ok := math.NewIntFromString(amount1Max)
			if !ok {
				return fmt.Errorf("invalid amount1-max %q", amount1Max)
			}
			reply, err := app.Engine.AddLiquidity(cmd.Context(), engine.AddLiquidityArgs{
				UserID: userID,
				Token0: token0, Amount0: amt0, PayTx0: engine.PayTx{Pull: true},
				Token1: token1, Amount1Max: amt1, PayTx1: engine.PayTx{Pull: true},
			})
			if err != nil {
				return err
			}
			return printJSON(reply)
		},
	}
	cmd.Flags().Uint32Var(&userID, "user-id", 0, "acting user id")
	cmd.Flags().Uint32Var(&token0, "token0", 0, "pool's token_id_0")
	cmd.Flags().StringVar(&amount0, "amount0", "", "exact amount of token0 to deposit")
	cmd.Flags().Uint32Var(&token1, "token1", 0, "pool's token_id_1")
	cmd.Flags().StringVar(&amount1Max, "amount1-max", "", "maximum amount of token1 willing to deposit")
	return cmd
}

func newRemoveLiquidityCmd(v *viper.Viper) *cobra.Command {
	var userID uint32
	var poolID uint64
	var lpAmount string
	var receive0, receive1 string

	cmd := &cobra.Command{
		Use:   "remove-liquidity",
		Short: "withdraw from a pool synchronously and print the resulting reply",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := buildApp(v)
			if err != nil {
				return err
			}
			amt, ok := math.NewIntFromString(lpAmount)
			if !ok {
				return fmt.Errorf("invalid lp amount %q", lpAmount)
			}
			reply, err := app.Engine.RemoveLiquidity(cmd.Context(), engine.RemoveLiquidityArgs{
				UserID: userID, PoolID: poolID, LPAmount: amt,
				Receive0Address: receive0, Receive1Address: receive1,
			})
			if err != nil {
				return err
			}
			return printJSON(reply)
		},
	}
	cmd.Flags().Uint32Var(&userID, "user-id", 0, "acting user id")
	cmd.Flags().Uint64Var(&poolID, "pool-id", 0, "pool id")
	cmd.Flags().StringVar(&lpAmount, "lp-amount", "", "amount of LP token to burn")
	cmd.Flags().StringVar(&receive0, "receive0-address", "", "canonical address to receive token0")
	cmd.Flags().StringVar(&receive1, "receive1-address", "", "canonical address to receive token1")
	return cmd
}

func newClaimsPassCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "claims-pass",
		Short: "run one claims retry pass immediately",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := buildApp(v)
			if err != nil {
				return err
			}
			app.ClaimProc.RunPass(cmd.Context())
			return nil
		},
	}
}

func newArchiveCmd(v *viper.Viper) *cobra.Command {
	var cursor uint64
	var kind string

	cmd := &cobra.Command{
		Use:   "archive",
		Short: "archive requests or transfers up to a cursor immediately",
		RunE: func(_ *cobra.Command, _ []string) error {
			app, err := buildApp(v)
			if err != nil {
				return err
			}
			var n int
			switch kind {
			case "requests":
				n = app.Requests.ArchiveUpTo(cursor)
			case "transfers":
				n = app.Ledger.ArchiveUpTo(cursor)
			default:
				return fmt.Errorf("unknown archive kind %q, want requests or transfers", kind)
			}
			fmt.Printf("archived %d %s\n", n, kind)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&cursor, "cursor", 0, "archive everything with id <= cursor")
	cmd.Flags().StringVar(&kind, "kind", "requests", "requests or transfers")
	return cmd
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
