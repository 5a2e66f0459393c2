// Command enginectl is a thin cobra/viper CLI standing in for the host
// scheduler's canister entry points (SPEC_FULL.md §6): it wires every
// component together and exposes the engine's operations for local/dev
// invocation, since canister transport plumbing itself is out of scope
// (spec.md §1).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tidalswap/engine/internal/config"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewRootCmd builds the enginectl command tree, mirroring pawd's
// NewRootCmd shape: a persistent viper instance bound once, subcommands
// reading from it.
func NewRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:   "enginectl",
		Short: "Cross-chain exchange engine control CLI",
		Long: `enginectl drives the exchange transaction engine directly, without a
host canister in front of it: useful for local development, scripted
integration tests, and operational one-off commands (claim passes, archive
sweeps).`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
				v.SetConfigFile(cfgFile)
				if err := v.ReadInConfig(); err != nil {
					return err
				}
			}
			v.AutomaticEnv()
			return nil
		},
	}
	root.PersistentFlags().String("config", "", "path to a config file (yaml/json/toml)")
	root.PersistentFlags().String("environment", string(config.EnvLocal), "production or local")
	_ = v.BindPFlag("environment", root.PersistentFlags().Lookup("environment"))

	root.AddCommand(
		newServeCmd(v),
		newSwapCmd(v),
		newAddLiquidityCmd(v),
		newRemoveLiquidityCmd(v),
		newClaimsPassCmd(v),
		newArchiveCmd(v),
	)
	return root
}
