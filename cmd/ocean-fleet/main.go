// Package main provides the ocean-fleet command, which generates node wallets and
// one docker compose descriptor per node.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	logging "github.com/ipfs/go-log/v2"
	"github.com/spf13/cobra"

	"github.com/spacedatanetwork/ocean-fleet/internal/config"
	"github.com/spacedatanetwork/ocean-fleet/internal/fleet"
)

var log = logging.Logger("ocean-fleet")

const usage = "Usage: ocean-fleet <IP_ADDRESS> <NUM_NODES>"

// usageError marks failures that are answered with the usage line.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func newRootCmd(stdout io.Writer) *cobra.Command {
	var (
		configPath    string
		outputDir     string
		inventoryPath string
		saveConfig    string
		debug         bool
	)

	cmd := &cobra.Command{
		Use:   "ocean-fleet <IP_ADDRESS> <NUM_NODES>",
		Short: "Generate wallets and compose files for a fleet of ocean nodes",
		Long: `ocean-fleet generates NUM_NODES secp256k1 wallets, saves them to wallets.json and
writes one docker compose file per wallet. Every node gets its own port range and
announces itself on IP_ADDRESS; all nodes share a typesense indexer definition.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return usageError{fmt.Errorf("expected 2 arguments, got %d", len(args))}
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug {
				logging.SetAllLoggers(logging.LevelDebug)
			} else {
				logging.SetAllLoggers(logging.LevelInfo)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ip := args[0]
			count, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid node count %q: %w", args[1], err)
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if outputDir != "" {
				cfg.Output.Dir = outputDir
			}

			log.Debugf("Provisioning %d nodes announcing on %s", count, ip)
			res, err := fleet.New(cfg, fleet.WithOutput(cmd.OutOrStdout())).Run(ip, count)
			if err != nil {
				return err
			}

			if inventoryPath != "" {
				if err := fleet.WriteInventory(inventoryPath, res); err != nil {
					return err
				}
			}
			if saveConfig != "" {
				if err := config.Save(saveConfig, cfg); err != nil {
					return fmt.Errorf("failed to save config: %w", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file path")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "directory for generated files")
	cmd.Flags().StringVar(&inventoryPath, "inventory", "", "also write a node inventory to this file")
	cmd.Flags().StringVar(&saveConfig, "save-config", "", "write the effective configuration to this file")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
	// Everything after IP_ADDRESS is positional so a negative count is not read as a flag.
	cmd.Flags().SetInterspersed(false)

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})
	cmd.SetOut(stdout)
	return cmd
}

func run(args []string, stdout, stderr io.Writer) int {
	if args == nil {
		args = []string{}
	}

	cmd := newRootCmd(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)

	if err := cmd.Execute(); err != nil {
		var ue usageError
		if errors.As(err, &ue) {
			fmt.Fprintln(stdout, usage)
			return 1
		}
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
