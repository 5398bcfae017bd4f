package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dsnproject/dsn-core/internal/config"
)

func statusCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Validate a config file and print the node's resolved settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printStatus(cmd, configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "dsnd.yaml", "path to the node config file")
	return cmd
}

func printStatus(cmd *cobra.Command, configPath string) error {
	nc, err := LoadConfig(configPath)
	if err != nil {
		return err
	}
	opts, err := nc.toConfigOptions()
	if err != nil {
		return err
	}
	cfg := config.New(opts...)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("dsnd: invalid config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "node_id:              %s\n", nc.NodeID)
	fmt.Fprintf(out, "channel_id:           %s\n", nc.ChannelID)
	fmt.Fprintf(out, "prime_set:            %v\n", nc.PrimeSet)
	fmt.Fprintf(out, "phase_reference:      %.4f\n", nc.PhaseReference)
	fmt.Fprintf(out, "listen_addr:          %s\n", nc.ListenAddr)
	fmt.Fprintf(out, "peers:                %d configured\n", len(nc.Peers))
	fmt.Fprintf(out, "coherence_threshold:  %.3f\n", cfg.CoherenceThreshold)
	fmt.Fprintf(out, "redundancy_threshold: %.3f\n", cfg.RedundancyThreshold)
	fmt.Fprintf(out, "voting_quorum:        %d\n", cfg.VotingQuorum)
	fmt.Fprintf(out, "vote_deadline:        %s\n", cfg.VoteDeadline)
	fmt.Fprintf(out, "max_eval_steps:       %d\n", cfg.MaxEvalSteps)
	return nil
}
