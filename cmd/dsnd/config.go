package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dsnproject/dsn-core/internal/config"
)

// PeerConfig names a long-poll peer this node dials on startup.
type PeerConfig struct {
	NodeID  string `yaml:"node_id"`
	BaseURL string `yaml:"base_url"`
}

// NodeConfig is the on-disk shape of a dsnd config file: node identity,
// the PRRC channel it joins, and the knobs internal/config.Config exposes.
// cmd/dsnd is a thin binary around the core library (SPEC_FULL.md's
// supplemented-features note); none of this shape is part of the core's
// own wire or data model.
type NodeConfig struct {
	NodeID         string  `yaml:"node_id"`
	ChannelID      string  `yaml:"channel_id"`
	PrimeSet       []int   `yaml:"prime_set,omitempty"`
	PhaseReference float64 `yaml:"phase_reference,omitempty"`

	ListenAddr string       `yaml:"listen_addr,omitempty"`
	Peers      []PeerConfig `yaml:"peers,omitempty"`

	CoherenceThreshold  float64 `yaml:"coherence_threshold,omitempty"`
	RedundancyThreshold float64 `yaml:"redundancy_threshold,omitempty"`
	StabilityThreshold  float64 `yaml:"stability_threshold,omitempty"`
	VotingQuorum        int     `yaml:"voting_quorum,omitempty"`
	VoteDeadline        string  `yaml:"vote_deadline,omitempty"`
	MaxEvalSteps        int     `yaml:"max_eval_steps,omitempty"`
	LongPollTimeout     string  `yaml:"long_poll_timeout,omitempty"`
}

// LoadConfig reads and parses a dsnd config file.
func LoadConfig(path string) (*NodeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dsnd: read config: %w", err)
	}
	cfg := &NodeConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("dsnd: parse config: %w", err)
	}
	if cfg.NodeID == "" {
		return nil, fmt.Errorf("dsnd: config missing node_id")
	}
	if cfg.ChannelID == "" {
		return nil, fmt.Errorf("dsnd: config missing channel_id")
	}
	return cfg, nil
}

// parseDuration defaults to the given value when s is empty, matching
// internal/config.Default's knob for the same setting.
func parseDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	return time.ParseDuration(s)
}

// toConfigOptions translates the YAML knobs onto internal/config.Option
// overrides, leaving anything unset at internal/config.Default's value.
func (n *NodeConfig) toConfigOptions() ([]config.Option, error) {
	def := config.Default()
	var opts []config.Option

	if n.CoherenceThreshold != 0 {
		opts = append(opts, config.WithCoherenceThreshold(n.CoherenceThreshold))
	}
	if n.RedundancyThreshold != 0 {
		opts = append(opts, config.WithRedundancyThreshold(n.RedundancyThreshold))
	}
	if n.StabilityThreshold != 0 {
		opts = append(opts, config.WithStabilityThreshold(n.StabilityThreshold))
	}
	if n.VotingQuorum != 0 {
		opts = append(opts, config.WithVotingQuorum(n.VotingQuorum))
	}
	if n.MaxEvalSteps != 0 {
		opts = append(opts, config.WithMaxEvalSteps(n.MaxEvalSteps))
	}

	voteDeadline, err := parseDuration(n.VoteDeadline, def.VoteDeadline)
	if err != nil {
		return nil, fmt.Errorf("dsnd: vote_deadline: %w", err)
	}
	opts = append(opts, config.WithVoteDeadline(voteDeadline))

	longPollTimeout, err := parseDuration(n.LongPollTimeout, def.LongPollTimeout)
	if err != nil {
		return nil, fmt.Errorf("dsnd: long_poll_timeout: %w", err)
	}
	opts = append(opts, config.WithLongPollTimeout(longPollTimeout))

	return opts, nil
}
