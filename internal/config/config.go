// Package config holds the tunable knobs shared by every DSN subsystem.
//
// Values mirror the defaults a node ships with; nothing here reaches out to
// the environment or flags — callers (cmd/dsnd, tests) decide how a Config
// is populated.
package config

import (
	"fmt"
	"time"
)

// Config collects every knob a DSN node needs. Zero value is invalid; use
// New to obtain a Config with defaults applied.
type Config struct {
	CoherenceThreshold  float64
	RedundancyThreshold float64
	StabilityThreshold  float64
	VotingQuorum        int
	VoteDeadline        time.Duration
	MaxEvalSteps        int
	ProposalLogCap      int
	TransportQueueCap   int
	ReconnectMaxAttempts int
	ReconnectBaseDelay  time.Duration
	BrokerCleanupInterval time.Duration
	WSPingInterval      time.Duration
	LongPollTimeout     time.Duration
	PollInterval        time.Duration
}

// Option mutates a Config during construction.
type Option func(*Config)

// Default returns the §6 defaults.
func Default() Config {
	return Config{
		CoherenceThreshold:     0.7,
		RedundancyThreshold:    0.6,
		StabilityThreshold:     0.5,
		VotingQuorum:           3,
		VoteDeadline:           5 * time.Second,
		MaxEvalSteps:           1000,
		ProposalLogCap:         10000,
		TransportQueueCap:      1000,
		ReconnectMaxAttempts:   5,
		ReconnectBaseDelay:     time.Second,
		BrokerCleanupInterval:  60 * time.Second,
		WSPingInterval:         30 * time.Second,
		LongPollTimeout:        30 * time.Second,
		PollInterval:           time.Second,
	}
}

// New builds a Config starting from Default and applying opts in order.
func New(opts ...Option) Config {
	cfg := Default()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func WithCoherenceThreshold(v float64) Option  { return func(c *Config) { c.CoherenceThreshold = v } }
func WithRedundancyThreshold(v float64) Option { return func(c *Config) { c.RedundancyThreshold = v } }
func WithStabilityThreshold(v float64) Option  { return func(c *Config) { c.StabilityThreshold = v } }
func WithVotingQuorum(n int) Option            { return func(c *Config) { c.VotingQuorum = n } }
func WithVoteDeadline(d time.Duration) Option  { return func(c *Config) { c.VoteDeadline = d } }
func WithMaxEvalSteps(n int) Option            { return func(c *Config) { c.MaxEvalSteps = n } }
func WithProposalLogCap(n int) Option          { return func(c *Config) { c.ProposalLogCap = n } }
func WithTransportQueueCap(n int) Option       { return func(c *Config) { c.TransportQueueCap = n } }
func WithReconnectMaxAttempts(n int) Option    { return func(c *Config) { c.ReconnectMaxAttempts = n } }
func WithReconnectBaseDelay(d time.Duration) Option {
	return func(c *Config) { c.ReconnectBaseDelay = d }
}
func WithBrokerCleanupInterval(d time.Duration) Option {
	return func(c *Config) { c.BrokerCleanupInterval = d }
}
func WithWSPingInterval(d time.Duration) Option  { return func(c *Config) { c.WSPingInterval = d } }
func WithLongPollTimeout(d time.Duration) Option { return func(c *Config) { c.LongPollTimeout = d } }
func WithPollInterval(d time.Duration) Option    { return func(c *Config) { c.PollInterval = d } }

// Validate rejects combinations that can never produce sane protocol
// behavior. Defaults always validate.
func (c Config) Validate() error {
	if c.CoherenceThreshold < 0 || c.CoherenceThreshold > 1 {
		return fmt.Errorf("config: coherenceThreshold %.3f out of [0,1]", c.CoherenceThreshold)
	}
	if c.RedundancyThreshold < 0 || c.RedundancyThreshold > 1 {
		return fmt.Errorf("config: redundancyThreshold %.3f out of [0,1]", c.RedundancyThreshold)
	}
	if c.StabilityThreshold < 0 || c.StabilityThreshold > 1 {
		return fmt.Errorf("config: stabilityThreshold %.3f out of [0,1]", c.StabilityThreshold)
	}
	if c.VotingQuorum < 1 {
		return fmt.Errorf("config: votingQuorum must be >= 1, got %d", c.VotingQuorum)
	}
	if c.MaxEvalSteps < 1 {
		return fmt.Errorf("config: maxEvalSteps must be >= 1, got %d", c.MaxEvalSteps)
	}
	if c.ProposalLogCap < 1 {
		return fmt.Errorf("config: proposalLogCap must be >= 1, got %d", c.ProposalLogCap)
	}
	if c.TransportQueueCap < 1 {
		return fmt.Errorf("config: transportQueueCap must be >= 1, got %d", c.TransportQueueCap)
	}
	if c.ReconnectMaxAttempts < 0 {
		return fmt.Errorf("config: reconnectMaxAttempts must be >= 0, got %d", c.ReconnectMaxAttempts)
	}
	return nil
}
