package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dsnproject/dsn-core/internal/config"
	"github.com/dsnproject/dsn-core/internal/gmf"
	"github.com/dsnproject/dsn-core/internal/logging"
	"github.com/dsnproject/dsn-core/internal/metrics"
	"github.com/dsnproject/dsn-core/internal/relay"
	"github.com/dsnproject/dsn-core/internal/syncer"
	"github.com/dsnproject/dsn-core/internal/transport"
)

func runCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a DSN node from a config file",
		Long:  `Starts a node, optionally serving the long-poll/SSE demo endpoints and dialing configured peers, until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNode(cmd, configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "dsnd.yaml", "path to the node config file")
	return cmd
}

// emptySnapshotSource is handed to Join/Reconnect when the only transport
// available is an HTTP one: nothing in spec.md §6 defines a wire message
// for pulling a remote node's GMF snapshot, so a freshly dialed peer is
// treated as having nothing to catch up on, and subsequent state flows
// through ordinary proposal/vote traffic instead.
type emptySnapshotSource struct{}

func (emptySnapshotSource) SnapshotID() int64                { return 0 }
func (emptySnapshotSource) GetDeltasSince(int64) []gmf.Delta { return nil }
func (emptySnapshotSource) Get(string) (gmf.Entry, bool)     { return gmf.Entry{}, false }

func runNode(cmd *cobra.Command, configPath string) error {
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

	log := logging.NewLogrusAdapter(logrus.StandardLogger())
	met := metrics.NewPrometheusRecorder(prometheus.NewRegistry())

	node := syncer.New(nc.NodeID, nc.ChannelID, nc.PrimeSet, nc.PhaseReference, cfg, log, met)

	var srv *http.Server
	if nc.ListenAddr != "" {
		rs := relay.NewServer(cfg.LongPollTimeout, log)
		srv = &http.Server{Addr: nc.ListenAddr, Handler: rs.Router()}
		go func() {
			log.Info("dsnd: serving demo endpoints", "addr", nc.ListenAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("dsnd: relay server stopped", "error", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, peer := range nc.Peers {
		lp := transport.NewLongPollTransport(peer.BaseURL, cfg.TransportQueueCap, cfg.ReconnectBaseDelay, cfg.ReconnectMaxAttempts, cfg.LongPollTimeout, cfg.PollInterval, log)
		if err := node.Join(ctx, peer.NodeID, lp, emptySnapshotSource{}); err != nil {
			log.Warn("dsnd: join failed", "peer", peer.NodeID, "error", err)
			continue
		}
		log.Info("dsnd: joined peer", "peer", peer.NodeID, "baseUrl", peer.BaseURL)
	}

	log.Info("dsnd: node running", "nodeId", nc.NodeID, "channelId", nc.ChannelID)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("dsnd: shutting down")
	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}
	return nil
}
