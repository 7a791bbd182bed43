package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/taskkit/internal/config"
	"github.com/jonathan/taskkit/internal/sniffer"
)

var (
	sniffInterface string
	sniffFilter    string
	sniffReadFile  string
	sniffCount     int
)

var sniffCmd = &cobra.Command{
	Use:   "sniff",
	Short: "Capture packets and print IP, TCP/UDP and payload fields",
	Long: `Capture packets from a live interface (requires capture privileges) or replay a pcap file,
printing source and destination addresses, protocol, TTL, ports and payload for each packet.
Press Ctrl+C to stop.`,
	RunE: runSniff,
}

func init() {
	sniffCmd.Flags().StringVarP(&sniffInterface, "interface", "i", "", "Interface to capture on (default: first available)")
	sniffCmd.Flags().StringVarP(&sniffFilter, "filter", "f", "", "BPF filter expression, e.g. \"tcp port 80\"")
	sniffCmd.Flags().StringVarP(&sniffReadFile, "read", "r", "", "Replay packets from a pcap file instead of a live interface")
	sniffCmd.Flags().IntVarP(&sniffCount, "count", "c", 0, "Stop after this many packets (0 = unlimited)")
	rootCmd.AddCommand(sniffCmd)
}

//nolint:errcheck // console output
func runSniff(cmd *cobra.Command, _ []string) error {
	if sniffCount < 0 {
		return fmt.Errorf("--count must be non-negative")
	}
	flags := config.Config{Interface: sniffInterface, Filter: sniffFilter}
	cfg := flags.MergeWithDefaults(fileCfg)
	out := cmd.OutOrStdout()
	show := func(s sniffer.Summary) { s.Format(out) }
	opts := sniffer.Options{Count: sniffCount}

	ctx, stop := signalContext(cmd)
	defer stop()

	if sniffReadFile != "" {
		source, closer, err := sniffer.OpenFile(sniffReadFile)
		if err != nil {
			return err
		}
		defer func() { _ = closer.Close() }()

		fmt.Fprintf(out, "Reading packets from %s...\n", sniffReadFile)
		n, err := sniffer.Capture(ctx, source, opts, show, logger)
		logger.Info("capture finished", zap.String("file", sniffReadFile), zap.Int("packets", n))
		return err
	}

	handle, err := sniffer.OpenLive(cfg.Interface, cfg.Filter)
	if err != nil {
		return err
	}
	defer handle.Close()

	fmt.Fprintf(out, "Starting network sniffer on %s... Press Ctrl+C to stop.\n", handle.Device)
	n, err := sniffer.Capture(ctx, handle.Source(), opts, show, logger)
	logger.Info("capture finished", zap.String("interface", handle.Device), zap.Int("packets", n))
	return err
}
