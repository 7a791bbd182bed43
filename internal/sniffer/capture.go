package sniffer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcapgo"
	"go.uber.org/zap"
)

// Handler receives each packet summary as it is captured.
type Handler func(Summary)

// Options controls a capture run.
type Options struct {
	// Count stops the capture after this many packets. Zero means unlimited.
	Count int
}

// Capture reads packets from source until ctx is cancelled, the source is
// exhausted or Count packets have been handled. Packets are not retained.
// Returns the number of packets handled.
func Capture(ctx context.Context, source *gopacket.PacketSource, opts Options, handle Handler, logger *zap.Logger) (int, error) {
	handled := 0
	for {
		if err := ctx.Err(); err != nil {
			return handled, nil
		}
		if opts.Count > 0 && handled >= opts.Count {
			return handled, nil
		}

		pkt, err := source.NextPacket()
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			return handled, nil
		case isTimeout(err):
			continue
		default:
			return handled, fmt.Errorf("failed to read packet: %w", err)
		}

		if errLayer := pkt.ErrorLayer(); errLayer != nil {
			logger.Debug("Packet partially decoded", zap.Error(errLayer.Error()))
		}

		handle(Summarize(pkt))
		handled++
	}
}

// OpenFile opens a pcap file for offline replay. The returned closer must be
// called once the capture finishes.
func OpenFile(path string) (*gopacket.PacketSource, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open capture file: %w", err)
	}

	r, err := pcapgo.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("failed to read pcap header: %w", err)
	}

	return gopacket.NewPacketSource(r, r.LinkType()), f, nil
}

// timeoutError marks a read that returned nothing because the capture
// timeout expired; the loop simply polls again.
type timeoutError struct{}

func (timeoutError) Error() string { return "capture read timeout" }
func (timeoutError) Timeout() bool { return true }

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
