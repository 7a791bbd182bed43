package sniffer

import (
	"fmt"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"
)

const (
	snapshotLen = 65536
	readTimeout = 500 * time.Millisecond
)

// liveSource converts pcap's timeout sentinel into a timeoutError so that
// Capture can check for cancellation between reads.
type liveSource struct {
	handle *pcap.Handle
}

func (s liveSource) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	data, ci, err := s.handle.ReadPacketData()
	if err == pcap.NextErrorTimeoutExpired {
		return nil, ci, timeoutError{}
	}
	return data, ci, err
}

// LiveHandle wraps an open pcap handle.
type LiveHandle struct {
	handle *pcap.Handle
	Device string
}

// OpenLive starts a promiscuous capture on device. An empty device picks the
// first interface pcap reports. filter, when set, is a BPF expression.
func OpenLive(device, filter string) (*LiveHandle, error) {
	if device == "" {
		devs, err := pcap.FindAllDevs()
		if err != nil {
			return nil, fmt.Errorf("failed to list interfaces: %w", err)
		}
		if len(devs) == 0 {
			return nil, fmt.Errorf("no capture interfaces found (are you running with enough privileges?)")
		}
		device = devs[0].Name
	}

	handle, err := pcap.OpenLive(device, snapshotLen, true, readTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", device, err)
	}

	if filter != "" {
		if err := handle.SetBPFFilter(filter); err != nil {
			handle.Close()
			return nil, fmt.Errorf("invalid BPF filter %q: %w", filter, err)
		}
	}

	return &LiveHandle{handle: handle, Device: device}, nil
}

// Source returns a packet source reading from the live handle.
func (h *LiveHandle) Source() *gopacket.PacketSource {
	return gopacket.NewPacketSource(liveSource{handle: h.handle}, h.handle.LinkType())
}

// Close releases the capture handle.
func (h *LiveHandle) Close() {
	h.handle.Close()
}
