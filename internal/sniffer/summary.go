// Package sniffer captures packets and prints the fields of their IP,
// transport and application layers. Dissection is delegated to gopacket.
package sniffer

import (
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// IPInfo holds the network-layer fields printed for a packet.
type IPInfo struct {
	Src      net.IP
	Dst      net.IP
	Protocol uint8 // IPv4 protocol or IPv6 next header
	TTL      uint8 // IPv4 TTL or IPv6 hop limit
}

// PortInfo holds transport-layer ports. Proto is "TCP" or "UDP".
type PortInfo struct {
	Proto   string
	SrcPort uint16
	DstPort uint16
}

// Summary is what the sniffer reports about one captured packet.
type Summary struct {
	IP        *IPInfo
	Transport *PortInfo
	Payload   []byte
}

// Summarize extracts the reported fields from a decoded packet.
// TCP takes precedence over UDP when both are somehow present.
func Summarize(pkt gopacket.Packet) Summary {
	var s Summary

	if l := pkt.Layer(layers.LayerTypeIPv4); l != nil {
		ip := l.(*layers.IPv4)
		s.IP = &IPInfo{Src: ip.SrcIP, Dst: ip.DstIP, Protocol: uint8(ip.Protocol), TTL: ip.TTL}
	} else if l := pkt.Layer(layers.LayerTypeIPv6); l != nil {
		ip := l.(*layers.IPv6)
		s.IP = &IPInfo{Src: ip.SrcIP, Dst: ip.DstIP, Protocol: uint8(ip.NextHeader), TTL: ip.HopLimit}
	}

	if l := pkt.Layer(layers.LayerTypeTCP); l != nil {
		tcp := l.(*layers.TCP)
		s.Transport = &PortInfo{Proto: "TCP", SrcPort: uint16(tcp.SrcPort), DstPort: uint16(tcp.DstPort)}
	} else if l := pkt.Layer(layers.LayerTypeUDP); l != nil {
		udp := l.(*layers.UDP)
		s.Transport = &PortInfo{Proto: "UDP", SrcPort: uint16(udp.SrcPort), DstPort: uint16(udp.DstPort)}
	}

	if app := pkt.ApplicationLayer(); app != nil && len(app.Payload()) > 0 {
		s.Payload = app.Payload()
	}

	return s
}

// PayloadText decodes the payload as UTF-8, silently dropping invalid bytes.
// ok is false when nothing printable survives.
func (s Summary) PayloadText() (text string, ok bool) {
	text = strings.ToValidUTF8(string(s.Payload), "")
	return text, text != ""
}

// Format writes the human-readable report for the packet.
//
//nolint:errcheck // console output; a failed write has nowhere to go
func (s Summary) Format(w io.Writer) {
	fmt.Fprintln(w, "\n=== New Packet Captured ===")

	if s.IP != nil {
		fmt.Fprintf(w, "[IP] Src: %s -> Dst: %s\n", s.IP.Src, s.IP.Dst)
		fmt.Fprintf(w, "    Protocol: %d, TTL: %d\n", s.IP.Protocol, s.IP.TTL)
	}

	if s.Transport != nil {
		fmt.Fprintf(w, "[%s] Src Port: %d -> Dst Port: %d\n", s.Transport.Proto, s.Transport.SrcPort, s.Transport.DstPort)
	}

	if len(s.Payload) > 0 {
		if text, ok := s.PayloadText(); ok {
			fmt.Fprintf(w, "[Payload] %s\n", text)
		} else {
			fmt.Fprintf(w, "[Payload - Raw Bytes] %q\n", s.Payload)
		}
	}
}
