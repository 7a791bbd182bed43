package sniffer

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	srcMAC = net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	dstMAC = net.HardwareAddr{0x66, 0x77, 0x88, 0x99, 0xaa, 0xbb}
)

func buildPacket(t *testing.T, transport gopacket.SerializableLayer, payload []byte) []byte {
	t.Helper()

	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		SrcIP:    net.IPv4(192, 168, 1, 10),
		DstIP:    net.IPv4(93, 184, 216, 34),
		Protocol: layers.IPProtocolTCP,
	}

	stack := []gopacket.SerializableLayer{
		&layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeIPv4},
		ip,
	}

	switch l := transport.(type) {
	case *layers.TCP:
		require.NoError(t, l.SetNetworkLayerForChecksum(ip))
	case *layers.UDP:
		ip.Protocol = layers.IPProtocolUDP
		require.NoError(t, l.SetNetworkLayerForChecksum(ip))
	}
	if transport != nil {
		stack = append(stack, transport)
	}
	if payload != nil {
		stack = append(stack, gopacket.Payload(payload))
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, stack...))
	return buf.Bytes()
}

func decode(data []byte) gopacket.Packet {
	return gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.Default)
}

func TestSummarize_TCPWithPayload(t *testing.T) {
	data := buildPacket(t, &layers.TCP{SrcPort: 51515, DstPort: 80, PSH: true, ACK: true, Window: 1024}, []byte("GET / HTTP/1.1"))

	s := Summarize(decode(data))

	require.NotNil(t, s.IP)
	assert.Equal(t, "192.168.1.10", s.IP.Src.String())
	assert.Equal(t, "93.184.216.34", s.IP.Dst.String())
	assert.Equal(t, uint8(6), s.IP.Protocol)
	assert.Equal(t, uint8(64), s.IP.TTL)

	require.NotNil(t, s.Transport)
	assert.Equal(t, "TCP", s.Transport.Proto)
	assert.Equal(t, uint16(51515), s.Transport.SrcPort)
	assert.Equal(t, uint16(80), s.Transport.DstPort)

	assert.Equal(t, []byte("GET / HTTP/1.1"), s.Payload)
}

func TestSummarize_UDP(t *testing.T) {
	data := buildPacket(t, &layers.UDP{SrcPort: 5353, DstPort: 53}, []byte("q"))

	s := Summarize(decode(data))

	require.NotNil(t, s.Transport)
	assert.Equal(t, "UDP", s.Transport.Proto)
	assert.Equal(t, uint16(5353), s.Transport.SrcPort)
	assert.Equal(t, uint16(53), s.Transport.DstPort)
	assert.Equal(t, uint8(17), s.IP.Protocol)
}

func TestSummarize_IPOnly(t *testing.T) {
	data := buildPacket(t, nil, nil)

	s := Summarize(decode(data))

	assert.NotNil(t, s.IP)
	assert.Nil(t, s.Transport)
	assert.Empty(t, s.Payload)
}

func TestSummary_Format(t *testing.T) {
	data := buildPacket(t, &layers.TCP{SrcPort: 1234, DstPort: 443, ACK: true}, []byte("hello"))
	var out bytes.Buffer

	Summarize(decode(data)).Format(&out)

	want := "\n=== New Packet Captured ===\n" +
		"[IP] Src: 192.168.1.10 -> Dst: 93.184.216.34\n" +
		"    Protocol: 6, TTL: 64\n" +
		"[TCP] Src Port: 1234 -> Dst Port: 443\n" +
		"[Payload] hello\n"
	assert.Equal(t, want, out.String())
}

func TestSummary_PayloadText(t *testing.T) {
	tests := []struct {
		name     string
		payload  []byte
		wantText string
		wantOK   bool
	}{
		{name: "ascii", payload: []byte("ping"), wantText: "ping", wantOK: true},
		{name: "invalid bytes dropped", payload: []byte{'o', 0xff, 'k'}, wantText: "ok", wantOK: true},
		{name: "nothing decodable", payload: []byte{0xff, 0xfe}, wantText: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, ok := Summary{Payload: tt.payload}.PayloadText()
			assert.Equal(t, tt.wantText, text)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestSummary_FormatRawBytes(t *testing.T) {
	var out bytes.Buffer
	Summary{Payload: []byte{0xff, 0xfe}}.Format(&out)
	assert.Contains(t, out.String(), `[Payload - Raw Bytes] "\xff\xfe"`)
}

func writeCapture(t *testing.T, packets ...[]byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "capture.pcap")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := pcapgo.NewWriter(f)
	require.NoError(t, w.WriteFileHeader(65536, layers.LinkTypeEthernet))
	for _, data := range packets {
		ci := gopacket.CaptureInfo{Timestamp: time.Now(), CaptureLength: len(data), Length: len(data)}
		require.NoError(t, w.WritePacket(ci, data))
	}
	return path
}

func TestCapture_FromFile(t *testing.T) {
	path := writeCapture(t,
		buildPacket(t, &layers.TCP{SrcPort: 1, DstPort: 2}, []byte("a")),
		buildPacket(t, &layers.UDP{SrcPort: 3, DstPort: 4}, []byte("b")),
		buildPacket(t, &layers.TCP{SrcPort: 5, DstPort: 6}, nil),
	)

	source, closer, err := OpenFile(path)
	require.NoError(t, err)
	defer closer.Close()

	var got []Summary
	n, err := Capture(context.Background(), source, Options{}, func(s Summary) { got = append(got, s) }, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, 3, n)
	require.Len(t, got, 3)
	assert.Equal(t, "UDP", got[1].Transport.Proto)
	assert.Equal(t, uint16(6), got[2].Transport.DstPort)
}

func TestCapture_Count(t *testing.T) {
	pkt := buildPacket(t, &layers.TCP{SrcPort: 1, DstPort: 2}, nil)
	path := writeCapture(t, pkt, pkt, pkt)

	source, closer, err := OpenFile(path)
	require.NoError(t, err)
	defer closer.Close()

	n, err := Capture(context.Background(), source, Options{Count: 2}, func(Summary) {}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCapture_Cancelled(t *testing.T) {
	pkt := buildPacket(t, &layers.TCP{SrcPort: 1, DstPort: 2}, nil)
	path := writeCapture(t, pkt)

	source, closer, err := OpenFile(path)
	require.NoError(t, err)
	defer closer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := Capture(ctx, source, Options{}, func(Summary) {}, zap.NewNop())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOpenFile_Missing(t *testing.T) {
	_, _, err := OpenFile(filepath.Join(t.TempDir(), "missing.pcap"))
	assert.Error(t, err)
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, isTimeout(timeoutError{}))
	assert.False(t, isTimeout(assert.AnError))
}
