package sink

import (
	"fmt"
	"io"
	"math"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/haolipeng/gopacket"
	"github.com/haolipeng/gopacket/layers"
	"github.com/haolipeng/gopacket/pcapgo"
	"github.com/rshravankumar10-design/threat_training_engine/pkg/types"
	"github.com/sirupsen/logrus"
)

const (
	snapLen = 65535

	ethernetHeaderLen = 14
	ipv4HeaderLen     = 20
	tcpHeaderLen      = 20
	udpHeaderLen      = 8
	icmpHeaderLen     = 8

	ephemeralPortBase = 49152
)

// 展示协议对应的目的端口，ICMP没有端口
var protocolPorts = map[string]uint16{
	"TCP":   8080,
	"UDP":   5353,
	"HTTP":  80,
	"HTTPS": 443,
	"DNS":   53,
	"FTP":   21,
	"SSH":   22,
}

// WriteCapture 把合成数据包写成以太网链路层的pcap
// 每帧长度等于记录的Length，info作为载荷，不足部分补零
func WriteCapture(w io.Writer, packets []types.SyntheticPacket, base time.Time) error {
	pcapWriter := pcapgo.NewWriter(w)
	if err := pcapWriter.WriteFileHeader(snapLen, layers.LinkTypeEthernet); err != nil {
		return fmt.Errorf("write pcap header: %w", err)
	}

	for i := range packets {
		data, err := BuildFrame(&packets[i])
		if err != nil {
			return fmt.Errorf("build frame %d: %w", packets[i].Number, err)
		}

		ci := gopacket.CaptureInfo{
			Timestamp:     base.Add(packetOffset(&packets[i])),
			CaptureLength: len(data),
			Length:        len(data),
		}
		if err := pcapWriter.WritePacket(ci, data); err != nil {
			return fmt.Errorf("write packet %d: %w", packets[i].Number, err)
		}
	}
	return nil
}

// WriteCaptureFile 写入pcap文件
func WriteCaptureFile(filename string, packets []types.SyntheticPacket, base time.Time) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("create pcap file: %w", err)
	}
	defer f.Close()

	if err := WriteCapture(f, packets, base); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"file":    filename,
		"packets": len(packets),
	}).Info("capture written")
	return nil
}

// BuildFrame 序列化一条合成记录为以太网帧
func BuildFrame(p *types.SyntheticPacket) ([]byte, error) {
	srcIP := net.ParseIP(p.SrcAddr).To4()
	dstIP := net.ParseIP(p.DstAddr).To4()
	if srcIP == nil || dstIP == nil {
		return nil, fmt.Errorf("invalid ipv4 address %q -> %q", p.SrcAddr, p.DstAddr)
	}

	eth := &layers.Ethernet{
		SrcMAC:       macFromIP(srcIP),
		DstMAC:       macFromIP(dstIP),
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version: 4,
		IHL:     5,
		TTL:     64,
		Id:      uint16(p.Number),
		SrcIP:   srcIP,
		DstIP:   dstIP,
	}

	var transport gopacket.SerializableLayer
	headerLen := ethernetHeaderLen + ipv4HeaderLen
	srcPort := uint16(ephemeralPortBase + p.Number)

	switch p.Protocol {
	case "UDP", "DNS":
		ip.Protocol = layers.IPProtocolUDP
		udp := &layers.UDP{
			SrcPort: layers.UDPPort(srcPort),
			DstPort: layers.UDPPort(protocolPorts[p.Protocol]),
		}
		if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
			return nil, err
		}
		transport = udp
		headerLen += udpHeaderLen
	case "ICMP":
		ip.Protocol = layers.IPProtocolICMPv4
		transport = &layers.ICMPv4{
			TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoRequest, 0),
			Id:       uint16(p.Number),
			Seq:      uint16(p.Number),
		}
		headerLen += icmpHeaderLen
	default:
		ip.Protocol = layers.IPProtocolTCP
		dstPort, ok := protocolPorts[p.Protocol]
		if !ok {
			dstPort = protocolPorts["TCP"]
		}
		tcp := &layers.TCP{
			SrcPort: layers.TCPPort(srcPort),
			DstPort: layers.TCPPort(dstPort),
			Seq:     uint32(p.Number),
			ACK:     true,
			PSH:     true,
			Window:  65535,
		}
		if err := tcp.SetNetworkLayerForChecksum(ip); err != nil {
			return nil, err
		}
		transport = tcp
		headerLen += tcpHeaderLen
	}

	payload := buildPayload(p.Info, p.Length-headerLen)

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, ip, transport, gopacket.Payload(payload)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func buildPayload(info string, size int) []byte {
	if size < 0 {
		size = 0
	}
	payload := make([]byte, size)
	copy(payload, info)
	return payload
}

// packetOffset 解析记录中的相对时间戳，失败时按序号推算
func packetOffset(p *types.SyntheticPacket) time.Duration {
	seconds, err := strconv.ParseFloat(p.Timestamp, 64)
	if err != nil {
		return time.Duration(p.Number-1) * 10 * time.Millisecond
	}
	// pcap时间戳精度为微秒
	return time.Duration(math.Round(seconds*1e6)) * time.Microsecond
}

// macFromIP 本地管理地址 02:00:a:b:c:d
func macFromIP(ip net.IP) net.HardwareAddr {
	return net.HardwareAddr{0x02, 0x00, ip[0], ip[1], ip[2], ip[3]}
}
