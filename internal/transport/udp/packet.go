// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

/*
UDP Packet Structure (BigEndian)

+-----------------------------------------------------------------------------+
| Field             | Data Type      | Size (Bytes) | Description             |
|-------------------|----------------|--------------|-------------------------|
| Sequence Number   | uint32         | 4            | Monotonically increasing|
| Timestamp         | int64          | 8            | Nanoseconds since epoch |
| Bar Count         | uint16         | 2            | Number of floats (N)    |
| Bars              | []float32      | N * 4        | Bar intensities         |
+-----------------------------------------------------------------------------+
*/

// HeaderSize is the fixed packet prefix before the bar payload.
const HeaderSize = 4 + 8 + 2

// Packet is one decoded bar frame.
type Packet struct {
	Sequence  uint32
	Timestamp int64
	Bars      []float32
}

// EncodePacket writes the packet for one frame into buf, replacing its contents.
func EncodePacket(buf *bytes.Buffer, seq uint32, timestamp int64, bars []float32) error {
	if len(bars) > math.MaxUint16 {
		return fmt.Errorf("frame has %d bars, packet limit is %d", len(bars), math.MaxUint16)
	}

	buf.Reset()
	buf.Grow(HeaderSize + 4*len(bars))

	var header [HeaderSize]byte
	binary.BigEndian.PutUint32(header[0:4], seq)
	binary.BigEndian.PutUint64(header[4:12], uint64(timestamp))
	binary.BigEndian.PutUint16(header[12:14], uint16(len(bars)))
	buf.Write(header[:])

	var word [4]byte
	for _, v := range bars {
		binary.BigEndian.PutUint32(word[:], math.Float32bits(v))
		buf.Write(word[:])
	}
	return nil
}

// DecodePacket parses a packet produced by EncodePacket.
func DecodePacket(data []byte) (Packet, error) {
	if len(data) < HeaderSize {
		return Packet{}, fmt.Errorf("packet is %d bytes, shorter than the %d byte header", len(data), HeaderSize)
	}

	p := Packet{
		Sequence:  binary.BigEndian.Uint32(data[0:4]),
		Timestamp: int64(binary.BigEndian.Uint64(data[4:12])),
	}
	count := int(binary.BigEndian.Uint16(data[12:14]))

	payload := data[HeaderSize:]
	if len(payload) != 4*count {
		return Packet{}, fmt.Errorf("packet declares %d bars but carries %d payload bytes", count, len(payload))
	}

	p.Bars = make([]float32, count)
	for i := range p.Bars {
		p.Bars[i] = math.Float32frombits(binary.BigEndian.Uint32(payload[4*i:]))
	}
	return p, nil
}
