// SPDX-License-Identifier: MIT
package udp

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"visualizer/internal/log"
)

// MaxPacketSize is the largest payload a single IPv4 UDP datagram carries.
const MaxPacketSize = 65507

// ErrClosed is returned by Send once the sender has been closed.
var ErrClosed = errors.New("udp: sender closed")

// Writes to a peer that stops reading must not stall the publisher tick.
const writeTimeout = 50 * time.Millisecond

// SenderStats counts what a Sender has put on the wire.
type SenderStats struct {
	Packets uint64
	Bytes   uint64
	Failed  uint64
}

// Sender writes encoded bar packets to one connected UDP peer.
type Sender struct {
	mu     sync.Mutex // guards conn; nil once closed
	conn   *net.UDPConn
	target *net.UDPAddr

	packets atomic.Uint64
	bytes   atomic.Uint64
	failed  atomic.Uint64
}

// NewSender resolves target ("host:port") and connects a socket to it.
func NewSender(target string) (*Sender, error) {
	addr, err := net.ResolveUDPAddr("udp", target)
	if err != nil {
		return nil, fmt.Errorf("udp: resolve target %q: %w", target, err)
	}
	if addr.Port == 0 {
		return nil, fmt.Errorf("udp: target %q has no port", target)
	}

	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("udp: dial %s: %w", addr, err)
	}

	log.L().Info("udp: sender ready",
		zap.Stringer("target", addr),
		zap.Stringer("local", conn.LocalAddr()))

	return &Sender{conn: conn, target: addr}, nil
}

// Target returns the resolved destination address.
func (s *Sender) Target() *net.UDPAddr {
	return s.target
}

// Send writes one packet as a single datagram.
func (s *Sender) Send(packet []byte) error {
	if len(packet) > MaxPacketSize {
		s.failed.Add(1)
		return fmt.Errorf("udp: packet of %d bytes exceeds %d", len(packet), MaxPacketSize)
	}

	s.mu.Lock()
	if s.conn == nil {
		s.mu.Unlock()
		return ErrClosed
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	n, err := s.conn.Write(packet)
	s.mu.Unlock()

	if err != nil {
		s.failed.Add(1)
		log.Debugf("udp: send to %s failed: %v", s.target, err)
		return fmt.Errorf("udp: send %d bytes: %w", len(packet), err)
	}
	s.packets.Add(1)
	s.bytes.Add(uint64(n))
	return nil
}

// Stats returns the counters accumulated so far.
func (s *Sender) Stats() SenderStats {
	return SenderStats{
		Packets: s.packets.Load(),
		Bytes:   s.bytes.Load(),
		Failed:  s.failed.Load(),
	}
}

// Close releases the socket. Later calls are no-ops.
func (s *Sender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil

	st := s.Stats()
	log.L().Info("udp: sender closed",
		zap.Stringer("target", s.target),
		zap.Uint64("packets", st.Packets),
		zap.Uint64("bytes", st.Bytes),
		zap.Uint64("failed", st.Failed))

	if err != nil {
		return fmt.Errorf("udp: close: %w", err)
	}
	return nil
}
