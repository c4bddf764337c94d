// SPDX-License-Identifier: MIT

// Package udp publishes bar frames as compact binary datagrams.
package udp

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"visualizer/internal/log"
)

// Publisher keeps the latest bar frame and sends it over UDP at a fixed
// interval. A tick with no new frame since the last packet sends nothing.
// It runs in a separate goroutine managed by Start and Stop.
type Publisher struct {
	sender   *Sender       // The underlying UDP sender instance.
	interval time.Duration // The interval at which packets are sent.

	ticker   *time.Ticker   // Ticker that triggers packet sending.
	doneChan chan struct{}  // Signals the publisher goroutine to stop.
	stopOnce sync.Once      // Ensures the stop logic runs only once per Start/Stop cycle.
	wg       sync.WaitGroup // Waits for the publisher goroutine to finish during Stop.
	mu       sync.Mutex     // Protects ticker and doneChan during Start/Stop.

	frameMu sync.Mutex // Protects latest and fresh.
	latest  []float64
	fresh   bool

	sequenceNum uint32 // Incremented per packet sent.

	// Reused by buildAndSendPacket.
	f32Buffer    []float32
	packetBuffer *bytes.Buffer
}

// NewPublisher creates a Publisher for frames of barCount bars.
// If the provided interval is invalid (<= 0), it defaults to 16ms (~60Hz).
func NewPublisher(interval time.Duration, sender *Sender, barCount int) (*Publisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("udp: sender cannot be nil")
	}
	if barCount <= 0 {
		return nil, fmt.Errorf("udp: bar count must be positive, got %d", barCount)
	}

	if interval <= 0 {
		interval = 16 * time.Millisecond
		log.Warnf("udp: invalid interval provided, defaulting to %s", interval)
	}

	log.Infof("udp: publisher initializing (interval: %s, bars: %d)", interval, barCount)

	return &Publisher{
		sender:       sender,
		interval:     interval,
		latest:       make([]float64, 0, barCount),
		f32Buffer:    make([]float32, 0, barCount),
		packetBuffer: new(bytes.Buffer),
	}, nil
}

// Send stores bars as the frame for the next tick. It never blocks on
// the network.
func (p *Publisher) Send(bars []float64) error {
	p.frameMu.Lock()
	p.latest = append(p.latest[:0], bars...)
	p.fresh = true
	p.frameMu.Unlock()
	return nil
}

// Start begins the periodic publishing process.
// It is safe to call Start multiple times; subsequent calls are no-ops if already started.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		log.Warnf("udp: Start called but publisher already running")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	// Local copies so the goroutine never reads p.ticker/p.doneChan.
	ticker := p.ticker
	doneChan := p.doneChan

	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		log.Debugf("udp: publisher goroutine started (interval: %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.buildAndSendPacket(time.Now())
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the publisher goroutine to terminate and waits for it to exit.
// It is safe to call Stop multiple times; subsequent calls are no-ops.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}

	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})

	p.mu.Unlock()

	p.wg.Wait()
	log.Debugf("udp: publisher stopped after %d packets", p.sequenceNum)
	return nil
}

// buildAndSendPacket packs the latest frame, if it has not been sent yet,
// and hands it to the sender.
func (p *Publisher) buildAndSendPacket(now time.Time) {
	p.frameMu.Lock()
	if !p.fresh {
		p.frameMu.Unlock()
		return
	}
	p.f32Buffer = p.f32Buffer[:0]
	for _, v := range p.latest {
		p.f32Buffer = append(p.f32Buffer, float32(v))
	}
	p.fresh = false
	p.frameMu.Unlock()

	p.sequenceNum++
	if err := EncodePacket(p.packetBuffer, p.sequenceNum, now.UnixNano(), p.f32Buffer); err != nil {
		log.Errorf("udp: error packing frame: %v", err)
		return
	}

	// Sender logs its own failures.
	if err := p.sender.Send(p.packetBuffer.Bytes()); err == nil {
		log.Debugf("udp: sent packet %d (%d bytes)", p.sequenceNum, p.packetBuffer.Len())
	}
}

// Close stops the publisher goroutine and closes the sender.
func (p *Publisher) Close() error {
	if err := p.Stop(); err != nil {
		return err
	}
	return p.sender.Close()
}
