package scan

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/netforge-labs/pktizr/internal/bucket"
	"github.com/netforge-labs/pktizr/internal/metrics"
	"github.com/netforge-labs/pktizr/internal/packet"
	"github.com/netforge-labs/pktizr/internal/ranges"
	"github.com/netforge-labs/pktizr/internal/script"
	"github.com/netforge-labs/pktizr/internal/status"
)

const statusInterval = 250 * time.Millisecond

// Pipeline runs the generator/transmitter/receiver workers described in
// package scan's doc comment over a shared Args and script.Host.
type Pipeline struct {
	log    *slog.Logger
	args   *Args
	host   script.Host
	clock  clockwork.Clock
	status *status.Line
}

// New builds a Pipeline. clock defaults to the real wall clock when nil.
func New(log *slog.Logger, args *Args, host script.Host, clock clockwork.Clock, line *status.Line) *Pipeline {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Pipeline{log: log, args: args, host: host, clock: clock, status: line}
}

// Run starts all three workers, waits for the generator to finish (either
// by exhausting its work or by ctx cancellation), runs the straggler wait
// phase, then joins the transmitter and receiver. It returns once every
// worker has exited.
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.host.Load(p.args.Queue); err != nil {
		return fmt.Errorf("scan: load script host: %w", err)
	}
	defer p.host.Close()

	recvStarted := make(chan struct{})
	recvDone := make(chan struct{})
	go func() {
		defer close(recvDone)
		p.receive(recvStarted)
	}()
	waitStarted(ctx, recvStarted)

	sendStarted := make(chan struct{})
	sendDone := make(chan struct{})
	go func() {
		defer close(sendDone)
		p.transmit(sendStarted)
	}()
	waitStarted(ctx, sendStarted)

	loopStarted := make(chan struct{})
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		p.generate(loopStarted)
	}()
	waitStarted(ctx, loopStarted)

	p.log.Info("scan: pipeline started",
		"targets", p.args.Targets.Count(),
		"ports", p.args.Ports.Count(),
		"count", p.args.Count,
		"rate", p.args.Rate,
	)

	p.status.Hide()
	defer p.status.Show()

	p.runStatusLoop(ctx)
	<-loopDone

	p.waitPhase(ctx)

	p.args.Done.Store(true)
	<-recvDone
	<-sendDone

	p.log.Info("scan: pipeline stopped",
		"sent", p.args.PktSent.Load(),
		"probe", p.args.PktProbe.Load(),
		"recv", p.args.PktRecv.Load(),
	)

	return nil
}

func waitStarted(ctx context.Context, started <-chan struct{}) {
	select {
	case <-started:
	case <-ctx.Done():
	}
}

func (p *Pipeline) generate(started chan<- struct{}) {
	b := bucket.New(p.args.Rate, p.clock)

	tgtCount := p.args.Targets.Count()
	prtCount := p.args.Ports.Count()
	total := tgtCount * prtCount * p.args.Count
	p.args.PktCount.Store(total)
	metrics.PktCount.Set(float64(total))

	p.log.Debug("scan: worker started", "worker", "loop")
	close(started)

	for i := uint64(0); i < total && !p.args.Stop.Load(); i++ {
		b.Consume()

		targetIdx := (i % tgtCount) / p.args.Count
		portIdx := (i / tgtCount) / p.args.Count

		dst := ranges.Uint32ToIP(p.args.Targets.Pick(targetIdx))
		port := uint16(p.args.Ports.Pick(portIdx))

		if !p.host.Loop(dst, port) {
			continue
		}
		b.Take()
	}
}

func (p *Pipeline) transmit(started chan<- struct{}) {
	b := bucket.New(p.args.Rate, p.clock)

	// pending holds an item already pulled off the queue but not yet
	// sent because the bucket ran dry; it's retried on the next Consume
	// instead of being dropped or requeued.
	var pending script.Item
	havePending := false

	p.log.Debug("scan: worker started", "worker", "send")
	close(started)

	for !p.args.Done.Load() {
		b.Consume()

		for !p.args.Done.Load() {
			if !havePending {
				item, ok := p.args.Queue.Dequeue()
				if !ok {
					break
				}
				pending, havePending = item, true
			}
			if !b.Take() {
				break
			}
			p.sendItem(pending)
			havePending = false
		}
	}
}

func (p *Pipeline) sendItem(item script.Item) {
	buf := p.args.Device.GetBuf()

	n, err := packet.Pack(buf, item.Chain)
	if err != nil {
		p.log.Debug("scan: dropping packet, pack failed", "error", err)
		metrics.PktDropped.WithLabelValues("pack").Inc()
		return
	}

	if err := p.args.Device.Inject(buf[:n]); err != nil {
		p.log.Warn("scan: inject failed", "error", err)
		metrics.PktDropped.WithLabelValues("inject").Inc()
		return
	}

	p.args.PktSent.Add(1)
	metrics.PktSent.Inc()

	if item.Probe {
		p.args.PktProbe.Add(1)
		metrics.PktProbe.Inc()
	}
}

func (p *Pipeline) receive(started chan<- struct{}) {
	p.log.Debug("scan: worker started", "worker", "recv")
	close(started)

	for !p.args.Done.Load() {
		frame, err := p.args.Device.Capture()
		if err != nil {
			p.log.Warn("scan: capture failed", "error", err)
			continue
		}
		if frame == nil {
			continue
		}
		p.handleFrame(frame)
	}
}

func (p *Pipeline) handleFrame(frame []byte) {
	defer p.args.Device.Release()

	chain, layerCount, err := packet.Unpack(frame)
	if err != nil || layerCount < 2 {
		return
	}

	p.host.Recv(chain)
	p.args.PktRecv.Add(1)
	metrics.PktRecv.Inc()
}

// runStatusLoop redraws the status line every statusInterval until either
// the probe target is met or ctx is canceled; in either case it sets Stop
// so the generator breaks out of its loop.
func (p *Pipeline) runStatusLoop(ctx context.Context) {
	ticker := p.clock.NewTicker(statusInterval)
	defer ticker.Stop()

	prev := p.snapshot()

	for {
		select {
		case <-ctx.Done():
			p.args.Stop.Store(true)
			return
		case <-ticker.Chan():
		}

		cur := p.snapshot()
		p.status.Render(cur, prev, statusInterval.Seconds())
		prev = cur

		if cur.Count > 0 && cur.Probe >= cur.Count {
			p.args.Stop.Store(true)
			return
		}
	}
}

// waitPhase implements the straggler-reply grace period: after the
// generator stops, wait up to args.Wait (interruptible by ctx) before
// signaling the transmitter and receiver to exit.
func (p *Pipeline) waitPhase(ctx context.Context) {
	remaining := p.args.Wait
	for remaining > 0 {
		select {
		case <-ctx.Done():
			return
		default:
		}

		p.status.RenderWaiting(uint64(remaining / time.Second))
		p.clock.Sleep(time.Second)
		remaining -= time.Second
	}
}

func (p *Pipeline) snapshot() status.Snapshot {
	return status.Snapshot{
		Count: p.args.PktCount.Load(),
		Sent:  p.args.PktSent.Load(),
		Probe: p.args.PktProbe.Load(),
		Recv:  p.args.PktRecv.Load(),
	}
}
