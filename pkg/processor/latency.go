package processor

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rshravankumar10-design/threat_training_engine/pkg/types"
)

const (
	DefaultEmailDelay  = 1000 * time.Millisecond
	DefaultPacketDelay = 1200 * time.Millisecond
)

// LatencyPolicy 模拟"扫描中"的等待时间，只影响交互节奏，不影响结果
type LatencyPolicy struct {
	clock  clockwork.Clock
	delays map[types.Domain]time.Duration
}

func NewLatencyPolicy(clock clockwork.Clock, emailDelay, packetDelay time.Duration) *LatencyPolicy {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &LatencyPolicy{
		clock: clock,
		delays: map[types.Domain]time.Duration{
			types.DomainEmail:  emailDelay,
			types.DomainPacket: packetDelay,
		},
	}
}

// NoLatency 不等待，用于测试和批量回放
func NoLatency() *LatencyPolicy {
	return NewLatencyPolicy(nil, 0, 0)
}

// Delay 返回指定领域的等待时间
func (p *LatencyPolicy) Delay(domain types.Domain) time.Duration {
	return p.delays[domain]
}

// Wait 等待指定领域的延迟，ctx 取消时提前返回错误
func (p *LatencyPolicy) Wait(ctx context.Context, domain types.Domain) error {
	delay := p.delays[domain]
	if delay <= 0 {
		return ctx.Err()
	}

	timer := p.clock.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.Chan():
		return nil
	}
}
