package core

import (
	"time"

	"github.com/spaghettifunk/ember/engine/containers"
)

const AVG_COUNT = 30

// FrameMetrics keeps a moving average of frame times and a once-per-second FPS sample.
type FrameMetrics struct {
	frameTimes  *containers.RingQueue[time.Duration]
	average     time.Duration
	frames      int
	accumulated time.Duration
	fps         float64
	rebuilds    uint64
	timeouts    uint64
}

func NewFrameMetrics() *FrameMetrics {
	return &FrameMetrics{
		frameTimes: containers.NewRingQueue[time.Duration](AVG_COUNT),
	}
}

func (m *FrameMetrics) Update(frameTime time.Duration) {
	m.frameTimes.Push(frameTime)
	if m.frameTimes.IsFull() {
		var sum time.Duration
		m.frameTimes.Each(func(d time.Duration) { sum += d })
		m.average = sum / time.Duration(m.frameTimes.Len())
	}

	// Calculate Frames per second.
	m.accumulated += frameTime
	if m.accumulated > time.Second {
		m.fps = float64(m.frames)
		m.accumulated -= time.Second
		m.frames = 0
	}

	// Count all Frames.
	m.frames++
}

func (m *FrameMetrics) CountRebuild() {
	m.rebuilds++
}

func (m *FrameMetrics) CountFenceTimeout() {
	m.timeouts++
}

func (m *FrameMetrics) FPS() float64 {
	return m.fps
}

func (m *FrameMetrics) FrameTime() time.Duration {
	return m.average
}

func (m *FrameMetrics) Rebuilds() uint64 {
	return m.rebuilds
}

func (m *FrameMetrics) FenceTimeouts() uint64 {
	return m.timeouts
}
