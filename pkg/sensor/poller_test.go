package sensor

import (
	"testing"
	"time"
)

func TestPollerFillsCache(t *testing.T) {
	cache := NewCache()
	imu := NewMockIMU()
	cam := NewMockCamera()
	mic := NewMockMicrophone()
	imu.SetAccel(Vec3{X: 0.1, Z: 0.9})
	cam.SetBrightness(200)
	mic.SetSilence(30)

	p := NewPoller(cache, PollerConfig{IMURate: 100, CameraRate: 100, MicrophoneRate: 100}, imu, cam, mic)
	p.Start()
	defer p.Stop(time.Second)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		_, okA := cache.Accel()
		_, okB := cache.Brightness()
		_, okC := cache.Audio()
		if okA && okB && okC {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	r, ok := cache.Accel()
	if !ok {
		t.Fatal("accel never cached")
	}
	if r.Value.X != 0.1 {
		t.Errorf("accel X = %v, want 0.1", r.Value.X)
	}
	b, ok := cache.Brightness()
	if !ok {
		t.Fatal("brightness never cached")
	}
	if b.Value != 200 {
		t.Errorf("brightness = %v, want 200", b.Value)
	}
	if _, ok := cache.Audio(); !ok {
		t.Fatal("audio never cached")
	}
}

func TestPollerFailedReadLeavesCacheAlone(t *testing.T) {
	cache := NewCache()
	cam := NewMockCamera()
	cam.SetBrightness(50)

	p := NewPoller(cache, PollerConfig{CameraRate: 100}, nil, cam, nil)
	p.Start()

	waitFor(t, func() bool { _, ok := cache.Brightness(); return ok })

	cam.SetError(ErrUnavailable)
	time.Sleep(50 * time.Millisecond)
	p.Stop(time.Second)

	r, ok := cache.Brightness()
	if !ok {
		t.Fatal("expected last good brightness to remain cached")
	}
	if r.Value != 50 {
		t.Errorf("brightness = %v, want 50", r.Value)
	}
	if p.ReadErrors() == 0 {
		t.Error("expected read errors to be counted")
	}
}

func TestPollerStopReturns(t *testing.T) {
	cache := NewCache()
	p := NewPoller(cache, DefaultPollerConfig(), NewMockIMU(), nil, nil)
	p.Start()

	done := make(chan struct{})
	go func() {
		p.Stop(2 * time.Second)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestPollerNilSources(t *testing.T) {
	p := NewPoller(NewCache(), DefaultPollerConfig(), nil, nil, nil)
	p.Start()
	p.Stop(time.Second)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never met")
}
