package scheduler

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soundboard/cache"
	"soundboard/status"
)

type fakeInstance struct {
	name string

	mu       sync.Mutex
	pan      float64
	panCalls int
	onDone   func()
	done     chan struct{}
	once     sync.Once
	playErr  error
}

func (f *fakeInstance) SetPan(pan float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pan = pan
	f.panCalls++
}

func (f *fakeInstance) Play(onDone func()) error {
	if f.playErr != nil {
		return f.playErr
	}
	f.mu.Lock()
	f.onDone = onDone
	f.mu.Unlock()
	return nil
}

func (f *fakeInstance) Done() <-chan struct{} { return f.done }

func (f *fakeInstance) finish() {
	f.once.Do(func() {
		close(f.done)
		f.mu.Lock()
		onDone := f.onDone
		f.mu.Unlock()
		if onDone != nil {
			onDone()
		}
	})
}

func (f *fakeInstance) Pan() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pan
}

type played struct {
	name string
	at   time.Time
	inst *fakeInstance
}

type fakeDevice struct {
	mu         sync.Mutex
	plays      []played
	autoFinish bool
	openErr    error
	playErr    error
}

func (d *fakeDevice) Open(name string, data []byte) (Instance, error) {
	if d.openErr != nil {
		return nil, d.openErr
	}
	inst := &fakeInstance{name: name, done: make(chan struct{}), playErr: d.playErr}
	d.mu.Lock()
	d.plays = append(d.plays, played{name: name, at: time.Now(), inst: inst})
	d.mu.Unlock()
	if d.autoFinish && d.playErr == nil {
		go func() {
			// Play is called right after Open; give it a moment to register onDone
			for {
				inst.mu.Lock()
				ready := inst.onDone != nil
				inst.mu.Unlock()
				if ready {
					inst.finish()
					return
				}
				time.Sleep(time.Millisecond)
			}
		}()
	}
	return inst, nil
}

func (d *fakeDevice) Plays() []played {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]played, len(d.plays))
	copy(out, d.plays)
	return out
}

// stepRand returns 0.1, 0.2, ... from Float64 and always picks index 0
type stepRand struct {
	mu    sync.Mutex
	calls int
}

func (r *stepRand) IntN(int) int { return 0 }

func (r *stepRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return float64(r.calls) / 10
}

func (r *stepRand) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func memCache(files map[string]string) *cache.AudioCache {
	return cache.New(cache.LoaderFunc(func(id string) ([]byte, error) {
		data, ok := files[id]
		if !ok {
			return nil, os.ErrNotExist
		}
		return []byte(data), nil
	}))
}

func pools(m map[string][]string) Resolver {
	return ResolverFunc(func(pack, subfolder string) []string {
		return m[pack+"/"+subfolder]
	})
}

var testFiles = map[string]string{
	"main.wav": "main",
	"p1s1.wav": "one",
	"p2s2.wav": "two",
	"p3s3.wav": "three",
}

var testPools = map[string][]string{
	"P1/S1": {"p1s1.wav"},
	"P2/S2": {"p2s2.wav"},
	"P3/S3": {"p3s3.wav"},
	"P9/S9": {"missing.wav"},
}

func waitIdle(t *testing.T, s *Scheduler) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Wait(ctx))
}

func TestPlayNow_KeepsInstanceUntilDone(t *testing.T) {
	dev := &fakeDevice{}
	s := New(memCache(testFiles), dev, pools(testPools), Options{})

	inst, err := s.PlayNow("main.wav", 0.5)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Active())

	fake := inst.(*fakeInstance)
	assert.Equal(t, 0.5, fake.Pan())

	fake.finish()
	assert.Equal(t, 0, s.Active())
	waitIdle(t, s)
}

func TestPlayNow_CenterPanIsNotApplied(t *testing.T) {
	dev := &fakeDevice{autoFinish: true}
	s := New(memCache(testFiles), dev, pools(testPools), Options{})

	inst, err := s.PlayNow("main.wav", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, inst.(*fakeInstance).panCalls)
	waitIdle(t, s)
}

func TestPlayNow_ClampsPan(t *testing.T) {
	dev := &fakeDevice{autoFinish: true}
	s := New(memCache(testFiles), dev, pools(testPools), Options{})

	inst, err := s.PlayNow("main.wav", -4)
	require.NoError(t, err)
	assert.Equal(t, -1.0, inst.(*fakeInstance).Pan())
	waitIdle(t, s)
}

func TestPlayNow_Errors(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		device  *fakeDevice
		wantErr error
	}{
		{
			name:    "missing source",
			id:      "nope.wav",
			device:  &fakeDevice{},
			wantErr: cache.ErrSourceUnavailable,
		},
		{
			name:    "device rejects bytes",
			id:      "main.wav",
			device:  &fakeDevice{openErr: errors.New("not audio")},
			wantErr: ErrPlaybackFailed,
		},
		{
			name:    "device cannot start",
			id:      "main.wav",
			device:  &fakeDevice{playErr: errors.New("device gone")},
			wantErr: ErrPlaybackFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(memCache(testFiles), tt.device, pools(testPools), Options{})

			inst, err := s.PlayNow(tt.id, 0)
			require.Error(t, err)
			assert.Nil(t, inst)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 0, s.Active())
		})
	}
}

func TestSchedule_CumulativeOffsets(t *testing.T) {
	tests := []struct {
		name        string
		links       []ChainLink
		wantOffsets []time.Duration
		wantIndex   []int
		wantDropped []int
	}{
		{
			name: "cumulative",
			links: []ChainLink{
				{Pack: "P1", Subfolder: "S1", Delay: 100 * time.Millisecond},
				{Pack: "P2", Subfolder: "S2", Delay: 200 * time.Millisecond},
			},
			wantOffsets: []time.Duration{100 * time.Millisecond, 300 * time.Millisecond},
			wantIndex:   []int{1, 2},
		},
		{
			name: "dropped link does not consume delay",
			links: []ChainLink{
				{Pack: "P1", Subfolder: "", Delay: 50 * time.Millisecond},
				{Pack: "P2", Subfolder: "S2", Delay: 50 * time.Millisecond},
			},
			wantOffsets: []time.Duration{50 * time.Millisecond},
			wantIndex:   []int{2},
			wantDropped: []int{1},
		},
		{
			name: "whitespace only is empty",
			links: []ChainLink{
				{Pack: "  ", Subfolder: "S1", Delay: time.Second},
				{Pack: "P1", Subfolder: "\t", Delay: time.Second},
				{Pack: " P3 ", Subfolder: " S3 ", Delay: 0},
			},
			wantOffsets: []time.Duration{0},
			wantIndex:   []int{3},
			wantDropped: []int{1, 2},
		},
		{
			name: "empty chain",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scheduled, dropped := Schedule(tt.links)

			var offsets []time.Duration
			var index []int
			for _, l := range scheduled {
				offsets = append(offsets, l.Offset)
				index = append(index, l.Index)
			}
			assert.Equal(t, tt.wantOffsets, offsets)
			assert.Equal(t, tt.wantIndex, index)
			assert.Equal(t, tt.wantDropped, dropped)
		})
	}

	scheduled, _ := Schedule([]ChainLink{{Pack: " P3 ", Subfolder: " S3 "}})
	require.Len(t, scheduled, 1)
	assert.Equal(t, "P3", scheduled[0].Pack)
	assert.Equal(t, "S3", scheduled[0].Subfolder)
}

// offsetOf returns when name was opened relative to start
func offsetOf(t *testing.T, plays []played, name string, start time.Time) time.Duration {
	t.Helper()
	for _, p := range plays {
		if p.name == name {
			return p.at.Sub(start)
		}
	}
	t.Fatalf("%s was never played", name)
	return 0
}

func assertFiredNear(t *testing.T, got, want time.Duration) {
	t.Helper()
	assert.GreaterOrEqual(t, got, want-5*time.Millisecond, "fired too early")
	assert.Less(t, got, want+80*time.Millisecond, "fired too late")
}

func TestPlayChain_CumulativeTiming(t *testing.T) {
	dev := &fakeDevice{autoFinish: true}
	s := New(memCache(testFiles), dev, pools(testPools), Options{})

	start := time.Now()
	err := s.PlayChain("main.wav", Center(), []ChainLink{
		{Pack: "P1", Subfolder: "S1", Delay: 100 * time.Millisecond},
		{Pack: "P2", Subfolder: "S2", Delay: 200 * time.Millisecond},
	})
	require.NoError(t, err)
	waitIdle(t, s)

	plays := dev.Plays()
	require.Len(t, plays, 3)
	assert.Equal(t, "main.wav", plays[0].name)
	assertFiredNear(t, offsetOf(t, plays, "p1s1.wav", start), 100*time.Millisecond)
	assertFiredNear(t, offsetOf(t, plays, "p2s2.wav", start), 300*time.Millisecond)
}

func TestPlayChain_DroppedLinkDoesNotDelay(t *testing.T) {
	dev := &fakeDevice{autoFinish: true}
	rec := &status.Recorder{}
	s := New(memCache(testFiles), dev, pools(testPools), Options{Status: rec})

	start := time.Now()
	err := s.PlayChain("main.wav", Center(), []ChainLink{
		{Pack: "P1", Subfolder: "", Delay: 50 * time.Millisecond},
		{Pack: "P2", Subfolder: "S2", Delay: 50 * time.Millisecond},
	})
	require.NoError(t, err)
	waitIdle(t, s)

	plays := dev.Plays()
	require.Len(t, plays, 2)
	assertFiredNear(t, offsetOf(t, plays, "p2s2.wav", start), 50*time.Millisecond)
	assert.Equal(t, []string{"Attached sound #1 skipped: no pack or subfolder selected."}, rec.Messages())
}

func TestPlayChain_EmptyPoolSkipsOnlyThatLink(t *testing.T) {
	dev := &fakeDevice{autoFinish: true}
	rec := &status.Recorder{}
	s := New(memCache(testFiles), dev, pools(testPools), Options{Status: rec})

	start := time.Now()
	err := s.PlayChain("main.wav", Center(), []ChainLink{
		{Pack: "P1", Subfolder: "S1", Delay: 20 * time.Millisecond},
		{Pack: "Empty", Subfolder: "Nothing", Delay: 20 * time.Millisecond},
		{Pack: "P3", Subfolder: "S3", Delay: 20 * time.Millisecond},
	})
	require.NoError(t, err)
	waitIdle(t, s)

	plays := dev.Plays()
	require.Len(t, plays, 3)
	assertFiredNear(t, offsetOf(t, plays, "p1s1.wav", start), 20*time.Millisecond)
	assertFiredNear(t, offsetOf(t, plays, "p3s3.wav", start), 60*time.Millisecond)
	assert.Equal(t,
		[]string{"Attached sound: 'Nothing' in pack 'Empty' is empty/invalid. Skipping."},
		rec.Messages())
}

func TestPlayChain_LinkFailureIsReportedNotReturned(t *testing.T) {
	dev := &fakeDevice{autoFinish: true}
	rec := &status.Recorder{}
	s := New(memCache(testFiles), dev, pools(testPools), Options{Status: rec})

	err := s.PlayChain("main.wav", Center(), []ChainLink{
		{Pack: "P9", Subfolder: "S9", Delay: 10 * time.Millisecond},
		{Pack: "P2", Subfolder: "S2", Delay: 10 * time.Millisecond},
	})
	require.NoError(t, err)
	waitIdle(t, s)

	plays := dev.Plays()
	require.Len(t, plays, 2)
	assert.Equal(t, "p2s2.wav", plays[1].name)

	msgs := rec.Messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "Attached sound #1 failed")
	assert.Contains(t, msgs[0], "missing.wav")
}

func TestPlayChain_PanSampledAtFireTime(t *testing.T) {
	dev := &fakeDevice{autoFinish: true}
	r := &stepRand{}
	s := New(memCache(testFiles), dev, pools(testPools), Options{Rand: r})

	err := s.PlayChain("main.wav", Random(), []ChainLink{
		{Pack: "P1", Subfolder: "S1", Delay: 50 * time.Millisecond},
		{Pack: "P2", Subfolder: "S2", Delay: 0},
	})
	require.NoError(t, err)
	// only the main sound has sampled so far
	assert.Equal(t, 1, r.Calls())

	waitIdle(t, s)
	assert.Equal(t, 3, r.Calls())

	plays := dev.Plays()
	require.Len(t, plays, 3)
	pans := map[float64]bool{}
	for _, p := range plays {
		pans[p.inst.Pan()] = true
	}
	assert.Len(t, pans, 3, "each play should get its own pan")
	assert.InDelta(t, -0.8, plays[0].inst.Pan(), 1e-9)
}

func TestPlayChain_MainFailureArmsNothing(t *testing.T) {
	dev := &fakeDevice{autoFinish: true}
	s := New(memCache(testFiles), dev, pools(testPools), Options{})

	err := s.PlayChain("absent.wav", Center(), []ChainLink{
		{Pack: "P1", Subfolder: "S1", Delay: 0},
	})
	require.ErrorIs(t, err, cache.ErrSourceUnavailable)
	assert.Equal(t, 0, s.Pending())

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, dev.Plays())
}

func TestPlayChain_ZeroDelayFiresAsynchronously(t *testing.T) {
	dev := &fakeDevice{autoFinish: true}
	release := make(chan struct{})
	resolver := ResolverFunc(func(pack, subfolder string) []string {
		<-release
		return []string{"p1s1.wav"}
	})
	s := New(memCache(testFiles), dev, resolver, Options{})

	returned := make(chan error, 1)
	go func() {
		returned <- s.PlayChain("main.wav", Center(), []ChainLink{{Pack: "P1", Subfolder: "S1"}})
	}()

	select {
	case err := <-returned:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("PlayChain blocked on a zero-delay link")
	}

	close(release)
	waitIdle(t, s)
	assert.Len(t, dev.Plays(), 2)
}

func TestPlayChain_ChainsDoNotSerialize(t *testing.T) {
	dev := &fakeDevice{autoFinish: true}
	s := New(memCache(testFiles), dev, pools(testPools), Options{})

	start := time.Now()
	require.NoError(t, s.PlayChain("main.wav", Center(), []ChainLink{
		{Pack: "P1", Subfolder: "S1", Delay: 150 * time.Millisecond},
	}))
	require.NoError(t, s.PlayChain("main.wav", Center(), []ChainLink{
		{Pack: "P2", Subfolder: "S2", Delay: 30 * time.Millisecond},
	}))
	waitIdle(t, s)

	plays := dev.Plays()
	assertFiredNear(t, offsetOf(t, plays, "p2s2.wav", start), 30*time.Millisecond)
	assertFiredNear(t, offsetOf(t, plays, "p1s1.wav", start), 150*time.Millisecond)
}

func TestWait_RespectsContext(t *testing.T) {
	dev := &fakeDevice{}
	s := New(memCache(testFiles), dev, pools(testPools), Options{})

	inst, err := s.PlayNow("main.wav", 0)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Wait(ctx), context.DeadlineExceeded)

	inst.(*fakeInstance).finish()
	waitIdle(t, s)
}

func TestPanPolicy(t *testing.T) {
	r := &stepRand{}

	assert.Equal(t, 0.0, Center().Sample(r))
	assert.Equal(t, 0.3, Fixed(0.3).Sample(r))
	assert.Equal(t, 0, r.Calls())

	assert.InDelta(t, -0.8, Random().Sample(r), 1e-9)
	assert.InDelta(t, -0.6, Random().Sample(r), 1e-9)

	for i := 0; i < 100; i++ {
		v := Random().Sample(nil)
		assert.GreaterOrEqual(t, v, -1.0)
		assert.Less(t, v, 1.0)
	}

	assert.Equal(t, "fixed", PanFixed.String())
	assert.Equal(t, "random", PanRandom.String())
}
