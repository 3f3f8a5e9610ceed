package resilience

import (
	"math"
	"sync"
	"time"

	"github.com/taxidata/platform/pkg/logger"
	"go.uber.org/zap"
)

// State is the current mode of a breaker.
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Breaker guards a single downstream operation. It records the outcome of the
// last WindowSize calls in a ring buffer; once failures in the window reach the
// configured rate it stops calling the downstream for OpenTimeout, then admits
// up to HalfOpenMaxCalls trial calls before fully reopening traffic.
//
// A single mutex guards state and window. The mutex is never held while the
// protected operation runs.
type Breaker struct {
	name             string
	windowSize       int
	failureThreshold int
	openTimeout      time.Duration
	halfOpenMaxCalls int

	mu          sync.Mutex
	state       State
	generation  uint64
	window      []bool // true = failure
	windowIdx   int
	windowCount int
	failures    int
	openExpiry  time.Time
	trialCalls  int
	trialOKs    int

	now func() time.Time
}

// NewBreaker creates a breaker from settings. Zero-valued settings fall back to
// the defaults in BuildSettings.
func NewBreaker(s Settings) *Breaker {
	s = BuildSettings(s.Name, s.WindowSize, s.FailureRateThreshold, int(s.OpenTimeout/time.Second), s.HalfOpenMaxCalls)

	b := &Breaker{
		name:             s.Name,
		windowSize:       s.WindowSize,
		failureThreshold: int(math.Ceil(s.FailureRateThreshold / 100 * float64(s.WindowSize))),
		openTimeout:      s.OpenTimeout,
		halfOpenMaxCalls: s.HalfOpenMaxCalls,
		state:            StateClosed,
		window:           make([]bool, s.WindowSize),
		now:              time.Now,
	}
	recordBreakerState(b.name, b.state)
	return b
}

// Name returns the breaker's registered name.
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentState()
}

// Execute runs op if the breaker admits the call and returns its result.
// When the breaker is open (or the half-open trial quota is exhausted) it
// returns ErrCircuitOpen without invoking op. Rejections are metered but do
// not count toward the outcome window.
func (b *Breaker) Execute(op func() (interface{}, error)) (interface{}, error) {
	generation, err := b.beforeCall()
	if err != nil {
		recordBreakerRejection(b.name)
		return nil, err
	}

	recordBreakerRequest(b.name)
	result, opErr := op()
	b.afterCall(generation, opErr)
	if opErr != nil {
		recordBreakerFailure(b.name)
	}
	return result, opErr
}

// beforeCall decides whether the call may proceed and returns the generation
// the outcome belongs to.
func (b *Breaker) beforeCall() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.currentState() {
	case StateClosed:
		return b.generation, nil
	case StateHalfOpen:
		if b.trialCalls >= b.halfOpenMaxCalls {
			return 0, ErrCircuitOpen
		}
		b.trialCalls++
		return b.generation, nil
	default:
		return 0, ErrCircuitOpen
	}
}

// afterCall records the outcome. Outcomes from a previous generation are
// dropped: the state that admitted them no longer exists.
func (b *Breaker) afterCall(generation uint64, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if generation != b.generation {
		return
	}

	switch b.state {
	case StateClosed:
		b.recordOutcome(err != nil)
		if b.failures >= b.failureThreshold {
			b.setState(StateOpen)
		}
	case StateHalfOpen:
		if err != nil {
			b.setState(StateOpen)
			return
		}
		b.trialOKs++
		if b.trialOKs >= b.halfOpenMaxCalls {
			b.setState(StateClosed)
		}
	}
}

// currentState resolves the open-state expiry lazily. Callers must hold mu.
func (b *Breaker) currentState() State {
	if b.state == StateOpen && !b.now().Before(b.openExpiry) {
		b.setState(StateHalfOpen)
	}
	return b.state
}

// recordOutcome pushes one outcome into the ring. Callers must hold mu.
func (b *Breaker) recordOutcome(failed bool) {
	if b.windowCount == b.windowSize && b.window[b.windowIdx] {
		b.failures--
	}
	b.window[b.windowIdx] = failed
	b.windowIdx = (b.windowIdx + 1) % b.windowSize
	if b.windowCount < b.windowSize {
		b.windowCount++
	}
	if failed {
		b.failures++
	}
}

// setState transitions the breaker and resets per-state bookkeeping.
// Callers must hold mu.
func (b *Breaker) setState(next State) {
	if b.state == next {
		return
	}
	prev := b.state
	b.state = next
	b.generation++

	switch next {
	case StateOpen:
		b.openExpiry = b.now().Add(b.openTimeout)
	case StateHalfOpen:
		b.trialCalls = 0
		b.trialOKs = 0
	case StateClosed:
		b.resetWindow()
	}

	recordBreakerStateChange(b.name, prev, next)
	logger.Info("circuit breaker state changed",
		zap.String("breaker", b.name),
		zap.String("from", prev.String()),
		zap.String("to", next.String()),
	)
}

// resetWindow clears the outcome ring. Callers must hold mu.
func (b *Breaker) resetWindow() {
	for i := range b.window {
		b.window[i] = false
	}
	b.windowIdx = 0
	b.windowCount = 0
	b.failures = 0
}
