package telemetry

import "time"

// sessionState tracks the lifecycle of a pooled channel.
// A session moves Connected -> Invalid when its channel breaks, back to
// Connected after a successful re-dial, or to Failed when the retry also
// fails. Failed is terminal for the entry; the key starts over with a
// fresh entry on the next call.
type sessionState int

const (
	stateNew sessionState = iota
	stateConnected
	stateInvalid
	stateFailed
)

func (s sessionState) String() string {
	switch s {
	case stateNew:
		return "new"
	case stateConnected:
		return "connected"
	case stateInvalid:
		return "invalid"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// session is one pooled channel and its bookkeeping. The pool is the sole
// mutator of session lifecycle state.
//
// sem is a one-slot semaphore granting the exclusive right to use the
// channel. Interleaved output on a shared command channel is unparseable,
// so exactly one command may be in flight per session; waiters queue on
// the channel send and are woken in arrival order. All other fields are
// only touched while holding sem (or under the pool mutex for eviction).
type session struct {
	key       string
	sem       chan struct{}
	transport Transport
	state     sessionState
	lastUsed  time.Time
}

func newSession(key string) *session {
	return &session{
		key:      key,
		sem:      make(chan struct{}, 1),
		state:    stateNew,
		lastUsed: time.Now(),
	}
}
