package wallet

import "time"

const (
	// DefaultLoadTimeout bounds a whole load cycle; a hanging backend turns
	// into an Error transition instead of blocking forever.
	DefaultLoadTimeout = 10 * time.Second

	// DefaultUpdateBuffer is how many state transitions the updates channel
	// buffers before slow observers start missing intermediate ones.
	DefaultUpdateBuffer = 16
)

type Config struct {
	LoadTimeout  time.Duration
	UpdateBuffer int
}

func NewConfig(loadTimeout time.Duration) Config {
	if loadTimeout <= 0 {
		loadTimeout = DefaultLoadTimeout
	}
	return Config{
		LoadTimeout:  loadTimeout,
		UpdateBuffer: DefaultUpdateBuffer,
	}
}
