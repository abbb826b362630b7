package poller

// Interest selects the readiness conditions watched for a descriptor
type Interest uint8

const (
	Read Interest = 1 << iota
	Write
)

// Event reports readiness of one descriptor.
// Error and hang-up conditions are reported as both readable and writable so
// that the next I/O call surfaces the failure.
type Event struct {
	Fd       int
	Readable bool
	Writable bool
}

// Poller is the I/O multiplexing interface
type Poller interface {
	Add(fd int, in Interest) error
	Modify(fd int, in Interest) error
	Remove(fd int) error

	// Wait blocks until at least one descriptor is ready, the timeout (ms,
	// negative for none) expires, or Wake is called. An interrupted wait
	// returns no events and no error. The returned slice is reused by the
	// next call.
	Wait(timeout int) ([]Event, error)

	// Wake interrupts a blocked Wait. It is the only method safe to call
	// from another goroutine.
	Wake() error
	Close() error
}
