//go:build darwin

package poller

import (
	"golang.org/x/sys/unix"
)

// wakeIdent identifies the EVFILT_USER event used by Wake
const wakeIdent = 0

// KqueuePoller is a kqueue-based I/O multiplexer
type KqueuePoller struct {
	kqfd     int
	events   []unix.Kevent_t
	ready    []Event
	interest map[int]Interest
}

// NewPoller creates a new Poller (macOS)
func NewPoller(maxEvents int) (Poller, error) {
	if maxEvents < 1 {
		maxEvents = 1024
	}

	kqfd, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}

	wake := unix.Kevent_t{
		Ident:  wakeIdent,
		Filter: unix.EVFILT_USER,
		Flags:  unix.EV_ADD | unix.EV_CLEAR,
	}
	if _, err := unix.Kevent(kqfd, []unix.Kevent_t{wake}, nil, nil); err != nil {
		unix.Close(kqfd)
		return nil, err
	}

	return &KqueuePoller{
		kqfd:     kqfd,
		events:   make([]unix.Kevent_t, maxEvents),
		ready:    make([]Event, 0, maxEvents),
		interest: make(map[int]Interest),
	}, nil
}

func (p *KqueuePoller) apply(fd int, from, to Interest) error {
	changes := make([]unix.Kevent_t, 0, 2)

	toggle := func(bit Interest, filter int16) {
		switch {
		case to&bit != 0 && from&bit == 0:
			changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: filter, Flags: unix.EV_ADD | unix.EV_ENABLE})
		case to&bit == 0 && from&bit != 0:
			changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: filter, Flags: unix.EV_DELETE})
		}
	}
	toggle(Read, unix.EVFILT_READ)
	toggle(Write, unix.EVFILT_WRITE)

	if len(changes) == 0 {
		return nil
	}
	_, err := unix.Kevent(p.kqfd, changes, nil, nil)
	return err
}

// Add adds a file descriptor to the watch list
func (p *KqueuePoller) Add(fd int, in Interest) error {
	if err := p.apply(fd, 0, in); err != nil {
		return err
	}
	p.interest[fd] = in
	return nil
}

// Modify replaces the interest set of a watched descriptor
func (p *KqueuePoller) Modify(fd int, in Interest) error {
	if err := p.apply(fd, p.interest[fd], in); err != nil {
		return err
	}
	p.interest[fd] = in
	return nil
}

// Remove removes a file descriptor from the watch list
func (p *KqueuePoller) Remove(fd int) error {
	from := p.interest[fd]
	delete(p.interest, fd)
	return p.apply(fd, from, 0)
}

// Wait waits for I/O events
func (p *KqueuePoller) Wait(timeout int) ([]Event, error) {
	p.ready = p.ready[:0]

	var ts *unix.Timespec
	if timeout >= 0 {
		t := unix.NsecToTimespec(int64(timeout) * 1_000_000)
		ts = &t
	}

	n, err := unix.Kevent(p.kqfd, nil, p.events, ts)
	if err != nil {
		if err == unix.EINTR {
			return p.ready, nil
		}
		return nil, err
	}

	for i := 0; i < n; i++ {
		ev := p.events[i]
		if ev.Filter == unix.EVFILT_USER {
			continue
		}

		fd := int(ev.Ident)
		failed := ev.Flags&(unix.EV_EOF|unix.EV_ERROR) != 0
		p.ready = append(p.ready, Event{
			Fd:       fd,
			Readable: ev.Filter == unix.EVFILT_READ || failed,
			Writable: ev.Filter == unix.EVFILT_WRITE || failed,
		})
	}

	return p.ready, nil
}

// Wake interrupts a blocked Wait
func (p *KqueuePoller) Wake() error {
	ev := unix.Kevent_t{
		Ident:  wakeIdent,
		Filter: unix.EVFILT_USER,
		Fflags: unix.NOTE_TRIGGER,
	}
	_, err := unix.Kevent(p.kqfd, []unix.Kevent_t{ev}, nil, nil)
	return err
}

// Close closes the Poller
func (p *KqueuePoller) Close() error {
	return unix.Close(p.kqfd)
}
