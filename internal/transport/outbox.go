package transport

import (
	"sync"

	"github.com/danmuck/framewire/internal/observability"
	"github.com/danmuck/framewire/internal/protocol/stream"
	"github.com/rs/zerolog/log"
)

type sendItem struct {
	payload []byte
	result  chan error
}

// outbox serialises queued frames onto the stream from one goroutine. The
// first write failure is latched and reported to every later sender.
type outbox struct {
	kind  string
	s     *stream.Stream
	queue chan sendItem
	quit  chan struct{}
	done  chan struct{}
	once  sync.Once

	mu  sync.Mutex
	err error
}

func newOutbox(kind string, s *stream.Stream, depth int) *outbox {
	o := &outbox{
		kind:  kind,
		s:     s,
		queue: make(chan sendItem, depth),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go o.run()
	return o
}

func (o *outbox) run() {
	defer close(o.done)
	for {
		select {
		case <-o.quit:
			return
		case item := <-o.queue:
			err := o.failed()
			if err == nil {
				if err = o.s.Write(item.payload); err != nil {
					o.mu.Lock()
					o.err = err
					o.mu.Unlock()
					observability.RecordError(o.kind, "send")
					log.Warn().Str("stream", o.s.ID()).Err(err).Msg("transport.outbox write failed")
				} else {
					observability.RecordFrame(o.kind, observability.DirectionOut, len(item.payload))
				}
			}
			if item.result != nil {
				item.result <- err
			}
		}
	}
}

// offer queues payload without waiting.
func (o *outbox) offer(payload []byte) error {
	if err := o.failed(); err != nil {
		return err
	}
	select {
	case <-o.quit:
		return ErrTransportClosed
	default:
	}
	select {
	case o.queue <- sendItem{payload: payload}:
		return nil
	default:
		return ErrWouldBlock
	}
}

// send queues payload and waits until it is written.
func (o *outbox) send(payload []byte) error {
	if err := o.failed(); err != nil {
		return err
	}
	result := make(chan error, 1)
	select {
	case o.queue <- sendItem{payload: payload, result: result}:
	case <-o.quit:
		return ErrTransportClosed
	}
	select {
	case err := <-result:
		return err
	case <-o.done:
		return ErrTransportClosed
	}
}

func (o *outbox) failed() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}

func (o *outbox) stop() {
	o.once.Do(func() { close(o.quit) })
}

func (o *outbox) wait() {
	<-o.done
}
