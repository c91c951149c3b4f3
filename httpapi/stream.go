package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/idg10/rxrewrite/engine"
	apperrors "github.com/idg10/rxrewrite/errors"
	"github.com/idg10/rxrewrite/logger"
	"github.com/idg10/rxrewrite/push"
)

// Server-sent event names, one per notification kind.
const (
	EventNext      = "next"
	EventError     = "error"
	EventCompleted = "completed"
)

const keepAliveInterval = 15 * time.Second

type event struct {
	name string
	data []byte
}

// eventQueue buffers notifications between the observer, which may be
// called on any goroutine and before the writer loop starts, and the loop.
type eventQueue struct {
	mu     sync.Mutex
	events []event
	done   bool
	ready  chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{ready: make(chan struct{}, 1)}
}

func (q *eventQueue) push(e event, terminal bool) {
	q.mu.Lock()
	if q.done {
		q.mu.Unlock()
		return
	}
	q.events = append(q.events, e)
	q.done = terminal
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *eventQueue) drain() ([]event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	events := q.events
	q.events = nil
	return events, q.done
}

func (q *eventQueue) observer() push.Observer[any] {
	return push.ObserverFuncs[any]{
		Next: func(v any) {
			data, err := json.Marshal(v)
			if err != nil {
				q.push(errorEvent(apperrors.Internal(err)), true)
				return
			}
			q.push(event{name: EventNext, data: data}, false)
		},
		Error: func(err error) {
			q.push(errorEvent(engine.Failure(err)), true)
		},
		Completed: func() {
			q.push(event{name: EventCompleted, data: []byte("{}")}, true)
		},
	}
}

func errorEvent(err error) event {
	_, body := apperrors.ResponseFor(err)
	data, _ := json.Marshal(body.Error)
	return event{name: EventError, data: data}
}

func writeEvent(w io.Writer, e event) {
	_, _ = fmt.Fprintf(w, "event: %s\n", e.name)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", e.data)
}

// stream runs a pipeline and sends each notification as a server-sent
// event as soon as it is produced. The subscription is disposed when the
// client goes away or the run timeout passes.
func (h *Handler) stream(c *gin.Context) {
	p, err := h.prepare(c)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	src, err := p.plan.Stream(p.req.Values)
	if err != nil {
		RespondWithError(c, err)
		return
	}

	ctx, cancel := h.runContext(c)
	defer cancel()

	release, err := h.runs.Acquire(ctx)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	defer release()

	q := newEventQueue()
	d, err := src.Subscribe(q.observer())
	if err != nil {
		RespondWithError(c, engine.Failure(err))
		return
	}
	defer d.Dispose()

	log := h.log.WithContext(logger.ContextWithPipeline(c.Request.Context(), p.def.Name))
	log.Debug("Streaming pipeline", logger.Fields(logger.FieldStatus, "started"))

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				writeEvent(c.Writer, errorEvent(apperrors.Timeout("run").WithCause(ctx.Err())))
				c.Writer.Flush()
			}
			log.Debug("Stream ended early", logger.MergeWithError(nil, ctx.Err()))
			return

		case <-q.ready:
			events, done := q.drain()
			for _, e := range events {
				writeEvent(c.Writer, e)
			}
			c.Writer.Flush()
			if done {
				log.Debug("Streaming pipeline", logger.Fields(logger.FieldStatus, "finished"))
				return
			}

		case <-keepAlive.C:
			_, _ = fmt.Fprintf(c.Writer, ": keepalive %d\n\n", time.Now().Unix())
			c.Writer.Flush()
		}
	}
}
