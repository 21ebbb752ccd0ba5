package sink

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/Combine-Capital/logtable/pkg/errors"
	"github.com/Combine-Capital/logtable/pkg/logevent"
	"github.com/Combine-Capital/logtable/pkg/logging"
	"github.com/Combine-Capital/logtable/pkg/logtable"
	"github.com/Combine-Capital/logtable/pkg/metrics"
	"github.com/Combine-Capital/logtable/pkg/retry"
)

// Database is a batching sink that writes events as rows of a mapped table.
// Emit never blocks: when the queue is full the new event is dropped and
// counted. All writes happen on one goroutine.
type Database struct {
	writer  RowWriter
	mapping logtable.Mapping
	opts    Options

	queue    chan logevent.Event
	flushReq chan chan error
	done     chan struct{}

	// mu guards closed and the close of queue against concurrent Emit.
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
	closeErr  error

	report     rate.Sometimes
	suppressed atomic.Int64
}

// NewDatabase starts a sink writing through w. The mapping must already be
// validated against the enrichers feeding the sink.
func NewDatabase(w RowWriter, m logtable.Mapping, opts Options) *Database {
	opts = opts.withDefaults()

	d := &Database{
		writer:   w,
		mapping:  m,
		opts:     opts,
		queue:    make(chan logevent.Event, opts.QueueLimit),
		flushReq: make(chan chan error),
		done:     make(chan struct{}),
		report:   rate.Sometimes{First: 1, Interval: opts.ReportInterval},
	}
	d.opts.Retry.Notify = func(err error, next time.Duration) {
		d.opts.Metrics.Failed(d.opts.Name)
		d.opts.SelfLog.Debug().Err(err).Str(logging.FieldSink, d.opts.Name).Dur("retry_in", next).Msg("batch write failed, retrying")
	}

	go d.run()
	return d
}

// Emit queues ev for writing.
func (d *Database) Emit(ev logevent.Event) {
	if ev.Level() < d.opts.MinimumLevel {
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.opts.Metrics.Dropped(d.opts.Name, metrics.DropClosed, 1)
		return
	}

	select {
	case d.queue <- ev:
		d.opts.Metrics.Emitted(d.opts.Name)
	default:
		d.opts.Metrics.Dropped(d.opts.Name, metrics.DropQueueFull, 1)
		d.reportf(nil, "queue full, event dropped", 1)
	}
}

// Flush writes everything queued before the call. It returns the write
// errors of the batches it flushed.
func (d *Database) Flush(ctx context.Context) error {
	d.mu.RLock()
	closed := d.closed
	d.mu.RUnlock()
	if closed {
		return nil
	}

	reply := make(chan error, 1)
	select {
	case d.flushReq <- reply:
	case <-d.done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "sink flush canceled")
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "sink flush canceled")
	}
}

// Close stops accepting events, writes what is queued and waits for the
// writer goroutine. Later calls return the first call's result.
func (d *Database) Close(ctx context.Context) error {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()
	})

	select {
	case <-d.done:
		return d.closeErr
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "sink close timed out")
	}
}

// Check reports the sink unhealthy once it is closed.
func (d *Database) Check(context.Context) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return errors.NewPermanent("sink "+d.opts.Name+" is closed", nil)
	}
	return nil
}

func (d *Database) run() {
	defer close(d.done)

	ticker := time.NewTicker(d.opts.Period)
	defer ticker.Stop()

	batch := make([]logevent.Event, 0, d.opts.BatchSize)
	eager := d.opts.EagerlyEmitFirstEvent

	for {
		select {
		case ev, ok := <-d.queue:
			if !ok {
				d.closeErr = d.write(batch)
				return
			}
			batch = append(batch, ev)
			if eager || len(batch) >= d.opts.BatchSize {
				eager = false
				_ = d.write(batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				_ = d.write(batch)
				batch = batch[:0]
			}

		case reply := <-d.flushReq:
			var errs []error
			batch, errs = d.drain(batch)
			reply <- errors.Join(errs...)
		}
	}
}

// drain writes the pending batch and everything currently queued.
func (d *Database) drain(batch []logevent.Event) ([]logevent.Event, []error) {
	var errs []error
	flush := func() {
		if err := d.write(batch); err != nil {
			errs = append(errs, err)
		}
		batch = batch[:0]
	}

queued:
	for {
		select {
		case ev, ok := <-d.queue:
			if !ok {
				break queued
			}
			batch = append(batch, ev)
			if len(batch) >= d.opts.BatchSize {
				flush()
			}
		default:
			break queued
		}
	}
	flush()
	return batch, errs
}

// write projects and copies one batch. Rows that cannot be projected are
// dropped individually; a failed copy drops the whole batch once retries
// are exhausted.
func (d *Database) write(batch []logevent.Event) error {
	defer d.opts.Metrics.QueueDepth(d.opts.Name, len(d.queue))
	if len(batch) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(batch))
	for _, ev := range batch {
		row, err := d.mapping.Row(ev)
		if err != nil {
			d.opts.Metrics.Dropped(d.opts.Name, metrics.DropInvalidRow, 1)
			d.reportf(err, "event does not fit the column mapping, row dropped", 1)
			continue
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.opts.WriteTimeout)
	defer cancel()

	start := time.Now()
	n, err := retry.DoWithData(ctx, d.opts.Retry, func() (int64, error) {
		return d.writer.WriteRows(ctx, rows)
	})
	if err != nil {
		d.opts.Metrics.Failed(d.opts.Name)
		d.opts.Metrics.Dropped(d.opts.Name, metrics.DropWriteError, len(rows))
		d.reportf(err, "batch write failed, rows dropped", len(rows))
		return errors.Wrapf(err, "failed to write %d rows", len(rows))
	}

	d.opts.Metrics.Written(d.opts.Name, int(n), time.Since(start).Seconds())
	return nil
}

// reportf writes a failure to the self-log at most once per report
// interval. Suppressed drops are carried into the next report.
func (d *Database) reportf(err error, msg string, dropped int) {
	total := d.suppressed.Add(int64(dropped))
	d.report.Do(func() {
		d.suppressed.Add(-total)
		d.opts.SelfLog.Error().
			Err(err).
			Str(logging.FieldSink, d.opts.Name).
			Int64(logging.FieldCount, total).
			Msg(msg)
	})
}
