package mailalert

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/code19m/errx"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap/zapcore"
)

// sendFunc delivers one formatted alert email. The default implementation
// goes over SMTP; tests replace it through WithSendFunc.
type sendFunc func(subject, htmlBody string) error

// capturedEntry is one log entry held in the pending batch, together with
// its structured fields rendered at capture time.
type capturedEntry struct {
	entry  zapcore.Entry
	fields map[string]any
}

// Core is a zapcore.Core that captures entries at or above the configured
// minimum level and ships them as batched HTML alert emails.
//
// Entries accumulate in an in-memory queue guarded by a mutex. The queue is
// flushed either when MaxBatchSize is reached or on Sync/Close. A flush
// detaches the queue under the lock and dispatches the actual send on a
// goroutine, so the logging caller never blocks on network I/O. Sync and
// Close wait for their dispatched send up to SendTimeout; a timed-out send
// is abandoned. Batches that fail to send are dropped: failures are written
// to stderr, never routed back through the logger, and never retried.
type Core struct {
	zapcore.LevelEnabler

	state   *handlerState
	context []zapcore.Field
}

// handlerState is shared between a Core and its With-derived clones.
type handlerState struct {
	cfg  Config
	send sendFunc

	mu      sync.Mutex
	pending []capturedEntry
}

// Option customizes Core construction.
type Option func(*handlerState)

// WithSendFunc replaces the SMTP delivery path. Intended for tests.
func WithSendFunc(fn func(subject, htmlBody string) error) Option {
	return func(s *handlerState) {
		s.send = fn
	}
}

// NewCore creates a batching email handler core. Defaults are applied to
// cfg before validation, so a zero SendTimeout becomes 30s and a zero
// MinLevel becomes "error".
//
// Attach the returned Core to a logger via logger.WithCores, or tee it
// under any zap logger directly:
//
//	core, err := mailalert.NewCore(cfg)
//	log := zap.New(zapcore.NewTee(baseCore, core), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
//	defer core.Sync()
func NewCore(cfg Config, opts ...Option) (*Core, error) {
	if err := defaults.Set(&cfg); err != nil {
		return nil, errx.Wrap(err)
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(cfg); err != nil {
		return nil, errx.Wrap(err)
	}

	minLevel, err := zapcore.ParseLevel(cfg.MinLevel)
	if err != nil {
		return nil, errx.Wrap(err)
	}

	state := &handlerState{cfg: cfg}
	state.send = state.smtpSend
	for _, opt := range opts {
		opt(state)
	}

	return &Core{
		LevelEnabler: minLevel,
		state:        state,
	}, nil
}

// With implements zapcore.Core. The clone shares the pending queue with the
// parent so batches stay unified across child loggers.
func (c *Core) With(fields []zapcore.Field) zapcore.Core {
	clone := &Core{
		LevelEnabler: c.LevelEnabler,
		state:        c.state,
		context:      make([]zapcore.Field, 0, len(c.context)+len(fields)),
	}
	clone.context = append(clone.context, c.context...)
	clone.context = append(clone.context, fields...)
	return clone
}

// Check implements zapcore.Core.
func (c *Core) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

// Write implements zapcore.Core. It appends the entry to the pending batch
// and triggers a non-blocking flush when the batch cap is reached.
func (c *Core) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.context {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}

	if c.state.append(capturedEntry{entry: ent, fields: enc.Fields}) {
		c.state.flush(false)
	}
	return nil
}

// Sync implements zapcore.Core. It flushes any pending entries and waits
// for the dispatched send up to SendTimeout, to maximize delivery before
// process exit. zap invokes Sync on logger shutdown, which makes this the
// explicit flush-on-exit path.
func (c *Core) Sync() error {
	c.state.flush(true)
	return nil
}

// Close flushes pending entries exactly like Sync. It exists so callers
// that wire the handler outside a zap logger still have an explicit
// lifecycle method to invoke on shutdown.
func (c *Core) Close() error {
	return c.Sync()
}

// append adds an entry to the pending queue and reports whether the
// configured batch cap has been reached.
func (s *handlerState) append(rec capturedEntry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = append(s.pending, rec)
	return s.cfg.MaxBatchSize > 0 && len(s.pending) >= s.cfg.MaxBatchSize
}

// flush detaches the pending queue and dispatches the send on a goroutine.
// The lock is held only for the detach, never across network I/O, so
// entries emitted during an in-flight send accumulate into a fresh batch.
// When wait is true the call blocks until the send finishes or SendTimeout
// elapses, whichever comes first.
func (s *handlerState) flush(wait bool) {
	s.mu.Lock()
	if len(s.pending) == 0 {
		s.mu.Unlock()
		return
	}
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.sendBatch(batch)
	}()

	if wait {
		select {
		case <-done:
		case <-time.After(s.cfg.SendTimeout):
		}
	}
}

// sendBatch formats and delivers one batch. It runs on its own goroutine;
// failures go to stderr rather than back through the logging system, since
// the handler is itself a log sink and must not recurse.
func (s *handlerState) sendBatch(batch []capturedEntry) {
	subject := batchSubject(s.cfg.SubjectPrefix, batch)
	body := formatHTMLBatch(batch)

	if err := s.send(subject, body); err != nil {
		fmt.Fprintf(os.Stderr, "mailalert: failed to send alert batch of %d: %v\n", len(batch), err)
	}
}

func (s *handlerState) smtpSend(subject, htmlBody string) error {
	return SendHTML(
		s.cfg.FromAddr,
		s.cfg.ToAddrs,
		subject,
		htmlBody,
		s.cfg.PasswordFile,
		s.cfg.SMTPHost,
		s.cfg.SMTPPort,
	)
}
