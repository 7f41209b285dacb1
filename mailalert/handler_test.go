package mailalert_test

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/isaacutils/pkg/mailalert"
)

// sentMail is one delivery captured by the test send function.
type sentMail struct {
	subject string
	body    string
}

// collector records deliveries made by the handler's background sends.
type collector struct {
	mu   sync.Mutex
	sent []sentMail
}

func (c *collector) send(subject, body string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, sentMail{subject: subject, body: body})
	return nil
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func (c *collector) get(i int) sentMail {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sent[i]
}

func testConfig(maxBatch int) mailalert.Config {
	return mailalert.Config{
		FromAddr:     "alerts@example.com",
		ToAddrs:      []string{"ops@example.com"},
		PasswordFile: ".secrets/smtp_pwd",
		SMTPHost:     "smtp.example.com",
		MaxBatchSize: maxBatch,
		SendTimeout:  5 * time.Second,
	}
}

func newTestCore(t *testing.T, maxBatch int) (*mailalert.Core, *collector) {
	t.Helper()

	col := &collector{}
	core, err := mailalert.NewCore(testConfig(maxBatch), mailalert.WithSendFunc(col.send))
	require.NoError(t, err)
	return core, col
}

func TestNewCore_InvalidConfig(t *testing.T) {
	_, err := mailalert.NewCore(mailalert.Config{})
	require.Error(t, err)
}

func TestCore_NoFlushWithoutLimit(t *testing.T) {
	core, col := newTestCore(t, 0)
	log := zap.New(core)

	for i := range 5 {
		log.Error(fmt.Sprintf("failure %d", i))
	}

	assert.Equal(t, 0, col.count(), "no send expected before explicit flush")

	require.NoError(t, core.Sync())
	require.Equal(t, 1, col.count())
	assert.Equal(t, "[ALERT] 5 errors occurred", col.get(0).subject)
}

func TestCore_SyncOnEmptyQueueSendsNothing(t *testing.T) {
	core, col := newTestCore(t, 0)

	require.NoError(t, core.Sync())
	assert.Equal(t, 0, col.count())
}

func TestCore_FlushClearsQueue(t *testing.T) {
	core, col := newTestCore(t, 0)
	log := zap.New(core)

	log.Error("first")
	require.NoError(t, core.Sync())
	require.Equal(t, 1, col.count())

	// A second sync must not resend the already-flushed batch.
	require.NoError(t, core.Sync())
	assert.Equal(t, 1, col.count())

	// A fresh entry starts a fresh accumulation.
	log.Error("second")
	require.NoError(t, core.Sync())
	require.Equal(t, 2, col.count())
	assert.Equal(t, "[ALERT] ERROR: second", col.get(1).subject)
}

func TestCore_AutoFlushAtBatchLimit(t *testing.T) {
	core, col := newTestCore(t, 2)
	log := zap.New(core)

	for i := range 4 {
		log.Error(fmt.Sprintf("failure %d", i))
	}

	require.Eventually(t, func() bool { return col.count() == 2 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, "[ALERT] 2 errors occurred", col.get(0).subject)
	assert.Equal(t, "[ALERT] 2 errors occurred", col.get(1).subject)

	// Remainder below the limit stays queued until an explicit flush.
	log.Error("leftover")
	assert.Equal(t, 2, col.count())

	require.NoError(t, core.Close())
	require.Equal(t, 3, col.count())
	assert.Equal(t, "[ALERT] ERROR: leftover", col.get(2).subject)
}

func TestCore_IgnoresLowerLevels(t *testing.T) {
	core, col := newTestCore(t, 0)
	log := zap.New(core)

	log.Info("just info")
	log.Warn("just a warning")
	log.Error("real failure")

	require.NoError(t, core.Sync())
	require.Equal(t, 1, col.count())
	assert.Equal(t, "[ALERT] ERROR: real failure", col.get(0).subject)
}

func TestCore_CapturesStructuredFields(t *testing.T) {
	core, col := newTestCore(t, 0)
	log := zap.New(core)

	log.With(zap.String("post_id", "1234567890")).Error("fetch failed", zap.Int("attempt", 3))

	require.NoError(t, core.Sync())
	require.Equal(t, 1, col.count())

	body := col.get(0).body
	assert.Contains(t, body, "post_id: 1234567890")
	assert.Contains(t, body, "attempt: 3")
}

func TestCore_MultiEntryBodyHasSummary(t *testing.T) {
	core, col := newTestCore(t, 0)
	log := zap.New(core)

	log.Error("first failure")
	log.Error("second failure")

	require.NoError(t, core.Sync())
	require.Equal(t, 1, col.count())

	body := col.get(0).body
	assert.Contains(t, body, "2 error(s) occurred")
	assert.Contains(t, body, "Time Range:")
	assert.Contains(t, body, "Error 1 - ERROR: first failure")
	assert.Contains(t, body, "Error 2 - ERROR: second failure")
}

func TestCore_EscapesStackTraces(t *testing.T) {
	core, col := newTestCore(t, 0)

	ent := zapcore.Entry{
		Level:   zapcore.ErrorLevel,
		Time:    time.Now(),
		Message: "panic in renderer",
		Stack:   `<script>alert("x & y")</script> 'quoted'`,
	}
	require.NoError(t, core.Write(ent, nil))
	require.NoError(t, core.Sync())

	require.Equal(t, 1, col.count())
	body := col.get(0).body

	assert.Contains(t, body, "&lt;script&gt;alert(&quot;x &amp; y&quot;)&lt;/script&gt; &#39;quoted&#39;")
	assert.NotContains(t, body, "<script>")
}

func TestCore_EmitDuringInFlightSendIsNotLost(t *testing.T) {
	started := make(chan struct{}, 2)
	release := make(chan struct{})

	col := &collector{}
	blockingSend := func(subject, body string) error {
		started <- struct{}{}
		<-release
		return col.send(subject, body)
	}

	core, err := mailalert.NewCore(testConfig(1), mailalert.WithSendFunc(blockingSend))
	require.NoError(t, err)
	log := zap.New(core)

	log.Error("first")
	<-started

	// The first send is in flight; this entry must land in a fresh batch
	// without blocking on the send.
	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Error("second")
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("emit blocked on in-flight send")
	}

	close(release)
	require.Eventually(t, func() bool { return col.count() == 2 }, time.Second, 10*time.Millisecond)

	subjects := []string{col.get(0).subject, col.get(1).subject}
	assert.Contains(t, strings.Join(subjects, "\n"), "first")
	assert.Contains(t, strings.Join(subjects, "\n"), "second")
}

func TestCore_WithSharesBatch(t *testing.T) {
	core, col := newTestCore(t, 0)
	log := zap.New(core)
	child := log.With(zap.String("component", "scraper"))

	log.Error("parent failure")
	child.Error("child failure")

	require.NoError(t, core.Sync())
	require.Equal(t, 1, col.count())
	assert.Equal(t, "[ALERT] 2 errors occurred", col.get(0).subject)
	assert.Contains(t, col.get(0).body, "component: scraper")
}
