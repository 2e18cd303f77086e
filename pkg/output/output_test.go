package output

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geomancy/geo/pkg/check"
	"github.com/geomancy/geo/pkg/pool"
)

func sampleTree() *check.Outcome {
	env := check.NewOutcome("User", "Check environment variable 'USER'").AddDetail("value: ada").Pass()
	path := check.NewOutcome("Tmp", "Check path '/tmp/x'").Fail("missing")
	group := check.NewGroupOutcome("Files", "Files", check.All, []*pool.Future[*check.Outcome]{pool.Resolved(path)})
	return check.NewGroupOutcome("checks.toml", "checks.toml", check.All, []*pool.Future[*check.Outcome]{
		pool.Resolved(env),
		pool.Resolved(group),
	})
}

func TestLines(t *testing.T) {
	r := NewPlain(&bytes.Buffer{})
	out := sampleTree()
	require.True(t, out.Done())

	assert.Equal(t, []string{
		"[FAIL] checks.toml",
		"  [OK] Check environment variable 'USER'",
		"       value: ada",
		"  [FAIL] Files",
		"    [FAIL] Check path '/tmp/x' (missing)",
	}, r.Lines(out))
}

func TestLines_Pending(t *testing.T) {
	r := NewPlain(&bytes.Buffer{})
	f := pool.Submit(goRunner{}, func() *check.Outcome {
		select {}
	})
	out := check.NewGroupOutcome("root", "root", check.All, []*pool.Future[*check.Outcome]{
		pool.Resolved(check.NewOutcome("a", "A").Pass()),
		f,
	})

	assert.Equal(t, []string{
		"[WAIT] root",
		"  [OK] A",
		"  [WAIT] running",
	}, r.Lines(out))
	assert.Equal(t, "RUNNING 1 passed, 0 failed, 1 pending", r.Summary(out))
}

func TestSummary(t *testing.T) {
	r := NewPlain(&bytes.Buffer{})
	assert.Equal(t, "FAILED 1 passed, 1 failed", r.Summary(sampleTree()))

	ok := check.NewGroupOutcome("root", "root", check.Any, []*pool.Future[*check.Outcome]{
		pool.Resolved(check.NewOutcome("a", "A").Pass()),
		pool.Resolved(check.NewOutcome("b", "B").Fail("no")),
	})
	assert.Equal(t, "PASSED 1 passed, 1 failed", r.Summary(ok))
}

func TestWatch_NotATerminal(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, true)
	assert.False(t, r.live)
	assert.False(t, r.color)

	release := make(chan struct{})
	f := pool.Submit(goRunner{}, func() *check.Outcome {
		<-release
		return check.NewOutcome("slow", "Slow check").Pass()
	})
	out := check.NewGroupOutcome("root", "root", check.All, []*pool.Future[*check.Outcome]{f})

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(release)
	}()

	passed := r.Watch(context.Background(), out, 5*time.Millisecond)
	assert.True(t, passed)
	assert.Equal(t, "[OK] root\n  [OK] Slow check\nPASSED 1 passed, 0 failed\n", buf.String())
}

func TestWatch_Cancelled(t *testing.T) {
	var buf bytes.Buffer
	r := NewPlain(&buf)
	f := pool.Submit(goRunner{}, func() *check.Outcome {
		select {}
	})
	out := check.NewGroupOutcome("root", "root", check.All, []*pool.Future[*check.Outcome]{f})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.False(t, r.Watch(ctx, out, 5*time.Millisecond))
	assert.Contains(t, buf.String(), "[WAIT] running")
}

func TestRepaint(t *testing.T) {
	var buf bytes.Buffer
	r := &Renderer{w: &buf, live: true}
	out := check.NewOutcome("a", "A").Pass()

	r.repaint(out)
	assert.Equal(t, 1, r.painted)
	r.repaint(out)
	assert.Equal(t, "[OK] A\n\033[1A\033[J[OK] A\n", buf.String())
}

func TestFit(t *testing.T) {
	r := &Renderer{width: 12}
	assert.Equal(t, "short", r.fit("short", 0))
	assert.Equal(t, "a long mes…", r.fit("a long message", 0))
	assert.Equal(t, "a lo…", r.fit("a long message", 6))
	assert.Equal(t, "", r.fit("anything", 11))

	assert.Equal(t, "a long message", (&Renderer{}).fit("a long message", 100))
}

func TestFormatLabel(t *testing.T) {
	plain := &Renderer{}
	colored := &Renderer{color: true}

	tests := []struct {
		input     string
		wantColor string
	}{
		{"path: /usr/bin", dim + "path:" + reset + " /usr/bin"},
		{"multiple: colons: here", dim + "multiple:" + reset + " colons: here"},
		{"no colon here", "no colon here"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.input, plain.formatLabel(tt.input))
		assert.Equal(t, tt.wantColor, colored.formatLabel(tt.input))
	}
}

func TestPaint(t *testing.T) {
	assert.Equal(t, "[OK]", (&Renderer{}).paint(green, "[OK]"))
	assert.Equal(t, green+"[OK]"+reset, (&Renderer{color: true}).paint(green, "[OK]"))
}

type goRunner struct{}

func (goRunner) Go(fn func()) { go fn() }
