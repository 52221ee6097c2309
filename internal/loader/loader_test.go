package loader

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"imageviewer/pkg/bitmap"
)

// gatedDecoder blocks each path until its gate is opened.
type gatedDecoder struct {
	mu    sync.Mutex
	gates map[string]chan struct{}
}

func newGatedDecoder(paths ...string) *gatedDecoder {
	d := &gatedDecoder{gates: make(map[string]chan struct{})}
	for _, p := range paths {
		d.gates[p] = make(chan struct{})
	}
	return d
}

func (d *gatedDecoder) open(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	close(d.gates[path])
}

func (d *gatedDecoder) decode(ctx context.Context, path string) (*bitmap.Bitmap, error) {
	d.mu.Lock()
	gate := d.gates[path]
	d.mu.Unlock()
	<-gate
	if path == "broken.png" {
		return nil, ErrDecode
	}
	return bitmap.New(len(path), 1, bitmap.FormatRGBA8), nil
}

func waitResult(t *testing.T, l *Loader) Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := l.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	return res
}

func TestLoaderDeliversResult(t *testing.T) {
	d := newGatedDecoder("a.png")
	l := New(d.decode)
	defer l.Close()

	gen := l.Request("a.png")
	if gen != 1 || l.Generation() != 1 || l.Path() != "a.png" {
		t.Fatalf("Request() gen=%d Generation()=%d Path()=%q", gen, l.Generation(), l.Path())
	}
	if _, ok := l.Poll(); ok {
		t.Fatal("Poll() returned a result before the decode finished")
	}

	d.open("a.png")
	res := waitResult(t, l)
	if res.Generation != 1 || res.Path != "a.png" || res.Err != nil || res.Image == nil {
		t.Errorf("result = %+v", res)
	}
}

func TestLoaderDiscardsStaleGeneration(t *testing.T) {
	d := newGatedDecoder("first.png", "second.png")
	l := New(d.decode)

	first := l.Request("first.png")
	second := l.Request("second.png")
	if second != first+1 {
		t.Fatalf("generations %d, %d not sequential", first, second)
	}

	// The newer decode finishes first.
	d.open("second.png")
	res := waitResult(t, l)
	if res.Generation != second || res.Path != "second.png" {
		t.Fatalf("result = %+v, want generation %d", res, second)
	}

	// The older one completes afterwards and must never be delivered.
	d.open("first.png")
	l.Close()
	if res, ok := l.Poll(); ok {
		t.Errorf("Poll() delivered stale result %+v", res)
	}
}

func TestLoaderStaleArrivesFirst(t *testing.T) {
	d := newGatedDecoder("old.png", "new.png")
	l := New(d.decode)
	defer l.Close()

	l.Request("old.png")
	latest := l.Request("new.png")

	d.open("old.png")
	d.open("new.png")

	res := waitResult(t, l)
	if res.Generation != latest || res.Path != "new.png" {
		t.Errorf("result = %+v, want new.png generation %d", res, latest)
	}
}

func TestLoaderReportsDecodeError(t *testing.T) {
	d := newGatedDecoder("broken.png")
	l := New(d.decode)
	defer l.Close()

	l.Request("broken.png")
	d.open("broken.png")
	res := waitResult(t, l)
	if !errors.Is(res.Err, ErrDecode) || res.Image != nil {
		t.Errorf("result = %+v, want ErrDecode", res)
	}
}

func TestLoaderWaitHonoursContext(t *testing.T) {
	d := newGatedDecoder("slow.png")
	l := New(d.decode)

	l.Request("slow.png")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := l.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() error = %v, want context.Canceled", err)
	}

	d.open("slow.png")
	l.Close()
}

func TestLoaderCancelsPreviousRequest(t *testing.T) {
	started := make(chan context.Context, 1)
	release := make(chan struct{})
	decode := func(ctx context.Context, path string) (*bitmap.Bitmap, error) {
		if path == "first.png" {
			started <- ctx
			<-release
		}
		return bitmap.New(1, 1, bitmap.FormatRGBA8), nil
	}
	l := New(decode)

	l.Request("first.png")
	firstCtx := <-started
	l.Request("second.png")

	select {
	case <-firstCtx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("first request context was not cancelled")
	}

	close(release)
	res := waitResult(t, l)
	if res.Path != "second.png" {
		t.Errorf("result path = %q, want second.png", res.Path)
	}
	l.Close()
}
