// Package loader decodes image files off the render thread and hands the
// result back exactly once, tagged with the generation of the request.
package loader

import (
	"context"
	"sync"
	"time"

	"imageviewer/internal/logging"
	"imageviewer/pkg/bitmap"
)

// DecodeFunc turns a path into pixels. Decode is the default.
type DecodeFunc func(ctx context.Context, path string) (*bitmap.Bitmap, error)

// Result is the outcome of one load request
type Result struct {
	Generation uint64
	Path       string
	Image      *bitmap.Bitmap
	Err        error
	Elapsed    time.Duration
}

// Loader runs decodes in the background. Request, Poll and Wait must be called
// from a single goroutine (the render thread); only the decode itself runs
// elsewhere.
type Loader struct {
	decode  DecodeFunc
	results chan Result

	generation uint64
	path       string
	cancel     context.CancelFunc

	wg sync.WaitGroup
}

// New creates a loader. A nil decode uses Decode.
func New(decode DecodeFunc) *Loader {
	if decode == nil {
		decode = Decode
	}
	return &Loader{
		decode:  decode,
		results: make(chan Result, 8),
	}
}

// Request starts decoding path and returns its generation. Any request still in
// flight becomes stale: its context is cancelled and its result is dropped.
func (l *Loader) Request(path string) uint64 {
	if l.cancel != nil {
		l.cancel()
	}

	l.generation++
	gen := l.generation
	l.path = path

	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel

	l.wg.Add(1)
	go l.run(ctx, gen, path)

	logging.Logger().Debug("load requested", "path", path, "generation", gen)
	return gen
}

func (l *Loader) run(ctx context.Context, gen uint64, path string) {
	defer l.wg.Done()

	start := time.Now()
	img, err := l.decode(ctx, path)
	res := Result{
		Generation: gen,
		Path:       path,
		Image:      img,
		Err:        err,
		Elapsed:    time.Since(start),
	}

	select {
	case l.results <- res:
	case <-ctx.Done():
		logging.Logger().Debug("dropping cancelled load", "path", path, "generation", gen)
	}
}

// Generation returns the generation of the latest request, 0 before any
func (l *Loader) Generation() uint64 {
	return l.generation
}

// Path returns the path of the latest request
func (l *Loader) Path() string {
	return l.path
}

// Poll returns the result of the latest request if it has arrived. Stale
// results found on the way are discarded. It never blocks.
func (l *Loader) Poll() (Result, bool) {
	for {
		select {
		case res := <-l.results:
			if l.accept(res) {
				return res, true
			}
		default:
			return Result{}, false
		}
	}
}

// Wait blocks until the latest request completes or ctx is done
func (l *Loader) Wait(ctx context.Context) (Result, error) {
	for {
		select {
		case res := <-l.results:
			if l.accept(res) {
				return res, nil
			}
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
}

func (l *Loader) accept(res Result) bool {
	if res.Generation != l.generation {
		logging.Logger().Debug("discarding stale load", "path", res.Path,
			"generation", res.Generation, "latest", l.generation)
		return false
	}
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	return true
}

// Close cancels outstanding work and waits for the decoders to exit
func (l *Loader) Close() {
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.wg.Wait()
}
