// Package remote provides a read-only provider fed by a remote flag service
//
// USAGE:
//
//	source := remote.NewHTTPSource("https://flags.example.com", "/v1/flags/myapp", remote.HTTPOptions{})
//	provider, err := remote.New(source, remote.Options{FallbackPath: "/var/cache/myapp/flags.json"})
//	if err := provider.Start(ctx); err != nil {
//	    log.Printf("initial sync failed, serving fallback: %v", err)
//	}
//	defer provider.Stop()
//
// The provider serves reads from an in-memory snapshot swapped atomically on
// every successful refresh. A refresh tries the source with exponential
// backoff, then the local fallback file. Every successful fetch is also
// written to the fallback file so a restart without network starts from the
// last known state.
//
// Lookup: a key path is first resolved as nested maps (ui -> dark_mode), then
// as a flat key holding the full path ("ui/dark_mode").
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package remote

import (
	"context"
	goerrors "errors"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agilira/go-errors"
	"github.com/agilira/go-timecache"
	"github.com/agilira/vexilla"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Error codes of the remote provider.
const (
	ErrCodeRemoteFetch    = "VEXILLA_REMOTE_FETCH"
	ErrCodeRemoteRejected = "VEXILLA_REMOTE_REJECTED"
	ErrCodeNoSnapshot     = "VEXILLA_REMOTE_NO_SNAPSHOT"
)

// Source fetches the complete flag document from a remote service.
type Source interface {
	// Name identifies the source in logs and errors.
	Name() string
	// Fetch returns the current nested flag map. Errors carrying
	// ErrCodeRemoteRejected are permanent and end the retry loop.
	Fetch(ctx context.Context) (map[string]interface{}, error)
}

// Options configures a Provider.
type Options struct {
	// Name identifies the provider. Default: "remote".
	Name string

	// Separator is used to build flat keys and by Keys. Default: "/".
	Separator string

	// RefreshInterval is the background sync period. Default: 30s.
	RefreshInterval time.Duration

	// Timeout bounds one refresh including retries. Default: 10s.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt. Default: 3;
	// negative disables retries.
	MaxRetries int

	// RetryDelay is the first backoff delay, doubled per retry. Default: 500ms.
	RetryDelay time.Duration

	// FallbackPath is a local file read when the source fails and rewritten
	// after every successful fetch. Optional.
	FallbackPath string

	// ChangeBuffer is the capacity of the Changes channel. Default: 64.
	ChangeBuffer int

	// ErrorHandler receives background refresh failures.
	ErrorHandler vexilla.ErrorHandler

	// Logger receives sync diagnostics. Default: zerolog.Nop().
	Logger *zerolog.Logger
}

// WithDefaults fills unset options.
func (o Options) WithDefaults() Options {
	if o.Name == "" {
		o.Name = "remote"
	}
	if o.Separator == "" {
		o.Separator = vexilla.DefaultSeparator
	}
	if o.RefreshInterval <= 0 {
		o.RefreshInterval = 30 * time.Second
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	} else if o.MaxRetries == 0 {
		o.MaxRetries = 3
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = 500 * time.Millisecond
	}
	if o.ChangeBuffer <= 0 {
		o.ChangeBuffer = 64
	}
	if o.Logger == nil {
		nop := zerolog.Nop()
		o.Logger = &nop
	}
	return o
}

// Provider is a read-only vexilla.Provider backed by a Source.
//
// Thread safety: reads are lock-free; refreshes are deduplicated.
type Provider struct {
	source  Source
	options Options
	logger  zerolog.Logger

	snapshot atomic.Pointer[map[string]interface{}]
	lastSync atomic.Int64
	fromFile atomic.Bool

	refresh singleflight.Group
	changes chan vexilla.ChangeEvent

	running atomic.Bool
	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
}

// New validates options and returns a provider with an empty snapshot.
func New(source Source, options Options) (*Provider, error) {
	if source == nil {
		return nil, errors.New(vexilla.ErrCodeInvalidConfig, "remote source cannot be nil")
	}
	if options.FallbackPath != "" {
		if err := vexilla.ValidateStorePath(options.FallbackPath); err != nil {
			return nil, err
		}
	}
	options = options.WithDefaults()
	p := &Provider{
		source:  source,
		options: options,
		logger:  options.Logger.With().Str("provider", options.Name).Str("source", source.Name()).Logger(),
		changes: make(chan vexilla.ChangeEvent, options.ChangeBuffer),
	}
	empty := map[string]interface{}{}
	p.snapshot.Store(&empty)
	return p, nil
}

// Name implements vexilla.Provider.
func (p *Provider) Name() string { return p.options.Name }

// IsWritable implements vexilla.Provider.
func (p *Provider) IsWritable() bool { return false }

// Read implements vexilla.Provider.
func (p *Provider) Read(key vexilla.KeyPath) (vexilla.EncodedValue, bool) {
	if key.IsEmpty() {
		return vexilla.EncodedValue{}, false
	}
	snap := *p.snapshot.Load()
	raw, ok := vexilla.GetNested(snap, key.Segments())
	if !ok {
		raw, ok = snap[vexilla.NewKeyPath(p.options.Separator, key.Segments()...).FullPath()]
	}
	if !ok || raw == nil {
		return vexilla.EncodedValue{}, false
	}
	return vexilla.FromNative(raw)
}

// Write implements vexilla.Provider.
func (p *Provider) Write(vexilla.KeyPath, vexilla.EncodedValue) (bool, error) {
	return false, vexilla.ReadOnlyError(p.options.Name)
}

// Reset implements vexilla.Provider.
func (p *Provider) Reset(vexilla.KeyPath) error { return vexilla.ReadOnlyError(p.options.Name) }

// Keys implements vexilla.KeyLister.
func (p *Provider) Keys() []vexilla.KeyPath {
	return vexilla.CollectKeys(*p.snapshot.Load(), p.options.Separator)
}

// Snapshot returns a copy of the current flag map.
func (p *Provider) Snapshot() map[string]interface{} {
	snap := *p.snapshot.Load()
	out := make(map[string]interface{}, len(snap))
	for k, v := range snap {
		out[k] = v
	}
	return out
}

// Changes implements vexilla.ChangeNotifier.
func (p *Provider) Changes() <-chan vexilla.ChangeEvent { return p.changes }

// LastSync returns the time of the last successful refresh, zero if none.
func (p *Provider) LastSync() time.Time {
	ns := p.lastSync.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// ServingFallback reports whether the snapshot came from the fallback file.
func (p *Provider) ServingFallback() bool { return p.fromFile.Load() }

// Start performs an initial refresh and starts the background loop. The
// loop keeps running when the initial refresh fails; that error is returned.
func (p *Provider) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running.Load() {
		p.mu.Unlock()
		return errors.New(vexilla.ErrCodeWatcherBusy, "remote provider is already running").
			WithContext("provider", p.options.Name)
	}
	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel, p.done = cancel, done
	p.running.Store(true)
	p.mu.Unlock()

	go p.loop(loopCtx, done)
	return p.Refresh(loopCtx)
}

// Stop ends the background loop and waits for it. Safe to call twice and
// concurrently with Start.
func (p *Provider) Stop() {
	p.mu.Lock()
	if !p.running.Load() {
		p.mu.Unlock()
		return
	}
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.running.Store(false)
	p.mu.Unlock()
	cancel()
	<-done
}

func (p *Provider) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(p.options.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.Refresh(ctx); err != nil && p.options.ErrorHandler != nil {
				p.options.ErrorHandler(err, p.source.Name())
			}
		}
	}
}

// Refresh fetches the document now. Concurrent calls share one fetch.
func (p *Provider) Refresh(ctx context.Context) error {
	_, err, _ := p.refresh.Do("refresh", func() (interface{}, error) {
		return nil, p.sync(ctx)
	})
	return err
}

func (p *Provider) sync(ctx context.Context) error {
	data, fetchErr := p.fetchWithRetries(ctx)
	fromFile := false
	if fetchErr != nil {
		p.logger.Warn().Err(fetchErr).Msg("remote fetch failed")
		fallback, err := p.loadFallback()
		if err != nil {
			if p.options.FallbackPath != "" {
				p.logger.Error().Err(err).Str("path", p.options.FallbackPath).Msg("fallback load failed")
			}
			return fetchErr
		}
		data, fromFile = fallback, true
	}

	before := *p.snapshot.Load()
	p.snapshot.Store(&data)
	p.fromFile.Store(fromFile)
	if !fromFile {
		p.lastSync.Store(timecache.CachedTimeNano())
		if err := p.saveFallback(data); err != nil {
			p.logger.Warn().Err(err).Str("path", p.options.FallbackPath).Msg("fallback save failed")
		}
	}

	events := vexilla.DiffSnapshots(p.options.Name, before, data, p.options.Separator)
	for _, ev := range events {
		vexilla.Notify(p.changes, ev)
	}
	p.logger.Debug().Int("changes", len(events)).Bool("fallback", fromFile).Msg("remote snapshot refreshed")

	if fromFile {
		return errors.Wrap(fetchErr, ErrCodeRemoteFetch, "remote source failed, serving fallback file").
			WithContext("fallback", p.options.FallbackPath)
	}
	return nil
}

// fetchWithRetries tries the source with exponential backoff.
func (p *Provider) fetchWithRetries(ctx context.Context) (map[string]interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, p.options.Timeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt <= p.options.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := waitForRetry(ctx, backoff(p.options.RetryDelay, attempt)); err != nil {
				return nil, err
			}
		}
		data, err := p.source.Fetch(ctx)
		if err == nil {
			if data == nil {
				data = map[string]interface{}{}
			}
			return data, nil
		}
		lastErr = err
		if shouldStopRetrying(err) {
			break
		}
	}
	return nil, errors.Wrap(lastErr, ErrCodeRemoteFetch, "failed to fetch remote flags").
		WithContext("source", p.source.Name())
}

func backoff(base time.Duration, attempt int) time.Duration {
	if attempt > 30 {
		attempt = 30
	}
	return base * time.Duration(1<<(attempt-1))
}

func waitForRetry(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), ErrCodeRemoteFetch, "context canceled during retry")
	}
}

// shouldStopRetrying is true for cancellation and rejected requests.
func shouldStopRetrying(err error) bool {
	if goerrors.Is(err, context.Canceled) || goerrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return vexilla.HasCode(err, ErrCodeRemoteRejected)
}

func (p *Provider) loadFallback() (map[string]interface{}, error) {
	if p.options.FallbackPath == "" {
		return nil, errors.New(ErrCodeNoSnapshot, "no fallback file configured")
	}
	raw, err := os.ReadFile(p.options.FallbackPath) // #nosec G304 -- path comes from configuration
	if err != nil {
		return nil, errors.Wrap(err, vexilla.ErrCodeIOError, "failed to read fallback file").
			WithContext("path", p.options.FallbackPath)
	}
	return vexilla.ParseConfig(raw, p.fallbackFormat())
}

func (p *Provider) saveFallback(data map[string]interface{}) error {
	if p.options.FallbackPath == "" {
		return nil
	}
	payload, err := vexilla.SerializeConfig(data, p.fallbackFormat())
	if err != nil {
		return err
	}
	return vexilla.WriteFileAtomic(p.options.FallbackPath, payload)
}

func (p *Provider) fallbackFormat() vexilla.ConfigFormat {
	if format := vexilla.DetectFormat(p.options.FallbackPath); format != vexilla.FormatUnknown {
		return format
	}
	return vexilla.FormatJSON
}
