package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/heimdex/heimdex-editor/internal/media"
	"github.com/heimdex/heimdex-editor/internal/timeline"
)

var (
	ErrNotFound    = errors.New("asset not found")
	ErrUnsupported = errors.New("unsupported media file")
	ErrClosed      = errors.New("library closed")
)

const defaultConcurrency = 4

type Option func(*Library)

// WithConcurrency bounds how many files ImportAll probes at once.
func WithConcurrency(n int) Option {
	return func(l *Library) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Library) {
		if now != nil {
			l.now = now
		}
	}
}

// Library is the asset import collaborator: it turns files into assets with
// playable handles and drops duplicates by signature.
type Library struct {
	repo        Repository
	prober      Prober
	logger      *slog.Logger
	concurrency int
	now         func() time.Time

	// mu serialises the signature check with the insert.
	mu     sync.Mutex
	closed bool
}

func New(repo Repository, prober Prober, logger *slog.Logger, opts ...Option) *Library {
	l := &Library{
		repo:        repo,
		prober:      prober,
		logger:      logger,
		concurrency: defaultConcurrency,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Import probes path and adds it to the library. Importing a file whose
// signature is already known returns the existing asset with Duplicate set.
func (l *Library) Import(ctx context.Context, path string) (*ImportResult, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("path does not exist: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a regular file", ErrUnsupported, filepath.Base(absPath))
	}
	if !IsVideoFile(absPath) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Base(absPath))
	}

	sig := Signature(absPath, info.Size(), info.ModTime())
	if existing, err := l.lookupSignature(ctx, sig); err != nil {
		return nil, err
	} else if existing != nil {
		l.logDuplicate(existing, absPath)
		return &ImportResult{Path: absPath, Asset: existing, Duplicate: true}, nil
	}

	probe, err := l.prober.Probe(ctx, absPath)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", filepath.Base(absPath), err)
	}
	if probe.DurationSeconds <= 0 {
		return nil, fmt.Errorf("probe %s: %w", filepath.Base(absPath), ErrNoDuration)
	}

	title := strings.TrimSpace(probe.Title)
	if title == "" {
		title = titleFromPath(absPath)
	}
	asset := &Asset{
		ID:              NewID(),
		Signature:       sig,
		Title:           title,
		Path:            absPath,
		SizeBytes:       info.Size(),
		ModTime:         info.ModTime(),
		DurationSeconds: probe.DurationSeconds,
		Handle:          NewID(),
		CreatedAt:       l.now(),
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ErrClosed
	}
	// Another import of the same file may have finished while probing; the
	// freshly minted handle is then simply never stored.
	existing, err := l.repo.GetAssetBySignature(ctx, sig)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		l.logDuplicate(existing, absPath)
		return &ImportResult{Path: absPath, Asset: existing, Duplicate: true}, nil
	}
	if err := l.repo.CreateAsset(ctx, asset, contentType(absPath)); err != nil {
		return nil, err
	}

	if l.logger != nil {
		l.logger.Info("asset imported", "asset_id", asset.ID, "title", asset.Title, "duration_seconds", asset.DurationSeconds)
	}
	return &ImportResult{Path: absPath, Asset: asset}, nil
}

// ImportAll imports paths concurrently. Per-file failures are reported in
// the matching result; only cancellation fails the whole call.
func (l *Library) ImportAll(ctx context.Context, paths []string) ([]ImportResult, error) {
	results := make([]ImportResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)

	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := l.Import(gctx, path)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				if l.logger != nil {
					l.logger.Warn("import failed", "path", path, "error", err)
				}
				results[i] = ImportResult{Path: path, Error: err.Error()}
				return nil
			}
			results[i] = *res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (l *Library) List(ctx context.Context) ([]*Asset, error) {
	return l.repo.ListAssets(ctx)
}

func (l *Library) Count(ctx context.Context) (int, error) {
	return l.repo.CountAssets(ctx)
}

func (l *Library) Get(ctx context.Context, id string) (*Asset, error) {
	a, err := l.repo.GetAsset(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return a, nil
}

// DragAsset resolves an asset for placement on the timeline.
func (l *Library) DragAsset(ctx context.Context, id string) (timeline.DragAsset, error) {
	a, err := l.Get(ctx, id)
	if err != nil {
		return timeline.DragAsset{}, err
	}
	return a.VideoAsset().Drag(), nil
}

// Remove deletes the asset and releases its media handle. Clips already on
// the timeline keep their object URL, which stops resolving.
func (l *Library) Remove(ctx context.Context, id string) error {
	if _, err := l.Get(ctx, id); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.repo.DeleteAsset(ctx, id); err != nil {
		return err
	}
	if l.logger != nil {
		l.logger.Info("asset removed", "asset_id", id)
	}
	return nil
}

// Resolve maps a media handle, or a full object URL, to the file it serves.
func (l *Library) Resolve(ctx context.Context, handle string) (*Handle, error) {
	handle = strings.TrimPrefix(handle, ObjectURLPrefix)
	h, err := l.repo.GetHandle(ctx, handle)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, fmt.Errorf("%w: handle %s", ErrNotFound, handle)
	}
	return h, nil
}

// ResolveMedia lets the media server stream library handles.
func (l *Library) ResolveMedia(ctx context.Context, handle string) (media.Source, error) {
	h, err := l.Resolve(ctx, handle)
	if errors.Is(err, ErrNotFound) {
		return media.Source{}, fmt.Errorf("%w: %s", media.ErrNoHandle, handle)
	}
	if err != nil {
		return media.Source{}, err
	}
	return media.Source{Path: h.Path, ContentType: h.ContentType}, nil
}

// Close releases every media handle. Later imports fail with ErrClosed.
func (l *Library) Close(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	n, err := l.repo.ReleaseHandles(ctx)
	if err != nil {
		return fmt.Errorf("release media handles: %w", err)
	}
	if l.logger != nil {
		l.logger.Info("library closed", "released_handles", n)
	}
	return nil
}

func (l *Library) lookupSignature(ctx context.Context, sig string) (*Asset, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ErrClosed
	}
	return l.repo.GetAssetBySignature(ctx, sig)
}

func (l *Library) logDuplicate(existing *Asset, path string) {
	if l.logger != nil {
		l.logger.Info("duplicate import dropped", "asset_id", existing.ID, "path", path)
	}
}
