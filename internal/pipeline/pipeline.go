// Package pipeline runs share links through resolution, download and
// transcoding, and reports one Outcome per link.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/stupside/reelpull/internal/app"
	"github.com/stupside/reelpull/internal/extractor"
	"github.com/stupside/reelpull/internal/fetch"
	"github.com/stupside/reelpull/internal/ledger"
	"github.com/stupside/reelpull/internal/resolve"
	"github.com/stupside/reelpull/internal/transcode"
)

// ErrLimitReached is returned when the ledger denies a user another
// download.
var ErrLimitReached = errors.New("download limit reached")

// Resolver turns a share link into a ranked selection.
type Resolver interface {
	Resolve(ctx context.Context, shareLink string) (resolve.Selection, error)
}

// Fetcher downloads a media location to dest.
type Fetcher interface {
	Fetch(ctx context.Context, location, referer, dest string) (fetch.Asset, error)
}

// Transcoder normalizes a downloaded asset into dest.
type Transcoder interface {
	Transcode(ctx context.Context, asset fetch.Asset, dest string) (transcode.Result, error)
}

// Outcome is the result of one request as handed to the front end.
type Outcome struct {
	Success  bool   `json:"success"`
	FilePath string `json:"file_path,omitempty"`
	Filename string `json:"filename,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Service wires the stages of one request together.
type Service struct {
	dir        string
	sessions   int
	resolver   Resolver
	fetcher    Fetcher
	transcoder Transcoder
	ledger     ledger.Ledger
}

// NewService creates a Service writing deliverables to storage.Dir. A nil
// ledger disables download accounting.
func NewService(storage app.StorageConfig, pool app.PoolConfig, r Resolver, f Fetcher, t Transcoder, l ledger.Ledger) *Service {
	return &Service{
		dir:        storage.Dir,
		sessions:   max(1, pool.Sessions),
		resolver:   r,
		fetcher:    f,
		transcoder: t,
		ledger:     l,
	}
}

// Process resolves, downloads and transcodes one share link. Downloads
// are checked against and recorded in the ledger when userID is set.
func (s *Service) Process(ctx context.Context, shareLink, userID string) Outcome {
	id := uuid.NewString()
	log := slog.With("request_id", id)
	if userID != "" {
		log = log.With("user", userID)
	}

	res, err := s.process(ctx, log, id, shareLink, userID)
	if err != nil {
		log.ErrorContext(ctx, "request failed", "error", err)
		return Outcome{Error: UserMessage(err)}
	}

	log.InfoContext(ctx, "request complete",
		"path", res.Path,
		"resolution", res.Resolution.String(),
		"fallback", res.UsedFallback,
		"watermark_removed", res.WatermarkRemoved,
	)
	return Outcome{
		Success:  true,
		FilePath: res.Path,
		Filename: filepath.Base(res.Path),
	}
}

func (s *Service) process(ctx context.Context, log *slog.Logger, id, shareLink, userID string) (transcode.Result, error) {
	accounted := userID != "" && s.ledger != nil

	if accounted {
		allowance, err := s.ledger.CanDownload(ctx, userID)
		if err != nil {
			return transcode.Result{}, fmt.Errorf("checking ledger: %w", err)
		}
		if !allowance.Allowed {
			return transcode.Result{}, fmt.Errorf("%w: %s", ErrLimitReached, allowance.Reason)
		}
		log.DebugContext(ctx, "download allowed", "reason", allowance.Reason, "remaining", allowance.Remaining)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return transcode.Result{}, fmt.Errorf("creating storage dir: %w", err)
	}

	sel, err := s.resolver.Resolve(ctx, shareLink)
	if err != nil {
		return transcode.Result{}, err
	}

	asset, err := s.fetcher.Fetch(ctx, sel.Selected.Location, extractor.Referer(shareLink), filepath.Join(s.dir, id+"_original.mp4"))
	if err != nil {
		return transcode.Result{}, err
	}
	log.DebugContext(ctx, "asset ready for transcode", "bytes", asset.Size, "content_type", asset.ContentType)

	res, err := s.transcoder.Transcode(ctx, asset, filepath.Join(s.dir, id+".mp4"))
	if err != nil {
		return transcode.Result{}, err
	}

	if accounted {
		// The deliverable exists; a ledger write failure must not discard it.
		if err := s.ledger.RecordDownload(ctx, userID, shareLink); err != nil {
			log.WarnContext(ctx, "recording download failed", "error", err)
		}
	}

	return res, nil
}

// ProcessAll processes links concurrently, at most pool.sessions at a
// time. Outcomes are returned in the order of links; a failing link never
// cancels the others.
func (s *Service) ProcessAll(ctx context.Context, links []string, userID string) []Outcome {
	outcomes := make([]Outcome, len(links))

	var g errgroup.Group
	g.SetLimit(s.sessions)

	for i, link := range links {
		g.Go(func() error {
			outcomes[i] = s.Process(ctx, link, userID)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}
