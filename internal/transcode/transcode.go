// Package transcode normalizes a downloaded asset into a delivery-ready MP4.
package transcode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"golang.org/x/sync/semaphore"

	"github.com/stupside/reelpull/internal/app"
	"github.com/stupside/reelpull/internal/fetch"
	"github.com/stupside/reelpull/internal/ffmpeg"
)

var (
	// ErrProbe is returned when ffprobe cannot describe the asset.
	ErrProbe = errors.New("probe failed")
	// ErrTranscode is returned when no playable deliverable could be left
	// at the destination.
	ErrTranscode = errors.New("transcode failed")
)

// Result is the final deliverable of one request.
type Result struct {
	Path             string
	Resolution       Dimensions
	UsedFallback     bool
	WatermarkRemoved bool
}

// Pipeline drives the Probing, Scaling, WatermarkRemoval and Encoding
// stages. Any stage failure degrades to the best artifact produced so far.
type Pipeline struct {
	cfg    app.TranscodeConfig
	runner ffmpeg.Runner
	sem    *semaphore.Weighted
}

// New creates a Pipeline that runs at most encoders ffmpeg jobs at once.
func New(cfg app.TranscodeConfig, runner ffmpeg.Runner, encoders int) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		runner: runner,
		sem:    semaphore.NewWeighted(int64(max(1, encoders))),
	}
}

type state int

const (
	stateProbing state = iota
	stateScaling
	stateWatermark
	stateEncoding
	stateDone
	stateFallback
)

func (s state) String() string {
	switch s {
	case stateProbing:
		return "probing"
	case stateScaling:
		return "scaling"
	case stateWatermark:
		return "watermark"
	case stateEncoding:
		return "encoding"
	case stateDone:
		return "done"
	case stateFallback:
		return "fallback"
	default:
		return "state(" + strconv.Itoa(int(s)) + ")"
	}
}

// job is the mutable state of one Transcode call.
type job struct {
	p    *Pipeline
	log  *slog.Logger
	dest string

	source  string     // downloaded asset
	current string     // best artifact so far
	frame   Dimensions // size of current
	target  Dimensions
	info    Info

	intermediates []string
	result        Result
}

// Transcode turns asset into a playable file at dest. Stage failures never
// abort: the deliverable falls back to the best earlier artifact. Only
// filesystem failures to place the deliverable and cancellation of ctx are
// returned as errors. The downloaded asset and all intermediates are
// removed before returning.
func (p *Pipeline) Transcode(ctx context.Context, asset fetch.Asset, dest string) (Result, error) {
	j := &job{
		p:       p,
		log:     slog.With("asset", asset.Path, "dest", dest),
		dest:    dest,
		source:  asset.Path,
		current: asset.Path,
	}
	defer j.cleanup()

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return Result{}, fmt.Errorf("%w: waiting for encoder: %w", ErrTranscode, err)
	}
	defer p.sem.Release(1)

	st := stateProbing
	for {
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("%w: %s: %w", ErrTranscode, st, context.Cause(ctx))
		}

		j.log.DebugContext(ctx, "transcode stage", "state", st.String())

		var err error
		switch st {
		case stateProbing:
			st = j.probe(ctx)
		case stateScaling:
			st = j.scale()
		case stateWatermark:
			st = j.removeWatermark(ctx)
		case stateEncoding:
			st, err = j.encode(ctx)
		case stateFallback:
			st, err = j.fallback()
		case stateDone:
			return j.done()
		}
		if err != nil {
			return Result{}, err
		}
	}
}

func (j *job) probe(ctx context.Context) state {
	info, err := j.p.probe(ctx, j.source)
	if err != nil {
		j.log.WarnContext(ctx, "probe failed, delivering original", "error", err)
		return stateFallback
	}
	j.info = info
	j.frame = info.Dimensions
	return stateScaling
}

func (j *job) scale() state {
	j.target = Target(Policy(j.p.cfg.ScalePolicy), j.frame, j.p.cfg.MinHeight)
	return stateWatermark
}

// removeWatermark tries delogo, then a crop of the strip holding the logo.
// Neither failing is fatal.
func (j *job) removeWatermark(ctx context.Context) state {
	wm := j.p.cfg.Watermark
	if !wm.Enabled {
		return stateEncoding
	}

	corner := Corner(wm.Corner)
	region := LogoRegion(j.frame, corner, wm.Ratio, wm.Inset)
	out := j.dest + ".nowm.mp4"

	err := j.p.runStage(ctx, j.current, out, region.delogo())
	if err == nil {
		j.log.InfoContext(ctx, "watermark removed", "method", "delogo", "region", region)
		j.adopt(out, j.frame)
		j.result.WatermarkRemoved = true
		return stateEncoding
	}
	j.log.WarnContext(ctx, "delogo failed, trying crop", "error", err)

	crop, cropped, ok := stripCrop(j.frame, corner, region, wm.Inset)
	if !ok {
		j.log.WarnContext(ctx, "frame too small to crop, keeping watermark", "frame", j.frame)
		return stateEncoding
	}
	if err := j.p.runStage(ctx, j.current, out, crop); err != nil {
		j.log.WarnContext(ctx, "crop failed, keeping watermark", "error", err)
		return stateEncoding
	}

	j.log.InfoContext(ctx, "watermark removed", "method", "crop", "frame", cropped)
	j.adopt(out, cropped)
	j.result.WatermarkRemoved = true
	j.target = Target(Policy(j.p.cfg.ScalePolicy), cropped, j.p.cfg.MinHeight)
	return stateEncoding
}

func (j *job) encode(ctx context.Context) (state, error) {
	tmp := j.dest + ".part"
	j.intermediates = append(j.intermediates, tmp)

	ctx2, cancel := context.WithTimeout(ctx, j.p.cfg.EncodeTimeout)
	defer cancel()

	args := j.p.encodeArgs(j.current, tmp, j.frame, j.target, j.info.HasAudio)
	_, err := j.p.runner.Run(ctx2, j.p.cfg.FFmpegPath, args)
	if err == nil {
		err = nonEmpty(tmp)
	}
	if err != nil {
		if ctx.Err() != nil {
			return stateEncoding, nil // surfaced by the loop
		}
		j.log.WarnContext(ctx, "encode failed, delivering pre-encode artifact", "error", err, "artifact", j.current)
		return j.deliver(j.current, j.frame)
	}

	if err := os.Rename(tmp, j.dest); err != nil {
		return stateDone, fmt.Errorf("%w: placing output: %w", ErrTranscode, err)
	}
	j.result.Resolution = j.target
	j.log.InfoContext(ctx, "encoded",
		"resolution", j.target,
		"duration", j.info.Duration,
		"audio", j.info.HasAudio,
	)
	return stateDone, nil
}

// fallback delivers the downloaded asset unmodified.
func (j *job) fallback() (state, error) {
	return j.deliver(j.source, j.info.Dimensions)
}

// deliver moves an earlier artifact to dest as the final deliverable.
func (j *job) deliver(src string, frame Dimensions) (state, error) {
	if err := moveFile(src, j.dest); err != nil {
		return stateDone, fmt.Errorf("%w: delivering %s: %w", ErrTranscode, src, err)
	}
	j.result.WatermarkRemoved = src != j.source
	j.result.UsedFallback = true
	j.result.Resolution = frame
	return stateDone, nil
}

func (j *job) done() (Result, error) {
	if err := nonEmpty(j.dest); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrTranscode, err)
	}
	j.result.Path = j.dest
	return j.result, nil
}

// adopt makes path the current artifact and schedules it for cleanup.
func (j *job) adopt(path string, frame Dimensions) {
	j.intermediates = append(j.intermediates, path)
	j.current = path
	j.frame = frame
}

// cleanup removes the downloaded asset and every intermediate that is not
// the deliverable.
func (j *job) cleanup() {
	for _, path := range append(j.intermediates, j.source) {
		if path == j.dest {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			j.log.Warn("removing intermediate", "path", path, "error", err)
		}
	}
}

// runStage runs a single-filter pass used by the watermark stage.
func (p *Pipeline) runStage(ctx context.Context, in, out, filter string) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.EncodeTimeout)
	defer cancel()

	args := ffmpeg.New().
		Input(in).
		Filter(filter).
		// Fast intermediate encode; quality is restored by the final pass.
		Set("-c:v", p.cfg.VideoCodec).
		Set("-preset", "veryfast").
		Set("-crf", "18").
		Set("-c:a", "copy").
		Set("-f", "mp4").
		Output(out).
		Build()

	if _, err := p.runner.Run(ctx, p.cfg.FFmpegPath, args); err != nil {
		_ = os.Remove(out)
		return err
	}
	if err := nonEmpty(out); err != nil {
		_ = os.Remove(out)
		return err
	}
	return nil
}

// encodeArgs renders the final encode of in to out at dst. Sources without
// an audio stream are encoded with -an.
func (p *Pipeline) encodeArgs(in, out string, src, dst Dimensions, hasAudio bool) []string {
	args := ffmpeg.New().
		Input(in).
		Filter(scaleFilter(src, dst)).
		// Widely compatible H.264 profile
		Set("-c:v", p.cfg.VideoCodec).
		Set("-preset", p.cfg.Preset).
		Set("-crf", strconv.Itoa(p.cfg.CRF)).
		Set("-profile:v", p.cfg.Profile).
		Set("-level", p.cfg.Level).
		Set("-pix_fmt", p.cfg.PixelFormat)

	if hasAudio {
		// Audio re-encoded to a fixed bitrate
		args.Set("-c:a", p.cfg.AudioCodec).Set("-b:a", p.cfg.AudioBitrate)
	} else {
		args.Flag("-an")
	}

	return args.
		// Move the moov atom to the front so playback starts before the
		// whole file is downloaded
		Set("-movflags", "+faststart").
		Set("-f", "mp4").
		Output(out).
		Build()
}

func nonEmpty(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	if fi.Size() == 0 {
		return fmt.Errorf("%s is empty", path)
	}
	return nil
}

// moveFile renames src to dst, copying when they are on different devices.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return err
	}
	return os.Remove(src)
}
