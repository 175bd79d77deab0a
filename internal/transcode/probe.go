package transcode

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
)

// Info is what ffprobe reports about the first video stream of a file.
type Info struct {
	Dimensions
	Duration float64
	HasAudio bool
}

// probe runs ffprobe on a local file.
func (p *Pipeline) probe(ctx context.Context, path string) (Info, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.ProbeTimeout)
	defer cancel()

	args := []string{
		// Suppress non-error output so only JSON is written to stdout.
		"-v", "error",
		"-print_format", "json",
		// Only request what the pipeline decides on.
		"-show_entries", "stream=codec_type,width,height:format=duration",
		path,
	}

	out, err := p.runner.Run(ctx, p.cfg.FFprobePath, args)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %w", ErrProbe, err)
	}

	var result struct {
		Streams []struct {
			CodecType string `json:"codec_type"`
			Width     int    `json:"width"`
			Height    int    `json:"height"`
		} `json:"streams"`
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(out, &result); err != nil {
		return Info{}, fmt.Errorf("%w: parsing ffprobe output: %w", ErrProbe, err)
	}

	var info Info
	for _, s := range result.Streams {
		switch s.CodecType {
		case "video":
			if info.Width == 0 {
				info.Width, info.Height = s.Width, s.Height
			}
		case "audio":
			info.HasAudio = true
		}
	}
	if info.Width <= 0 || info.Height <= 0 {
		return Info{}, fmt.Errorf("%w: no video stream", ErrProbe)
	}

	if result.Format.Duration != "" {
		info.Duration, err = strconv.ParseFloat(result.Format.Duration, 64)
		if err != nil {
			slog.WarnContext(ctx, "ffprobe returned non-numeric duration", "duration", result.Format.Duration)
		}
	}

	return info, nil
}
