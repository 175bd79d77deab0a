// Package ffmpeg builds argument lists for ffmpeg/ffprobe and runs them as
// child processes.
package ffmpeg

import "strings"

// Args assembles an ffmpeg command line in the order ffmpeg expects:
// global options, per-input options, output options, output path.
type Args struct {
	global  []string
	inputs  []string
	filters []string
	output  []string
	target  string
}

// New returns an Args that overwrites its output and only reports errors.
func New() *Args {
	return &Args{global: []string{"-hide_banner", "-nostdin", "-y", "-v", "error"}}
}

// Input appends an input; opts are placed before its -i.
func (a *Args) Input(path string, opts ...string) *Args {
	a.inputs = append(a.inputs, opts...)
	a.inputs = append(a.inputs, "-i", path)
	return a
}

// Filter appends a video filter to the -vf chain.
func (a *Args) Filter(f string) *Args {
	a.filters = append(a.filters, f)
	return a
}

// Set appends an output option and its value.
func (a *Args) Set(flag, value string) *Args {
	a.output = append(a.output, flag, value)
	return a
}

// Flag appends output options that take no value, such as -an.
func (a *Args) Flag(flags ...string) *Args {
	a.output = append(a.output, flags...)
	return a
}

// Output sets the output path.
func (a *Args) Output(path string) *Args {
	a.target = path
	return a
}

// Build returns the full argument list.
func (a *Args) Build() []string {
	out := make([]string, 0, len(a.global)+len(a.inputs)+len(a.output)+3)
	out = append(out, a.global...)
	out = append(out, a.inputs...)
	if len(a.filters) > 0 {
		out = append(out, "-vf", strings.Join(a.filters, ","))
	}
	out = append(out, a.output...)
	if a.target != "" {
		out = append(out, a.target)
	}
	return out
}
