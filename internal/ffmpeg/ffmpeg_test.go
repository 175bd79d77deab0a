package ffmpeg

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestArgs(t *testing.T) {
	Convey("Given a builder with inputs, filters and output options", t, func() {
		args := New().
			Input("in.mp4", "-ss", "0").
			Filter("scale=1280:720").
			Filter("setsar=1").
			Set("-c:v", "libx264").
			Set("-crf", "20").
			Output("out.mp4").
			Build()

		Convey("Sections are emitted in ffmpeg order", func() {
			So(args, ShouldResemble, []string{
				"-hide_banner", "-nostdin", "-y", "-v", "error",
				"-ss", "0", "-i", "in.mp4",
				"-vf", "scale=1280:720,setsar=1",
				"-c:v", "libx264", "-crf", "20",
				"out.mp4",
			})
		})
	})

	Convey("Given valueless output flags", t, func() {
		args := New().Input("in.mp4").Set("-c:v", "libx264").Flag("-an").Output("out.mp4").Build()

		Convey("They sit among the output options", func() {
			So(args[len(args)-4:], ShouldResemble, []string{"-c:v", "libx264", "-an", "out.mp4"})
		})
	})

	Convey("Given a builder without filters", t, func() {
		args := New().Input("in.mp4").Set("-c", "copy").Output("out.mp4").Build()

		Convey("No -vf flag is emitted", func() {
			So(args, ShouldNotContain, "-vf")
			So(args[len(args)-1], ShouldEqual, "out.mp4")
		})
	})
}

func TestExecRunner(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}

	Convey("Given a program that succeeds", t, func() {
		out, err := ExecRunner{}.Run(context.Background(), sh, []string{"-c", "echo hello; echo noise >&2"})

		Convey("Stdout is returned", func() {
			So(err, ShouldBeNil)
			So(string(out), ShouldEqual, "hello\n")
		})
	})

	Convey("Given a program that fails", t, func() {
		_, err := ExecRunner{}.Run(context.Background(), sh, []string{"-c", "echo broken pipe >&2; exit 3"})

		Convey("An ExitError carries the code and stderr tail", func() {
			var ee *ExitError
			So(errors.As(err, &ee), ShouldBeTrue)
			So(ee.Code, ShouldEqual, 3)
			So(ee.Stderr, ShouldEqual, "broken pipe")
			So(ee.Program, ShouldEqual, "sh")
		})
	})

	Convey("Given a canceled context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := ExecRunner{}.Run(ctx, sh, []string{"-c", "sleep 5"})

		Convey("The run fails without an ExitError", func() {
			So(err, ShouldNotBeNil)
			var ee *ExitError
			So(errors.As(err, &ee), ShouldBeFalse)
		})
	})
}
