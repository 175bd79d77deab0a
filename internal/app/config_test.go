package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	Convey("Given no config file", t, func() {
		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))

		Convey("Defaults are used", func() {
			So(err, ShouldBeNil)
			So(cfg.Transcode.ScalePolicy, ShouldEqual, "preserve")
			So(cfg.Transcode.Watermark.Ratio, ShouldEqual, 0.15)
			So(cfg.Fetch.Timeout, ShouldEqual, 5*time.Minute)
			So(cfg.Ledger.FreeLimit, ShouldEqual, 20)
			So(cfg.Capture.MaxDepth, ShouldEqual, 32)
		})
	})

	Convey("Given a partial config file", t, func() {
		path := writeConfig(t, `
browser:
  timeout: 45s
  cookies: "SPC_EC=abc"
transcode:
  scale_policy: upscale
  watermark:
    enabled: true
pool:
  sessions: 4
`)
		cfg, err := Load(path)

		Convey("File values override defaults and the rest is kept", func() {
			So(err, ShouldBeNil)
			So(cfg.Browser.Timeout, ShouldEqual, 45*time.Second)
			So(cfg.Browser.Cookies, ShouldEqual, "SPC_EC=abc")
			So(cfg.Browser.Settle, ShouldEqual, 5*time.Second)
			So(cfg.Transcode.ScalePolicy, ShouldEqual, "upscale")
			So(cfg.Transcode.Watermark.Enabled, ShouldBeTrue)
			So(cfg.Transcode.Watermark.Corner, ShouldEqual, "bottom-right")
			So(cfg.Pool.Sessions, ShouldEqual, 4)
			So(cfg.Pool.Encoders, ShouldEqual, 1)
		})
	})

	Convey("Given an invalid scale policy", t, func() {
		path := writeConfig(t, "transcode:\n  scale_policy: stretch\n")
		_, err := Load(path)

		Convey("Validation fails", func() {
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "validating config")
		})
	})

	Convey("Given a zero session pool", t, func() {
		path := writeConfig(t, "pool:\n  sessions: 0\n")
		_, err := Load(path)

		So(err, ShouldNotBeNil)
	})
}
