package extractor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/stupside/reelpull/internal/app"
	"github.com/stupside/reelpull/internal/resolve"
)

// fakeLoader replays responses into the collector and returns fixed HTML.
type fakeLoader struct {
	responses []Response
	html      string
	err       error
	target    *url.URL
}

func (f *fakeLoader) Load(_ context.Context, target *url.URL, c *Collector) (string, error) {
	f.target = target
	for _, r := range f.responses {
		c.ObserveResponse(r)
	}
	if f.err != nil {
		return "", f.err
	}
	return f.html, nil
}

func TestResolve(t *testing.T) {
	cfg := app.Default()
	cfg.Capture.StaticFallback = false

	Convey("Given a redir link whose page only reveals media over the network", t, func() {
		loader := &fakeLoader{
			html: `<html><body><div id="app"></div></body></html>`,
			responses: []Response{
				{URL: "https://cdn.test/v_720.mp4", MimeType: "video/mp4"},
				{URL: "https://cdn.test/v_1080_original.mp4", MimeType: "video/mp4"},
			},
		}
		e := New(cfg.Browser, cfg.Capture, WithLoader(loader))
		link := "https://s.shop.test/x?redir=" + url.QueryEscape("https://example.test/video-page")

		sel, err := e.Resolve(context.Background(), link)

		Convey("The page behind redir is loaded and the original wins", func() {
			So(err, ShouldBeNil)
			So(loader.target.String(), ShouldEqual, "https://example.test/video-page")
			So(sel.Selected.Location, ShouldEqual, "https://cdn.test/v_1080_original.mp4")
			So(sel.Candidates, ShouldHaveLength, 2)
		})
	})

	Convey("Given a navigation failure after some media was seen", t, func() {
		loader := &fakeLoader{
			responses: []Response{{URL: "https://cdn.test/v_720.mp4"}},
			err:       errors.New("net::ERR_NAME_NOT_RESOLVED"),
		}
		e := New(cfg.Browser, cfg.Capture, WithLoader(loader))

		_, err := e.Resolve(context.Background(), "https://example.test/video-page")

		Convey("Resolution aborts as a navigation error", func() {
			So(errors.Is(err, ErrNavigation), ShouldBeTrue)
		})
	})

	Convey("Given an invalid link", t, func() {
		e := New(cfg.Browser, cfg.Capture, WithLoader(&fakeLoader{}))
		_, err := e.Resolve(context.Background(), "hello there")

		So(errors.Is(err, ErrNavigation), ShouldBeTrue)
		So(errors.Is(err, ErrInvalidLink), ShouldBeTrue)
	})

	Convey("Given a page with no media at all", t, func() {
		e := New(cfg.Browser, cfg.Capture, WithLoader(&fakeLoader{html: "<html></html>"}))
		_, err := e.Resolve(context.Background(), "https://example.test/video-page")

		So(errors.Is(err, resolve.ErrNoCandidate), ShouldBeTrue)
	})
}

func TestStaticFallback(t *testing.T) {
	Convey("Given a server-rendered page with a video tag", t, func() {
		var gotUA string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUA = r.UserAgent()
			w.Write([]byte(`<html><body><video src="/v/clip_480.mp4"></video></body></html>`))
		}))
		defer srv.Close()

		cfg := app.Default()
		e := New(cfg.Browser, cfg.Capture, WithLoader(&fakeLoader{html: "<html></html>"}))

		Convey("The browserless fetch supplies the candidate", func() {
			sel, err := e.Resolve(context.Background(), srv.URL+"/item/1")

			So(err, ShouldBeNil)
			So(sel.Selected.Location, ShouldEqual, srv.URL+"/v/clip_480.mp4")
			So(sel.Selected.Channel.String(), ShouldEqual, "static")
			So(gotUA, ShouldEqual, cfg.Browser.UserAgent)
		})
	})
}

func TestCheckExecutable(t *testing.T) {
	dir := t.TempDir()

	write := func(name, body string, mode os.FileMode) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), mode); err != nil {
			t.Fatal(err)
		}
		return path
	}

	Convey("Given candidate browser binaries", t, func() {
		Convey("A wrapper shell script is accepted", func() {
			So(checkExecutable(write("chrome.sh", "#!/bin/sh\nexec chrome \"$@\"\n", 0o755)), ShouldBeNil)
		})

		Convey("An HTML error page saved as the binary is rejected", func() {
			So(checkExecutable(write("chrome", "<!DOCTYPE html><html><body>404</body></html>", 0o755)), ShouldNotBeNil)
		})

		Convey("A file without the executable bit is rejected", func() {
			So(checkExecutable(write("chrome-noexec", "#!/bin/sh\n", 0o644)), ShouldNotBeNil)
		})

		Convey("A missing path is rejected", func() {
			So(checkExecutable(filepath.Join(dir, "missing")), ShouldNotBeNil)
		})
	})
}
