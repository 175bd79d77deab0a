package extractor

import (
	"context"
	"net/url"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/stupside/reelpull/internal/app"
	"github.com/stupside/reelpull/internal/media"
)

func newTestCollector() *Collector {
	base, _ := url.Parse("https://example.test/video-page")
	return NewCollector(base, NewRegistry(app.Default().Capture))
}

func find(cs []media.Candidate, location string) (media.Candidate, bool) {
	for _, c := range cs {
		if c.Location == location {
			return c, true
		}
	}
	return media.Candidate{}, false
}

func TestDOMStrategy(t *testing.T) {
	Convey("Given a page with a video element and alternate sources", t, func() {
		c := newTestCollector()
		c.ScanDocument(`<html><body>
			<video src="/media/main.mp4">
				<source src="https://cdn.test/alt_720.mp4" data-quality="720p">
				<source src="https://cdn.test/alt.webm" label="HD">
				<source src="blob:https://example.test/123">
			</video></body></html>`)
		cs := c.Candidates()

		Convey("The direct source is resolved and untagged sources are unknown", func() {
			main, ok := find(cs, "https://example.test/media/main.mp4")
			So(ok, ShouldBeTrue)
			So(main.Tier, ShouldEqual, media.TierUnknown)
			So(main.Channel, ShouldEqual, media.ChannelDOM)
		})

		Convey("Quality hints set the tier", func() {
			alt, _ := find(cs, "https://cdn.test/alt_720.mp4")
			So(alt.Tier, ShouldEqual, media.Tier720)
			hd, _ := find(cs, "https://cdn.test/alt.webm")
			So(hd.Tier, ShouldEqual, media.Tier1080)
		})

		Convey("Unfetchable sources are dropped", func() {
			So(cs, ShouldHaveLength, 3)
		})
	})

	Convey("Given a page without media", t, func() {
		c := newTestCollector()
		c.ScanDocument(`<html><body><img src="/a.png"></body></html>`)
		So(c.Candidates(), ShouldBeEmpty)
	})
}

func TestScriptStrategy(t *testing.T) {
	Convey("Given a JSON state script", t, func() {
		c := newTestCollector()
		c.ScanDocument(`<script type="application/json">{"item":{"video":{"default_format":{"url":"https:\/\/cdn.test\/v_480.mp4"},"watermark_free":{"original_url":"https://cdn.test/v.mp4"}}}}</script>`)
		cs := c.Candidates()

		Convey("URLs are tagged from their enclosing keys", func() {
			low, ok := find(cs, "https://cdn.test/v_480.mp4")
			So(ok, ShouldBeTrue)
			So(low.Tier, ShouldEqual, media.Tier480)
			So(low.Channel, ShouldEqual, media.ChannelScript)

			orig, ok := find(cs, "https://cdn.test/v.mp4")
			So(ok, ShouldBeTrue)
			So(orig.LooksOriginal, ShouldBeTrue)
		})
	})

	Convey("Given a script assigning an object literal", t, func() {
		c := newTestCollector()
		c.ScanDocument(`<script>window.__player = {"videoUrl": "https://cdn.test/p.m3u8", "autoplay": true};</script>`)
		cs := c.Candidates()

		So(cs, ShouldHaveLength, 1)
		So(cs[0].Tier, ShouldEqual, media.TierUnknown)
	})

	Convey("Given a script with no parsable JSON", t, func() {
		c := newTestCollector()
		c.ScanDocument(`<script>load('https:\/\/cdn.test\/raw_clip.mp4?sig=1'); var x = {a: 1};</script>`)
		cs := c.Candidates()

		Convey("The raw pattern scan still finds the URL", func() {
			So(cs, ShouldHaveLength, 1)
			So(cs[0].Location, ShouldEqual, "https://cdn.test/raw_clip.mp4?sig=1")
		})
	})

	Convey("Given a script listing sources separated by commas", t, func() {
		c := newTestCollector()
		c.ScanDocument(`<script>var sources = "https://a.test/x_720.mp4,https://b.test/y_1080.mp4?t=1,https://c.test/z.m3u8";</script>`)

		Convey("Each URL is its own candidate", func() {
			locs := make([]string, 0, 3)
			for _, cand := range c.Candidates() {
				locs = append(locs, cand.Location)
			}
			So(locs, ShouldResemble, []string{
				"https://a.test/x_720.mp4",
				"https://b.test/y_1080.mp4?t=1",
				"https://c.test/z.m3u8",
			})
		})
	})

	Convey("Given an external script", t, func() {
		c := newTestCollector()
		c.ScanDocument(`<script src="https://cdn.test/app.js">https://cdn.test/ignored.mp4</script>`)
		So(c.Candidates(), ShouldBeEmpty)
	})
}

func TestNetworkStrategy(t *testing.T) {
	Convey("Given network responses", t, func() {
		c := newTestCollector()

		c.ObserveResponse(Response{URL: "https://cdn.test/v_720.mp4", MimeType: "video/mp4"})
		c.ObserveResponse(Response{URL: "https://cdn.test/stream?id=1", MimeType: "video/mp4"})
		c.ObserveResponse(Response{URL: "https://cdn.test/app.js", MimeType: "application/javascript"})

		Convey("Media responses are recorded in arrival order", func() {
			cs := c.Candidates()
			So(cs, ShouldHaveLength, 2)
			So(cs[0].Location, ShouldEqual, "https://cdn.test/v_720.mp4")
			So(cs[0].Sequence, ShouldEqual, 0)
			So(cs[1].Sequence, ShouldEqual, 1)
			So(cs[0].Channel, ShouldEqual, media.ChannelNetwork)
		})

		Convey("API JSON bodies are requested and walked", func() {
			api := Response{URL: "https://example.test/api/v4/item/get?itemid=1", MimeType: "application/json"}
			So(c.WantsBody(api), ShouldBeTrue)
			So(c.WantsBody(Response{URL: "https://cdn.test/v.mp4", MimeType: "application/json"}), ShouldBeFalse)
			So(c.WantsBody(Response{URL: "https://example.test/api/v4/item/get", MimeType: "image/png"}), ShouldBeFalse)
			So(c.WantsBody(Response{URL: "https://example.test/static/app.css", MimeType: "text/css"}), ShouldBeFalse)

			api.Body = []byte(`{"data":{"video_info_list":[{"formats":[{"url":"https://cdn.test/v_1080.mp4"}]}]}}`)
			c.ObserveResponse(api)

			v, ok := find(c.Candidates(), "https://cdn.test/v_1080.mp4")
			So(ok, ShouldBeTrue)
			So(v.Tier, ShouldEqual, media.Tier1080)
		})
	})
}

func TestNetworkStrategyUntypedAPI(t *testing.T) {
	Convey("Given an API endpoint serving JSON as text/plain", t, func() {
		c := newTestCollector()
		api := Response{URL: "https://example.test/api/v4/item/get?itemid=2", MimeType: "text/plain"}

		Convey("Its body is still requested and walked", func() {
			So(c.WantsBody(api), ShouldBeTrue)

			api.Body = []byte(`{"data":{"video":{"url":"https://cdn.test/v_1080.mp4"}}}`)
			c.ObserveResponse(api)

			cs := c.Candidates()
			So(cs, ShouldHaveLength, 1)
			So(cs[0].Location, ShouldEqual, "https://cdn.test/v_1080.mp4")
			So(cs[0].Tier, ShouldEqual, media.Tier1080)
		})

		Convey("A body that is not JSON yields nothing", func() {
			api.Body = []byte("<html>maintenance</html>")
			c.ObserveResponse(api)
			So(c.Candidates(), ShouldBeEmpty)
		})
	})
}

func TestDrain(t *testing.T) {
	Convey("Given pending body fetches", t, func() {
		c := newTestCollector()
		release := make(chan struct{})
		c.Go(func() {
			<-release
			c.ObserveResponse(Response{URL: "https://cdn.test/late.mp4"})
		})

		Convey("Drain gives up at its deadline", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()
			So(c.Drain(ctx), ShouldNotBeNil)
			close(release)
		})

		Convey("Drain returns once the work is done", func() {
			close(release)
			So(c.Drain(context.Background()), ShouldBeNil)
			So(c.Candidates(), ShouldHaveLength, 1)
		})
	})
}
