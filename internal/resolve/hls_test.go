package resolve

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestBestVariant(t *testing.T) {
	Convey("Given a master playlist with several variants", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Referer") != "https://shop.test/" {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			switch r.URL.Path {
			case "/master.m3u8":
				w.Write([]byte("#EXTM3U\n" +
					"#EXT-X-STREAM-INF:BANDWIDTH=800000,RESOLUTION=640x360\n" +
					"low/index.m3u8\n" +
					"#EXT-X-STREAM-INF:BANDWIDTH=2500000,RESOLUTION=1280x720\n" +
					"high/index.m3u8\n"))
			case "/media.m3u8":
				w.Write([]byte("#EXTM3U\n#EXTINF:4.0,\nseg0.ts\n"))
			}
		}))
		defer srv.Close()

		headers := map[string]string{"Referer": "https://shop.test/"}

		Convey("The highest bandwidth variant is picked and resolved against the playlist", func() {
			u, _ := url.Parse(srv.URL + "/master.m3u8")
			best, err := BestVariant(context.Background(), srv.Client(), u, headers)
			So(err, ShouldBeNil)
			So(best.String(), ShouldEqual, srv.URL+"/high/index.m3u8")
		})

		Convey("A media playlist resolves to itself", func() {
			u, _ := url.Parse(srv.URL + "/media.m3u8")
			best, err := BestVariant(context.Background(), srv.Client(), u, headers)
			So(err, ShouldBeNil)
			So(best.String(), ShouldEqual, u.String())
		})

		Convey("A rejected request is an error", func() {
			u, _ := url.Parse(srv.URL + "/master.m3u8")
			_, err := BestVariant(context.Background(), srv.Client(), u, nil)
			So(err, ShouldNotBeNil)
		})
	})
}
