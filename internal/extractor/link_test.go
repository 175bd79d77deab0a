package extractor

import (
	"errors"
	"net/url"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestParseShareLink(t *testing.T) {
	Convey("Given a link wrapped with a redir parameter", t, func() {
		link := "https://s.shop.test/an_redir?redir=" + url.QueryEscape("https://example.test/video-page") + "&utm=1"
		u, err := ParseShareLink(link)

		Convey("The decoded target replaces the link", func() {
			So(err, ShouldBeNil)
			So(u.String(), ShouldEqual, "https://example.test/video-page")
		})
	})

	Convey("Given a doubly encoded redir parameter", t, func() {
		link := "https://s.shop.test/r?redir=" + url.QueryEscape(url.QueryEscape("https://example.test/p?id=7"))
		u, err := ParseShareLink(link)

		So(err, ShouldBeNil)
		So(u.String(), ShouldEqual, "https://example.test/p?id=7")
	})

	Convey("Given a link that is percent-encoded as a whole", t, func() {
		inner := "https://s.shop.test/r?redir=" + url.QueryEscape("https://example.test/video-page")
		u, err := ParseShareLink(url.QueryEscape(inner))

		Convey("It is decoded before the redir target is taken", func() {
			So(err, ShouldBeNil)
			So(u.String(), ShouldEqual, "https://example.test/video-page")
		})
	})

	Convey("Given a percent-encoded link without redir", t, func() {
		u, err := ParseShareLink(url.QueryEscape("https://example.test/item/9?ref=share"))

		So(err, ShouldBeNil)
		So(u.Host, ShouldEqual, "example.test")
		So(u.Query().Get("ref"), ShouldEqual, "share")
	})

	Convey("Given a plain page link with surrounding whitespace", t, func() {
		u, err := ParseShareLink("  https://example.test/item/1  ")

		So(err, ShouldBeNil)
		So(u.Host, ShouldEqual, "example.test")
		So(Referer("https://example.test/item/1"), ShouldEqual, "https://example.test/")
	})

	Convey("Given links that are not web pages", t, func() {
		for _, link := range []string{"", "not a link", "ftp://example.test/x", "https:///nohost", "https://s.test/r?redir=javascript:alert(1)"} {
			_, err := ParseShareLink(link)
			So(errors.Is(err, ErrInvalidLink), ShouldBeTrue)
		}
	})
}

func TestCookies(t *testing.T) {
	Convey("Given a cookie header string", t, func() {
		cookies := ParseCookies(" SPC_EC=abc; bad; =x; SPC_F = 12 ;SPC_EC=def")

		Convey("Pairs are parsed and a later duplicate overrides", func() {
			So(cookies, ShouldResemble, []Cookie{
				{Name: "SPC_EC", Value: "def"},
				{Name: "SPC_F", Value: "12"},
			})
		})

		Convey("An empty string yields nothing", func() {
			So(ParseCookies(""), ShouldBeEmpty)
		})
	})

	Convey("Cookies are scoped to the registrable domain", t, func() {
		u, _ := url.Parse("https://shopee.com.br/product/1/2")
		So(cookieDomain("", u), ShouldEqual, ".shopee.com.br")

		u, _ = url.Parse("https://www.shop.test/x")
		So(cookieDomain("", u), ShouldEqual, ".shop.test")

		u, _ = url.Parse("http://127.0.0.1:8080/x")
		So(cookieDomain("", u), ShouldEqual, "127.0.0.1")

		So(cookieDomain(".custom.test", u), ShouldEqual, ".custom.test")
	})
}
