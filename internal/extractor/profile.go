package extractor

import "github.com/stupside/reelpull/internal/app"

// Profile is the client identity a session presents. It is fixed rather
// than randomized: a desktop Chrome on Windows at full HD, which storefront
// pages answer with their higher-quality assets.
type Profile struct {
	UserAgent         string
	Brands            [][2]string // [brand, majorVersion]
	FullVersionList   [][2]string // [brand, fullVersion]
	Platform          string      // Client Hints platform
	PlatformVersion   string
	Architecture      string
	Bitness           string
	NavigatorPlatform string
	AcceptLanguage    string
	Locale            string
	ScreenWidth       int
	ScreenHeight      int
	CenterX           float64
	CenterY           float64
}

// DesktopProfile returns the session identity for cfg.
func DesktopProfile(cfg app.BrowserConfig) *Profile {
	return &Profile{
		UserAgent: cfg.UserAgent,
		Brands: [][2]string{
			{"Not_A Brand", "8"},
			{"Chromium", "120"},
			{"Google Chrome", "120"},
		},
		FullVersionList: [][2]string{
			{"Not_A Brand", "8.0.0.0"},
			{"Chromium", "120.0.0.0"},
			{"Google Chrome", "120.0.0.0"},
		},
		Platform:          "Windows",
		PlatformVersion:   "10.0.0",
		Architecture:      "x86",
		Bitness:           "64",
		NavigatorPlatform: "Win32",
		AcceptLanguage:    "en-US,en;q=0.9",
		Locale:            "en-US",
		ScreenWidth:       cfg.Width,
		ScreenHeight:      cfg.Height,
		CenterX:           float64(cfg.Width) / 2,
		CenterY:           float64(cfg.Height) / 2,
	}
}
