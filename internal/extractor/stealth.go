package extractor

import (
	"context"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"

	"github.com/stupside/reelpull/internal/app"
)

// allocatorOpts returns exec-allocator options for a session using the
// given Chrome binary. Window size and UA come from the profile.
func allocatorOpts(cfg app.BrowserConfig, execPath string, profile *Profile) []chromedp.ExecAllocatorOption {
	headless := chromedp.Flag("headless", false)
	if cfg.Headless {
		headless = chromedp.Flag("headless", "new")
	}

	return []chromedp.ExecAllocatorOption{
		chromedp.ExecPath(execPath),

		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,

		headless,
		chromedp.Flag("no-sandbox", cfg.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("mute-audio", true),

		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-backgrounding-occluded-windows", true),
		chromedp.Flag("disable-renderer-backgrounding", true),

		chromedp.Flag("autoplay-policy", "no-user-gesture-required"),

		chromedp.WindowSize(profile.ScreenWidth, profile.ScreenHeight),

		chromedp.UserAgent(profile.UserAgent),
	}
}

// applyIdentity overrides the UA, Client Hints and locale at the CDP level
// so every request and navigator property matches the profile.
func applyIdentity(profile *Profile) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		if err := emulation.SetAutomationOverride(false).Do(ctx); err != nil {
			return err
		}

		if err := emulation.SetLocaleOverride().WithLocale(profile.Locale).Do(ctx); err != nil {
			return err
		}

		if err := emulation.SetDeviceMetricsOverride(int64(profile.ScreenWidth), int64(profile.ScreenHeight), 1, false).Do(ctx); err != nil {
			return err
		}

		ua := emulation.SetUserAgentOverride(profile.UserAgent)
		ua.AcceptLanguage = profile.AcceptLanguage
		ua.Platform = profile.NavigatorPlatform

		ua.UserAgentMetadata = &emulation.UserAgentMetadata{
			Brands:          brandVersions(profile.Brands),
			FullVersionList: brandVersions(profile.FullVersionList),
			Platform:        profile.Platform,
			PlatformVersion: profile.PlatformVersion,
			Architecture:    profile.Architecture,
			Bitness:         profile.Bitness,
		}
		return ua.Do(ctx)
	}
}

func brandVersions(pairs [][2]string) []*emulation.UserAgentBrandVersion {
	out := make([]*emulation.UserAgentBrandVersion, len(pairs))
	for i, b := range pairs {
		out[i] = &emulation.UserAgentBrandVersion{Brand: b[0], Version: b[1]}
	}
	return out
}
