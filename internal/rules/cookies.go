package rules

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gdprscanner/gdprscan/internal/docmodel"
	"github.com/gdprscanner/gdprscan/internal/model"
)

// consentBannerSelector matches the elements sites typically use for consent
// UI: anything whose class, id, or aria-label mentions cookies or consent.
const consentBannerSelector = `[class*="cookie"], [id*="cookie"], [aria-label*="cookie"], [class*="consent"], [id*="consent"]`

// maxCookieAgeDays is the analytics/marketing cookie lifetime ceiling
// (13 months). Cookie max-age values are compared against it as-is.
const maxCookieAgeDays = 394

var (
	maxAgeRe  = regexp.MustCompile(`(?i)max-age=(\d+)`)
	expiresRe = regexp.MustCompile(`(?i)expires=([^;]+)`)

	// trackerNameFragments are cookie-name fragments of well-known
	// third-party trackers (Google Analytics, Meta).
	trackerNameFragments = []string{"_ga", "_gid", "fbp", "fbc", "tr", "_fbp", "_gcl"}

	cookieWallPhrases = []string{
		"you must accept cookies to continue",
		"cookies are required to access this site",
		"accept cookies to proceed",
		"please accept cookies to continue",
	}

	// expiresLayouts are the date formats tried for a cookie expires
	// attribute, most common first.
	expiresLayouts = []string{
		time.RFC1123,
		time.RFC1123Z,
		"Mon, 02-Jan-2006 15:04:05 MST",
		time.RFC850,
		time.ANSIC,
		time.RFC3339,
		"Jan 2, 2006",
	}
)

func cookieConsent() Rule {
	return Rule{
		ID:          "cookie-consent",
		Description: "Cookie consent banner missing or not compliant",
		Severity:    model.SeverityHigh,
		Check: func(doc docmodel.Document) (*Result, error) {
			banners := doc.QueryElements(consentBannerSelector)
			if len(banners) == 0 {
				return &Result{Issue: "No cookie consent banner found"}, nil
			}

			var hasRejectAll, hasAcceptNecessary bool
			for _, banner := range banners {
				text := banner.Text()
				if strings.Contains(text, "reject") {
					hasRejectAll = true
				}
				if strings.Contains(text, "necessary") || strings.Contains(text, "essential only") {
					hasAcceptNecessary = true
				}
			}

			if !hasRejectAll || !hasAcceptNecessary {
				return &Result{
					Issue: `Cookie banner missing "Reject All" or "Necessary Only" options`,
				}, nil
			}
			return nil, nil
		},
	}
}

func cookieWall() Rule {
	return Rule{
		ID:          "cookie-wall",
		Description: "Cookie wall detected (blocks access without consent)",
		Severity:    model.SeverityHigh,
		Check: func(doc docmodel.Document) (*Result, error) {
			bodyText := doc.TextContent("")
			for _, phrase := range cookieWallPhrases {
				if strings.Contains(bodyText, phrase) {
					return &Result{
						Issue:      "Cookie wall detected - illegal under GDPR",
						Suggestion: "Cookie walls violate GDPR. Consent must be freely given.",
					}, nil
				}
			}
			return nil, nil
		},
	}
}

func cookieDuration() Rule {
	return Rule{
		ID:          "cookie-duration",
		Description: "Cookies stored for longer than necessary",
		Severity:    model.SeverityMedium,
		Check: func(doc docmodel.Document) (*Result, error) {
			var longLived []string
			for _, cookie := range doc.Cookies() {
				if cookieOutlivesLimit(cookie, time.Now()) {
					longLived = append(longLived, cookie)
				}
			}

			if len(longLived) > 0 {
				return &Result{
					Issue:      fmt.Sprintf("Found %d long-lived cookies", len(longLived)),
					Suggestion: "Reduce cookie lifetime to 13 months maximum",
					Evidence:   longLived,
				}, nil
			}
			return nil, nil
		},
	}
}

// cookieOutlivesLimit reports whether a raw cookie string declares a lifetime
// beyond the 13-month ceiling, via either max-age or expires.
func cookieOutlivesLimit(cookie string, now time.Time) bool {
	if m := maxAgeRe.FindStringSubmatch(cookie); m != nil {
		maxAge, err := strconv.Atoi(m[1])
		if err != nil {
			return false
		}
		return maxAge > maxCookieAgeDays
	}

	if m := expiresRe.FindStringSubmatch(cookie); m != nil {
		expires, ok := parseExpires(strings.TrimSpace(m[1]))
		if !ok {
			return false
		}
		return expires.After(now.AddDate(0, 13, 0))
	}

	return false
}

func parseExpires(v string) (time.Time, bool) {
	for _, layout := range expiresLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func thirdPartyCookies() Rule {
	return Rule{
		ID:          "third-party-cookies",
		Description: "Third-party cookies detected without proper consent",
		Severity:    model.SeverityMedium,
		Check: func(doc docmodel.Document) (*Result, error) {
			var matched []string
			for _, cookie := range doc.Cookies() {
				lower := strings.ToLower(strings.TrimSpace(cookie))
				for _, fragment := range trackerNameFragments {
					if strings.Contains(lower, fragment) {
						matched = append(matched, lower)
						break
					}
				}
			}

			if len(matched) > 0 {
				return &Result{
					Issue:      fmt.Sprintf("Found %d third-party tracking cookies", len(matched)),
					Suggestion: "Third-party cookies require explicit, informed consent",
					Evidence:   matched,
				}, nil
			}
			return nil, nil
		},
	}
}

func cookieCategories() Rule {
	return Rule{
		ID:          "cookie-categories",
		Description: "Cookies not categorized (necessary, analytics, marketing)",
		Severity:    model.SeverityMedium,
		Check: func(doc docmodel.Document) (*Result, error) {
			links := doc.QueryElements(`a[href*="cookie"], a[href*="policy"]`)

			var cookiePolicy docmodel.Element
			for _, link := range links {
				href := link.Attr("href")
				text := link.Text()
				if strings.Contains(text, "cookie") || strings.Contains(href, "cookie") {
					cookiePolicy = link
				}
			}

			if cookiePolicy == nil {
				return &Result{
					Issue:      "No cookie policy found",
					Suggestion: "Create a cookie policy page categorizing cookies",
				}, nil
			}

			bodyText := doc.TextContent("")
			hasCategories := strings.Contains(bodyText, "necessary") ||
				strings.Contains(bodyText, "analytics") ||
				strings.Contains(bodyText, "marketing") ||
				strings.Contains(bodyText, "functional")

			if !hasCategories {
				return &Result{
					Issue:      "Cookies not properly categorized",
					Suggestion: "Categorize cookies into: necessary, analytics, marketing, functional",
				}, nil
			}
			return nil, nil
		},
	}
}

func cookiePolicyLink() Rule {
	return Rule{
		ID:          "cookie-policy-link",
		Description: "Cookie policy link not in consent banner",
		Severity:    model.SeverityMedium,
		Check: func(doc docmodel.Document) (*Result, error) {
			banners := doc.QueryElements(consentBannerSelector)
			if len(banners) == 0 {
				// A missing banner is cookie-consent's finding, not ours.
				return nil, nil
			}

			for _, banner := range banners {
				for _, link := range banner.Find("a") {
					href := link.Attr("href")
					text := link.Text()
					if strings.Contains(text, "policy") || strings.Contains(href, "policy") ||
						strings.Contains(text, "more information") || strings.Contains(text, "learn more") {
						return nil, nil
					}
				}
			}

			return &Result{
				Issue:      "Cookie banner lacks link to cookie policy",
				Suggestion: `Add "Cookie Policy" link to consent banner`,
			}, nil
		},
	}
}
