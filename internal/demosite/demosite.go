// Package demosite serves two demo pages for exercising the scanner: one
// that trips most rules and one that passes them. Useful for manual testing
// of both capture backends.
package demosite

import (
	"fmt"
	"net/http"
)

// Config holds configuration for the demo site.
type Config struct {
	// Port is the port on which the demo site listens.
	Port int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{Port: 9990}
}

// Site is the demo HTTP server.
type Site struct {
	cfg Config
}

// NewSite creates a demo site instance.
func NewSite(cfg Config) *Site {
	return &Site{cfg: cfg}
}

// Start starts the demo site.
func (s *Site) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.violatingHandler)
	mux.HandleFunc("/compliant", s.compliantHandler)
	mux.HandleFunc("/privacy", s.privacyHandler)

	addr := fmt.Sprintf(":%d", s.cfg.Port)
	fmt.Printf("Demo site on http://localhost%s (violating) and /compliant\n", addr)
	return http.ListenAndServe(addr, mux)
}

// violatingHandler serves a page designed to fail most checks: a consent
// banner with no reject option, tracking cookies that outlive a year, and no
// privacy policy or rights information anywhere.
func (s *Site) violatingHandler(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: "_ga", Value: "GA1.2.123", MaxAge: 63072000})
	http.SetCookie(w, &http.Cookie{Name: "_fbp", Value: "fb.1.456", MaxAge: 63072000})
	http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", MaxAge: 3600})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, `<!DOCTYPE html>
<html>
<head><title>Shady Shop</title></head>
<body>
  <div class="cookie-banner">
    We use cookies to improve your experience. By continuing to browse you accept our cookies.
    <button>Accept all</button>
  </div>
  <h1>Welcome to Shady Shop</h1>
  <p>Great deals every day.</p>
  <form>
    <input type="email" name="newsletter" placeholder="Subscribe to our newsletter">
    <button>Subscribe</button>
  </form>
  <footer>
    <a href="/about">About us</a>
  </footer>
</body>
</html>`)
}

// compliantHandler serves a page with the consent, policy, and rights
// surfaces the checks look for.
func (s *Site) compliantHandler(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", MaxAge: 3600})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, `<!DOCTYPE html>
<html>
<head><title>Honest Shop</title></head>
<body>
  <div id="cookie-consent">
    We use cookies. Choose your preferences.
    <button>Accept</button>
    <button>Reject</button>
    <button>Necessary only</button>
    <a href="/privacy#cookies">Cookie Policy</a>
    <label><input type="checkbox"> Necessary</label>
    <label><input type="checkbox"> Analytics</label>
    <label><input type="checkbox"> Marketing</label>
  </div>
  <h1>Welcome to Honest Shop</h1>
  <p>We process your data on the legal basis of consent (GDPR Art. 6).
     Data is retained for 12 months; see our retention period policy.
     Cross-border transfers rely on standard contractual clauses.</p>
  <p>You can request access to your data, download your data in a portable
     format, or ask us to delete my data at any time. Contact our data
     protection officer at dpo@honest.example.</p>
  <form>
    <input type="email" name="newsletter" placeholder="Newsletter">
    <button>Subscribe</button>
    <small>We will send a confirmation email to verify your subscription
    (double opt-in).</small>
  </form>
  <footer>
    <a href="/privacy">Privacy Policy</a>
    <a href="/privacy#delete">Delete my data</a>
    <a href="/privacy#export">Export my data</a>
  </footer>
  <script>
    localStorage.setItem("cookie_consent", JSON.stringify({
      accepted: true,
      timestamp: Date.now()
    }));
  </script>
</body>
</html>`)
}

func (s *Site) privacyHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, `<!DOCTYPE html>
<html>
<head><title>Privacy Policy</title></head>
<body>
  <h1>Privacy Policy</h1>
  <p>How we handle your data.</p>
</body>
</html>`)
}
