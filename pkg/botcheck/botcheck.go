// Package botcheck classifies requests from crawlers and automated clients by
// their User-Agent so their sessions can be tagged and kept longer.
package botcheck

import (
	"net/http"
	"strings"
)

var defaultKeywords = []string{
	"bot", "spider", "crawler", "archiver", "slurp", "lighthouse",
	"facebookexternalhit", "twitterbot", "slackbot", "linkedinbot", "whatsapp", "telegram", "discord",
	"headlesschrome", "phantomjs", "puppeteer", "playwright",
	"curl/", "wget/", "python-requests", "go-http-client", "httpclient", "scraper", "fetcher",
}

// Detector matches lower-cased User-Agent strings against a keyword list.
type Detector struct {
	keywords []string
}

type Option func(*Detector)

// WithKeywords adds keywords to the default list.
func WithKeywords(words ...string) Option {
	return func(d *Detector) {
		for _, w := range words {
			if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
				d.keywords = append(d.keywords, w)
			}
		}
	}
}

func New(opts ...Option) *Detector {
	d := &Detector{keywords: append([]string(nil), defaultKeywords...)}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// IsBot reports whether the request looks automated. Requests without a
// User-Agent are not classified.
func (d *Detector) IsBot(r *http.Request) bool {
	return d.Match(r.UserAgent())
}

func (d *Detector) Match(userAgent string) bool {
	ua := strings.ToLower(userAgent)
	if ua == "" {
		return false
	}
	for _, kw := range d.keywords {
		if strings.Contains(ua, kw) {
			return true
		}
	}
	return false
}
