package posts

import "github.com/isaacutils/pkg/logger"

// Option customizes Extractor construction.
type Option func(*Extractor)

// WithFallbackAttrs registers attributes allowed to disagree across their
// candidate paths; for these the first listed candidate that yields a
// value is authoritative. The typical use is the "text" attribute, where
// the primary rich-text field falls back to the legacy full-text field.
func WithFallbackAttrs(names ...string) Option {
	return func(e *Extractor) {
		for _, name := range names {
			e.fallback[name] = true
		}
	}
}

// WithLogger overrides the logger used for unknown-attribute warnings.
// By default the global logger is used, scoped to "posts".
func WithLogger(log logger.Logger) Option {
	return func(e *Extractor) {
		e.log = log
	}
}
