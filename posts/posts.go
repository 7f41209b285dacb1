// Package posts extracts attributes from Twitter/X post objects.
//
// A post is an arbitrarily nested map decoded from JSON. Callers describe
// where each logical attribute lives with a PathTable: an attribute name
// mapped to an ordered list of candidate dotted paths. Extraction walks
// every candidate path and requires the non-empty results to agree, except
// for attributes registered as fallback-tolerant, where the first listed
// candidate wins.
package posts

import (
	"fmt"
	"strings"

	"github.com/code19m/errx"
	"github.com/isaacutils/pkg/logger"
	"github.com/samber/lo"
)

const (
	// AttrTypename is the type-discriminator attribute. Requesting it
	// returns the discriminator directly, without path lookup.
	AttrTypename = "__typename"

	// visibilityWrapper is the envelope type that wraps the real post
	// object one level deep under wrapperKey.
	visibilityWrapper = "TweetWithVisibilityResults"
	wrapperKey        = "tweet"
)

// ErrAttrConflict is returned when candidate paths for the same attribute
// yield distinct non-empty values. The path table is expected to be
// authored so that candidates never disagree; a conflict is a table bug,
// not a data condition to recover from.
var ErrAttrConflict = errx.New("[posts]: conflicting non-empty attribute values")

// PathTable maps a logical attribute name to an ordered list of candidate
// dotted paths within a post object.
//
// Example:
//
//	posts.PathTable{
//		"text":    {"note_tweet.note_tweet_results.result.text", "legacy.full_text"},
//		"post_id": {"rest_id"},
//		"lang":    {"legacy.lang"},
//	}
type PathTable map[string][]string

// Extractor resolves attributes from post objects according to a PathTable.
// It is read-only after construction and safe for concurrent use.
type Extractor struct {
	paths    PathTable
	fallback map[string]bool
	log      logger.Logger
}

// New creates an Extractor for the given path table.
func New(paths PathTable, opts ...Option) *Extractor {
	e := &Extractor{
		paths:    paths,
		fallback: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Attr resolves a single attribute from a post object.
//
// The type-discriminator attribute is returned directly. For everything
// else, TweetWithVisibilityResults envelopes are unwrapped first, then each
// candidate path is walked; missing keys default to an empty container, and
// only terminal values that are not themselves containers count as results.
//
// An attribute absent from the path table resolves to nil with a logged
// warning. Zero results resolve to nil. Distinct results return
// ErrAttrConflict unless the attribute is registered fallback-tolerant, in
// which case the first collected value is authoritative.
func (e *Extractor) Attr(post map[string]any, name string) (any, error) {
	if name == AttrTypename {
		return post[AttrTypename], nil
	}

	post = unwrap(post)

	candidates, ok := e.paths[name]
	if !ok {
		e.logger().Warnf("unknown attr %q; skipping extraction", name)
		return nil, nil
	}

	var values []any
	for _, p := range candidates {
		if v, found := walkPath(post, p); found {
			values = append(values, v)
		}
	}

	if len(values) == 0 {
		return nil, nil
	}

	if e.fallback[name] {
		return values[0], nil
	}

	// The key carries the dynamic type so a string "1" and a JSON number 1
	// never pass as agreeing just because they render identically.
	distinct := lo.UniqBy(values, func(v any) string { return fmt.Sprintf("%T:%v", v, v) })
	if len(distinct) > 1 {
		return nil, errx.Wrap(ErrAttrConflict, errx.WithDetails(errx.D{
			"attr":   name,
			"values": fmt.Sprintf("%v", values),
		}))
	}

	return values[0], nil
}

// Attrs resolves every attribute declared in the path table and returns the
// name-to-value mapping, including nil results. The first conflict aborts
// the extraction.
func (e *Extractor) Attrs(post map[string]any) (map[string]any, error) {
	results := make(map[string]any, len(e.paths))
	for name := range e.paths {
		v, err := e.Attr(post, name)
		if err != nil {
			return nil, err
		}
		results[name] = v
	}
	return results, nil
}

// unwrap descends through TweetWithVisibilityResults envelopes until the
// real post object is reached. A wrapper with a missing payload yields an
// empty object, so lookups resolve to nothing rather than failing.
func unwrap(post map[string]any) map[string]any {
	for asString(post[AttrTypename]) == visibilityWrapper {
		inner, ok := post[wrapperKey].(map[string]any)
		if !ok {
			return map[string]any{}
		}
		post = inner
	}
	return post
}

// walkPath follows a dotted key path through nested maps. A missing key or
// a non-map midway defaults to an empty container for the next step. The
// terminal value counts only when it is not itself a container.
func walkPath(post map[string]any, dotted string) (any, bool) {
	var cursor any = post
	for _, key := range strings.Split(dotted, ".") {
		m, ok := cursor.(map[string]any)
		if !ok {
			m = map[string]any{}
		}
		v, exists := m[key]
		if !exists {
			v = map[string]any{}
		}
		cursor = v
	}

	if _, isContainer := cursor.(map[string]any); isContainer {
		return nil, false
	}
	return cursor, true
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func (e *Extractor) logger() logger.Logger {
	if e.log != nil {
		return e.log
	}
	return logger.Named("posts")
}
