// Package channel abstracts the messaging platforms nomwatch delivers to.
//
// Every platform implements the same capability: render preferences and a
// Send that reports overall success only if every part of a possibly
// multi-part delivery landed. The engine picks a channel by name, once per
// user, and never switches on platform identity.
package channel

import (
	"context"
	"fmt"
	"sort"
)

// Channel is the send capability of one messaging platform.
type Channel interface {
	Name() string

	// MarkupEnabled reports whether the platform renders Markdown-style
	// markers. Plain-text platforms get unmarked digests.
	MarkupEnabled() bool

	// Send delivers text to an address on this platform. The adapter owns
	// splitting into parts and pacing between them; nil means all parts
	// were accepted by the platform.
	Send(ctx context.Context, address, text string) error
}

// Registry maps channel names to capabilities.
type Registry struct {
	channels map[string]Channel
}

func NewRegistry(channels ...Channel) *Registry {
	r := &Registry{channels: make(map[string]Channel, len(channels))}
	for _, c := range channels {
		r.channels[c.Name()] = c
	}
	return r
}

func (r *Registry) Add(c Channel) { r.channels[c.Name()] = c }

func (r *Registry) Lookup(name string) (Channel, error) {
	c, ok := r.channels[name]
	if !ok {
		return nil, fmt.Errorf("unknown channel %q", name)
	}
	return c, nil
}

// Names returns the registered channel names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.channels))
	for n := range r.channels {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
