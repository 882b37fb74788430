package service

import (
	"fmt"
	"sort"

	"github.com/layer-3/attestor/core"
	"github.com/layer-3/attestor/ports"
)

// Registry maps channel kinds to their implementation.
type Registry struct {
	channels map[core.ChannelKind]ports.Channel
}

func NewRegistry(channels ...ports.Channel) *Registry {
	r := &Registry{channels: make(map[core.ChannelKind]ports.Channel, len(channels))}
	for _, ch := range channels {
		r.channels[ch.Kind()] = ch
	}
	return r
}

func (r *Registry) Get(kind core.ChannelKind) (ports.Channel, error) {
	ch, ok := r.channels[kind]
	if !ok {
		return nil, fmt.Errorf("%q: %w", kind, core.ErrUnknownChannel)
	}
	return ch, nil
}

// Kinds lists the registered channels in a stable order.
func (r *Registry) Kinds() []core.ChannelKind {
	kinds := make([]core.ChannelKind, 0, len(r.channels))
	for k := range r.channels {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
