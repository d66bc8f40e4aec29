package satellite

import (
	"context"

	"github.com/fernwood-iot/satellite/internal/wyoming"
)

// BuildInfo returns the satellite's own static Info fields: its name, an
// empty attribution, installed, a fixed description, and the snd format.
// Which peers are configured is not reported. The wake peer's own Info is
// overlaid by
// UpdateInfo before this is sent to a client.
func (b *Base) BuildInfo() map[string]any {
	return map[string]any{
		"satellite": map[string]any{
			"name":        b.Settings.Name,
			"attribution": map[string]any{"name": "", "url": ""},
			"installed":   true,
			"description": "voice satellite",
			"snd_format": map[string]any{
				"rate": b.Settings.Snd.Rate, "width": b.Settings.Snd.Width, "channels": b.Settings.Snd.Channels,
			},
		},
	}
}

// UpdateInfo refreshes info's "wake" field from the wake peer's own
// Describe/Info round trip, with a 2s timeout (spec.md §4.7.3
// "update_info"). A no-op (info left unchanged) if wake is disabled or
// the round trip times out.
func (b *Base) UpdateInfo(ctx context.Context, info map[string]any) {
	if b.Wake == nil || !b.Settings.Wake.Enabled() {
		return
	}
	wakeInfo, err := b.Wake.Describe(ctx)
	if err != nil {
		b.Logger.Warn("wake peer describe failed", "error", err)
		return
	}
	if wake, ok := wakeInfo.Data["wake"]; ok {
		info["wake"] = wake
	}
}

func compositeInfoEvent(info map[string]any) wyoming.Event {
	return wyoming.Event{Type: wyoming.TypeInfo, Data: info}
}
