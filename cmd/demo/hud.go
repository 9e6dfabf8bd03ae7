package main

import (
	"fmt"
	"strings"

	"deferred-renderer/internal/showcase"
	"deferred-renderer/renderer"
)

// statusBar collects the fields shown in the window title.
type statusBar struct {
	fields []string
}

func (b *statusBar) add(format string, args ...interface{}) {
	b.fields = append(b.fields, fmt.Sprintf(format, args...))
}

func (b *statusBar) String() string {
	return strings.Join(b.fields, " | ")
}

// refresh rebuilds the fields from the last frame.
func (b *statusBar) refresh(title string, fps int, r *renderer.DeferredRenderer, s *showcase.Showcase) {
	st, o := r.Stats(), r.Options()
	b.fields = b.fields[:0]
	b.add("%s", title)
	b.add("%d fps", fps)
	b.add("%d draws, %d lights, %d shadow passes", st.DrawCalls, st.LightsDrawn, st.ShadowPasses)
	b.add("shadows %s", o.ShadowQuality)
	b.add("gui %s", o.GuiMode)
	b.add("post %s", s.PostMode())
	if o.DebugOverlay {
		b.add("overlay")
	}
	b.add("%s", s.DayNight.Clock())
}
