package watch

import (
	"strings"
	"time"
)

const pulseWidth = 5

// Pulse shows recent event activity: it lights up on each event and fades
// one dot every two seconds of silence.
type Pulse struct {
	lit       int
	lastEvent time.Time
}

func (p *Pulse) OnEvent(now time.Time) {
	p.lit = pulseWidth
	p.lastEvent = now
}

func (p *Pulse) Decay(now time.Time) {
	if p.lit == 0 {
		return
	}
	p.lit = max(0, pulseWidth-int(now.Sub(p.lastEvent)/(2*time.Second)))
}

func (p Pulse) Lit() int { return p.lit }

func (p Pulse) LastEvent() time.Time { return p.lastEvent }

func (p Pulse) Render(theme Theme) string {
	var b strings.Builder
	for i := range pulseWidth {
		if i < p.lit {
			b.WriteString(theme.PulseActive.Render("●"))
		} else {
			b.WriteString(theme.PulseInactive.Render("○"))
		}
	}
	return b.String()
}
