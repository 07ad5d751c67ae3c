package sync

// progressTracker maps phase progress onto one monotone fraction.
// Projects cover [0, 0.5], objectives [0.5, 1].
type progressTracker struct {
	sink Progress
	last float64
}

func newProgressTracker(sink Progress) *progressTracker {
	return &progressTracker{sink: sink, last: -1}
}

// phase returns a callback reporting done/total of a phase spanning
// [start, start+span].
func (p *progressTracker) phase(start, span float64) func(done, total int) {
	return func(done, total int) {
		f := start + span
		if total > 0 {
			f = start + span*float64(done)/float64(total)
		}
		p.report(f)
	}
}

func (p *progressTracker) report(f float64) {
	if p.sink == nil {
		return
	}
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	if f <= p.last {
		return
	}
	p.last = f
	p.sink.Report(f)
}
