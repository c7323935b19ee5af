package compile

import (
	"strings"
)

// transitionKind maps an authored kind to the kind realized on a lane.
// Audio always crossfades.
func transitionKind(authored string, lane Lane, ref Ref) (string, error) {
	kind := strings.TrimSpace(authored)
	if kind == "" {
		kind = "dissolve"
	}
	if kind != "dissolve" && kind != "wipe" {
		return "", diagf(InvalidValue, ref.With("kind"), "transition kind must be dissolve or wipe, got %q", authored)
	}
	if lane == LaneAudio {
		return "mix", nil
	}
	return kind, nil
}

// compileTransitions attaches same-lane transitions to p. segments[i] must
// own p.Entries[i]. A transition of d frames takes d/2 (rounded down) from
// the end of the outgoing entry and the rest from the start of the incoming
// one, so the playlist length never changes.
func (b *builder) compileTransitions(p *Playlist, segments []placed) error {
	consumed := make([]int64, len(p.Entries))
	for i, s := range segments {
		tr := s.common.Transition
		if tr == nil {
			continue
		}
		ref := s.ref.With("transition")
		kind, err := transitionKind(tr.Kind, p.Lane, ref)
		if err != nil {
			return err
		}
		if i == 0 {
			return diagf(TransitionInfeasible, ref, "the first segment has no previous segment to transition from")
		}
		if i >= len(p.Entries) {
			return diagf(TransitionInfeasible, ref, "no %s entry to transition into", p.Lane)
		}
		d, err := b.positiveFrames(tr.Duration, ref.With("duration"))
		if err != nil {
			return err
		}
		tailA := d / 2
		headB := d - tailA

		out, in := p.Entries[i-1], p.Entries[i]
		consumed[i-1] += tailA
		consumed[i] += headB
		if consumed[i-1] > out.Length {
			return diagf(TransitionInfeasible, ref,
				"outgoing %s entry %s has %d frames but transitions need %d", p.Lane, out.Origin, out.Length, consumed[i-1])
		}
		if consumed[i] > in.Length {
			return diagf(TransitionInfeasible, ref,
				"incoming %s entry has %d frames but the transition needs %d", p.Lane, in.Length, consumed[i])
		}
		p.Transitions = append(p.Transitions, Transition{
			Kind:     kind,
			Lane:     p.Lane,
			OutIndex: i - 1,
			InIndex:  i,
			Cut:      in.Start,
			TailA:    tailA,
			HeadB:    headB,
			Origin:   ref,
		})
	}
	return nil
}

func (b *builder) compileBaseTransitions() error {
	if err := b.compileTransitions(&b.video, b.base.segments); err != nil {
		return err
	}
	return b.compileTransitions(&b.audio, b.base.segments)
}
