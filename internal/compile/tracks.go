package compile

import (
	"fmt"
	"strconv"
	"strings"
)

// compileAudioTracks expands music and commentary tracks. Each is padded
// with silence to the base length and stream-checked like the main lane.
func (b *builder) compileAudioTracks() error {
	baseLen := b.audio.Length()
	seen := map[string]bool{}
	for i, track := range b.c.doc.Timeline.AudioTracks {
		if !track.IsEnabled() {
			continue
		}
		ref := Ref{Scope: "timeline.audio_tracks", Index: i, ID: track.ID}
		role := Role(strings.TrimSpace(track.Role))
		if role == "" {
			role = RoleMusic
		}
		if role != RoleMusic && role != RoleCommentary {
			return diagf(InvalidValue, ref.With("role"), "audio track role must be music or commentary, got %q", track.Role)
		}
		id := strings.TrimSpace(track.ID)
		if id == "" {
			id = strconv.Itoa(i + 1)
		}
		playlistID := fmt.Sprintf("audio_%s_%s", role, id)
		if seen[playlistID] {
			return diagf(InvalidValue, ref.With("id"), "audio playlist id %q already exists", playlistID)
		}
		seen[playlistID] = true

		scope := fmt.Sprintf("%s[%d].segments", ref.Scope, i)
		segments, err := b.expandSegments(scope, track.Segments, modeAudioTrack)
		if err != nil {
			return err
		}
		playlist := assemble(playlistID, LaneAudio, segments)
		length := playlist.Length()
		switch {
		case length > baseLen:
			return diagf(DurationMismatch, ref, "audio track is %d frames but the base timeline is %d", length, baseLen)
		case length < baseLen:
			playlist.Entries = append(playlist.Entries, Entry{
				Lane: LaneAudio, Start: length, Length: baseLen - length,
				Kind: EntryBlank, Fill: FillSilence, Origin: ref,
			})
		}
		if err := checkStreams(playlist); err != nil {
			return err
		}
		if err := b.compileTransitions(&playlist, segments); err != nil {
			return err
		}
		b.extra = append(b.extra, playlist)
		b.extraRole = append(b.extraRole, role)
	}
	return nil
}
