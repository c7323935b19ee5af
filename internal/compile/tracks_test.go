package compile

import "testing"

const trackAssets = `
assets:
  video:
    talk: {file: talk.mkv}
  audio:
    theme: {file: theme.wav}
    voice: {file: voice.wav, streams: {audio: [{layout: mono}]}}
timeline:
  segments:
    - source: {asset: talk, in: 0, out: 4}
  audio_tracks:`

func TestAudioTrackPadsToBase(t *testing.T) {
	m := mustCompile(t, trackAssets+`
    - segments:
        - source: {asset: theme, in: 0, out: 1}
    - role: commentary
      id: director
      segments:
        - blank: {duration: 1}
        - source: {asset: voice, in: 0, out: 3}
`)
	music := playlist(t, m, "audio_music_1")
	if got := lengths(music); !equalInts(got, []int64{30, 90}) {
		t.Fatalf("music lengths = %v, want [30 90]", got)
	}
	if pad := music.Entries[1]; pad.Fill != FillSilence {
		t.Errorf("padding fill = %s, want silence", pad.Fill)
	}
	commentary := playlist(t, m, "audio_commentary_director")
	if commentary.Length() != 120 {
		t.Errorf("commentary length = %d, want 120", commentary.Length())
	}
	roles := map[string]Role{}
	for _, tr := range m.Tracks() {
		roles[tr.Playlist] = tr.Role
	}
	if roles["audio_music_1"] != RoleMusic || roles["audio_commentary_director"] != RoleCommentary {
		t.Errorf("roles = %v", roles)
	}
}

func TestAudioTrackErrors(t *testing.T) {
	tests := []struct {
		name  string
		track string
		kind  Kind
	}{
		{"longer than base", `
    - segments: [{source: {asset: theme, in: 0, out: 5}}]
`, DurationMismatch},
		{"unknown role", `
    - role: karaoke
      segments: [{source: {asset: theme, in: 0, out: 1}}]
`, InvalidValue},
		{"video generator", `
    - segments: [{generator: {kind: black, duration: 1}}]
`, InvalidValue},
		{"layout change", `
    - segments:
        - source: {asset: theme, in: 0, out: 1}
        - source: {asset: voice, in: 0, out: 1}
`, StreamIncompatible},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectKind(t, trackAssets+tt.track, tt.kind)
		})
	}
}
