package compile

import "testing"

func TestCleanTitle(t *testing.T) {
	tests := []struct{ in, want string }{
		{"  Intro  ", "Intro"},
		{"Part\n  Two", "Part Two"},
		{"Café", "Café"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CleanTitle(tt.in); got != tt.want {
			t.Errorf("CleanTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMarkers(t *testing.T) {
	m := mustCompile(t, talkAssets+`
timeline:
  segments:
    - source: {asset: talk, in: 0, out: 2, title: Opening}
    - source:
        asset: talk
        in: 0
        out: 4
        chapter: false
        title: Hidden
        markers:
          - {title: Demo, offset: 1, level: 2}
          - {title: Private, offset: 2, chapter: false}
          - {title: End, offset: 4}
`)
	chapters := m.Chapters()
	want := []struct {
		frame int64
		title string
		level int
	}{
		{0, "Opening", 1},
		{90, "Demo", 2},
		{180, "End", 1},
	}
	if len(chapters) != len(want) {
		t.Fatalf("chapters = %+v", chapters)
	}
	for i, w := range want {
		c := chapters[i]
		if c.Frame != w.frame || c.Title != w.title || c.Level != w.level {
			t.Errorf("chapter %d = %+v, want %+v", i, c, w)
		}
	}
}

func TestChapterErrors(t *testing.T) {
	tests := []struct {
		name    string
		segment string
		kind    Kind
	}{
		{"marker past segment", `
    - source: {asset: talk, in: 0, out: 2, markers: [{title: Late, offset: 3}]}
`, MarkerOutOfRange},
		{"marker on title frame", `
    - source: {asset: talk, in: 0, out: 2, title: A, markers: [{title: B, offset: 0}]}
`, ChapterConflict},
		{"marker without title", `
    - source: {asset: talk, in: 0, out: 2, markers: [{offset: 1}]}
`, InvalidValue},
		{"malformed offset", `
    - source: {asset: talk, in: 0, out: 2, markers: [{title: X, offset: soon}]}
`, MalformedTime},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectKind(t, talkAssets+"\ntimeline:\n  segments:"+tt.segment, tt.kind)
		})
	}
}
