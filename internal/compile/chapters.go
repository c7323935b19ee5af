package compile

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"emwy/internal/timecode"
)

// CleanTitle trims a title, folds it onto one line and normalizes it to NFC.
func CleanTitle(title string) string {
	return norm.NFC.String(strings.Join(strings.Fields(title), " "))
}

// collectChapters emits a chapter at the start of every titled segment and
// at every marker that keeps its chapter flag.
func (b *builder) collectChapters(segments []placed) ([]Chapter, error) {
	var chapters []Chapter
	for _, s := range segments {
		if title := CleanTitle(s.common.Title); title != "" && s.common.ChapterEnabled() {
			chapters = append(chapters, Chapter{Frame: s.start, Title: title, Level: 1, Origin: s.ref})
		}
		for j, m := range s.common.Markers {
			ref := s.ref.With(fmt.Sprintf("markers[%d]", j))
			title := CleanTitle(m.Title)
			if title == "" {
				return nil, diagf(InvalidValue, ref.With("title"), "marker requires a title")
			}
			level := m.Level
			if level == 0 {
				level = 1
			}
			if level < 1 {
				return nil, diagf(InvalidValue, ref.With("level"), "marker level must be >= 1, got %d", m.Level)
			}
			offset, err := b.frames(m.Offset, ref.With("offset"))
			if err != nil {
				return nil, err
			}
			if offset > s.length {
				return nil, diagf(MarkerOutOfRange, ref.With("offset"),
					"offset is %d frames but the segment is %d frames long", offset, s.length)
			}
			if m.Chapter != nil && !*m.Chapter {
				continue
			}
			chapters = append(chapters, Chapter{Frame: s.start + offset, Title: title, Level: level, Origin: ref})
		}
	}

	sort.SliceStable(chapters, func(i, j int) bool { return chapters[i].Frame < chapters[j].Frame })
	for i := 1; i < len(chapters); i++ {
		if chapters[i].Frame == chapters[i-1].Frame {
			return nil, diagf(ChapterConflict, chapters[i].Origin,
				"chapter %q lands on frame %d, the same frame as %q from %s",
				chapters[i].Title, chapters[i].Frame, chapters[i-1].Title, chapters[i-1].Origin)
		}
	}
	fps := b.c.profile.FPS
	for i := range chapters {
		chapters[i].Time = timecode.FormatChapter(chapters[i].Frame, fps)
	}
	return chapters, nil
}

func (b *builder) compileChapters() error {
	chapters, err := b.collectChapters(b.base.segments)
	if err != nil {
		return err
	}
	b.chapters = chapters
	return nil
}
