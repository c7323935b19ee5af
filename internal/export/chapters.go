package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"

	"emwy/internal/compile"
)

// ChapterFormat names a chapter list encoding.
type ChapterFormat string

const (
	ChaptersOGM  ChapterFormat = "ogm"
	ChaptersJSON ChapterFormat = "json"
)

// ParseChapterFormat accepts ogm or json, case-insensitively.
func ParseChapterFormat(raw string) (ChapterFormat, error) {
	switch f := ChapterFormat(strings.ToLower(strings.TrimSpace(raw))); f {
	case ChaptersOGM, ChaptersJSON:
		return f, nil
	case "":
		return ChaptersOGM, nil
	default:
		return "", errors.Errorf("unknown chapter format %q (want ogm or json)", raw)
	}
}

// Extension returns the conventional file extension for the format.
func (f ChapterFormat) Extension() string {
	if f == ChaptersJSON {
		return ".chapters.json"
	}
	return ".chapters.txt"
}

// WriteChapters encodes chapters in the given format.
func WriteChapters(w io.Writer, chapters []compile.Chapter, format ChapterFormat) error {
	switch format {
	case ChaptersJSON:
		return WriteChaptersJSON(w, chapters)
	case ChaptersOGM, "":
		return WriteOGM(w, chapters)
	}
	return errors.Errorf("unknown chapter format %q", format)
}

// WriteOGM writes the OGM simple chapter format:
//
//	CHAPTER01=00:00:00.000
//	CHAPTER01NAME=Intro
func WriteOGM(w io.Writer, chapters []compile.Chapter) error {
	bw := bufio.NewWriter(w)
	for i, c := range chapters {
		fmt.Fprintf(bw, "CHAPTER%02d=%s\n", i+1, c.Time)
		fmt.Fprintf(bw, "CHAPTER%02dNAME=%s\n", i+1, compile.CleanTitle(c.Title))
	}
	return errors.Wrap(bw.Flush(), "write chapters")
}

type chapterRecord struct {
	Index int    `json:"index"`
	Frame int64  `json:"frame"`
	Time  string `json:"time"`
	Title string `json:"title"`
	Level int    `json:"level"`
}

// WriteChaptersJSON writes chapters as an indented JSON array.
func WriteChaptersJSON(w io.Writer, chapters []compile.Chapter) error {
	records := make([]chapterRecord, 0, len(chapters))
	for i, c := range chapters {
		records = append(records, chapterRecord{
			Index: i + 1,
			Frame: c.Frame,
			Time:  c.Time,
			Title: compile.CleanTitle(c.Title),
			Level: c.Level,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(records), "encode chapters")
}

// WriteChaptersFile writes chapters to path atomically.
func WriteChaptersFile(path string, chapters []compile.Chapter, format ChapterFormat) error {
	return WriteFile(path, func(w io.Writer) error {
		return WriteChapters(w, chapters, format)
	})
}
