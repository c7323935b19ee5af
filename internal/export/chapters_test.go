package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"emwy/internal/compile"
)

var sample = []compile.Chapter{
	{Frame: 0, Time: "00:00:00.000", Title: "Intro", Level: 1},
	{Frame: 150, Time: "00:00:05.000", Title: "Part  Two", Level: 2},
}

func TestWriteOGM(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteOGM(&buf, sample); err != nil {
		t.Fatal(err)
	}
	want := "CHAPTER01=00:00:00.000\nCHAPTER01NAME=Intro\nCHAPTER02=00:00:05.000\nCHAPTER02NAME=Part Two\n"
	if buf.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestWriteChaptersJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteChapters(&buf, sample, ChaptersJSON); err != nil {
		t.Fatal(err)
	}
	var records []chapterRecord
	if err := json.Unmarshal(buf.Bytes(), &records); err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 || records[1].Index != 2 || records[1].Frame != 150 || records[1].Level != 2 {
		t.Errorf("records = %+v", records)
	}
}

func TestWriteChaptersEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteChaptersJSON(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if got := bytes.TrimSpace(buf.Bytes()); string(got) != "[]" {
		t.Errorf("empty chapters = %q, want []", got)
	}
}

func TestParseChapterFormat(t *testing.T) {
	tests := []struct {
		raw     string
		want    ChapterFormat
		wantErr bool
	}{
		{"", ChaptersOGM, false},
		{"OGM", ChaptersOGM, false},
		{" json ", ChaptersJSON, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseChapterFormat(tt.raw)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseChapterFormat(%q) = %q, %v", tt.raw, got, err)
		}
	}
}

func TestWriteChaptersFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "out"+ChaptersOGM.Extension())
	if err := WriteChaptersFile(path, sample, ChaptersOGM); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("CHAPTER01=")) {
		t.Errorf("file contents = %q", data)
	}
}

func TestWriteFileLeavesNothingOnError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.mlt")
	boom := errors.New("boom")
	err := WriteFile(path, func(w io.Writer) error {
		io.WriteString(w, "partial")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("directory not clean: %v", entries)
	}
}
