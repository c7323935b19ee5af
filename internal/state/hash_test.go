package state

import (
	"strings"
	"testing"

	"emwy/internal/compile"
	"emwy/internal/config"
)

const project = `
emwy: 2
profile:
  fps: 30
  resolution: [1280, 720]
output:
  file: out.mkv
assets:
  video:
    talk: {file: talk.mkv}
timeline:
  segments:
    - source: {asset: talk, in: 0, out: %s, title: Intro}
`

func model(t *testing.T, out string) *compile.Model {
	t.Helper()
	doc, err := config.Parse([]byte(strings.Replace(project, "%s", out, 1)), "/project")
	if err != nil {
		t.Fatal(err)
	}
	m, err := compile.Compile(doc, nil)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestFingerprintDeterministic(t *testing.T) {
	first, err := Fingerprint(model(t, "2"))
	if err != nil {
		t.Fatal(err)
	}
	second, err := Fingerprint(model(t, "2"))
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("fingerprints differ: %s vs %s", first, second)
	}
	if !strings.HasPrefix(first, "sha256:") || len(first) != len("sha256:")+64 {
		t.Errorf("unexpected fingerprint format %q", first)
	}
}

func TestFingerprintFollowsFrames(t *testing.T) {
	// 2.0 and 60@frame are the same frame count; 2.5 is not.
	a, _ := Fingerprint(model(t, "2.0"))
	b, _ := Fingerprint(model(t, "60@frame"))
	c, _ := Fingerprint(model(t, "2.5"))
	if a != b {
		t.Error("equivalent times should fingerprint the same")
	}
	if a == c {
		t.Error("different lengths should fingerprint differently")
	}
}

func TestDocumentHash(t *testing.T) {
	if DocumentHash([]byte("a")) == DocumentHash([]byte("b")) {
		t.Error("hash collision on different input")
	}
}
