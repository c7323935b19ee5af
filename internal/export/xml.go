package export

import "encoding/xml"

// The element types below mirror the subset of the MLT XML document format
// the exporter writes. Elements are emitted in dependency order: anything a
// playlist or tractor references appears before it.

type mltDocument struct {
	XMLName   xml.Name      `xml:"mlt"`
	LCNumeric string        `xml:"LC_NUMERIC,attr"`
	Producer  string        `xml:"producer,attr"`
	Profile   mltProfile    `xml:"profile"`
	Elements  []interface{} `xml:",any"`
}

type mltProfile struct {
	Description      string `xml:"description,attr"`
	Width            int    `xml:"width,attr"`
	Height           int    `xml:"height,attr"`
	Progressive      int    `xml:"progressive,attr"`
	SampleAspectNum  int    `xml:"sample_aspect_num,attr"`
	SampleAspectDen  int    `xml:"sample_aspect_den,attr"`
	DisplayAspectNum int    `xml:"display_aspect_num,attr"`
	DisplayAspectDen int    `xml:"display_aspect_den,attr"`
	FrameRateNum     int64  `xml:"frame_rate_num,attr"`
	FrameRateDen     int64  `xml:"frame_rate_den,attr"`
	Colorspace       int    `xml:"colorspace,attr"`
}

type mltProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

type mltFilter struct {
	Properties []mltProperty `xml:"property"`
}

type mltProducer struct {
	XMLName    xml.Name      `xml:"producer"`
	ID         string        `xml:"id,attr"`
	Properties []mltProperty `xml:"property"`
	Filters    []mltFilter   `xml:"filter,omitempty"`
}

type mltPlaylist struct {
	XMLName xml.Name      `xml:"playlist"`
	ID      string        `xml:"id,attr"`
	Items   []interface{} `xml:",any"`
}

type mltEntry struct {
	XMLName  xml.Name `xml:"entry"`
	Producer string   `xml:"producer,attr"`
	In       int64    `xml:"in,attr"`
	Out      int64    `xml:"out,attr"`
}

type mltBlank struct {
	XMLName xml.Name `xml:"blank"`
	Length  int64    `xml:"length,attr"`
}

type mltTrack struct {
	Producer string `xml:"producer,attr"`
	Hide     string `xml:"hide,attr,omitempty"`
}

type mltMultitrack struct {
	Tracks []mltTrack `xml:"track"`
}

type mltTransition struct {
	ID         string        `xml:"id,attr"`
	In         int64         `xml:"in,attr"`
	Out        int64         `xml:"out,attr"`
	Properties []mltProperty `xml:"property"`
}

type mltTractor struct {
	XMLName     xml.Name        `xml:"tractor"`
	ID          string          `xml:"id,attr"`
	In          int64           `xml:"in,attr"`
	Out         int64           `xml:"out,attr"`
	Properties  []mltProperty   `xml:"property,omitempty"`
	Multitrack  mltMultitrack   `xml:"multitrack"`
	Transitions []mltTransition `xml:"transition,omitempty"`
}

func props(kv ...string) []mltProperty {
	out := make([]mltProperty, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, mltProperty{Name: kv[i], Value: kv[i+1]})
	}
	return out
}
