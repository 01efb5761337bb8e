// Package deviceid identifies the software or radio that sent an APRS
// packet. Most devices announce themselves through the AX.25 destination
// ("tocall"), e.g. APDW16 for DireWolf 1.6. Mic-E uses the destination for
// the position, so those devices mark the comment instead: older Kenwoods
// with a '>' or ']' prefix, everyone else with a two-character suffix.
package deviceid

import (
	"cmp"
	_ "embed"
	"fmt"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed tocalls.yaml
var defaultTable []byte

// Device is one entry of the table.
type Device struct {
	Vendor string `yaml:"vendor"`
	Model  string `yaml:"model"`
	Class  string `yaml:"class"`
}

func (d Device) String() string {
	switch {
	case d.Vendor == "":
		return d.Model
	case d.Model == "":
		return d.Vendor
	}
	return d.Vendor + " " + d.Model
}

type tocall struct {
	Pattern string `yaml:"tocall"`
	Device  `yaml:",inline"`
	literal int
}

type mice struct {
	Prefix string `yaml:"prefix"`
	Suffix string `yaml:"suffix"`
	Device `yaml:",inline"`
}

type file struct {
	Mice       []mice   `yaml:"mice"`
	MiceLegacy []mice   `yaml:"micelegacy"`
	Tocalls    []tocall `yaml:"tocalls"`
}

// Table maps tocalls and Mic-E markers to devices.
type Table struct {
	tocalls []tocall
	mice    []mice
}

// Parse reads a table in the aprs-deviceid tocalls.yaml layout.
func Parse(data []byte) (*Table, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing device table: %w", err)
	}

	t := &Table{}

	for _, tc := range f.Tocalls {
		if tc.Pattern == "" {
			continue
		}
		tc.literal = len(strings.TrimRight(tc.Pattern, "?*n"))
		t.tocalls = append(t.tocalls, tc)
	}
	// Most specific first: APK003 before APK0??.
	slices.SortStableFunc(t.tocalls, func(a, b tocall) int {
		if c := cmp.Compare(b.literal, a.literal); c != 0 {
			return c
		}
		return cmp.Compare(len(b.Pattern), len(a.Pattern))
	})

	// Legacy entries need their prefix; longer suffixes are tried first so
	// ">...=" wins over a bare ">".
	t.mice = append(t.mice, f.Mice...)
	t.mice = append(t.mice, f.MiceLegacy...)
	slices.SortStableFunc(t.mice, func(a, b mice) int {
		return cmp.Compare(len(b.Suffix), len(a.Suffix))
	})
	return t, nil
}

// Default returns the built-in table.
var Default = sync.OnceValue(func() *Table {
	t, err := Parse(defaultTable)
	if err != nil {
		panic(err)
	}
	return t
})

// Lookup identifies a device from a destination callsign, with or without
// an SSID.
func (t *Table) Lookup(dest string) (Device, bool) {
	dest, _, _ = strings.Cut(strings.ToUpper(dest), "-")
	for _, tc := range t.tocalls {
		if matchTocall(tc.Pattern, dest) {
			return tc.Device, true
		}
	}
	return Device{}, false
}

// matchTocall matches dest against a pattern where '?' is any character,
// 'n' a digit and '*' the rest of the callsign. Trailing wildcards may
// match nothing.
func matchTocall(pattern, dest string) bool {
	for i := 0; i < len(pattern); i++ {
		p := pattern[i]
		if p == '*' {
			return true
		}
		if i >= len(dest) {
			return strings.Trim(pattern[i:], "?*n") == ""
		}
		c := dest[i]
		switch p {
		case '?':
		case 'n':
			if c < '0' || c > '9' {
				return false
			}
		default:
			if p != c {
				return false
			}
		}
	}
	return len(dest) == len(pattern)
}

// LookupMicE identifies a device from a Mic-E information field: the data
// type character, eight encoded bytes, then the comment. It also returns
// the comment with the device markers removed.
func (t *Table) LookupMicE(info string) (dev Device, comment string, ok bool) {
	if len(info) < 9 {
		return Device{}, "", false
	}
	typ := info[0]
	comment = strings.TrimRight(info[9:], "\r\n")
	if comment == "" {
		return Device{}, comment, false
	}
	for _, m := range t.mice {
		if !strings.HasSuffix(comment, m.Suffix) {
			continue
		}
		if m.Prefix != "" {
			if !strings.HasPrefix(comment, m.Prefix) || len(comment) < len(m.Prefix)+len(m.Suffix) {
				continue
			}
			return m.Device, comment[len(m.Prefix) : len(comment)-len(m.Suffix)], true
		}
		if typ == '`' || typ == '\'' {
			return m.Device, comment[:len(comment)-len(m.Suffix)], true
		}
	}
	return Device{}, comment, false
}

// Lookup uses the built-in table.
func Lookup(dest string) (Device, bool) { return Default().Lookup(dest) }

// LookupMicE uses the built-in table.
func LookupMicE(info string) (Device, string, bool) { return Default().LookupMicE(info) }
