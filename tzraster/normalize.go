package tzraster

import (
	"fmt"
	"regexp"
	"strconv"
)

var etcOffsetPattern = regexp.MustCompile(`^Etc/GMT([+-])(\d{1,2})$`)

// Normalize maps a dataset timezone identifier to the identifier expected by
// the consuming platform's timezone API.
//
// Etc/GMT+N is rewritten to UTC+NN:00 with the sign kept as-is, even though
// the POSIX Etc/GMT zones count offsets the other way round. Consumers rely
// on this exact spelling.
func Normalize(tzid string) string {
	if m := etcOffsetPattern.FindStringSubmatch(tzid); m != nil {
		offset, _ := strconv.Atoi(m[2])
		return fmt.Sprintf("UTC%s%02d:00", m[1], offset)
	}
	switch tzid {
	case "Etc/UTC":
		return "UTC"
	case "Etc/GMT":
		return "UTC+00:00"
	}
	return tzid
}

// Timezone pairs a raw dataset identifier with its normalized form.
type Timezone struct {
	Raw        string
	Normalized string
}

// NewTimezones normalizes a sorted list of raw identifiers.
func NewTimezones(raw []string) []Timezone {
	result := make([]Timezone, 0, len(raw))
	for _, r := range raw {
		result = append(result, Timezone{Raw: r, Normalized: Normalize(r)})
	}
	return result
}
