package host

import (
	"bytes"
	"strings"
)

// TagPrefix starts every tag this tool reads.
const TagPrefix = "fluent:"

// CommentTags reads comment lines of the form
//
//	+fluent:key=value
//	+fluent:key value
//	@name @other
//
// Tags may repeat; a tag without a value reads as "true". Lines that are
// neither tags nor annotations are returned as text.
func CommentTags(lines []string) (tags map[string][]string, annotations []string, text []string) {
	tags = map[string][]string{}

	for _, line := range lines {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "+"):
			k, v := splitKV(line[1:])
			if v == "" {
				v = "true"
			}
			tags[k] = append(tags[k], v)
		case strings.HasPrefix(line, "@"):
			annotations = append(annotations, ParseAnnotations(line)...)
		default:
			text = append(text, line)
		}
	}

	return
}

// ParseAnnotations returns the "@name" words of s without the marker.
func ParseAnnotations(s string) []string {
	var names []string
	for _, f := range strings.Fields(s) {
		if name := strings.TrimPrefix(f, "@"); name != f && name != "" {
			names = append(names, name)
		}
	}
	return names
}

// Options returns the values of tags named prefix + ":" + key, keyed by key.
func Options(tags map[string][]string, prefix string) map[string][]string {
	opts := map[string][]string{}
	prefix += ":"
	for k, v := range tags {
		if key, ok := strings.CutPrefix(k, prefix); ok && key != "" {
			opts[key] = v
		}
	}
	return opts
}

// Has reports whether the tag is present.
func Has(tags map[string][]string, key string) bool {
	_, ok := tags[key]
	return ok
}

func splitKV(line string) (string, string) {
	k := bytes.NewBuffer(nil)
	v := bytes.NewBuffer(nil)

	forValue := false

	for _, c := range line {
		if !forValue && (c == '=' || c == ' ') {
			forValue = true
			continue
		}

		if forValue {
			v.WriteRune(c)
		} else {
			k.WriteRune(c)
		}
	}

	return k.String(), strings.TrimSpace(v.String())
}
