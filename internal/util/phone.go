package util

import "strings"

// NormalizePhone rewrites the usual Iranian phone spellings into the local
// leading-zero form. First matching rule wins; anything too short or too odd
// is returned untouched and left for the server to reject.
func NormalizePhone(raw string) string {
	s := strings.TrimSpace(raw)

	// Country code + Tehran trunk + operator prefix stacked on top of each
	// other. Only above 13 chars; shorter +982198 numbers take the plain
	// +98 rule below.
	if len(s) > 13 && strings.HasPrefix(s, "+982198") {
		return "0" + s[len("+982198"):]
	}
	if len(s) == 10 && strings.HasPrefix(s, "9") {
		return "0" + s
	}
	if len(s) < 9 {
		return s
	}
	if strings.HasPrefix(s, "+98") {
		return "0" + s[len("+98"):]
	}
	if strings.HasPrefix(s, "98") {
		return "0" + s[len("98"):]
	}
	return s
}
