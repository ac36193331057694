package ready

import (
	"regexp"
	"strings"
)

var identRe = regexp.MustCompile(`^-?[_a-zA-Z][_a-zA-Z0-9-]*$`)

// quote renders s as a double-quoted CSS string
func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\a `)
	return `"` + r.Replace(s) + `"`
}

// byID selects an element by id, falling back to an attribute selector for
// ids that are not plain identifiers.
func byID(id string) string {
	if identRe.MatchString(id) {
		return "#" + id
	}
	return "[id=" + quote(id) + "]"
}

func notClass(class string) string {
	return ":not(." + class + ")"
}
