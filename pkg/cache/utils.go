package cache

import (
	"fmt"
	"strings"
)

const keySep = ":"

// GenerateKey joins prefix and parts with ':'.
func GenerateKey(prefix string, parts ...interface{}) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, p := range parts {
		b.WriteString(keySep)
		fmt.Fprint(&b, p)
	}
	return b.String()
}

// BuildPattern matches every key nested under the given key parts, e.g. "bars:AAPL:*".
func BuildPattern(prefix string, parts ...interface{}) string {
	return GenerateKey(prefix, parts...) + keySep + "*"
}
