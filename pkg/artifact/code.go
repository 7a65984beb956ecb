package artifact

import (
	"regexp"
	"strings"
)

var fenceRe = regexp.MustCompile("(?s)```([A-Za-z0-9_+#.-]*)[^\\n]*\\n(.*?)```")

// ExtractCode returns the body of the first non-empty fenced block in reply, or the whole
// trimmed reply when it has no fences. A reply whose fences are all empty yields "\n".
func ExtractCode(reply string) string {
	blocks := fenceRe.FindAllStringSubmatch(reply, -1)
	for _, m := range blocks {
		if code := strings.TrimSpace(m[2]); code != "" {
			return code + "\n"
		}
	}
	if len(blocks) > 0 {
		return "\n"
	}
	return strings.TrimSpace(reply) + "\n"
}

// FenceLanguage returns the info string of the first fenced block, lowercased.
func FenceLanguage(reply string) string {
	m := fenceRe.FindStringSubmatch(reply)
	if m == nil {
		return ""
	}
	return strings.ToLower(m[1])
}
