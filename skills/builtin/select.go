package builtin

import (
	"hash/fnv"
	"strings"
)

// pickTemplate 按输入哈希从模板列表中确定性选取一条。
func pickTemplate(templates []string, input string) string {
	if len(templates) == 0 {
		return ""
	}
	h := fnv.New32a()
	h.Write([]byte(input))
	return templates[int(h.Sum32())%len(templates)]
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func countContains(s string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(s, w) {
			n++
		}
	}
	return n
}
