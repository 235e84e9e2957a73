package cache

import (
	"strconv"
	"strings"

	"productstudio/internal/domain"
)

const prefixLen = 100

// Fingerprint derives the cache key for an analysis request. It uses a
// 32-bit rolling hash, so it is a de-duplication key and not a uniqueness
// guarantee.
func Fingerprint(images []domain.Image, name, description string) string {
	var b strings.Builder
	for _, img := range images {
		data := img.Data
		if len(data) > prefixLen {
			data = data[:prefixLen]
		}
		b.WriteString(data)
	}
	b.WriteString("-")
	b.WriteString(name)
	b.WriteString("-")
	b.WriteString(description)
	return hashString(b.String())
}

func hashString(s string) string {
	var h int32
	for i := 0; i < len(s); i++ {
		h = (h << 5) - h + int32(s[i])
	}
	return strconv.FormatInt(int64(h), 36)
}
