package resilience

import (
	"errors"
	"net"
	"strings"

	"productstudio/internal/domain"
)

type statusCoder interface {
	StatusCode() int
}

// Classify maps an error from an external call onto a retry category.
// Rate limit is checked before quota, and quota before network. Structural
// failures (a wrapped domain sentinel) keep their own kind unless the
// provider signalled a rate limit or quota, and otherwise win over the
// network heuristics. Anything else is UNKNOWN.
func Classify(err error) domain.ErrorKind {
	if err == nil {
		return domain.KindUnknown
	}

	status := 0
	var sc statusCoder
	if errors.As(err, &sc) {
		status = sc.StatusCode()
	}
	msg := strings.ToLower(err.Error())

	switch {
	case status == 429 || strings.Contains(msg, "rate limit"):
		return domain.KindRateLimit
	case status == 403 || strings.Contains(msg, "quota"):
		return domain.KindQuotaExceeded
	}
	if kind := domain.KindOf(err); kind != domain.KindUnknown {
		return kind
	}
	if isNetworkError(err) ||
		strings.Contains(msg, "network") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "econnreset") ||
		strings.Contains(msg, "connection reset") {
		return domain.KindNetwork
	}
	return domain.KindUnknown
}

func isNetworkError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr)
}
