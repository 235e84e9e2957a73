package resilience

import (
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"

	"productstudio/internal/domain"
)

type statusErr struct {
	status int
	msg    string
}

func (e statusErr) Error() string   { return e.msg }
func (e statusErr) StatusCode() int { return e.status }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want domain.ErrorKind
	}{
		{"status 429", statusErr{429, "too many requests"}, domain.KindRateLimit},
		{"rate limit message", errors.New("Rate limit reached for model"), domain.KindRateLimit},
		{"status 403", statusErr{403, "forbidden"}, domain.KindQuotaExceeded},
		{"quota message", errors.New("resource has been exhausted (e.g. check quota)"), domain.KindQuotaExceeded},
		{"rate limit wins over quota", errors.New("rate limit: quota bucket empty"), domain.KindRateLimit},
		{"429 status wins over quota message", statusErr{429, "quota exceeded"}, domain.KindRateLimit},
		{"quota wins over network", errors.New("network quota exhausted"), domain.KindQuotaExceeded},
		{"timeout message", errors.New("request timeout after 60s"), domain.KindNetwork},
		{"econnreset", errors.New("read: ECONNRESET"), domain.KindNetwork},
		{"net.Error", &net.OpError{Op: "dial", Err: errors.New("refused")}, domain.KindNetwork},
		{"wrapped status", fmt.Errorf("generate: %w", statusErr{429, "slow down"}), domain.KindRateLimit},
		{"unknown", errors.New("internal error"), domain.KindUnknown},
		{"status 500", statusErr{500, "backend error"}, domain.KindUnknown},
		{"content blocked sentinel", fmt.Errorf("%w: SAFETY", domain.ErrContentBlocked), domain.KindContentBlocked},
		{"parse sentinel", fmt.Errorf("%w: no json", domain.ErrParse), domain.KindParse},
		{"429 wins over wrapped sentinel", fmt.Errorf("%w: %w", domain.ErrEmptyResponse, statusErr{429, "slow down"}), domain.KindRateLimit},
		{"rate limit message wins over sentinel", fmt.Errorf("%w: rate limit hit", domain.ErrNoImageFound), domain.KindRateLimit},
		{"403 wins over wrapped sentinel", fmt.Errorf("%w: %w", domain.ErrParse, statusErr{403, "denied"}), domain.KindQuotaExceeded},
		{"connection reset", errors.New("read tcp 10.0.0.1:443: connection reset by peer"), domain.KindNetwork},
		{"nil", nil, domain.KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
