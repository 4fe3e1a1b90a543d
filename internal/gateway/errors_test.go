package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetTroubleshootingHint(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"timeout", fmt.Errorf("describe: %w", ErrTimeout), 3},
		{"invalid", ErrInvalidResponse, 3},
		{"decode fault", ErrDecodeFault, 3},
		{"connection lost", fmt.Errorf("%w: %w", ErrConnectionLost, context.Canceled), 1},
		{"search failed", fmt.Errorf("%w: %w", ErrSearchFailed, errors.New("no address")), 1},
		{"socket", &net.OpError{Op: "listen", Net: "udp4", Err: errors.New("address in use")}, 2},
		{"other", errors.New("boom"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, GetTroubleshootingHint(tt.err), tt.want)
		})
	}
}
