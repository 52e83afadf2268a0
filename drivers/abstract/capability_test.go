package abstract

import (
	"context"
	"errors"
	"testing"

	"github.com/datazip-inc/fimo/types"
	"github.com/stretchr/testify/assert"
)

func TestProbeCapability(t *testing.T) {
	testCases := []struct {
		name       string
		version    string
		versionErr error
		expected   types.TargetCapability
	}{
		{name: "version 7 writes per document", version: "7.0.12", expected: types.LegacyOnly},
		{name: "version 8 writes in bulk", version: "8.0.1", expected: types.BulkCapable},
		{name: "newer major writes in bulk", version: "9.1.0", expected: types.BulkCapable},
		{name: "unreadable version", version: "unknown", expected: types.LegacyOnly},
		{name: "probe failure", versionErr: errors.New("not authorized on admin"), expected: types.LegacyOnly},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			target := newFakeTarget(tc.version)
			target.versionErr = tc.versionErr
			assert.Equal(t, tc.expected, ProbeCapability(context.Background(), target))
		})
	}
}
