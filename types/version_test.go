package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCapabilityFromVersion(t *testing.T) {
	testCases := []struct {
		version  string
		expected TargetCapability
		wantErr  bool
	}{
		{version: "8.0.0", expected: BulkCapable},
		{version: "8.0.4-rc1", expected: BulkCapable},
		{version: "10.1", expected: BulkCapable},
		{version: "7.0.12", expected: LegacyOnly},
		{version: "4.4.29", expected: LegacyOnly},
		{version: "", expected: LegacyOnly, wantErr: true},
		{version: "v8", expected: LegacyOnly, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.version, func(t *testing.T) {
			capability, err := CapabilityFromVersion(tc.version)
			assert.Equal(t, tc.expected, capability)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
