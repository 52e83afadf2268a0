package types

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/datazip-inc/fimo/constants"
)

// MajorVersion extracts the leading numeric component of a server version string such as "7.0.12"
func MajorVersion(version string) (int, error) {
	head, _, _ := strings.Cut(strings.TrimSpace(version), ".")
	major, err := strconv.Atoi(head)
	if err != nil || major < 0 {
		return 0, fmt.Errorf("unrecognized server version [%s]", version)
	}

	return major, nil
}

// CapabilityFromVersion fails safe: anything it cannot read is LegacyOnly
func CapabilityFromVersion(version string) (TargetCapability, error) {
	major, err := MajorVersion(version)
	if err != nil {
		return LegacyOnly, err
	}
	if major >= constants.BulkWriteMinMajorVersion {
		return BulkCapable, nil
	}

	return LegacyOnly, nil
}
