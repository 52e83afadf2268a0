package abstract

import (
	"context"

	"github.com/datazip-inc/fimo/constants"
	"github.com/datazip-inc/fimo/logger"
	"github.com/datazip-inc/fimo/metrics"
	"github.com/datazip-inc/fimo/types"
)

// ProbeCapability asks the target for its version once. Failures fall back to LegacyOnly, the
// slower path that every server version accepts.
func ProbeCapability(ctx context.Context, target Target) types.TargetCapability {
	probeCtx, cancel := context.WithTimeout(ctx, constants.DefaultProbeTimeout)
	defer cancel()

	version, err := target.ServerVersion(probeCtx)
	if err != nil {
		logger.Warnf("failed to probe target version, using per document writes: %s", err)
		metrics.TargetBulkCapable.Set(0)
		return types.LegacyOnly
	}

	capability, err := types.CapabilityFromVersion(version)
	if err != nil {
		logger.Warnf("using per document writes: %s", err)
	}
	logger.Infof("target server version %s, write path [%s]", version, capability)

	if capability == types.BulkCapable {
		metrics.TargetBulkCapable.Set(1)
	} else {
		metrics.TargetBulkCapable.Set(0)
	}
	return capability
}
