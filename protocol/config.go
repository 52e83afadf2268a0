package protocol

import (
	"github.com/datazip-inc/fimo/constants"
	"github.com/datazip-inc/fimo/types"
	"github.com/datazip-inc/fimo/utils"
	"github.com/spf13/viper"
)

const (
	logLevelFlag         = "log-level"
	sourceURIFlag        = "source-uri"
	sourceDBFlag         = "source-db"
	sourceCollectionFlag = "source-collection"
	targetURIFlag        = "target-uri"
	targetDBFlag         = "target-db"
	targetCollectionFlag = "target-collection"
	useChangeStreamFlag  = "use-change-stream"
	syncFieldFlag        = "sync-field"
	limitFlag            = "limit"
	resumeFileFlag       = "resume-file"
	resumeValueFlag      = "resume-value"
	resumeTypeFlag       = "resume-type"
	resumeIDFlag         = "resume-id"
	healthFileFlag       = "health-file"
	metricsAddressFlag   = "metrics-address"
)

// loadSyncConfig reads the optional config file and lays flags and FIMO_ environment variables over it
func loadSyncConfig(path string) (*types.SyncConfig, error) {
	config := &types.SyncConfig{BatchLimit: constants.DefaultBatchLimit}
	if path != "" {
		if err := utils.UnmarshalFile(path, config); err != nil {
			return nil, types.InvalidConfig.Wrap(err, "failed to read config file %s", path)
		}
	}

	overlay(viper.GetViper(), config)
	return config, nil
}

func overlay(v *viper.Viper, config *types.SyncConfig) {
	fields := map[string]*string{
		sourceURIFlag:        &config.Source.URI,
		sourceDBFlag:         &config.Source.Database,
		sourceCollectionFlag: &config.Source.Collection,
		targetURIFlag:        &config.Target.URI,
		targetDBFlag:         &config.Target.Database,
		targetCollectionFlag: &config.Target.Collection,
		syncFieldFlag:        &config.SyncField,
		resumeFileFlag:       &config.CheckpointFile,
		healthFileFlag:       &config.HealthFile,
	}
	for key, dest := range fields {
		if v.IsSet(key) {
			*dest = v.GetString(key)
		}
	}
	if v.IsSet(limitFlag) {
		config.BatchLimit = v.GetInt(limitFlag)
	}

	if v.IsSet(useChangeStreamFlag) && v.GetBool(useChangeStreamFlag) {
		config.Mode = types.ChangeStream
	} else if config.Mode == "" && config.SyncField != "" {
		config.Mode = types.FieldIncremental
	}

	if v.IsSet(resumeValueFlag) {
		config.Override = &types.Override{
			Value:  v.GetString(resumeValueFlag),
			Type:   v.GetString(resumeTypeFlag),
			LastID: v.GetString(resumeIDFlag),
		}
	}
}
