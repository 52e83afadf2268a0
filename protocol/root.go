package protocol

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/datazip-inc/fimo/constants"
	"github.com/datazip-inc/fimo/drivers/abstract"
	"github.com/datazip-inc/fimo/logger"
	"github.com/datazip-inc/fimo/types"
	"github.com/datazip-inc/fimo/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	configPath string
	logFolder  string

	syncConfig *types.SyncConfig

	commands  = []*cobra.Command{}
	driver    abstract.DriverInterface
	connector *abstract.AbstractDriver
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "fimo",
	Short: "one-way MongoDB collection mirror",
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if cmd == cmd.Root() {
			return nil
		}

		config, err := loadSyncConfig(configPath)
		if err != nil {
			return err
		}
		if err := config.Validate(); err != nil {
			return err
		}
		syncConfig = config

		// logger uses LOG_FOLDER, RUN_ID and SYNC_ID
		if logFolder == "" && config.CheckpointFile != "" {
			logFolder = filepath.Dir(config.CheckpointFile)
		}
		viper.Set(constants.LogFolder, logFolder)
		viper.Set(constants.LogLevelKey, viper.GetString(logLevelFlag))
		viper.Set(constants.RunIDKey, utils.ULID())
		viper.Set(constants.SyncIDKey, utils.ComputeConfigHash(config.Identity()))
		logger.Init()
		logger.LogConfig(config)

		connector = abstract.NewAbstractDriver(driver, config)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}

		return fmt.Errorf("'%s' is an invalid command. Use 'fimo --help' to display usage guide", args[0])
	},
}

func CreateRootCommand(connectorDriver abstract.DriverInterface) *cobra.Command {
	RootCmd.AddCommand(commands...)
	driver = connectorDriver

	return RootCmd
}

func init() {
	commands = append(commands, checkCmd, syncCmd)

	flags := RootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "", "", "(Optional) YAML or JSON file with the sync configuration; flags take precedence")
	flags.StringVarP(&logFolder, "log-folder", "", "", "(Optional) Folder for rotated log files; defaults to the resume file folder")
	flags.String(logLevelFlag, "info", "(Optional) Log level: debug, info, warn, error")

	flags.String(sourceURIFlag, "", "(Required) Source MongoDB connection string")
	flags.String(sourceDBFlag, "", "(Required) Source database")
	flags.String(sourceCollectionFlag, "", "(Required) Source collection")
	flags.String(targetURIFlag, "", "(Required) Target MongoDB connection string")
	flags.String(targetDBFlag, "", "(Required) Target database")
	flags.String(targetCollectionFlag, "", "(Required) Target collection")

	flags.Bool(useChangeStreamFlag, false, "Tail the source change stream; excludes --sync-field")
	flags.String(syncFieldFlag, "", "Poll by (field, _id) order on this monotonic field; excludes --use-change-stream")
	flags.Int(limitFlag, constants.DefaultBatchLimit, "(Optional) Maximum documents per batch")

	flags.String(resumeFileFlag, "", "(Optional) Checkpoint file; checkpoints are kept in memory when empty")
	flags.String(resumeValueFlag, "", "(Optional) Start position overriding the resume file")
	flags.String(resumeTypeFlag, "", "(Optional) Type of --resume-value: string, int, objectid, date, or token")
	flags.String(resumeIDFlag, "", "(Optional) _id tie-break of --resume-value as 24 hex characters")
	flags.String(healthFileFlag, "", "(Optional) File receiving the time of the last successful cycle")
	flags.String(metricsAddressFlag, "", "(Optional) Address serving prometheus metrics, e.g. :9090")

	viper.SetEnvPrefix(constants.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	if err := viper.BindPFlags(flags); err != nil {
		logger.Fatalf("failed to bind flags: %s", err)
	}

	// Disable Cobra CLI's built-in usage and error handling
	RootCmd.SilenceUsage = true
	RootCmd.SilenceErrors = true
}
