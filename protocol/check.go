package protocol

import (
	"context"

	"github.com/datazip-inc/fimo/logger"
	"github.com/spf13/cobra"
)

// checkCmd connects to both ends and reports the write path and the starting position
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "check connectivity, target capability and the resume position",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := connector.Setup(cmd.Context()); err != nil {
			return err
		}
		defer func() {
			if err := connector.Close(context.Background()); err != nil {
				logger.Errorf("failed to close %s connector: %s", connector.Type(), err)
			}
		}()

		capability, start, err := connector.Check(cmd.Context(), connector.Store())
		if err != nil {
			return err
		}

		position := "current time of the change stream or start of collection"
		if start != nil {
			position = start.String()
		}
		logger.Infof("connection check passed: target write path [%s], sync starts from %s", capability, position)
		return nil
	},
}
