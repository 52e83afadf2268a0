package fimo

import (
	"os"

	"github.com/datazip-inc/fimo/drivers/abstract"
	"github.com/datazip-inc/fimo/logger"
	"github.com/datazip-inc/fimo/protocol"
)

func RegisterDriver(driver abstract.DriverInterface) {
	// Execute the root command
	err := protocol.CreateRootCommand(driver).Execute()
	if err != nil {
		logger.Fatal(err)
	}

	os.Exit(0)
}
