package main

import (
	"github.com/datazip-inc/fimo"
	driver "github.com/datazip-inc/fimo/drivers/mongodb/internal"
)

func main() {
	fimo.RegisterDriver(&driver.Mongo{})
}
