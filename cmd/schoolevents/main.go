// Command schoolevents runs the school event registration service.
//
// @title SchoolEvents Registration API
// @version 1.0
// @description Capacity-limited event registration for school events.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"os"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
