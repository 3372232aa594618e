package main

import (
	"os"

	"github.com/yeremiapane/restaurant-floor/commands"
	"github.com/yeremiapane/restaurant-floor/utils"
)

func main() {
	utils.InitLogger()

	if err := commands.NewRootCommand().Execute(); err != nil {
		utils.ErrorLogger.Error(err)
		os.Exit(1)
	}
}
