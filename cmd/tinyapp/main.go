// Command tinyapp runs the TinyApp URL shortener.
package main

import (
	"github.com/patric-chuzhbe/tinyapp/internal/app"
	"github.com/patric-chuzhbe/tinyapp/internal/logger"
)

func main() {
	theApp, err := app.New()
	if err != nil {
		panic(err)
	}
	defer theApp.Close()

	if err := theApp.Run(); err != nil {
		logger.Log.Errorln("application stopped with error", "error", err)
	}
}
