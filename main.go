package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/claybath/densimeter/controller"
	"github.com/claybath/densimeter/controller/daemon"
)

func main() {
	configFile := flag.String("config", "densimeter.yml", "boot settings file")
	dev := flag.Bool("dev", false, "run with simulated hardware")
	flag.Parse()

	settings, err := controller.LoadSettings(*configFile)
	if err != nil {
		log.Fatal(err)
	}
	if *dev {
		settings.Dev = true
	}

	app, err := daemon.New(settings)
	if err != nil {
		log.Fatal(err)
	}
	if err := app.Setup(); err != nil {
		log.Fatal(err)
	}
	if err := app.Start(); err != nil {
		log.Fatal(err)
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	log.Println("shutting down")
	app.Stop()
}
