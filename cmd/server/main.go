package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/JaimeStill/agrogestion/internal/config"
	"github.com/JaimeStill/agrogestion/pkg/openapi"
)

func main() {
	specOut := flag.String("openapi", "", "write the OpenAPI document to this file and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config load failed: ", err)
	}

	srv, err := NewServer(cfg)
	if err != nil {
		log.Fatal("server init failed: ", err)
	}

	if *specOut != "" {
		if err := openapi.WriteJSON(srv.modules.API.Spec, *specOut); err != nil {
			log.Fatal(err)
		}
		fmt.Println("wrote", *specOut)
		return
	}

	if err := srv.Start(); err != nil {
		log.Fatal("server start failed: ", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	if err := srv.Shutdown(cfg.ShutdownTimeoutDuration()); err != nil {
		log.Fatal("shutdown failed: ", err)
	}
	srv.infra.Logger.Info("agrogestion stopped")
}
