package main

import (
	"fmt"
	"os"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/videolabel/server"
)

func main() {
	parser := argparse.NewParser("videolabel", "Interactive bounding box annotation of video frames")
	configFilePath := parser.String("c", "config", &argparse.Options{Help: "Config file path (defaults are used if empty)", Default: ""})
	listen := parser.String("l", "listen", &argparse.Options{Help: "Listen address, eg ':8082'. Overrides the config file."})
	backendURL := parser.String("b", "backend", &argparse.Options{Help: "Dataset server URL, eg 'http://localhost:5000'. Overrides the config file."})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	cfg, err := server.LoadConfig(*configFilePath)
	if err != nil {
		fmt.Printf("%v\n", err)
		os.Exit(1)
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *backendURL != "" {
		cfg.BackendURL = *backendURL
	}

	logger, err := logs.NewLog()
	if err != nil {
		panic(err)
	}
	logger.Infof("Dataset server is %v", cfg.BackendURL)

	s, err := server.NewServer(logger, cfg)
	if err != nil {
		logger.Errorf("%v", err)
		logger.Close()
		os.Exit(1)
	}
	s.ListenForKillSignals()
	if err := s.ListenHTTP(cfg.Listen); err != nil {
		fmt.Printf("%v\n", err)
		os.Exit(1)
	}
}
