package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/videolabel/pkg/idgen"
	"github.com/cyclopcam/videolabel/pkg/labelapi"
	"github.com/cyclopcam/videolabel/server"
	"github.com/cyclopcam/videolabel/server/labeling"
)

func check(err error) {
	if err != nil {
		panic(err)
	}
}

// parseKey parses "video/frame"
func parseKey(s string) (labeling.Key, error) {
	s = strings.TrimSpace(s)
	slash := strings.LastIndex(s, "/")
	if slash == -1 {
		return labeling.Key{}, fmt.Errorf("Invalid frame '%v'. Expected video/frame", s)
	}
	k := labeling.Key{Video: s[:slash], Frame: s[slash+1:]}
	if !k.Valid() {
		return labeling.Key{}, fmt.Errorf("Invalid frame '%v'. Expected video/frame", s)
	}
	return k, nil
}

func readFrameList(filename string) ([]labeling.Key, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	keys := []labeling.Key{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, err := parseKey(line)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, scanner.Err()
}

func main() {
	logger, err := logs.NewLog()
	check(err)
	defer logger.Close()

	parser := argparse.NewParser("prelabel", "Run the detection model on frames, and save the results as annotations that a human can correct later")
	configFilePath := parser.String("c", "config", &argparse.Options{Help: "Config file path (defaults are used if empty)", Default: ""})
	backendURL := parser.String("b", "backend", &argparse.Options{Help: "Dataset server URL. Overrides the config file."})
	frames := parser.StringList("f", "frame", &argparse.Options{Help: "Frame to label, as video/frame. May be repeated."})
	frameList := parser.String("", "list", &argparse.Options{Help: "Text file with one video/frame per line"})
	dryRun := parser.Flag("n", "dry-run", &argparse.Options{Help: "Run the model, but don't save anything", Default: false})
	overwrite := parser.Flag("", "overwrite", &argparse.Options{Help: "Also label frames that already have saved annotations (the saved boxes are kept)", Default: false})
	err = parser.Parse(os.Args)
	if err != nil {
		logger.Errorf(parser.Usage(err))
		os.Exit(1)
	}

	cfg, err := server.LoadConfig(*configFilePath)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	if *backendURL != "" {
		cfg.BackendURL = *backendURL
	}

	keys := []labeling.Key{}
	for _, f := range *frames {
		k, err := parseKey(f)
		if err != nil {
			logger.Errorf("%v", err)
			os.Exit(1)
		}
		keys = append(keys, k)
	}
	if *frameList != "" {
		listed, err := readFrameList(*frameList)
		if err != nil {
			logger.Errorf("Failed to read frame list: %v", err)
			os.Exit(1)
		}
		keys = append(keys, listed...)
	}
	if len(keys) == 0 {
		logger.Errorf("No frames specified. Use --frame or --list")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := labelapi.NewClient(cfg.BackendURL, nil)
	classes, err := client.Classes(ctx)
	if err != nil {
		if cfg.ClassFile == "" {
			logger.Errorf("Failed to load classes: %v", err)
			os.Exit(1)
		}
		logger.Warnf("Failed to load classes from %v (%v). Using %v", cfg.BackendURL, err, cfg.ClassFile)
		classes, err = labelapi.LoadClassFile(cfg.ClassFile)
		if err != nil {
			logger.Errorf("Failed to load class file: %v", err)
			os.Exit(1)
		}
	}

	opts := labeling.PrelabelOptions{
		Engine:    cfg.EngineOptions(),
		Classes:   classes,
		DryRun:    *dryRun,
		Overwrite: *overwrite,
	}
	ids := &idgen.Allocator{}
	nFailed := 0
	for _, k := range keys {
		if ctx.Err() != nil {
			logger.Warnf("Interrupted")
			break
		}
		res, err := labeling.Prelabel(ctx, client, ids, k, opts)
		if err != nil {
			logger.Errorf("%v: %v", k, err)
			nFailed++
			continue
		}
		switch {
		case res.Skipped:
			logger.Infof("%v: skipped, already has %v saved boxes", k, res.NumSaved)
		case res.Written:
			logger.Infof("%v: saved %v model boxes (and %v existing)", k, res.NumModel, res.NumSaved)
		default:
			logger.Infof("%v: %v model boxes (dry run)", k, res.NumModel)
		}
	}
	if nFailed != 0 {
		logger.Errorf("%v of %v frames failed", nFailed, len(keys))
		logger.Close()
		os.Exit(1)
	}
}
