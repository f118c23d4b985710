// Command extract scans a document for addresses and prints one JSON object
// per window. The document is read from the file argument or from stdin.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/address-extractor/app/bootstrap"
	"github.com/address-extractor/app/config"
	"github.com/address-extractor/app/requests"
	"github.com/address-extractor/app/services"
	"github.com/address-extractor/internal/extractor"
	"github.com/address-extractor/internal/reference"
	"go.uber.org/zap"
)

func main() {
	validOnly := flag.Bool("valid-only", false, "print only valid addresses")
	describe := flag.Bool("describe", false, "print the diagnostic form instead of JSON")
	gazetteerPath := flag.String("gazetteer", "", "gazetteer CSV; empty uses the embedded gazetteer")
	workers := flag.Int("workers", 0, "parallel window workers, 0 uses GOMAXPROCS")
	verbose := flag.Bool("v", false, "log every classified window to stderr")
	flag.Parse()

	logger := zap.NewNop()
	if *verbose {
		var err error
		if logger, err = config.NewLogger("development"); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer logger.Sync()
	}

	if err := run(flag.Arg(0), *gazetteerPath, *workers, *validOnly, *describe, logger); err != nil {
		fmt.Fprintln(os.Stderr, "extract:", err)
		os.Exit(1)
	}
}

func run(input, gazetteerPath string, workers int, validOnly, describe bool, logger *zap.Logger) error {
	text, err := readInput(input)
	if err != nil {
		return err
	}
	ref, err := loadReference(gazetteerPath, logger)
	if err != nil {
		return err
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	if describe {
		addrs := extractor.New(ref, logger).ExtractAll(text)
		if validOnly {
			addrs = extractor.ValidOnly(addrs)
		}
		for _, a := range addrs {
			fmt.Fprintln(out, a.Describe())
		}
		return nil
	}

	svc := services.NewExtractService(ref, nil, services.ExtractServiceConfig{Workers: workers}, logger)
	result, _, err := svc.Extract(context.Background(), text, requests.ExtractOptions{ValidOnly: validOnly})
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	for _, a := range result.Addresses {
		if err := enc.Encode(a); err != nil {
			return err
		}
	}
	return nil
}

func readInput(path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}

func loadReference(gazetteerPath string, logger *zap.Logger) (*reference.Reference, error) {
	cfg := config.ExtractorConfig{GazetteerSource: "embedded"}
	if gazetteerPath != "" {
		cfg = config.ExtractorConfig{GazetteerSource: "file", GazetteerPath: gazetteerPath}
	}
	return bootstrap.LoadReference(context.Background(), cfg, nil, logger)
}
