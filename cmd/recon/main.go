/*
main.go - Batch reconciliation CLI

PURPOSE:
  Runs one reconciliation from the command line and writes the CSV and
  workbook reports. Intended for scripted pipeline runs where the HTTP
  service is overkill.

USAGE:
  recon -site edc_export.csv -lab lab_results.xlsx [-out reports/]

OUTPUTS:
  <out>/Lab_Reconciliation_Report_YYYYMMDD_HHMMSS.csv
  <out>/Lab_Reconciliation_Report_YYYYMMDD_HHMMSS.xlsx

EXIT CODES:
  0  run completed, reports written
  1  bad input or write failure (details on stderr via the logger)

SEE ALSO:
  - cmd/server/main.go: HTTP service entry point
  - export/: Output formats
*/
package main

import (
	"flag"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/warp/recon-engine/config"
	"github.com/warp/recon-engine/export"
	"github.com/warp/recon-engine/ingest"
	"github.com/warp/recon-engine/recon"
)

func main() {
	cfg := config.Load()

	sitePath := flag.String("site", "", "EDC export file (csv or xlsx)")
	labPath := flag.String("lab", "", "central lab results file (csv or xlsx)")
	outDir := flag.String("out", cfg.ExportDir, "directory for report files")
	logLevel := flag.String("log-level", cfg.LogLevel, "log level")
	flag.Parse()

	log := config.NewLogger(*logLevel)

	if *sitePath == "" || *labPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	siteRows, err := readSite(*sitePath)
	if err != nil {
		log.WithError(err).Fatal("failed to read site file")
	}
	labRows, err := readLab(*labPath)
	if err != nil {
		log.WithError(err).Fatal("failed to read lab file")
	}

	engine := recon.NewEngine(log)
	report, err := engine.Run(filepath.Base(*sitePath), siteRows, filepath.Base(*labPath), labRows)
	if err != nil {
		log.WithError(err).Fatal("reconciliation failed")
	}

	now := time.Now()
	csvPath := filepath.Join(*outDir, export.ReportFileName("csv", now))
	xlsxPath := filepath.Join(*outDir, export.ReportFileName("xlsx", now))

	if err := writeCSV(csvPath, report); err != nil {
		log.WithError(err).Fatal("failed to write csv report")
	}
	if err := export.SaveWorkbook(report, xlsxPath); err != nil {
		log.WithError(err).Fatal("failed to write workbook report")
	}

	log.WithFields(logrus.Fields{
		"total":           report.Stats.Total,
		"matched":         report.Stats.Matched,
		"site_only":       report.Stats.SiteOnly,
		"lab_only":        report.Stats.LabOnly,
		"date_mismatches": report.Stats.DateMismatches,
		"match_rate":      report.Stats.MatchRate.String(),
		"csv":             csvPath,
		"xlsx":            xlsxPath,
	}).Info("reconciliation complete")
}

func readSite(path string) ([]recon.SiteRow, error) {
	table, err := readTable(path)
	if err != nil {
		return nil, err
	}
	return ingest.SiteRows(table)
}

func readLab(path string) ([]recon.LabRow, error) {
	table, err := readTable(path)
	if err != nil {
		return nil, err
	}
	return ingest.LabRows(table)
}

func readTable(path string) (*ingest.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ingest.ReadTable(filepath.Base(path), data)
}

func writeCSV(path string, report *recon.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return export.WriteCSV(f, report)
}
