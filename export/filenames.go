/*
filenames.go - Timestamped output names

Reports keep the established naming convention so downstream tooling that
globs for Lab_Reconciliation_Report_* keeps working.
*/
package export

import (
	"fmt"
	"time"
)

const reportBaseName = "Lab_Reconciliation_Report"

// ReportFileName builds Lab_Reconciliation_Report_YYYYMMDD_HHMMSS.<ext>.
func ReportFileName(ext string, at time.Time) string {
	return fmt.Sprintf("%s_%s.%s", reportBaseName, at.Format("20060102_150405"), ext)
}
