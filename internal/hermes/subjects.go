package hermes

import "strconv"

const (
	SubjectCasesIngested    = "collector.case.ingested"
	SubjectCasesReallocated = "collector.case.reallocated"
	SubjectCollectorStats   = "collector.stats"

	// Inbound command subjects.
	SubjectReallocateCommand = "collector.command.reallocate"

	StreamName   = "COLLECTOR_EVENTS"
	StreamMaxAge = "720h" // 30 days
)

func SubjectCaseCreated(caseID int64) string {
	return "collector.case." + strconv.FormatInt(caseID, 10) + ".created"
}

func SubjectCaseStatus(caseID int64) string {
	return "collector.case." + strconv.FormatInt(caseID, 10) + ".status"
}
