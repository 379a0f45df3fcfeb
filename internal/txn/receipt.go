package txn

import (
	"github.com/rileyleff/sapfluxd/internal/manifest"
)

// FileStatus is the closed set of outcomes a submitted file blob can land
// in, per spec §4.8 step 5.
type FileStatus string

const (
	FileParsed    FileStatus = "Parsed"
	FileDuplicate FileStatus = "Duplicate"
	FileFailed    FileStatus = "Failed"
)

// FileReport is one uploaded blob's outcome: which status it landed in, the
// parser family attempts made against it, and (on failure) where the first
// error was found.
type FileReport struct {
	Filename        string     `json:"filename"`
	Status          FileStatus `json:"status"`
	Hash            string     `json:"hash,omitempty"`
	ParsersAttempted []string  `json:"parsers_attempted,omitempty"`
	FirstErrorLine  int        `json:"first_error_line,omitempty"`
	Error           string     `json:"error,omitempty"`
}

// PipelineStatus is the closed set of outcomes for the batch pipeline run.
type PipelineStatus string

const (
	PipelineSuccess PipelineStatus = "success"
	PipelineSkipped PipelineStatus = "skipped"
)

// SkippedChunk mirrors internal/timestampfix.Skip for the receipt — an
// implied-visit group dropped for lack of an active deployment, not an
// error.
type SkippedChunk struct {
	LoggerID         string `json:"logger_id"`
	AnchorTimeUTC    string `json:"anchor_time_utc"`
	FileSetSignature string `json:"file_set_signature"`
	RowCount         int    `json:"row_count"`
	Reason           string `json:"reason"`
}

// PipelineSummary reports what the batch pipeline did, independent of
// whether the transaction ultimately committed (a dry run still reports a
// real pipeline summary).
type PipelineSummary struct {
	Status                PipelineStatus   `json:"status"`
	RowCount              int              `json:"row_count"`
	SkippedChunks         []SkippedChunk   `json:"skipped_chunks,omitempty"`
	QualityTotalRows      int              `json:"quality_total_rows"`
	QualitySuspectRows    int              `json:"quality_suspect_rows"`
	QualityReasonCounts   map[string]int   `json:"quality_reason_counts,omitempty"`
	TopProvenanceSources  map[string]int   `json:"top_provenance_sources,omitempty"`
}

// ArtifactKeys names the object-store locations published on acceptance.
type ArtifactKeys struct {
	OutputID       string `json:"output_id"`
	ArtifactKey    string `json:"artifact_key"`
	ReproBundleKey string `json:"repro_bundle_key"`
}

// ErrorInfo is the explicit error block a rejected transaction's receipt
// always carries — enough structured detail to locate the problem without
// re-reading logs.
type ErrorInfo struct {
	Kind          string `json:"kind"`
	Message       string `json:"message"`
	Selector      string `json:"selector,omitempty"`
	FirstErrorLine int   `json:"first_error_line,omitempty"`
	RecordsFound  int    `json:"records_found,omitempty"`
}

// Outcome is the closed set of terminal transaction outcomes, mirroring
// model.TransactionOutcome minus PENDING (a receipt is only ever composed
// once the transaction has settled).
type Outcome string

const (
	OutcomeAccepted Outcome = "ACCEPTED"
	OutcomeRejected Outcome = "REJECTED"
)

// Receipt is the transaction's entire audit record — per spec §4.8,
// "nothing is emitted outside it that isn't also in it."
type Receipt struct {
	TransactionID   string                  `json:"transaction_id"`
	Outcome         Outcome                 `json:"outcome"`
	DryRun          bool                    `json:"dry_run"`
	FileReports     []FileReport            `json:"file_reports,omitempty"`
	Pipeline        *PipelineSummary        `json:"pipeline,omitempty"`
	MetadataSummary *manifest.EntityCounts  `json:"metadata_summary,omitempty"`
	Artifacts       *ArtifactKeys           `json:"artifacts,omitempty"`
	Error           *ErrorInfo              `json:"error,omitempty"`
}
