// Package txn implements the atomic transaction orchestrator: the single
// entry point that serializes a submission end-to-end through preflight,
// parsing, the batch pipeline, and publication, producing the structured
// Receipt that is the system's entire audit record.
package txn

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rileyleff/sapfluxd/internal/calc"
	"github.com/rileyleff/sapfluxd/internal/db"
	"github.com/rileyleff/sapfluxd/internal/enrich"
	"github.com/rileyleff/sapfluxd/internal/flatten"
	"github.com/rileyleff/sapfluxd/internal/logging"
	"github.com/rileyleff/sapfluxd/internal/manifest"
	"github.com/rileyleff/sapfluxd/internal/model"
	"github.com/rileyleff/sapfluxd/internal/objstore"
	"github.com/rileyleff/sapfluxd/internal/parser"
	"github.com/rileyleff/sapfluxd/internal/publish"
	"github.com/rileyleff/sapfluxd/internal/resolve"
	"github.com/rileyleff/sapfluxd/internal/timestampfix"
)

// UploadedFile is one raw blob from the multipart request, identified by
// its original filename for the receipt's file reports.
type UploadedFile struct {
	Filename string
	Data     []byte
}

// Request is one transaction submission: a message, a dry-run flag, an
// optional manifest add-text, and zero or more file blobs.
type Request struct {
	User         string
	Message      string
	DryRun       bool
	ManifestText string
	Files        []UploadedFile
}

// Orchestrator is the single serialization point for every transaction.
// Per spec §5, a process-wide mutex is the concurrency control for
// single-instance deployments; internal/db's pg_advisory_xact_lock backs
// the same guarantee across multiple instances sharing one database.
type Orchestrator struct {
	store *db.Store
	blobs *objstore.Store
	log   *logging.Logger

	mu sync.Mutex

	now func() time.Time
}

func New(store *db.Store, blobs *objstore.Store, log *logging.Logger) *Orchestrator {
	if log == nil {
		log = logging.NewDiscard()
	}
	return &Orchestrator{store: store, blobs: blobs, log: log, now: time.Now}
}

// Submit runs the full transaction lifecycle (spec §4.8) and returns the
// receipt regardless of outcome — the receipt is the audit record, not an
// error channel. A non-nil error return is reserved for failures so severe
// the transaction row itself could not be written (DB unreachable at
// start, say); everything else surfaces through Receipt.Error.
func (o *Orchestrator) Submit(ctx context.Context, req Request) (*Receipt, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	txnID := uuid.New()
	attemptedAt := o.now()

	if err := o.store.InsertTransactionPending(ctx, model.Transaction{
		ID:          txnID,
		User:        req.User,
		Message:     req.Message,
		AttemptedAt: attemptedAt,
		Outcome:     model.OutcomePending,
	}); err != nil {
		return nil, fmt.Errorf("txn: insert pending row: %w", err)
	}

	receipt := o.run(ctx, txnID, req)

	receiptJSON, err := json.Marshal(receipt)
	if err != nil {
		return nil, fmt.Errorf("txn: marshal receipt: %w", err)
	}

	finalOutcome := model.OutcomeRejected
	if receipt.Outcome == OutcomeAccepted {
		finalOutcome = model.OutcomeAccepted
	}
	if err := o.store.UpdateTransactionOutcome(ctx, txnID, finalOutcome, receiptJSON); err != nil {
		return nil, fmt.Errorf("txn: update transaction outcome: %w", err)
	}

	return receipt, nil
}

// run executes steps 3-8 of the lifecycle and always returns a fully
// composed receipt, never an error — every failure mode is captured as a
// REJECTED receipt with an Error block instead.
func (o *Orchestrator) run(ctx context.Context, txnID uuid.UUID, req Request) *Receipt {
	receipt := &Receipt{TransactionID: txnID.String(), DryRun: req.DryRun}

	var m *manifest.Manifest
	if req.ManifestText != "" {
		parsed, err := manifest.Parse(req.ManifestText)
		if err != nil {
			return reject(receipt, "ManifestSyntax", err.Error())
		}
		m = parsed
	} else {
		m = &manifest.Manifest{}
	}

	dbTx, err := o.store.Tx(ctx)
	if err != nil {
		return reject(receipt, "StorageError", err.Error())
	}
	committed := false
	defer func() {
		if !committed {
			dbTx.Rollback(ctx)
		}
	}()

	curState, err := dbTx.LoadCurrentState(ctx)
	if err != nil {
		return reject(receipt, "StorageError", err.Error())
	}

	report := manifest.Preflight(m, curState)
	receipt.MetadataSummary = &report.Counts
	if !report.OK() {
		first := report.Errors[0]
		return reject(receipt, "PreflightError", first.Error())
	}

	if !req.DryRun {
		if err := manifest.Apply(ctx, dbTx, m, txnID); err != nil {
			return reject(receipt, "PreflightError", err.Error())
		}
	}

	cat, err := dbTx.LoadCatalog(ctx)
	if err != nil {
		return reject(receipt, "StorageError", err.Error())
	}

	fileReports, parsedFiles, err := o.processFiles(ctx, dbTx, req.Files)
	receipt.FileReports = fileReports
	if err != nil {
		return reject(receipt, "PipelineError", err.Error())
	}

	var calcRows []calc.Row
	var instKeys []string

	if len(parsedFiles) > 0 {
		rows, pipelineErr := o.runPipeline(ctx, dbTx, parsedFiles, cat)
		if pipelineErr != nil {
			return reject(receipt, "PipelineError", pipelineErr.Error())
		}
		if len(rows.rows) > 0 {
			calcRows = rows.rows
			instKeys = rows.installationKeys
			receipt.Pipeline = summarizePipeline(PipelineSuccess, calcRows, rows.skips)
		} else {
			// Every implied-visit group was skipped for lack of an active
			// deployment — whether the catalog held no deployments/sites at
			// all or merely none that matched these rows' loggers, the
			// outcome is the same: nothing to enrich, so the pipeline is
			// Skipped rather than a zero-row Success.
			receipt.Pipeline = summarizePipeline(PipelineSkipped, nil, rows.skips)
		}
	} else {
		receipt.Pipeline = summarizePipeline(PipelineSkipped, nil, nil)
	}

	if len(calcRows) > 0 {
		if err := o.publish(ctx, dbTx, txnID, req, fileReports, calcRows, instKeys, receipt); err != nil {
			return reject(receipt, "StorageError", err.Error())
		}
	}

	if req.DryRun {
		receipt.Outcome = OutcomeAccepted
		return receipt
	}

	if err := dbTx.Commit(ctx); err != nil {
		return reject(receipt, "StorageError", err.Error())
	}
	committed = true
	receipt.Outcome = OutcomeAccepted
	return receipt
}

func reject(r *Receipt, kind, message string) *Receipt {
	r.Outcome = OutcomeRejected
	r.Error = &ErrorInfo{Kind: kind, Message: message}
	return r
}

// processFiles computes each blob's content hash, classifies it
// Parsed/Duplicate/Failed, and returns the parsed files ready for the
// batch pipeline. Duplicate detection seeds a per-batch seen-set with
// existing-in-DB hashes so a repeat within one request never re-parses or
// double-reports a file, per spec §4.8 step 5.
func (o *Orchestrator) processFiles(ctx context.Context, dbTx *db.Tx, files []UploadedFile) ([]FileReport, []*parser.ParsedFile, error) {
	reports := make([]FileReport, 0, len(files))
	var parsed []*parser.ParsedFile
	seen := map[string]bool{}

	for _, f := range files {
		sum := sha256.Sum256(f.Data)
		hash := hex.EncodeToString(sum[:])

		if seen[hash] {
			reports = append(reports, FileReport{Filename: f.Filename, Status: FileDuplicate, Hash: hash})
			continue
		}
		existsInDB, err := dbTx.RawFileExists(ctx, hash)
		if err != nil {
			return reports, parsed, fmt.Errorf("check raw file existence: %w", err)
		}
		if existsInDB {
			seen[hash] = true
			reports = append(reports, FileReport{Filename: f.Filename, Status: FileDuplicate, Hash: hash})
			continue
		}

		pf, attempts, err := parser.ParseFile(f.Data, parser.DefaultFamily())
		attemptNames := make([]string, 0, len(attempts))
		for _, a := range attempts {
			attemptNames = append(attemptNames, string(a.Family))
		}
		if err != nil {
			line := 0
			if pe, ok := err.(*parser.Error); ok {
				line = pe.Line
			}
			o.log.Warn("file rejected by parser",
				logging.KV("filename", f.Filename),
				logging.KV("file_hash", hash),
				logging.KVErr(err))
			reports = append(reports, FileReport{
				Filename:         f.Filename,
				Status:           FileFailed,
				Hash:             hash,
				ParsersAttempted: attemptNames,
				FirstErrorLine:   line,
				Error:            err.Error(),
			})
			continue
		}

		pf.Hash = hash
		seen[hash] = true
		parsed = append(parsed, pf)
		reports = append(reports, FileReport{
			Filename:         f.Filename,
			Status:           FileParsed,
			Hash:             hash,
			ParsersAttempted: attemptNames,
		})
	}
	return reports, parsed, nil
}

type pipelineResult struct {
	rows             []calc.Row
	installationKeys []string
	skips            []timestampfix.Skip
}

// runPipeline drives flatten -> timestamp-fix -> enrich -> resolve ->
// calculate -> quality, per spec §4.8 step 6.
func (o *Orchestrator) runPipeline(ctx context.Context, dbTx *db.Tx, files []*parser.ParsedFile, cat *enrich.Catalog) (*pipelineResult, error) {
	flatRows, err := flatten.Flatten(files)
	if err != nil {
		return nil, fmt.Errorf("flatten: %w", err)
	}

	fixedRows, skips, err := timestampfix.Fix(flatRows, cat)
	if err != nil {
		return nil, fmt.Errorf("timestampfix: %w", err)
	}
	for _, s := range skips {
		o.log.Warn("implied-visit chunk skipped",
			logging.KV("logger_id", s.LoggerID),
			logging.KV("anchor_time", s.AnchorTime.UTC().Format(time.RFC3339)),
			logging.KV("row_count", s.RowCount),
			logging.KV("reason", s.Reason))
	}

	if len(fixedRows) == 0 {
		// Every group was skipped for lack of an active deployment — no
		// point loading overrides or resolving parameters for zero rows.
		return &pipelineResult{skips: skips}, nil
	}

	enrichedRows, err := enrich.Enrich(fixedRows, cat)
	if err != nil {
		return nil, fmt.Errorf("enrich: %w", err)
	}

	overrides, err := dbTx.LoadOverrides(ctx)
	if err != nil {
		return nil, fmt.Errorf("load parameter overrides: %w", err)
	}

	resolvedRows, err := resolve.Resolve(enrichedRows, overrides, calc.RequiredParameterCodes)
	if err != nil {
		return nil, fmt.Errorf("resolve: %w", err)
	}

	deploymentsByID := make(map[int64]model.Deployment, len(cat.Deployments))
	for _, d := range cat.Deployments {
		deploymentsByID[d.ID] = d
	}

	calcRows := make([]calc.Row, len(resolvedRows))
	for i, r := range resolvedRows {
		res := calc.Compute(r, r.Alpha, r.TimeToMaxTempDownstreamS)
		calcRows[i] = calc.Row{Row: r, Result: res}
	}

	calc.ApplyQuality(calcRows, func(r resolve.Row) calc.DeploymentWindow {
		d := deploymentsByID[r.DeploymentID]
		return calc.DeploymentWindow{Start: d.Start, End: d.End}
	}, o.now())

	return &pipelineResult{
		rows:             calcRows,
		installationKeys: enrich.InstallationKeys(enrichedRows),
		skips:            skips,
	}, nil
}

func summarizePipeline(status PipelineStatus, rows []calc.Row, skips []timestampfix.Skip) *PipelineSummary {
	summary := &PipelineSummary{
		Status:               status,
		RowCount:             len(rows),
		QualityReasonCounts:  map[string]int{},
		TopProvenanceSources: map[string]int{},
	}
	for _, s := range skips {
		summary.SkippedChunks = append(summary.SkippedChunks, SkippedChunk{
			LoggerID:         s.LoggerID,
			AnchorTimeUTC:    s.AnchorTime.UTC().Format(time.RFC3339),
			FileSetSignature: s.FileSetSignature,
			RowCount:         s.RowCount,
			Reason:           s.Reason,
		})
	}
	for _, r := range rows {
		summary.QualityTotalRows++
		if r.Quality != nil {
			summary.QualitySuspectRows++
			for _, reason := range splitReasons(r.QualityExplanation) {
				summary.QualityReasonCounts[reason]++
			}
		}
		for _, p := range r.Parameters {
			summary.TopProvenanceSources[string(p.Source)]++
		}
	}
	return summary
}

func splitReasons(explanation string) []string {
	if explanation == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(explanation); i++ {
		if i == len(explanation) || explanation[i] == '|' {
			out = append(out, explanation[start:i])
			start = i + 1
		}
	}
	return out
}

// publish materializes and writes the tabular artifact and reproducibility
// bundle, upload-first: object-store writes precede the database rows that
// reference them, per spec §4.8's upload-first rule.
func (o *Orchestrator) publish(ctx context.Context, dbTx *db.Tx, txnID uuid.UUID, req Request, fileReports []FileReport, rows []calc.Row, instKeys []string, receipt *Receipt) error {
	outputID := uuid.New()
	artifactKey := objstore.ArtifactKey(outputID.String())
	reproKey := objstore.ReproBundleKey(outputID.String())

	receipt.Artifacts = &ArtifactKeys{
		OutputID:       outputID.String(),
		ArtifactKey:    artifactKey,
		ReproBundleKey: reproKey,
	}

	uploadedHashes := make([]string, 0, len(fileReports))
	for i, fr := range fileReports {
		if fr.Status == FileFailed {
			continue
		}
		uploadedHashes = append(uploadedHashes, fr.Hash)
		if fr.Status != FileParsed {
			continue
		}
		if err := o.blobs.Put(ctx, objstore.RawFileKey(fr.Hash), req.Files[i].Data); err != nil {
			return fmt.Errorf("upload raw file %s: %w", fr.Hash, err)
		}
	}
	sort.Strings(uploadedHashes)

	parquetBytes, err := publish.WriteParquet(rows, instKeys)
	if err != nil {
		return fmt.Errorf("write parquet: %w", err)
	}
	if err := o.blobs.Put(ctx, artifactKey, parquetBytes); err != nil {
		return fmt.Errorf("upload artifact: %w", err)
	}

	// publish only ever runs on the path that will accept the transaction;
	// set the outcome now so the bundle's embedded receipt snapshot matches
	// what's ultimately returned to the caller.
	receipt.Outcome = OutcomeAccepted
	receiptJSON, err := json.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("marshal receipt for bundle: %w", err)
	}
	bundleBytes, err := publish.WriteReproBundle(publish.BundleInputs{
		TransactionID:    txnID.String(),
		ManifestText:     req.ManifestText,
		RawFileHashes:    uploadedHashes,
		ReceiptJSON:      receiptJSON,
		InstallationKeys: instKeys,
		GeneratedAt:      o.now(),
	})
	if err != nil {
		return fmt.Errorf("write repro bundle: %w", err)
	}
	if err := o.blobs.Put(ctx, reproKey, bundleBytes); err != nil {
		return fmt.Errorf("upload repro bundle: %w", err)
	}

	for _, fr := range fileReports {
		if fr.Status != FileParsed {
			continue
		}
		if err := dbTx.InsertRawFile(ctx, model.RawFile{
			Hash:                 fr.Hash,
			IncludeInPipeline:    true,
			IngestingTransaction: txnID,
		}); err != nil {
			return fmt.Errorf("insert raw file %s: %w", fr.Hash, err)
		}
	}

	if err := dbTx.InsertOutput(ctx, model.Output{
		ID:             outputID,
		TransactionID:  txnID,
		ArtifactKey:    artifactKey,
		ReproBundleKey: reproKey,
		RowCount:       int64(len(rows)),
		IsLatest:       true,
		CreatedAt:      o.now(),
	}); err != nil {
		return fmt.Errorf("insert output: %w", err)
	}

	return nil
}
