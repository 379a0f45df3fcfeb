package publish

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
)

// BundleInputs carries everything needed to regenerate a published artifact
// bit-for-bit, per spec: the manifest text applied, the raw file hashes
// referenced, the receipt that recorded the transaction's outcome, and the
// installation keys the Parquet schema was expanded with.
type BundleInputs struct {
	TransactionID    string
	ManifestText     string
	RawFileHashes    []string
	ReceiptJSON      []byte
	InstallationKeys []string
	GeneratedAt      time.Time
}

// WriteReproBundle packages BundleInputs as a zip archive. The manifest text
// plus the raw files it references (fetched separately by the orchestrator
// and addressed by the hashes listed here) are sufficient to recompute the
// published table; the receipt records exactly what happened on this pass.
func WriteReproBundle(in BundleInputs) ([]byte, error) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)

	if err := writeEntry(zw, "manifest.toml", []byte(in.ManifestText)); err != nil {
		return nil, err
	}
	if err := writeEntry(zw, "receipt.json", in.ReceiptJSON); err != nil {
		return nil, err
	}
	if err := writeEntry(zw, "raw_file_hashes.txt", []byte(strings.Join(in.RawFileHashes, "\n")+"\n")); err != nil {
		return nil, err
	}
	if err := writeEntry(zw, "installation_keys.txt", []byte(strings.Join(in.InstallationKeys, "\n")+"\n")); err != nil {
		return nil, err
	}
	if err := writeEntry(zw, "PROVENANCE", []byte(provenanceText(in))); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("publish: close repro bundle: %w", err)
	}
	return buf.Bytes(), nil
}

func writeEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("publish: create %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("publish: write %s: %w", name, err)
	}
	return nil
}

func provenanceText(in BundleInputs) string {
	var b strings.Builder
	fmt.Fprintf(&b, "transaction_id: %s\n", in.TransactionID)
	fmt.Fprintf(&b, "generated_at: %s\n", in.GeneratedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "raw_file_count: %d\n", len(in.RawFileHashes))
	return b.String()
}
