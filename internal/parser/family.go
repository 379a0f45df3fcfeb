package parser

// DefaultFamily is the order parsers are attempted in, per spec §4.1: each
// is tried in turn and a FormatMismatch yields to the next.
func DefaultFamily() []Parser {
	return []Parser{
		SapFlowAll{},
		CR300Table{},
		CR200Table{},
	}
}

// Attempt records one parser's outcome against a single file, used to build
// the receipt's per-file "parser attempted" trail.
type Attempt struct {
	Family Family
	Err    error // nil on success
}

// ParseFile tries every parser in families in order. It returns the first
// successful ParsedFile. A recoverable (FormatMismatch) error moves on to the
// next parser; the first non-recoverable error stops the search and is
// returned. If every parser reports a FormatMismatch, a FormatMismatch error
// is returned. The attempt trail lists every parser tried.
func ParseFile(data []byte, families []Parser) (*ParsedFile, []Attempt, error) {
	var attempts []Attempt
	var lastErr error
	for _, p := range families {
		pf, err := p.Parse(data)
		if err == nil {
			attempts = append(attempts, Attempt{Family: p.Family()})
			return pf, attempts, nil
		}
		attempts = append(attempts, Attempt{Family: p.Family(), Err: err})
		if pe, ok := err.(*Error); ok && pe.Recoverable() {
			continue
		}
		lastErr = err
		// A non-recoverable error from the family whose opening check
		// matched is authoritative: don't keep trying other families.
		return nil, attempts, lastErr
	}
	if lastErr == nil {
		lastErr = &Error{Kind: KindFormatMismatch, Message: "no parser in the family recognized this file"}
	}
	return nil, attempts, lastErr
}
