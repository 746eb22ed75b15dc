package diag

// Reporter receives diagnostics during a pass.
// A non-nil return means the pass must stop and propagate the error.
type Reporter interface {
	Report(d *Diagnostic) error
}

// Collector implements the reporting policy of one pass.
//
// In strict mode the first reported diagnostic is returned as an error so the
// caller unwinds immediately. In lenient mode diagnostics accumulate and
// Report always returns nil.
type Collector struct {
	strict   bool
	records  []*Diagnostic
	onRecord func(*Diagnostic)
}

// NewCollector creates a collector with the given policy.
// onRecord, if non-nil, is called for every reported diagnostic.
func NewCollector(strict bool, onRecord func(*Diagnostic)) *Collector {
	return &Collector{strict: strict, onRecord: onRecord}
}

// Report implements Reporter.
func (c *Collector) Report(d *Diagnostic) error {
	if c.onRecord != nil {
		c.onRecord(d)
	}
	if c.strict {
		return d
	}
	c.records = append(c.records, d)
	return nil
}

// Diagnostics returns the recorded diagnostics (lenient mode only).
func (c *Collector) Diagnostics() []*Diagnostic {
	return c.records
}
