package release

import "sort"

// Catalog maps versions to records and keeps a version-sorted index
// for "latest" queries. It is not safe for concurrent use.
type Catalog struct {
	// records is keyed by the canonical four-part version string.
	records map[string]*Record
	// ordered holds the same records; ascending after SortByVersion.
	ordered []*Record
	// sorted is false when ordered needs sorting.
	sorted bool
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		records: make(map[string]*Record),
		sorted:  true,
	}
}

// Add stores the record unless its version is already present (first wins).
// It reports whether the record was added.
func (c *Catalog) Add(record *Record) bool {
	if record == nil {
		return false
	}

	key := record.Version.String()
	if _, found := c.records[key]; found {
		return false
	}

	c.records[key] = record
	c.ordered = append(c.ordered, record)
	c.sorted = false

	return true
}

// Reset discards every record.
func (c *Catalog) Reset() {
	c.records = make(map[string]*Record)
	c.ordered = nil
	c.sorted = true
}

// Len returns the number of records.
func (c *Catalog) Len() int {
	return len(c.ordered)
}

// SortByVersion orders the records ascending by version.
func (c *Catalog) SortByVersion() {
	if c.sorted {
		return
	}

	sort.Slice(c.ordered, func(i, j int) bool {
		return c.ordered[i].Version.Compare(c.ordered[j].Version) < 0
	})

	c.sorted = true
}

// Records returns the records in ascending version order.
func (c *Catalog) Records() []*Record {
	c.SortByVersion()

	return append([]*Record(nil), c.ordered...)
}

// Latest returns the record with the highest version.
func (c *Catalog) Latest() (*Record, bool) {
	if len(c.ordered) == 0 {
		return nil, false
	}

	c.SortByVersion()

	return c.ordered[len(c.ordered)-1], true
}

// Lookup returns the record with exactly the given version.
func (c *Catalog) Lookup(version Version) (*Record, bool) {
	record, found := c.records[version.String()]

	return record, found
}
