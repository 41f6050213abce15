package domain

// Source tags which input collection a record came from.
type Source int

const (
	SourceA Source = iota
	SourceB
)

func (s Source) String() string {
	if s == SourceB {
		return "b"
	}
	return "a"
}

// Record is a single cleaned input row. Fields hold cleaned text; numeric
// columns keep their cleaned decimal text. A field that is absent or empty
// after cleaning is treated as missing.
type Record struct {
	ID     string
	Fields map[string]string
}

// Value returns the cleaned value of field and whether it is present.
func (r Record) Value(field string) (string, bool) {
	v, ok := r.Fields[field]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Collection is an ordered, immutable set of records keyed by id.
type Collection struct {
	Name    string
	Columns []string
	records []Record
	index   map[string]int
}

// NewCollection builds a collection, skipping empty and duplicate ids.
// Skipped rows are counted in issues when it is non-nil.
func NewCollection(name string, columns []string, records []Record, issues *Issues) *Collection {
	c := &Collection{
		Name:    name,
		Columns: columns,
		records: make([]Record, 0, len(records)),
		index:   make(map[string]int, len(records)),
	}
	for _, r := range records {
		if r.ID == "" {
			issues.Add(IssueEmptyID, 1)
			continue
		}
		if _, dup := c.index[r.ID]; dup {
			issues.Add(IssueDuplicateID, 1)
			continue
		}
		c.index[r.ID] = len(c.records)
		c.records = append(c.records, r)
	}
	return c
}

// Len returns the number of records.
func (c *Collection) Len() int { return len(c.records) }

// At returns the record at position i in load order.
func (c *Collection) At(i int) Record { return c.records[i] }

// Records returns the records in load order. Callers must not modify it.
func (c *Collection) Records() []Record { return c.records }

// Get looks up a record by id.
func (c *Collection) Get(id string) (Record, bool) {
	i, ok := c.index[id]
	if !ok {
		return Record{}, false
	}
	return c.records[i], true
}

// Has reports whether id is present.
func (c *Collection) Has(id string) bool {
	_, ok := c.index[id]
	return ok
}

// HasColumn reports whether the collection's schema contains field.
func (c *Collection) HasColumn(field string) bool {
	for _, col := range c.Columns {
		if col == field {
			return true
		}
	}
	return false
}
