package record

// Corpus accumulates records keyed by id, merging duplicates as they arrive.
// First sighting of an id becomes the primary; later sightings only fill gaps.
type Corpus struct {
	order []string
	byID  map[string]VideoRecord
}

func NewCorpus() *Corpus {
	return &Corpus{byID: make(map[string]VideoRecord)}
}

// Add folds a record into the corpus. Records without an id are dropped.
func (c *Corpus) Add(rec VideoRecord) {
	if rec.ID == "" {
		return
	}
	if existing, ok := c.byID[rec.ID]; ok {
		c.byID[rec.ID] = Merge(existing, rec)
		return
	}
	c.byID[rec.ID] = rec
	c.order = append(c.order, rec.ID)
}

// AddAll folds a slice of records into the corpus in order.
func (c *Corpus) AddAll(records []VideoRecord) {
	for _, rec := range records {
		c.Add(rec)
	}
}

// Get returns the record for an id.
func (c *Corpus) Get(id string) (VideoRecord, bool) {
	rec, ok := c.byID[id]
	return rec, ok
}

// Put replaces the stored record for rec.ID without merging.
func (c *Corpus) Put(rec VideoRecord) {
	if rec.ID == "" {
		return
	}
	if _, ok := c.byID[rec.ID]; !ok {
		c.order = append(c.order, rec.ID)
	}
	c.byID[rec.ID] = rec
}

func (c *Corpus) Len() int {
	return len(c.order)
}

// Records returns all records newest first (missing timestamps last).
func (c *Corpus) Records() []VideoRecord {
	out := make([]VideoRecord, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	SortByTimestamp(out)
	return out
}

// Reconcile merges a fresh crawl with a previously persisted record set. Fresh
// records are primary, so anything captured on a prior run (audio paths,
// transcripts, captions) survives even when the latest crawl returns less
// data; records present only in the prior set are retained unchanged.
func Reconcile(fresh, prior []VideoRecord) *Corpus {
	c := NewCorpus()
	c.AddAll(fresh)
	c.AddAll(prior)
	return c
}
