// Package catalog holds the read-only service catalog shown to site visitors.
//
// The catalog is a JSON document (an array of service records) validated
// against an embedded JSON Schema before it is accepted. A default catalog is
// embedded in the binary; operators may supply their own file instead. Once
// loaded, a Store never changes, so it is safe to share across goroutines
// without locking.
package catalog

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/tbourn/site-backend/internal/domain"
)

//go:embed data/services.json data/schema.json
var dataFS embed.FS

var (
	// ErrNotFound is returned by Get for an unknown service identifier.
	ErrNotFound = errors.New("service not found")

	// ErrInvalidCatalog wraps schema and consistency violations found by Load.
	ErrInvalidCatalog = errors.New("invalid catalog")
)

var compileSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	raw, err := dataFS.ReadFile("data/schema.json")
	if err != nil {
		return nil, err
	}
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
})

// Store is an immutable, insertion-ordered set of service records.
type Store struct {
	records []domain.ServiceRecord
	index   map[string]int
}

// Default loads the catalog embedded in the binary.
func Default() (*Store, error) {
	raw, err := dataFS.ReadFile("data/services.json")
	if err != nil {
		return nil, err
	}
	return Load(raw)
}

// LoadFile reads and validates a catalog document from disk.
func LoadFile(path string) (*Store, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Load(raw)
}

// Load validates data against the catalog schema and builds a Store that
// preserves the document order. Duplicate identifiers are rejected.
func Load(data []byte) (*Store, error) {
	schema, err := compileSchema()
	if err != nil {
		return nil, fmt.Errorf("compile catalog schema: %w", err)
	}
	res, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidCatalog, strings.Join(msgs, "; "))
	}

	var records []domain.ServiceRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	s := &Store{
		records: make([]domain.ServiceRecord, 0, len(records)),
		index:   make(map[string]int, len(records)),
	}
	for _, r := range records {
		if _, dup := s.index[r.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate service id %q", ErrInvalidCatalog, r.ID)
		}
		if r.Images == nil {
			r.Images = []string{}
		}
		if r.Reviews == nil {
			r.Reviews = []domain.Review{}
		}
		s.index[r.ID] = len(s.records)
		s.records = append(s.records, r)
	}
	return s, nil
}

// Len returns the number of catalog entries.
func (s *Store) Len() int { return len(s.records) }

// ListSummaries returns every entry's summary in catalog order.
func (s *Store) ListSummaries() []domain.ServiceSummary {
	out := make([]domain.ServiceSummary, len(s.records))
	for i, r := range s.records {
		out[i] = r.Summary()
	}
	return out
}

// Get returns a copy of the full record for id, or ErrNotFound.
func (s *Store) Get(id string) (domain.ServiceRecord, error) {
	i, ok := s.index[id]
	if !ok {
		return domain.ServiceRecord{}, ErrNotFound
	}
	r := s.records[i]
	r.Images = append([]string(nil), r.Images...)
	r.Reviews = append([]domain.Review(nil), r.Reviews...)
	if r.Images == nil {
		r.Images = []string{}
	}
	if r.Reviews == nil {
		r.Reviews = []domain.Review{}
	}
	return r, nil
}
