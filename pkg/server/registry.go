package server

import (
	"sync"
	"time"

	"github.com/TBD54566975/ssi-sdk/crypto"
	"github.com/TBD54566975/ssi-sdk/did/key"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/tbd54566975/did-resolution-conformance/pkg/result"
)

// Seeded DIDs.
const (
	ExampleDID            = "did:example:123"
	DeactivatedExampleDID = "did:example:deactivated"
	ExampleServiceID      = "linkedDomain"
	ExampleServiceType    = "LinkedDomain"
	ExampleServiceURL     = "https://example.com"
	ExampleKeyID          = "key-1"

	initialVersionID = "1"
)

// seedTime is when every seeded DID was created.
var seedTime = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

// Record is one DID known to the reference resolver.
type Record struct {
	Document    map[string]any
	Deactivated bool
	VersionID   string
	Created     time.Time
	Updated     time.Time
}

// Metadata is the didDocumentMetadata of the record.
func (r Record) Metadata() map[string]any {
	meta := map[string]any{
		"created":   r.Created.UTC().Format(time.RFC3339),
		"updated":   r.Updated.UTC().Format(time.RFC3339),
		"versionId": r.VersionID,
	}
	if r.Deactivated {
		meta["deactivated"] = true
	}
	return meta
}

// Registry holds the DIDs the reference resolver answers for.
type Registry struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewRegistry() *Registry {
	return &Registry{records: make(map[string]Record)}
}

func (r *Registry) Put(did string, record Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[did] = record
}

func (r *Registry) Get(did string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.records[did]
	return record, ok
}

// SeededRegistry holds the example DIDs plus a freshly generated did:key, whose DID is returned.
func SeededRegistry() (*Registry, string, error) {
	registry := NewRegistry()
	registry.Put(ExampleDID, Record{Document: exampleDocument(ExampleDID, true), VersionID: initialVersionID, Created: seedTime, Updated: seedTime})
	registry.Put(DeactivatedExampleDID, Record{Document: exampleDocument(DeactivatedExampleDID, false), Deactivated: true,
		VersionID: "2", Created: seedTime, Updated: seedTime.Add(24 * time.Hour)})

	keyDID, doc, err := generateKeyDocument()
	if err != nil {
		return nil, "", err
	}
	registry.Put(keyDID, Record{Document: doc, VersionID: initialVersionID, Created: seedTime, Updated: seedTime})
	return registry, keyDID, nil
}

func exampleDocument(did string, withService bool) map[string]any {
	keyID := did + "#" + ExampleKeyID
	doc := map[string]any{
		"@context": []any{result.DIDContextV1},
		"id":       did,
		"verificationMethod": []any{map[string]any{
			"id":                 keyID,
			"type":               "Multikey",
			"controller":         did,
			"publicKeyMultibase": "z6MkhaXgBZDvotDkL5257faiztiGiC2QtKLGpbnnEGta2doK",
		}},
		"authentication":  []any{keyID},
		"assertionMethod": []any{keyID},
	}
	if withService {
		doc["service"] = []any{map[string]any{
			"id":              did + "#" + ExampleServiceID,
			"type":            ExampleServiceType,
			"serviceEndpoint": ExampleServiceURL,
		}}
	}
	return doc
}

// generateKeyDocument creates an Ed25519 did:key and its expanded document as generic JSON.
func generateKeyDocument() (string, map[string]any, error) {
	_, didKey, err := key.GenerateDIDKey(crypto.Ed25519)
	if err != nil {
		return "", nil, errors.Wrap(err, "generating did:key")
	}
	expanded, err := didKey.Expand()
	if err != nil {
		return "", nil, errors.Wrap(err, "expanding did:key document")
	}
	docBytes, err := json.Marshal(expanded)
	if err != nil {
		return "", nil, errors.Wrap(err, "marshalling did:key document")
	}
	var doc map[string]any
	if err = json.Unmarshal(docBytes, &doc); err != nil {
		return "", nil, errors.Wrap(err, "unmarshalling did:key document")
	}
	if _, ok := doc["@context"]; !ok {
		doc["@context"] = []any{result.DIDContextV1}
	}
	return didKey.String(), doc, nil
}
