package server

import (
	"mime"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tbd54566975/did-resolution-conformance/pkg/binding"
	"github.com/tbd54566975/did-resolution-conformance/pkg/corpus"
	"github.com/tbd54566975/did-resolution-conformance/pkg/result"
	"github.com/tbd54566975/did-resolution-conformance/pkg/server/framework"
)

// supportedMethods are the DID methods the reference resolver resolves.
var supportedMethods = map[string]bool{"example": true, "key": true}

// Fault makes the resolver break specific rules of the binding so the harness can be shown to catch them.
type Fault struct {
	// WrongErrorStatus answers every error with 500.
	WrongErrorStatus bool
	// DocumentOnError puts a non-null document into error results.
	DocumentOnError bool
	// MetadataOnError puts properties into the document metadata of error results.
	MetadataOnError bool
	// UnknownErrorType spells error types as something outside the known kinds.
	UnknownErrorType bool
	// OmitContentType leaves contentType out of successful result metadata.
	OmitContentType bool
	// RedirectBody sends a body along with 303 redirects.
	RedirectBody bool
	// IgnoreParameters accepts any DID parameter value.
	IgnoreParameters bool
	// WrongDocumentID resolves to a document whose id is not the requested DID.
	WrongDocumentID bool
	// UnstableDocument changes the resolved document on every request.
	UnstableDocument bool
}

// Request is one GET of the binding after the path has been decoded.
type Request struct {
	// Input is the DID or DID URL taken from the request path.
	Input   string
	Options url.Values
	Accept  string
}

// Answer is what the handler writes back. A nil Body sends an empty body.
type Answer struct {
	Status      int
	ContentType string
	Location    string
	Body        any
}

// didURL is a DID URL split into its DID and the parts following it.
type didURL struct {
	DID      string
	Method   string
	Path     string
	Query    string
	Fragment string
}

func (u didURL) isURL() bool {
	return u.Path != "" || u.Query != "" || u.Fragment != ""
}

func parseDIDURL(input string) didURL {
	var u didURL
	rest := input
	if i := strings.IndexByte(rest, '#'); i >= 0 {
		u.Fragment = rest[i+1:]
		rest = rest[:i]
	}
	if i := strings.IndexByte(rest, '?'); i >= 0 {
		u.Query = rest[i+1:]
		rest = rest[:i]
	}
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		u.Path = rest[i:]
		rest = rest[:i]
	}
	u.DID = rest
	if parts := strings.SplitN(rest, ":", 3); len(parts) == 3 {
		u.Method = parts[1]
	}
	return u
}

// Resolver implements DID resolution and dereferencing over a Registry.
type Resolver struct {
	registry *Registry
	fault    Fault
	fallback bool
	answers  atomic.Int64
}

type Option func(*Resolver)

func WithFault(f Fault) Option {
	return func(r *Resolver) {
		r.fault = f
	}
}

// WithRepresentationFallback answers unsupported Accept media types with did+json instead of 406.
func WithRepresentationFallback(allow bool) Option {
	return func(r *Resolver) {
		r.fallback = allow
	}
}

func NewResolver(registry *Registry, opts ...Option) *Resolver {
	r := &Resolver{registry: registry}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Answer resolves or dereferences req. Dereferencing applies when the input is a DID URL or the client asked for
// a dereferencing result.
func (r *Resolver) Answer(req Request) Answer {
	u := parseDIDURL(req.Input)
	mediaType, supported := negotiate(req.Accept)
	dereferencing := u.isURL() || mediaType == binding.MediaTypeDIDURLDereferencing

	if req.Input == "" {
		return r.fail(dereferencing, result.InvalidDID, "the did input is required")
	}
	if !corpus.IsDID(u.DID) {
		return r.fail(dereferencing, result.InvalidDID, "not a conformant DID: "+u.DID)
	}
	if u.isURL() && !corpus.IsDIDURL(req.Input) {
		return r.fail(dereferencing, result.InvalidDIDURL, "not a conformant DID URL")
	}

	options, err := mergeOptions(u.Query, req.Options)
	if err != nil {
		return r.fail(dereferencing, result.InvalidDIDURL, err.Error())
	}
	if !r.fault.IgnoreParameters {
		if err = validateOptions(options); err != nil {
			detail := err.Error()
			if safe, ok := framework.AsSafeError(err); ok {
				detail = safe.Errors()
			}
			return r.fail(dereferencing, result.InvalidOptions, detail)
		}
	}

	if !supportedMethods[u.Method] {
		return r.fail(dereferencing, result.MethodNotSupported, "method "+u.Method+" is not supported")
	}
	if !supported {
		if !r.fallback {
			return r.fail(dereferencing, result.RepresentationNotSupported, "unsupported representation: "+req.Accept)
		}
		mediaType = binding.MediaTypeDIDJSON
	}

	record, found := r.registry.Get(u.DID)
	if !found || !record.matchesVersion(options) {
		return r.fail(dereferencing, result.NotFound, "no such DID or version: "+u.DID)
	}
	if record.Deactivated {
		return r.deactivated(record)
	}

	if selected, ok := selectsService(options); ok {
		return r.redirect(record, u.DID, selected, options.Get(corpus.ParamRelativeRef), dereferencing)
	}

	if !dereferencing {
		return r.resolved(record, mediaType)
	}
	if u.Path != "" {
		return r.fail(true, result.FeatureNotSupported, "DID URL paths are not supported")
	}
	content := any(record.Document)
	contentMetadata := record.Metadata()
	if u.Fragment != "" {
		resource, ok := findResource(record.Document, u.DID, u.Fragment)
		if !ok {
			return r.fail(true, result.NotFound, "no resource with fragment #"+u.Fragment)
		}
		content = resource
		contentMetadata = map[string]any{}
	}
	return r.dereferenced(content, contentMetadata, mediaType)
}

// negotiate picks the first supported media type of an Accept header. An absent or wildcard Accept asks for a
// resolution result.
func negotiate(accept string) (string, bool) {
	if strings.TrimSpace(accept) == "" {
		return binding.MediaTypeDIDResolution, true
	}
	for _, part := range strings.Split(accept, ",") {
		mediaType := strings.ToLower(binding.BaseMediaType(part))
		switch mediaType {
		case "*/*", "application/*":
			return binding.MediaTypeDIDResolution, true
		case binding.MediaTypeDIDResolution, binding.MediaTypeDIDURLDereferencing, binding.MediaTypeDIDJSON,
			binding.MediaTypeDIDLDJSON, binding.MediaTypeJSON:
			return mediaType, true
		}
	}
	return "", false
}

// mergeOptions combines the query of the DID URL with the options sent as HTTP query parameters.
func mergeOptions(didURLQuery string, httpOptions url.Values) (url.Values, error) {
	options := url.Values{}
	if didURLQuery != "" {
		parsed, err := url.ParseQuery(didURLQuery)
		if err != nil {
			return nil, err
		}
		for k, v := range parsed {
			options[k] = append(options[k], v...)
		}
	}
	for k, v := range httpOptions {
		options[k] = append(options[k], v...)
	}
	return options, nil
}

// validateOptions checks each DID parameter value against its rules, reporting every offending field at once.
func validateOptions(options url.Values) error {
	names := make([]string, 0, len(options))
	for name := range options {
		names = append(names, name)
	}
	sort.Strings(names)

	var fields []framework.FieldError
	for _, name := range names {
		for _, value := range options[name] {
			if rule, ok := checkOption(name, value); !ok {
				fields = append(fields, framework.FieldError{Field: name, Error: string(rule)})
			}
		}
	}
	if len(fields) > 0 {
		return framework.NewFieldErrors("invalid options", http.StatusBadRequest, fields)
	}
	return nil
}

func checkOption(name, value string) (corpus.Rule, bool) {
	switch name {
	case corpus.ParamAccept:
		if !corpus.IsASCII(value) {
			return corpus.RuleMediaType, false
		}
		if mt, _, err := mime.ParseMediaType(value); err != nil || !strings.Contains(mt, "/") {
			return corpus.RuleMediaType, false
		}
	case corpus.ParamService, corpus.ParamServiceType, corpus.ParamVersionID, corpus.ParamHashLink:
		if !corpus.IsASCII(value) {
			return corpus.RuleASCII, false
		}
	case corpus.ParamRelativeRef:
		if !corpus.IsASCII(value) {
			return corpus.RuleASCII, false
		}
		if !corpus.IsPercentEncoded(value) {
			return corpus.RulePercentEncoding, false
		}
	case corpus.ParamVersionTime:
		if !corpus.IsASCII(value) {
			return corpus.RuleASCII, false
		}
		if !corpus.IsXMLDateTime(value) {
			return corpus.RuleXMLDateTime, false
		}
		if !corpus.IsNormalizedVersionTime(value) {
			return corpus.RuleNormalizedDateTime, false
		}
	}
	return "", true
}

// matchesVersion is false when versionId or versionTime ask for a version the record does not have.
func (r Record) matchesVersion(options url.Values) bool {
	if id := options.Get(corpus.ParamVersionID); id != "" && id != r.VersionID {
		return false
	}
	if at := options.Get(corpus.ParamVersionTime); at != "" {
		t, err := time.Parse(time.RFC3339, at)
		if err != nil || t.Before(r.Created) {
			return false
		}
	}
	return true
}

type serviceSelector struct {
	id          string
	serviceType string
}

func selectsService(options url.Values) (serviceSelector, bool) {
	s := serviceSelector{id: options.Get(corpus.ParamService), serviceType: options.Get(corpus.ParamServiceType)}
	return s, s.id != "" || s.serviceType != ""
}

func (s serviceSelector) matches(did string, service map[string]any) bool {
	if s.id != "" {
		id, _ := service["id"].(string)
		if id != s.id && id != "#"+s.id && id != did+"#"+s.id {
			return false
		}
	}
	if s.serviceType != "" && !hasType(service["type"], s.serviceType) {
		return false
	}
	return true
}

func hasType(v any, want string) bool {
	switch t := v.(type) {
	case string:
		return t == want
	case []any:
		for _, e := range t {
			if s, ok := e.(string); ok && s == want {
				return true
			}
		}
	}
	return false
}

// serviceEndpoint returns the first URL of a service endpoint value.
func serviceEndpoint(v any) (string, bool) {
	switch e := v.(type) {
	case string:
		return e, e != ""
	case []any:
		for _, item := range e {
			if s, ok := item.(string); ok && s != "" {
				return s, true
			}
		}
	}
	return "", false
}

func services(doc map[string]any) []map[string]any {
	list, _ := doc["service"].([]any)
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if s, ok := item.(map[string]any); ok {
			out = append(out, s)
		}
	}
	return out
}

// findResource looks up the verification method or service a fragment names.
func findResource(doc map[string]any, did, fragment string) (map[string]any, bool) {
	for _, key := range []string{"verificationMethod", "service"} {
		list, _ := doc[key].([]any)
		for _, item := range list {
			resource, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if id, _ := resource["id"].(string); id == "#"+fragment || id == did+"#"+fragment {
				return resource, true
			}
		}
	}
	return nil, false
}

func (r *Resolver) redirect(record Record, did string, selector serviceSelector, relativeRef string, dereferencing bool) Answer {
	for _, service := range services(record.Document) {
		if !selector.matches(did, service) {
			continue
		}
		endpoint, ok := serviceEndpoint(service["serviceEndpoint"])
		if !ok {
			continue
		}
		if relativeRef != "" {
			endpoint = strings.TrimSuffix(endpoint, "/") + "/" + strings.TrimPrefix(relativeRef, "/")
		}
		answer := Answer{Status: result.StatusServiceRedirect, Location: endpoint}
		if r.fault.RedirectBody {
			answer.ContentType = binding.MediaTypeURIList
			answer.Body = []string{endpoint}
		}
		return answer
	}
	return r.fail(dereferencing, result.NotFound, "no service matches the selection")
}

func (r *Resolver) resolved(record Record, mediaType string) Answer {
	document := r.document(record)
	switch mediaType {
	case binding.MediaTypeDIDJSON, binding.MediaTypeDIDLDJSON, binding.MediaTypeJSON:
		return Answer{Status: http.StatusOK, ContentType: mediaType, Body: document}
	}
	metadata := map[string]any{"retrieved": time.Now().UTC().Format(time.RFC3339)}
	if !r.fault.OmitContentType {
		metadata[result.FieldContentType] = binding.MediaTypeDIDResolution
	}
	return Answer{
		Status:      http.StatusOK,
		ContentType: binding.MediaTypeDIDResolution,
		Body: map[string]any{
			result.FieldResolutionMetadata: metadata,
			result.FieldDocument:           document,
			result.FieldDocumentMetadata:   record.Metadata(),
		},
	}
}

// document is the resolved document of record with any document fault applied to a copy.
func (r *Resolver) document(record Record) map[string]any {
	if !r.fault.WrongDocumentID && !r.fault.UnstableDocument {
		return record.Document
	}
	document := make(map[string]any, len(record.Document)+1)
	for k, v := range record.Document {
		document[k] = v
	}
	if r.fault.WrongDocumentID {
		id, _ := document["id"].(string)
		document["id"] = id + "-other"
	}
	if r.fault.UnstableDocument {
		document["alsoKnownAs"] = []any{"urn:answer:" + strconv.FormatInt(r.answers.Add(1), 10)}
	}
	return document
}

func (r *Resolver) dereferenced(content any, contentMetadata map[string]any, mediaType string) Answer {
	if mediaType != binding.MediaTypeDIDURLDereferencing && mediaType != binding.MediaTypeDIDResolution {
		return Answer{Status: http.StatusOK, ContentType: mediaType, Body: content}
	}
	metadata := map[string]any{}
	if !r.fault.OmitContentType {
		metadata[result.FieldContentType] = binding.MediaTypeDIDURLDereferencing
	}
	return Answer{
		Status:      http.StatusOK,
		ContentType: binding.MediaTypeDIDURLDereferencing,
		Body: map[string]any{
			result.FieldDereferencingMetadata: metadata,
			result.FieldContentStream:         content,
			result.FieldContentMetadata:       contentMetadata,
		},
	}
}

func (r *Resolver) deactivated(record Record) Answer {
	return Answer{
		Status:      result.StatusDeactivated,
		ContentType: binding.MediaTypeDIDResolution,
		Body: map[string]any{
			result.FieldResolutionMetadata: map[string]any{result.FieldContentType: binding.MediaTypeDIDResolution},
			result.FieldDocument:           record.Document,
			result.FieldDocumentMetadata:   record.Metadata(),
		},
	}
}

// fail answers an error result of the given kind at its binding status.
func (r *Resolver) fail(dereferencing bool, kind result.ErrorKind, detail string) Answer {
	status := kind.HTTPStatus()
	if r.fault.WrongErrorStatus {
		status = http.StatusInternalServerError
	}
	errorType := kind.URI()
	if r.fault.UnknownErrorType {
		errorType = "SOMETHING_WENT_WRONG"
	}
	descriptor := map[string]any{"type": errorType, "title": kind.String(), "detail": detail}

	var document any
	if r.fault.DocumentOnError {
		document = map[string]any{"id": "did:example:error"}
	}
	documentMetadata := map[string]any{}
	if r.fault.MetadataOnError {
		documentMetadata["error"] = kind.String()
	}

	if dereferencing {
		return Answer{
			Status:      status,
			ContentType: binding.MediaTypeDIDURLDereferencing,
			Body: map[string]any{
				result.FieldDereferencingMetadata: map[string]any{result.FieldError: descriptor},
				result.FieldContentStream:         document,
				result.FieldContentMetadata:       documentMetadata,
			},
		}
	}
	return Answer{
		Status:      status,
		ContentType: binding.MediaTypeDIDResolution,
		Body: map[string]any{
			result.FieldResolutionMetadata: map[string]any{result.FieldError: descriptor},
			result.FieldDocument:           document,
			result.FieldDocumentMetadata:   documentMetadata,
		},
	}
}
