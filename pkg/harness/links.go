package harness

import (
	"github.com/tbd54566975/did-resolution-conformance/pkg/binding"
)

const (
	specBase     = "https://w3c.github.io/did-resolution/"
	linkBindings = specBase + "#bindings-https"
)

// textLink is a permalink to the given sentence of the normative text.
func textLink(sentence string) string {
	return specBase + "#types:~:text=" + binding.EncodeComponent(sentence)
}

var (
	linkImplementsResolution = textLink("All conformant DID resolvers MUST implement the DID resolution function for at least one DID method and MUST be able to return a DID document in at least one conformant representation.")
	linkResolutionMetadata   = textLink("A metadata structure consisting of values relating to the results of the DID resolution process. This structure is REQUIRED")
	linkConformantDocument   = textLink("If the resolution is successful, this MUST be a DID document that is capable of being represented in one of the conformant representations of the Decentralized Identifiers (DIDs) v1.0 specification.")
	linkDIDRequired          = textLink("This is the DID to resolve. This input is REQUIRED")
	linkConformantDID        = textLink("The input parameter did is REQUIRED and the value MUST be a conformant DID as defined in Decentralized Identifiers (DIDs) v1.0.")
	linkMediaTypeASCII       = textLink("The Media Type MUST be expressed as an ASCII string.")

	linkService         = textLink("Identifies a service from the DID document by service ID. If present, the associated value MUST be an ASCII string.")
	linkServiceType     = textLink("Identifies a set of one or more services from the DID document by service type. If present, the associated value MUST be an ASCII string.")
	linkRelativeRef     = textLink("If present, the associated value MUST be an ASCII string and MUST use percent-encoding for certain characters as specified in RFC3986 Section 2.1.")
	linkVersionID       = textLink("Identifies a specific version of a DID document to be resolved (the version ID could be sequential, or a UUID, or method-specific). If present, the associated value MUST be an ASCII string.")
	linkVersionTime     = textLink("versionTime. If present, the associated value MUST be an ASCII string")
	linkXMLDateTime     = textLink("If present, the associated value MUST be an ASCII string which is a valid XML datetime value, as defined in section 3.3.7 of W3C XML Schema Definition Language (XSD) 1.1 Part 2: Datatypes")
	linkNormalizedTime  = textLink("This datetime value MUST be normalized to UTC 00:00:00 and without sub-second decimal precision.")
	linkHashLink        = textLink("A resource hash of the DID document to add integrity protection, as specified in [HASHLINK]. This parameter is non-normative. If present, the associated value MUST be an ASCII string.")
)
