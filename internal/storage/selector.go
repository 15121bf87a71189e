package storage

import (
	"strings"

	"github.com/fruitsalade/attachments/internal/binding"
)

// Kind identifies a backend implementation.
type Kind string

const (
	KindS3         Kind = "s3"
	KindAzure      Kind = "azure"
	KindGCS        Kind = "gcs"
	KindFilesystem Kind = "local"
	KindMock       Kind = "mock"
)

// Credential keys inspected by Classify.
const (
	credHost           = "host"
	credContainerURI   = "container_uri"
	credGCPPrivateKey  = "base64EncodedPrivateKeyData"
	credFilesystemRoot = "root_path"
)

// Classify maps one binding to a backend kind by the shape of its
// credentials. Checks run in a fixed order and the first match wins:
//
//  1. host contains "aws"                        -> s3
//  2. container_uri contains "azure" or
//     ".blob.core.windows.net"                  -> azure
//  3. base64EncodedPrivateKeyData is present     -> gcs
//  4. root_path is present                       -> local
//
// Anything else is KindMock.
//
// The substring checks on host and container_uri are kept for compatibility
// with existing bindings; custom endpoints that lack the vendor name will not
// be recognized.
func Classify(b binding.Binding) Kind {
	switch {
	case strings.Contains(strings.ToLower(b.String(credHost)), "aws"):
		return KindS3
	case isAzureURI(b.String(credContainerURI)):
		return KindAzure
	case b.Has(credGCPPrivateKey):
		return KindGCS
	case b.Has(credFilesystemRoot):
		return KindFilesystem
	}
	return KindMock
}

// Selection is the outcome of backend selection.
type Selection struct {
	Kind    Kind
	Binding binding.Binding
	// Warning is set when the mock backend was chosen because nothing matched.
	Warning string
}

// Select picks the first binding that classifies to a real backend.
func Select(bindings []binding.Binding) Selection {
	if len(bindings) == 0 {
		return Selection{Kind: KindMock, Warning: "no credential bindings found, using mock storage backend"}
	}
	for _, b := range bindings {
		if k := Classify(b); k != KindMock {
			return Selection{Kind: k, Binding: b}
		}
	}
	return Selection{Kind: KindMock, Warning: "no credential binding matched a storage backend, using mock storage backend"}
}

func isAzureURI(uri string) bool {
	uri = strings.ToLower(uri)
	return strings.Contains(uri, "azure") || strings.Contains(uri, ".blob.core.windows.net")
}
