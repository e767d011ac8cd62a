// Package store defines the remote document store capability the sync
// layer is written against. The backing implementation (mongostore in
// production, testutil.FakeStore in tests) owns delivery of snapshots;
// this package only fixes the contract.
package store

import "context"

// Document is the raw, schemaless shape of a remote document.
type Document map[string]any

// Doc is a materialized document from a snapshot or point read.
type Doc struct {
	ID   string // last path segment (the remote document key)
	Path string // full document path, e.g. "profiles/abc123"
	Data Document
}

// Unsubscribe cancels delivery of further snapshots for a subscription.
// Safe to call more than once.
type Unsubscribe func()

// CollectionHandler receives the full current contents of a subscribed
// collection. It is re-invoked on every change.
type CollectionHandler func(docs []Doc)

// DocumentHandler receives the current state of a subscribed document.
// exists is false when the document is absent.
type DocumentHandler func(doc Doc, exists bool)

// DocumentStore is the minimal surface the sync layer needs from a
// network-backed document database.
//
// Paths are slash-separated: an even number of segments addresses a
// document, an odd number addresses a collection. The layout used by
// this application is fixed for compatibility:
//
//	profiles/{uid}
//	teams/{teamId}
//	teams/{teamId}/messages/{id}
//	teamMembers/{teamId}/members/{uid|email}
//	invitations/{email}/teams/{teamId}
//	messages/{uid}/messages/{id}
//	trashDrops/{id}
//	towns/{id}
type DocumentStore interface {
	// SubscribeToCollection starts a live subscription. The handler is
	// invoked with the current contents immediately and again after
	// every change until the returned Unsubscribe is called.
	SubscribeToCollection(path string, fn CollectionHandler) (Unsubscribe, error)

	// SubscribeToDocument starts a live subscription to a single document.
	SubscribeToDocument(path string, fn DocumentHandler) (Unsubscribe, error)

	// GetDocument performs a point read. ok is false when the document
	// does not exist; that is not an error.
	GetDocument(ctx context.Context, path string) (doc Doc, ok bool, err error)

	// SetDocument writes the full document, creating it if absent.
	SetDocument(ctx context.Context, path string, data Document) error

	// UpdateDocument merges the given top-level fields into an existing
	// document. It fails with ErrNotFound if the document is absent.
	UpdateDocument(ctx context.Context, path string, data Document) error

	// DeleteDocument removes a document and anything stored beneath it.
	DeleteDocument(ctx context.Context, path string) error

	// AddDocument writes a new document with a generated id into the
	// collection and returns the id.
	AddDocument(ctx context.Context, collectionPath string, data Document) (string, error)
}
