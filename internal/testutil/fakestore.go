// Package testutil provides the fake remote document store and fixture
// helpers used by the sync layer's tests.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dalemusser/greencrew/internal/app/store"
)

// WriteOp records one write observed by the fake store.
type WriteOp struct {
	Op   string // "set" | "update" | "delete" | "add"
	Path string
	Data store.Document
}

// FakeStore is an in-memory store.DocumentStore with synchronous snapshot
// delivery: subscriptions receive the current contents during Subscribe,
// and again immediately after every write that touches them. Tests can
// script failures per (op, path) and inspect the ordered write log.
type FakeStore struct {
	mu       sync.Mutex
	docs     map[string]store.Document
	collSubs map[string]map[int]store.CollectionHandler
	docSubs  map[string]map[int]store.DocumentHandler
	nextSub  int
	nextID   int
	writes   []WriteOp
	failures map[string]error
}

// NewFakeStore creates an empty fake store.
func NewFakeStore() *FakeStore {
	return &FakeStore{
		docs:     make(map[string]store.Document),
		collSubs: make(map[string]map[int]store.CollectionHandler),
		docSubs:  make(map[string]map[int]store.DocumentHandler),
		failures: make(map[string]error),
	}
}

/* ───────────────────────── test controls ───────────────────────── */

// Seed inserts a document without recording a write or firing handlers.
func (f *FakeStore) Seed(path string, data store.Document) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[path] = cloneDoc(data)
}

// Fail makes every subsequent op ("set", "update", "delete", "add",
// "get") on path return err. Pass nil to clear.
func (f *FakeStore) Fail(op, path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := op + " " + path
	if err == nil {
		delete(f.failures, key)
		return
	}
	f.failures[key] = err
}

// Writes returns a copy of the ordered write log.
func (f *FakeStore) Writes() []WriteOp {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]WriteOp, len(f.writes))
	copy(out, f.writes)
	return out
}

// WritesTo returns the ops recorded against an exact path, in order.
func (f *FakeStore) WritesTo(path string) []WriteOp {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []WriteOp
	for _, w := range f.writes {
		if w.Path == path {
			out = append(out, w)
		}
	}
	return out
}

// Doc returns the current contents of a document.
func (f *FakeStore) Doc(path string) (store.Document, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[path]
	if !ok {
		return nil, false
	}
	return cloneDoc(d), true
}

// FireDocument re-delivers the current state of a document to its
// subscribers, simulating a remote change notification.
func (f *FakeStore) FireDocument(path string) {
	f.notifyDoc(path)
}

// FireCollection re-delivers a collection snapshot to its subscribers.
func (f *FakeStore) FireCollection(path string) {
	f.notifyCollection(path)
}

/* ───────────────────────── DocumentStore ───────────────────────── */

func (f *FakeStore) SubscribeToCollection(path string, fn store.CollectionHandler) (store.Unsubscribe, error) {
	f.mu.Lock()
	if err := f.failures["subscribe "+path]; err != nil {
		f.mu.Unlock()
		return nil, err
	}
	id := f.nextSub
	f.nextSub++
	if f.collSubs[path] == nil {
		f.collSubs[path] = make(map[int]store.CollectionHandler)
	}
	f.collSubs[path][id] = fn
	snapshot := f.collectionLocked(path)
	f.mu.Unlock()

	fn(snapshot)

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.collSubs[path], id)
	}, nil
}

func (f *FakeStore) SubscribeToDocument(path string, fn store.DocumentHandler) (store.Unsubscribe, error) {
	f.mu.Lock()
	if err := f.failures["subscribe "+path]; err != nil {
		f.mu.Unlock()
		return nil, err
	}
	id := f.nextSub
	f.nextSub++
	if f.docSubs[path] == nil {
		f.docSubs[path] = make(map[int]store.DocumentHandler)
	}
	f.docSubs[path][id] = fn
	data, exists := f.docs[path]
	doc := store.Doc{ID: lastSegment(path), Path: path, Data: cloneDoc(data)}
	f.mu.Unlock()

	fn(doc, exists)

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.docSubs[path], id)
	}, nil
}

func (f *FakeStore) GetDocument(_ context.Context, path string) (store.Doc, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failures["get "+path]; err != nil {
		return store.Doc{}, false, err
	}
	data, ok := f.docs[path]
	if !ok {
		return store.Doc{}, false, nil
	}
	return store.Doc{ID: lastSegment(path), Path: path, Data: cloneDoc(data)}, true, nil
}

func (f *FakeStore) SetDocument(_ context.Context, path string, data store.Document) error {
	f.mu.Lock()
	if err := f.failures["set "+path]; err != nil {
		f.mu.Unlock()
		return err
	}
	f.docs[path] = cloneDoc(data)
	f.writes = append(f.writes, WriteOp{Op: "set", Path: path, Data: cloneDoc(data)})
	f.mu.Unlock()

	f.notifyDoc(path)
	f.notifyCollection(parentPath(path))
	return nil
}

func (f *FakeStore) UpdateDocument(_ context.Context, path string, data store.Document) error {
	f.mu.Lock()
	if err := f.failures["update "+path]; err != nil {
		f.mu.Unlock()
		return err
	}
	existing, ok := f.docs[path]
	if !ok {
		f.mu.Unlock()
		return store.ErrNotFound
	}
	merged := cloneDoc(existing)
	for k, v := range data {
		merged[k] = v
	}
	f.docs[path] = merged
	f.writes = append(f.writes, WriteOp{Op: "update", Path: path, Data: cloneDoc(data)})
	f.mu.Unlock()

	f.notifyDoc(path)
	f.notifyCollection(parentPath(path))
	return nil
}

func (f *FakeStore) DeleteDocument(_ context.Context, path string) error {
	f.mu.Lock()
	if err := f.failures["delete "+path]; err != nil {
		f.mu.Unlock()
		return err
	}
	delete(f.docs, path)
	prefix := path + "/"
	var touched []string
	for p := range f.docs {
		if strings.HasPrefix(p, prefix) {
			delete(f.docs, p)
			touched = append(touched, parentPath(p))
		}
	}
	f.writes = append(f.writes, WriteOp{Op: "delete", Path: path})
	f.mu.Unlock()

	f.notifyDoc(path)
	f.notifyCollection(parentPath(path))
	seen := map[string]bool{parentPath(path): true}
	for _, coll := range touched {
		if !seen[coll] {
			seen[coll] = true
			f.notifyCollection(coll)
		}
	}
	return nil
}

func (f *FakeStore) AddDocument(ctx context.Context, collectionPath string, data store.Document) (string, error) {
	f.mu.Lock()
	if err := f.failures["add "+collectionPath]; err != nil {
		f.mu.Unlock()
		return "", err
	}
	f.nextID++
	id := fmt.Sprintf("gen-%d", f.nextID)
	f.mu.Unlock()

	if err := f.SetDocument(ctx, collectionPath+"/"+id, data); err != nil {
		return "", err
	}
	f.mu.Lock()
	// Rewrite the log entry so callers see the add as an add.
	f.writes[len(f.writes)-1].Op = "add"
	f.mu.Unlock()
	return id, nil
}

/* ───────────────────────── internals ───────────────────────── */

func (f *FakeStore) collectionLocked(path string) []store.Doc {
	prefix := path + "/"
	var docs []store.Doc
	for p, data := range f.docs {
		if strings.HasPrefix(p, prefix) && !strings.Contains(p[len(prefix):], "/") {
			docs = append(docs, store.Doc{ID: lastSegment(p), Path: p, Data: cloneDoc(data)})
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs
}

func (f *FakeStore) notifyCollection(path string) {
	f.mu.Lock()
	handlers := make([]store.CollectionHandler, 0, len(f.collSubs[path]))
	for _, fn := range f.collSubs[path] {
		handlers = append(handlers, fn)
	}
	snapshot := f.collectionLocked(path)
	f.mu.Unlock()

	for _, fn := range handlers {
		fn(snapshot)
	}
}

func (f *FakeStore) notifyDoc(path string) {
	f.mu.Lock()
	handlers := make([]store.DocumentHandler, 0, len(f.docSubs[path]))
	for _, fn := range f.docSubs[path] {
		handlers = append(handlers, fn)
	}
	data, exists := f.docs[path]
	doc := store.Doc{ID: lastSegment(path), Path: path, Data: cloneDoc(data)}
	f.mu.Unlock()

	for _, fn := range handlers {
		fn(doc, exists)
	}
}

func cloneDoc(d store.Document) store.Document {
	if d == nil {
		return nil
	}
	out := make(store.Document, len(d))
	for k, v := range d {
		switch val := v.(type) {
		case store.Document:
			out[k] = cloneDoc(val)
		case map[string]any:
			out[k] = map[string]any(cloneDoc(store.Document(val)))
		default:
			out[k] = v
		}
	}
	return out
}

func lastSegment(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

func parentPath(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[:i]
	}
	return path
}
