// Package mongostore implements the document store contract on MongoDB.
//
// Each top-level path segment maps to one Mongo collection. A document
// at "teamMembers/T1/members/u1" is stored in the teamMembers collection
// keyed by its full path, with the parent collection path denormalized
// for subscription queries:
//
//	{_id: "teamMembers/T1/members/u1", parent: "teamMembers/T1/members",
//	 doc_id: "u1", data: {...}}
//
// Live subscriptions use change streams and re-materialize the
// subscribed view on every event. When the deployment does not support
// change streams (standalone mongod), subscriptions fall back to
// polling at the configured interval.
package mongostore

import (
	"context"
	"reflect"
	gosync "sync"
	"time"

	"github.com/dalemusser/greencrew/internal/app/store"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const defaultPollInterval = 2 * time.Second

type record struct {
	ID     string `bson:"_id"`
	Parent string `bson:"parent"`
	DocID  string `bson:"doc_id"`
	Data   bson.M `bson:"data"`
}

type Store struct {
	db   *mongo.Database
	log  *zap.Logger
	poll time.Duration
}

var _ store.DocumentStore = (*Store)(nil)

// New creates a store over the given database. pollInterval is the
// change-stream fallback cadence; zero selects the default.
func New(db *mongo.Database, pollInterval time.Duration, logger *zap.Logger) *Store {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &Store{db: db, log: logger, poll: pollInterval}
}

// collectionFor maps a path to its backing Mongo collection: the first
// path segment.
func (s *Store) collectionFor(path string) (*mongo.Collection, error) {
	segs, err := store.SplitPath(path)
	if err != nil {
		return nil, err
	}
	return s.db.Collection(segs[0]), nil
}

/* ───────────────────────── point operations ───────────────────────── */

func (s *Store) GetDocument(ctx context.Context, path string) (store.Doc, bool, error) {
	coll, err := s.collectionFor(path)
	if err != nil {
		return store.Doc{}, false, err
	}

	var rec record
	err = coll.FindOne(ctx, bson.M{"_id": path}).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return store.Doc{}, false, nil
	}
	if err != nil {
		return store.Doc{}, false, err
	}
	return rec.doc(), true, nil
}

func (s *Store) SetDocument(ctx context.Context, path string, data store.Document) error {
	segs, err := store.SplitPath(path)
	if err != nil {
		return err
	}
	if !store.IsDocumentPath(path) {
		return store.ErrBadPath
	}
	coll := s.db.Collection(segs[0])

	rec := record{
		ID:     path,
		Parent: parentPath(path),
		DocID:  segs[len(segs)-1],
		Data:   bson.M(data),
	}
	_, err = coll.ReplaceOne(ctx, bson.M{"_id": path}, rec, options.Replace().SetUpsert(true))
	return err
}

func (s *Store) UpdateDocument(ctx context.Context, path string, data store.Document) error {
	coll, err := s.collectionFor(path)
	if err != nil {
		return err
	}

	set := bson.M{}
	for k, v := range data {
		set["data."+k] = v
	}
	res, err := coll.UpdateOne(ctx, bson.M{"_id": path}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteDocument removes the document and everything stored beneath its
// path. Subdocuments share the first path segment, so the cascade never
// leaves the collection. Deleting an absent document is not an error.
func (s *Store) DeleteDocument(ctx context.Context, path string) error {
	coll, err := s.collectionFor(path)
	if err != nil {
		return err
	}

	filter := bson.M{"$or": []bson.M{
		{"_id": path},
		{"_id": bson.M{"$regex": "^" + regexEscape(path+"/")}},
	}}
	_, err = coll.DeleteMany(ctx, filter)
	return err
}

func (s *Store) AddDocument(ctx context.Context, collectionPath string, data store.Document) (string, error) {
	if _, err := store.SplitPath(collectionPath); err != nil {
		return "", err
	}
	if store.IsDocumentPath(collectionPath) {
		return "", store.ErrBadPath
	}
	id := uuid.NewString()
	if err := s.SetDocument(ctx, collectionPath+"/"+id, data); err != nil {
		return "", err
	}
	return id, nil
}

/* ───────────────────────── subscriptions ───────────────────────── */

func (s *Store) SubscribeToDocument(path string, fn store.DocumentHandler) (store.Unsubscribe, error) {
	if !store.IsDocumentPath(path) {
		return nil, store.ErrBadPath
	}
	coll, err := s.collectionFor(path)
	if err != nil {
		return nil, err
	}

	pipeline := mongo.Pipeline{bson.D{{Key: "$match", Value: bson.M{"documentKey._id": path}}}}
	materialize := func(ctx context.Context) (any, error) {
		doc, ok, err := s.GetDocument(ctx, path)
		if err != nil {
			return nil, err
		}
		return docSnapshot{doc: doc, exists: ok}, nil
	}
	deliver := func(v any) {
		snap := v.(docSnapshot)
		fn(snap.doc, snap.exists)
	}
	return s.subscribe(coll, path, pipeline, materialize, deliver)
}

func (s *Store) SubscribeToCollection(path string, fn store.CollectionHandler) (store.Unsubscribe, error) {
	if store.IsDocumentPath(path) {
		return nil, store.ErrBadPath
	}
	coll, err := s.collectionFor(path)
	if err != nil {
		return nil, err
	}

	// Any event in the backing collection may affect this view; the
	// parent filter alone would miss deletes, whose events carry no
	// fullDocument.
	pipeline := mongo.Pipeline{}
	materialize := func(ctx context.Context) (any, error) {
		return s.listCollection(ctx, coll, path)
	}
	deliver := func(v any) {
		fn(v.([]store.Doc))
	}
	return s.subscribe(coll, path, pipeline, materialize, deliver)
}

type docSnapshot struct {
	doc    store.Doc
	exists bool
}

func (s *Store) listCollection(ctx context.Context, coll *mongo.Collection, parent string) ([]store.Doc, error) {
	cur, err := coll.Find(ctx, bson.M{"parent": parent}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []store.Doc
	for cur.Next(ctx) {
		var rec record
		if err := cur.Decode(&rec); err != nil {
			return nil, err
		}
		docs = append(docs, rec.doc())
	}
	return docs, cur.Err()
}

// subscribe delivers the current snapshot synchronously, then follows
// changes on a background goroutine until the unsubscribe fires.
func (s *Store) subscribe(
	coll *mongo.Collection,
	path string,
	pipeline mongo.Pipeline,
	materialize func(context.Context) (any, error),
	deliver func(any),
) (store.Unsubscribe, error) {
	ctx, cancel := context.WithCancel(context.Background())

	initCtx, initCancel := context.WithTimeout(ctx, 10*time.Second)
	snapshot, err := materialize(initCtx)
	initCancel()
	if err != nil {
		cancel()
		return nil, err
	}
	deliver(snapshot)

	var wg gosync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.followChanges(ctx, coll, path, pipeline, materialize, deliver, snapshot)
	}()

	var once gosync.Once
	return func() {
		once.Do(func() {
			cancel()
			wg.Wait()
		})
	}, nil
}

func (s *Store) followChanges(
	ctx context.Context,
	coll *mongo.Collection,
	path string,
	pipeline mongo.Pipeline,
	materialize func(context.Context) (any, error),
	deliver func(any),
	last any,
) {
	stream, err := coll.Watch(ctx, pipeline)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.log.Warn("change streams unavailable, falling back to polling",
			zap.String("path", path),
			zap.Duration("interval", s.poll),
			zap.Error(err))
		s.pollChanges(ctx, path, materialize, deliver, last)
		return
	}
	defer stream.Close(context.Background())

	for stream.Next(ctx) {
		next, err := materialize(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Warn("re-materialize after change failed",
				zap.String("path", path), zap.Error(err))
			continue
		}
		if reflect.DeepEqual(next, last) {
			continue
		}
		last = next
		deliver(next)
	}

	if ctx.Err() == nil && stream.Err() != nil {
		s.log.Warn("change stream ended, falling back to polling",
			zap.String("path", path), zap.Error(stream.Err()))
		s.pollChanges(ctx, path, materialize, deliver, last)
	}
}

func (s *Store) pollChanges(
	ctx context.Context,
	path string,
	materialize func(context.Context) (any, error),
	deliver func(any),
	last any,
) {
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		next, err := materialize(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Warn("poll failed", zap.String("path", path), zap.Error(err))
			continue
		}
		if reflect.DeepEqual(next, last) {
			continue
		}
		last = next
		deliver(next)
	}
}

/* ───────────────────────── helpers ───────────────────────── */

func (r record) doc() store.Doc {
	return store.Doc{
		ID:   r.DocID,
		Path: r.ID,
		Data: normalizeDocument(r.Data),
	}
}

// normalizeDocument rewrites bson container types into the plain shapes
// the document constructors coerce from.
func normalizeDocument(m bson.M) store.Document {
	out := make(store.Document, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case bson.M:
		return map[string]any(normalizeDocument(t))
	case map[string]any:
		return map[string]any(normalizeDocument(bson.M(t)))
	case bson.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeValue(e)
		}
		return out
	default:
		return v
	}
}

func parentPath(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return ""
}

// regexEscape escapes regex metacharacters in a path prefix. Paths carry
// emails, which contain dots and plus signs.
func regexEscape(s string) string {
	const meta = `\.+*?()|[]{}^$`
	var out []byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		for j := 0; j < len(meta); j++ {
			if c == meta[j] {
				out = append(out, '\\')
				break
			}
		}
		out = append(out, c)
	}
	return string(out)
}
