package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tsfans/sql-access/access"
)

func accessPtr(a access.AccessType) *access.AccessType {
	return &a
}

func sampleRecords() []Record {
	return []Record{
		NewRecord("SELECT * FROM a", 1, []access.TableAccess{{Name: "a", Access: access.Read}}),
		NewRecord("INSERT INTO a SELECT * FROM b", 1, []access.TableAccess{
			{Name: "a", Access: access.Write},
			{Name: "b", Access: access.Read},
		}),
		NewRecord("DELETE FROM c", 1, []access.TableAccess{{Name: "c", Access: access.Write}}),
	}
}

func TestNewRecord(t *testing.T) {
	first := NewRecord("SELECT 1", 1, nil)
	second := NewRecord("SELECT 1", 1, nil)
	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, time.UTC, first.AnalyzedAt.Location())
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	for _, record := range sampleRecords() {
		require.NoError(t, store.Save(ctx, record))
	}

	all, err := store.FindByTable(ctx, "a", nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "SELECT * FROM a", all[0].SQL)

	writes, err := store.FindByTable(ctx, "a", accessPtr(access.Write))
	require.NoError(t, err)
	require.Len(t, writes, 1)
	assert.Equal(t, "INSERT INTO a SELECT * FROM b", writes[0].SQL)

	none, err := store.FindByTable(ctx, "missing", nil)
	require.NoError(t, err)
	assert.Empty(t, none)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, []TableStat{
		{Name: "a", Access: access.Read, Count: 1},
		{Name: "a", Access: access.Write, Count: 1},
		{Name: "b", Access: access.Read, Count: 1},
		{Name: "c", Access: access.Write, Count: 1},
	}, stats)
}

func TestMemoryStoreCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := NewMemoryStore()
	assert.ErrorIs(t, store.Save(ctx, NewRecord("SELECT 1", 1, nil)), context.Canceled)
	_, err := store.FindByTable(ctx, "a", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryStoreConcurrent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Save(ctx, NewRecord("SELECT * FROM a", 1, []access.TableAccess{{Name: "a", Access: access.Read}}))
			_, _ = store.FindByTable(ctx, "a", nil)
		}()
	}
	wg.Wait()

	records, err := store.FindByTable(ctx, "a", nil)
	require.NoError(t, err)
	assert.Len(t, records, 16)
}

// 内存中的集合，只记录收到的过滤条件
type fakeCollection struct {
	inserted []interface{}
	filter   interface{}
	pipeline interface{}
	results  []interface{}
	err      error
}

func (c *fakeCollection) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.inserted = append(c.inserted, document)
	return &mongo.InsertOneResult{}, nil
}

func (c *fakeCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.filter = filter
	return mongo.NewCursorFromDocuments(c.results, nil, nil)
}

func (c *fakeCollection) Aggregate(ctx context.Context, pipeline interface{}, opts ...*options.AggregateOptions) (*mongo.Cursor, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.pipeline = pipeline
	return mongo.NewCursorFromDocuments(c.results, nil, nil)
}

func TestMongoStoreSave(t *testing.T) {
	coll := &fakeCollection{}
	store := &MongoStore{coll: coll}

	record := sampleRecords()[1]
	require.NoError(t, store.Save(context.Background(), record))
	require.Len(t, coll.inserted, 1)

	doc := coll.inserted[0].(recordDoc)
	assert.Equal(t, record.ID, doc.ID)
	assert.Equal(t, []tableDoc{{Name: "a", Access: "Write"}, {Name: "b", Access: "Read"}}, doc.Tables)

	coll.err = errors.New("boom")
	assert.Error(t, store.Save(context.Background(), record))
}

func TestMongoStoreFindByTable(t *testing.T) {
	record := sampleRecords()[1]
	coll := &fakeCollection{results: []interface{}{toDoc(record)}}
	store := &MongoStore{coll: coll}

	records, err := store.FindByTable(context.Background(), "b", accessPtr(access.Read))
	require.NoError(t, err)
	assert.Equal(t, bson.M{"tables": bson.M{"$elemMatch": bson.M{"name": "b", "access": "Read"}}}, coll.filter)

	require.Len(t, records, 1)
	assert.Equal(t, record.ID, records[0].ID)
	assert.Equal(t, record.SQL, records[0].SQL)
	assert.Equal(t, record.Tables, records[0].Tables)
	assert.True(t, record.AnalyzedAt.Equal(records[0].AnalyzedAt))

	_, err = store.FindByTable(context.Background(), "b", nil)
	require.NoError(t, err)
	assert.Equal(t, bson.M{"tables": bson.M{"$elemMatch": bson.M{"name": "b"}}}, coll.filter)
}

func TestMongoStoreInvalidDocument(t *testing.T) {
	bad := recordDoc{ID: "x", Tables: []tableDoc{{Name: "a", Access: "Execute"}}}
	store := &MongoStore{coll: &fakeCollection{results: []interface{}{bad}}}
	_, err := store.FindByTable(context.Background(), "a", nil)
	assert.Error(t, err)
}

func TestMongoStoreStats(t *testing.T) {
	coll := &fakeCollection{results: []interface{}{
		statDoc{ID: tableDoc{Name: "b", Access: "Read"}, Count: 2},
		statDoc{ID: tableDoc{Name: "a", Access: "Write"}, Count: 1},
	}}
	store := &MongoStore{coll: coll}

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []TableStat{
		{Name: "a", Access: access.Write, Count: 1},
		{Name: "b", Access: access.Read, Count: 2},
	}, stats)
	assert.Equal(t, statsPipeline(), coll.pipeline)
}

func TestRecordTouches(t *testing.T) {
	record := sampleRecords()[1]
	assert.True(t, record.Touches("a", nil))
	assert.True(t, record.Touches("a", accessPtr(access.Write)))
	assert.False(t, record.Touches("a", accessPtr(access.Read)))
	assert.False(t, record.Touches("z", nil))
}
