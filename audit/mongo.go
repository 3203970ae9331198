package audit

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tsfans/sql-access/access"
)

const (
	Mongo_Stage_Unwind = "$unwind"
	Mongo_Stage_Group  = "$group"
	Mongo_Stage_Sort   = "$sort"

	Mongo_Operator_ElemMatch = "$elemMatch"
	Mongo_Operator_Sum       = "$sum"

	Mongo_Field_ID         = "_id"
	Mongo_Field_Tables     = "tables"
	Mongo_Field_AnalyzedAt = "analyzedAt"
)

type tableDoc struct {
	Name   string `bson:"name"`
	Access string `bson:"access"`
}

type recordDoc struct {
	ID         string     `bson:"_id"`
	SQL        string     `bson:"sql"`
	Statements int        `bson:"statements"`
	Tables     []tableDoc `bson:"tables"`
	AnalyzedAt time.Time  `bson:"analyzedAt"`
}

type statDoc struct {
	ID    tableDoc `bson:"_id"`
	Count int64    `bson:"count"`
}

// mongo.Collection中用到的方法
type collection interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
	Aggregate(ctx context.Context, pipeline interface{}, opts ...*options.AggregateOptions) (*mongo.Cursor, error)
}

// MongoDB存储，每次分析一个文档，表访问列表内嵌在tables数组中
type MongoStore struct {
	client *mongo.Client
	coll   collection
}

func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll}
}

// 连接MongoDB并检查连通性
func ConnectMongoStore(ctx context.Context, uri, database, coll string) (store *MongoStore, err error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		err = fmt.Errorf("connect mongo failed,err=[%w],database=[%v]", err, database)
		return
	}
	if err = client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		err = fmt.Errorf("ping mongo failed,err=[%w],database=[%v]", err, database)
		return
	}
	log.Infof("audit store connected,database=[%v],collection=[%v]", database, coll)

	store = &MongoStore{client: client, coll: client.Database(database).Collection(coll)}
	return
}

func (s *MongoStore) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) Save(ctx context.Context, record Record) error {
	if _, err := s.coll.InsertOne(ctx, toDoc(record)); err != nil {
		return fmt.Errorf("save audit record failed,err=[%w],id=[%v]", err, record.ID)
	}
	return nil
}

func (s *MongoStore) FindByTable(ctx context.Context, name string, accessType *access.AccessType) (records []Record, err error) {
	cursor, err := s.coll.Find(ctx, tableFilter(name, accessType),
		options.Find().SetSort(bson.D{{Key: Mongo_Field_AnalyzedAt, Value: 1}}))
	if err != nil {
		err = fmt.Errorf("find audit records failed,err=[%w],table=[%v]", err, name)
		return
	}

	var docs []recordDoc
	if err = cursor.All(ctx, &docs); err != nil {
		err = fmt.Errorf("decode audit records failed,err=[%w],table=[%v]", err, name)
		return
	}

	records = make([]Record, 0, len(docs))
	for _, doc := range docs {
		var record Record
		if record, err = fromDoc(doc); err != nil {
			return
		}
		records = append(records, record)
	}
	return
}

func (s *MongoStore) Stats(ctx context.Context) (stats []TableStat, err error) {
	cursor, err := s.coll.Aggregate(ctx, statsPipeline())
	if err != nil {
		err = fmt.Errorf("aggregate audit stats failed,err=[%w]", err)
		return
	}

	var docs []statDoc
	if err = cursor.All(ctx, &docs); err != nil {
		err = fmt.Errorf("decode audit stats failed,err=[%w]", err)
		return
	}

	stats = make([]TableStat, 0, len(docs))
	for _, doc := range docs {
		accessType, parseErr := access.ParseAccessType(doc.ID.Access)
		if parseErr != nil {
			err = parseErr
			return
		}
		stats = append(stats, TableStat{Name: doc.ID.Name, Access: accessType, Count: doc.Count})
	}
	sortStats(stats)
	return
}

// {"tables": {"$elemMatch": {"name": ..., "access": ...}}}
func tableFilter(name string, accessType *access.AccessType) bson.M {
	match := bson.M{"name": name}
	if accessType != nil {
		match["access"] = accessType.String()
	}
	return bson.M{Mongo_Field_Tables: bson.M{Mongo_Operator_ElemMatch: match}}
}

// 展开tables后按(name, access)计数
func statsPipeline() bson.A {
	return bson.A{
		bson.M{Mongo_Stage_Unwind: "$" + Mongo_Field_Tables},
		bson.M{Mongo_Stage_Group: bson.M{
			Mongo_Field_ID: bson.M{
				"name":   "$" + Mongo_Field_Tables + ".name",
				"access": "$" + Mongo_Field_Tables + ".access",
			},
			"count": bson.M{Mongo_Operator_Sum: 1},
		}},
		bson.M{Mongo_Stage_Sort: bson.D{{Key: "_id.name", Value: 1}, {Key: "_id.access", Value: 1}}},
	}
}

func toDoc(record Record) recordDoc {
	tables := make([]tableDoc, 0, len(record.Tables))
	for _, table := range record.Tables {
		tables = append(tables, tableDoc{Name: table.Name, Access: table.Access.String()})
	}
	return recordDoc{
		ID:         record.ID,
		SQL:        record.SQL,
		Statements: record.Statements,
		Tables:     tables,
		AnalyzedAt: record.AnalyzedAt,
	}
}

func fromDoc(doc recordDoc) (record Record, err error) {
	tables := make([]access.TableAccess, 0, len(doc.Tables))
	for _, table := range doc.Tables {
		var accessType access.AccessType
		if accessType, err = access.ParseAccessType(table.Access); err != nil {
			err = fmt.Errorf("invalid audit record,err=[%w],id=[%v]", err, doc.ID)
			return
		}
		tables = append(tables, access.TableAccess{Name: table.Name, Access: accessType})
	}
	record = Record{
		ID:         doc.ID,
		SQL:        doc.SQL,
		Statements: doc.Statements,
		Tables:     tables,
		AnalyzedAt: doc.AnalyzedAt.UTC(),
	}
	return
}
