package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/rushteam/coursesim/core"
)

// MongoRecommendationStore 把推荐表存进一个集合，每门课程一个文档：
//
//	{_id: <course>, recommendations: [{courseId: <course>, score: <float64>}]}
//
// IDFormat 为 objectid 时 _id / courseId 以 ObjectID 存储，无法转换的 ID 只影响所在行。
type MongoRecommendationStore struct {
	Collection *mongo.Collection

	// IDFormat 是 ID 的存储格式：objectid / string，默认 objectid
	IDFormat string

	// BatchSize 是每次 InsertMany 的文档数，默认 core.DefaultInsertBatchSize
	BatchSize int

	client *mongo.Client
}

// NewMongoRecommendationStore 创建推荐表存储；client 非 nil 时由存储负责 Disconnect。
func NewMongoRecommendationStore(client *mongo.Client, database, collection string) *MongoRecommendationStore {
	return &MongoRecommendationStore{
		Collection: client.Database(database).Collection(collection),
		IDFormat:   IDFormatObjectID,
		client:     client,
	}
}

func (s *MongoRecommendationStore) Name() string {
	return "mongo:" + s.Collection.Database().Name() + "." + s.Collection.Name()
}

func (s *MongoRecommendationStore) idFormat() string {
	if s.IDFormat == "" {
		return IDFormatObjectID
	}
	return s.IDFormat
}

type similarityDoc struct {
	ID              any             `bson:"_id"`
	Recommendations []similarityRec `bson:"recommendations"`
}

type similarityRec struct {
	CourseID any     `bson:"courseId"`
	Score    float64 `bson:"score"`
}

// Clear 删除集合中的全部文档（不删除集合本身，保留索引）。
func (s *MongoRecommendationStore) Clear(ctx context.Context) error {
	if _, err := s.Collection.DeleteMany(ctx, bson.D{}); err != nil {
		return core.ErrSinkUnavailable.Wrap(fmt.Errorf("clear %s: %w", s.Name(), err))
	}
	return nil
}

// encode 把一行转为文档。行 ID 无效时整行失败；候选 ID 无效时只丢弃该候选。
func (s *MongoRecommendationStore) encode(e core.RecommendationEntry) (*similarityDoc, error) {
	id, err := encodeID(s.idFormat(), e.CourseID)
	if err != nil {
		return nil, err
	}
	doc := &similarityDoc{ID: id, Recommendations: make([]similarityRec, 0, len(e.Recommendations))}
	for _, r := range e.Recommendations {
		rid, err := encodeID(s.idFormat(), r.CourseID)
		if err != nil {
			continue
		}
		doc.Recommendations = append(doc.Recommendations, similarityRec{CourseID: rid, Score: r.Score})
	}
	if len(doc.Recommendations) == 0 {
		return nil, errors.New("no recommendation with a valid id")
	}
	return doc, nil
}

// Check 报告该行在当前 IDFormat 下能否写入
func (s *MongoRecommendationStore) Check(e core.RecommendationEntry) error {
	_, err := s.encode(e)
	return err
}

// BulkInsert 按批无序写入；单个文档失败不影响同批其他文档。
func (s *MongoRecommendationStore) BulkInsert(ctx context.Context, entries []core.RecommendationEntry) (*core.WriteResult, error) {
	res := &core.WriteResult{}

	batchSize := s.BatchSize
	if batchSize <= 0 {
		batchSize = core.DefaultInsertBatchSize
	}

	var (
		docs    = make([]any, 0, batchSize)
		courses = make([]string, 0, batchSize)
		lastErr error
	)
	flush := func() {
		if len(docs) == 0 {
			return
		}
		_, err := s.Collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
		var bwe mongo.BulkWriteException
		if err == nil {
			res.Inserted += len(docs)
		} else if errors.As(err, &bwe) && len(bwe.WriteErrors) > 0 {
			failed := make(map[int]struct{}, len(bwe.WriteErrors))
			for _, we := range bwe.WriteErrors {
				if we.Index < 0 || we.Index >= len(courses) {
					continue
				}
				failed[we.Index] = struct{}{}
				res.Failed = append(res.Failed, core.FailedRow{CourseID: courses[we.Index], Reason: we.Message})
			}
			res.Inserted += len(docs) - len(failed)
		} else {
			lastErr = err
			for _, c := range courses {
				res.Failed = append(res.Failed, core.FailedRow{CourseID: c, Reason: err.Error()})
			}
		}
		docs = docs[:0]
		courses = courses[:0]
	}

	for _, e := range entries {
		doc, err := s.encode(e)
		if err != nil {
			res.Failed = append(res.Failed, core.FailedRow{CourseID: e.CourseID, Reason: err.Error()})
			continue
		}
		docs = append(docs, doc)
		courses = append(courses, e.CourseID)
		if len(docs) >= batchSize {
			flush()
		}
	}
	flush()

	if res.Inserted == 0 && lastErr != nil {
		return res, core.ErrSinkUnavailable.Wrap(lastErr)
	}
	return res, nil
}

func (s *MongoRecommendationStore) decode(doc similarityDoc) (core.RecommendationEntry, bool) {
	id, ok := idFromBSON(doc.ID)
	if !ok {
		return core.RecommendationEntry{}, false
	}
	entry := core.RecommendationEntry{CourseID: id, Recommendations: make([]core.Recommendation, 0, len(doc.Recommendations))}
	for _, r := range doc.Recommendations {
		if rid, ok := idFromBSON(r.CourseID); ok {
			entry.Recommendations = append(entry.Recommendations, core.Recommendation{CourseID: rid, Score: r.Score})
		}
	}
	return entry, true
}

func (s *MongoRecommendationStore) Get(ctx context.Context, courseID string) (*core.RecommendationEntry, error) {
	id, err := encodeID(s.idFormat(), courseID)
	if err != nil {
		// 格式不合法的 ID 不可能存在于表中
		return nil, core.ErrEntryNotFound
	}

	var doc similarityDoc
	if err := s.Collection.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, core.ErrEntryNotFound
		}
		return nil, fmt.Errorf("find %s in %s: %w", courseID, s.Name(), err)
	}
	entry, ok := s.decode(doc)
	if !ok {
		return nil, fmt.Errorf("decode %s in %s: unsupported _id", courseID, s.Name())
	}
	return &entry, nil
}

// GetMany 批量读取，结果按课程 ID 升序。
func (s *MongoRecommendationStore) GetMany(ctx context.Context, courseIDs []string) ([]core.RecommendationEntry, error) {
	ids := make(bson.A, 0, len(courseIDs))
	for _, c := range courseIDs {
		if id, err := encodeID(s.idFormat(), c); err == nil {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	cursor, err := s.Collection.Find(ctx, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}})
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", s.Name(), err)
	}
	defer cursor.Close(ctx)

	var docs []similarityDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.Name(), err)
	}

	out := make([]core.RecommendationEntry, 0, len(docs))
	for _, d := range docs {
		if entry, ok := s.decode(d); ok {
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CourseID < out[j].CourseID })
	return out, nil
}

func (s *MongoRecommendationStore) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

var (
	_ core.RecommendationStore       = (*MongoRecommendationStore)(nil)
	_ core.RecommendationBatchReader = (*MongoRecommendationStore)(nil)
	_ core.RecommendationChecker     = (*MongoRecommendationStore)(nil)
	_ core.RecommendationBatchReader = (*KVRecommendationStore)(nil)
)
