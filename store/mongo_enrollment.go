package store

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/rushteam/coursesim/core"
)

// MongoEnrollmentSource 通过聚合查询读取选课记录。
//
// 聚合流程：
//  1. $match：learner / course 字段存在且不为 null
//  2. $group（可选）：按 (learner, course, attrs...) 在库内先去重，减少传输
//  3. $project：统一输出 {learner, course, attrs}
type MongoEnrollmentSource struct {
	Collection *mongo.Collection

	// LearnerField / CourseField 是记录中的字段名，默认 userId / courseId
	LearnerField string
	CourseField  string

	// AttrFields 是额外投影到 RawEnrollment.Attrs 的字段（支持 a.b 路径），
	// 在 Attrs 中以 "." 替换为 "_" 后的名字出现
	AttrFields []string

	// Group 为 true 时在库内先按记录去重
	Group bool

	// BatchSize 是游标每批文档数，0 使用驱动默认值
	BatchSize int32

	client *mongo.Client
}

// NewMongoEnrollmentSource 创建数据源；client 非 nil 时由数据源负责 Disconnect。
func NewMongoEnrollmentSource(client *mongo.Client, database, collection string) *MongoEnrollmentSource {
	return &MongoEnrollmentSource{
		Collection:   client.Database(database).Collection(collection),
		LearnerField: "userId",
		CourseField:  "courseId",
		Group:        true,
		client:       client,
	}
}

func (s *MongoEnrollmentSource) Name() string {
	return "mongo:" + s.Collection.Database().Name() + "." + s.Collection.Name()
}

func (s *MongoEnrollmentSource) learnerField() string {
	if s.LearnerField == "" {
		return "userId"
	}
	return s.LearnerField
}

func (s *MongoEnrollmentSource) courseField() string {
	if s.CourseField == "" {
		return "courseId"
	}
	return s.CourseField
}

// AttrName 返回属性字段在 Attrs 中的 key
func AttrName(field string) string { return strings.ReplaceAll(field, ".", "_") }

// Pipeline 返回聚合管道
func (s *MongoEnrollmentSource) Pipeline() mongo.Pipeline {
	learner, course := s.learnerField(), s.courseField()
	present := bson.D{{Key: "$exists", Value: true}, {Key: "$ne", Value: nil}}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: learner, Value: present},
			{Key: course, Value: present},
		}}},
	}

	attrs := bson.D{}
	if s.Group {
		groupID := bson.D{
			{Key: "learner", Value: "$" + learner},
			{Key: "course", Value: "$" + course},
		}
		for i, f := range s.AttrFields {
			key := fmt.Sprintf("a%d", i)
			groupID = append(groupID, bson.E{Key: key, Value: "$" + f})
			attrs = append(attrs, bson.E{Key: AttrName(f), Value: "$_id." + key})
		}
		return append(pipeline,
			bson.D{{Key: "$group", Value: bson.D{{Key: "_id", Value: groupID}}}},
			project("$_id.learner", "$_id.course", attrs),
		)
	}

	for _, f := range s.AttrFields {
		attrs = append(attrs, bson.E{Key: AttrName(f), Value: "$" + f})
	}
	return append(pipeline, project("$"+learner, "$"+course, attrs))
}

// project 生成输出 {learner, course, attrs} 的 $project 阶段；空 attrs 不投影。
func project(learner, course string, attrs bson.D) bson.D {
	fields := bson.D{
		{Key: "_id", Value: 0},
		{Key: "learner", Value: learner},
		{Key: "course", Value: course},
	}
	if len(attrs) > 0 {
		fields = append(fields, bson.E{Key: "attrs", Value: attrs})
	}
	return bson.D{{Key: "$project", Value: fields}}
}

type enrollmentDoc struct {
	Learner any    `bson:"learner"`
	Course  any    `bson:"course"`
	Attrs   bson.M `bson:"attrs"`
}

func (s *MongoEnrollmentSource) Scan(ctx context.Context, fn func(core.RawEnrollment) error) error {
	opts := options.Aggregate().SetAllowDiskUse(true)
	if s.BatchSize > 0 {
		opts.SetBatchSize(s.BatchSize)
	}

	cursor, err := s.Collection.Aggregate(ctx, s.Pipeline(), opts)
	if err != nil {
		return core.ErrSourceUnavailable.Wrap(fmt.Errorf("aggregate %s: %w", s.Name(), err))
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var doc enrollmentDoc
		rec := core.RawEnrollment{}
		// 无法解码的文档按缺字段处理，由抽取器计为 malformed
		if err := cursor.Decode(&doc); err == nil {
			rec.LearnerID, _ = idFromBSON(doc.Learner)
			rec.CourseID, _ = idFromBSON(doc.Course)
			if len(doc.Attrs) > 0 {
				rec.Attrs, _ = normalizeBSON(doc.Attrs).(map[string]any)
			}
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	if err := cursor.Err(); err != nil {
		return core.ErrSourceUnavailable.Wrap(fmt.Errorf("cursor %s: %w", s.Name(), err))
	}
	return nil
}

func (s *MongoEnrollmentSource) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

var _ core.EnrollmentSource = (*MongoEnrollmentSource)(nil)
