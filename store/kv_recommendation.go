package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/goccy/go-json"

	"github.com/rushteam/coursesim/core"
)

// DefaultKeyPrefix 是推荐表在 KV 存储中的默认 key 前缀
const DefaultKeyPrefix = "coursesim:rec:"

// KVRecommendationStore 把推荐表存进任意 core.Store：
// key = Prefix + 课程 ID，value = 推荐列表 JSON。
//
// Clear 删除 Prefix 下的全部 key，因此不同推荐表必须使用不同的 Prefix。
type KVRecommendationStore struct {
	Store core.Store

	// Prefix 是 key 前缀，默认 DefaultKeyPrefix
	Prefix string

	// TTL 是 value 过期时间（秒），0 表示不过期
	TTL int

	// BatchSize 是每次 BatchSet 的行数，默认 core.DefaultInsertBatchSize
	BatchSize int
}

func NewKVRecommendationStore(s core.Store, prefix string) *KVRecommendationStore {
	return &KVRecommendationStore{Store: s, Prefix: prefix}
}

func (s *KVRecommendationStore) Name() string { return "kv:" + s.Store.Name() }

func (s *KVRecommendationStore) prefix() string {
	if s.Prefix == "" {
		return DefaultKeyPrefix
	}
	return s.Prefix
}

// Key 返回课程对应的 key
func (s *KVRecommendationStore) Key(courseID string) string { return s.prefix() + courseID }

func (s *KVRecommendationStore) Clear(ctx context.Context) error {
	if _, err := s.Store.DeletePrefix(ctx, s.prefix()); err != nil {
		return core.ErrSinkUnavailable.Wrap(fmt.Errorf("clear %s*: %w", s.prefix(), err))
	}
	return nil
}

func (s *KVRecommendationStore) BulkInsert(ctx context.Context, entries []core.RecommendationEntry) (*core.WriteResult, error) {
	res := &core.WriteResult{}

	batchSize := s.BatchSize
	if batchSize <= 0 {
		batchSize = core.DefaultInsertBatchSize
	}

	var (
		batch   = make(map[string][]byte, batchSize)
		courses = make([]string, 0, batchSize)
		lastErr error
	)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		var err error
		if s.TTL > 0 {
			err = s.Store.BatchSet(ctx, batch, s.TTL)
		} else {
			err = s.Store.BatchSet(ctx, batch)
		}
		if err != nil {
			lastErr = err
			for _, c := range courses {
				res.Failed = append(res.Failed, core.FailedRow{CourseID: c, Reason: err.Error()})
			}
		} else {
			res.Inserted += len(batch)
		}
		batch = make(map[string][]byte, batchSize)
		courses = courses[:0]
	}

	for _, e := range entries {
		if e.CourseID == "" {
			res.Failed = append(res.Failed, core.FailedRow{Reason: "empty course id"})
			continue
		}
		val, err := json.Marshal(e.Recommendations)
		if err != nil {
			res.Failed = append(res.Failed, core.FailedRow{CourseID: e.CourseID, Reason: err.Error()})
			continue
		}
		batch[s.Key(e.CourseID)] = val
		courses = append(courses, e.CourseID)
		if len(batch) >= batchSize {
			flush()
		}
	}
	flush()

	if res.Inserted == 0 && lastErr != nil {
		return res, core.ErrSinkUnavailable.Wrap(lastErr)
	}
	return res, nil
}

func (s *KVRecommendationStore) Get(ctx context.Context, courseID string) (*core.RecommendationEntry, error) {
	val, err := s.Store.Get(ctx, s.Key(courseID))
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, core.ErrEntryNotFound
		}
		return nil, err
	}

	var recs []core.Recommendation
	if err := json.Unmarshal(val, &recs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.Key(courseID), err)
	}
	return &core.RecommendationEntry{CourseID: courseID, Recommendations: recs}, nil
}

// GetMany 批量读取，不存在的课程不出现在结果中；结果按课程 ID 升序。
func (s *KVRecommendationStore) GetMany(ctx context.Context, courseIDs []string) ([]core.RecommendationEntry, error) {
	keys := make([]string, 0, len(courseIDs))
	for _, c := range courseIDs {
		keys = append(keys, s.Key(c))
	}
	vals, err := s.Store.BatchGet(ctx, keys)
	if err != nil {
		return nil, err
	}

	out := make([]core.RecommendationEntry, 0, len(vals))
	var decodeErr error
	for _, c := range courseIDs {
		val, ok := vals[s.Key(c)]
		if !ok {
			continue
		}
		var recs []core.Recommendation
		if err := json.Unmarshal(val, &recs); err != nil {
			decodeErr = errors.Join(decodeErr, fmt.Errorf("decode %s: %w", s.Key(c), err))
			continue
		}
		out = append(out, core.RecommendationEntry{CourseID: c, Recommendations: recs})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CourseID < out[j].CourseID })
	return out, decodeErr
}

func (s *KVRecommendationStore) Close(ctx context.Context) error {
	return s.Store.Close()
}

var _ core.RecommendationStore = (*KVRecommendationStore)(nil)
