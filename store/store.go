package store

// 注意：此包只包含实现，接口定义在 core 包。
//
//   - 选课记录来源（core.EnrollmentSource）：MongoEnrollmentSource、CSVEnrollmentSource、SliceEnrollmentSource
//   - 推荐表（core.RecommendationStore）：MongoRecommendationStore、KVRecommendationStore
//   - KV 存储（core.Store）：RedisStore、MemoryStore
//
// 示例：
//
//	var kv core.Store = NewMemoryStore()
//	var table core.RecommendationStore = NewKVRecommendationStore(kv, DefaultKeyPrefix)
//
// import 本包会在 init 中向 config 注册 mongo / csv / redis / memory 构建器。
