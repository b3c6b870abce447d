// Package coursesim 离线计算课程相似度（Item-Item 协同过滤）并整体替换推荐表。
//
// 设计要点：
// - Pipeline-first: 批任务由顺序 Node 组成（Extract → Matrix → Similarity → Select → Write）
// - 存储可插拔: 来源与推荐表通过 core 接口访问，store 包提供 Mongo / CSV / Redis / Memory 实现
// - 结果确定: 输入顺序与并发度不影响输出，分数相同时按课程 ID 排序
package coursesim

import "github.com/rushteam/coursesim/pipeline"

// 轻量 facade：便于用户直接 import "coursesim" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind
type Report = pipeline.Report

const (
	KindExtract    = pipeline.KindExtract
	KindMatrix     = pipeline.KindMatrix
	KindSimilarity = pipeline.KindSimilarity
	KindSelect     = pipeline.KindSelect
	KindWrite      = pipeline.KindWrite
)
