// Package metrics 记录批任务的 Prometheus 指标。
//
// 批任务生命周期短，不适合被拉取：指标注册在私有 Registry 上，
// 运行结束后推送到 Pushgateway（metrics.push_url 为空时只保留在内存中）。
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "coursesim"

// Recorder 是一次批任务的指标集合。nil Recorder 的所有方法都是空操作。
type Recorder struct {
	registry *prometheus.Registry

	records       *prometheus.GaugeVec
	learners      prometheus.Gauge
	courses       prometheus.Gauge
	nonZero       prometheus.Gauge
	entries       prometheus.Gauge
	failedRows    prometheus.Gauge
	stageDuration *prometheus.GaugeVec
	lastSuccess   prometheus.Gauge
	lastFailure   prometheus.Gauge
}

// New 创建 Recorder 并注册全部指标
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		records: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "enrollment_records",
			Help:      "Enrollment records seen in the last run, by outcome",
		}, []string{"outcome"}),
		learners: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "learners",
			Help:      "Distinct learners in the interaction matrix",
		}),
		courses: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "courses",
			Help:      "Distinct courses in the interaction matrix",
		}),
		nonZero: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "matrix_nonzero",
			Help:      "Non-zero cells in the interaction matrix",
		}),
		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "entries_written",
			Help:      "Recommendation entries inserted by the last run",
		}),
		failedRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "entries_failed",
			Help:      "Recommendation entries rejected by the store in the last run",
		}),
		stageDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of each stage of the last run",
		}, []string{"stage"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run",
		}),
		lastFailure: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_failure_timestamp_seconds",
			Help:      "Unix time of the last failed run",
		}),
	}
	r.registry.MustRegister(
		r.records, r.learners, r.courses, r.nonZero,
		r.entries, r.failedRows, r.stageDuration,
		r.lastSuccess, r.lastFailure,
	)
	return r
}

// Registry 返回私有 Registry（测试与自定义导出使用）
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveStage 记录阶段耗时
func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	if r == nil {
		return
	}
	r.stageDuration.WithLabelValues(stage).Set(d.Seconds())
}

// RecordExtract 记录抽取计数
func (r *Recorder) RecordExtract(read, malformed, filtered, duplicates, pairs int) {
	if r == nil {
		return
	}
	r.records.WithLabelValues("read").Set(float64(read))
	r.records.WithLabelValues("malformed").Set(float64(malformed))
	r.records.WithLabelValues("filtered").Set(float64(filtered))
	r.records.WithLabelValues("duplicate").Set(float64(duplicates))
	r.records.WithLabelValues("pair").Set(float64(pairs))
}

// RecordMatrix 记录交互矩阵规模
func (r *Recorder) RecordMatrix(learners, courses, nonZero int) {
	if r == nil {
		return
	}
	r.learners.Set(float64(learners))
	r.courses.Set(float64(courses))
	r.nonZero.Set(float64(nonZero))
}

// RecordWrite 记录写入结果
func (r *Recorder) RecordWrite(inserted, failed int) {
	if r == nil {
		return
	}
	r.entries.Set(float64(inserted))
	r.failedRows.Set(float64(failed))
}

// MarkResult 记录本次运行结束时间
func (r *Recorder) MarkResult(err error) {
	if r == nil {
		return
	}
	if err != nil {
		r.lastFailure.SetToCurrentTime()
		return
	}
	r.lastSuccess.SetToCurrentTime()
}

// Push 把指标推送到 Pushgateway，替换同一 job 分组下的旧值。
func (r *Recorder) Push(ctx context.Context, url, job string) error {
	if r == nil || url == "" {
		return nil
	}
	return push.New(url, job).Gatherer(r.registry).PushContext(ctx)
}
