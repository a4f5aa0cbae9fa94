/*
 * Copyright (c) 2023 ivfzhou
 * backend is licensed under Mulan PSL v2.
 * You can use this software according to the terms and conditions of the Mulan PSL v2.
 * You may obtain a copy of Mulan PSL v2 at:
 *          http://license.coscl.org.cn/MulanPSL2
 * THIS SOFTWARE IS PROVIDED ON AN "AS IS" BASIS, WITHOUT WARRANTIES OF ANY KIND,
 * EITHER EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO NON-INFRINGEMENT,
 * MERCHANTABILITY OR FIT FOR A PARTICULAR PURPOSE.
 * See the Mulan PSL v2 for more details.
 */

package upload

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 上传指标
type Metrics struct {
	sessions       prometheus.Gauge
	evictions      *prometheus.CounterVec
	chunks         *prometheus.CounterVec
	chunkBytes     prometheus.Counter
	assembles      *prometheus.CounterVec
	assembleTime   prometheus.Histogram
	assembledBytes prometheus.Counter
}

// NewMetrics 注册上传指标，reg为空时使用默认注册器
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	const namespace = "cfm_upload"
	m := &Metrics{}
	var err error
	if m.sessions, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions",
		Help:      "Live upload sessions in the registry.",
	})); err != nil {
		return nil, err
	}
	if m.evictions, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_removals_total",
		Help:      "Upload sessions removed from the registry by reason.",
	}, []string{"reason"})); err != nil {
		return nil, err
	}
	if m.chunks, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chunks_total",
		Help:      "Chunks received by outcome.",
	}, []string{"outcome"})); err != nil {
		return nil, err
	}
	if m.chunkBytes, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chunk_bytes_total",
		Help:      "Chunk payload bytes persisted to scratch areas.",
	})); err != nil {
		return nil, err
	}
	if m.assembles, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "assembles_total",
		Help:      "Assemblies by result code.",
	}, []string{"result"})); err != nil {
		return nil, err
	}
	if m.assembleTime, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "assemble_duration_seconds",
		Help:      "Latency of chunk assembly.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
	})); err != nil {
		return nil, err
	}
	if m.assembledBytes, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "assembled_bytes_total",
		Help:      "Bytes published as assembled artifacts.",
	})); err != nil {
		return nil, err
	}
	return m, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, errors.Wrap(err, "register upload metric")
	}
	return c, nil
}

func (m *Metrics) setSessions(n int) {
	if m == nil {
		return
	}
	m.sessions.Set(float64(n))
}

func (m *Metrics) recordRemoval(reason string) {
	if m == nil {
		return
	}
	m.evictions.WithLabelValues(reason).Inc()
}

func (m *Metrics) recordChunk(outcome string, size int64) {
	if m == nil {
		return
	}
	m.chunks.WithLabelValues(outcome).Inc()
	if size > 0 {
		m.chunkBytes.Add(float64(size))
	}
}

func (m *Metrics) recordAssemble(result string, cost time.Duration, size int64) {
	if m == nil {
		return
	}
	m.assembles.WithLabelValues(result).Inc()
	m.assembleTime.Observe(cost.Seconds())
	if size > 0 {
		m.assembledBytes.Add(float64(size))
	}
}
