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

package delivery

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// 下载结果
const (
	outcome_Full        = "full"
	outcome_Partial     = "partial"
	outcome_Head        = "head"
	outcome_Unsatisfied = "unsatisfiable"
	outcome_Aborted     = "aborted"
	outcome_Failed      = "failed"
)

// Metrics 下载指标
type Metrics struct {
	responses *prometheus.CounterVec
	bytes     prometheus.Counter
}

// NewMetrics 注册下载指标，reg为空时使用默认注册器
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	responses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cfm_delivery",
		Name:      "responses_total",
		Help:      "Download responses by outcome.",
	}, []string{"outcome"})
	bytes := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "cfm_delivery",
		Name:      "sent_bytes_total",
		Help:      "Body bytes written to download consumers.",
	})
	m := &Metrics{responses: responses, bytes: bytes}
	if err := reg.Register(responses); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, errors.Wrap(err, "register delivery metric")
		}
		m.responses = are.ExistingCollector.(*prometheus.CounterVec)
	}
	if err := reg.Register(bytes); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, errors.Wrap(err, "register delivery metric")
		}
		m.bytes = are.ExistingCollector.(prometheus.Counter)
	}
	return m, nil
}

func (m *Metrics) record(outcome string, sent int64) {
	if m == nil {
		return
	}
	m.responses.WithLabelValues(outcome).Inc()
	if sent > 0 {
		m.bytes.Add(float64(sent))
	}
}
