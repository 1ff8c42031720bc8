// Copyright 1999-2020 Alibaba Group Holding Ltd.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"github.com/pkg/errors"

	"github.com/polarismesh/go-mesh-guard/internal/circuitbreaker"
	"github.com/polarismesh/go-mesh-guard/internal/logging"
	"github.com/polarismesh/go-mesh-guard/internal/resource"
)

// TraceError reports the outcome of a single invocation against res: a
// nil err reports success, otherwise failure. retCode/delayMs are carried
// into the sample, but since the status is always Success or Fail the
// rule's RET_CODE/DELAY error conditions are not consulted. Recovers
// from a panicking Guard so that bad instrumentation at a call site never
// takes down the caller.
func (g *Guard) TraceError(res resource.Resource, err error, retCode int32, delayMs uint64) {
	defer func() {
		if e := recover(); e != nil {
			logging.Error(errors.Errorf("%+v", e), "[api] panic in TraceError, dropping sample")
		}
	}()

	status := circuitbreaker.RetSuccess
	if err != nil {
		status = circuitbreaker.RetFail
	}
	g.Report(circuitbreaker.ResourceStat{
		Resource:    res,
		Status:      status,
		RetCode:     retCode,
		DelayMillis: delayMs,
	})
}
