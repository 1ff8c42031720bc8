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

// guarddemo drives a scripted report+route scenario against a real Guard
// instance, printing each step's outcome. It exercises the library end
// to end; it carries no policy logic of its own.
package main

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/polarismesh/go-mesh-guard/api"
	"github.com/polarismesh/go-mesh-guard/internal/circuitbreaker"
	"github.com/polarismesh/go-mesh-guard/internal/resource"
	"github.com/polarismesh/go-mesh-guard/internal/router"
)

// demoFixture is the on-disk shape of the rule and instance snapshot this
// demo exercises. In a real deployment these would come from a discovery
// and rule-distribution transport; here they're a static YAML blob.
type demoFixture struct {
	Rule struct {
		Name               string `yaml:"name"`
		ErrorCount         uint64 `yaml:"error-count"`
		SleepWindowSeconds uint32 `yaml:"sleep-window-seconds"`
		RecoverySuccesses  uint32 `yaml:"recovery-successes"`
	} `yaml:"rule"`
	Instances []struct {
		Host   string            `yaml:"host"`
		Port   uint32            `yaml:"port"`
		Labels map[string]string `yaml:"labels"`
	} `yaml:"instances"`
}

const fixtureYAML = `
rule:
  name: order-service-consecutive
  error-count: 3
  sleep-window-seconds: 1
  recovery-successes: 3
instances:
  - host: 10.0.0.1
    port: 8080
    labels:
      region: west
  - host: 10.0.0.2
    port: 8080
    labels:
      region: east
`

func loadFixture() (demoFixture, error) {
	var f demoFixture
	err := yaml.Unmarshal([]byte(fixtureYAML), &f)
	return f, err
}

func main() {
	fixture, err := loadFixture()
	if err != nil {
		fmt.Printf("failed to load demo fixture: %v\n", err)
		return
	}

	guard := api.NewGuard(api.Options{
		EnvKey:          "env",
		GlobalVariables: map[string]string{"region": "west"},
		DefaultFailover: router.FailoverAll,
	})

	svc := resource.ServiceResource{NamespaceV: "default", ServiceV: "order-service"}

	rule := &circuitbreaker.Rule{
		Name:  fixture.Rule.Name,
		Level: circuitbreaker.LevelService,
		TriggerConditions: []circuitbreaker.TriggerCondition{
			{Kind: circuitbreaker.TriggerConsecutiveError, ErrorCount: fixture.Rule.ErrorCount},
		},
		RecoverCondition: circuitbreaker.RecoverCondition{
			SleepWindowSeconds:      fixture.Rule.SleepWindowSeconds,
			ConsecutiveSuccessCount: fixture.Rule.RecoverySuccesses,
		},
	}
	if err := guard.SetRule(svc.Namespace(), svc.Service(), rule); err != nil {
		fmt.Printf("failed to install rule: %v\n", err)
		return
	}

	// 三次连续失败，触发熔断。
	for i := 0; i < 3; i++ {
		guard.TraceError(svc, fmt.Errorf("boom"), 500, 10)
	}
	fmt.Printf("step1 (after 3 failures): pass=%v\n", guard.Check(svc).Pass)

	// 熔断窗口期内再请求，直接被拒绝。
	guard.TraceError(svc, nil, 200, 5)
	fmt.Printf("step2 (still inside sleep window): pass=%v\n", guard.Check(svc).Pass)

	// 休眠超过sleep-window，进入半开状态。
	time.Sleep(1100 * time.Millisecond)
	fmt.Printf("step3 (after sleep window): pass=%v\n", guard.Check(svc).Pass)

	// 半开状态下，三次连续成功，关闭熔断器。
	for i := 0; i < 3; i++ {
		guard.TraceError(svc, nil, 200, 5)
	}
	time.Sleep(1100 * time.Millisecond) // 等待半开转换的去抖检查完成。
	fmt.Printf("step4 (after 3 half-open successes): pass=%v\n", guard.Check(svc).Pass)

	// 路由演示：入站规则按metadata选择实例。
	info := &router.RouteInfo{
		SourceNamespace: "default",
		SourceService:   "gateway",
		DestNamespace:   "default",
		DestService:     "order-service",
		TrafficLabels:   map[string]string{"region": "west"},
		Inbounds: []router.Route{
			{
				Sources: []router.Source{
					{Namespace: "default", Service: "gateway"},
				},
				Destinations: []router.Destination{
					{
						Namespace: "default",
						Service:   "order-service",
						Metadata: map[string]router.MatchString{
							"region": router.NewMatchString(router.OpExact, "$region"),
						},
						Priority: 0,
						Weight:   100,
					},
				},
			},
		},
	}
	instances := router.ServiceInstances{
		Namespace: "default",
		Service:   "order-service",
	}
	for _, inst := range fixture.Instances {
		instances.Instances = append(instances.Instances, router.Instance{
			Host:     inst.Host,
			Port:     inst.Port,
			Metadata: inst.Labels,
		})
	}
	result := guard.Route(info, instances)
	fmt.Printf("step5 (routed instances): %+v\n", result.Instances)
}
