package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus/push"
)

// Push sends the current value of every scan metric to a Prometheus
// pushgateway, grouped under job and instance.
func Push(url, job, instance string) error {
	p := push.New(url, job)
	if instance != "" {
		p = p.Grouping("instance", instance)
	}
	for _, c := range collectors() {
		p = p.Collector(c)
	}
	if err := p.Push(); err != nil {
		return fmt.Errorf("pushing metrics to %s: %w", url, err)
	}
	return nil
}
