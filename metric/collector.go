// Package metric publishes sampled values as prometheus gauges on a cron schedule.
package metric

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/txix-open/isp-kit/metrics"
)

const (
	EverySecond     = "* * * * * *"
	EveryTenSeconds = "*/10 * * * * *"
)

type Value struct {
	Labels []string
	Value  float64
}

func ValueOf(value int, labels ...string) Value {
	return Value{
		Value:  float64(value),
		Labels: labels,
	}
}

type Metric struct {
	Name        string
	Description string
	Labels      []string
	Collect     func() []Value
}

// Collector samples every added metric on one shared schedule.
// Each gauge carries an extra "module" label.
type Collector struct {
	cronSpec  string
	module    string
	scheduler *cron.Cron

	lock    sync.Mutex
	started bool
	closed  bool
}

func NewCollector(cronSpec string, module string) *Collector {
	return &Collector{
		cronSpec: cronSpec,
		module:   module,
		scheduler: cron.New(cron.WithParser(cron.NewParser(
			cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
		))),
	}
}

// Add publishes the metric right away and then on every tick.
func (c *Collector) Add(m Metric) error {
	labels := append(append([]string{}, m.Labels...), "module")
	gauge := metrics.GetOrRegister(
		metrics.DefaultRegistry,
		prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: m.Name,
			Help: m.Description,
		}, labels),
	)
	collect := func() {
		for _, value := range m.Collect() {
			values := append(append([]string{}, value.Labels...), c.module)
			gauge.WithLabelValues(values...).Set(value.Value)
		}
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	if c.closed {
		return errors.New("collector is closed")
	}
	_, err := c.scheduler.AddFunc(c.cronSpec, collect)
	if err != nil {
		return errors.WithMessagef(err, "schedule %s with %s", m.Name, c.cronSpec)
	}
	collect()

	if !c.started {
		c.scheduler.Start()
		c.started = true
	}
	return nil
}

// Close stops the schedule and waits for running collections.
func (c *Collector) Close() error {
	c.lock.Lock()
	if c.closed {
		c.lock.Unlock()
		return nil
	}
	c.closed = true
	c.lock.Unlock()

	<-c.scheduler.Stop().Done()
	return nil
}
