// Package testutils provides helpers shared by the package tests
package testutils

import (
	"fmt"
	"strings"
	"sync"

	"github.com/jzx17/gojobs/pkg/types"
)

// Report is one recorded Reporter call
type Report struct {
	Message string
	IsError bool
}

// Collector is a Reporter that records every call
type Collector struct {
	mu      sync.Mutex
	reports []Report
}

// NewCollector creates an empty collector
func NewCollector() *Collector {
	return &Collector{}
}

// Report implements types.Reporter
func (c *Collector) Report(message string, isError bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports = append(c.reports, Report{Message: message, IsError: isError})
}

// Reports returns a copy of the recorded calls
func (c *Collector) Reports() []Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Report(nil), c.reports...)
}

// Errors returns the messages reported as errors
func (c *Collector) Errors() []string {
	var out []string
	for _, r := range c.Reports() {
		if r.IsError {
			out = append(out, r.Message)
		}
	}
	return out
}

// Contains reports whether any message contains substr
func (c *Collector) Contains(substr string) bool {
	for _, r := range c.Reports() {
		if strings.Contains(r.Message, substr) {
			return true
		}
	}
	return false
}

// Items builds n work items named item-0..item-n-1 whose payload is the index
func Items(n int) []types.WorkItem[int] {
	items := make([]types.WorkItem[int], n)
	for i := range items {
		items[i] = types.WorkItem[int]{
			ID:      fmt.Sprintf("id-%d", i),
			Name:    fmt.Sprintf("item-%d", i),
			Payload: i,
		}
	}
	return items
}
