// Package errors maps handler errors to outcome kinds
package errors

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/jzx17/gojobs/pkg/types"
)

// Classifier decides whether a handler error makes an item Skipped or
// Failed. Errors matching a bound sentinel (via errors.Is) or a bound
// concrete type anywhere in their chain take the bound kind; everything
// else takes the default kind.
type Classifier struct {
	sentinels   []binding
	typeKinds   map[reflect.Type]types.OutcomeKind
	defaultKind types.OutcomeKind
	mu          sync.RWMutex
}

type binding struct {
	target error
	kind   types.OutcomeKind
}

// NewClassifier creates a classifier that treats ErrSkip and ErrCanceled
// as Skipped and any other error as Failed
func NewClassifier() *Classifier {
	c := &Classifier{
		typeKinds:   make(map[reflect.Type]types.OutcomeKind),
		defaultKind: types.Failed,
	}
	c.sentinels = append(c.sentinels,
		binding{target: types.ErrSkip, kind: types.Skipped},
		binding{target: types.ErrCanceled, kind: types.Skipped},
	)
	return c
}

// Bind maps every error matching target to kind
func (c *Classifier) Bind(target error, kind types.OutcomeKind) error {
	if target == nil {
		return fmt.Errorf("cannot bind nil error")
	}
	if kind == types.Succeeded {
		return fmt.Errorf("cannot bind error %q to %s", target, kind)
	}
	if !reflect.TypeOf(target).Comparable() {
		return fmt.Errorf("error type %T is not comparable, use BindType", target)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i, b := range c.sentinels {
		if b.target == target {
			c.sentinels[i].kind = kind
			return nil
		}
	}
	c.sentinels = append(c.sentinels, binding{target: target, kind: kind})
	return nil
}

// Unbind removes a sentinel binding
func (c *Classifier) Unbind(target error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, b := range c.sentinels {
		if b.target == target {
			c.sentinels = append(c.sentinels[:i], c.sentinels[i+1:]...)
			return
		}
	}
}

// BindType maps every error whose chain contains a value of the same
// concrete type as example to kind
func (c *Classifier) BindType(example error, kind types.OutcomeKind) error {
	if example == nil {
		return fmt.Errorf("cannot bind nil error type")
	}
	if kind == types.Succeeded {
		return fmt.Errorf("cannot bind error type %T to %s", example, kind)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.typeKinds[reflect.TypeOf(example)] = kind
	return nil
}

// SetDefault sets the kind used for unbound errors
func (c *Classifier) SetDefault(kind types.OutcomeKind) error {
	if kind == types.Succeeded {
		return fmt.Errorf("default kind must not be %s", kind)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaultKind = kind
	return nil
}

// Classify returns Succeeded for a nil error and the bound or default
// kind otherwise
func (c *Classifier) Classify(err error) types.OutcomeKind {
	if err == nil {
		return types.Succeeded
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, b := range c.sentinels {
		if stderrors.Is(err, b.target) {
			return b.kind
		}
	}

	if len(c.typeKinds) > 0 {
		for e := err; e != nil; e = stderrors.Unwrap(e) {
			if kind, ok := c.typeKinds[reflect.TypeOf(e)]; ok {
				return kind
			}
		}
	}

	return c.defaultKind
}

// Bindings lists the configured bindings for diagnostics
func (c *Classifier) Bindings() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]string, len(c.sentinels)+len(c.typeKinds))
	for _, b := range c.sentinels {
		out[b.target.Error()] = b.kind.String()
	}
	for t, kind := range c.typeKinds {
		out[t.String()] = kind.String()
	}
	return out
}

var (
	defaultClassifier     *Classifier
	defaultClassifierOnce sync.Once
)

// Default returns a process-wide classifier. Bindings added to it are seen
// by every caller of Default; coordinators and pools without a configured
// classifier get their own NewClassifier instead.
func Default() *Classifier {
	defaultClassifierOnce.Do(func() {
		defaultClassifier = NewClassifier()
	})
	return defaultClassifier
}
