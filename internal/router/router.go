// Package router simulates IoT Core rule evaluation locally: it reads the
// topic rules out of a built template and delivers published messages to
// handlers bound to the rules' Lambda targets.
package router

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	wetwire "github.com/lex00/wetwire-fleet-go"
	"github.com/lex00/wetwire-fleet-go/internal/logging"
	"github.com/lex00/wetwire-fleet-go/internal/template"
	"github.com/lex00/wetwire-fleet-go/internal/topic"
)

const topicRuleType = "AWS::IoT::TopicRule"

var (
	// ErrNotEvaluable marks a rule whose SQL filters or reshapes messages.
	ErrNotEvaluable = errors.New("rule is not locally evaluable")
	// ErrUnboundTarget marks a matching rule whose target has no handler.
	ErrUnboundTarget = errors.New("no handler bound for target")
)

// Handler receives one message delivered by a rule.
type Handler func(ctx context.Context, topic string, payload []byte) error

// Rule is a topic rule read from a template.
type Rule struct {
	// Name is the logical name of the AWS::IoT::TopicRule resource.
	Name string
	// RuleName is the RuleName property, if set.
	RuleName string
	// SQL is the raw rule statement.
	SQL       string
	Statement topic.Statement
	// Targets are the logical names (or literal ARNs) of the Lambda actions.
	Targets  []string
	Disabled bool
}

// Delivery records one rule/target pair a message was routed to.
type Delivery struct {
	Rule    string
	Target  string
	Topic   string
	Payload []byte
	// Invoked is true when the bound handler ran.
	Invoked bool
	Err     error
}

// Router delivers published messages to bound handlers.
type Router struct {
	rules []Rule
	log   log.FieldLogger
	// limit bounds concurrent deliveries; zero or less means no bound.
	limit int

	mu       sync.RWMutex
	handlers map[string]Handler
}

// New creates a router over a fixed rule set.
func New(rules []Rule) *Router {
	return &Router{
		rules:    rules,
		log:      logging.Discard(),
		handlers: make(map[string]Handler),
	}
}

// FromTemplate reads every topic rule out of a template.
func FromTemplate(tmpl *wetwire.Template) (*Router, error) {
	var (
		rules []Rule
		errs  []error
	)
	for _, name := range tmpl.ResourcesOfType(topicRuleType) {
		rule, err := parseRule(name, tmpl.Resources[name].Properties)
		if err != nil {
			errs = append(errs, fmt.Errorf("rule %s: %w", name, err))
			continue
		}
		rules = append(rules, rule)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return New(rules), nil
}

func parseRule(name string, props map[string]any) (Rule, error) {
	rule := Rule{Name: name}
	rule.RuleName, _ = props["RuleName"].(string)

	payload, ok := props["TopicRulePayload"].(map[string]any)
	if !ok {
		return rule, errors.New("missing TopicRulePayload")
	}

	rule.SQL, _ = payload["Sql"].(string)
	stmt, err := topic.ParseSQL(rule.SQL)
	if err != nil {
		return rule, err
	}
	rule.Statement = stmt
	rule.Disabled, _ = payload["RuleDisabled"].(bool)

	actions, _ := payload["Actions"].([]any)
	for _, a := range actions {
		action, ok := a.(map[string]any)
		if !ok {
			continue
		}
		lambda, ok := action["Lambda"].(map[string]any)
		if !ok {
			continue
		}
		target, ok := targetName(lambda["FunctionArn"])
		if !ok {
			return rule, fmt.Errorf("unsupported Lambda FunctionArn: %v", lambda["FunctionArn"])
		}
		rule.Targets = append(rule.Targets, target)
	}
	return rule, nil
}

// targetName resolves a FunctionArn value to a logical name or literal ARN.
func targetName(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, v != ""
	case map[string]any:
		return template.RefTarget(v)
	}
	return "", false
}

// SetLogger replaces the router's logger.
func (r *Router) SetLogger(logger log.FieldLogger) {
	r.log = logger
}

// Rules returns the router's rules.
func (r *Router) Rules() []Rule {
	return r.rules
}

// Targets returns every distinct target across all rules, sorted.
func (r *Router) Targets() []string {
	seen := make(map[string]bool)
	var targets []string
	for _, rule := range r.rules {
		for _, t := range rule.Targets {
			if !seen[t] {
				seen[t] = true
				targets = append(targets, t)
			}
		}
	}
	sort.Strings(targets)
	return targets
}

// Bind attaches a handler to a target, replacing any previous one.
func (r *Router) Bind(target string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[target] = h
}

// Match returns the enabled rules whose filter matches a topic.
func (r *Router) Match(name string) []Rule {
	var matched []Rule
	for _, rule := range r.rules {
		if rule.Disabled {
			continue
		}
		if topic.Match(rule.Statement.From, name) {
			matched = append(matched, rule)
		}
	}
	return matched
}

// Publish routes one message. Every target of every matching rule is invoked
// exactly once with the payload unchanged; rules run concurrently. A topic
// no rule matches yields no deliveries and no error.
//
// Each delivery gets its own copy of the payload. The returned error is the
// first handler failure; every delivery carries its own Err.
func (r *Router) Publish(ctx context.Context, name string, payload []byte) ([]Delivery, error) {
	if err := topic.ValidateTopic(name); err != nil {
		return nil, err
	}

	matched := r.Match(name)
	if len(matched) == 0 {
		r.log.WithField("topic", name).Debug("no rule matched")
		return nil, nil
	}

	var pairs []Delivery
	for _, rule := range matched {
		for _, target := range rule.Targets {
			pairs = append(pairs, Delivery{Rule: rule.Name, Target: target, Topic: name, Payload: bytes.Clone(payload)})
		}
	}

	rules := make(map[string]Rule, len(matched))
	for _, rule := range matched {
		rules[rule.Name] = rule
	}

	var g errgroup.Group
	if r.limit > 0 {
		g.SetLimit(r.limit)
	}
	for i := range pairs {
		d := &pairs[i]
		rule := rules[d.Rule]
		g.Go(func() error {
			r.deliver(ctx, rule, d)
			if d.Invoked && d.Err != nil {
				return fmt.Errorf("%s -> %s: %w", d.Rule, d.Target, d.Err)
			}
			return nil
		})
	}
	return pairs, g.Wait()
}

// SetConcurrency bounds how many deliveries of one message run at once.
// n <= 0 removes the bound.
func (r *Router) SetConcurrency(n int) {
	r.limit = n
}

func (r *Router) deliver(ctx context.Context, rule Rule, d *Delivery) {
	entry := r.log.WithFields(log.Fields{"topic": d.Topic, "rule": d.Rule, "target": d.Target})

	if !rule.Statement.Unconditional() || !rule.Statement.SelectsAll() {
		d.Err = fmt.Errorf("%w: %s", ErrNotEvaluable, rule.SQL)
		entry.Warn("skipping rule with WHERE clause or projection")
		return
	}

	r.mu.RLock()
	h, ok := r.handlers[d.Target]
	r.mu.RUnlock()
	if !ok {
		d.Err = fmt.Errorf("%w: %s", ErrUnboundTarget, d.Target)
		entry.Debug("target not bound")
		return
	}

	if err := ctx.Err(); err != nil {
		d.Err = err
		return
	}

	d.Invoked = true
	d.Err = h(ctx, d.Topic, d.Payload)
	entry.WithError(d.Err).Debug("delivered")
}
