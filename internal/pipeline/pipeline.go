// Package pipeline implements the multi-step operation chain used by the
// chat services to validate, resolve, authorize, and atomically execute
// state-changing requests. Stages run strictly in declaration order and the
// first failing stage short-circuits the whole invocation.
package pipeline

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
)

// ErrNotFound is returned by a ResolveFunc when the referenced entity does
// not exist or is out of scope. The executor maps it to a ModelNotFound
// failure carrying the step's name.
var ErrNotFound = errors.New("model not found")

// State carries resolved models between stages of a single invocation.
type State struct {
	models map[string]any
}

// Model returns the entity resolved by the model step with the given name,
// or nil when no such step ran.
func (s *State) Model(name string) any {
	return s.models[name]
}

func (s *State) setModel(name string, model any) {
	if s.models == nil {
		s.models = make(map[string]any)
	}
	s.models[name] = model
}

// ResolveFunc loads a referenced entity. Returning ErrNotFound (or a nil
// entity) fails the invocation with a ModelNotFound result; any other error
// aborts the invocation as an infrastructure failure.
type ResolveFunc func(ctx context.Context, s *State) (any, error)

// PredicateFunc is a named authorization or business-rule check. Predicates
// must not mutate external state.
type PredicateFunc func(ctx context.Context, s *State) (bool, error)

// MutateFunc applies the operation's side effects and returns the success
// payload. Implementations own their transaction boundary: every persisted
// write must happen inside a single transaction so no partial mutation is
// observable.
type MutateFunc func(ctx context.Context, s *State) (any, error)

type stepKind int

const (
	stepContract stepKind = iota
	stepModel
	stepPolicy
	stepMutate
)

type step struct {
	kind      stepKind
	name      string
	contract  any
	validate  *validator.Validate
	resolve   ResolveFunc
	predicate PredicateFunc
	mutate    MutateFunc
}

// Pipeline is an ordered sequence of contract, model, policy, and mutation
// steps over an immutable request.
type Pipeline struct {
	steps []step
}

// New creates an empty pipeline.
func New() *Pipeline {
	return &Pipeline{}
}

// Contract appends a structural validation step over the request object.
// Validation is purely structural; it performs no I/O and no authorization.
func (p *Pipeline) Contract(validate *validator.Validate, req any) *Pipeline {
	p.steps = append(p.steps, step{kind: stepContract, validate: validate, contract: req})
	return p
}

// Model appends a resolution step that loads the named entity and makes it
// available to subsequent stages via State.Model.
func (p *Pipeline) Model(name string, fn ResolveFunc) *Pipeline {
	p.steps = append(p.steps, step{kind: stepModel, name: name, resolve: fn})
	return p
}

// Policy appends a named predicate. The first predicate returning false
// aborts evaluation and the failure carries that predicate's name.
func (p *Pipeline) Policy(name string, fn PredicateFunc) *Pipeline {
	p.steps = append(p.steps, step{kind: stepPolicy, name: name, predicate: fn})
	return p
}

// Mutate appends the mutation step executed once every prior stage passed.
func (p *Pipeline) Mutate(fn MutateFunc) *Pipeline {
	p.steps = append(p.steps, step{kind: stepMutate, mutate: fn})
	return p
}

// Run executes the steps in order. The returned Result covers the operation
// taxonomy (contract, model-not-found, policy, success); a non-nil error is
// reserved for infrastructure failures such as a broken storage connection,
// in which case the Result is zero-valued.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	state := &State{}

	for _, st := range p.steps {
		switch st.kind {
		case stepContract:
			if err := st.validate.Struct(st.contract); err != nil {
				var verrs validator.ValidationErrors
				if errors.As(err, &verrs) {
					fields := make([]string, 0, len(verrs))
					for _, ferr := range verrs {
						fields = append(fields, ferr.Field())
					}
					return ContractFailure(fields...), nil
				}
				return Result{}, err
			}
		case stepModel:
			model, err := st.resolve(ctx, state)
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					return ModelNotFound(st.name), nil
				}
				return Result{}, err
			}
			if model == nil {
				return ModelNotFound(st.name), nil
			}
			state.setModel(st.name, model)
		case stepPolicy:
			ok, err := st.predicate(ctx, state)
			if err != nil {
				return Result{}, err
			}
			if !ok {
				return PolicyFailure(st.name), nil
			}
		case stepMutate:
			payload, err := st.mutate(ctx, state)
			if err != nil {
				return Result{}, err
			}
			return Success(payload), nil
		}
	}

	return Success(nil), nil
}
