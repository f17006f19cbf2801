package pipeline

// FailureKind discriminates the three ways a pipeline invocation can fail.
type FailureKind string

const (
	// FailureContract indicates one or more required request fields were
	// missing or malformed.
	FailureContract FailureKind = "contract"
	// FailureModelNotFound indicates a referenced entity could not be
	// resolved, or was out of the acting identity's scope.
	FailureModelNotFound FailureKind = "model_not_found"
	// FailurePolicy indicates a named business rule rejected the request.
	FailurePolicy FailureKind = "policy"
)

// Result is the discriminated outcome of a pipeline invocation. Either OK is
// true and Payload carries the step result, or exactly one failure kind is
// set, with Name identifying the missing model or the failing policy and
// Fields listing offending contract fields.
type Result struct {
	OK      bool        `json:"ok"`
	Kind    FailureKind `json:"kind,omitempty"`
	Name    string      `json:"name,omitempty"`
	Fields  []string    `json:"fields,omitempty"`
	Payload any         `json:"payload,omitempty"`
}

// Success builds a successful result carrying the given payload.
func Success(payload any) Result {
	return Result{OK: true, Payload: payload}
}

// ContractFailure builds a contract failure naming each invalid field.
func ContractFailure(fields ...string) Result {
	return Result{Kind: FailureContract, Fields: fields}
}

// ModelNotFound builds a failure naming the model that could not be resolved.
func ModelNotFound(name string) Result {
	return Result{Kind: FailureModelNotFound, Name: name}
}

// PolicyFailure builds a failure naming the policy that rejected the request.
func PolicyFailure(name string) Result {
	return Result{Kind: FailurePolicy, Name: name}
}

// FailedContract reports whether the result is a contract failure.
func (r Result) FailedContract() bool {
	return !r.OK && r.Kind == FailureContract
}

// FailedToFindModel reports whether the result failed resolving the named model.
func (r Result) FailedToFindModel(name string) bool {
	return !r.OK && r.Kind == FailureModelNotFound && r.Name == name
}

// FailedPolicy reports whether the result failed the named policy.
func (r Result) FailedPolicy(name string) bool {
	return !r.OK && r.Kind == FailurePolicy && r.Name == name
}
