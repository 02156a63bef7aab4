package ports

// Observer is the observability sink of the core. Failures reported here are
// never surfaced to the end user.
type Observer interface {
	// Outcome records how an identity notification resolved.
	Outcome(outcome string)
	// Failure records a swallowed or fail-closed error.
	Failure(op string, err error)
	// CacheLookup records a cache hit or miss for a resource ("list", "user").
	CacheLookup(resource, result string)
	// Mutation records a registry write and its result ("ok", "error").
	Mutation(op, result string)
}

// Resolution outcomes reported through Observer.Outcome.
const (
	OutcomeAuthenticated = "authenticated"
	OutcomeSignedOut     = "signed_out"
	OutcomeUnauthorized  = "unauthorized"
	OutcomeError         = "error"
)

// NopObserver discards everything.
type NopObserver struct{}

func (NopObserver) Outcome(string)             {}
func (NopObserver) Failure(string, error)      {}
func (NopObserver) CacheLookup(string, string) {}
func (NopObserver) Mutation(string, string)    {}
