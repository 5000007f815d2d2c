package domain

// Classification is the outcome of checking one path against the path
// families that apply to an operation.
type Classification struct {
	// Path is the canonical form that was matched.
	Path      string
	Protected bool
	Decision  Decision
	Rule      *Rule
	// Err is set when a matcher failed and the hit was assumed.
	Err error
}
