package validator

// Validator is implemented by request types that can check their own fields
// after unmarshaling, before the router acts on them.
type Validator interface {
	Validate() error
}

// Validate runs v's field checks.
func Validate(v Validator) error {
	return v.Validate()
}
