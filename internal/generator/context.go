package generator

// Context is the caller-supplied key/value map used for placeholder
// substitution inside merged file content. Every key referenced by a selected
// module's templates must be present; substitution is strict.
type Context map[string]string

// DefaultContext returns a context pre-populated with the keys the builtin
// modules reference. Callers overlay their own values on top.
func DefaultContext(projectName string) Context {
	return Context{
		"ProjectName": projectName,
		"Author":      "",
		"AuthorEmail": "",
	}
}

// Merge overlays other onto c, later values winning, and returns c.
func (c Context) Merge(other Context) Context {
	for k, v := range other {
		c[k] = v
	}
	return c
}
