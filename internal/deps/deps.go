package deps

// Status reports whether an external program mec launches is present.
type Status struct {
	Name        string
	Command     string
	Description string
	Available   bool
	Detail      string
}
