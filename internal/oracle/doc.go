// Package oracle runs expressions through cel-go, the reference Go
// implementation of CEL, and compares the outcome with celviz.
//
// Sources are parsed but not type-checked by cel-go so that operand types
// are resolved at run time, as celviz does. Expressions using celviz-only
// syntax such as let bindings are reported as unsupported rather than as
// disagreements.
//
// Example usage:
//
//	o, err := oracle.New(logger)
//	if err != nil {
//	    return err
//	}
//	verdict := o.Compare(runtime.New(), `x + 1`, env)
//	if !verdict.Agree() {
//	    fmt.Println(verdict)
//	}
package oracle
