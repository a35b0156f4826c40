// Dazzle is a declarative rule and policy evaluation service.
//
// Entity behavior is declared in YAML definition files: typed fields,
// access rules, invariants, and guarded state machines, with every
// condition written in a small expression language. The service compiles
// the definitions, serves access decisions and invariant checks over
// HTTP, hot-reloads definitions on change, and keeps an audit log of
// every decision.
//
// Usage:
//
//	# Start the server with default configuration
//	dazzle run
//
//	# Start with a custom configuration file
//	dazzle run --config /etc/dazzle/config.yaml
//
//	# Validate definition files
//	dazzle lint --dir definitions/
//
//	# Pretty-print an expression
//	dazzle fmt 'amount>0 and status in ["draft","open"]'
//
//	# Show version information
//	dazzle version
package main

func main() {
	Execute()
}
