// Package rules defines the rule sets a user authors for each pipeline phase
// and the pure validators that check them for structural well-formedness
// before anything is sent to the remote compiler service.
//
// Validators never panic and never touch the network. They return nil when
// a configuration is acceptable and a *Violation otherwise; the Violation's
// Kind identifies which check failed and its message is suitable for
// showing to the user as-is.
//
// Grammar checks run in a fixed order and stop at the first failure:
//
//  1. the grammar has at least one production rule
//  2. the start symbol is a declared variable
//  3. no production has an empty right-hand side
//  4. every right-hand side symbol is a declared variable or terminal
package rules
