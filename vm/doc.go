// Package vm implements the slate virtual machine.
//
// This package contains:
//   - Reference-counted value representation with copy-on-write payloads
//   - A type arena with flattened, inheritable slot tables
//   - Dict, the hash-bucketed mapping used for namespaces and dict values
//   - The register bytecode format and its disassembler
//   - The two-register interpreter and the built-in types
package vm
