// Package hcl provides the HCL implementation of config.Loader.
//
// A project file declares one block per phase:
//
//	project "demo" {
//	  id     = "proj-123"
//	  remote = "http://localhost:8080/api"
//	}
//
//	locals {
//	  tokens = ["type", "id", "assign", "num", "semi"]
//	}
//
//	source {
//	  code = "int x = 1;"
//	}
//
//	lexer {
//	  token "num" { pattern = "\\d+" }
//	}
//
//	parser {
//	  variables = ["S"]
//	  terminals = local.tokens
//	  start     = "S"
//	  rule "S" { rhs = "type id assign num semi" }
//	}
//
// List attributes accept either an HCL list or a whitespace separated
// string. Attributes of the locals blocks of every file are visible to all
// files as local.<name>.
package hcl
