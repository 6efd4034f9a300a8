// gridcontg generates single-element contingency cases from a base case
// described in two simulators' formats, and reports how far the two models
// disagree on the disconnected elements.
//
// Usage:
//
//	gridcontg generate <class> <base_case> [--pairing P] [--filter LIST] [--all] [--max-cases N]
//	gridcontg paths <case_dir>
//	gridcontg report <summary.csv> [--top N] [--markdown]
//	gridcontg history [--db PATH] [--run ID]
//
// Installed under the names gridcontg_branchF, gridcontg_branchT or
// gridcontg_branchB, the binary runs "generate" for branches opened on
// that side.
package main

import (
	"os"
)

func main() {
	os.Exit(execute(os.Args, os.Stdout, os.Stderr))
}
