// Package defclean reports which symbols of a kernel defconfig are still
// referenced by the kernel source tree, so dead entries can be pruned.
//
// # Pipeline
//
// One run is a single linear pass over the defconfig:
//
//  1. Load: [OpenDefconfig] opens the file, reading through gzip when the
//     path contains ".gz".
//  2. Extract: [ExtractSymbols] finds every CONFIG_<NAME> occurrence on a
//     line, left to right, and yields NAME.
//  3. Probe: [Engine.Probe] counts the lines under the source root that
//     mention NAME and classifies the symbol as active (count > 0) or
//     deprecated (count == 0).
//
// # Usage
//
//	e, err := defclean.New(defclean.WithSink(defclean.TextSink{W: os.Stdout}))
//	if err != nil { ... }
//	report, err := e.Analyze(ctx, "arch/arm/configs/foo_defconfig")
//	fmt.Println(report.Deprecated)
//
// # Source root
//
// By default the source root is the defconfig's absolute path with four
// elements removed, which maps arch/<arch>/configs/<file> back to the tree
// root. [WithAscend] changes the count and [WithSourceRoot] pins the
// directory outright.
//
// # Matching
//
// Matching is a literal substring test per line, so FOO also matches
// FOOBAR. The internal/search package offers a token mode that parses C
// sources with tree-sitter and only accepts whole identifiers; select it
// with [WithMatchMode].
//
// # Errors
//
// A defconfig that cannot be opened is a [*FileAccessError]. A failed search
// for one symbol is a [*SearchError] that is logged and counted as zero; it
// never stops the scan.
package defclean
