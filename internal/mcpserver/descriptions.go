package mcpserver

// Tool descriptions with interpretation guidance for LLMs.

func describeReachability() string {
	return `Finds methods, fields and instruction ranges of a compiled program that can never execute.

The input is a unit file, a directory of units, or a zip/jar archive of units.
Entry points are discovered heuristically (main methods, test methods, public
static utilities, constructors of main classes) and reflective calls are linked
to every method whose name appears as a string literal in the calling method.

USE WHEN:
- Cleaning up a codebase before a refactoring
- Checking whether a method is still called after a feature removal
- Finding fields that are written but never read
- Spotting code after unconditional jumps or returns inside live methods

INTERPRETING RESULTS:
- dead_methods: not reachable from any entry point. Safe to review for removal,
  but code called only through reflection with computed names may be listed
- dead_fields: "unused" fields are never read or written; "write_only" fields are
  assigned but their value is never read
- dead_blocks: instruction index ranges of live methods no control flow reaches
- dead_cycles: groups of dead methods that only call each other
- warnings: "no_entry_points" means every method was reported dead, usually because
  the entry point policies did not match the program; fix the policies first
- heuristic_edges counts reflective edges; a high number means the result leans
  on name matching

METRICS RETURNED:
- Summary: totals, reachable and dead counts, dead method ratio
- Dead methods with access modifiers, dead fields with reason, dead blocks as ranges
- Decode failures for units that could not be read`
}

func describeEntryPoints() string {
	return `Lists the methods treated as analysis roots and the policies that selected them.

USE WHEN:
- A reachability report flags too much or too little code as dead
- Checking which policies match a program before changing the configuration
- Auditing the public surface of a library

INTERPRETING RESULTS:
- main: public static main(String[]) methods
- test: test methods and fixtures (test*, *Test, setUp, tearDown, before, after)
- static-utility: public static methods nothing in the program calls
- main-constructor: constructors of classes that declare a main method
- A method can be selected by several policies

METRICS RETURNED:
- Entry point keys with owning class and matching policies
- Summary counts for the whole program`
}

func describeExplain() string {
	return `Explains why one method is reachable or dead.

USE WHEN:
- A method in a dead code report looks like it is still used
- Checking what else becomes dead if a method is removed
- Inspecting the unreachable instructions of a live method

INTERPRETING RESULTS:
- reachable with a path: the path is a shortest call chain from an entry point
- dead with no callers: nothing in the program calls the method
- dead with callers: every caller is itself dead
- excluded: static initializers, synthetic and bridge methods are never reported
- callees lists the transitive callees with their direct callees; methods only
  reached through this one die with it unless something else reaches them

METRICS RETURNED:
- Status, entry point policies, call path, callers
- Transitive callees
- Basic block starts and dead instruction ranges with opcodes`
}
